package services

import (
	"fmt"
	"sync"

	"github.com/yukikurage/employee-admin-api/internal/models"
)

const raceRounds = 20

func (s *ServiceSuite) TestCreateTaskRacingDeleteProject() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)

	for i := 0; i < raceRounds; i++ {
		e := s.createUser(fmt.Sprintf("e%d@corp.test", i), models.RoleEmployee)
		p := s.createProject(fmt.Sprintf("P%d", i))
		s.addMember(p.ID, e.ID)

		var (
			wg        sync.WaitGroup
			createErr error
			deleteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, createErr = s.tasks.CreateTask(s.ctx, admin.ID, p.ID, CreateTaskInput{Name: "Race", AppointeeID: e.ID})
		}()
		go func() {
			defer wg.Done()
			deleteErr = s.projects.DeleteProject(s.ctx, p.ID)
		}()
		wg.Wait()

		if createErr == nil {
			s.ErrorIs(deleteErr, ErrUncompletedTasks, "round %d", i)
		} else {
			s.ErrorIs(createErr, ErrProjectNotFound, "round %d", i)
			s.NoError(deleteErr, "round %d", i)
		}
	}

	var orphans int64
	s.Require().NoError(s.db.Model(&models.Task{}).
		Where("project_id NOT IN (?)", s.db.Model(&models.Project{}).Select("id")).
		Count(&orphans).Error)
	s.Zero(orphans)
}

func (s *ServiceSuite) TestCreateTaskRacingRemoveEmployees() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	p := s.createProject("P")

	for i := 0; i < raceRounds; i++ {
		e := s.createUser(fmt.Sprintf("e%d@corp.test", i), models.RoleEmployee)
		s.addMember(p.ID, e.ID)

		var (
			wg        sync.WaitGroup
			createErr error
			removeErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, createErr = s.tasks.CreateTask(s.ctx, admin.ID, p.ID, CreateTaskInput{Name: "Race", AppointeeID: e.ID})
		}()
		go func() {
			defer wg.Done()
			removeErr = s.members.RemoveEmployees(s.ctx, []uint64{e.ID}, p.ID)
		}()
		wg.Wait()

		if createErr == nil {
			s.ErrorIs(removeErr, ErrUncompletedTasks, "round %d", i)
			s.True(s.isMember(p.ID, e.ID))
		} else {
			s.ErrorIs(createErr, ErrNotProjectMember, "round %d", i)
			s.NoError(removeErr, "round %d", i)
			s.False(s.isMember(p.ID, e.ID))
		}
	}

	var tasks []models.Task
	s.Require().NoError(s.db.Where("project_id = ?", p.ID).Find(&tasks).Error)
	for _, t := range tasks {
		if t.IsSelfAssigned() {
			continue
		}
		s.True(s.isMember(t.ProjectID, t.AppointeeEmployeeID), "task %d has a removed appointee", t.ID)
	}
}

func (s *ServiceSuite) TestVerifyCredentialsRacingDeleteUser() {
	for i := 0; i < raceRounds; i++ {
		e := s.createUser(fmt.Sprintf("e%d@corp.test", i), models.RoleEmployee)

		var (
			wg        sync.WaitGroup
			loginErr  error
			deleteErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, loginErr = s.users.VerifyCredentials(s.ctx, VerifyCredentialsInput{Email: e.Email, Password: testPassword})
		}()
		go func() {
			defer wg.Done()
			deleteErr = s.users.DeleteUser(s.ctx, e.ID)
		}()
		wg.Wait()

		s.NoError(loginErr, "round %d", i)
		s.NoError(deleteErr, "round %d", i)

		var reloaded models.User
		s.Require().NoError(s.db.Unscoped().First(&reloaded, e.ID).Error)
		s.True(reloaded.IsDeleted(), "round %d", i)
		s.Nil(reloaded.RefreshToken, "round %d", i)
	}
}

func (s *ServiceSuite) TestGetByIDIsIdempotent() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	member := s.createUser("member@corp.test", models.RoleEmployee)
	p := s.createProject("P")
	s.addMember(p.ID, member.ID)
	task := s.createTask(p.ID, admin.ID, member.ID, false)
	s.createTask(p.ID, member.ID, member.ID, true)

	firstProject, err := s.projects.GetByID(s.ctx, p.ID, member.ID)
	s.Require().NoError(err)
	secondProject, err := s.projects.GetByID(s.ctx, p.ID, member.ID)
	s.Require().NoError(err)
	s.Equal(firstProject, secondProject)

	firstTask, err := s.tasks.GetByID(s.ctx, admin.ID, task.ID)
	s.Require().NoError(err)
	secondTask, err := s.tasks.GetByID(s.ctx, admin.ID, task.ID)
	s.Require().NoError(err)
	s.Equal(firstTask, secondTask)
}
