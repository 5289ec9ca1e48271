package services

import (
	"github.com/yukikurage/employee-admin-api/internal/models"
)

func (s *ServiceSuite) TestAddEmployees() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	e1 := s.createUser("e1@corp.test", models.RoleEmployee)
	e2 := s.createUser("e2@corp.test", models.RoleEmployee)
	p := s.createProject("P")

	s.Require().NoError(s.members.AddEmployees(s.ctx, []uint64{e1.ID, e2.ID, e1.ID}, p.ID))
	s.True(s.isMember(p.ID, e1.ID))
	s.True(s.isMember(p.ID, e2.ID))

	err := s.members.AddEmployees(s.ctx, []uint64{e1.ID}, p.ID)
	s.ErrorIs(err, ErrExistingProjectMember)

	err = s.members.AddEmployees(s.ctx, []uint64{admin.ID}, p.ID)
	s.ErrorIs(err, ErrNonEmployeeUser)

	err = s.members.AddEmployees(s.ctx, []uint64{999}, p.ID)
	s.ErrorIs(err, ErrUserNotFound)

	err = s.members.AddEmployees(s.ctx, []uint64{e1.ID}, 999)
	s.ErrorIs(err, ErrProjectNotFound)
}

func (s *ServiceSuite) TestAddEmployees_AllOrNothing() {
	e1 := s.createUser("e1@corp.test", models.RoleEmployee)
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	p := s.createProject("P")

	err := s.members.AddEmployees(s.ctx, []uint64{e1.ID, admin.ID}, p.ID)
	s.ErrorIs(err, ErrNonEmployeeUser)
	s.False(s.isMember(p.ID, e1.ID))
}

func (s *ServiceSuite) TestAddEmployees_IDCount() {
	p := s.createProject("P")

	err := s.members.AddEmployees(s.ctx, nil, p.ID)
	s.assertKind(err, KindValidation)
	s.Contains(FieldsOf(err), "employee_ids")

	ids := make([]uint64, 101)
	for i := range ids {
		ids[i] = uint64(i + 1)
	}
	err = s.members.RemoveEmployees(s.ctx, ids, p.ID)
	s.assertKind(err, KindValidation)
}

func (s *ServiceSuite) TestRemoveEmployees() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	e1 := s.createUser("e1@corp.test", models.RoleEmployee)
	e2 := s.createUser("e2@corp.test", models.RoleEmployee)
	p := s.createProject("P")
	s.addMember(p.ID, e1.ID)

	err := s.members.RemoveEmployees(s.ctx, []uint64{e2.ID}, p.ID)
	s.ErrorIs(err, ErrNotProjectMember)

	err = s.members.RemoveEmployees(s.ctx, []uint64{999}, p.ID)
	s.ErrorIs(err, ErrUserNotFound)

	err = s.members.RemoveEmployees(s.ctx, []uint64{e1.ID}, 999)
	s.ErrorIs(err, ErrProjectNotFound)

	task := s.createTask(p.ID, admin.ID, e1.ID, false)
	err = s.members.RemoveEmployees(s.ctx, []uint64{e1.ID}, p.ID)
	s.ErrorIs(err, ErrUncompletedTasks)
	s.True(s.isMember(p.ID, e1.ID))

	done := true
	_, err = s.tasks.UpdateTask(s.ctx, e1.ID, task.ID, UpdateTaskInput{IsCompleted: &done})
	s.Require().NoError(err)

	s.Require().NoError(s.members.RemoveEmployees(s.ctx, []uint64{e1.ID}, p.ID))
	s.False(s.isMember(p.ID, e1.ID))
}

func (s *ServiceSuite) TestRemoveEmployees_OpenTaskInOtherProjectDoesNotBlock() {
	admin := s.createUser("admin@corp.test", models.RoleAdministrator)
	e := s.createUser("e@corp.test", models.RoleEmployee)
	p1 := s.createProject("P1")
	p2 := s.createProject("P2")
	s.addMember(p1.ID, e.ID)
	s.addMember(p2.ID, e.ID)
	s.createTask(p2.ID, admin.ID, e.ID, false)

	s.Require().NoError(s.members.RemoveEmployees(s.ctx, []uint64{e.ID}, p1.ID))
	s.False(s.isMember(p1.ID, e.ID))
	s.True(s.isMember(p2.ID, e.ID))
}
