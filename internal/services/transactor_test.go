package services

import (
	"context"
	"errors"

	"github.com/yukikurage/employee-admin-api/internal/lock"
	"github.com/yukikurage/employee-admin-api/internal/models"
	"github.com/yukikurage/employee-admin-api/internal/repository"
)

func (s *ServiceSuite) TestTransactor_RollsBackAndCompensates() {
	failure := errors.New("boom")
	compensated := false

	err := s.transactor.Run(s.ctx, []string{lock.ProjectKey(1)}, func(tx *repository.WorkUnit) error {
		if err := tx.Projects.Create(s.ctx, &models.Project{Name: "Ghost", StatusID: models.ProjectStatusInProgress}); err != nil {
			return err
		}
		return failure
	}, func(context.Context) { compensated = true })

	s.ErrorIs(err, failure)
	s.True(compensated)

	var count int64
	s.Require().NoError(s.db.Model(&models.Project{}).Count(&count).Error)
	s.Zero(count)
}

func (s *ServiceSuite) TestTransactor_PanicRollsBackAndRepanics() {
	compensated := false

	s.PanicsWithValue("kaboom", func() {
		_ = s.transactor.Run(s.ctx, []string{lock.ProjectKey(1)}, func(tx *repository.WorkUnit) error {
			if err := tx.Projects.Create(s.ctx, &models.Project{Name: "Ghost", StatusID: models.ProjectStatusInProgress}); err != nil {
				return err
			}
			panic("kaboom")
		}, func(context.Context) { compensated = true })
	})
	s.True(compensated)

	var count int64
	s.Require().NoError(s.db.Model(&models.Project{}).Count(&count).Error)
	s.Zero(count)

	s.NoError(s.transactor.Run(s.ctx, []string{lock.ProjectKey(1)}, func(*repository.WorkUnit) error { return nil }, nil))
}

func (s *ServiceSuite) TestTransactor_CancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	called := false
	err := s.transactor.Run(ctx, nil, func(*repository.WorkUnit) error {
		called = true
		return nil
	}, nil)
	s.ErrorIs(err, context.Canceled)
	s.False(called)
}
