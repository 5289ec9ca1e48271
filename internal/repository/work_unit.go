package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrTransactionClosed is returned when Commit or Rollback is called on a finished unit.
var ErrTransactionClosed = errors.New("work unit: transaction already closed")

// WorkUnit groups the repositories that share one database handle.
// A unit obtained from Begin is bound to a transaction; every write is sent to the
// database immediately, so Commit is the only flush point.
type WorkUnit struct {
	Users    UserRepository
	Projects ProjectRepository
	Members  ProjectMemberRepository
	Tasks    TaskRepository

	db     *gorm.DB
	inTx   bool
	closed bool
}

// NewWorkUnit creates a non-transactional WorkUnit over db
func NewWorkUnit(db *gorm.DB) *WorkUnit {
	return newWorkUnit(db, false)
}

func newWorkUnit(db *gorm.DB, inTx bool) *WorkUnit {
	return &WorkUnit{
		Users:    NewUserRepository(db),
		Projects: NewProjectRepository(db),
		Members:  NewProjectMemberRepository(db),
		Tasks:    NewTaskRepository(db),
		db:       db,
		inTx:     inTx,
	}
}

// Begin opens a transaction and returns a WorkUnit bound to it
func (u *WorkUnit) Begin(ctx context.Context) (*WorkUnit, error) {
	if u.inTx {
		return nil, errors.New("work unit: nested transactions are not supported")
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return newWorkUnit(tx, true), nil
}

// InTransaction reports whether the unit is bound to an open transaction
func (u *WorkUnit) InTransaction() bool {
	return u.inTx && !u.closed
}

// Commit commits the bound transaction
func (u *WorkUnit) Commit() error {
	if !u.InTransaction() {
		return ErrTransactionClosed
	}
	u.closed = true
	if err := u.db.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls the bound transaction back
func (u *WorkUnit) Rollback() error {
	if !u.InTransaction() {
		return ErrTransactionClosed
	}
	u.closed = true
	if err := u.db.Rollback().Error; err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// Transaction runs fn inside a new transaction, committing on success and
// rolling back when fn returns an error or panics.
func (u *WorkUnit) Transaction(ctx context.Context, fn func(tx *WorkUnit) error) (err error) {
	tx, err := u.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
