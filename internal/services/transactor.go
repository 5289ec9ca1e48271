package services

import (
	"context"
	"log"

	"github.com/yukikurage/employee-admin-api/internal/lock"
	"github.com/yukikurage/employee-admin-api/internal/repository"
)

// Transactor runs multi-step mutations under keyed locks inside one transaction.
type Transactor struct {
	uow    *repository.WorkUnit
	locks  *lock.KeyedMutex
	logger *log.Logger
}

func NewTransactor(uow *repository.WorkUnit, locks *lock.KeyedMutex, logger *log.Logger) *Transactor {
	if logger == nil {
		logger = log.Default()
	}
	return &Transactor{uow: uow, locks: locks, logger: logger}
}

// Run acquires keys, then executes fn in a transaction. When fn fails, panics,
// or ctx ends before commit, the transaction is rolled back, compensate (if
// any) is run with a context detached from cancellation, and the original
// failure is returned or re-panicked.
func (t *Transactor) Run(ctx context.Context, keys []string, fn func(tx *repository.WorkUnit) error, compensate func(ctx context.Context)) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock, err := t.locks.Lock(ctx, keys...)
	if err != nil {
		return err
	}
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			t.compensate(ctx, compensate)
			panic(r)
		}
	}()

	if err = t.uow.Transaction(ctx, fn); err != nil {
		t.compensate(ctx, compensate)
		return err
	}
	return nil
}

func (t *Transactor) compensate(ctx context.Context, compensate func(ctx context.Context)) {
	if compensate == nil {
		return
	}
	compensate(context.WithoutCancel(ctx))
}
