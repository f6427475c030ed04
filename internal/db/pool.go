package db

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

var (
	ErrPoolTimeout = errors.New("db: timed out waiting for a pooled connection")
	ErrPoolClosed  = errors.New("db: pool is closed")
)

// Pool hands out one dedicated connection per Do call. At most size
// callbacks run at once; waiting for a slot is bounded by acquireTimeout.
type Pool struct {
	db             *gorm.DB
	sem            *semaphore.Weighted
	size           int
	acquireTimeout time.Duration
	closed         atomic.Bool
}

func NewPool(gdb *gorm.DB, size int, acquireTimeout time.Duration) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		db:             gdb,
		sem:            semaphore.NewWeighted(int64(size)),
		size:           size,
		acquireTimeout: acquireTimeout,
	}
}

// Do runs fn on a connection reserved for the duration of the call.
// The slot and the connection are released however fn returns.
func (p *Pool) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if p == nil || p.db == nil {
		return ErrPoolClosed
	}
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if err := p.acquire(ctx); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return p.db.WithContext(ctx).Connection(fn)
}

func (p *Pool) acquire(ctx context.Context) error {
	if p.acquireTimeout <= 0 {
		return p.sem.Acquire(ctx, 1)
	}
	actx, cancel := context.WithTimeout(ctx, p.acquireTimeout)
	defer cancel()
	if err := p.sem.Acquire(actx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrPoolTimeout
	}
	return nil
}

func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) Ping(ctx context.Context) error {
	return p.Do(ctx, func(tx *gorm.DB) error {
		return tx.Exec("SELECT 1").Error
	})
}

func (p *Pool) Close() error {
	if p == nil || p.db == nil || p.closed.Swap(true) {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
