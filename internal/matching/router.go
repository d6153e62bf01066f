package matching

import (
	"context"
	"fmt"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/trading/types"
)

// SymbolRouter dispatches order submissions onto one bounded goroutine
// pool shared by every symbol; submissions are not partitioned by symbol.
// The pool bounds how many submissions are in flight at once; Engine's own
// mutex remains the actual serialization point, since the reference model
// assumes a single mutator across symbols.
type SymbolRouter struct {
	engine *Engine
	pool   *ants.Pool
	logger *zap.Logger
}

// NewSymbolRouter wraps engine with a pool capped at maxWorkers concurrent
// submissions.
func NewSymbolRouter(engine *Engine, maxWorkers int, logger *zap.Logger) (*SymbolRouter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pool, err := ants.NewPool(maxWorkers, ants.WithNonblocking(false))
	if err != nil {
		return nil, fmt.Errorf("creating symbol router pool: %w", err)
	}
	return &SymbolRouter{engine: engine, pool: pool, logger: logger}, nil
}

// Submit routes o through the worker pool and blocks until it has been
// admitted or rejected, or ctx is done first.
func (r *SymbolRouter) Submit(ctx context.Context, o *types.Order) error {
	done := make(chan error, 1)
	err := r.pool.Submit(func() {
		done <- r.engine.SubmitOrder(o)
	})
	if err != nil {
		return fmt.Errorf("scheduling order %s: %w", o.ID, err)
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the underlying worker pool.
func (r *SymbolRouter) Release() {
	r.pool.Release()
}
