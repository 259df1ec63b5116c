package facade

import (
	"fmt"

	"context"

	"github.com/desertthunder/tidalctl/internal/shared"
	"github.com/panjf2000/ants/v2"
)

// defaultWorkers bounds the pool when the config does not say otherwise.
const defaultWorkers = 8

// Bridge executes blocking provider calls on a bounded worker pool so a slow
// synchronous network call never blocks concurrent callers.
type Bridge struct {
	pool *ants.Pool
}

// NewBridge creates a Bridge with the given pool size.
func NewBridge(size int) (*Bridge, error) {
	if size <= 0 {
		size = defaultWorkers
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Bridge{pool: pool}, nil
}

// Close releases the worker pool.
func (b *Bridge) Close() {
	b.pool.Release()
}

// Run submits fn to the worker pool and waits for its result.
//
// Errors returned by fn propagate to the caller unchanged in type and
// message. When ctx is cancelled the call returns ctx.Err() immediately; the
// worker finishes in the background and its result is discarded (the result
// channel is buffered so the worker never leaks).
func Run[T any](ctx context.Context, b *Bridge, fn func() (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}

	ch := make(chan outcome, 1)
	if err := b.pool.Submit(func() {
		value, err := fn()
		ch <- outcome{value: value, err: err}
	}); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}

	select {
	case out := <-ch:
		return out.value, out.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
