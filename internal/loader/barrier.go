// Package loader runs a batch of independent named loads concurrently and joins them.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInProgress is returned when Run is called while a batch is still running.
var ErrInProgress = errors.New("load already in progress")

// Task loads one named resource.
type Task func(ctx context.Context) error

// Errors maps failed task names to their errors.
type Errors map[string]error

// Error lists the failed tasks in name order.
func (e Errors) Error() string {
	names := make([]string, 0, len(e))
	for n := range e {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s: %v", n, e[n])
	}
	return strings.Join(parts, "; ")
}

// Barrier runs one batch at a time. A failed task does not cancel its siblings.
type Barrier struct {
	running atomic.Bool
	limit   int
	logger  *zap.Logger
}

// NewBarrier creates a barrier. limit <= 0 means no concurrency limit.
func NewBarrier(limit int, logger *zap.Logger) *Barrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Barrier{limit: limit, logger: logger}
}

// Loading reports whether a batch is running.
func (b *Barrier) Loading() bool { return b.running.Load() }

// Run starts every task and waits for all of them. It returns ErrInProgress without
// starting anything when another batch is running, and an Errors value when any task failed.
func (b *Barrier) Run(ctx context.Context, tasks map[string]Task) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrInProgress
	}
	defer b.running.Store(false)

	var (
		mu   sync.Mutex
		errs = Errors{}
		g    errgroup.Group
	)
	if b.limit > 0 {
		g.SetLimit(b.limit)
	}
	for name, task := range tasks {
		name, task := name, task
		g.Go(func() error {
			if err := task(ctx); err != nil {
				b.logger.Warn("load failed", zap.String("task", name), zap.Error(err))
				mu.Lock()
				errs[name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	if len(errs) > 0 {
		return errs
	}
	return nil
}
