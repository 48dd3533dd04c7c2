package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/bloomwatch/backend/internal/domain"
)

// Gate bounds how many remote jobs run at once. Callers that find it full
// are turned away immediately instead of waiting.
type Gate struct {
	sem   *semaphore.Weighted
	limit int64
}

// NewGate creates a gate admitting at most limit concurrent calls
func NewGate(limit int64) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{sem: semaphore.NewWeighted(limit), limit: limit}
}

// Limit returns the number of slots
func (g *Gate) Limit() int64 {
	return g.limit
}

// Do runs fn in a slot, or returns domain.ErrGateBusy when none is free.
// The slot is released on every exit path; a panic in fn becomes an error.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if !g.sem.TryAcquire(1) {
		return domain.ErrGateBusy
	}
	defer g.sem.Release(1)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("gate: call panicked: %v", r)
		}
	}()

	return fn(ctx)
}
