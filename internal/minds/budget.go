// Package minds implements the collaborative multi-model solver: parallel
// generation, cross-critique, revision, consensus, an optional
// devil's-advocate challenge, and synthesis of the final answer.
package minds

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ExhaustReason says why a budget stopped issuing calls. The cost cap and
// the deadline are separate failure signals downstream: one classifies as
// cost_limit_exceeded, the other as timeout.
type ExhaustReason int

const (
	// ExhaustNone means the budget is still live (or the parent context
	// was cancelled for reasons that are not the budget's).
	ExhaustNone ExhaustReason = iota
	// ExhaustCost means the cost cap was crossed.
	ExhaustCost
	// ExhaustDeadline means the task deadline passed.
	ExhaustDeadline
)

// Budget is the shared cost/time budget threaded through one task. Stages
// check Allow before issuing calls and charge every response's cost; once
// the budget is exhausted the budget's context is cancelled so in-flight
// calls stop instead of running to completion wastefully.
type Budget struct {
	maxCostUSD float64

	mu        sync.Mutex
	spentUSD  float64
	exhausted bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewBudget derives a budgeted context from parent with the given cost cap
// and deadline. A non-positive cost cap means unlimited cost; a
// non-positive timeout means no deadline beyond the parent's.
func NewBudget(parent context.Context, maxCostUSD float64, timeout time.Duration) *Budget {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	return &Budget{maxCostUSD: maxCostUSD, ctx: ctx, cancel: cancel}
}

// Context returns the budget-scoped context passed to every model call.
func (b *Budget) Context() context.Context {
	return b.ctx
}

// Charge records spend. Crossing the cap cancels the budget context.
func (b *Budget) Charge(costUSD float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.spentUSD += costUSD
	if b.maxCostUSD > 0 && b.spentUSD >= b.maxCostUSD && !b.exhausted {
		b.exhausted = true
		b.cancel()
	}
}

// Allow reports whether a stage may issue new calls.
func (b *Budget) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.exhausted {
		return false
	}
	return b.ctx.Err() == nil
}

// Exhausted reports whether the cost cap was hit or the deadline passed.
func (b *Budget) Exhausted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exhausted || b.ctx.Err() != nil
}

// Reason reports why the budget ran out. The cost cap takes precedence when
// both fired; a parent cancellation is nobody's exhaustion and reports
// ExhaustNone.
func (b *Budget) Reason() ExhaustReason {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.exhausted:
		return ExhaustCost
	case errors.Is(b.ctx.Err(), context.DeadlineExceeded):
		return ExhaustDeadline
	default:
		return ExhaustNone
	}
}

// SpentUSD returns the total charged so far.
func (b *Budget) SpentUSD() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.spentUSD
}

// Release frees the budget's context resources.
func (b *Budget) Release() {
	b.cancel()
}
