package core

import (
	"errors"
	"fmt"
	"sync"
)

// ErrModelLimitExceeded is returned once a run used up its model call budget.
var ErrModelLimitExceeded = errors.New("model call limit exceeded")

// ModelLimiter enforces a maximum number of allowed model calls per run.
// It is shared by all branches of a run.
type ModelLimiter struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewModelLimiter creates a new limiter with a max number of calls.
// If max == 0, unlimited calls are allowed.
func NewModelLimiter(max int) *ModelLimiter {
	return &ModelLimiter{max: max}
}

// Acquire reserves one model call. Calls beyond the budget fail with
// ErrModelLimitExceeded and are not counted. A nil limiter allows everything.
func (ml *ModelLimiter) Acquire() error {
	if ml == nil {
		return nil
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.max > 0 && ml.count >= ml.max {
		return fmt.Errorf("%w: %d", ErrModelLimitExceeded, ml.max)
	}

	ml.count++

	return nil
}

// Count returns the current number of calls made.
func (ml *ModelLimiter) Count() int {
	if ml == nil {
		return 0
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	return ml.count
}

// Remaining returns how many calls are left before hitting the limit.
func (ml *ModelLimiter) Remaining() int {
	if ml == nil {
		return -1
	}

	ml.mu.Lock()
	defer ml.mu.Unlock()

	if ml.max == 0 {
		return -1 // unlimited
	}

	return ml.max - ml.count
}
