package semaphoregroup

import (
	"context"
)

// SemaphoreGroup bounds the number of concurrently running tasks.
type SemaphoreGroup struct {
	semaphore chan struct{}
}

// NewSemaphoreGroup creates a new SemaphoreGroup with the specified semaphore limit.
// A limit below one is raised to one.
func NewSemaphoreGroup(limit int) *SemaphoreGroup {
	if limit < 1 {
		limit = 1
	}
	return &SemaphoreGroup{
		semaphore: make(chan struct{}, limit),
	}
}

// Add acquire a slot, blocking until one is free or ctx is done.
func (sg *SemaphoreGroup) Add(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case sg.semaphore <- struct{}{}:
		return nil
	}
}

// Done releases a slot. Must be called after a successful Add.
func (sg *SemaphoreGroup) Done() {
	<-sg.semaphore
}

// InFlight returns the number of held slots.
func (sg *SemaphoreGroup) InFlight() int {
	return len(sg.semaphore)
}

// Limit returns the maximum number of slots.
func (sg *SemaphoreGroup) Limit() int {
	return cap(sg.semaphore)
}
