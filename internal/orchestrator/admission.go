package orchestrator

import (
	"context"
	"time"
)

// admit reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (o *Orchestrator) admit(ctx context.Context, jobID string) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(o.maxWait)
	defer timer.Stop()
	select {
	case o.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{jobID: jobID}
	}

	// Wait to acquire the single in-flight slot
	acquired := false
	defer func() {
		if !acquired {
			<-o.queueCh
		}
	}()
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(o.maxWait)
	defer timer2.Stop()
	select {
	case o.genCh <- struct{}{}:
		acquired = true
		return func() { <-o.genCh; <-o.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		return func() {}, tooBusyError{jobID: jobID}
	}
}

// queued reports jobs holding a queue slot but not the in-flight slot.
func (o *Orchestrator) queued() int {
	n := len(o.queueCh) - len(o.genCh)
	if n < 0 {
		return 0
	}
	return n
}
