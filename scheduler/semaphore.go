/*
NAME
  semaphore.go

DESCRIPTION
  semaphore.go provides the bounded in-flight-frame semaphore of
  spec.md §4.1/§5 (`maxConcurrentFrames`), a thin wrapper over a buffered
  channel, the same counting-semaphore idiom used by
  github.com/ausocean/uvgvpccenc/v3c.Queue for its chunk backlog.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package scheduler

import "context"

// Semaphore bounds the number of concurrently in-flight frames.
type Semaphore struct {
	slots chan struct{}
}

// NewSemaphore returns a Semaphore allowing up to n concurrent holders.
// n <= 0 is treated as unbounded (the check in §4.9 is skipped).
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		return &Semaphore{}
	}
	return &Semaphore{slots: make(chan struct{}, n)}
}

// Acquire blocks until a slot is available.
func (s *Semaphore) Acquire() {
	if s.slots == nil {
		return
	}
	s.slots <- struct{}{}
}

// AcquireContext is like Acquire but returns ctx.Err() if ctx is done
// first.
func (s *Semaphore) AcquireContext(ctx context.Context) error {
	if s.slots == nil {
		return nil
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees one slot acquired by a prior Acquire/AcquireContext.
func (s *Semaphore) Release() {
	if s.slots == nil {
		return
	}
	<-s.slots
}
