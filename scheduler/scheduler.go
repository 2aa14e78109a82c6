/*
NAME
  scheduler.go

DESCRIPTION
  scheduler.go implements the priority deque and fixed-size worker pool
  of spec.md §4.1/§5: six FIFO-within-priority queues guarded by one
  mutex/condvar pair, workers that drop the queue lock before running a
  job's callable, and synchronous (zero-worker) execution for tests and
  single-threaded callers. The condvar-guarded deque mirrors
  github.com/ausocean/av/revid's single err channel fanning work out to
  a fixed set of goroutines, generalised here to a priority-ordered,
  multi-producer/multi-consumer queue.

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

import (
	"sync"
	"time"

	"github.com/ausocean/utils/logging"
)

// Scheduler runs a DAG of Jobs over a fixed-size worker pool, or
// synchronously (in-place) when started with zero workers.
type Scheduler struct {
	queueMu sync.Mutex
	cond    *sync.Cond
	queues  [NumPriorities][]*Job
	stop    bool

	numWorkers int
	wg         sync.WaitGroup

	timerLog bool
	logger   logging.Logger
}

// New returns a Scheduler. numWorkers == 0 selects synchronous mode: Submit
// runs a dependency-free job in-place and recursively runs any
// dependents it releases.
func New(numWorkers int) *Scheduler {
	s := &Scheduler{numWorkers: numWorkers}
	s.cond = sync.NewCond(&s.queueMu)
	return s
}

// EnableTimerLog turns on per-job execution-time logging, grounded on
// the original encoder's timerLog parameter (c.f.
// _examples/original_source/src/lib/uvgvpcc.cpp's
// Job::setExecutionMethod(p_->timerLog)): every job logs its own wall
// time at Debug level once its callable returns.
func (s *Scheduler) EnableTimerLog(logger logging.Logger) {
	s.timerLog = true
	s.logger = logger
}

// runJob executes j's callable, logging its wall-clock duration when
// timer logging is enabled.
func (s *Scheduler) runJob(j *Job) error {
	if !s.timerLog || s.logger == nil {
		return j.fn()
	}
	start := time.Now()
	err := j.fn()
	s.logger.Debug("job finished", "name", j.Name, "priority", j.Priority, "elapsed", time.Since(start).String())
	return err
}

// Start spawns the worker goroutines. A no-op in synchronous mode.
func (s *Scheduler) Start() {
	for i := 0; i < s.numWorkers; i++ {
		s.wg.Add(1)
		go s.workerLoop()
	}
}

// Stop signals all workers to exit once the queues drain and waits for
// them to do so. A no-op in synchronous mode.
func (s *Scheduler) Stop() {
	if s.numWorkers == 0 {
		return
	}
	s.queueMu.Lock()
	s.stop = true
	s.queueMu.Unlock()
	s.cond.Broadcast()
	s.wg.Wait()
}

// Submit makes j eligible to run per spec.md §4.1: if it has no
// outstanding dependencies it is pushed Ready at its priority (or, in
// synchronous mode, run immediately); otherwise it becomes Waiting and
// will be released by its last dependency's completion.
func (s *Scheduler) Submit(j *Job) {
	if s.numWorkers == 0 {
		s.submitSync(j)
		return
	}

	s.queueMu.Lock()
	j.mu.Lock()
	if j.depCount <= 0 {
		j.state = Ready
		j.mu.Unlock()
		s.push(j)
		s.queueMu.Unlock()
		s.cond.Signal()
		return
	}
	j.state = Waiting
	j.mu.Unlock()
	s.queueMu.Unlock()
}

// submitSync runs j (and, transitively, any dependent it releases)
// in-place on the calling goroutine.
func (s *Scheduler) submitSync(j *Job) {
	j.mu.Lock()
	ready := j.depCount <= 0
	if ready {
		j.state = Ready
	} else {
		j.state = Waiting
	}
	j.mu.Unlock()
	if !ready {
		return
	}
	s.runAndRelease(j)
}

// runAndRelease executes j and, for synchronous mode, recursively runs
// every reverse-dependency it releases (there is no worker pool to hand
// them to).
func (s *Scheduler) runAndRelease(j *Job) {
	j.markRunning()
	err := s.runJob(j)
	deps := j.markDone(err)
	if err != nil {
		return
	}
	for _, rd := range deps {
		if rd.decrementDep() {
			s.runAndRelease(rd)
		}
	}
}

// push appends j to its priority's queue. Caller must hold queueMu.
func (s *Scheduler) push(j *Job) {
	s.queues[j.Priority] = append(s.queues[j.Priority], j)
}

// popHighest removes and returns the job at the front of the
// highest-priority non-empty queue, or nil if all are empty. Caller must
// hold queueMu.
func (s *Scheduler) popHighest() *Job {
	for p := NumPriorities - 1; p >= 0; p-- {
		q := s.queues[p]
		if len(q) == 0 {
			continue
		}
		j := q[0]
		s.queues[p] = q[1:]
		return j
	}
	return nil
}

func (s *Scheduler) allEmpty() bool {
	for _, q := range s.queues {
		if len(q) > 0 {
			return false
		}
	}
	return true
}

func (s *Scheduler) workerLoop() {
	defer s.wg.Done()
	for {
		s.queueMu.Lock()
		for s.allEmpty() && !s.stop {
			s.cond.Wait()
		}
		if s.allEmpty() && s.stop {
			s.queueMu.Unlock()
			return
		}
		j := s.popHighest()
		s.queueMu.Unlock()
		if j == nil {
			continue
		}

		j.markRunning()
		err := s.runJob(j)
		deps := j.markDone(err)
		if err != nil {
			continue
		}

		var toRelease []*Job
		for _, rd := range deps {
			if rd.decrementDep() {
				toRelease = append(toRelease, rd)
			}
		}
		if len(toRelease) == 0 {
			continue
		}
		s.queueMu.Lock()
		for _, rd := range toRelease {
			s.push(rd)
		}
		s.queueMu.Unlock()
		s.cond.Broadcast()
	}
}
