/*
NAME
  job.go

DESCRIPTION
  job.go defines the Job type of spec.md §4.1: a named, prioritized unit
  of work with an atomic dependency counter, a list of reverse
  dependencies to wake on completion, and a state machine
  {Paused,Waiting,Ready,Running,Done}. Each job owns a mutex guarding its
  own state, dep counter and reverse-dependency list, mirroring the
  per-connection mutex pattern in
  github.com/ausocean/av/protocol/rtmp.Conn rather than a single global
  lock over all jobs.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package scheduler implements the pipelined job DAG scheduler of
// spec.md §4.1: a fixed-size worker pool executing jobs with arbitrary
// fan-in dependencies, per-job priority, and a bounded in-flight frame
// semaphore.
package scheduler

import "sync"

// State is a Job's position in its lifecycle.
type State int

const (
	Paused State = iota
	Waiting
	Ready
	Running
	Done
)

func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case Waiting:
		return "waiting"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Number of priority levels, per spec.md §4.1.
const NumPriorities = 6

// Job is a single unit of scheduled work.
type Job struct {
	Name     string
	Priority int // 0..NumPriorities-1; higher runs first.
	fn       func() error

	mu          sync.Mutex
	state       State
	depCount    int
	reverseDeps []*Job

	done chan struct{} // Closed once the job's callable has returned.
	err  error
}

// NewJob returns a new, Paused job wrapping fn. Priority is clamped to
// [0, NumPriorities-1].
func NewJob(name string, priority int, fn func() error) *Job {
	if priority < 0 {
		priority = 0
	}
	if priority >= NumPriorities {
		priority = NumPriorities - 1
	}
	return &Job{Name: name, Priority: priority, fn: fn, state: Paused, done: make(chan struct{})}
}

// State returns the job's current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// AddDependency registers that j cannot run until other has completed.
// If other has already completed, this is a no-op (spec.md §4.1:
// "while other is not yet complete"). Must be called before j is
// submitted.
func (j *Job) AddDependency(other *Job) {
	other.mu.Lock()
	alreadyDone := other.state == Done
	if !alreadyDone {
		other.reverseDeps = append(other.reverseDeps, j)
	}
	other.mu.Unlock()
	if alreadyDone {
		return
	}

	j.mu.Lock()
	j.depCount++
	j.mu.Unlock()
}

// Wait blocks until j has completed and returns its callable's error, if
// any.
func (j *Job) Wait() error {
	<-j.done
	return j.err
}

// Err returns j's completion error. Only meaningful after Wait returns or
// j's done channel is otherwise known to be closed.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// markRunning transitions j to Running. The caller (the Scheduler) must
// hold no locks on j when the callable itself runs.
func (j *Job) markRunning() {
	j.mu.Lock()
	j.state = Running
	j.mu.Unlock()
}

// markDone records j's callable's outcome, transitions it to Done, and
// returns the reverse-dependency list to notify (it is cleared from j so
// it is only ever processed once).
func (j *Job) markDone(err error) []*Job {
	j.mu.Lock()
	j.state = Done
	j.err = err
	deps := j.reverseDeps
	j.reverseDeps = nil
	j.mu.Unlock()
	close(j.done)
	return deps
}

// decrementDep decrements j's dependency counter and reports whether j
// transitioned Waiting→Ready as a result.
func (j *Job) decrementDep() (becameReady bool) {
	j.mu.Lock()
	j.depCount--
	if j.depCount <= 0 && j.state == Waiting {
		j.state = Ready
		becameReady = true
	}
	j.mu.Unlock()
	return becameReady
}
