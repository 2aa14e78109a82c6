/*
NAME
  scheduler_test.go

DESCRIPTION
  scheduler_test.go checks the scheduler's ordering, failure propagation
  and bounded-concurrency guarantees of spec.md §4.1/§5.

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
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDependencyOrderingIsRespected(t *testing.T) {
	s := New(4)
	s.Start()
	defer s.Stop()

	var mu sync.Mutex
	var order []string
	record := func(name string) func() error {
		return func() error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	a := NewJob("a", 0, record("a"))
	b := NewJob("b", 0, record("b"))
	c := NewJob("c", 0, record("c"))
	b.AddDependency(a)
	c.AddDependency(b)

	s.Submit(c)
	s.Submit(b)
	s.Submit(a)

	if err := c.Wait(); err != nil {
		t.Fatalf("c.Wait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("got order %v, want [a b c]", order)
	}
}

func TestFailureDoesNotReleaseDependents(t *testing.T) {
	s := New(2)
	s.Start()
	defer s.Stop()

	wantErr := errors.New("boom")
	ran := false
	a := NewJob("a", 0, func() error { return wantErr })
	b := NewJob("b", 0, func() error { ran = true; return nil })
	b.AddDependency(a)

	s.Submit(b)
	s.Submit(a)

	if err := a.Wait(); !errors.Is(err, wantErr) {
		t.Fatalf("a.Wait: got %v, want %v", err, wantErr)
	}

	time.Sleep(20 * time.Millisecond)
	if ran {
		t.Fatal("dependent job ran despite its dependency failing")
	}
	if b.State() != Waiting {
		t.Fatalf("b.State() = %v, want Waiting", b.State())
	}
}

func TestHigherPriorityRunsFirstAmongReadyJobs(t *testing.T) {
	s := New(1) // Single worker: ready jobs queue up and priority order is observable.
	var mu sync.Mutex
	var order []int
	block := make(chan struct{})

	blocker := NewJob("blocker", 0, func() error { <-block; return nil })
	low := NewJob("low", 1, func() error { mu.Lock(); order = append(order, 1); mu.Unlock(); return nil })
	high := NewJob("high", 5, func() error { mu.Lock(); order = append(order, 5); mu.Unlock(); return nil })

	s.Start()
	defer s.Stop()

	s.Submit(blocker)
	time.Sleep(10 * time.Millisecond) // Let the worker pick up blocker and stall on it.
	s.Submit(low)
	s.Submit(high)
	close(block)

	if err := high.Wait(); err != nil {
		t.Fatalf("high.Wait: %v", err)
	}
	if err := low.Wait(); err != nil {
		t.Fatalf("low.Wait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 || order[0] != 5 || order[1] != 1 {
		t.Fatalf("got run order %v, want [5 1]", order)
	}
}

func TestSynchronousModeRunsInPlace(t *testing.T) {
	s := New(0)
	ran := false
	j := NewJob("only", 0, func() error { ran = true; return nil })
	s.Submit(j)
	if !ran {
		t.Fatal("job did not run synchronously")
	}
	if err := j.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestSynchronousModeReleasesDependents(t *testing.T) {
	s := New(0)
	var order []string
	a := NewJob("a", 0, func() error { order = append(order, "a"); return nil })
	b := NewJob("b", 0, func() error { order = append(order, "b"); return nil })
	b.AddDependency(a)

	s.Submit(b) // b is Waiting; submitted before its dependency completes.
	s.Submit(a) // a runs immediately and releases b.

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("got order %v, want [a b]", order)
	}
}

func TestSemaphoreBoundsConcurrency(t *testing.T) {
	sem := NewSemaphore(2)
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem.Acquire()
			defer sem.Release()
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxInFlight > 2 {
		t.Fatalf("observed %d concurrent holders, want <= 2", maxInFlight)
	}
}
