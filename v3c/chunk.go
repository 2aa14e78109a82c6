/*
NAME
  chunk.go

DESCRIPTION
  chunk.go defines the V3C chunk output record and a bounded,
  mutex-protected queue with a semaphore signalling "chunks available",
  per spec.md §3/§4.1. The producer/consumer shape mirrors the
  io.WriteCloser chaining in github.com/ausocean/av/revid/pipeline.go and
  the concurrency-safe ring buffer in
  github.com/ausocean/av/codec/codecutil/lex.go's Noop function.

AUTHORS
  uvgVPCCenc contributors

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package v3c

import (
	"context"
	"fmt"
	"sync"
)

// Chunk is one muxed output record: a V3C sample stream (or a fragment of
// one, in low-delay mode), its total length, and the ordered list of V3C
// unit sizes it contains.
type Chunk struct {
	GOFID     int
	Data      []byte
	UnitSizes []int
}

// Len returns the chunk's payload length.
func (c *Chunk) Len() int { return len(c.Data) }

// CheckInvariant verifies spec.md §3's "V3C unit sizes declared in a
// chunk sum to exactly the chunk payload length", excluding the leading
// sample-stream header byte and V3C unit headers which are not part of
// UnitSizes' accounting (UnitSizes records payload sizes only).
func (c *Chunk) CheckInvariant(overhead int) error {
	sum := overhead
	for _, s := range c.UnitSizes {
		sum += s
	}
	if sum != len(c.Data) {
		return fmt.Errorf("v3c: chunk invariant violated: overhead %d + sum(unit sizes) %d != payload length %d", overhead, sum-overhead, len(c.Data))
	}
	return nil
}

// Queue is a bounded, FIFO, mutex-protected queue of chunks with a
// semaphore (buffered channel) counting chunks available to a consumer.
// Producers Push, the consumer Pop (blocking, or via PopContext to allow
// cancellation).
type Queue struct {
	mu       sync.Mutex
	chunks   []*Chunk
	sem      chan struct{}
	capacity int
}

// NewQueue returns a new Queue bounded to capacity entries; Push blocks
// once capacity is reached.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{sem: make(chan struct{}, capacity), capacity: capacity}
}

// Push appends c to the queue, blocking if the queue is at capacity.
func (q *Queue) Push(c *Chunk) {
	q.sem <- struct{}{} // Blocks if capacity is reached.
	q.mu.Lock()
	q.chunks = append(q.chunks, c)
	q.mu.Unlock()
}

// Pop blocks until a chunk is available, then removes and returns it.
func (q *Queue) Pop() *Chunk {
	<-q.sem
	q.mu.Lock()
	c := q.chunks[0]
	q.chunks = q.chunks[1:]
	q.mu.Unlock()
	return c
}

// PopContext is like Pop but returns ctx.Err() if ctx is cancelled before
// a chunk becomes available.
func (q *Queue) PopContext(ctx context.Context) (*Chunk, error) {
	select {
	case <-q.sem:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	q.mu.Lock()
	c := q.chunks[0]
	q.chunks = q.chunks[1:]
	q.mu.Unlock()
	return c, nil
}

// Len returns the number of chunks currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.chunks)
}
