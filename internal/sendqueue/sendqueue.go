// Package sendqueue implements the per-connection two-tier outbound gram
// queue: a single buffered gram being filled, and a FIFO of pending full
// grams awaiting the socket. Pages are sourced from a dedicated bufpool so
// steady-state sending is allocation-free.
package sendqueue

import (
	"errors"
	"sync"
)

// ErrCapacityExceeded is returned by Enqueue when accepting more data
// would push total pending bytes past the queue's cap; callers must
// disconnect the peer.
var ErrCapacityExceeded = errors.New("sendqueue: pending capacity exceeded")

// gramPool abstracts the fixed-size page source (satisfied by *bufpool.Pool).
type gramPool interface {
	Acquire() []byte
	Release([]byte)
}

// Gram is one fixed-size outbound page, partially or fully filled.
type Gram struct {
	Buf []byte // length == coalesce size; only Buf[:Len] is valid
	Len int
}

// SendQueue is the per-connection outbound gram queue.
type SendQueue struct {
	mu sync.Mutex

	pool         gramPool
	coalesceSize int
	capacity     int

	buffered     *Gram
	pending      []*Gram
	pendingBytes int
}

// New builds a SendQueue drawing pages from pool, each coalesceSize bytes,
// capping total pending bytes at capacity.
func New(pool gramPool, coalesceSize, capacity int) *SendQueue {
	return &SendQueue{
		pool:         pool,
		coalesceSize: coalesceSize,
		capacity:     capacity,
	}
}

// Enqueue appends buf[off:off+n] into the buffered gram, spilling full
// pages into pending as it fills. Returns ErrCapacityExceeded if doing so
// would push total pending bytes past the cap; the queue is left
// unchanged by a rejected call.
func (q *SendQueue) Enqueue(buf []byte, off, n int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pendingBytes+n > q.capacity {
		return ErrCapacityExceeded
	}

	data := buf[off : off+n]
	for len(data) > 0 {
		if q.buffered == nil {
			q.buffered = &Gram{Buf: q.pool.Acquire()}
		}

		room := len(q.buffered.Buf) - q.buffered.Len
		chunk := len(data)
		if chunk > room {
			chunk = room
		}
		copy(q.buffered.Buf[q.buffered.Len:], data[:chunk])
		q.buffered.Len += chunk
		data = data[chunk:]

		if q.buffered.Len == len(q.buffered.Buf) {
			q.pending = append(q.pending, q.buffered)
			q.pendingBytes += q.buffered.Len
			q.buffered = nil
		}
	}
	return nil
}

// CheckFlushReady promotes the current buffered gram to pending and
// returns it, if and only if no grams are already pending; otherwise
// returns nil without modifying the queue.
func (q *SendQueue) CheckFlushReady() *Gram {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) > 0 || q.buffered == nil || q.buffered.Len == 0 {
		return nil
	}
	g := q.buffered
	q.pending = append(q.pending, g)
	q.pendingBytes += g.Len
	q.buffered = nil
	return g
}

// PeekPending returns the current head of pending without removing or
// releasing it, or nil if pending is empty. Callers use this to obtain the
// first gram to write when CheckFlushReady returns nil because pending was
// already non-empty — e.g. a single Enqueue call that spilled two or more
// full pages at once, so there is data waiting to go out even though
// nothing has been promoted from buffered this round.
func (q *SendQueue) PeekPending() *Gram {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	return q.pending[0]
}

// Dequeue releases the head of pending back to the pool, then returns the
// new head (or nil if pending is now empty). Callers must only call
// Dequeue after the gram returned by CheckFlushReady, PeekPending, or the
// previous Dequeue call has actually been written to the socket — Dequeue
// releases that gram, it does not hand out a fresh one to write first.
func (q *SendQueue) Dequeue() *Gram {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	head := q.pending[0]
	q.pool.Release(head.Buf)
	q.pendingBytes -= head.Len
	q.pending = q.pending[1:]

	if len(q.pending) == 0 {
		return nil
	}
	return q.pending[0]
}

// Clear releases every page — buffered and pending — back to the pool.
func (q *SendQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, g := range q.pending {
		q.pool.Release(g.Buf)
	}
	q.pending = nil
	q.pendingBytes = 0

	if q.buffered != nil {
		q.pool.Release(q.buffered.Buf)
		q.buffered = nil
	}
}

// PendingBytes reports the number of bytes currently queued in pending
// (not counting the in-progress buffered gram), for diagnostics and tests.
func (q *SendQueue) PendingBytes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingBytes
}
