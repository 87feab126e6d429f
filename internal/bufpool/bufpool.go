// Package bufpool implements named, fixed-size byte-buffer freelists,
// registered in a process-wide registry so operators can introspect
// hit/miss counts per pool.
package bufpool

import (
	"sync"
	"sync/atomic"
)

// Pool is a thread-safe freelist of fixed-size byte buffers.
type Pool struct {
	name        string
	size        int
	free        [][]byte
	mu          sync.Mutex
	acquires    atomic.Uint64
	misses      atomic.Uint64
	releases    atomic.Uint64
}

// registry is the process-wide set of named pools, for introspection (§4.1).
var (
	registryMu sync.Mutex
	registry   = map[string]*Pool{}
)

// New creates a named pool of buffers of exactly size bytes and registers
// it in the process-wide registry. initialCapacity buffers are pre-allocated
// eagerly; Acquire() beyond that allocates on demand and records a miss.
func New(name string, size, initialCapacity int) *Pool {
	p := &Pool{
		name: name,
		size: size,
		free: make([][]byte, 0, initialCapacity),
	}
	for range initialCapacity {
		p.free = append(p.free, make([]byte, size))
	}

	registryMu.Lock()
	registry[name] = p
	registryMu.Unlock()

	return p
}

// Name returns the pool's registered name.
func (p *Pool) Name() string { return p.name }

// Size returns the fixed buffer size this pool hands out.
func (p *Pool) Size() int { return p.size }

// Acquire pops a buffer from the freelist, allocating (and recording a
// miss) if none is available. The returned slice has length == Size().
func (p *Pool) Acquire() []byte {
	p.acquires.Add(1)

	p.mu.Lock()
	n := len(p.free)
	if n == 0 {
		p.mu.Unlock()
		p.misses.Add(1)
		return make([]byte, p.size)
	}
	buf := p.free[n-1]
	p.free = p.free[:n-1]
	p.mu.Unlock()
	return buf
}

// Release pushes buf back onto the freelist unconditionally. A nil buf is
// a no-op. Buffer identity may be reused by a later Acquire — callers must
// treat contents as opaque after Release.
func (p *Pool) Release(buf []byte) {
	if buf == nil {
		return
	}
	p.releases.Add(1)
	p.mu.Lock()
	p.free = append(p.free, buf)
	p.mu.Unlock()
}

// Stats is a point-in-time snapshot of a pool's counters, for diagnostics.
type Stats struct {
	Name     string
	Size     int
	Free     int
	Acquires uint64
	Misses   uint64
	Releases uint64
}

// Stats returns a snapshot of this pool's counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	free := len(p.free)
	p.mu.Unlock()
	return Stats{
		Name:     p.name,
		Size:     p.size,
		Free:     free,
		Acquires: p.acquires.Load(),
		Misses:   p.misses.Load(),
		Releases: p.releases.Load(),
	}
}

// AllStats returns a snapshot of every registered pool, for introspection
// tooling (§4.1's "registered in a process-wide registry").
func AllStats() []Stats {
	registryMu.Lock()
	defer registryMu.Unlock()

	out := make([]Stats, 0, len(registry))
	for _, p := range registry {
		out = append(out, p.Stats())
	}
	return out
}

// Lookup returns a previously registered pool by name, if any.
func Lookup(name string) (*Pool, bool) {
	registryMu.Lock()
	defer registryMu.Unlock()
	p, ok := registry[name]
	return p, ok
}
