// Package authwindow implements the bounded LRU-by-age window of
// server-issued auth ids used to validate the GameLogin handoff from the
// login server to the game server.
//
// A naive lookup as three separate steps — contains, read, remove —
// implemented with separate locked calls, races: two goroutines could
// both observe "contains" true and both consume the same auth id, or a
// GameLogin could race an eviction sweep. This implementation instead
// exposes a single TakeIfPresent that checks and removes atomically
// under one lock, closing that race (see DESIGN.md).
package authwindow

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/udisondev/la2go/internal/constants"
)

// Entry is what a window slot remembers about an issued auth id.
type Entry struct {
	IssuedAt      time.Time
	ClientVersion constants.ProtocolVersion
}

// Window is a fixed-capacity, insertion-ordered set of live auth ids.
// Inserting past capacity evicts the oldest entry by issuedAt.
type Window struct {
	mu       sync.Mutex
	capacity int
	order    []uint32 // oldest first
	entries  map[uint32]Entry
}

// New builds a Window holding at most capacity entries.
func New(capacity int) *Window {
	return &Window{
		capacity: capacity,
		entries:  make(map[uint32]Entry, capacity),
	}
}

// Issue generates a fresh, currently-unused auth id, records it with the
// given client version and the current time, evicting the oldest entry
// first if the window is full, and returns it.
func (w *Window) Issue(version constants.ProtocolVersion) uint32 {
	w.mu.Lock()
	defer w.mu.Unlock()

	var id uint32
	for {
		id = rand.Uint32()
		if id == 0 {
			continue
		}
		if _, exists := w.entries[id]; !exists {
			break
		}
	}

	if len(w.order) >= w.capacity {
		oldest := w.order[0]
		w.order = w.order[1:]
		delete(w.entries, oldest)
	}

	w.entries[id] = Entry{IssuedAt: time.Now(), ClientVersion: version}
	w.order = append(w.order, id)
	return id
}

// TakeIfPresent atomically checks for authId and, if present, removes it
// and returns its Entry. A GameLogin handoff consumes its auth id exactly
// once; a second presentation of the same id (replay, or a racing
// goroutine) correctly misses.
func (w *Window) TakeIfPresent(authId uint32) (Entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entries[authId]
	if !ok {
		return Entry{}, false
	}
	delete(w.entries, authId)
	for i, id := range w.order {
		if id == authId {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return e, true
}

// Len reports the number of live entries, for tests/diagnostics.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.order)
}
