package entity

import (
	"fmt"
	"sync"
)

// Factory constructs a fresh, empty instance of one concrete entity type
// bound to serial, ready for Deserialize to populate.
type Factory func(serial Serial) Entity

// Registry resolves explicit registration of (typeFqn, Factory) pairs at
// startup instead of reflective name→constructor lookup. The on-disk
// .tdb stores the FQN string; TypeRef is a dense index assigned the
// first time a FQN is registered, stable for the lifetime of the process
// (and, by construction, across saves since registration order is fixed
// at program startup).
type Registry struct {
	mu    sync.RWMutex
	byFqn map[string]int32
	byRef []registeredType
}

type registeredType struct {
	fqn     string
	factory Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byFqn: map[string]int32{}}
}

// Register assigns fqn the next dense typeRef and associates factory
// with it. Calling Register twice for the same fqn is a programming
// error (panics) — registration happens once, at startup.
func (r *Registry) Register(fqn string, factory Factory) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byFqn[fqn]; exists {
		panic(fmt.Sprintf("entity: %q already registered", fqn))
	}
	ref := int32(len(r.byRef))
	r.byRef = append(r.byRef, registeredType{fqn: fqn, factory: factory})
	r.byFqn[fqn] = ref
	return ref
}

// TypeRefFor looks up the dense typeRef for an already-registered FQN.
func (r *Registry) TypeRefFor(fqn string) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.byFqn[fqn]
	return ref, ok
}

// FqnFor reverses TypeRefFor, for writing the .tdb during save.
func (r *Registry) FqnFor(typeRef int32) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if typeRef < 0 || int(typeRef) >= len(r.byRef) {
		return "", false
	}
	return r.byRef[typeRef].fqn, true
}

// New constructs a fresh entity for the given typeRef and serial, as read
// from an index record during load. Returns an error naming the offending
// typeRef if it wasn't registered, leaving the caller to prompt or abort
// per operator policy.
func (r *Registry) New(typeRef int32, serial Serial) (Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if typeRef < 0 || int(typeRef) >= len(r.byRef) {
		return nil, fmt.Errorf("entity: no constructor registered for typeRef %d (serial %s)", typeRef, serial)
	}
	return r.byRef[typeRef].factory(serial), nil
}
