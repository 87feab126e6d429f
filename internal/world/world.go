package world

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/netio"
)

// World holds the two entity maps and the guilds map, plus the safety
// queues that absorb mutations happening concurrently with a save.
type World struct {
	registry *entity.Registry
	gen      *entity.Generator

	mu      sync.RWMutex
	mobiles map[entity.Serial]*entity.Mobile
	items   map[entity.Serial]*entity.Item
	guilds  map[entity.GuildID]*entity.Guild

	saving      atomic.Bool
	queueMu     sync.Mutex
	addQueue    []any // *entity.Mobile | *entity.Item | *entity.Guild
	deleteQueue []any
}

// New builds an empty World bound to registry (for type reconstruction
// on load) and gen (for assigning fresh Serials to gameplay-created
// entities).
func New(registry *entity.Registry, gen *entity.Generator) *World {
	return &World{
		registry: registry,
		gen:      gen,
		mobiles:  make(map[entity.Serial]*entity.Mobile),
		items:    make(map[entity.Serial]*entity.Item),
		guilds:   make(map[entity.GuildID]*entity.Guild),
	}
}

// AddMobile inserts m, or defers the insert to the add queue if a save
// is in progress.
func (w *World) AddMobile(m *entity.Mobile) {
	if w.saving.Load() {
		w.queueMu.Lock()
		w.addQueue = append(w.addQueue, m)
		w.queueMu.Unlock()
		return
	}
	w.mu.Lock()
	w.mobiles[m.Serial()] = m
	w.mu.Unlock()
}

// AddItem inserts it, deferring during a save.
func (w *World) AddItem(it *entity.Item) {
	if w.saving.Load() {
		w.queueMu.Lock()
		w.addQueue = append(w.addQueue, it)
		w.queueMu.Unlock()
		return
	}
	w.mu.Lock()
	w.items[it.Serial()] = it
	w.mu.Unlock()
}

// AddGuild inserts g, deferring during a save.
func (w *World) AddGuild(g *entity.Guild) {
	if w.saving.Load() {
		w.queueMu.Lock()
		w.addQueue = append(w.addQueue, g)
		w.queueMu.Unlock()
		return
	}
	w.mu.Lock()
	w.guilds[g.ID()] = g
	w.mu.Unlock()
}

// Delete removes e from its registry, or defers the removal to the
// delete queue if a save is in progress.
func (w *World) Delete(e entity.Entity) {
	if w.saving.Load() {
		w.queueMu.Lock()
		w.deleteQueue = append(w.deleteQueue, e)
		w.queueMu.Unlock()
		return
	}
	w.removeNow(e)
}

func (w *World) removeNow(e entity.Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch v := e.(type) {
	case *entity.Mobile:
		delete(w.mobiles, v.Serial())
	case *entity.Item:
		delete(w.items, v.Serial())
	case *entity.Guild:
		delete(w.guilds, v.ID())
	}
}

// Mobile looks up a live mobile by Serial.
func (w *World) Mobile(s entity.Serial) (*entity.Mobile, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	m, ok := w.mobiles[s]
	return m, ok
}

// Item looks up a live item by Serial.
func (w *World) Item(s entity.Serial) (*entity.Item, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	it, ok := w.items[s]
	return it, ok
}

// Guild looks up a live guild by id.
func (w *World) Guild(id entity.GuildID) (*entity.Guild, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	g, ok := w.guilds[id]
	return g, ok
}

// Counts returns the current registry sizes, for diagnostics and tests.
func (w *World) Counts() (mobiles, items, guilds int) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.mobiles), len(w.items), len(w.guilds)
}

// Snapshot is the point-in-time view a SaveStrategy serializes from —
// taken under the read lock so steady-state lookups never block on it
// longer than a slice copy.
type Snapshot struct {
	Mobiles []*entity.Mobile
	Items   []*entity.Item
	Guilds  []*entity.Guild
}

// BeginSave flips the saving flag (funnelling concurrent mutations into
// the safety queues) and returns a stable snapshot of every live entity.
func (w *World) BeginSave() Snapshot {
	w.saving.Store(true)
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := Snapshot{
		Mobiles: make([]*entity.Mobile, 0, len(w.mobiles)),
		Items:   make([]*entity.Item, 0, len(w.items)),
		Guilds:  make([]*entity.Guild, 0, len(w.guilds)),
	}
	for _, m := range w.mobiles {
		snap.Mobiles = append(snap.Mobiles, m)
	}
	for _, it := range w.items {
		snap.Items = append(snap.Items, it)
	}
	for _, g := range w.guilds {
		snap.Guilds = append(snap.Guilds, g)
	}
	return snap
}

// EndSave clears the saving flag and drains the safety queues, applying
// every deferred add/delete that accumulated during the save.
func (w *World) EndSave() {
	w.saving.Store(false)

	w.queueMu.Lock()
	adds := w.addQueue
	deletes := w.deleteQueue
	w.addQueue = nil
	w.deleteQueue = nil
	w.queueMu.Unlock()

	for _, e := range adds {
		switch v := e.(type) {
		case *entity.Mobile:
			w.AddMobile(v)
		case *entity.Item:
			w.AddItem(v)
		case *entity.Guild:
			w.AddGuild(v)
		}
	}
	for _, e := range deletes {
		if ent, ok := e.(entity.Entity); ok {
			w.removeNow(ent)
		}
	}
}

// Registry exposes the type-reconstruction registry, for load.
func (w *World) Registry() *entity.Registry { return w.registry }

// Generator exposes the Serial generator, for gameplay-created entities.
func (w *World) Generator() *entity.Generator { return w.gen }

// Load reads the Mobiles/Items/Guilds triplets from dir in the strict
// order required (index, then type database, then body), instantiating
// each record via the registry's constructor-from-Serial and verifying
// the post-deserialize cursor invariant.
func (w *World) Load(dir string) error {
	mobileRecords, mobileFqns, mobileBody, err := w.loadTriplet(dir, "Mobiles", true)
	if err != nil {
		return err
	}
	itemRecords, itemFqns, itemBody, err := w.loadTriplet(dir, "Items", true)
	if err != nil {
		return err
	}
	guildRecords, _, guildBody, err := w.loadTriplet(dir, "Guilds", false)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, rec := range mobileRecords {
		fqn := mobileFqns[rec.typeID]
		typeRef, ok := w.registry.TypeRefFor(fqn)
		if !ok {
			return fmt.Errorf("world: no constructor registered for mobile type %q (serial 0x%08X)", fqn, rec.serial)
		}
		e, err := w.registry.New(typeRef, entity.Serial(rec.serial))
		if err != nil {
			return err
		}
		m := e.(*entity.Mobile)
		if err := deserializeAt(m, mobileBody, rec); err != nil {
			return err
		}
		w.mobiles[m.Serial()] = m
		w.gen.Observe(m.Serial())
	}

	for _, rec := range itemRecords {
		fqn := itemFqns[rec.typeID]
		typeRef, ok := w.registry.TypeRefFor(fqn)
		if !ok {
			return fmt.Errorf("world: no constructor registered for item type %q (serial 0x%08X)", fqn, rec.serial)
		}
		e, err := w.registry.New(typeRef, entity.Serial(rec.serial))
		if err != nil {
			return err
		}
		it := e.(*entity.Item)
		if err := deserializeAt(it, itemBody, rec); err != nil {
			return err
		}
		w.items[it.Serial()] = it
		w.gen.Observe(it.Serial())
	}

	for _, rec := range guildRecords {
		g := entity.NewGuild(entity.GuildID(rec.serial), 0)
		if err := deserializeAt(g, guildBody, rec); err != nil {
			return err
		}
		w.guilds[g.ID()] = g
	}

	return nil
}

// loadTriplet reads dir/<name>.idx (and, if withTypes, dir/<name>.tdb)
// plus dir/<name>.bin, returning the parsed records, the dense
// typeId→FQN table (nil if withTypes is false), and the raw body bytes.
func (w *World) loadTriplet(dir, name string, withTypes bool) ([]indexRecord, []string, []byte, error) {
	records, err := readIndexFile(dir + "/" + name + ".idx")
	if err != nil {
		return nil, nil, nil, err
	}

	var fqns []string
	if withTypes {
		fqns, err = readTypeDB(dir + "/" + name + ".tdb")
		if err != nil {
			return nil, nil, nil, err
		}
	}

	body, err := os.ReadFile(dir + "/" + name + ".bin")
	if err != nil {
		return nil, nil, nil, fmt.Errorf("world: reading body %s.bin: %w", name, err)
	}
	return records, fqns, body, nil
}

// deserializeAt seeks into body at rec.position and deserializes e,
// verifying the reader ends exactly at position+length.
func deserializeAt(e entity.Entity, body []byte, rec indexRecord) error {
	end := rec.position + int64(rec.length)
	if rec.position < 0 || end > int64(len(body)) {
		return fmt.Errorf("entity %s: record range [%d,%d) exceeds body length %d", e.Serial(), rec.position, end, len(body))
	}

	r := netio.NewReader(body[rec.position:end])
	if err := e.Deserialize(r); err != nil {
		return err
	}
	if int64(r.Position()) != int64(rec.length) {
		return fmt.Errorf("entity %s: post-deserialize cursor %d does not match record length %d",
			e.Serial(), r.Position(), rec.length)
	}
	return nil
}
