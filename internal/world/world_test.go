package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/udisondev/la2go/internal/bufpool"
	"github.com/udisondev/la2go/internal/entity"
)

func newTestRegistry() *entity.Registry {
	reg := entity.NewRegistry()
	reg.Register(entity.ItemTypeFqn, func(s entity.Serial) entity.Entity { return entity.NewItem(s, 0) })
	reg.Register(entity.MobileTypeFqn, func(s entity.Serial) entity.Entity { return entity.NewMobile(s, 0) })
	return reg
}

func TestAddAndLookupRoundTrip(t *testing.T) {
	reg := newTestRegistry()
	w := New(reg, entity.NewGenerator(1, 1))

	serial := w.Generator().NextMobile()
	m := entity.NewMobile(serial, 1)
	m.SetName("Hero")
	w.AddMobile(m)

	got, ok := w.Mobile(serial)
	require.True(t, ok)
	assert.Equal(t, "Hero", got.Name())
}

func TestMutationsDuringSaveFunnelIntoSafetyQueues(t *testing.T) {
	reg := newTestRegistry()
	w := New(reg, entity.NewGenerator(1, 1))

	existing := entity.NewMobile(w.Generator().NextMobile(), 1)
	w.AddMobile(existing)

	_ = w.BeginSave()

	// A delete arriving mid-save must not touch the live map yet.
	w.Delete(existing)
	_, stillThere := w.Mobile(existing.Serial())
	assert.True(t, stillThere)

	// An add arriving mid-save must not appear in the live map yet either.
	fresh := entity.NewMobile(w.Generator().NextMobile(), 1)
	w.AddMobile(fresh)
	_, notYet := w.Mobile(fresh.Serial())
	assert.False(t, notYet)

	w.EndSave()

	_, deletedNow := w.Mobile(existing.Serial())
	assert.False(t, deletedNow)
	_, addedNow := w.Mobile(fresh.Serial())
	assert.True(t, addedNow)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	reg := newTestRegistry()
	w := New(reg, entity.NewGenerator(1, 1))

	mobileTypeRef, _ := reg.TypeRefFor(entity.MobileTypeFqn)
	itemTypeRef, _ := reg.TypeRefFor(entity.ItemTypeFqn)

	m := entity.NewMobile(w.Generator().NextMobile(), mobileTypeRef)
	m.SetName("Britannian")
	m.SetBody(400)
	w.AddMobile(m)

	it := entity.NewItem(w.Generator().NextItem(), itemTypeRef)
	it.SetAmount(3)
	it.SetHue(99)
	w.AddItem(it)

	dir := t.TempDir()
	pool := bufpool.New("world-test-triplet", 4096, 4)

	snap := w.BeginSave()
	require.NoError(t, WriteTriplet(dir, "Mobiles", pool, 4096, 0, reg, MobilesToEntities(snap.Mobiles)))
	require.NoError(t, WriteTriplet(dir, "Items", pool, 4096, 0, reg, ItemsToEntities(snap.Items)))
	require.NoError(t, WriteGuildTriplet(dir, pool, 4096, 0, GuildsToEntities(snap.Guilds)))
	w.EndSave()

	loaded := New(reg, entity.NewGenerator(1, 1))
	require.NoError(t, loaded.Load(dir))

	gotMobile, ok := loaded.Mobile(m.Serial())
	require.True(t, ok)
	assert.Equal(t, "Britannian", gotMobile.Name())
	assert.Equal(t, uint16(400), gotMobile.Body())

	gotItem, ok := loaded.Item(it.Serial())
	require.True(t, ok)
	assert.Equal(t, uint16(3), gotItem.Amount())
	assert.Equal(t, uint16(99), gotItem.Hue())
}
