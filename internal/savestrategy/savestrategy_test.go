package savestrategy

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/la2go/internal/bufpool"
	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/world"
)

func testRegistry() *entity.Registry {
	reg := entity.NewRegistry()
	reg.Register(entity.ItemTypeFqn, func(s entity.Serial) entity.Entity { return entity.NewItem(s, 0) })
	reg.Register(entity.MobileTypeFqn, func(s entity.Serial) entity.Entity { return entity.NewMobile(s, 0) })
	return reg
}

func buildSnapshot(reg *entity.Registry, n int) (world.Snapshot, *entity.Generator) {
	gen := entity.NewGenerator(1, 1)
	mobileTypeRef, _ := reg.TypeRefFor(entity.MobileTypeFqn)
	itemTypeRef, _ := reg.TypeRefFor(entity.ItemTypeFqn)

	var snap world.Snapshot
	for i := 0; i < n; i++ {
		m := entity.NewMobile(gen.NextMobile(), mobileTypeRef)
		m.SetName("Mob")
		m.SetBody(uint16(100 + i))
		snap.Mobiles = append(snap.Mobiles, m)

		it := entity.NewItem(gen.NextItem(), itemTypeRef)
		it.SetAmount(uint16(i + 1))
		snap.Items = append(snap.Items, it)
	}
	return snap, gen
}

func readBin(t *testing.T, dir, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(dir + "/" + name + ".bin")
	require.NoError(t, err)
	return data
}

func TestStandardAndDualProduceIdenticalBytes(t *testing.T) {
	reg := testRegistry()
	snap, _ := buildSnapshot(reg, 20)
	pool := bufpool.New("savestrategy-test-a", 4096, 4)

	dirA := t.TempDir()
	dirB := t.TempDir()

	inA := Input{Dir: dirA, Registry: reg, Snapshot: snap, PagePool: pool, Concurrency: 0}
	inB := Input{Dir: dirB, Registry: reg, Snapshot: snap, PagePool: pool, Concurrency: 0}

	require.NoError(t, (Standard{}).Save(context.Background(), inA))
	require.NoError(t, (Dual{}).Save(context.Background(), inB))

	assert.Equal(t, readBin(t, dirA, "Mobiles"), readBin(t, dirB, "Mobiles"))
	assert.Equal(t, readBin(t, dirA, "Items"), readBin(t, dirB, "Items"))
}

func TestParallelMatchesStandardRegardlessOfWorkerCount(t *testing.T) {
	reg := testRegistry()
	snap, _ := buildSnapshot(reg, 37)
	pool := bufpool.New("savestrategy-test-b", 4096, 4)

	dirStd := t.TempDir()
	require.NoError(t, (Standard{}).Save(context.Background(), Input{Dir: dirStd, Registry: reg, Snapshot: snap, PagePool: pool}))

	for _, workers := range []int{1, 3, 8} {
		dir := t.TempDir()
		in := Input{Dir: dir, Registry: reg, Snapshot: snap, PagePool: pool}
		require.NoError(t, (Parallel{Workers: workers}).Save(context.Background(), in))
		assert.Equal(t, readBin(t, dirStd, "Mobiles"), readBin(t, dir, "Mobiles"), "workers=%d", workers)
		assert.Equal(t, readBin(t, dirStd, "Items"), readBin(t, dir, "Items"), "workers=%d", workers)
	}
}

func TestDynamicMatchesStandardRegardlessOfWorkerCount(t *testing.T) {
	reg := testRegistry()
	snap, _ := buildSnapshot(reg, 41)
	pool := bufpool.New("savestrategy-test-c", 4096, 4)

	dirStd := t.TempDir()
	require.NoError(t, (Standard{}).Save(context.Background(), Input{Dir: dirStd, Registry: reg, Snapshot: snap, PagePool: pool}))

	for _, workers := range []int{1, 4, 11} {
		dir := t.TempDir()
		in := Input{Dir: dir, Registry: reg, Snapshot: snap, PagePool: pool}
		require.NoError(t, (Dynamic{Workers: workers}).Save(context.Background(), in))
		assert.Equal(t, readBin(t, dirStd, "Mobiles"), readBin(t, dir, "Mobiles"), "workers=%d", workers)
		assert.Equal(t, readBin(t, dirStd, "Items"), readBin(t, dir, "Items"), "workers=%d", workers)
	}
}

func TestSaveRoundTripsThroughWorldLoad(t *testing.T) {
	reg := testRegistry()
	snap, gen := buildSnapshot(reg, 5)
	pool := bufpool.New("savestrategy-test-d", 4096, 4)
	dir := t.TempDir()

	require.NoError(t, (Dual{}).Save(context.Background(), Input{Dir: dir, Registry: reg, Snapshot: snap, PagePool: pool}))

	loaded := world.New(reg, gen)
	require.NoError(t, loaded.Load(dir))
	mobiles, items, guilds := loaded.Counts()
	assert.Equal(t, 5, mobiles)
	assert.Equal(t, 5, items)
	assert.Equal(t, 0, guilds)
}

func TestOnDiskWriteCompleteFiresExactlyOnceOnSuccess(t *testing.T) {
	reg := testRegistry()
	snap, _ := buildSnapshot(reg, 3)
	pool := bufpool.New("savestrategy-test-e", 4096, 4)
	dir := t.TempDir()

	calls := 0
	in := Input{Dir: dir, Registry: reg, Snapshot: snap, PagePool: pool, OnDiskWriteComplete: func() { calls++ }}
	require.NoError(t, (Standard{}).Save(context.Background(), in))
	assert.Equal(t, 1, calls)
}

func TestAdaptiveStrategySelectsByParallelism(t *testing.T) {
	reg := testRegistry()
	snap, _ := buildSnapshot(reg, 9)
	pool := bufpool.New("savestrategy-test-f", 4096, 4)

	dirSolo := t.TempDir()
	require.NoError(t, NewAdaptiveStrategy(1, false).Save(context.Background(), Input{Dir: dirSolo, Registry: reg, Snapshot: snap, PagePool: pool}))

	dirFanned := t.TempDir()
	require.NoError(t, NewAdaptiveStrategy(4, true).Save(context.Background(), Input{Dir: dirFanned, Registry: reg, Snapshot: snap, PagePool: pool}))

	assert.Equal(t, readBin(t, dirSolo, "Mobiles"), readBin(t, dirFanned, "Mobiles"))
}

func TestSelectByKindResolvesEachNamedStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"standard": Standard{},
		"dual":     Dual{},
		"parallel": Parallel{Workers: 2},
		"dynamic":  Dynamic{Workers: 2},
	}
	for kind, want := range cases {
		got := SelectByKind(kind, 4, 2, false)
		assert.IsType(t, want, got, "kind=%s", kind)
	}
}

func TestSelectByKindFallsBackOnUnknownKind(t *testing.T) {
	assert.IsType(t, Standard{}, SelectByKind("", 1, 1, false))
	assert.IsType(t, Dual{}, SelectByKind("bogus", 4, 1, false))
}

func TestSelectByKindAdaptive(t *testing.T) {
	got := SelectByKind("adaptive", 4, 3, true)
	_, ok := got.(adaptiveStrategy)
	assert.True(t, ok)
}
