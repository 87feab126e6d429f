package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/udisondev/la2go/internal/netio"
)

func TestSerialIsItemIsMobile(t *testing.T) {
	assert.True(t, Serial(0x40000001).IsItem())
	assert.True(t, Serial(0x00000001).IsMobile())
	assert.False(t, SerialMinusOne.IsMobile())
}

func TestGeneratorNeverCollidesAcrossHalves(t *testing.T) {
	g := NewGenerator(1, 1)
	m := g.NextMobile()
	i := g.NextItem()
	assert.True(t, m.IsMobile())
	assert.True(t, i.IsItem())
}

func TestGeneratorObserveAdvancesPastLoadedSerial(t *testing.T) {
	g := NewGenerator(1, 1)
	g.Observe(Serial(50))
	next := g.NextMobile()
	assert.Equal(t, Serial(51), next)
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	ref := r.Register(ItemTypeFqn, func(s Serial) Entity { return NewItem(s, 0) })

	got, ok := r.TypeRefFor(ItemTypeFqn)
	require.True(t, ok)
	assert.Equal(t, ref, got)

	fqn, ok := r.FqnFor(ref)
	require.True(t, ok)
	assert.Equal(t, ItemTypeFqn, fqn)

	e, err := r.New(ref, Serial(0x40000099))
	require.NoError(t, err)
	assert.Equal(t, Serial(0x40000099), e.Serial())
}

func TestRegistryNewUnknownTypeRefErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.New(99, Serial(1))
	assert.Error(t, err)
}

func TestItemSerializeDeserializeRoundTrip(t *testing.T) {
	ref := int32(3)
	it := NewItem(Serial(0x40000010), ref)
	it.SetAmount(5)
	it.SetPosition(100, 200, 0)
	it.SetHue(42)
	it.SetLayer(1)

	w := netio.NewWriter(64)
	it.Serialize(w)

	got := NewItem(Serial(0x40000010), ref)
	require.NoError(t, got.Deserialize(netio.NewReader(w.Bytes())))
	assert.Equal(t, uint16(5), got.Amount())
	x, y, z := got.Position()
	assert.Equal(t, int16(100), x)
	assert.Equal(t, int16(200), y)
	assert.Equal(t, int8(0), z)
	assert.Equal(t, uint16(42), got.Hue())
}

func TestMobileSerializeDeserializeRoundTrip(t *testing.T) {
	m := NewMobile(Serial(7), 1)
	m.SetName("Test Mobile")
	m.SetPosition(10, 20, 0)
	m.SetBody(400)

	w := netio.NewWriter(64)
	m.Serialize(w)

	got := NewMobile(Serial(7), 1)
	require.NoError(t, got.Deserialize(netio.NewReader(w.Bytes())))
	assert.Equal(t, "Test Mobile", got.Name())
	assert.Equal(t, uint16(400), got.Body())
}

func TestGuildSerializeDeserializeRoundTrip(t *testing.T) {
	g := NewGuild(GuildID(1), 2)
	g.SetName("Britannia Guard")
	g.AddMember(Serial(1))
	g.AddMember(Serial(2))

	w := netio.NewWriter(64)
	g.Serialize(w)

	got := NewGuild(GuildID(1), 2)
	require.NoError(t, got.Deserialize(netio.NewReader(w.Bytes())))
	assert.Equal(t, "Britannia Guard", got.Name())
	assert.Equal(t, []Serial{1, 2}, got.Members())
}
