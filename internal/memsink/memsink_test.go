package memsink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/eventsink"
	"github.com/udisondev/la2go/internal/world"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()
	reg := entity.NewRegistry()
	reg.Register(entity.MobileTypeFqn, func(s entity.Serial) entity.Entity { return entity.NewMobile(s, 0) })
	reg.Register(entity.ItemTypeFqn, func(s entity.Serial) entity.Entity { return entity.NewItem(s, 0) })
	w := world.New(reg, entity.NewGenerator(0, 0))
	return New(w, "test", [4]byte{127, 0, 0, 1})
}

func TestLoginRejectsEmptyCredentials(t *testing.T) {
	s := newTestSink(t)
	result := s.Login(eventsink.LoginRequest{Username: "", Password: "x"})
	assert.False(t, result.Accepted)
}

func TestLoginAcceptsNonEmptyCredentials(t *testing.T) {
	s := newTestSink(t)
	result := s.Login(eventsink.LoginRequest{Username: "player", Password: "secret"})
	assert.True(t, result.Accepted)
}

func TestServerListReturnsOneEntry(t *testing.T) {
	s := newTestSink(t)
	list := s.ServerList()
	require.Len(t, list, 1)
	assert.Equal(t, "test", list[0].Name)
}

func TestCreateCharacterThenListedAndSelectable(t *testing.T) {
	s := newTestSink(t)
	m, err := s.CreateCharacter(eventsink.CreateCharacterRequest{Name: "Hero"})
	require.NoError(t, err)
	assert.Equal(t, "Hero", m.Name())

	chars := s.CharacterList()
	require.Len(t, chars, 1)
	assert.Equal(t, "Hero", chars[0].Name)

	selected, err := s.SelectCharacter("", 0)
	require.NoError(t, err)
	assert.Same(t, m, selected)
}

func TestCreateCharacterRejectsEmptyName(t *testing.T) {
	s := newTestSink(t)
	_, err := s.CreateCharacter(eventsink.CreateCharacterRequest{Name: ""})
	assert.Error(t, err)
}

func TestSelectCharacterRejectsOutOfRange(t *testing.T) {
	s := newTestSink(t)
	_, err := s.SelectCharacter("", 0)
	assert.Error(t, err)
}

func TestSpeechAndBroadcastAppendToLog(t *testing.T) {
	s := newTestSink(t)
	m, err := s.CreateCharacter(eventsink.CreateCharacterRequest{Name: "Hero"})
	require.NoError(t, err)

	s.Speech(m, "hello")
	s.Broadcast("the world is saving")

	log := s.Log()
	require.Len(t, log, 2)
	assert.Contains(t, log[0], "Hero: hello")
	assert.Contains(t, log[1], "the world is saving")
}

func TestLiftItemRejectsUnknownSerial(t *testing.T) {
	s := newTestSink(t)
	ok := s.LiftItem(nil, entity.Serial(0x40000001), 1)
	assert.False(t, ok)
}

func TestDropItemMovesKnownItem(t *testing.T) {
	s := newTestSink(t)
	serial := s.world.Generator().NextItem()
	typeRef, ok := s.world.Registry().TypeRefFor(entity.ItemTypeFqn)
	require.True(t, ok)
	e, err := s.world.Registry().New(typeRef, serial)
	require.NoError(t, err)
	it := e.(*entity.Item)
	s.world.AddItem(it)

	ok = s.DropItem(nil, serial, 10, 20, 5, entity.SerialZero)
	assert.True(t, ok)
	x, y, z := it.Position()
	assert.Equal(t, int16(10), x)
	assert.Equal(t, int16(20), y)
	assert.Equal(t, int8(5), z)
}
