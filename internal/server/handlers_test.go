package server

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/udisondev/la2go/internal/authwindow"
	"github.com/udisondev/la2go/internal/constants"
	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/eventsink"
	"github.com/udisondev/la2go/internal/netio"
	"github.com/udisondev/la2go/internal/netstate"
)

type fakePool struct{ size int }

func (p *fakePool) Acquire() []byte { return make([]byte, p.size) }
func (p *fakePool) Release([]byte)  {}

func newTestState(t *testing.T) *netstate.NetState {
	t.Helper()
	client, srv := net.Pipe()
	t.Cleanup(func() { _ = client.Close() })
	return netstate.New(srv, netstate.Caps{Gump: 2, HuePicker: 2, Menu: 2, SecureTrade: 1}, 512, 4096, &fakePool{size: 512})
}

func newTestCore() *Core {
	return &Core{
		authWindow:         authwindow.New(constants.AuthIDWindowSize),
		trades:             newTradeRegistry(),
		movementThrottle:   newActionThrottle(10 * time.Millisecond),
		loginTimerInterval: time.Millisecond,
	}
}

// fakeSink records every call this test cares about, leaving every
// other eventsink.Sink method a no-op/zero-value.
type fakeSink struct {
	usedTarget   entity.Serial
	liftedTarget entity.Serial
	liftedAmount uint16
	liftResult   bool
	droppedX     int16
	droppedY     int16
	droppedZ     int8
	dropResult   bool
}

func (f *fakeSink) Login(eventsink.LoginRequest) eventsink.LoginResult { return eventsink.LoginResult{} }
func (f *fakeSink) ServerList() []eventsink.ServerEntry                { return nil }
func (f *fakeSink) CharacterList() []eventsink.CharacterEntry          { return nil }
func (f *fakeSink) CreateCharacter(eventsink.CreateCharacterRequest) (*entity.Mobile, error) {
	return nil, nil
}
func (f *fakeSink) SelectCharacter(string, int) (*entity.Mobile, error) { return nil, nil }
func (f *fakeSink) Speech(*entity.Mobile, string) bool                  { return true }
func (f *fakeSink) TargetResponse(*entity.Mobile, eventsink.TargetResponse) {}
func (f *fakeSink) UseItem(m *entity.Mobile, target entity.Serial) {
	f.usedTarget = target
}
func (f *fakeSink) LiftItem(m *entity.Mobile, target entity.Serial, amount uint16) bool {
	f.liftedTarget = target
	f.liftedAmount = amount
	return f.liftResult
}
func (f *fakeSink) DropItem(m *entity.Mobile, target entity.Serial, x, y int16, z int8, container entity.Serial) bool {
	f.droppedX, f.droppedY, f.droppedZ = x, y, z
	return f.dropResult
}
func (f *fakeSink) Broadcast(string) {}

func TestHandleUseItemForwardsTarget(t *testing.T) {
	core := newTestCore()
	ns := newTestState(t)
	ns.AttachMobile(entity.NewMobile(1, 0))
	sink := &fakeSink{}

	r := netio.NewReader([]byte{0x00, 0x00, 0x10, 0x01})
	core.handleUseItem(sink)(ns, r)

	assert.Equal(t, entity.Serial(0x1001), sink.usedTarget)
}

func TestHandleLiftRequestForwardsAmount(t *testing.T) {
	core := newTestCore()
	ns := newTestState(t)
	ns.AttachMobile(entity.NewMobile(1, 0))
	sink := &fakeSink{liftResult: true}

	r := netio.NewReader([]byte{0x40, 0x00, 0x00, 0x01, 0x00, 0x05})
	core.handleLiftRequest(sink)(ns, r)

	assert.Equal(t, entity.Serial(0x40000001), sink.liftedTarget)
	assert.Equal(t, uint16(5), sink.liftedAmount)
}

func TestHandleDropRequestForwardsPosition(t *testing.T) {
	core := newTestCore()
	ns := newTestState(t)
	ns.AttachMobile(entity.NewMobile(1, 0))
	sink := &fakeSink{dropResult: true}

	buf := []byte{
		0x40, 0x00, 0x00, 0x01, // target serial
		0x00, 0x0A, // x = 10
		0x00, 0x14, // y = 20
		0x05,                   // z = 5
		0x00, 0x00, 0x00, 0x00, // drop container (ground)
	}
	r := netio.NewReader(buf)
	core.handleDropRequest(sink)(ns, r)

	assert.Equal(t, int16(10), sink.droppedX)
	assert.Equal(t, int16(20), sink.droppedY)
	assert.Equal(t, int8(5), sink.droppedZ)
}

func TestThrottleMovementGatesByInterval(t *testing.T) {
	core := newTestCore()
	ns := newTestState(t)

	assert.True(t, core.throttleMovement(ns))
	assert.False(t, core.throttleMovement(ns))

	time.Sleep(15 * time.Millisecond)
	assert.True(t, core.throttleMovement(ns))
}

func TestSecureTradeUpdateGoldPlatBroadcastsToBothSides(t *testing.T) {
	core := newTestCore()
	a := newTestState(t)
	b := newTestState(t)
	tradeSerial := entity.Serial(0x40001234)
	core.trades.Open(tradeSerial, a, b)

	g1, p1, g2, p2 := core.trades.updateGoldPlat(a, tradeSerial, 100, 5)
	assert.Equal(t, uint32(100), g1)
	assert.Equal(t, uint32(5), p1)
	assert.Equal(t, uint32(0), g2)
	assert.Equal(t, uint32(0), p2)

	participants := core.trades.participants(tradeSerial)
	require.Len(t, participants, 2)
}

func TestSecureTradeCancelRemovesEntry(t *testing.T) {
	core := newTestCore()
	a := newTestState(t)
	b := newTestState(t)
	tradeSerial := entity.Serial(0x40005678)
	core.trades.Open(tradeSerial, a, b)

	core.trades.cancel(tradeSerial)
	assert.Empty(t, core.trades.participants(tradeSerial))
}

func TestLoginTimerEntersWorldThenClears(t *testing.T) {
	core := newTestCore()
	ns := newTestState(t)
	m := entity.NewMobile(1, 0)
	ns.AttachMobile(m)

	core.startLoginTimer(ns, m)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, netstate.PhaseInGame, ns.Phase())
	core.loginTimersMu.Lock()
	_, stillTracked := core.loginTimers[ns]
	core.loginTimersMu.Unlock()
	assert.False(t, stillTracked)
}
