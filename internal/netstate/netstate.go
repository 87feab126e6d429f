// Package netstate implements the per-connection state machine: Accepted
// → Seeded → Authenticated → ServerListed → PreGameLogin →
// GameAuthenticated → CharacterSelected → InGame → Disposed. A single
// struct owns the socket, crypto, and per-connection queues, plus the
// capped UI resource lists the UO handshake requires.
package netstate

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/udisondev/la2go/internal/constants"
	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/netio"
	"github.com/udisondev/la2go/internal/protover"
	"github.com/udisondev/la2go/internal/sendqueue"
)

// Phase enumerates the connection lifecycle states.
type Phase int32

const (
	PhaseAccepted Phase = iota
	PhaseSeeded
	PhaseAuthenticated
	PhaseServerListed
	PhasePreGameLogin
	PhaseGameAuthenticated
	PhaseCharacterSelected
	PhaseInGame
	PhaseDisposed
)

// Caps bounds the per-connection UI resource lists.
type Caps struct {
	Gump        int
	HuePicker   int
	Menu        int
	SecureTrade int
}

// NetState is one TCP peer's connection state.
type NetState struct {
	conn       net.Conn
	remoteAddr string

	inboundMu sync.Mutex
	inbound   *netio.ByteQueue
	outbound  *sendqueue.SendQueue

	seed   uint32
	authID uint32

	clientVersion constants.ProtocolVersion
	changes       protover.Changes
	clientFlags   uint32

	phase atomic.Int32

	seeded             atomic.Bool
	sentFirstPacket    atomic.Bool
	compressionEnabled atomic.Bool
	blockAllPackets    atomic.Bool
	running            atomic.Bool
	disposing          atomic.Bool

	nextCheckActivity atomic.Int64 // unix nanos

	mu      sync.Mutex
	mobile  *entity.Mobile
	caps    Caps
	gumps   []uint32
	huePick []uint32
	menus   []uint32
	trades  []uint32

	throttled atomic.Bool
}

// New constructs a NetState in PhaseAccepted for a just-accepted socket.
func New(conn net.Conn, caps Caps, coalesceSize, sendCapacity int, pool interface {
	Acquire() []byte
	Release([]byte)
}) *NetState {
	ns := &NetState{
		conn:     conn,
		inbound:  netio.NewByteQueue(),
		outbound: sendqueue.New(pool, coalesceSize, sendCapacity),
		caps:     caps,
	}
	ns.running.Store(true)
	ns.touchActivity()
	return ns
}

func (ns *NetState) touchActivity() {
	ns.nextCheckActivity.Store(time.Now().Add(constants.ActivityTimeoutSeconds * time.Second).UnixNano())
}

// Phase returns the current lifecycle phase.
func (ns *NetState) Phase() Phase { return Phase(ns.phase.Load()) }

func (ns *NetState) setPhase(p Phase) { ns.phase.Store(int32(p)) }

// RemoteAddr returns the peer's address string.
func (ns *NetState) RemoteAddr() string {
	if ns.remoteAddr == "" && ns.conn != nil {
		ns.remoteAddr = ns.conn.RemoteAddr().String()
	}
	return ns.remoteAddr
}

// Inbound exposes the connection's inbound ByteQueue. Callers outside
// this package should prefer the locked helpers below — ByteQueue itself
// is documented single-producer/single-consumer (§4.2), but a NetState's
// producer (the socket reader goroutine) and consumer (MessagePump's tick
// thread) run concurrently, so access here is serialized by inboundMu.
func (ns *NetState) Inbound() *netio.ByteQueue { return ns.inbound }

// EnqueueInbound appends freshly read socket bytes to the inbound queue.
// Called from the connection's reader goroutine.
func (ns *NetState) EnqueueInbound(buf []byte, n int) {
	ns.inboundMu.Lock()
	ns.inbound.Enqueue(buf, 0, n)
	ns.inboundMu.Unlock()
}

// InboundLen returns the number of currently buffered inbound bytes.
func (ns *NetState) InboundLen() int {
	ns.inboundMu.Lock()
	defer ns.inboundMu.Unlock()
	return ns.inbound.Len()
}

// PeekInboundOpcode returns the buffered stream's leading opcode byte, or
// 0xFF if empty (§4.2).
func (ns *NetState) PeekInboundOpcode() byte {
	ns.inboundMu.Lock()
	defer ns.inboundMu.Unlock()
	return ns.inbound.PeekPacketID()
}

// PeekInboundBodyLength returns the framed u16 BE length at offset 1,
// or 0 if fewer than 3 bytes are buffered (§4.2).
func (ns *NetState) PeekInboundBodyLength() uint16 {
	ns.inboundMu.Lock()
	defer ns.inboundMu.Unlock()
	return ns.inbound.PeekBodyLength()
}

// DequeueInbound drains exactly n bytes (or fewer, if unavailable) from
// the inbound queue into dst.
func (ns *NetState) DequeueInbound(dst []byte, n int) int {
	ns.inboundMu.Lock()
	defer ns.inboundMu.Unlock()
	return ns.inbound.Dequeue(dst, 0, n)
}

// Outbound exposes the connection's outbound SendQueue.
func (ns *NetState) Outbound() *sendqueue.SendQueue { return ns.outbound }

// Seeded reports whether the handshake seed has been ingested.
func (ns *NetState) Seeded() bool { return ns.seeded.Load() }

// SentFirstPacket reports whether the pre-login guard has been lifted.
func (ns *NetState) SentFirstPacket() bool { return ns.sentFirstPacket.Load() }

// CompressionEnabled reports whether outbound Huffman compression is active.
func (ns *NetState) CompressionEnabled() bool { return ns.compressionEnabled.Load() }

// BlockAllPackets reports whether inbound dispatch is currently suppressed
// (set once character selection begins, per §4.8 step 6).
func (ns *NetState) BlockAllPackets() bool { return ns.blockAllPackets.Load() }

// IngestSeed consumes the handshake seed (§4.8 step 1). A zero seed is
// invalid and the caller must disconnect.
func (ns *NetState) IngestSeed(seed uint32, version constants.ProtocolVersion) bool {
	if seed == 0 {
		return false
	}
	ns.seed = seed
	ns.clientVersion = version
	ns.changes = protover.FromVersion(version)
	ns.seeded.Store(true)
	ns.setPhase(PhaseSeeded)
	ns.touchActivity()
	return true
}

// ClientVersion returns the negotiated client version.
func (ns *NetState) ClientVersion() constants.ProtocolVersion { return ns.clientVersion }

// ProtocolChanges returns the derived feature bitset for this connection.
func (ns *NetState) ProtocolChanges() protover.Changes { return ns.changes }

// AllowedPreLogin reports whether opcode is permitted before
// sentFirstPacket flips true (§4.8 step 2).
func (ns *NetState) AllowedPreLogin(opcode byte) bool {
	if ns.sentFirstPacket.Load() {
		return true
	}
	_, ok := constants.PreLoginAllowedOpcodes[opcode]
	return ok
}

// AcceptLogin marks a successful account login: lifts the pre-login guard
// and advances to PhaseAuthenticated (§4.8 step 3).
func (ns *NetState) AcceptLogin() {
	ns.sentFirstPacket.Store(true)
	ns.setPhase(PhaseAuthenticated)
	ns.touchActivity()
}

// SelectPlayServer resets sentFirstPacket so the reconnecting game-server
// socket passes the pre-login guard again, and advances to
// PhaseServerListed (§4.8 step 4).
func (ns *NetState) SelectPlayServer(authID uint32) {
	ns.authID = authID
	ns.sentFirstPacket.Store(false)
	ns.setPhase(PhaseServerListed)
	ns.touchActivity()
}

// AuthID returns the auth id issued for the PlayServer handoff.
func (ns *NetState) AuthID() uint32 { return ns.authID }

// AcceptGameLogin enables compression and advances to
// PhaseGameAuthenticated (§4.8 step 5). Caller must have already
// cross-referenced authID against the AuthIDWindow.
func (ns *NetState) AcceptGameLogin() {
	ns.compressionEnabled.Store(true)
	ns.setPhase(PhaseGameAuthenticated)
	ns.touchActivity()
}

// AttachMobile attaches the gameplay Mobile produced by character
// create/select, blocks further packet dispatch until login completes,
// and advances to PhaseCharacterSelected (§4.8 step 6).
func (ns *NetState) AttachMobile(m *entity.Mobile) {
	ns.mu.Lock()
	ns.mobile = m
	ns.mu.Unlock()
	ns.blockAllPackets.Store(true)
	ns.setPhase(PhaseCharacterSelected)
	ns.touchActivity()
}

// Mobile returns the attached gameplay Mobile, or nil before attachment.
func (ns *NetState) Mobile() *entity.Mobile {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.mobile
}

// EnterWorld unblocks packet dispatch and advances to PhaseInGame, called
// once DoLogin completes (§4.8 step 6's login timer).
func (ns *NetState) EnterWorld() {
	ns.blockAllPackets.Store(false)
	ns.setPhase(PhaseInGame)
	ns.touchActivity()
}

// InGameMobile reports whether this connection has a mobile attached —
// the "requiresInGameMobile" handler precondition.
func (ns *NetState) InGameMobile() bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	return ns.mobile != nil
}

// TouchActivity resets the activity deadline on any successful read or
// write (§4.8 "Timeouts & keep-alive").
func (ns *NetState) TouchActivity() { ns.touchActivity() }

// Expired reports whether this connection's activity deadline has
// elapsed as of now.
func (ns *NetState) Expired(now time.Time) bool {
	return now.UnixNano()-ns.nextCheckActivity.Load() >= 0
}

// Caps returns the configured resource caps for this connection.
func (ns *NetState) Caps() Caps { return ns.caps }

// AddGump appends a gump id, returning false if doing so would exceed
// the configured cap (caller must then dispose the connection, §4.8).
func (ns *NetState) AddGump(id uint32) bool { return ns.addCapped(&ns.gumps, id, ns.caps.Gump) }

// AddHuePicker appends a hue-picker id under its cap.
func (ns *NetState) AddHuePicker(id uint32) bool { return ns.addCapped(&ns.huePick, id, ns.caps.HuePicker) }

// AddMenu appends a menu id under its cap.
func (ns *NetState) AddMenu(id uint32) bool { return ns.addCapped(&ns.menus, id, ns.caps.Menu) }

// AddSecureTrade appends a secure-trade id under its cap.
func (ns *NetState) AddSecureTrade(id uint32) bool { return ns.addCapped(&ns.trades, id, ns.caps.SecureTrade) }

func (ns *NetState) addCapped(list *[]uint32, id uint32, limit int) bool {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if len(*list) >= limit {
		return false
	}
	*list = append(*list, id)
	return true
}

// Disposing reports whether Dispose has already been called.
func (ns *NetState) Disposing() bool { return ns.disposing.Load() }

// Dispose attempts a best-effort flush, shuts down and closes the
// underlying socket, clears queues, and marks the state Disposed. flush
// returning false (something still in-flight) does not block disposal —
// its result is ignored and disposal proceeds anyway (§4.8).
func (ns *NetState) Dispose(flush func() bool) {
	if !ns.disposing.CompareAndSwap(false, true) {
		return
	}
	if flush != nil {
		flush()
	}
	ns.running.Store(false)
	if ns.conn != nil {
		_ = ns.conn.Close()
	}
	ns.outbound.Clear()
	ns.setPhase(PhaseDisposed)
}

// Detach clears the mobile/gump/menu/hue-picker/trade references, run by
// the disposed-queue drain task (§4.8 "Disposal").
func (ns *NetState) Detach() {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	ns.mobile = nil
	ns.gumps = nil
	ns.huePick = nil
	ns.menus = nil
	ns.trades = nil
}

// Conn exposes the underlying net.Conn for the MessagePump's write path.
func (ns *NetState) Conn() net.Conn { return ns.conn }

// readPool abstracts the pooled receive buffer source (satisfied by
// *bufpool.Pool), released on Dispose per §4.8 "Disposal".
type readPool interface {
	Acquire() []byte
	Release([]byte)
}

// Start spawns the connection's receive goroutine: Go's blocking
// net.Conn.Read stands in for a callback-based asynchronous receive slot
// — each NetState holds a single outstanding receive in flight, and one
// goroutine per connection is the idiomatic Go equivalent of that. Every
// successful read enqueues into the inbound ByteQueue, touches the
// activity deadline, and notifies ready via the non-blocking notify
// callback so MessagePump's tick thread picks the connection up without
// polling. The goroutine exits (and calls onClose exactly once) when the
// read fails or the connection is disposed.
func (ns *NetState) Start(pool readPool, pauseGate func(), notify func(*NetState), onClose func(*NetState)) {
	ns.running.Store(true)
	go ns.recvLoop(pool, pauseGate, notify, onClose)
}

func (ns *NetState) recvLoop(pool readPool, pauseGate func(), notify func(*NetState), onClose func(*NetState)) {
	buf := pool.Acquire()
	defer pool.Release(buf)
	defer onClose(ns)

	for ns.running.Load() {
		if pauseGate != nil {
			pauseGate() // blocks while the process-wide Pause() is in effect (§5)
		}
		n, err := ns.conn.Read(buf)
		if n > 0 {
			ns.EnqueueInbound(buf, n)
			ns.touchActivity()
			notify(ns)
		}
		if err != nil {
			return
		}
	}
}

// FlushSend drains every ready gram in the outbound SendQueue to the
// socket, write-then-release in lockstep: it writes whatever gram
// CheckFlushReady or PeekPending hands it first, then calls Dequeue only
// after that write succeeds, since Dequeue's contract releases the gram it
// was just given credit for and returns the next one. A single Enqueue
// call can spill more than one full page into pending before FlushSend
// ever runs (CheckFlushReady then returns nil because pending is already
// non-empty), so PeekPending — not Dequeue — is what supplies the first
// gram in that case; calling Dequeue first would release it unwritten.
// Returns false if a socket write fails, leaving that gram and any after
// it queued; otherwise returns true once pending is empty (an empty queue
// also returns true). A partly filled buffered gram that was not promoted
// is not written and does not affect the result.
func (ns *NetState) FlushSend() bool {
	g := ns.outbound.CheckFlushReady()
	if g == nil {
		g = ns.outbound.PeekPending()
	}
	for g != nil {
		if _, err := ns.conn.Write(g.Buf[:g.Len]); err != nil {
			return false
		}
		g = ns.outbound.Dequeue()
	}
	ns.touchActivity()
	return ns.outbound.PendingBytes() == 0
}

// Send enqueues a compiled packet's bytes onto the outbound SendQueue and
// opportunistically flushes if a gram is ready (single-send-in-flight
// ordering). A CapacityExceeded error means the caller must disconnect the
// peer.
func (ns *NetState) Send(buf []byte) error {
	if err := ns.outbound.Enqueue(buf, 0, len(buf)); err != nil {
		return err
	}
	ns.FlushSend()
	return nil
}
