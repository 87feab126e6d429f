// Package messagepump implements the receive dispatcher: one pump owns
// every Listener and a single-consumer queue of NetStates awaiting
// processing. Each tick it drains newly accepted connections, swaps in
// the ready queue, frames and dispatches every buffered packet per
// connection, and defers throttled connections to the next tick.
//
// NetState.Start (see internal/netstate) supplies the async
// notify-on-data-ready primitive a callback-based socket would, and
// Pump.Tick is the single consumer draining it, rather than a
// goroutine-per-connection dispatch loop.
package messagepump

import (
	"log/slog"
	"net"
	"sync"

	"github.com/udisondev/la2go/internal/bufpool"
	"github.com/udisondev/la2go/internal/constants"
	"github.com/udisondev/la2go/internal/handlers"
	"github.com/udisondev/la2go/internal/listener"
	"github.com/udisondev/la2go/internal/netio"
	"github.com/udisondev/la2go/internal/netstate"
	"github.com/udisondev/la2go/internal/protover"
)

// ReadBufPool abstracts the pooled receive buffer source (bufpool.Pool).
type ReadBufPool interface {
	Acquire() []byte
	Release([]byte)
}

// SeedIngest performs §4.8 step 1: parse the first bytes of a freshly
// connected socket's stream (new-style 0xEF packet or a raw 4-byte seed)
// and, on success, call ns.IngestSeed. Returns false if not enough bytes
// are buffered yet to decide (caller waits for more), and ok=false with
// consumed=true if the seed was invalid and the caller must disconnect.
type SeedIngest func(ns *netstate.NetState) (consumed, ok bool)

// Pump owns every Listener and the single queue of NetStates awaiting
// the framing/dispatch loop.
type Pump struct {
	listeners    []*listener.Listener
	table        *handlers.Table
	seedFn       SeedIngest
	readPool     ReadBufPool
	dispatchPool *bufpool.Pool

	caps         netstate.Caps
	coalesceSize int
	sendCapacity int

	onDisconnect func(ns *netstate.NetState, reason string)

	mu      sync.Mutex
	ready   []*netstate.NetState
	inReady map[*netstate.NetState]bool

	throttledMu sync.Mutex
	throttled   []*netstate.NetState

	instancesMu sync.Mutex
	instances   []*netstate.NetState

	pauseMu   sync.Mutex
	pauseCond *sync.Cond
	paused    bool
}

// Config bundles the construction-time parameters a Pump needs.
type Config struct {
	Table        *handlers.Table // base opcode table plus post-6017 overrides
	SeedIngest   SeedIngest
	ReadPool     ReadBufPool
	DispatchPool *bufpool.Pool
	Caps         netstate.Caps
	CoalesceSize int
	SendCapacity int
	OnDisconnect func(ns *netstate.NetState, reason string)
}

// New builds a Pump with no listeners yet; call AddListener to bind.
func New(cfg Config) *Pump {
	p := &Pump{
		table:        cfg.Table,
		seedFn:       cfg.SeedIngest,
		readPool:     cfg.ReadPool,
		dispatchPool: cfg.DispatchPool,
		caps:         cfg.Caps,
		coalesceSize: cfg.CoalesceSize,
		sendCapacity: cfg.SendCapacity,
		onDisconnect: cfg.OnDisconnect,
		inReady:      map[*netstate.NetState]bool{},
	}
	p.pauseCond = sync.NewCond(&p.pauseMu)
	return p
}

// AddListener binds addr with the given backlog and admission hook and
// registers it with the pump.
func (p *Pump) AddListener(addr string, backlog int, hook listener.AdmissionHook) *listener.Listener {
	l := listener.Listen(addr, backlog, hook)
	if l == nil {
		return nil
	}
	p.listeners = append(p.listeners, l)
	return l
}

// Pause defers every connection's recvLoop gate: once set, no paused
// reader goroutine proceeds past pauseGate until Resume is called.
func (p *Pump) Pause() {
	p.pauseMu.Lock()
	p.paused = true
	p.pauseMu.Unlock()
}

// Resume lifts Pause and wakes every goroutine blocked in pauseGate.
func (p *Pump) Resume() {
	p.pauseMu.Lock()
	p.paused = false
	p.pauseMu.Unlock()
	p.pauseCond.Broadcast()
}

// pauseGate blocks the calling goroutine while a pause is in effect,
// parking it on pauseCond instead of spinning so a save holding many
// connections paused costs no CPU.
func (p *Pump) pauseGate() {
	p.pauseMu.Lock()
	for p.paused {
		p.pauseCond.Wait()
	}
	p.pauseMu.Unlock()
}

// Instances returns a snapshot of every live NetState, in admission
// order, for broadcasts.
func (p *Pump) Instances() []*netstate.NetState {
	p.instancesMu.Lock()
	defer p.instancesMu.Unlock()
	out := make([]*netstate.NetState, len(p.instances))
	copy(out, p.instances)
	return out
}

func (p *Pump) notifyReady(ns *netstate.NetState) {
	p.mu.Lock()
	if !p.inReady[ns] {
		p.inReady[ns] = true
		p.ready = append(p.ready, ns)
	}
	p.mu.Unlock()
}

func (p *Pump) handleClose(ns *netstate.NetState) {
	ns.Dispose(ns.FlushSend)
	if p.onDisconnect != nil {
		p.onDisconnect(ns, "connection closed")
	}
}

// Tick runs one iteration of the pump: drain each Listener's admitted
// sockets into fresh NetStates, swap in the ready queue, process every
// ready connection's buffered packets, and re-queue throttled ones for
// the next Tick.
func (p *Pump) Tick() {
	for _, l := range p.listeners {
		for _, conn := range l.Slice() {
			p.admit(conn)
		}
	}

	// States throttled last tick are merged back into this tick's working
	// set (deferred by exactly one tick, not dropped).
	p.throttledMu.Lock()
	working := p.throttled
	p.throttled = nil
	p.throttledMu.Unlock()

	seen := make(map[*netstate.NetState]bool, len(working))
	for _, ns := range working {
		seen[ns] = true
	}

	p.mu.Lock()
	for _, ns := range p.ready {
		delete(p.inReady, ns)
		if !seen[ns] {
			working = append(working, ns)
			seen[ns] = true
		}
	}
	p.ready = nil
	p.mu.Unlock()

	var stillThrottled []*netstate.NetState
	for _, ns := range working {
		if ns.Disposing() {
			continue
		}
		if p.handleReceive(ns) == resultThrottled {
			stillThrottled = append(stillThrottled, ns)
		}
	}

	p.throttledMu.Lock()
	p.throttled = append(p.throttled, stillThrottled...)
	p.throttledMu.Unlock()
}

func (p *Pump) admit(conn net.Conn) {
	ns := netstate.New(conn, p.caps, p.coalesceSize, p.sendCapacity, p.dispatchPool)
	p.instancesMu.Lock()
	p.instances = append(p.instances, ns)
	p.instancesMu.Unlock()
	ns.Start(p.readPool, p.pauseGate, p.notifyReady, func(n *netstate.NetState) { p.handleClose(n) })
}

type receiveResult int

const (
	resultDone receiveResult = iota
	resultThrottled
	resultAwaitingMore
)

// handleReceive implements the framing loop, processing every fully
// buffered packet on ns in order.
func (p *Pump) handleReceive(ns *netstate.NetState) receiveResult {
	for {
		if !ns.Seeded() {
			if !p.ingestSeed(ns) {
				return resultAwaitingMore
			}
			continue
		}

		opcode := ns.PeekInboundOpcode()
		if opcode == 0xFF {
			return resultDone // nothing buffered
		}

		if !ns.AllowedPreLogin(opcode) {
			slog.Warn("messagepump: opcode disallowed before first packet, disconnecting",
				slog.Int("opcode", int(opcode)), slog.String("remote", ns.RemoteAddr()))
			p.disconnect(ns, "encrypted client")
			return resultDone
		}

		useOverride := ns.ProtocolChanges().Has(protover.ContainerGridLines)
		entry, ok := p.table.Lookup(opcode, useOverride)
		if !ok {
			slog.Debug("messagepump: no handler registered, dropping buffered bytes",
				slog.Int("opcode", int(opcode)))
			p.disconnect(ns, "unknown opcode")
			return resultDone
		}

		packetLength := entry.FixedLength
		if packetLength == 0 {
			if ns.InboundLen() < constants.MinFramedLength {
				return resultAwaitingMore
			}
			packetLength = int(ns.PeekInboundBodyLength())
			if packetLength < constants.MinFramedLength {
				p.disconnect(ns, "framed length below minimum")
				return resultDone
			}
		}

		if ns.InboundLen() < packetLength {
			return resultAwaitingMore
		}

		if entry.RequiresInGameMobile && !ns.InGameMobile() {
			p.disconnect(ns, "in-game handler without attached mobile")
			return resultDone
		}

		if entry.Throttle != nil && !entry.Throttle(ns) {
			return resultThrottled
		}

		p.dispatch(ns, entry, packetLength)
	}
}

func (p *Pump) dispatch(ns *netstate.NetState, entry *handlers.Entry, packetLength int) {
	var buf []byte
	var pooled bool
	if packetLength <= p.dispatchPool.Size() {
		buf = p.dispatchPool.Acquire()[:packetLength]
		pooled = true
	} else {
		buf = make([]byte, packetLength)
	}

	n := ns.DequeueInbound(buf, packetLength)
	r := netio.NewReader(buf[:n])
	// The dequeued frame still carries its header: one opcode byte for a
	// fixed-length entry, or opcode plus the u16 BE framed length for a
	// variable-length one. Handlers read payload fields from offset 0, so
	// skip the header before dispatching (mirrors the seed path's own
	// buf[1:5] parse in server/seed.go).
	if entry.FixedLength > 0 {
		r.Seek(1)
	} else {
		r.Seek(constants.MinFramedLength)
	}
	entry.Callback(ns, r)

	if pooled {
		p.dispatchPool.Release(buf[:cap(buf)])
	}
}

func (p *Pump) ingestSeed(ns *netstate.NetState) bool {
	if p.seedFn == nil {
		return false
	}
	consumed, ok := p.seedFn(ns)
	if !consumed {
		return false
	}
	if !ok {
		p.disconnect(ns, "invalid seed")
	}
	return true
}

func (p *Pump) disconnect(ns *netstate.NetState, reason string) {
	ns.Dispose(ns.FlushSend)
	if p.onDisconnect != nil {
		p.onDisconnect(ns, reason)
	}
}
