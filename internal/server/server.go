package server

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/udisondev/la2go/internal/authwindow"
	"github.com/udisondev/la2go/internal/bufpool"
	"github.com/udisondev/la2go/internal/config"
	"github.com/udisondev/la2go/internal/constants"
	"github.com/udisondev/la2go/internal/diagnostics"
	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/eventsink"
	"github.com/udisondev/la2go/internal/listener"
	"github.com/udisondev/la2go/internal/messagepump"
	"github.com/udisondev/la2go/internal/netstate"
	"github.com/udisondev/la2go/internal/savestrategy"
	"github.com/udisondev/la2go/internal/world"
)

// Core holds the pieces of server state the opcode handlers in
// handlers.go close over: the AuthIDWindow, the active secure-trade
// registry, the world, and a per-connection login-completion timer.
// Split out from Server so handlers.go's receivers stay narrow — Core
// never reaches into the pump, listeners, or save strategy.
type Core struct {
	world      *world.World
	authWindow *authwindow.Window

	serverIP   [4]byte
	serverPort uint16

	trades           *tradeRegistry
	movementThrottle *actionThrottle

	// surfaceTileLookup and highSeasZCorrection are map/geometry hooks
	// this core does not implement itself (out of scope); left nil they
	// make TargetResponse's HighSeas correction a no-op.
	surfaceTileLookup   func(staticTileID uint16) bool
	highSeasZCorrection func(staticTileID uint16, z int8) int8

	loginTimersMu sync.Mutex
	loginTimers   map[*netstate.NetState]*time.Timer

	loginTimerInterval time.Duration
}

// startLoginTimer implements §4.8 step 6: once a character is attached,
// a one-shot timer fires after the interval and finishes login (here:
// simply unblocking packet dispatch) unless the connection is already
// disposing, then removes itself. It fires once and does not repeat; it
// does not check whether the client version is known.
func (c *Core) startLoginTimer(ns *netstate.NetState, m *entity.Mobile) {
	interval := c.loginTimerInterval
	if interval <= 0 {
		interval = time.Second
	}

	var fire func()
	fire = func() {
		if ns.Disposing() {
			c.clearLoginTimer(ns)
			return
		}
		ns.EnterWorld()
		c.clearLoginTimer(ns)
	}

	c.loginTimersMu.Lock()
	if c.loginTimers == nil {
		c.loginTimers = make(map[*netstate.NetState]*time.Timer)
	}
	c.loginTimers[ns] = time.AfterFunc(interval, fire)
	c.loginTimersMu.Unlock()
}

func (c *Core) clearLoginTimer(ns *netstate.NetState) {
	c.loginTimersMu.Lock()
	if t, ok := c.loginTimers[ns]; ok {
		t.Stop()
		delete(c.loginTimers, ns)
	}
	c.loginTimersMu.Unlock()
}

// actionThrottle implements the per-connection action-delay gate of §8
// scenario 3: a handler's Throttle returns false (deferring dispatch to
// the next tick, not dropping the packet) until at least minInterval
// has passed since the connection's last allowed movement.
type actionThrottle struct {
	minInterval time.Duration

	mu   sync.Mutex
	last map[*netstate.NetState]time.Time
}

func newActionThrottle(minInterval time.Duration) *actionThrottle {
	return &actionThrottle{minInterval: minInterval, last: make(map[*netstate.NetState]time.Time)}
}

func (t *actionThrottle) allow(ns *netstate.NetState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if prev, ok := t.last[ns]; ok && now.Sub(prev) < t.minInterval {
		return false
	}
	t.last[ns] = now
	return true
}

// tradeRegistry tracks the live secure-trade sessions this core
// validates and broadcasts updates for (§4.10's SecureTrade contract).
// The trade container's item contents are gameplay state the event
// sink owns; this registry only tracks which two NetStates are party to
// a trade serial and each side's currently offered gold/platinum, which
// is what UpdateSecureTrade's wire layout needs.
type tradeRegistry struct {
	mu      sync.Mutex
	entries map[entity.Serial]*tradeEntry
}

type tradeEntry struct {
	sides       [2]*netstate.NetState
	goldPlat    [2][2]uint32 // [side][gold,plat]
}

func newTradeRegistry() *tradeRegistry {
	return &tradeRegistry{entries: make(map[entity.Serial]*tradeEntry)}
}

// Open registers a freshly opened trade between a and b under tradeContainer.
func (r *tradeRegistry) Open(tradeContainer entity.Serial, a, b *netstate.NetState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[tradeContainer] = &tradeEntry{sides: [2]*netstate.NetState{a, b}}
}

func (r *tradeRegistry) cancel(tradeContainer entity.Serial) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, tradeContainer)
}

func (r *tradeRegistry) check(tradeContainer entity.Serial) {
	// A "check" sub-opcode only re-confirms current state; this registry
	// holds no separate confirmed/unconfirmed bit since neither side's
	// NetState exposes one to flip, so there is nothing further to mutate.
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.entries[tradeContainer]
}

// updateGoldPlat records the offering side's new gold/plat figures and
// returns both sides' current totals for the UpdateSecureTrade broadcast.
func (r *tradeRegistry) updateGoldPlat(ns *netstate.NetState, tradeContainer entity.Serial, gold, plat uint32) (g1, p1, g2, p2 uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[tradeContainer]
	if !ok {
		return 0, 0, 0, 0
	}
	for i, side := range e.sides {
		if side == ns {
			e.goldPlat[i] = [2]uint32{gold, plat}
		}
	}
	return e.goldPlat[0][0], e.goldPlat[0][1], e.goldPlat[1][0], e.goldPlat[1][1]
}

func (r *tradeRegistry) participants(tradeContainer entity.Serial) []*netstate.NetState {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[tradeContainer]
	if !ok {
		return nil
	}
	out := make([]*netstate.NetState, 0, 2)
	for _, s := range e.sides {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Server ties every leaf component (World, MessagePump, SaveStrategy,
// AuthIDWindow, Diagnostics) into a single long-lived process value: one
// struct, constructed once, rather than a collection of package-level
// managers, with construction, Run, and a final Save when Run's context
// is cancelled.
type Server struct {
	cfg config.Server

	world    *world.World
	registry *entity.Registry

	pump *messagepump.Pump
	core *Core
	sink eventsink.Sink
	save savestrategy.Strategy
	diag *diagnostics.Registry

	readPool     *bufpool.Pool
	dispatchPool *bufpool.Pool
	pagePool     *bufpool.Pool

	saveMu sync.Mutex
}

// NewWorld builds the empty World a Sink implementation is constructed
// against before New wires the rest of the server. registry must already
// have every gameplay entity type registered (cmd/gameserver does this,
// since the core itself defines none).
func NewWorld(registry *entity.Registry) *world.World {
	return world.New(registry, entity.NewGenerator(0, 0))
}

// New constructs a fully wired Server around an already-built World
// (see NewWorld) and the Sink that world backs.
func New(cfg config.Server, w *world.World, registry *entity.Registry, sink eventsink.Sink) *Server {
	readPool := bufpool.New("netstate-read", cfg.Pools.PacketBufSize, 64)
	dispatchPool := bufpool.New("dispatch", cfg.Pools.PacketBufSize, 64)
	pagePool := bufpool.New("save-page", cfg.Pools.FilePageSize, 8)

	core := &Core{
		world:              w,
		authWindow:         authwindow.New(constants.AuthIDWindowSize),
		serverIP:           [4]byte{127, 0, 0, 1},
		serverPort:         uint16(cfg.Listener.Port),
		trades:             newTradeRegistry(),
		movementThrottle:   newActionThrottle(100 * time.Millisecond),
		loginTimerInterval: cfg.LoginTimerInterval,
	}

	table := core.buildHandlerTable(sink)

	pump := messagepump.New(messagepump.Config{
		Table:        table,
		SeedIngest:   SeedIngest,
		ReadPool:     readPool,
		DispatchPool: dispatchPool,
		Caps: netstate.Caps{
			Gump:        cfg.Caps.GumpCap,
			HuePicker:   cfg.Caps.HuePickerCap,
			Menu:        cfg.Caps.MenuCap,
			SecureTrade: cfg.Caps.SecureTradeCap,
		},
		CoalesceSize: cfg.Pools.GramSize,
		SendCapacity: cfg.SendQueueCapacity,
		OnDisconnect: func(ns *netstate.NetState, reason string) {
			core.clearLoginTimer(ns)
			slog.Info("server: connection disconnected", slog.String("remote", ns.RemoteAddr()), slog.String("reason", reason))
		},
	})

	return &Server{
		cfg:          cfg,
		world:        w,
		registry:     registry,
		pump:         pump,
		core:         core,
		sink:         sink,
		save: savestrategy.SelectByKind(cfg.Save.Kind, runtime.NumCPU(),
			cfg.Save.Parallelism, cfg.Save.BackgroundWrites),
		diag:         diagnostics.NewRegistry(),
		readPool:     readPool,
		dispatchPool: dispatchPool,
		pagePool:     pagePool,
	}
}

// Listen binds the configured client-facing listener. Must be called
// before Run.
func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Listener.BindAddress, s.cfg.Listener.Port)
	l := s.pump.AddListener(addr, s.cfg.Listener.Backlog, func(listener.SocketConnectEventArgs) bool { return true })
	if l == nil {
		return fmt.Errorf("server: failed to bind %s", addr)
	}
	return nil
}

// LoadWorld restores persisted state from dir before Run starts
// accepting gameplay (§4.11).
func (s *Server) LoadWorld(dir string) error {
	return s.world.Load(dir)
}

// Pause defers every connection's receive loop (§5).
func (s *Server) Pause() { s.pump.Pause() }

// Resume lifts Pause.
func (s *Server) Resume() { s.pump.Resume() }

// Broadcast sends message to every connected player via the event sink,
// used around a save generation (§7).
func (s *Server) Broadcast(message string) {
	if s.sink != nil {
		s.sink.Broadcast(message)
	}
}

// Run drives the pump's tick loop and a minutely inactivity sweep until
// ctx is cancelled, then runs one final Save; it schedules no saves
// before that. Generalized from a single accept loop into a tick-pump
// plus sweep loop.
func (s *Server) Run(ctx context.Context) error {
	tickTicker := time.NewTicker(15 * time.Millisecond)
	defer tickTicker.Stop()

	sweepInterval := s.cfg.DisposalSweepInterval
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	sweepTicker := time.NewTicker(sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Save(context.Background(), s.cfg.Save.SaveDirectory)
			return ctx.Err()
		case <-tickTicker.C:
			s.pump.Tick()
		case <-sweepTicker.C:
			s.sweepExpired()
		}
	}
}

// sweepExpired disposes every connection past its activity deadline,
// bounded at DisposalBatchSize per pass (§4.8 "Disposal", §5).
func (s *Server) sweepExpired() {
	now := time.Now()
	swept := 0
	for _, ns := range s.pump.Instances() {
		if swept >= s.cfg.DisposalBatchSize {
			break
		}
		if ns.Disposing() {
			continue
		}
		if ns.Expired(now) {
			ns.Dispose(ns.FlushSend)
			ns.Detach()
			swept++
		}
	}
}

// Save runs one save generation: pauses new receives, snapshots the
// world, drives the configured SaveStrategy, broadcasts the
// save-in-progress/complete messages, and resumes (§7, §4.11).
func (s *Server) Save(ctx context.Context, dir string) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.Broadcast("The world is saving, please wait.")
	s.Pause()
	defer s.Resume()

	snap := s.world.BeginSave()
	defer s.world.EndSave()

	in := savestrategy.Input{
		Dir:         dir,
		Registry:    s.registry,
		Snapshot:    snap,
		PagePool:    s.pagePool,
		Concurrency: s.cfg.Save.Parallelism,
		OnDiskWriteComplete: func() {
			s.Broadcast("World save complete.")
		},
	}

	if err := s.save.Save(ctx, in); err != nil {
		slog.Error("server: save failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Diagnostics exposes the process's timing-counter registry.
func (s *Server) Diagnostics() *diagnostics.Registry { return s.diag }

// World exposes the live entity registry, for cmd/gameserver wiring.
func (s *Server) World() *world.World { return s.world }
