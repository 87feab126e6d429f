package server

import (
	"log/slog"

	"github.com/udisondev/la2go/internal/constants"
	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/eventsink"
	"github.com/udisondev/la2go/internal/handlers"
	"github.com/udisondev/la2go/internal/netio"
	"github.com/udisondev/la2go/internal/netstate"
	"github.com/udisondev/la2go/internal/packet"
	"github.com/udisondev/la2go/internal/protover"
)

// maxGumpResponseText is DisplayGumpResponse's text-entry cap (§4.10:
// "Text entries in DisplayGumpResponse truncate at 239 UTF-16 code units;
// overruns disconnect").
const maxGumpResponseText = 239

// maxVendorBuyEntries is VendorBuyReply's element-count cap (§4.10).
const maxVendorBuyEntries = 100

// Additional opcodes required to dispatch
// handleVendorBuyReply/handleDisplayGumpResponse, whose byte layouts
// §4.10 constrains without naming a leading opcode.
const (
	opVendorBuyReply      byte = 0x3B
	opDisplayGumpResponse byte = 0xB1
)

const (
	secureTradeCancel         byte = 0
	secureTradeCheck          byte = 1
	secureTradeUpdateGoldPlat byte = 2
)

// buildHandlerTable registers the opcode catalogue's inbound handlers
// against sink, the game-logic collaborator, one registration per opcode
// instead of a growing switch.
func (c *Core) buildHandlerTable(sink eventsink.Sink) *handlers.Table {
	t := handlers.New()

	t.Register(constants.OpAccountLogin, &handlers.Entry{
		FixedLength: constants.FixedOpcodeLengths[constants.OpAccountLogin],
		Callback:    c.handleAccountLogin(sink),
	})

	t.Register(constants.OpGameLogin, &handlers.Entry{
		FixedLength: constants.FixedOpcodeLengths[constants.OpGameLogin],
		Callback:    c.handleGameLogin(sink),
	})

	t.Register(constants.OpPlayServer, &handlers.Entry{
		FixedLength: constants.FixedOpcodeLengths[constants.OpPlayServer],
		Callback:    c.handlePlayServer,
	})

	t.Register(constants.OpCreateCharacter, &handlers.Entry{
		FixedLength: constants.FixedOpcodeLengths[constants.OpCreateCharacter],
		Callback:    c.handleCreateCharacter(sink),
	})

	t.Register(constants.OpMovementRequest, &handlers.Entry{
		FixedLength:          constants.FixedOpcodeLengths[constants.OpMovementRequest],
		RequiresInGameMobile: true,
		Throttle:             c.throttleMovement,
		Callback:             c.handleMovement(sink),
	})

	t.Register(constants.OpASCIISpeech, &handlers.Entry{
		FixedLength:          0,
		RequiresInGameMobile: true,
		Callback:             c.handleSpeech(sink),
	})

	t.Register(constants.OpPingAck, &handlers.Entry{
		FixedLength: constants.FixedOpcodeLengths[constants.OpPingAck],
		Callback:    c.handlePing,
	})

	t.Register(constants.OpTargetResponse, &handlers.Entry{
		FixedLength:          constants.FixedOpcodeLengths[constants.OpTargetResponse],
		RequiresInGameMobile: true,
		Callback:             c.handleTargetResponse(sink),
	})

	t.Register(constants.OpDoubleClick, &handlers.Entry{
		FixedLength:          constants.FixedOpcodeLengths[constants.OpDoubleClick],
		RequiresInGameMobile: true,
		Callback:             c.handleUseItem(sink),
	})

	t.Register(constants.OpLiftRequest, &handlers.Entry{
		FixedLength:          constants.FixedOpcodeLengths[constants.OpLiftRequest],
		RequiresInGameMobile: true,
		Callback:             c.handleLiftRequest(sink),
	})

	t.Register(constants.OpDropRequest, &handlers.Entry{
		FixedLength:          constants.FixedOpcodeLengths[constants.OpDropRequest],
		RequiresInGameMobile: true,
		Callback:             c.handleDropRequest(sink),
	})

	t.Register(constants.OpSecureTrade, &handlers.Entry{
		FixedLength:          0,
		RequiresInGameMobile: true,
		Callback:             c.handleSecureTrade(),
	})

	t.Register(opVendorBuyReply, &handlers.Entry{
		FixedLength:          0,
		RequiresInGameMobile: true,
		Callback:             handleVendorBuyReply,
	})

	t.Register(opDisplayGumpResponse, &handlers.Entry{
		FixedLength:          0,
		RequiresInGameMobile: true,
		Callback:             handleDisplayGumpResponse,
	})

	return t
}

func (c *Core) handleAccountLogin(sink eventsink.Sink) handlers.Callback {
	return func(ns *netstate.NetState, r *netio.Reader) {
		username := r.ReadASCIIFixed(30)
		password := r.ReadASCIIFixed(30)
		result := sink.Login(eventsink.LoginRequest{Username: username, Password: password})
		if !result.Accepted {
			send(ns, packet.AccountLoginReject(result.RejectCode))
			ns.Dispose(ns.FlushSend)
			return
		}
		ns.AcceptLogin()
		send(ns, packet.AccountLoginAck(sink.ServerList()))
	}
}

func (c *Core) handlePlayServer(ns *netstate.NetState, r *netio.Reader) {
	_ = r.ReadU16() // server index; single-server core always answers for itself
	authID := c.authWindow.Issue(ns.ClientVersion())
	ns.SelectPlayServer(authID)
	send(ns, packet.PlayServerAck(c.serverIP, c.serverPort, authID))
}

func (c *Core) handleGameLogin(sink eventsink.Sink) handlers.Callback {
	return func(ns *netstate.NetState, r *netio.Reader) {
		authID := r.ReadU32()
		if _, ok := c.authWindow.TakeIfPresent(authID); !ok {
			slog.Warn("server: game login with unknown/expired authId, disconnecting",
				slog.String("remote", ns.RemoteAddr()))
			ns.Dispose(ns.FlushSend)
			return
		}
		_ = r.ReadASCIIFixed(30) // username; already validated at account login
		_ = r.ReadASCIIFixed(30) // password
		ns.AcceptGameLogin()
		send(ns, packet.SupportedFeatures(ns.ProtocolChanges()))
		send(ns, packet.CharacterList(sink.CharacterList(), ns.ProtocolChanges()))
	}
}

func (c *Core) handleCreateCharacter(sink eventsink.Sink) handlers.Callback {
	return func(ns *netstate.NetState, r *netio.Reader) {
		name := r.ReadASCIIFixedSafe(30)
		profile := r.ReadBytes(r.Remaining())
		m, err := sink.CreateCharacter(eventsink.CreateCharacterRequest{Name: name, ProfileRaw: profile})
		if err != nil {
			slog.Warn("server: create character failed", slog.String("error", err.Error()))
			ns.Dispose(ns.FlushSend)
			return
		}
		c.world.AddMobile(m)
		ns.AttachMobile(m)
		c.startLoginTimer(ns, m)
	}
}

// handleUseItem parses a 0x06 double-click on a serial and forwards it
// unconditionally; deciding what "using" the target means is game
// logic, out of this core's scope.
func (c *Core) handleUseItem(sink eventsink.Sink) handlers.Callback {
	return func(ns *netstate.NetState, r *netio.Reader) {
		target := entity.Serial(r.ReadU32())
		m := ns.Mobile()
		if m == nil {
			return
		}
		sink.UseItem(m, target)
	}
}

// handleLiftRequest parses a 0x07 lift request; a rejection is silent,
// matching retail's behavior of simply not producing a pickup (§4.10's
// reject-without-disconnect pattern used elsewhere in this catalogue).
func (c *Core) handleLiftRequest(sink eventsink.Sink) handlers.Callback {
	return func(ns *netstate.NetState, r *netio.Reader) {
		target := entity.Serial(r.ReadU32())
		amount := r.ReadU16()
		m := ns.Mobile()
		if m == nil {
			return
		}
		sink.LiftItem(m, target, amount)
	}
}

// handleDropRequest parses a 0x08 drop request. The dropContainer field
// is Serial.Zero when dropping to the ground.
func (c *Core) handleDropRequest(sink eventsink.Sink) handlers.Callback {
	return func(ns *netstate.NetState, r *netio.Reader) {
		target := entity.Serial(r.ReadU32())
		x := r.ReadI16()
		y := r.ReadI16()
		z := r.ReadI8()
		dropContainer := entity.Serial(r.ReadU32())
		m := ns.Mobile()
		if m == nil {
			return
		}
		sink.DropItem(m, target, x, y, z, dropContainer)
	}
}

func (c *Core) throttleMovement(ns *netstate.NetState) bool {
	return c.movementThrottle.allow(ns)
}

func (c *Core) handleMovement(sink eventsink.Sink) handlers.Callback {
	return func(ns *netstate.NetState, r *netio.Reader) {
		direction := r.ReadU8()
		sequence := r.ReadU8()
		_ = r.ReadU32() // fast-walk key, anti-cheat concern outside this core
		_ = direction
		send(ns, packet.MovementAck(sequence, 0))
	}
}

func (c *Core) handleSpeech(sink eventsink.Sink) handlers.Callback {
	return func(ns *netstate.NetState, r *netio.Reader) {
		_ = r.ReadU8()          // speech type
		_ = r.ReadU16()         // hue
		_ = r.ReadU16()         // font
		_ = r.ReadASCIIFixed(4) // language code
		text := r.ReadASCIINulSafe()
		m := ns.Mobile()
		if m == nil {
			return
		}
		sink.Speech(m, text)
	}
}

func (c *Core) handlePing(ns *netstate.NetState, r *netio.Reader) {
	seq := r.ReadU8()
	send(ns, packet.PingAck(seq))
}

// handleTargetResponse validates that the target's reported map/static
// tile identity matches what the server recorded, applying the
// HighSeas Z-offset correction for surface static tiles (§4.10).
func (c *Core) handleTargetResponse(sink eventsink.Sink) handlers.Callback {
	return func(ns *netstate.NetState, r *netio.Reader) {
		targetID := r.ReadU32()
		cursorID := r.ReadI32()
		flag := r.ReadU8()
		x := r.ReadI16()
		y := r.ReadI16()
		z := r.ReadI8()
		staticTileID := r.ReadU16()

		if c.isSurfaceStaticTile(staticTileID) && ns.ProtocolChanges().Has(protover.HighSeas) {
			z = c.correctHighSeasZ(staticTileID, z)
		}

		m := ns.Mobile()
		if m == nil {
			return
		}
		sink.TargetResponse(m, eventsink.TargetResponse{
			TargetID:     targetID,
			CursorID:     cursorID,
			TargetFlag:   flag,
			X:            x,
			Y:            y,
			Z:            z,
			StaticTileID: staticTileID,
		})
	}
}

// isSurfaceStaticTile reports whether a static tile id is flagged as a
// walkable surface in the recorded tile-data table. The full tile-data
// table is map/geometry, out of this core's scope; this core only needs
// the surface bit to decide whether to apply the HighSeas Z correction,
// so it consults an injectable lookup rather than loading map data itself.
func (c *Core) isSurfaceStaticTile(id uint16) bool {
	if c.surfaceTileLookup == nil {
		return false
	}
	return c.surfaceTileLookup(id)
}

// correctHighSeasZ applies the HighSeas protocol's surface Z offset
// correction. The magnitude of the correction is map-data-dependent
// (out of scope); this core exposes the hook point and leaves the actual
// delta to the injected correction function.
func (c *Core) correctHighSeasZ(staticTileID uint16, z int8) int8 {
	if c.highSeasZCorrection == nil {
		return z
	}
	return c.highSeasZCorrection(staticTileID, z)
}

// handleSecureTrade implements the 3-way sub-opcode dispatch
// (cancel/check/update-gold-and-plat) that must atomically update both
// sides' trade info and broadcast UpdateSecureTrade (§4.10).
func (c *Core) handleSecureTrade() handlers.Callback {
	return func(ns *netstate.NetState, r *netio.Reader) {
		sub := r.ReadU8()
		tradeSerial := entity.Serial(r.ReadU32())

		switch sub {
		case secureTradeCancel:
			c.trades.cancel(tradeSerial)
		case secureTradeCheck:
			c.trades.check(tradeSerial)
		case secureTradeUpdateGoldPlat:
			gold := r.ReadU32()
			plat := r.ReadU32()
			g1, p1, g2, p2 := c.trades.updateGoldPlat(ns, tradeSerial, gold, plat)
			c.broadcastToTrade(tradeSerial, packet.UpdateSecureTrade(tradeSerial, sub, g1, p1, g2, p2))
		default:
			slog.Debug("server: unknown secure trade sub-opcode", slog.Int("sub", int(sub)))
		}
	}
}

func (c *Core) broadcastToTrade(tradeSerial entity.Serial, p *packet.Packet) {
	for _, ns := range c.trades.participants(tradeSerial) {
		send(ns, p)
	}
}

// handleVendorBuyReply rejects lists whose element count exceeds 100 or
// whose framed size does not match the declared count (§4.10).
func handleVendorBuyReply(ns *netstate.NetState, r *netio.Reader) {
	_ = r.ReadU32() // vendor serial
	count := r.ReadU8()
	if int(count) > maxVendorBuyEntries {
		slog.Warn("server: vendor buy reply exceeds element cap, disconnecting",
			slog.Int("count", int(count)))
		ns.Dispose(ns.FlushSend)
		return
	}
	const entrySize = 7 // layer(1) + serial(4) + amount(2) per retail layout
	if r.Remaining() != int(count)*entrySize {
		slog.Warn("server: vendor buy reply framed size mismatch, disconnecting",
			slog.Int("declaredCount", int(count)), slog.Int("remaining", r.Remaining()))
		ns.Dispose(ns.FlushSend)
		return
	}
	// Entries themselves are gameplay/trade logic, out of this core's scope.
}

// handleDisplayGumpResponse enforces the 239-UTF-16-code-unit text cap;
// an overrun disconnects without invoking any gump callback (§4.10, §8
// scenario 5).
func handleDisplayGumpResponse(ns *netstate.NetState, r *netio.Reader) {
	_ = r.ReadU32() // gump serial
	_ = r.ReadU32() // type id
	_ = r.ReadU32() // button id
	switchCount := r.ReadU32()
	r.Skip(int(switchCount) * 4)
	textCount := r.ReadU32()
	for range textCount {
		_ = r.ReadU16() // entry id
		length := r.ReadU16()
		if int(length) > maxGumpResponseText {
			slog.Warn("server: gump response text entry exceeds cap, disconnecting",
				slog.Int("length", int(length)))
			ns.Dispose(ns.FlushSend)
			return
		}
		r.Skip(int(length) * 2)
	}
}

func send(ns *netstate.NetState, p *packet.Packet) {
	buf, n := p.Compile(ns.CompressionEnabled())
	if n == 0 {
		return
	}
	if err := ns.Send(buf[:n]); err != nil {
		slog.Warn("server: send queue capacity exceeded, disconnecting",
			slog.String("remote", ns.RemoteAddr()), slog.String("error", err.Error()))
		ns.Dispose(ns.FlushSend)
		return
	}
	p.Release()
}
