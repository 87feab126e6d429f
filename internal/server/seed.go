// Package server wires the core's leaf components (World, Listener,
// MessagePump, PacketHandlers, SaveStrategy, Diagnostics) into a single
// long-lived process: one Server value owns everything, constructed
// once, and only cmd/gameserver's main instantiates it — construction,
// accept loop, and graceful shutdown generalized to the UO handshake,
// opcode table, and save-strategy plumbing this core adds.
package server

import (
	"github.com/udisondev/la2go/internal/constants"
	"github.com/udisondev/la2go/internal/messagepump"
	"github.com/udisondev/la2go/internal/netstate"
)

// seedIngest implements §4.8 step 1: the first bytes of a freshly
// connected socket's stream are either the new-style 0xEF packet (21B:
// opcode, u32 seed, four version bytes, then padding) or — on very old
// clients this core does not otherwise support — a bare 4-byte seed.
// Seed value 0 is invalid and must disconnect.
func seedIngest(ns *netstate.NetState) (consumed, ok bool) {
	opcode := ns.PeekInboundOpcode()
	if opcode == 0xFF {
		return false, false // nothing buffered yet
	}

	if opcode == constants.OpNewLoginSeed {
		if ns.InboundLen() < constants.FixedOpcodeLengths[constants.OpNewLoginSeed] {
			return false, false
		}
		buf := make([]byte, constants.FixedOpcodeLengths[constants.OpNewLoginSeed])
		ns.DequeueInbound(buf, len(buf))
		seed := be32(buf[1:5])
		major, minor, rev, patch := buf[5], buf[6], buf[7], buf[8]
		version := constants.MakeVersion(major, minor, rev, patch)
		return true, ns.IngestSeed(seed, version)
	}

	// Bare 4-byte seed: the client's very first bytes are the seed itself,
	// with no opcode byte preceding it.
	if ns.InboundLen() < 4 {
		return false, false
	}
	buf := make([]byte, 4)
	ns.DequeueInbound(buf, 4)
	seed := be32(buf)
	return true, ns.IngestSeed(seed, 0)
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// SeedIngest exposes seedIngest as a messagepump.SeedIngest value.
var SeedIngest messagepump.SeedIngest = seedIngest
