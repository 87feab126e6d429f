package packet

import (
	"fmt"

	"github.com/udisondev/la2go/internal/constants"
	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/eventsink"
	"github.com/udisondev/la2go/internal/netio"
	"github.com/udisondev/la2go/internal/protover"
	"github.com/udisondev/la2go/internal/zcodec"
)

// Begin acquires a pooled writer, writes the opcode, and — for a
// dynamic-length packet (declaredLen == 0) — reserves two placeholder
// bytes for the length Compile patches in later. This is the standard
// entry point byte-builder functions use instead of a packet subclass
// per opcode.
func Begin(opcode byte, declaredLen int) *Packet {
	capacity := declaredLen
	if capacity == 0 {
		capacity = 32
	}
	w := netio.CreateInstance(capacity)
	w.WriteU8(opcode)
	if declaredLen == 0 {
		w.Fill(2) // length placeholder, patched by Compile
	}
	return New(opcode, w, declaredLen)
}

// The byte-builder functions below each write one opcode's exact wire
// layout into a fresh Packet's Writer and return it uncompiled, ready
// for Packet.Compile.

// AccountLoginReject builds the 2-byte 0x82 rejection reply.
func AccountLoginReject(reasonCode byte) *Packet {
	p := Begin(constants.OpAccountLoginReject, constants.FixedOpcodeLengths[constants.OpAccountLoginReject])
	p.Writer().WriteU8(reasonCode)
	return p
}

// AccountLoginAck builds the variable-length 0xA8 server-list reply: a
// header followed by one 40-byte record per eventsink.ServerEntry.
func AccountLoginAck(servers []eventsink.ServerEntry) *Packet {
	p := Begin(constants.OpAccountLoginAck, 0)
	w := p.Writer()
	w.WriteU8(0x5D) // system info flag, mirrors the retail client's expectation
	w.WriteU16(uint16(len(servers)))
	for i, s := range servers {
		w.WriteU16(uint16(i))
		w.WriteASCIIFixed(s.Name, 32)
		w.WriteU8(s.FullPct)
		w.WriteI8(s.TimeZone)
		w.WriteBytes(s.IP[:])
	}
	return p
}

// PlayServerAck builds the fixed 11-byte 0x8C reply: server IP, port,
// and the freshly issued authId.
func PlayServerAck(ip [4]byte, port uint16, authID uint32) *Packet {
	p := Begin(constants.OpPlayServerAck, constants.FixedOpcodeLengths[constants.OpPlayServerAck])
	w := p.Writer()
	w.WriteBytes(ip[:])
	w.WriteU16(port)
	w.WriteU32(authID)
	return p
}

// SupportedFeatures builds the 0xB9 feature-flags reply: 3 bytes for
// pre-ExtendedSupportedFeatures clients, 5 bytes (a wider flag field)
// once that protocol bit is set (§8 scenario 2).
func SupportedFeatures(changes protover.Changes) *Packet {
	if changes.Has(protover.ExtendedSupportedFeatures) {
		p := Begin(constants.OpSupportedFeatures, 5)
		p.Writer().WriteU32(featureFlags(changes))
		return p
	}
	p := Begin(constants.OpSupportedFeatures, 3)
	p.Writer().WriteU16(uint16(featureFlags(changes)))
	return p
}

func featureFlags(changes protover.Changes) uint32 {
	var flags uint32
	if changes.Has(protover.NewHaven) {
		flags |= 1 << 7
	}
	if changes.Has(protover.StygianAbyss) {
		flags |= 1 << 13
	}
	if changes.Has(protover.HighSeas) {
		flags |= 1 << 15
	}
	return flags
}

// CharacterList builds the 0xA9 reply in either format, selected by
// whether the connection's ProtocolChanges has NewCharacterList set
// (§4.8 step 5, §6).
func CharacterList(chars []eventsink.CharacterEntry, changes protover.Changes) *Packet {
	p := Begin(constants.OpCharacterList, 0)
	w := p.Writer()
	w.WriteU8(uint8(len(chars)))
	for _, c := range chars {
		w.WriteASCIIFixed(c.Name, 30)
		w.WriteASCIIFixed("", 30) // password slot, unused since SA-era clients
		w.Fill(4)                 // character slot/flags
		if changes.Has(protover.NewCharacterList) {
			w.Fill(4) // extra last-login timestamp field, newer format only
		}
	}
	w.WriteU8(0) // flags
	if changes.Has(protover.NewCharacterCreation) {
		w.WriteU32(0) // max characters allowed, newer format only
	}
	return p
}

// PingAck builds the 2-byte 0x73 keepalive reply, echoing the client's
// sequence byte.
func PingAck(sequence byte) *Packet {
	p := Begin(constants.OpPingAck, constants.FixedOpcodeLengths[constants.OpPingAck])
	p.Writer().WriteU8(sequence)
	return p
}

// MovementAck builds the 3-byte 0x22 movement acknowledgement.
func MovementAck(sequence byte, notoriety byte) *Packet {
	p := Begin(constants.OpMovementAck, constants.FixedOpcodeLengths[constants.OpMovementAck])
	w := p.Writer()
	w.WriteU8(sequence)
	w.WriteU8(notoriety)
	return p
}

// EquipUpdate builds the 15-byte 0x2E equip-update packet describing one
// item now worn by a mobile.
func EquipUpdate(item *entity.Item, wearer entity.Serial, layer uint8) *Packet {
	p := Begin(constants.OpEquipUpdate, constants.FixedOpcodeLengths[constants.OpEquipUpdate])
	w := p.Writer()
	w.WriteU32(uint32(item.Serial()))
	w.WriteU16(0) // item id, owned by game-logic's item table
	w.WriteU8(0)  // padding
	w.WriteU8(layer)
	w.WriteU32(uint32(wearer))
	w.WriteU16(item.Hue())
	return p
}

// ContainerContent builds the variable-length 0x3C packet listing every
// item inside a container, honoring the grid-lines layout once
// ContainerGridLines is set (§3, §6).
func ContainerContent(containerSerial entity.Serial, items []*entity.Item, changes protover.Changes) *Packet {
	p := Begin(constants.OpContainerContent, 0)
	w := p.Writer()
	w.WriteU16(uint16(len(items)))
	for _, it := range items {
		w.WriteU32(uint32(it.Serial()))
		w.WriteU16(0) // item id
		w.WriteU8(0)  // signed offset, unused for fresh placement
		w.WriteU16(it.Amount())
		x, y, _ := it.Position()
		w.WriteI16(x)
		w.WriteI16(y)
		if changes.Has(protover.ContainerGridLines) {
			w.WriteU8(0) // grid slot index
		}
		w.WriteU32(uint32(containerSerial))
		w.WriteU16(it.Hue())
	}
	return p
}

// WorldItem builds the fixed-length 0xF3 item-on-ground packet: 24 bytes
// pre-HighSeas, 26 bytes once that protocol bit is set.
func WorldItem(it *entity.Item, changes protover.Changes) *Packet {
	length := 24
	if changes.Has(protover.HighSeas) {
		length = 26
	}
	p := Begin(constants.OpWorldItem, length)
	w := p.Writer()
	w.WriteU16(0) // command, always "add item" for this builder
	w.WriteU8(0)  // data type: item
	w.WriteU32(uint32(it.Serial()))
	w.WriteU16(0) // item id
	w.WriteU8(0)  // signed offset
	w.WriteU16(it.Amount())
	w.WriteU16(it.Amount()) // amount, repeated
	x, y, z := it.Position()
	w.WriteI16(x)
	w.WriteI16(y)
	if changes.Has(protover.HighSeas) {
		w.WriteU16(0) // extended amount field
	}
	w.WriteI8(z)
	w.WriteU8(0) // light/direction
	w.WriteU16(it.Hue())
	w.WriteU8(0) // flags
	return p
}

// DisplayGump builds the 0xB0 (uncompressed) gump layout packet: a
// header plus length-prefixed layout and text-line strings.
func DisplayGump(gumpID, typeID uint32, x, y int32, layout string, textLines []string) *Packet {
	p := Begin(constants.OpDisplayGump, 0)
	w := p.Writer()
	w.WriteU32(0) // mobile serial, set by caller via a wrapping builder
	w.WriteU32(gumpID)
	w.WriteU32(typeID)
	w.WriteI32(x)
	w.WriteI32(y)
	w.WriteU16(uint16(len(layout) + 1))
	w.WriteASCIIFixed(layout, len(layout)+1)
	w.WriteU16(uint16(len(textLines)))
	for _, t := range textLines {
		w.WriteU16(uint16(len(t)))
		w.WriteUTF16BEFixed(t, len(t))
	}
	return p
}

// DisplayGumpPacked builds the 0xDD compressed gump layout packet: same
// fields as DisplayGump, but the layout and text blocks are each
// zlib-compressed with their uncompressed length recorded first, per
// retail's PackedMobileGump layout.
func DisplayGumpPacked(gumpID, typeID uint32, x, y int32, layout string, textLines []string) (*Packet, error) {
	p := Begin(constants.OpDisplayGumpPacked, 0)
	w := p.Writer()
	w.WriteU32(0) // mobile serial, set by caller via a wrapping builder
	w.WriteU32(gumpID)
	w.WriteU32(typeID)
	w.WriteI32(x)
	w.WriteI32(y)

	rawLayout := asciiNulTerminated(layout)
	compLayout, err := zcodec.Pack(rawLayout)
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("packet: compressing gump layout: %w", err)
	}
	w.WriteU32(uint32(len(rawLayout)))
	w.WriteU32(uint32(len(compLayout)))
	w.WriteBytes(compLayout)

	w.WriteU32(uint32(len(textLines)))

	textBuf := netio.CreateInstance(256)
	for _, t := range textLines {
		textBuf.WriteUTF16BEFixed(t, len(t)+1)
	}
	rawText := append([]byte(nil), textBuf.Bytes()...)
	netio.ReleaseInstance(textBuf)

	compText, err := zcodec.Pack(rawText)
	if err != nil {
		p.Release()
		return nil, fmt.Errorf("packet: compressing gump text: %w", err)
	}
	w.WriteU32(uint32(len(rawText)))
	w.WriteU32(uint32(len(compText)))
	w.WriteBytes(compText)

	return p, nil
}

func asciiNulTerminated(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// UpdateSecureTrade builds the 0x6F broadcast sent to both sides of a
// trade after a cancel/check/gold-and-plat update (§4.10).
func UpdateSecureTrade(tradeContainer entity.Serial, action byte, gold1, plat1, gold2, plat2 uint32) *Packet {
	p := Begin(constants.OpSecureTrade, 0)
	w := p.Writer()
	w.WriteU8(action)
	w.WriteU32(uint32(tradeContainer))
	w.WriteU32(gold1)
	w.WriteU32(plat1)
	w.WriteU32(gold2)
	w.WriteU32(plat2)
	return p
}

// NewStyleLoginSeed builds the 21-byte 0xEF packet a server never sends
// (client-originated), kept here only so tests can synthesize a valid
// inbound frame without duplicating the layout.
func NewStyleLoginSeed(seed uint32, major, minor, revision, patch byte) []byte {
	w := netio.CreateInstance(21)
	defer netio.ReleaseInstance(w)
	w.WriteU8(constants.OpNewLoginSeed)
	w.WriteU32(seed)
	w.WriteU8(major)
	w.WriteU8(minor)
	w.WriteU8(revision)
	w.WriteU8(patch)
	w.Fill(12)
	out := make([]byte, w.Len())
	copy(out, w.Bytes())
	return out
}
