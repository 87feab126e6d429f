// Package constants holds the wire-format and protocol-version constants
// that are baked into the client/server binary protocol.
package constants

// Serial range boundary: mobiles occupy the low half of the 32-bit
// serial space, items the high half.
const (
	SerialItemBoundary uint32 = 0x40000000
	SerialMinusOne     uint32 = 0xFFFFFFFF
	SerialZero         uint32 = 0x00000000
)

// ByteQueue growth constants (§4.2).
const (
	ByteQueueInitialCapacity = 2048
	byteQueueGrowAlign       = 2047 // (size+need+2047) &^ 2047
)

// ByteQueueGrowAlignMask is the alignment mask netio's ByteQueue growth
// formula applies; the formula itself lives in netio to avoid a
// constants↔netio import cycle.
const ByteQueueGrowAlignMask = byteQueueGrowAlign

// Packet framing (§6).
const (
	MaxPacketSize     = 65535
	FramedLengthOffset = 1 // u16 BE length at offset 1, includes opcode+length itself
	MinFramedLength   = 3
)

// Huffman compressor thresholds (§4.3).
const (
	HuffmanOutputBufferBits = 65536 * 8
	// definiteOverflow = (65536*8 - 4) / 2
	HuffmanDefiniteOverflowBits = (HuffmanOutputBufferBits - 4) / 2
	// soft overflow informs diagnostics only
	HuffmanSoftOverflowBits = (HuffmanOutputBufferBits - 4) / 11
	HuffmanTerminalSymbol   = 0x100
	HuffmanMinCodeLen       = 2
	HuffmanMaxCodeLen       = 11
)

// Pooled buffer sizing (§4.1, §4.5).
const (
	PooledPacketBufferSize = 4096
	HuffmanScratchBufSize  = 65536
)

// SendQueue (§4.6).
const (
	DefaultCoalesceBufferSize = 512
	SendQueueCapacityBytes    = 256 * 1024
)

// Listener (§4.7).
const (
	DefaultListenBacklog = 8
)

// NetState pre-login opcode allowlist (§4.8 step 2).
var PreLoginAllowedOpcodes = map[byte]struct{}{
	0xF0: {}, 0xF1: {}, 0xCF: {}, 0x80: {}, 0x91: {}, 0xA4: {}, 0xEF: {},
}

// NetState caps (§4.8).
const (
	DefaultGumpCap        = 512
	DefaultHuePickerCap   = 512
	DefaultMenuCap        = 512
	DefaultSecureTradeCap = 1
	AuthIDWindowSize      = 128
)

// Timeouts (§4.8, §5).
const (
	ActivityTimeoutSeconds    = 90
	LoginTimerIntervalSeconds = 1
	DisposalSweepBatchSize    = 200
)

// Opcode catalogue (§6, representative subset whose exact byte layouts
// this repo preserves).
const (
	OpCreateCharacter   byte = 0x00
	OpMovementRequest   byte = 0x02
	OpASCIISpeech       byte = 0x03
	OpDoubleClick       byte = 0x06
	OpLiftRequest       byte = 0x07
	OpDropRequest       byte = 0x08
	OpMovementAck       byte = 0x22
	OpEquipUpdate       byte = 0x2E
	OpContainerContent  byte = 0x3C
	OpTargetResponse    byte = 0x6C
	OpSecureTrade       byte = 0x6F
	OpPingAck           byte = 0x73
	OpAccountLogin      byte = 0x80
	OpAccountLoginReject byte = 0x82
	OpPlayServerAck     byte = 0x8C
	OpGameLogin         byte = 0x91
	OpAccountLoginAck   byte = 0xA8
	OpCharacterList     byte = 0xA9
	OpPlayServer        byte = 0xA0
	OpDisplayGump       byte = 0xB0
	OpDisplayGumpPacked byte = 0xDD
	OpExtended          byte = 0xBF
	OpEncodedExtended   byte = 0xD7
	OpNewLoginSeed      byte = 0xEF
	OpWorldItem         byte = 0xF3
	OpSupportedFeatures byte = 0xB9
)

// Fixed lengths for the representative opcodes above, where fixed (§6).
// 0 means variable-length (u16 BE framed length at offset 1).
var FixedOpcodeLengths = map[byte]int{
	OpCreateCharacter:    104,
	OpMovementRequest:    7,
	OpMovementAck:        3,
	OpDoubleClick:        5,
	OpLiftRequest:        7,
	OpDropRequest:        14,
	OpEquipUpdate:        15,
	OpTargetResponse:     19,
	OpPingAck:            2,
	OpAccountLogin:       62,
	OpAccountLoginReject: 2,
	OpPlayServerAck:      11,
	OpGameLogin:          65,
	OpNewLoginSeed:       21,
	OpPlayServer:         3,
}

// ProtocolVersionThresholds, in ascending order, each implying every earlier
// bit (§3, §6). Encoded as (major<<24 | minor<<16 | revision<<8 | patch).
type ProtocolVersion uint32

func MakeVersion(major, minor, revision, patch byte) ProtocolVersion {
	return ProtocolVersion(uint32(major)<<24 | uint32(minor)<<16 | uint32(revision)<<8 | uint32(patch))
}

var (
	Version400a    = MakeVersion(4, 0, 0, 0)  // 4.0.0a
	Version407a    = MakeVersion(4, 0, 7, 0)  // 4.0.7a
	Version500a    = MakeVersion(5, 0, 0, 0)  // 5.0.0a
	Version502b    = MakeVersion(5, 0, 2, 2)  // 5.0.2b
	Version6000    = MakeVersion(6, 0, 0, 0)
	Version6017    = MakeVersion(6, 0, 1, 7)
	Version601402  = MakeVersion(6, 0, 14, 2)
	Version7000    = MakeVersion(7, 0, 0, 0)
	Version7090    = MakeVersion(7, 0, 9, 0)
	Version70130   = MakeVersion(7, 0, 13, 0)
	Version70160   = MakeVersion(7, 0, 16, 0)
	Version70300   = MakeVersion(7, 0, 30, 0)
	Version703301  = MakeVersion(7, 0, 33, 1)
	Version7004565 = MakeVersion(7, 0, 45, 65)
)
