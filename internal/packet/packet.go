// Package packet implements the outbound frame type compiled from a
// netio.Writer into a send-ready byte slice, using byte-builder functions
// that write into a Packet's Writer and a single compile step rather than
// a struct-per-opcode hierarchy.
package packet

import (
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/udisondev/la2go/internal/bufpool"
	"github.com/udisondev/la2go/internal/constants"
	"github.com/udisondev/la2go/internal/huffman"
	"github.com/udisondev/la2go/internal/netio"
)

// State is the compile-state bitset tracked per Packet.
type State uint8

const (
	// StateInactive is the zero value: not yet compiled.
	StateInactive State = 0
	StateStatic   State = 1 << iota
	StateAcquired
	StateAccessed
	StateBuffered
	StateWarned
)

func (s State) Has(bit State) bool { return s&bit != 0 }

var (
	// packetBufPool hands out the pooled 4KB destination buffers compiled
	// packets copy into when the compiled length fits (§4.5 step 3).
	packetBufPool = bufpool.New("packet-compiled", constants.PooledPacketBufferSize, 64)
	// scratchPool hands out the dedicated 64KB Huffman scratch buffers.
	scratchPool = bufpool.New("huffman-scratch", constants.HuffmanScratchBufSize, 16)
)

// Packet is an outbound frame under construction via w, compiled at most
// once into a send-ready buffer. Static packets (built once at process
// startup and shared across every connection, e.g. the character-list
// header) are never released back to a pool; per-call packets are.
type Packet struct {
	mu sync.Mutex

	opcode        byte
	dynamicLength bool // true if declared with length 0 (patched at compile time)
	declaredLen   int  // expected final length, when not dynamic
	static        bool

	writer *netio.Writer // source writer; released into its pool after compile

	state       State
	compiled    []byte
	compiledLen int
	fromPool    bool // compiled buffer came from packetBufPool, must be released there
}

// New starts a per-call packet. If declaredLen is 0 the packet is
// dynamic-length: compile() seeks back to offset 1 and patches in the
// final big-endian u16 length once the writer is done.
func New(opcode byte, w *netio.Writer, declaredLen int) *Packet {
	return &Packet{
		opcode:        opcode,
		writer:        w,
		dynamicLength: declaredLen == 0,
		declaredLen:   declaredLen,
	}
}

// NewStatic starts a static packet: shared across every connection and
// compiled at most once, never released back to a pool. build receives a
// fresh Writer and is responsible for writing the opcode, any dynamic-
// length placeholder bytes, and the body, exactly as a per-call builder
// would. The compress argument of the first Compile call fixes the cached
// result, since a shared buffer cannot serve both a compressed and an
// uncompressed connection — callers needing both variants construct two
// static packets.
func NewStatic(opcode byte, declaredLen int, build func(w *netio.Writer)) *Packet {
	w := netio.NewWriter(max(declaredLen, 16))
	build(w)
	return &Packet{
		opcode:        opcode,
		writer:        w,
		dynamicLength: declaredLen == 0,
		declaredLen:   declaredLen,
		static:        true,
		state:         StateStatic,
	}
}

// Writer exposes the underlying writer for byte-builder functions to
// populate before the first Compile call.
func (p *Packet) Writer() *netio.Writer { return p.writer }

// Compile is idempotent per instance (§4.5). The first call performs the
// length patch, optional Huffman compression, and buffer sizing decision;
// subsequent calls on a non-static packet log a one-shot warning and
// return the cached result. Static packets simply return their cached
// result on every call after the first, silently.
func (p *Packet) Compile(compress bool) ([]byte, int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state |= StateAccessed

	if p.state.Has(StateAcquired) {
		if !p.static && !p.state.Has(StateWarned) {
			p.state |= StateWarned
			slog.Warn("packet: repeated compile on non-static packet, returning cached buffer",
				slog.Int("opcode", int(p.opcode)))
		}
		return p.compiled, p.compiledLen
	}

	if p.dynamicLength {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(p.writer.Len()))
		p.writer.WriteAt(constants.FramedLengthOffset, lenBuf[:])
	} else if p.writer.Len() != p.declaredLen {
		slog.Warn("packet: compiled length does not match declared fixed length",
			slog.Int("opcode", int(p.opcode)),
			slog.Int("declared", p.declaredLen),
			slog.Int("actual", p.writer.Len()))
	}

	raw := p.writer.Bytes()

	var out []byte
	var n int
	if compress {
		scratch := scratchPool.Acquire()
		encoded, ok := huffman.Encode(raw, scratch)
		if !ok {
			slog.Error("packet: huffman overflow during compile, dropping packet",
				slog.Int("opcode", int(p.opcode)), slog.Int("rawLen", len(raw)))
			scratchPool.Release(scratch)
			netio.ReleaseInstance(p.writer)
			p.writer = nil
			p.state |= StateAcquired
			return nil, 0
		}
		out, n = p.sizeAndCopy(scratch[:encoded])
		scratchPool.Release(scratch)
	} else {
		out, n = p.sizeAndCopy(raw)
	}

	netio.ReleaseInstance(p.writer)
	p.writer = nil

	p.compiled = out
	p.compiledLen = n
	p.state |= StateAcquired
	return out, n
}

// sizeAndCopy copies src into a pooled 4KB buffer when it fits and the
// packet isn't static (so the pool entry can be reclaimed on Release), or
// a freshly allocated buffer otherwise (§4.5 step 3).
func (p *Packet) sizeAndCopy(src []byte) ([]byte, int) {
	if !p.static && len(src) <= constants.PooledPacketBufferSize {
		buf := packetBufPool.Acquire()
		copy(buf, src)
		p.state |= StateBuffered
		p.fromPool = true
		return buf, len(src)
	}
	out := make([]byte, len(src))
	copy(out, src)
	return out, len(src)
}

// Release returns a buffered packet's compiled buffer to its pool. Static
// packets are never released (they live until process shutdown); a
// not-yet-compiled or non-buffered packet is a no-op.
func (p *Packet) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.static || !p.fromPool || p.compiled == nil {
		return
	}
	packetBufPool.Release(p.compiled)
	p.compiled = nil
	p.compiledLen = 0
	p.fromPool = false
}

// Opcode returns the packet's leading opcode byte.
func (p *Packet) Opcode() byte { return p.opcode }

// StateBits returns the current compile-state bitset, for diagnostics/tests.
func (p *Packet) StateBits() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
