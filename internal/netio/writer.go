// Package netio implements the big-endian, pooled primitive I/O used by
// every outbound/inbound packet, plus the per-connection autogrowing
// ring buffer.
//
// The pooling shape is sync.Pool-backed Get/Put with a bytes.Buffer
// core, big-endian throughout, with tolerant reads, safe-string
// variants, and double-release detection.
package netio

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"sync"
	"unicode/utf16"
)

// Writer accumulates big-endian primitives into a growable buffer.
type Writer struct {
	buf      bytes.Buffer
	released bool
}

var writerPool = sync.Pool{
	New: func() any { return &Writer{} },
}

// CreateInstance pops a reset Writer from the pool, growing its backing
// buffer to at least capacity bytes.
func CreateInstance(capacity int) *Writer {
	w := writerPool.Get().(*Writer)
	w.buf.Reset()
	w.buf.Grow(capacity)
	w.released = false
	return w
}

// ReleaseInstance returns w to the pool. A double release is detected and
// rejected: a single diagnostic line is logged and the duplicate call is
// dropped silently.
func ReleaseInstance(w *Writer) {
	if w == nil {
		return
	}
	if w.released {
		slog.Error("netio: duplicate PacketWriter release detected, dropping")
		return
	}
	w.released = true
	writerPool.Put(w)
}

// NewWriter creates a standalone Writer not backed by the pool (used for
// tests and one-off buffers where pooling would be premature).
func NewWriter(capacity int) *Writer {
	w := &Writer{}
	w.buf.Grow(capacity)
	return w
}

// Reset clears the buffer for reuse without involving the pool.
func (w *Writer) Reset() {
	w.buf.Reset()
	w.released = false
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// Bytes returns the accumulated bytes (shares the writer's backing array;
// copy before calling Reset/ReleaseInstance if the caller needs to retain it).
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// WriteAt overwrites length-prefixed bytes already written, used by
// Packet.compile to patch in the final u16 length (§4.5 step 1).
func (w *Writer) WriteAt(offset int, data []byte) {
	b := w.buf.Bytes()
	if offset < 0 || offset+len(data) > len(b) {
		return
	}
	copy(b[offset:], data)
}

// WriteU8 writes an unsigned byte.
func (w *Writer) WriteU8(v uint8) { w.buf.WriteByte(v) }

// WriteI8 writes a signed byte.
func (w *Writer) WriteI8(v int8) { w.buf.WriteByte(byte(v)) }

// WriteBool writes a single byte: 1 for true, 0 for false.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf.WriteByte(1)
	} else {
		w.buf.WriteByte(0)
	}
}

// WriteU16 writes a big-endian uint16.
func (w *Writer) WriteU16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteI16 writes a big-endian int16.
func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

// WriteU32 writes a big-endian uint32.
func (w *Writer) WriteU32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

// WriteI32 writes a big-endian int32.
func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

// Fill writes n zero bytes.
func (w *Writer) Fill(n int) {
	if n <= 0 {
		return
	}
	var zero [64]byte
	for n > 0 {
		chunk := n
		if chunk > len(zero) {
			chunk = len(zero)
		}
		w.buf.Write(zero[:chunk])
		n -= chunk
	}
}

// WriteBytes writes raw bytes verbatim.
func (w *Writer) WriteBytes(b []byte) { w.buf.Write(b) }

// WriteASCIIFixed writes exactly n bytes: s truncated/padded with NUL.
func (w *Writer) WriteASCIIFixed(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	w.buf.Write(b)
}

// WriteASCIINul writes s followed by a single NUL terminator.
func (w *Writer) WriteASCIINul(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// WriteUTF16LEFixed writes exactly n*2 bytes: s encoded UTF-16LE,
// truncated/NUL-padded to n code units.
func (w *Writer) WriteUTF16LEFixed(s string, n int) {
	units := utf16.Encode([]rune(s))
	for i := range n {
		var v uint16
		if i < len(units) {
			v = units[i]
		}
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], v)
		w.buf.Write(tmp[:])
	}
}

// WriteUTF16BEFixed writes exactly n*2 bytes: s encoded UTF-16BE,
// truncated/NUL-padded to n code units.
func (w *Writer) WriteUTF16BEFixed(s string, n int) {
	units := utf16.Encode([]rune(s))
	for i := range n {
		var v uint16
		if i < len(units) {
			v = units[i]
		}
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], v)
		w.buf.Write(tmp[:])
	}
}

// WriteUTF16LENul writes s as UTF-16LE followed by a 2-byte NUL terminator.
func (w *Writer) WriteUTF16LENul(s string) {
	units := utf16.Encode([]rune(s))
	for _, u := range units {
		var tmp [2]byte
		binary.LittleEndian.PutUint16(tmp[:], u)
		w.buf.Write(tmp[:])
	}
	w.buf.Write([]byte{0, 0})
}

// WriteUTF16BENul writes s as UTF-16BE followed by a 2-byte NUL terminator.
func (w *Writer) WriteUTF16BENul(s string) {
	units := utf16.Encode([]rune(s))
	for _, u := range units {
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], u)
		w.buf.Write(tmp[:])
	}
	w.buf.Write([]byte{0, 0})
}
