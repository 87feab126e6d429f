package netio

import (
	"encoding/binary"
	"unicode/utf16"
)

// Reader is a tolerant, cursor-based big-endian decoder over a byte slice.
// Out-of-range reads return the primitive's zero value instead of panicking
// or erroring, so a malformed/short packet degrades gracefully rather than
// crashing the tick thread. Fixed-length string reads always advance the
// cursor by the declared length.
type Reader struct {
	data []byte
	pos  int
}

// NewReader wraps data for reading from offset 0.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current read offset.
func (r *Reader) Position() int { return r.pos }

// Remaining returns the number of unread bytes (0 if the cursor has run
// past the end — never negative).
func (r *Reader) Remaining() int {
	if r.pos >= len(r.data) {
		return 0
	}
	return len(r.data) - r.pos
}

// Seek moves the cursor to an absolute offset, clamped to [0, len(data)].
func (r *Reader) Seek(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(r.data) {
		pos = len(r.data)
	}
	r.pos = pos
}

func (r *Reader) take(n int) []byte {
	if n <= 0 {
		return nil
	}
	if r.pos+n > len(r.data) {
		// Tolerant: advance to the end and return what remains (possibly
		// less than requested) so fixed-width readers can zero-pad.
		avail := r.data[r.pos:]
		r.pos = len(r.data)
		return avail
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// ReadU8 reads one byte, or 0 if exhausted.
func (r *Reader) ReadU8() uint8 {
	b := r.take(1)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// ReadI8 reads one signed byte, or 0 if exhausted.
func (r *Reader) ReadI8() int8 { return int8(r.ReadU8()) }

// ReadBool reads one byte as a boolean (nonzero = true).
func (r *Reader) ReadBool() bool { return r.ReadU8() != 0 }

// ReadU16 reads a big-endian uint16, zero-padding short input.
func (r *Reader) ReadU16() uint16 {
	var tmp [2]byte
	copy(tmp[:], r.take(2))
	return binary.BigEndian.Uint16(tmp[:])
}

// ReadI16 reads a big-endian int16.
func (r *Reader) ReadI16() int16 { return int16(r.ReadU16()) }

// ReadU32 reads a big-endian uint32, zero-padding short input.
func (r *Reader) ReadU32() uint32 {
	var tmp [4]byte
	copy(tmp[:], r.take(4))
	return binary.BigEndian.Uint32(tmp[:])
}

// ReadI32 reads a big-endian int32.
func (r *Reader) ReadI32() int32 { return int32(r.ReadU32()) }

// ReadBytes reads exactly n bytes, zero-padding if the input is short. The
// returned slice is always freshly allocated (never aliases the input),
// since callers frequently retain these slices past the packet's lifetime.
func (r *Reader) ReadBytes(n int) []byte {
	out := make([]byte, n)
	copy(out, r.take(n))
	return out
}

// Skip advances the cursor by n bytes without reading (e.g. reserved
// fields), clamped to the end of the buffer.
func (r *Reader) Skip(n int) { r.take(n) }

// ReadASCIIFixed reads exactly n bytes and decodes them as ASCII, stopping
// at the first NUL. The cursor always advances by exactly n regardless of
// where the NUL (if any) was found (§4.4).
func (r *Reader) ReadASCIIFixed(n int) string {
	b := r.take(n)
	if nulAt := indexByte(b, 0); nulAt >= 0 {
		b = b[:nulAt]
	}
	return string(b)
}

// ReadASCIINul reads bytes up to (and consuming) the next NUL, or to the
// end of the buffer if none is found.
func (r *Reader) ReadASCIINul() string {
	start := r.pos
	for r.pos < len(r.data) && r.data[r.pos] != 0 {
		r.pos++
	}
	out := string(r.data[start:r.pos])
	if r.pos < len(r.data) {
		r.pos++ // consume the NUL
	}
	return out
}

// ReadASCIIFixedSafe is the "safe" variant of ReadASCIIFixed: bytes
// outside [0x20, 0xFFFE) are dropped rather than included (§4.4). Since
// ASCII bytes never reach 0xFFFE, this in practice drops control bytes
// below 0x20.
func (r *Reader) ReadASCIIFixedSafe(n int) string {
	b := r.take(n)
	if nulAt := indexByte(b, 0); nulAt >= 0 {
		b = b[:nulAt]
	}
	return string(filterSafeBytes(b))
}

// ReadASCIINulSafe is the safe variant of ReadASCIINul.
func (r *Reader) ReadASCIINulSafe() string {
	start := r.pos
	for r.pos < len(r.data) && r.data[r.pos] != 0 {
		r.pos++
	}
	out := filterSafeBytes(r.data[start:r.pos])
	if r.pos < len(r.data) {
		r.pos++
	}
	return string(out)
}

func filterSafeBytes(b []byte) []byte {
	out := b[:0:0]
	for _, c := range b {
		if c >= 0x20 {
			out = append(out, c)
		}
	}
	return out
}

// ReadUTF16LEFixed reads exactly n*2 bytes and decodes as UTF-16LE,
// stopping at the first NUL code unit. Cursor always advances by n*2.
func (r *Reader) ReadUTF16LEFixed(n int) string {
	return r.readUTF16Fixed(n, binary.LittleEndian, false)
}

// ReadUTF16BEFixed reads exactly n*2 bytes and decodes as UTF-16BE,
// stopping at the first NUL code unit. Cursor always advances by n*2.
func (r *Reader) ReadUTF16BEFixed(n int) string {
	return r.readUTF16Fixed(n, binary.BigEndian, false)
}

// ReadUTF16LEFixedSafe is the "safe" variant of ReadUTF16LEFixed: code
// points outside [0x20, 0xFFFE) are dropped rather than included (§4.4).
func (r *Reader) ReadUTF16LEFixedSafe(n int) string {
	return r.readUTF16Fixed(n, binary.LittleEndian, true)
}

// ReadUTF16BEFixedSafe is the "safe" variant of ReadUTF16BEFixed.
func (r *Reader) ReadUTF16BEFixedSafe(n int) string {
	return r.readUTF16Fixed(n, binary.BigEndian, true)
}

type byteOrder interface {
	Uint16([]byte) uint16
}

func (r *Reader) readUTF16Fixed(n int, order byteOrder, safe bool) string {
	raw := r.take(n * 2)
	units := make([]uint16, 0, n)
	for i := 0; i+1 < len(raw); i += 2 {
		u := order.Uint16(raw[i : i+2])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	if safe {
		units = filterSafeUnits(units)
	}
	return string(utf16.Decode(units))
}

// ReadUTF16LENul reads UTF-16LE code units until a NUL terminator or the
// end of the buffer.
func (r *Reader) ReadUTF16LENul() string { return r.readUTF16Nul(binary.LittleEndian, false) }

// ReadUTF16BENul reads UTF-16BE code units until a NUL terminator or the
// end of the buffer.
func (r *Reader) ReadUTF16BENul() string { return r.readUTF16Nul(binary.BigEndian, false) }

// ReadUTF16LENulSafe is the safe variant of ReadUTF16LENul.
func (r *Reader) ReadUTF16LENulSafe() string { return r.readUTF16Nul(binary.LittleEndian, true) }

// ReadUTF16BENulSafe is the safe variant of ReadUTF16BENul.
func (r *Reader) ReadUTF16BENulSafe() string { return r.readUTF16Nul(binary.BigEndian, true) }

func (r *Reader) readUTF16Nul(order byteOrder, safe bool) string {
	units := make([]uint16, 0, 16)
	for r.pos+1 < len(r.data) {
		u := order.Uint16(r.data[r.pos : r.pos+2])
		r.pos += 2
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	if safe {
		units = filterSafeUnits(units)
	}
	return string(utf16.Decode(units))
}

// filterSafeUnits drops UTF-16 code units outside [0x20, 0xFFFE), per the
// "safe" string-read contract of §4.4.
func filterSafeUnits(units []uint16) []uint16 {
	out := units[:0:0]
	for _, u := range units {
		if u >= 0x20 && u < 0xFFFE {
			out = append(out, u)
		}
	}
	return out
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
