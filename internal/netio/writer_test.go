package netio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterPrimitivesRoundTrip(t *testing.T) {
	w := NewWriter(32)
	w.WriteU8(0xAB)
	w.WriteI8(-1)
	w.WriteBool(true)
	w.WriteU16(0x1234)
	w.WriteI16(-2)
	w.WriteU32(0xDEADBEEF)
	w.WriteI32(-100)

	r := NewReader(w.Bytes())
	assert.Equal(t, uint8(0xAB), r.ReadU8())
	assert.Equal(t, int8(-1), r.ReadI8())
	assert.True(t, r.ReadBool())
	assert.Equal(t, uint16(0x1234), r.ReadU16())
	assert.Equal(t, int16(-2), r.ReadI16())
	assert.Equal(t, uint32(0xDEADBEEF), r.ReadU32())
	assert.Equal(t, int32(-100), r.ReadI32())
}

func TestWriterBigEndianByteOrder(t *testing.T) {
	w := NewWriter(4)
	w.WriteU16(0x0102)
	assert.Equal(t, []byte{0x01, 0x02}, w.Bytes())
}

func TestWriterFill(t *testing.T) {
	w := NewWriter(8)
	w.WriteU8(1)
	w.Fill(4)
	w.WriteU8(2)
	assert.Equal(t, []byte{1, 0, 0, 0, 0, 2}, w.Bytes())
}

func TestASCIIFixedRoundTrip(t *testing.T) {
	w := NewWriter(16)
	w.WriteASCIIFixed("hi", 8)
	r := NewReader(w.Bytes())
	assert.Equal(t, "hi", r.ReadASCIIFixed(8))
	assert.Equal(t, 8, r.Position())
}

func TestASCIINulRoundTrip(t *testing.T) {
	w := NewWriter(16)
	w.WriteASCIINul("abc")
	w.WriteU8(0xFF) // sentinel after
	r := NewReader(w.Bytes())
	assert.Equal(t, "abc", r.ReadASCIINul())
	assert.Equal(t, uint8(0xFF), r.ReadU8())
}

func TestUTF16LEFixedRoundTrip(t *testing.T) {
	w := NewWriter(32)
	w.WriteUTF16LEFixed("hi", 10)
	r := NewReader(w.Bytes())
	assert.Equal(t, "hi", r.ReadUTF16LEFixed(10))
	assert.Equal(t, 20, r.Position())
}

func TestUTF16SafeDropsOutOfRangeCodePoints(t *testing.T) {
	w := NewWriter(32)
	// 0x1F (below 0x20, excluded), 'A' (0x41, included), 0xFFFE (excluded)
	w.WriteUTF16LEFixed(string([]rune{0x1F, 'A', 0xFFFE}), 10)
	r := NewReader(w.Bytes())
	assert.Equal(t, "A", r.ReadUTF16LEFixedSafe(10))
}

func TestPooledWriterDoubleReleaseIsRejected(t *testing.T) {
	w := CreateInstance(16)
	w.WriteU8(1)
	ReleaseInstance(w)
	// Second release must not panic and must be a silent no-op (logged once).
	ReleaseInstance(w)
}

func TestReaderToleratesShortInput(t *testing.T) {
	r := NewReader([]byte{0x01})
	assert.Equal(t, uint8(1), r.ReadU8())
	// Reading past the end returns zero values, not an error/panic.
	assert.Equal(t, uint32(0), r.ReadU32())
	assert.Equal(t, 0, r.Remaining())
}

func TestFixedStringReaderAdvancesExactLength(t *testing.T) {
	data := []byte{'h', 'i', 0, 0, 0xFF}
	r := NewReader(data)
	s := r.ReadASCIIFixed(4)
	require.Equal(t, "hi", s)
	assert.Equal(t, 4, r.Position())
	assert.Equal(t, uint8(0xFF), r.ReadU8())
}
