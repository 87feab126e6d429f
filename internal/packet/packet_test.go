package packet

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/udisondev/la2go/internal/netio"
)

func TestCompileDynamicLengthPatchesHeader(t *testing.T) {
	p := Begin(0x3C, 0)
	p.Writer().WriteU8(1)
	p.Writer().WriteU8(2)
	p.Writer().WriteU8(3)

	buf, n := p.Compile(false)
	require.Equal(t, 6, n) // opcode + 2-byte length + 3 body bytes
	assert.Equal(t, byte(0x3C), buf[0])
	assert.Equal(t, uint16(6), binary.BigEndian.Uint16(buf[1:3]))
	assert.Equal(t, []byte{1, 2, 3}, buf[3:6])
}

func TestCompileIsIdempotent(t *testing.T) {
	p := Begin(0x73, 2)
	p.Writer().WriteU8(0x01)

	buf1, n1 := p.Compile(false)
	buf2, n2 := p.Compile(false)
	assert.Same(t, &buf1[0], &buf2[0])
	assert.Equal(t, n1, n2)
	assert.True(t, p.StateBits().Has(StateWarned))
}

func TestCompileCompressesWhenRequested(t *testing.T) {
	p := Begin(0x73, 2)
	p.Writer().WriteU8(0x01)

	buf, n := p.Compile(true)
	require.Greater(t, n, 0)
	assert.True(t, p.StateBits().Has(StateAcquired))
	assert.NotNil(t, buf)
}

func TestStaticPacketNeverReleases(t *testing.T) {
	p := NewStatic(0xB9, 2, func(w *netio.Writer) {
		w.WriteU8(0xB9)
		w.WriteU8(0x00)
	})
	buf, n := p.Compile(false)
	require.Equal(t, 2, n)
	p.Release() // no-op for static packets
	buf2, n2 := p.Compile(false)
	assert.Equal(t, buf, buf2)
	assert.Equal(t, n, n2)
}

func TestReleaseReturnsBufferedPacketToPool(t *testing.T) {
	p := Begin(0x73, 2)
	p.Writer().WriteU8(0x01)
	_, _ = p.Compile(false)
	require.True(t, p.StateBits().Has(StateBuffered))
	p.Release()
	assert.False(t, p.fromPool)
}
