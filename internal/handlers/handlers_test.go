package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupFallsBackToBaseWhenNoOverride(t *testing.T) {
	tbl := New()
	base := &Entry{FixedLength: 7}
	tbl.Register(0x02, base)

	e, ok := tbl.Lookup(0x02, true)
	require.True(t, ok)
	assert.Same(t, base, e)
}

func TestLookupPrefersOverrideTableWhenSet(t *testing.T) {
	tbl := New()
	tbl.Register(0x02, &Entry{FixedLength: 7})
	override := &Entry{FixedLength: 9}
	tbl.RegisterPost6017(0x02, override)

	e, ok := tbl.Lookup(0x02, true)
	require.True(t, ok)
	assert.Same(t, override, e)

	e2, ok := tbl.Lookup(0x02, false)
	require.True(t, ok)
	assert.NotSame(t, override, e2)
}

func TestExtendedSubOpcodeDispatchLowAndSparse(t *testing.T) {
	tbl := New()
	low := &Entry{}
	sparse := &Entry{}
	tbl.RegisterExtended(0x05, low)
	tbl.RegisterExtended(0x0150, sparse)

	e, ok := tbl.LookupExtended(0x05)
	require.True(t, ok)
	assert.Same(t, low, e)

	e2, ok := tbl.LookupExtended(0x0150)
	require.True(t, ok)
	assert.Same(t, sparse, e2)

	_, ok = tbl.LookupExtended(0x0151)
	assert.False(t, ok)
}

func TestEncodedSubOpcodeDispatch(t *testing.T) {
	tbl := New()
	e := &Entry{}
	tbl.RegisterEncoded(0x28, e)

	got, ok := tbl.LookupEncoded(0x28)
	require.True(t, ok)
	assert.Same(t, e, got)
}
