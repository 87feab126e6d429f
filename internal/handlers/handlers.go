// Package handlers implements the opcode dispatch tables: a base table,
// a post-6017 override table for the same u8 space, and extended (0xBF)
// / encoded (0xD7) sub-opcode tunnels each with a low-256 array plus a
// sparse map for sub-opcodes ≥ 0x100. Dispatch is data-driven — a
// registration table keyed by opcode — rather than a growing switch
// statement.
package handlers

import (
	"github.com/udisondev/la2go/internal/netio"
	"github.com/udisondev/la2go/internal/netstate"
)

// Callback processes one fully-buffered packet body.
type Callback func(ns *netstate.NetState, r *netio.Reader)

// Throttle reports whether ns may process this packet right now; false
// defers it to next tick.
type Throttle func(ns *netstate.NetState) bool

// Entry is one opcode's registered handler metadata.
type Entry struct {
	FixedLength          int // 0 means variable-length, framed by u16 BE at offset 1
	RequiresInGameMobile bool
	Callback             Callback
	Throttle             Throttle
}

// subTable is the extended/encoded sub-opcode dispatch shape: a dense
// array for the common low sub-opcodes plus a sparse map for the rest.
type subTable struct {
	low    [256]*Entry
	sparse map[uint16]*Entry
}

func newSubTable() *subTable {
	return &subTable{sparse: make(map[uint16]*Entry)}
}

func (t *subTable) set(sub uint16, e *Entry) {
	if sub < 256 {
		t.low[sub] = e
		return
	}
	t.sparse[sub] = e
}

func (t *subTable) get(sub uint16) (*Entry, bool) {
	if sub < 256 {
		if e := t.low[sub]; e != nil {
			return e, true
		}
		return nil, false
	}
	e, ok := t.sparse[sub]
	return e, ok
}

// Table holds the base opcode table, the post-6017 override table, and
// the extended/encoded sub-opcode tunnels.
type Table struct {
	base     [256]*Entry
	post6017 [256]*Entry
	extended *subTable // tunnelled through opcode 0xBF
	encoded  *subTable // tunnelled through opcode 0xD7
}

// New builds an empty dispatch table.
func New() *Table {
	return &Table{
		extended: newSubTable(),
		encoded:  newSubTable(),
	}
}

// Register attaches e to opcode in the base table.
func (t *Table) Register(opcode byte, e *Entry) { t.base[opcode] = e }

// RegisterPost6017 attaches e to opcode in the post-6017 override table,
// consulted instead of the base table once ContainerGridLines is set.
func (t *Table) RegisterPost6017(opcode byte, e *Entry) { t.post6017[opcode] = e }

// RegisterExtended attaches e to a sub-opcode tunnelled through 0xBF.
func (t *Table) RegisterExtended(sub uint16, e *Entry) { t.extended.set(sub, e) }

// RegisterEncoded attaches e to a sub-opcode tunnelled through 0xD7.
func (t *Table) RegisterEncoded(sub uint16, e *Entry) { t.encoded.set(sub, e) }

// Lookup selects the base table, or the post-6017 table if
// useOverrideTable is set (i.e. the connection's ProtocolChanges has
// ContainerGridLines), and returns the handler entry for opcode.
func (t *Table) Lookup(opcode byte, useOverrideTable bool) (*Entry, bool) {
	if useOverrideTable {
		if e := t.post6017[opcode]; e != nil {
			return e, true
		}
	}
	if e := t.base[opcode]; e != nil {
		return e, true
	}
	return nil, false
}

// LookupExtended resolves a sub-opcode tunnelled through 0xBF.
func (t *Table) LookupExtended(sub uint16) (*Entry, bool) { return t.extended.get(sub) }

// LookupEncoded resolves a sub-opcode tunnelled through 0xD7.
func (t *Table) LookupEncoded(sub uint16) (*Entry, bool) { return t.encoded.get(sub) }
