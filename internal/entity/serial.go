// Package entity implements the serializable world-object contract: a
// polymorphic Entity (Item, Mobile, Guild) identified by a Serial, plus
// the (typeFqn, factory) registry used for type reconstruction on load.
// Serial allocation follows a single atomic.Uint32 counter per half of
// the space, checked-increment-and-return.
package entity

import (
	"fmt"
	"sync/atomic"

	"github.com/udisondev/la2go/internal/constants"
)

// Serial is a 32-bit world-object identifier. Values below
// constants.SerialItemBoundary are mobiles, at or above it are items.
type Serial uint32

const (
	// SerialMinusOne is the "no entity" sentinel.
	SerialMinusOne Serial = Serial(constants.SerialMinusOne)
	// SerialZero is the "unset" sentinel.
	SerialZero Serial = Serial(constants.SerialZero)
)

// IsItem reports whether this Serial lies in the item half of the space.
func (s Serial) IsItem() bool { return uint32(s) >= constants.SerialItemBoundary }

// IsMobile reports whether this Serial lies in the mobile half of the space.
func (s Serial) IsMobile() bool { return !s.IsItem() && s != SerialMinusOne }

func (s Serial) String() string { return fmt.Sprintf("0x%08X", uint32(s)) }

// Generator hands out fresh, unique Serials for newly created entities,
// one monotonic counter per half of the space.
type Generator struct {
	nextMobile atomic.Uint32
	nextItem   atomic.Uint32
}

// NewGenerator seeds both counters. Callers loading an existing world
// should seed past the highest Serial found in the index so freshly
// created entities never collide with a loaded one.
func NewGenerator(firstMobile, firstItem uint32) *Generator {
	g := &Generator{}
	g.nextMobile.Store(firstMobile)
	g.nextItem.Store(firstItem)
	return g
}

// NextMobile returns a fresh mobile-half Serial.
func (g *Generator) NextMobile() Serial {
	return Serial(g.nextMobile.Add(1) - 1)
}

// NextItem returns a fresh item-half Serial, offset into the item half of
// the space regardless of the counter's raw value.
func (g *Generator) NextItem() Serial {
	raw := g.nextItem.Add(1) - 1
	return Serial(constants.SerialItemBoundary + raw)
}

// Observe advances the generator's counters past an already-assigned
// Serial read from an on-disk index, so later NextMobile/NextItem calls
// never re-issue it.
func (g *Generator) Observe(s Serial) {
	if s.IsItem() {
		raw := uint32(s) - constants.SerialItemBoundary
		for {
			cur := g.nextItem.Load()
			if raw < cur {
				return
			}
			if g.nextItem.CompareAndSwap(cur, raw+1) {
				return
			}
		}
	} else {
		raw := uint32(s)
		for {
			cur := g.nextMobile.Load()
			if raw < cur {
				return
			}
			if g.nextMobile.CompareAndSwap(cur, raw+1) {
				return
			}
		}
	}
}
