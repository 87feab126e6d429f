package entity

import (
	"fmt"

	"github.com/udisondev/la2go/internal/netio"
)

// ItemTypeFqn is this type's registry key, a fully-qualified type name
// carried over into the .tdb format.
const ItemTypeFqn = "world.Item"

// Item is a world object occupying the item half of the Serial space: an
// inventory entry, ground object, or container.
type Item struct {
	BaseEntity

	version  uint8
	amount   uint16
	x, y     int16
	z        int8
	hue      uint16
	layer    uint8
	parent   Serial // container/mobile this item is inside, or SerialMinusOne
}

// NewItem constructs an empty Item bound to serial, ready for
// Deserialize (load path) or for field assignment followed by Serialize
// (gameplay-created path).
func NewItem(serial Serial, typeRef int32) *Item {
	return &Item{
		BaseEntity: NewBaseEntity(serial, typeRef),
		parent:     SerialMinusOne,
	}
}

func (it *Item) Amount() uint16 { return it.amount }
func (it *Item) SetAmount(v uint16) { it.amount = v }
func (it *Item) Position() (x, y int16, z int8) { return it.x, it.y, it.z }
func (it *Item) SetPosition(x, y int16, z int8) { it.x, it.y, it.z = x, y, z }
func (it *Item) Hue() uint16 { return it.hue }
func (it *Item) SetHue(v uint16) { it.hue = v }
func (it *Item) Layer() uint8 { return it.layer }
func (it *Item) SetLayer(v uint8) { it.layer = v }
func (it *Item) Parent() Serial { return it.parent }
func (it *Item) SetParent(s Serial) { it.parent = s }

const itemCurrentVersion = 1

func (it *Item) Serialize(w *netio.Writer) {
	w.WriteU8(itemCurrentVersion)
	w.WriteU32(uint32(it.Serial()))
	w.WriteU16(it.amount)
	w.WriteI16(it.x)
	w.WriteI16(it.y)
	w.WriteI8(it.z)
	w.WriteU16(it.hue)
	w.WriteU8(it.layer)
	w.WriteU32(uint32(it.parent))
}

func (it *Item) Deserialize(r *netio.Reader) error {
	it.version = r.ReadU8()
	if it.version != itemCurrentVersion {
		return fmt.Errorf("entity: item %s has unsupported version %d", it.Serial(), it.version)
	}
	_ = r.ReadU32() // serial already known from the index record
	it.amount = r.ReadU16()
	it.x = r.ReadI16()
	it.y = r.ReadI16()
	it.z = r.ReadI8()
	it.hue = r.ReadU16()
	it.layer = r.ReadU8()
	it.parent = Serial(r.ReadU32())
	return nil
}
