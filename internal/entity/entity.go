package entity

import "github.com/udisondev/la2go/internal/netio"

// Entity is the serializable world-object contract shared by Item,
// Mobile, and Guild. TypeRef is the dense integer the Registry assigned
// to this entity's concrete type when that type was registered at
// startup, stable across saves while registration order is unchanged.
type Entity interface {
	Serial() Serial
	TypeRef() int32
	Serialize(w *netio.Writer)
	Deserialize(r *netio.Reader) error
}

// BaseEntity carries the fields every concrete entity embeds: its Serial
// and the typeRef resolved for its concrete Go type via the registry.
type BaseEntity struct {
	serial  Serial
	typeRef int32
}

func NewBaseEntity(serial Serial, typeRef int32) BaseEntity {
	return BaseEntity{serial: serial, typeRef: typeRef}
}

func (b BaseEntity) Serial() Serial  { return b.serial }
func (b BaseEntity) TypeRef() int32  { return b.typeRef }
