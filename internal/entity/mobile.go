package entity

import (
	"fmt"

	"github.com/udisondev/la2go/internal/netio"
)

// MobileTypeFqn is this type's registry key.
const MobileTypeFqn = "world.Mobile"

// Mobile is a world object occupying the mobile half of the Serial
// space: a player character or NPC.
type Mobile struct {
	BaseEntity

	version uint8
	name    string
	x, y    int16
	z       int8
	body    uint16
	hue     uint16
}

// NewMobile constructs an empty Mobile bound to serial.
func NewMobile(serial Serial, typeRef int32) *Mobile {
	return &Mobile{BaseEntity: NewBaseEntity(serial, typeRef)}
}

func (m *Mobile) Name() string { return m.name }
func (m *Mobile) SetName(v string) { m.name = v }
func (m *Mobile) Position() (x, y int16, z int8) { return m.x, m.y, m.z }
func (m *Mobile) SetPosition(x, y int16, z int8) { m.x, m.y, m.z = x, y, z }
func (m *Mobile) Body() uint16 { return m.body }
func (m *Mobile) SetBody(v uint16) { m.body = v }
func (m *Mobile) Hue() uint16 { return m.hue }
func (m *Mobile) SetHue(v uint16) { m.hue = v }

const mobileCurrentVersion = 1

func (m *Mobile) Serialize(w *netio.Writer) {
	w.WriteU8(mobileCurrentVersion)
	w.WriteU32(uint32(m.Serial()))
	w.WriteASCIINul(m.name)
	w.WriteI16(m.x)
	w.WriteI16(m.y)
	w.WriteI8(m.z)
	w.WriteU16(m.body)
	w.WriteU16(m.hue)
}

func (m *Mobile) Deserialize(r *netio.Reader) error {
	m.version = r.ReadU8()
	if m.version != mobileCurrentVersion {
		return fmt.Errorf("entity: mobile %s has unsupported version %d", m.Serial(), m.version)
	}
	_ = r.ReadU32()
	m.name = r.ReadASCIINul()
	m.x = r.ReadI16()
	m.y = r.ReadI16()
	m.z = r.ReadI8()
	m.body = r.ReadU16()
	m.hue = r.ReadU16()
	return nil
}
