package entity

import (
	"fmt"

	"github.com/udisondev/la2go/internal/netio"
)

// GuildTypeFqn is this type's registry key.
const GuildTypeFqn = "world.Guild"

// GuildID is a guild's identifier in its own namespace, distinct from
// the Serial space mobiles and items share.
type GuildID uint32

// Guild is a named collection of member Serials. It satisfies Entity so
// it can share the same (typeRef, factory, Serialize/Deserialize)
// machinery as Item and Mobile; Serial() surfaces its GuildID widened
// into the Serial type purely so dispatch code can treat all three
// kinds uniformly — the world's guild registry is keyed by GuildID, not
// by this value, and it is never compared against a real mobile/item
// Serial.
type Guild struct {
	BaseEntity

	id      GuildID
	version uint8
	name    string
	members []Serial
}

// NewGuild constructs an empty Guild bound to id.
func NewGuild(id GuildID, typeRef int32) *Guild {
	return &Guild{
		BaseEntity: NewBaseEntity(Serial(id), typeRef),
		id:         id,
	}
}

func (g *Guild) ID() GuildID { return g.id }
func (g *Guild) Name() string { return g.name }
func (g *Guild) SetName(v string) { g.name = v }
func (g *Guild) Members() []Serial { return g.members }
func (g *Guild) AddMember(s Serial) { g.members = append(g.members, s) }

const guildCurrentVersion = 1

func (g *Guild) Serialize(w *netio.Writer) {
	w.WriteU8(guildCurrentVersion)
	w.WriteU32(uint32(g.id))
	w.WriteASCIINul(g.name)
	w.WriteU32(uint32(len(g.members)))
	for _, m := range g.members {
		w.WriteU32(uint32(m))
	}
}

func (g *Guild) Deserialize(r *netio.Reader) error {
	g.version = r.ReadU8()
	if g.version != guildCurrentVersion {
		return fmt.Errorf("entity: guild %d has unsupported version %d", g.id, g.version)
	}
	_ = r.ReadU32()
	g.name = r.ReadASCIINul()
	count := r.ReadU32()
	g.members = make([]Serial, 0, count)
	for range count {
		g.members = append(g.members, Serial(r.ReadU32()))
	}
	return nil
}
