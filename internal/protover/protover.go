// Package protover derives the monotone-accumulating ProtocolChanges
// bitset from a client's negotiated ClientVersion, using the version
// thresholds baked into internal/constants.
package protover

import "github.com/udisondev/la2go/internal/constants"

// Changes is a bitset where each bit corresponds to a protocol feature
// the client's version has crossed the threshold for. Every threshold
// version fully subsumes all prior bits — a client on 7.0.9.0 carries
// every bit a 6.0.1.7 client carries, plus its own.
type Changes uint32

const (
	NewSpellbook Changes = 1 << iota
	DamagePacket
	Unpack
	BuffIcon
	NewHaven
	ContainerGridLines
	ExtendedSupportedFeatures
	StygianAbyss
	HighSeas
	NewCharacterList
	NewCharacterCreation
	ExtendedStatus
	NewMobileIncoming
	NewSecureTrading
)

func (c Changes) Has(bit Changes) bool { return c&bit != 0 }

// threshold pairs a ProtocolVersion with the bit it introduces, in
// ascending version order.
type threshold struct {
	version constants.ProtocolVersion
	bit     Changes
}

var thresholds = []threshold{
	{constants.Version400a, NewSpellbook},
	{constants.Version407a, DamagePacket},
	{constants.Version500a, Unpack},
	{constants.Version502b, BuffIcon},
	{constants.Version6000, NewHaven},
	{constants.Version6017, ContainerGridLines},
	{constants.Version601402, ExtendedSupportedFeatures},
	{constants.Version7000, StygianAbyss},
	{constants.Version7090, HighSeas},
	{constants.Version70130, NewCharacterList},
	{constants.Version70160, NewCharacterCreation},
	{constants.Version70300, ExtendedStatus},
	{constants.Version703301, NewMobileIncoming},
	{constants.Version7004565, NewSecureTrading},
}

// FromVersion computes the full ProtocolChanges bitset for a client
// version: every threshold at or below version contributes its bit.
func FromVersion(version constants.ProtocolVersion) Changes {
	var c Changes
	for _, th := range thresholds {
		if version >= th.version {
			c |= th.bit
		}
	}
	return c
}
