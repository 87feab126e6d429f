// Package eventsink defines the narrow callback contract the core
// invokes into game-logic collaborators: typed callbacks the core calls
// on login, character creation, target response, speech, and the like.
// The core never imports game-rule packages; it only calls through this
// interface, wired in by whatever embeds the core.
//
// A packet-parsing layer that couples directly to dozens of concrete
// managers (party, zone, quest, ...) keeps that coupling outside this
// core's scope — the core itself only sees this interface, and the
// concrete implementation (backed by those same kinds of managers) lives
// above the core, not inside it.
package eventsink

import (
	"github.com/udisondev/la2go/internal/entity"
)

// LoginRequest carries the account-login attempt (§4.8 step 3).
type LoginRequest struct {
	Username string
	Password string
}

// LoginResult is the event sink's verdict on a LoginRequest.
type LoginResult struct {
	Accepted    bool
	RejectCode  byte // valid when !Accepted; written into AccountLoginReject
	ServerCount int  // how many entries AccountLoginAck should list
}

// ServerEntry is one row of the server list sent in AccountLoginAck.
type ServerEntry struct {
	Name      string
	FullPct   byte
	TimeZone  int8
	IP        [4]byte
}

// CharacterEntry is one row of the character list sent as CharacterList.
type CharacterEntry struct {
	Name string
}

// CreateCharacterRequest carries the parsed 0x00 create-character body.
type CreateCharacterRequest struct {
	Name       string
	ProfileRaw []byte // the remaining fixed-layout fields, opaque to the core
}

// TargetResponse carries a parsed 0x6C body for validation/dispatch.
type TargetResponse struct {
	TargetID     uint32
	CursorID     int32
	TargetFlag   byte
	X, Y         int16
	Z            int8
	StaticTileID uint16
}

// Sink is the full set of callbacks the core invokes into game logic.
// Every method is called from the single tick thread (or a handler
// dispatched from it) except Broadcast, which a save strategy may
// call from its own goroutine.
type Sink interface {
	// Login validates an account login attempt (§4.8 step 3).
	Login(req LoginRequest) LoginResult

	// ServerList returns the configured login-server entries for
	// AccountLoginAck, once Login has accepted.
	ServerList() []ServerEntry

	// CharacterList returns this account's characters for the
	// CharacterList packet sent after GameLogin succeeds.
	CharacterList() []CharacterEntry

	// CreateCharacter handles a 0x00 create-character request and
	// returns the resulting Mobile to attach to the connection (§4.8
	// step 6).
	CreateCharacter(req CreateCharacterRequest) (*entity.Mobile, error)

	// SelectCharacter handles 0x5D-style play requests, resolving an
	// existing character index to a Mobile to attach.
	SelectCharacter(account string, index int) (*entity.Mobile, error)

	// Speech delivers an ASCII/Unicode speech packet's decoded text.
	Speech(m *entity.Mobile, text string) bool

	// TargetResponse delivers a parsed 0x6C body for game-logic
	// validation; the core has already checked tile/version
	// consistency (§4.10's TargetResponse contract) before calling.
	TargetResponse(m *entity.Mobile, resp TargetResponse)

	// UseItem delivers a 0x06 double-click on serial. The core does not
	// interpret what "using" an item or mobile means; it only decodes
	// and forwards the target serial.
	UseItem(m *entity.Mobile, target entity.Serial)

	// LiftItem delivers a 0x07 lift request for amount units of serial.
	// A false return means the lift is rejected; the core does not move
	// or reparent any item itself.
	LiftItem(m *entity.Mobile, target entity.Serial, amount uint16) bool

	// DropItem delivers a 0x08 drop request placing serial at (x, y, z),
	// optionally into container (Serial.Zero for the ground). A false
	// return means the drop is rejected.
	DropItem(m *entity.Mobile, target entity.Serial, x, y int16, z int8, container entity.Serial) bool

	// Broadcast delivers an operator/system message to every connected
	// player (used for the save-in-progress / save-complete announcements
	// of §7).
	Broadcast(message string)
}
