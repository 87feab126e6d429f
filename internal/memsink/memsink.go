// Package memsink implements a self-contained eventsink.Sink for
// running this core standalone: any login with a non-empty username and
// password is accepted, characters are created on demand and kept in a
// slice addressed by index, and broadcasts/speech are
// appended to an in-memory log. It exists so cmd/gameserver has a
// working collaborator without pulling in any of the gameplay systems
// (party/zone/quest/clan/...) this core places out of scope; a real
// deployment replaces this package with one backed by its own
// account/character stores while keeping the same Sink contract.
//
// Backed by plain in-memory slices (characters and the message log), not
// keyed by account, generalized to the full eventsink.Sink surface this
// core calls into.
package memsink

import (
	"fmt"
	"sync"

	"github.com/udisondev/la2go/internal/entity"
	"github.com/udisondev/la2go/internal/eventsink"
	"github.com/udisondev/la2go/internal/world"
)

// Sink is a minimal, in-memory eventsink.Sink.
type Sink struct {
	world *world.World
	name  string
	ip    [4]byte

	mu    sync.Mutex
	chars []*entity.Mobile
	log   []string
}

// New builds a Sink advertising one server entry named name at ip.
func New(w *world.World, name string, ip [4]byte) *Sink {
	return &Sink{world: w, name: name, ip: ip}
}

func (s *Sink) Login(req eventsink.LoginRequest) eventsink.LoginResult {
	if req.Username == "" || req.Password == "" {
		return eventsink.LoginResult{Accepted: false, RejectCode: 1}
	}
	return eventsink.LoginResult{Accepted: true}
}

func (s *Sink) ServerList() []eventsink.ServerEntry {
	return []eventsink.ServerEntry{{Name: s.name, FullPct: 0, TimeZone: 0, IP: s.ip}}
}

func (s *Sink) CharacterList() []eventsink.CharacterEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]eventsink.CharacterEntry, len(s.chars))
	for i, m := range s.chars {
		out[i] = eventsink.CharacterEntry{Name: m.Name()}
	}
	return out
}

func (s *Sink) CreateCharacter(req eventsink.CreateCharacterRequest) (*entity.Mobile, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("memsink: empty character name")
	}
	serial := s.world.Generator().NextMobile()
	typeRef, ok := s.world.Registry().TypeRefFor(entity.MobileTypeFqn)
	if !ok {
		return nil, fmt.Errorf("memsink: %s not registered", entity.MobileTypeFqn)
	}
	e, err := s.world.Registry().New(typeRef, serial)
	if err != nil {
		return nil, err
	}
	m := e.(*entity.Mobile)
	m.SetName(req.Name)

	s.mu.Lock()
	s.chars = append(s.chars, m)
	s.mu.Unlock()
	return m, nil
}

func (s *Sink) SelectCharacter(account string, index int) (*entity.Mobile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.chars) {
		return nil, fmt.Errorf("memsink: no character at index %d", index)
	}
	return s.chars[index], nil
}

func (s *Sink) Speech(m *entity.Mobile, text string) bool {
	s.mu.Lock()
	s.log = append(s.log, fmt.Sprintf("%s: %s", m.Name(), text))
	s.mu.Unlock()
	return true
}

func (s *Sink) TargetResponse(m *entity.Mobile, resp eventsink.TargetResponse) {}

func (s *Sink) UseItem(m *entity.Mobile, target entity.Serial) {
	s.mu.Lock()
	s.log = append(s.log, fmt.Sprintf("%s: use %d", m.Name(), target))
	s.mu.Unlock()
}

func (s *Sink) LiftItem(m *entity.Mobile, target entity.Serial, amount uint16) bool {
	_, ok := s.world.Item(target)
	return ok
}

func (s *Sink) DropItem(m *entity.Mobile, target entity.Serial, x, y int16, z int8, container entity.Serial) bool {
	it, ok := s.world.Item(target)
	if !ok {
		return false
	}
	it.SetPosition(x, y, z)
	return true
}

func (s *Sink) Broadcast(message string) {
	s.mu.Lock()
	s.log = append(s.log, "[system] "+message)
	s.mu.Unlock()
}

// Log returns every speech/broadcast line recorded so far, for tests.
func (s *Sink) Log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.log))
	copy(out, s.log)
	return out
}
