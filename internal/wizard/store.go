// Package wizard runs the multi-step friend request dialogue.
package wizard

import (
	"sync"

	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/notify"
)

// Step is a non-terminal wizard step. Idle is the absence of a State.
type Step int

const (
	AwaitingTarget Step = iota + 1
	AwaitingComment
	AwaitingConfirmation
)

func (s Step) String() string {
	switch s {
	case AwaitingTarget:
		return "awaiting_target"
	case AwaitingComment:
		return "awaiting_comment"
	case AwaitingConfirmation:
		return "awaiting_confirmation"
	default:
		return "idle"
	}
}

// State is the progress of one initiator's request.
type State struct {
	Initiator identity.ID
	Address   notify.Address
	Step      Step
	Receiver  identity.ID
	Comment   string
	// Anchor is the initiator-side message carrying the send/abort controls.
	Anchor notify.MessageRef
	// ReplyShown is set while the abort reply keyboard is displayed.
	ReplyShown bool
}

// Store keeps at most one State per initiator.
type Store struct {
	mu     sync.Mutex
	states map[identity.ID]State
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{states: make(map[identity.ID]State)}
}

// Get returns the state of initiator.
func (s *Store) Get(initiator identity.ID) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[initiator]
	return st, ok
}

// Put stores st, replacing any state of the same initiator.
func (s *Store) Put(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[st.Initiator] = st
}

// Delete removes and returns the state of initiator.
func (s *Store) Delete(initiator identity.ID) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[initiator]
	delete(s.states, initiator)
	return st, ok
}

// Len reports the number of live wizards.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}
