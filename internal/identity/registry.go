// Package identity keeps registered people and their relationship edges.
//
// People live in an arena keyed by ID. Friendships and pending requests are
// ID-to-ID edges stored on each Person, never pointers between records.
package identity

import (
	"sort"
	"sync"

	"github.com/m3rciful/geopal/internal/keylock"
	"github.com/m3rciful/geopal/internal/notify"
)

// ID is the stable identifier of a person (the Telegram user id).
type ID int64

// Profile is the descriptive part of a Person.
type Profile struct {
	ID        ID
	Address   notify.Address
	Handle    string
	FirstName string
	LastName  string
}

// PendingRequest is an unanswered friend request. Identity is (Sender, Receiver).
type PendingRequest struct {
	Sender   ID
	Receiver ID
	Comment  string
	// Anchor is the receiver-side message carrying the answer controls.
	Anchor notify.MessageRef
}

// Person is a registered participant with its relationship edges.
type Person struct {
	Profile
	Friends  map[ID]struct{}
	Incoming map[ID]PendingRequest
	Outgoing map[ID]PendingRequest
}

func newPerson(p Profile) *Person {
	return &Person{
		Profile:  p,
		Friends:  make(map[ID]struct{}),
		Incoming: make(map[ID]PendingRequest),
		Outgoing: make(map[ID]PendingRequest),
	}
}

// IsFriend reports whether id is in the friend set.
func (p Person) IsFriend(id ID) bool {
	_, ok := p.Friends[id]
	return ok
}

// FriendIDs returns friend ids in ascending order.
func (p Person) FriendIDs() []ID {
	ids := make([]ID, 0, len(p.Friends))
	for id := range p.Friends {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (p *Person) clone() Person {
	out := Person{
		Profile:  p.Profile,
		Friends:  make(map[ID]struct{}, len(p.Friends)),
		Incoming: make(map[ID]PendingRequest, len(p.Incoming)),
		Outgoing: make(map[ID]PendingRequest, len(p.Outgoing)),
	}
	for k := range p.Friends {
		out.Friends[k] = struct{}{}
	}
	for k, v := range p.Incoming {
		out.Incoming[k] = v
	}
	for k, v := range p.Outgoing {
		out.Outgoing[k] = v
	}
	return out
}

// Registry is the arena of people. Edge sets of one person are guarded by that
// person's lock; two-person mutations take both locks in ascending ID order.
type Registry struct {
	mu     sync.RWMutex
	people map[ID]*Person
	locks  keylock.Map[ID]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{people: make(map[ID]*Person)}
}

// GetOrRegister returns the person for p.ID, creating it with p as its initial
// profile when absent. Display fields of an existing person are refreshed; the
// delivery address is kept.
func (r *Registry) GetOrRegister(p Profile) Person {
	r.mu.Lock()
	person, ok := r.people[p.ID]
	if !ok {
		person = newPerson(p)
		r.people[p.ID] = person
	}
	r.mu.Unlock()

	unlock := r.locks.Lock(p.ID)
	defer unlock()
	if ok {
		person.Handle = p.Handle
		person.FirstName = p.FirstName
		person.LastName = p.LastName
	}
	return person.clone()
}

// Lookup returns a snapshot of the person with id.
func (r *Registry) Lookup(id ID) (Person, bool) {
	person, ok := r.get(id)
	if !ok {
		return Person{}, false
	}
	unlock := r.locks.Lock(id)
	defer unlock()
	return person.clone(), true
}

// Update runs fn on the live record of id under its lock.
func (r *Registry) Update(id ID, fn func(*Person)) bool {
	person, ok := r.get(id)
	if !ok {
		return false
	}
	unlock := r.locks.Lock(id)
	defer unlock()
	fn(person)
	return true
}

// UpdatePair runs fn on the live records of a and b under both locks. It
// reports false without calling fn when either is not registered.
func (r *Registry) UpdatePair(a, b ID, fn func(pa, pb *Person)) bool {
	pa, okA := r.get(a)
	pb, okB := r.get(b)
	if !okA || !okB {
		return false
	}
	unlock := r.locks.LockPair(a, b)
	defer unlock()
	fn(pa, pb)
	return true
}

// Len reports the number of registered people.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.people)
}

func (r *Registry) get(id ID) (*Person, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.people[id]
	return p, ok
}
