// Package relations owns transitions of the friend/request graph.
package relations

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/geopal/core/logger"
	"github.com/m3rciful/geopal/internal/failure"
	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/journal"
	"github.com/m3rciful/geopal/internal/notify"
)

const component = "relations"

var (
	// ErrStaleRequest reports an answer to a request that is no longer pending.
	ErrStaleRequest = errors.New("relations: request is not pending")
	// ErrNotReceiver reports an answer attempted by someone other than the receiver.
	ErrNotReceiver = errors.New("relations: only the receiver may answer a request")
	// ErrNotFriends reports a removal of a friendship that does not exist.
	ErrNotFriends = errors.New("relations: not friends")
)

// Engine applies relationship transitions to the identity registry.
type Engine struct {
	people  *identity.Registry
	journal journal.Writer
}

// NewEngine binds an engine to people. A nil journal disables auditing.
func NewEngine(people *identity.Registry, j journal.Writer) *Engine {
	if j == nil {
		j = journal.Nop{}
	}
	return &Engine{people: people, journal: j}
}

// Sent is the outcome of SendRequest.
type Sent struct {
	identity.PendingRequest
	// Replaced is the receiver-side message of the request this one replaced.
	// Its answer controls are no longer valid.
	Replaced notify.MessageRef
}

// SendRequest records a pending request from sender to receiver. A previous
// request between the same pair is replaced.
func (e *Engine) SendRequest(ctx context.Context, sender, receiver identity.ID, comment string, anchor notify.MessageRef) (Sent, error) {
	out := Sent{PendingRequest: identity.PendingRequest{Sender: sender, Receiver: receiver, Comment: comment, Anchor: anchor}}
	replaced := false
	ok := e.people.UpdatePair(sender, receiver, func(s, r *identity.Person) {
		var prev identity.PendingRequest
		if prev, replaced = s.Outgoing[receiver]; replaced {
			out.Replaced = prev.Anchor
		}
		s.Outgoing[receiver] = out.PendingRequest
		r.Incoming[sender] = out.PendingRequest
	})
	if !ok {
		return Sent{}, failure.New(failure.PeerNotRegistered,
			"This user is not registered in GeoPal yet! Ask them to send /start to the bot first.")
	}

	attrs := []slog.Attr{
		slog.Int64("sender_id", int64(sender)),
		slog.Int64("receiver_id", int64(receiver)),
		slog.Bool("with_comment", comment != ""),
	}
	kind := journal.RequestSent
	if replaced {
		kind = journal.RequestReplaced
		logger.Warn(ctx, component, "request.replaced", attrs...)
	} else {
		logger.Info(ctx, component, "request.sent", attrs...)
	}
	journal.Record(ctx, e.journal, journal.Entry{Kind: kind, Actor: int64(sender), Peer: int64(receiver), Comment: comment})
	return out, nil
}

// Answer applies the receiver's answer to the request sender -> receiver.
// actor must be the receiver.
func (e *Engine) Answer(ctx context.Context, actor, sender, receiver identity.ID, accept bool) (identity.PendingRequest, error) {
	if actor != receiver {
		logger.Warn(ctx, component, "request.answer_rejected",
			slog.Int64("actor_id", int64(actor)),
			slog.Int64("sender_id", int64(sender)),
			slog.Int64("receiver_id", int64(receiver)),
		)
		return identity.PendingRequest{}, ErrNotReceiver
	}
	if accept {
		return e.Accept(ctx, receiver, sender)
	}
	return e.Decline(ctx, receiver, sender)
}

// Accept resolves the request from sender and makes both parties friends.
func (e *Engine) Accept(ctx context.Context, receiver, sender identity.ID) (identity.PendingRequest, error) {
	return e.resolve(ctx, receiver, sender, true)
}

// Decline resolves the request from sender without a friendship.
func (e *Engine) Decline(ctx context.Context, receiver, sender identity.ID) (identity.PendingRequest, error) {
	return e.resolve(ctx, receiver, sender, false)
}

func (e *Engine) resolve(ctx context.Context, receiver, sender identity.ID, accept bool) (identity.PendingRequest, error) {
	var (
		req   identity.PendingRequest
		found bool
	)
	ok := e.people.UpdatePair(receiver, sender, func(r, s *identity.Person) {
		req, found = r.Incoming[sender]
		if !found {
			return
		}
		delete(r.Incoming, sender)
		delete(s.Outgoing, receiver)
		if accept {
			r.Friends[sender] = struct{}{}
			s.Friends[receiver] = struct{}{}
		}
	})
	if !ok {
		return identity.PendingRequest{}, failure.New(failure.PeerNotRegistered, "The other user is not registered in GeoPal anymore.")
	}

	attrs := []slog.Attr{
		slog.Int64("sender_id", int64(sender)),
		slog.Int64("receiver_id", int64(receiver)),
		slog.Bool("accept", accept),
	}
	if !found {
		logger.Warn(ctx, component, "request.stale", attrs...)
		return identity.PendingRequest{}, ErrStaleRequest
	}

	kind := journal.RequestDeclined
	if accept {
		kind = journal.RequestAccepted
	}
	logger.Info(ctx, component, string(kind), attrs...)
	journal.Record(ctx, e.journal, journal.Entry{Kind: kind, Actor: int64(receiver), Peer: int64(sender)})
	return req, nil
}

// Remove drops the friendship between a and b on both sides at once. A
// friendship recorded on one side only is repaired and logged.
func (e *Engine) Remove(ctx context.Context, a, b identity.ID) error {
	var inA, inB bool
	ok := e.people.UpdatePair(a, b, func(pa, pb *identity.Person) {
		inA = pa.IsFriend(b)
		inB = pb.IsFriend(a)
		delete(pa.Friends, b)
		delete(pb.Friends, a)
	})
	if !ok {
		return failure.New(failure.PeerNotRegistered, "This user is not registered in GeoPal.")
	}

	attrs := []slog.Attr{
		slog.Int64("actor_id", int64(a)),
		slog.Int64("peer_id", int64(b)),
	}
	switch {
	case !inA && !inB:
		return ErrNotFriends
	case inA != inB:
		logger.Error(ctx, component, "friend.asymmetric", append(attrs,
			slog.Bool("actor_side", inA),
			slog.Bool("peer_side", inB),
		)...)
	}
	logger.Info(ctx, component, "friend.removed", attrs...)
	journal.Record(ctx, e.journal, journal.Entry{Kind: journal.FriendRemoved, Actor: int64(a), Peer: int64(b)})
	return nil
}

// AreFriends reports whether a lists b as a friend.
func (e *Engine) AreFriends(a, b identity.ID) bool {
	p, ok := e.people.Lookup(a)
	return ok && p.IsFriend(b)
}

// Friends returns the friends of id ordered by handle, then id.
func (e *Engine) Friends(id identity.ID) []identity.Profile {
	p, ok := e.people.Lookup(id)
	if !ok {
		return nil
	}
	out := make([]identity.Profile, 0, len(p.Friends))
	for _, fid := range p.FriendIDs() {
		if f, ok := e.people.Lookup(fid); ok {
			out = append(out, f.Profile)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		hi, hj := strings.ToLower(out[i].Handle), strings.ToLower(out[j].Handle)
		if hi != hj {
			return hi < hj
		}
		return out[i].ID < out[j].ID
	})
	return out
}
