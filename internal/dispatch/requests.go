package dispatch

import (
	"context"
	"errors"

	"github.com/m3rciful/geopal/internal/event"
	"github.com/m3rciful/geopal/internal/failure"
	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/payload"
	"github.com/m3rciful/geopal/internal/relations"
	"github.com/m3rciful/geopal/internal/replies"
)

// answerRequest handles Accept/Decline on a received friend request.
func (r *Router) answerRequest(ctx context.Context, ev event.Event) error {
	c := ev.(event.Control)
	actor := c.Actor

	var (
		sender, receiver identity.ID
		accept           bool
	)
	switch p := c.Payload.(type) {
	case payload.AcceptRequest:
		sender, receiver, accept = p.Sender, p.Receiver, true
	case payload.DeclineRequest:
		sender, receiver = p.Sender, p.Receiver
	}

	req, err := r.relations.Answer(ctx, actor.ID, sender, receiver, accept)
	switch {
	case errors.Is(err, relations.ErrNotReceiver):
		return nil
	case errors.Is(err, relations.ErrStaleRequest):
		r.stripControls(ctx, actor.Address, c.Message)
		return r.say(ctx, actor, replies.RequestNoLongerValid, nil)
	case err != nil:
		return err
	}

	r.stripControls(ctx, actor.Address, req.Anchor)
	if c.Message != req.Anchor {
		r.stripControls(ctx, actor.Address, c.Message)
	}

	peer, ok := r.people.Lookup(sender)
	if !ok {
		return failure.New(failure.PeerNotRegistered, "The other user is not registered in GeoPal anymore.")
	}
	if accept {
		r.tell(ctx, peer.Profile, replies.RequestAccepted(actor))
		return r.say(ctx, actor, replies.YouAccepted(peer.Profile), nil)
	}
	r.tell(ctx, peer.Profile, replies.RequestDeclined(actor))
	return r.say(ctx, actor, replies.YouDeclined(peer.Profile), nil)
}

func (r *Router) wizardAbort(ctx context.Context, ev event.Event) error {
	return r.wizard.Abort(ctx, ev.Source().Actor)
}

func (r *Router) wizardConfirm(ctx context.Context, ev event.Event) error {
	return r.wizard.Confirm(ctx, ev.Source().Actor)
}

func (r *Router) wizardTarget(ctx context.Context, ev event.Event) error {
	c := ev.(event.ContactShare)
	return r.wizard.SelectTarget(ctx, c.Actor, c.Target)
}

func (r *Router) wizardComment(ctx context.Context, ev event.Event) error {
	t := ev.(event.FreeText)
	return r.wizard.Comment(ctx, t.Actor, t.Text)
}

func (r *Router) wizardRemind(ctx context.Context, ev event.Event) error {
	return r.wizard.Remind(ctx, ev.Source().Actor)
}

// staleWizardControl answers a wizard button pressed after the wizard ended.
func (r *Router) staleWizardControl(ctx context.Context, ev event.Event) error {
	o := ev.Source()
	r.stripControls(ctx, o.Actor.Address, o.Message)
	return failure.New(failure.NoActiveWizard, "This friend request is not in progress anymore.")
}
