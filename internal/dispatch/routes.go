package dispatch

import (
	"context"

	"github.com/m3rciful/geopal/internal/event"
	"github.com/m3rciful/geopal/internal/failure"
	"github.com/m3rciful/geopal/internal/payload"
	"github.com/m3rciful/geopal/internal/replies"
	"github.com/m3rciful/geopal/internal/wizard"
)

// table is the ordered route chain. Wizard-owned abort precedes commands and
// the global abort; flow catch-alls come last.
func (r *Router) table() []Route {
	return []Route{
		{Name: "wizard.abort_keyword", Match: r.all(isAbortText, r.wizardLive), Handle: r.wizardAbort},
		{Name: "command", Match: isKnownCommand, Handle: r.command},
		{Name: "abort_keyword", Match: isAbortText, Handle: r.abortAction},
		{Name: "control.invalid", Match: isInvalidControl, Handle: r.invalidControl},
		{Name: "control.request_answer", Match: isRequestAnswer, Handle: r.answerRequest},
		{Name: "control.remove_friend", Match: isRemoveFriend, Handle: r.removeFriend},
		{Name: "wizard.confirm", Match: r.all(controlIs[payload.WizardConfirm], r.wizardLive), Handle: r.wizardConfirm},
		{Name: "wizard.abort", Match: r.all(controlIs[payload.WizardAbort], r.wizardLive), Handle: r.wizardAbort},
		{Name: "wizard.stale_control", Match: r.any(controlIs[payload.WizardConfirm], controlIs[payload.WizardAbort]), Handle: r.staleWizardControl},
		{Name: "wizard.target", Match: r.all(isContact, r.wizardAt(wizard.AwaitingTarget)), Handle: r.wizardTarget},
		{Name: "wizard.comment", Match: r.all(isFreeText, r.wizardAt(wizard.AwaitingComment)), Handle: r.wizardComment},
		{Name: "location.share", Match: isLocation, Handle: r.shareLocation},
		{Name: "wizard.catch_all", Match: r.wizardLive, Handle: r.wizardRemind},
		{Name: "contact.idle", Match: isContact, Handle: r.idleContact},
		{Name: "command.unknown", Match: isUnknownCommand, Handle: r.unknownCommand},
	}
}

type predicate = func(ctx context.Context, ev event.Event) bool

func (r *Router) all(preds ...predicate) predicate {
	return func(ctx context.Context, ev event.Event) bool {
		for _, p := range preds {
			if !p(ctx, ev) {
				return false
			}
		}
		return true
	}
}

func (r *Router) any(preds ...predicate) predicate {
	return func(ctx context.Context, ev event.Event) bool {
		for _, p := range preds {
			if p(ctx, ev) {
				return true
			}
		}
		return false
	}
}

func (r *Router) wizardLive(_ context.Context, ev event.Event) bool {
	_, ok := r.wizard.Active(ev.Source().Actor.ID)
	return ok
}

func (r *Router) wizardAt(step wizard.Step) predicate {
	return func(_ context.Context, ev event.Event) bool {
		st, ok := r.wizard.Active(ev.Source().Actor.ID)
		return ok && st.Step == step
	}
}

func isAbortText(_ context.Context, ev event.Event) bool {
	t, ok := ev.(event.FreeText)
	return ok && t.IsAbort()
}

func isFreeText(_ context.Context, ev event.Event) bool {
	_, ok := ev.(event.FreeText)
	return ok
}

func isKnownCommand(_ context.Context, ev event.Event) bool {
	c, ok := ev.(event.Command)
	return ok && c.Known
}

func isUnknownCommand(_ context.Context, ev event.Event) bool {
	c, ok := ev.(event.Command)
	return ok && !c.Known
}

func isContact(_ context.Context, ev event.Event) bool {
	_, ok := ev.(event.ContactShare)
	return ok
}

func isLocation(_ context.Context, ev event.Event) bool {
	_, ok := ev.(event.LocationShare)
	return ok
}

func isInvalidControl(_ context.Context, ev event.Event) bool {
	c, ok := ev.(event.Control)
	return ok && c.Err != nil
}

func isRequestAnswer(ctx context.Context, ev event.Event) bool {
	return controlIs[payload.AcceptRequest](ctx, ev) || controlIs[payload.DeclineRequest](ctx, ev)
}

func isRemoveFriend(ctx context.Context, ev event.Event) bool {
	return controlIs[payload.RemoveSelect](ctx, ev) ||
		controlIs[payload.RemoveConfirm](ctx, ev) ||
		controlIs[payload.RemoveAbort](ctx, ev) ||
		controlIs[payload.RemoveIndex](ctx, ev)
}

func controlIs[T payload.Control](_ context.Context, ev event.Event) bool {
	c, ok := ev.(event.Control)
	if !ok || c.Err != nil {
		return false
	}
	_, ok = c.Payload.(T)
	return ok
}

func (r *Router) abortAction(ctx context.Context, ev event.Event) error {
	return r.say(ctx, ev.Source().Actor, replies.ActionAborted, removeReply())
}

func (r *Router) invalidControl(_ context.Context, ev event.Event) error {
	c := ev.(event.Control)
	return failure.Wrap(failure.InvalidControlPayload, c.Err,
		"Sorry, I did not understand that button. Please use the buttons of the latest message.")
}

func (r *Router) idleContact(ctx context.Context, ev event.Event) error {
	return r.say(ctx, ev.Source().Actor, replies.UseAddFriend, nil)
}

func (r *Router) unknownCommand(ctx context.Context, ev event.Event) error {
	return r.say(ctx, ev.Source().Actor, replies.UnknownCommand, nil)
}
