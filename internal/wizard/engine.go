package wizard

import (
	"context"
	"log/slog"

	"github.com/m3rciful/geopal/core/logger"
	"github.com/m3rciful/geopal/internal/failure"
	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/notify"
	"github.com/m3rciful/geopal/internal/payload"
	"github.com/m3rciful/geopal/internal/relations"
	"github.com/m3rciful/geopal/internal/replies"
)

const component = "wizard"

// Wizard outcomes reported to the Observer.
const (
	OutcomeSent       = "sent"
	OutcomeAborted    = "aborted"
	OutcomeSuperseded = "superseded"
	OutcomeRejected   = "rejected"
)

// Observer is told how each wizard ended.
type Observer interface {
	WizardFinished(outcome string)
}

// Engine drives wizard transitions. Callers serialize events per initiator.
type Engine struct {
	store     *Store
	people    *identity.Registry
	relations *relations.Engine
	notifier  notify.Notifier
	observer  Observer
}

// NewEngine wires an engine. observer may be nil.
func NewEngine(store *Store, people *identity.Registry, rel *relations.Engine, n notify.Notifier, observer Observer) *Engine {
	return &Engine{store: store, people: people, relations: rel, notifier: n, observer: observer}
}

// Active returns the live state of initiator.
func (e *Engine) Active(initiator identity.ID) (State, bool) {
	return e.store.Get(initiator)
}

// Start opens a wizard for actor at AwaitingTarget. A wizard already in
// progress is superseded.
func (e *Engine) Start(ctx context.Context, actor identity.Profile) error {
	e.Discard(ctx, actor.ID)

	controls := &notify.Controls{Reply: [][]notify.ReplyButton{{
		{Text: replies.BtnAddFriend, RequestUser: true},
		{Text: replies.BtnAbortKeyword},
	}}}
	if _, err := e.notifier.Notify(ctx, actor.Address, replies.ShareFriendPrompt, controls); err != nil {
		return delivery(err)
	}
	e.store.Put(State{
		Initiator:  actor.ID,
		Address:    actor.Address,
		Step:       AwaitingTarget,
		ReplyShown: true,
	})
	logger.Info(ctx, component, "wizard.started", slog.Int64("initiator_id", int64(actor.ID)))
	return nil
}

// Discard drops a live wizard without notifying the initiator beyond
// invalidating its controls.
func (e *Engine) Discard(ctx context.Context, initiator identity.ID) {
	st, ok := e.store.Delete(initiator)
	if !ok {
		return
	}
	e.dropAnchor(ctx, &st)
	if st.ReplyShown {
		if err := notify.ClearReplyKeyboard(ctx, e.notifier, st.Address); err != nil {
			logUIFailure(ctx, "clear_reply", err)
		}
	}
	e.finish(ctx, st, OutcomeSuperseded)
}

// SelectTarget handles a contact shared at AwaitingTarget.
func (e *Engine) SelectTarget(ctx context.Context, actor identity.Profile, target identity.ID) error {
	st, ok := e.store.Get(actor.ID)
	if !ok || st.Step != AwaitingTarget {
		return failure.New(failure.NoActiveWizard, "There is no friend request waiting for a contact.")
	}

	if target == 0 {
		e.reject(ctx, st)
		return failure.New(failure.PeerNotRegistered, replies.ContactWithoutUser)
	}
	if target == actor.ID {
		return e.rejectWithNotice(ctx, st, replies.CannotAddSelf)
	}
	receiver, ok := e.people.Lookup(target)
	if !ok {
		e.reject(ctx, st)
		return failure.New(failure.PeerNotRegistered,
			"This user is not registered in GeoPal yet! Ask them to send /start to the bot first.")
	}
	if e.relations.AreFriends(actor.ID, target) {
		return e.rejectWithNotice(ctx, st, replies.AlreadyFriends)
	}

	if err := e.clearReply(ctx, &st); err != nil {
		return err
	}
	ref, err := e.notifier.Notify(ctx, st.Address, replies.CommentPrompt, notify.InlineRows(
		notify.Button{Text: replies.BtnSendWithoutComment, Data: payload.WizardConfirm{}.Encode()},
		notify.Button{Text: replies.BtnAbortRequest, Data: payload.WizardAbort{}.Encode()},
	))
	if err != nil {
		e.store.Put(st)
		return delivery(err)
	}
	st.Step = AwaitingComment
	st.Receiver = receiver.ID
	st.Anchor = ref
	e.store.Put(st)
	e.logStep(ctx, st)
	return nil
}

// Comment stores text as the request comment and asks for confirmation.
func (e *Engine) Comment(ctx context.Context, actor identity.Profile, text string) error {
	st, ok := e.store.Get(actor.ID)
	if !ok || st.Step != AwaitingComment {
		return failure.New(failure.NoActiveWizard, "There is no friend request waiting for a comment.")
	}
	receiver, ok := e.people.Lookup(st.Receiver)
	if !ok {
		e.reject(ctx, st)
		return failure.New(failure.PeerNotRegistered, "The user you selected is not registered in GeoPal anymore.")
	}
	if err := e.clearReply(ctx, &st); err != nil {
		return err
	}

	e.dropAnchor(ctx, &st)
	ref, err := e.notifier.Notify(ctx, st.Address, replies.RequestPreview(receiver.Profile, text), notify.InlineRows(
		notify.Button{Text: replies.BtnSend, Data: payload.WizardConfirm{}.Encode()},
		notify.Button{Text: replies.BtnAbortRequest, Data: payload.WizardAbort{}.Encode()},
	))
	if err != nil {
		e.store.Put(st)
		return delivery(err)
	}
	st.Comment = text
	st.Step = AwaitingConfirmation
	st.Anchor = ref
	e.store.Put(st)
	e.logStep(ctx, st)
	return nil
}

// Confirm sends the request. The wizard stays live when the receiver cannot
// be reached so the initiator may retry or abort.
func (e *Engine) Confirm(ctx context.Context, actor identity.Profile) error {
	st, ok := e.store.Get(actor.ID)
	if !ok || st.Step == AwaitingTarget {
		return failure.New(failure.NoActiveWizard, "There is no friend request waiting to be sent.")
	}
	receiver, ok := e.people.Lookup(st.Receiver)
	if !ok {
		e.reject(ctx, st)
		return failure.New(failure.PeerNotRegistered, "The user you selected is not registered in GeoPal anymore.")
	}
	if e.relations.AreFriends(actor.ID, receiver.ID) {
		e.dropAnchor(ctx, &st)
		return e.rejectWithNotice(ctx, st, replies.AlreadyFriends)
	}

	controls := &notify.Controls{Inline: [][]notify.Button{{
		{Text: replies.BtnAccept, Data: payload.AcceptRequest{Sender: actor.ID, Receiver: receiver.ID}.Encode()},
		{Text: replies.BtnDecline, Data: payload.DeclineRequest{Sender: actor.ID, Receiver: receiver.ID}.Encode()},
	}}}
	anchor, err := e.notifier.Notify(ctx, receiver.Address, replies.RequestReceived(actor, st.Comment), controls)
	if err != nil {
		return failure.Wrap(failure.DeliveryFailure, err,
			"I could not deliver your friend request to %s.", replies.Mention(receiver.Profile))
	}
	sent, err := e.relations.SendRequest(ctx, actor.ID, receiver.ID, st.Comment, anchor)
	if err != nil {
		if delErr := e.notifier.Delete(ctx, receiver.Address, anchor); delErr != nil {
			logUIFailure(ctx, "delete_request", delErr)
		}
		e.reject(ctx, st)
		return err
	}
	if !sent.Replaced.IsZero() && sent.Replaced != anchor {
		if err := e.notifier.EditControls(ctx, receiver.Address, sent.Replaced, nil); err != nil {
			logUIFailure(ctx, "strip_replaced", err)
		}
	}

	e.store.Delete(actor.ID)
	e.dropAnchor(ctx, &st)
	if _, err := e.notifier.Notify(ctx, st.Address, replies.RequestSent(receiver.Profile), nil); err != nil {
		logUIFailure(ctx, "notify_sender", err)
	}
	e.finish(ctx, st, OutcomeSent)
	return nil
}

// Abort cancels the wizard and sends exactly one notice to the initiator.
func (e *Engine) Abort(ctx context.Context, actor identity.Profile) error {
	st, ok := e.store.Delete(actor.ID)
	if !ok {
		return failure.New(failure.NoActiveWizard, "There is no friend request to abort.")
	}
	e.dropAnchor(ctx, &st)
	e.finish(ctx, st, OutcomeAborted)
	if _, err := e.notifier.Notify(ctx, st.Address, replies.RequestAborted, &notify.Controls{RemoveReply: st.ReplyShown}); err != nil {
		return delivery(err)
	}
	return nil
}

// Remind answers an unexpected event with what the current step needs.
func (e *Engine) Remind(ctx context.Context, actor identity.Profile) error {
	st, ok := e.store.Get(actor.ID)
	if !ok {
		return failure.New(failure.NoActiveWizard, "There is no friend request in progress.")
	}
	var text string
	switch st.Step {
	case AwaitingTarget:
		text = replies.RemindTarget
	case AwaitingComment:
		text = replies.RemindComment
	default:
		text = replies.RemindConfirmation
	}
	if _, err := e.notifier.Notify(ctx, st.Address, text, nil); err != nil {
		return delivery(err)
	}
	return nil
}

func (e *Engine) reject(ctx context.Context, st State) {
	e.store.Delete(st.Initiator)
	e.finish(ctx, st, OutcomeRejected)
}

func (e *Engine) rejectWithNotice(ctx context.Context, st State, text string) error {
	e.reject(ctx, st)
	if _, err := e.notifier.Notify(ctx, st.Address, text, &notify.Controls{RemoveReply: st.ReplyShown}); err != nil {
		return delivery(err)
	}
	return nil
}

func (e *Engine) clearReply(ctx context.Context, st *State) error {
	if !st.ReplyShown {
		return nil
	}
	if err := notify.ClearReplyKeyboard(ctx, e.notifier, st.Address); err != nil {
		return delivery(err)
	}
	st.ReplyShown = false
	return nil
}

func (e *Engine) dropAnchor(ctx context.Context, st *State) {
	if st.Anchor.IsZero() {
		return
	}
	if err := e.notifier.Delete(ctx, st.Address, st.Anchor); err != nil {
		logUIFailure(ctx, "delete_anchor", err)
	}
	st.Anchor = notify.MessageRef{}
}

func (e *Engine) finish(ctx context.Context, st State, outcome string) {
	level := logger.Info
	if outcome == OutcomeSuperseded {
		level = logger.Warn
	}
	level(ctx, component, "wizard.finished",
		slog.Int64("initiator_id", int64(st.Initiator)),
		slog.String("step", st.Step.String()),
		slog.String("outcome", outcome),
	)
	if e.observer != nil {
		e.observer.WizardFinished(outcome)
	}
}

func (e *Engine) logStep(ctx context.Context, st State) {
	logger.Debug(ctx, component, "wizard.step",
		slog.Int64("initiator_id", int64(st.Initiator)),
		slog.Int64("receiver_id", int64(st.Receiver)),
		slog.String("step", st.Step.String()),
	)
}

func delivery(err error) error {
	return failure.Wrap(failure.DeliveryFailure, err, "I could not send you a message.")
}

func logUIFailure(ctx context.Context, op string, err error) {
	logger.Warn(ctx, component, "wizard.ui",
		slog.String("status", "fail"),
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
}
