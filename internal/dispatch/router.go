// Package dispatch routes classified inbound events to the flow, relationship
// and pagination logic.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/m3rciful/geopal/core/logger"
	"github.com/m3rciful/geopal/internal/event"
	"github.com/m3rciful/geopal/internal/failure"
	"github.com/m3rciful/geopal/internal/geo"
	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/journal"
	"github.com/m3rciful/geopal/internal/keylock"
	"github.com/m3rciful/geopal/internal/notify"
	"github.com/m3rciful/geopal/internal/relations"
	"github.com/m3rciful/geopal/internal/replies"
	"github.com/m3rciful/geopal/internal/wizard"
)

const component = "dispatch"

// RouteNone is reported for events no route claimed.
const RouteNone = "none"

// Route pairs a predicate with its action. The first matching route wins.
type Route struct {
	Name   string
	Match  func(ctx context.Context, ev event.Event) bool
	Handle func(ctx context.Context, ev event.Event) error
}

// Observer is told about routing decisions and broadcasts.
type Observer interface {
	EventRouted(kind, route string)
	BroadcastFinished(delivered, total int)
}

type nopObserver struct{}

func (nopObserver) EventRouted(string, string)  {}
func (nopObserver) BroadcastFinished(int, int) {}

// Deps are the collaborators of a Router. Journal and Observer may be nil.
type Deps struct {
	People    *identity.Registry
	Relations *relations.Engine
	Wizard    *wizard.Engine
	Notifier  notify.Notifier
	Places    geo.Resolver
	Journal   journal.Writer
	Observer  Observer
}

// Router is the single entry point for inbound events.
type Router struct {
	people    *identity.Registry
	relations *relations.Engine
	wizard    *wizard.Engine
	notifier  notify.Notifier
	places    geo.Resolver
	journal   journal.Writer
	observer  Observer

	sessions keylock.Map[identity.ID]
	routes   []Route
}

// New builds a router with the standard route table.
func New(d Deps) *Router {
	r := &Router{
		people:    d.People,
		relations: d.Relations,
		wizard:    d.Wizard,
		notifier:  d.Notifier,
		places:    d.Places,
		journal:   d.Journal,
		observer:  d.Observer,
	}
	if r.journal == nil {
		r.journal = journal.Nop{}
	}
	if r.observer == nil {
		r.observer = nopObserver{}
	}
	r.routes = r.table()
	return r
}

// RouteNames lists routes in evaluation order.
func (r *Router) RouteNames() []string {
	names := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		names = append(names, rt.Name)
	}
	return names
}

// Dispatch registers the actor, runs the first matching route and returns its
// name. Events of one actor are processed one at a time. Recoverable failures
// are answered with a notice; the returned error is for logging only.
func (r *Router) Dispatch(ctx context.Context, ev event.Event) (string, error) {
	origin := ev.Source()
	ctx = logger.WithActor(ctx, int64(origin.Actor.ID))
	unlock := r.sessions.Lock(origin.Actor.ID)
	defer unlock()

	r.people.GetOrRegister(origin.Actor)
	kind := event.Kind(ev)

	for _, rt := range r.routes {
		if !rt.Match(ctx, ev) {
			continue
		}
		r.observer.EventRouted(kind, rt.Name)
		if err := rt.Handle(ctx, ev); err != nil {
			return rt.Name, r.recover(ctx, origin, rt.Name, err)
		}
		return rt.Name, nil
	}

	r.observer.EventRouted(kind, RouteNone)
	logger.Debug(ctx, component, "route.none", slog.String("kind", kind))
	return RouteNone, nil
}

// recover turns a handler failure into at most one notice for the actor.
func (r *Router) recover(ctx context.Context, origin event.Origin, route string, err error) error {
	kind, typed := failure.KindOf(err)
	msg := failure.Message(err)

	var (
		text     string
		controls *notify.Controls
	)
	switch {
	case !typed:
		logger.Error(ctx, component, "route.failed",
			slog.String("operation", route),
			slog.String("err", err.Error()),
		)
		text = replies.WithAdminSuffix(replies.UnexpectedFailure)
	case kind == failure.PaginationIndexOutOfRange:
		logger.Error(ctx, component, "invariant.violated",
			slog.String("operation", route),
			slog.String("err", err.Error()),
		)
		return err
	case kind == failure.PeerNotRegistered:
		text = msg
		controls = &notify.Controls{RemoveReply: true}
	case kind == failure.InvalidControlPayload:
		text = msg
	default:
		if msg == "" {
			msg = replies.UnexpectedFailure
		}
		text = replies.WithAdminSuffix(msg)
	}

	if _, nerr := r.notifier.Notify(ctx, origin.Actor.Address, text, controls); nerr != nil {
		logger.Warn(ctx, component, "notice.failed",
			slog.String("operation", route),
			slog.String("err", nerr.Error()),
		)
	}
	return err
}

func (r *Router) say(ctx context.Context, to identity.Profile, text string, controls *notify.Controls) error {
	if _, err := r.notifier.Notify(ctx, to.Address, text, controls); err != nil {
		return failure.Wrap(failure.DeliveryFailure, err, "I could not send you a reply.")
	}
	return nil
}

// tell notifies a third party; failures are logged and do not fail the event.
func (r *Router) tell(ctx context.Context, to identity.Profile, text string) {
	if _, err := r.notifier.Notify(ctx, to.Address, text, nil); err != nil {
		logger.Warn(ctx, component, "notify.peer",
			slog.String("status", "fail"),
			slog.Int64("peer_id", int64(to.ID)),
			slog.String("err", err.Error()),
		)
	}
}

func (r *Router) stripControls(ctx context.Context, addr notify.Address, ref notify.MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := r.notifier.EditControls(ctx, addr, ref, nil); err != nil {
		logger.Warn(ctx, component, "controls.strip",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}

func (r *Router) deleteMessage(ctx context.Context, addr notify.Address, ref notify.MessageRef) {
	if ref.IsZero() {
		return
	}
	if err := r.notifier.Delete(ctx, addr, ref); err != nil {
		logger.Warn(ctx, component, "message.delete",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
}
