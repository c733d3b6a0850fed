package dispatch

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m3rciful/geopal/core/logger"
	"github.com/m3rciful/geopal/internal/event"
	"github.com/m3rciful/geopal/internal/failure"
	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/journal"
	"github.com/m3rciful/geopal/internal/replies"
)

// shareLocation resolves the shared coordinates to a place and tells every
// friend where the actor is.
func (r *Router) shareLocation(ctx context.Context, ev event.Event) error {
	loc := ev.(event.LocationShare)
	actor := loc.Actor

	friends := r.relations.Friends(actor.ID)
	if len(friends) == 0 {
		return r.say(ctx, actor, replies.NoFriends, removeReply())
	}

	place, err := r.places.Resolve(ctx, loc.Lat, loc.Lon)
	if err != nil {
		return failure.Wrap(failure.LookupFailure, err, "%s", replies.LocationFailed)
	}

	delivered, err := r.broadcast(ctx, friends, replies.NowIn(actor, place.String()))
	r.observer.BroadcastFinished(delivered, len(friends))
	journal.Record(ctx, r.journal, journal.Entry{
		Kind:       journal.LocationShared,
		Actor:      int64(actor.ID),
		Place:      place.String(),
		Recipients: delivered,
	})
	logger.Info(ctx, component, "location.broadcast",
		slog.Int64("actor_id", int64(actor.ID)),
		slog.Int("delivered", delivered),
		slog.Int("total", len(friends)),
	)
	if err != nil {
		return failure.Wrap(failure.DeliveryFailure, err, "%s", replies.PartialDelivery(delivered, len(friends)))
	}
	return r.say(ctx, actor, replies.LocationShared, removeReply())
}

// broadcast sends text to recipients in order and stops at the first failed
// delivery. It returns how many recipients were reached.
func (r *Router) broadcast(ctx context.Context, recipients []identity.Profile, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, failure.New(failure.EmptyBroadcastPayload, "There is nothing to share.")
	}
	for i, to := range recipients {
		if _, err := r.notifier.Notify(ctx, to.Address, text, nil); err != nil {
			return i, err
		}
	}
	return len(recipients), nil
}
