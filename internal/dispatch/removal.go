package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/geopal/core/logger"
	"github.com/m3rciful/geopal/internal/event"
	"github.com/m3rciful/geopal/internal/failure"
	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/notify"
	"github.com/m3rciful/geopal/internal/paging"
	"github.com/m3rciful/geopal/internal/payload"
	"github.com/m3rciful/geopal/internal/relations"
	"github.com/m3rciful/geopal/internal/replies"
)

// removalList sends the first page of the removal keyboard.
func (r *Router) removalList(ctx context.Context, actor identity.Profile) error {
	friends := r.relations.Friends(actor.ID)
	if len(friends) == 0 {
		return r.say(ctx, actor, replies.NoFriends, nil)
	}
	page, err := paging.Render(friends, 0)
	if err != nil {
		return err
	}
	return r.say(ctx, actor, replies.SelectFriendToRemove, removalControls(page))
}

// removalControls lays out one button per friend, a navigation row when more
// than one page exists and an abort row.
func removalControls(page paging.Page[identity.Profile]) *notify.Controls {
	rows := make([][]notify.Button, 0, len(page.Entries)+2)
	for i, f := range page.Entries {
		rows = append(rows, []notify.Button{{
			Text: replies.RemoveLabel(page.Start+i+1, f),
			Data: payload.RemoveSelect{Target: f.ID}.Encode(),
		}})
	}
	var nav []notify.Button
	if page.Prev != nil {
		nav = append(nav, notify.Button{Text: replies.BtnPrevious, Data: payload.RemoveIndex{Start: *page.Prev}.Encode()})
	}
	if page.Next != nil {
		nav = append(nav, notify.Button{Text: replies.BtnNext, Data: payload.RemoveIndex{Start: *page.Next}.Encode()})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	rows = append(rows, []notify.Button{{Text: replies.BtnAbort, Data: payload.RemoveAbort{}.Encode()}})
	return &notify.Controls{Inline: rows}
}

func (r *Router) removeFriend(ctx context.Context, ev event.Event) error {
	c := ev.(event.Control)
	switch p := c.Payload.(type) {
	case payload.RemoveSelect:
		return r.removeSelect(ctx, c, p.Target)
	case payload.RemoveConfirm:
		return r.removeConfirm(ctx, c, p.Target)
	case payload.RemoveAbort:
		r.deleteMessage(ctx, c.Actor.Address, c.Message)
		return r.say(ctx, c.Actor, replies.ActionAborted, nil)
	case payload.RemoveIndex:
		return r.removePage(ctx, c, p.Start)
	}
	return nil
}

func (r *Router) removeSelect(ctx context.Context, c event.Control, target identity.ID) error {
	friend, ok := r.people.Lookup(target)
	if !ok || !r.relations.AreFriends(c.Actor.ID, target) {
		r.stripControls(ctx, c.Actor.Address, c.Message)
		return r.say(ctx, c.Actor, replies.NotInFriendList, nil)
	}
	r.deleteMessage(ctx, c.Actor.Address, c.Message)
	controls := &notify.Controls{Inline: [][]notify.Button{{
		{Text: replies.BtnAccept, Data: payload.RemoveConfirm{Target: target}.Encode()},
		{Text: replies.BtnAbort, Data: payload.RemoveAbort{}.Encode()},
	}}}
	return r.say(ctx, c.Actor, replies.ConfirmRemoval(friend.Profile), controls)
}

func (r *Router) removeConfirm(ctx context.Context, c event.Control, target identity.ID) error {
	friend, ok := r.people.Lookup(target)
	if !ok {
		r.stripControls(ctx, c.Actor.Address, c.Message)
		return failure.New(failure.PeerNotRegistered, "This user is not registered in GeoPal.")
	}
	err := r.relations.Remove(ctx, c.Actor.ID, target)
	if errors.Is(err, relations.ErrNotFriends) {
		r.stripControls(ctx, c.Actor.Address, c.Message)
		return r.say(ctx, c.Actor, replies.NotInFriendList, nil)
	}
	if err != nil {
		return err
	}
	r.deleteMessage(ctx, c.Actor.Address, c.Message)
	r.tell(ctx, friend.Profile, replies.RemovedBy(c.Actor))
	return r.say(ctx, c.Actor, replies.Removed(friend.Profile), nil)
}

// removePage redraws the removal keyboard in place starting at start.
func (r *Router) removePage(ctx context.Context, c event.Control, start int) error {
	friends := r.relations.Friends(c.Actor.ID)
	if len(friends) == 0 {
		r.stripControls(ctx, c.Actor.Address, c.Message)
		return r.say(ctx, c.Actor, replies.NoFriends, nil)
	}
	page, err := paging.Render(friends, start)
	if err != nil {
		return err
	}
	if err := r.notifier.EditControls(ctx, c.Actor.Address, c.Message, removalControls(page)); err != nil {
		logger.Warn(ctx, component, "remove.page",
			slog.String("status", "fail"),
			slog.Int("start", start),
			slog.String("err", err.Error()),
		)
	}
	return nil
}
