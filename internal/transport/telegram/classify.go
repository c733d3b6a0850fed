package telegram

import (
	"github.com/m3rciful/geopal/internal/event"
	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/notify"

	tele "gopkg.in/telebot.v4"
)

// Classify turns an update into an event. It reports false for updates the
// core does not handle: group chats, senderless updates and unsupported
// message kinds.
func Classify(c tele.Context, known func(name string) bool) (event.Event, bool) {
	user := c.Sender()
	if user == nil || user.IsBot {
		return nil, false
	}
	chat := c.Chat()
	if chat != nil && chat.Type != tele.ChatPrivate {
		return nil, false
	}

	origin := event.Origin{Actor: profile(user, chat)}
	if msg := c.Message(); msg != nil {
		origin.Message = notify.MessageRef{MessageID: msg.ID}
	}

	if cb := c.Callback(); cb != nil {
		return event.NewControl(origin, cb.Data), true
	}

	msg := c.Message()
	if msg == nil {
		return nil, false
	}
	switch {
	case msg.Location != nil:
		return event.LocationShare{
			Origin: origin,
			Lat:    float64(msg.Location.Lat),
			Lon:    float64(msg.Location.Lng),
		}, true
	case msg.Contact != nil:
		return event.ContactShare{
			Origin:    origin,
			Target:    identity.ID(msg.Contact.UserID),
			FirstName: msg.Contact.FirstName,
			Phone:     msg.Contact.PhoneNumber,
		}, true
	case msg.UserShared != nil:
		shared := event.ContactShare{Origin: origin}
		if users := msg.UserShared.Users; len(users) > 0 {
			shared.Target = identity.ID(users[0].UserID)
			shared.FirstName = users[0].FirstName
		}
		return shared, true
	case msg.Text != "":
		return event.ParseText(origin, msg.Text, known), true
	}
	return nil, false
}

func profile(u *tele.User, chat *tele.Chat) identity.Profile {
	addr := notify.Address(u.ID)
	if chat != nil && chat.ID != 0 {
		addr = notify.Address(chat.ID)
	}
	return identity.Profile{
		ID:        identity.ID(u.ID),
		Address:   addr,
		Handle:    u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}
