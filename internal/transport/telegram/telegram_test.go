package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/geopal/core/telegram/keyboard"
	"github.com/m3rciful/geopal/core/telegram/sender"
	"github.com/m3rciful/geopal/internal/event"
	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/notify"
	"github.com/m3rciful/geopal/internal/payload"

	tele "gopkg.in/telebot.v4"
)

func privateUpdate(msg *tele.Message) tele.Update {
	msg.Sender = &tele.User{ID: 7, Username: "alice", FirstName: "Alice", LastName: "A"}
	msg.Chat = &tele.Chat{ID: 7, Type: tele.ChatPrivate}
	return tele.Update{ID: 1, Message: msg}
}

func classify(t *testing.T, upd tele.Update, known func(string) bool) (event.Event, bool) {
	t.Helper()
	return Classify(tele.NewContext(nil, upd), known)
}

func TestClassifyText(t *testing.T) {
	known := func(name string) bool { return name == "/help" }

	ev, ok := classify(t, privateUpdate(&tele.Message{ID: 10, Text: "/help@geopal_bot extra"}), known)
	require.True(t, ok)
	cmd, isCmd := ev.(event.Command)
	require.True(t, isCmd)
	assert.Equal(t, "/help", cmd.Name)
	assert.Equal(t, "extra", cmd.Args)
	assert.True(t, cmd.Known)
	assert.Equal(t, notify.MessageRef{MessageID: 10}, cmd.Message)
	want := identity.Profile{ID: 7, Address: 7, Handle: "alice", FirstName: "Alice", LastName: "A"}
	if diff := cmp.Diff(want, cmd.Actor); diff != "" {
		t.Fatalf("actor mismatch (-want +got):\n%s", diff)
	}

	ev, ok = classify(t, privateUpdate(&tele.Message{ID: 11, Text: "/nope"}), known)
	require.True(t, ok)
	assert.False(t, ev.(event.Command).Known)

	ev, ok = classify(t, privateUpdate(&tele.Message{ID: 12, Text: "hello"}), known)
	require.True(t, ok)
	assert.Equal(t, "hello", ev.(event.FreeText).Text)
}

func TestClassifyAttachments(t *testing.T) {
	ev, ok := classify(t, privateUpdate(&tele.Message{ID: 1, Location: &tele.Location{Lat: 52.5, Lng: 13.25}}), nil)
	require.True(t, ok)
	loc := ev.(event.LocationShare)
	assert.InDelta(t, 52.5, loc.Lat, 1e-6)
	assert.InDelta(t, 13.25, loc.Lon, 1e-6)

	ev, ok = classify(t, privateUpdate(&tele.Message{ID: 2, Contact: &tele.Contact{UserID: 9, FirstName: "Bob", PhoneNumber: "+100"}}), nil)
	require.True(t, ok)
	contact := ev.(event.ContactShare)
	assert.Equal(t, identity.ID(9), contact.Target)
	assert.Equal(t, "Bob", contact.FirstName)

	_, ok = classify(t, privateUpdate(&tele.Message{ID: 3, Sticker: &tele.Sticker{}}), nil)
	assert.False(t, ok)
}

func TestClassifySharedUser(t *testing.T) {
	var msg tele.Message
	require.NoError(t, json.Unmarshal([]byte(`{"message_id":4,"users_shared":{"request_id":1,"users":[{"user_id":9,"first_name":"Bob"}]}}`), &msg))

	ev, ok := classify(t, privateUpdate(&msg), nil)
	require.True(t, ok)
	shared, isContact := ev.(event.ContactShare)
	require.True(t, isContact)
	assert.Equal(t, identity.ID(9), shared.Target)
	assert.Equal(t, "Bob", shared.FirstName)
	assert.Equal(t, identity.ID(7), shared.Actor.ID)

	msg = tele.Message{ID: 5, UserShared: &tele.RecipientShared{ID: 1}}
	ev, ok = classify(t, privateUpdate(&msg), nil)
	require.True(t, ok)
	assert.Equal(t, identity.ID(0), ev.(event.ContactShare).Target)
}

func TestClassifyCallback(t *testing.T) {
	msg := &tele.Message{ID: 55, Chat: &tele.Chat{ID: 7, Type: tele.ChatPrivate}}
	raw := payload.WizardConfirm{}.Encode()
	upd := tele.Update{ID: 2, Callback: &tele.Callback{
		ID:      "cb",
		Sender:  &tele.User{ID: 7, Username: "alice"},
		Message: msg,
		Data:    raw,
	}}

	ev, ok := classify(t, upd, nil)
	require.True(t, ok)
	ctrl := ev.(event.Control)
	require.NoError(t, ctrl.Err)
	assert.Equal(t, payload.WizardConfirm{}, ctrl.Payload)
	assert.Equal(t, notify.MessageRef{MessageID: 55}, ctrl.Message)

	upd.Callback.Data = "garbage"
	ev, ok = classify(t, upd, nil)
	require.True(t, ok)
	assert.Error(t, ev.(event.Control).Err)
}

func TestClassifyIgnoresGroupsAndBots(t *testing.T) {
	upd := privateUpdate(&tele.Message{ID: 1, Text: "hi"})
	upd.Message.Chat.Type = tele.ChatGroup
	_, ok := classify(t, upd, nil)
	assert.False(t, ok)

	upd = privateUpdate(&tele.Message{ID: 1, Text: "hi"})
	upd.Message.Sender.IsBot = true
	_, ok = classify(t, upd, nil)
	assert.False(t, ok)
}

func TestMarkup(t *testing.T) {
	assert.Nil(t, Markup(nil))
	assert.Nil(t, Markup(&notify.Controls{}))

	m := Markup(&notify.Controls{Inline: [][]notify.Button{
		{{Text: "Accept", Data: "a"}, {Text: "Decline", Data: "d"}},
		{{Text: "Abort", Data: "x"}},
	}})
	require.NotNil(t, m)
	want := [][]tele.InlineButton{
		{{Text: "Accept", Data: "a"}, {Text: "Decline", Data: "d"}},
		{{Text: "Abort", Data: "x"}},
	}
	if diff := cmp.Diff(want, m.InlineKeyboard); diff != "" {
		t.Fatalf("inline keyboard mismatch (-want +got):\n%s", diff)
	}

	m = Markup(&notify.Controls{Reply: [][]notify.ReplyButton{{{Text: "Share", RequestLocation: true}}, {{Text: "❌"}}}})
	require.NotNil(t, m)
	require.Len(t, m.ReplyKeyboard, 2)
	assert.True(t, m.ReplyKeyboard[0][0].Location)
	assert.Equal(t, "❌", m.ReplyKeyboard[1][0].Text)

	m = Markup(&notify.Controls{Reply: [][]notify.ReplyButton{{{Text: "Add", RequestUser: true}, {Text: "❌"}}}})
	require.NotNil(t, m)
	picker := m.ReplyKeyboard[0][0]
	require.NotNil(t, picker.User)
	assert.Equal(t, int32(keyboard.UserRequestID), picker.User.ID)
	assert.Nil(t, m.ReplyKeyboard[0][1].User)

	m = Markup(&notify.Controls{RemoveReply: true})
	require.NotNil(t, m)
	assert.True(t, m.RemoveKeyboard)
}

type fakeAPI struct {
	sent      []string
	sendCalls int
	edits     []tele.StoredMessage
	deleted   []tele.StoredMessage
	sendErr   []error
}

func (f *fakeAPI) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.sendCalls++
	if len(f.sendErr) > 0 {
		err := f.sendErr[0]
		f.sendErr = f.sendErr[1:]
		if err != nil {
			return nil, err
		}
	}
	f.sent = append(f.sent, to.Recipient()+":"+what.(string))
	return &tele.Message{ID: 100 + len(f.sent)}, nil
}

func (f *fakeAPI) EditReplyMarkup(msg tele.Editable, _ *tele.ReplyMarkup) (*tele.Message, error) {
	id, chat := msg.MessageSig()
	f.edits = append(f.edits, tele.StoredMessage{MessageID: id, ChatID: chat})
	return nil, errors.New("telegram: Bad Request: message is not modified (400)")
}

func (f *fakeAPI) Delete(msg tele.Editable) error {
	id, chat := msg.MessageSig()
	f.deleted = append(f.deleted, tele.StoredMessage{MessageID: id, ChatID: chat})
	return nil
}

func TestNotifierUnbound(t *testing.T) {
	n := NewNotifier(nil)
	_, err := n.Notify(context.Background(), 1, "hi", nil)
	assert.ErrorIs(t, err, ErrNilBot)
	assert.ErrorIs(t, n.Delete(context.Background(), 1, notify.MessageRef{MessageID: 1}), ErrNilBot)
}

func TestNotifierRoundTrip(t *testing.T) {
	api := &fakeAPI{}
	n := NewNotifier(sender.New(sender.Options{}))
	n.Bind(api)
	ctx := context.Background()

	ref, err := n.Notify(ctx, 42, "hello", &notify.Controls{RemoveReply: true})
	require.NoError(t, err)
	assert.Equal(t, notify.MessageRef{MessageID: 101}, ref)
	assert.Equal(t, []string{"42:hello"}, api.sent)

	require.NoError(t, n.EditControls(ctx, 42, ref, nil))
	require.NoError(t, n.Delete(ctx, 42, ref))
	want := []tele.StoredMessage{{MessageID: strconv.Itoa(ref.MessageID), ChatID: 42}}
	assert.Equal(t, want, api.edits)
	assert.Equal(t, want, api.deleted)
}

func TestNotifierSendsOnceOnServerErrors(t *testing.T) {
	api := &fakeAPI{sendErr: []error{tele.NewError(502, "Bad Gateway")}}
	n := NewNotifier(sender.New(sender.Options{MaxRetries: 3, RetryBackoff: time.Millisecond}))
	n.Bind(api)

	_, err := n.Notify(context.Background(), 1, "x", nil)
	require.Error(t, err)
	assert.Equal(t, 1, api.sendCalls)
	assert.Empty(t, api.sent)

	_, err = n.Notify(context.Background(), 1, "y", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, api.sendCalls)
	assert.Equal(t, []string{"1:y"}, api.sent)
}
