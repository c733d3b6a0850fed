// Package telegram adapts the telebot runtime to the conversation core: it
// classifies updates into events and implements notify.Notifier.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/m3rciful/geopal/core/telegram/keyboard"
	"github.com/m3rciful/geopal/core/telegram/sender"
	"github.com/m3rciful/geopal/internal/notify"

	tele "gopkg.in/telebot.v4"
)

// ErrNilBot is returned by a Notifier that has not been bound to a bot yet.
var ErrNilBot = errors.New("telegram: notifier is not bound to a bot")

// API is the subset of *tele.Bot the notifier uses.
type API interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	EditReplyMarkup(msg tele.Editable, markup *tele.ReplyMarkup) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// Notifier sends messages through the Bot API. The bot only exists once the
// runtime starts, so the API is bound late.
type Notifier struct {
	mu     sync.RWMutex
	api    API
	sender *sender.Sender
}

// NewNotifier returns an unbound notifier. s may be nil.
func NewNotifier(s *sender.Sender) *Notifier {
	if s == nil {
		s = sender.New(sender.Options{})
	}
	return &Notifier{sender: s}
}

// Bind attaches the bot API.
func (n *Notifier) Bind(api API) {
	n.mu.Lock()
	n.api = api
	n.mu.Unlock()
}

func (n *Notifier) bound() (API, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.api == nil {
		return nil, ErrNilBot
	}
	return n.api, nil
}

// Notify sends text with optional controls and returns the new message ref.
// The message is sent at most once.
func (n *Notifier) Notify(ctx context.Context, addr notify.Address, text string, controls *notify.Controls) (notify.MessageRef, error) {
	api, err := n.bound()
	if err != nil {
		return notify.MessageRef{}, err
	}
	var opts []interface{}
	if m := Markup(controls); m != nil {
		opts = append(opts, m)
	}
	var msg *tele.Message
	err = n.sender.Once(ctx, "notify", "sendMessage", func() error {
		var sendErr error
		msg, sendErr = api.Send(tele.ChatID(addr), text, opts...)
		return sendErr
	})
	if err != nil {
		return notify.MessageRef{}, fmt.Errorf("telegram: send to %d: %w", addr, err)
	}
	if msg == nil {
		return notify.MessageRef{}, nil
	}
	return notify.MessageRef{MessageID: msg.ID}, nil
}

// EditControls replaces the inline keyboard of ref. nil controls clear it.
// Edits and deletes are repeated only when delivery retries are configured.
func (n *Notifier) EditControls(ctx context.Context, addr notify.Address, ref notify.MessageRef, controls *notify.Controls) error {
	api, err := n.bound()
	if err != nil {
		return err
	}
	m := Markup(controls)
	if m == nil || len(m.InlineKeyboard) == 0 {
		m = keyboard.EmptyInline()
	}
	err = n.sender.Do(ctx, "edit_controls", "editMessageReplyMarkup", func() error {
		_, editErr := api.EditReplyMarkup(stored(addr, ref), m)
		if notModified(editErr) {
			return nil
		}
		return editErr
	})
	if err != nil {
		return fmt.Errorf("telegram: edit controls %d/%d: %w", addr, ref.MessageID, err)
	}
	return nil
}

// Delete removes ref from the chat.
func (n *Notifier) Delete(ctx context.Context, addr notify.Address, ref notify.MessageRef) error {
	api, err := n.bound()
	if err != nil {
		return err
	}
	err = n.sender.Do(ctx, "delete", "deleteMessage", func() error {
		return api.Delete(stored(addr, ref))
	})
	if err != nil {
		return fmt.Errorf("telegram: delete %d/%d: %w", addr, ref.MessageID, err)
	}
	return nil
}

func stored(addr notify.Address, ref notify.MessageRef) tele.StoredMessage {
	return tele.StoredMessage{MessageID: strconv.Itoa(ref.MessageID), ChatID: int64(addr)}
}

func notModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

// Markup converts controls to a telebot markup. It returns nil when there is
// nothing to attach.
func Markup(c *notify.Controls) *tele.ReplyMarkup {
	if c == nil {
		return nil
	}
	switch {
	case len(c.Inline) > 0:
		rows := make([][]keyboard.InlineBtn, 0, len(c.Inline))
		for _, row := range c.Inline {
			r := make([]keyboard.InlineBtn, 0, len(row))
			for _, b := range row {
				r = append(r, keyboard.InlineBtn{Text: b.Text, Data: b.Data})
			}
			rows = append(rows, r)
		}
		return keyboard.InlineButtonsRows(rows...)
	case len(c.Reply) > 0:
		rows := make([][]keyboard.ReplyBtn, 0, len(c.Reply))
		for _, row := range c.Reply {
			r := make([]keyboard.ReplyBtn, 0, len(row))
			for _, b := range row {
				r = append(r, keyboard.ReplyBtn{Text: b.Text, Location: b.RequestLocation, User: b.RequestUser})
			}
			rows = append(rows, r)
		}
		return keyboard.ReplyButtons(rows...)
	case c.RemoveReply:
		return keyboard.RemoveKeyboard()
	}
	return nil
}
