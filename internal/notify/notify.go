// Package notify describes the outbound messaging contract used by the
// conversation core. Transports implement Notifier.
package notify

import "context"

// Address identifies where outbound messages for a person go.
type Address int64

// MessageRef points at a previously sent message.
type MessageRef struct {
	MessageID int
}

// IsZero reports whether the ref points at nothing.
func (r MessageRef) IsZero() bool { return r.MessageID == 0 }

// Button is an inline control carrying a raw control payload.
type Button struct {
	Text string
	Data string
}

// ReplyButton is a reply-keyboard key.
type ReplyButton struct {
	Text            string
	RequestLocation bool
	// RequestUser lets the user pick a Telegram account to share.
	RequestUser bool
}

// Controls describes the keyboard attached to a message. A nil *Controls
// means "no controls"; on EditControls it clears the inline keyboard.
type Controls struct {
	Inline      [][]Button
	Reply       [][]ReplyButton
	RemoveReply bool
}

// InlineRows builds inline controls with one button per row.
func InlineRows(buttons ...Button) *Controls {
	rows := make([][]Button, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []Button{b})
	}
	return &Controls{Inline: rows}
}

// Notifier sends, edits and deletes messages.
type Notifier interface {
	Notify(ctx context.Context, addr Address, text string, controls *Controls) (MessageRef, error)
	EditControls(ctx context.Context, addr Address, ref MessageRef, controls *Controls) error
	Delete(ctx context.Context, addr Address, ref MessageRef) error
}

// ClearReplyKeyboard removes the reply keyboard shown at addr. Telegram only
// removes reply keyboards through a new message, so a placeholder is sent
// with the removal flag and deleted right away.
func ClearReplyKeyboard(ctx context.Context, n Notifier, addr Address) error {
	ref, err := n.Notify(ctx, addr, ".", &Controls{RemoveReply: true})
	if err != nil {
		return err
	}
	return n.Delete(ctx, addr, ref)
}
