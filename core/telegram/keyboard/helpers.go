package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes an inline button whose callback data is sent verbatim.
// Data must not start with '\f', otherwise telebot treats it as an endpoint.
type InlineBtn struct {
	Text string
	Data string
}

// ReplyBtn describes a reply-keyboard key.
type ReplyBtn struct {
	Text     string
	Location bool
	// User opens the user picker; the choice arrives as users_shared.
	User bool
}

// UserRequestID tags user picker buttons. Shared users carry it back.
const UserRequestID = 1

// RemoveKeyboard returns a markup that hides the reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// EmptyInline returns a markup that clears the inline keyboard of an edited message.
func EmptyInline() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{}}
}

// ReplyButtons builds a one-time resized reply keyboard from rows of keys.
func ReplyButtons(rows ...[]ReplyBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true, OneTimeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tele.Btn, 0, len(row))
		for _, key := range row {
			switch {
			case key.Location:
				buttons = append(buttons, markup.Location(key.Text))
				continue
			case key.User:
				buttons = append(buttons, markup.User(key.Text, &tele.ReplyRecipient{ID: UserRequestID, Bot: tele.Flag(false)}))
				continue
			}
			buttons = append(buttons, markup.Text(key.Text))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	return markup
}

// InlineButtons builds an inline keyboard where each provided button is placed on its own row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineBtn{b})
	}
	return InlineButtonsRows(rows...)
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn. Empty
// rows are dropped.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Data}
		}
		inline = append(inline, r)
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}
