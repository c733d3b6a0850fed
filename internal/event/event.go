// Package event defines the classified inbound interactions fed to the router.
package event

import (
	"strings"

	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/notify"
	"github.com/m3rciful/geopal/internal/payload"
)

// AbortKeyword is the reply-keyboard text that cancels the current action.
const AbortKeyword = "❌"

// Origin identifies who produced an event and from which message.
type Origin struct {
	Actor   identity.Profile
	Message notify.MessageRef
}

// Source returns the origin; every variant embeds Origin.
func (o Origin) Source() Origin { return o }

// Event is one of Command, FreeText, LocationShare, ContactShare or Control.
type Event interface {
	Source() Origin
	isEvent()
}

// Command is a slash command. Known is set when the command is registered.
type Command struct {
	Origin
	Name  string
	Args  string
	Known bool
}

// FreeText is any text that is not a slash command.
type FreeText struct {
	Origin
	Text string
}

// IsAbort reports whether the text is the abort keyword.
func (f FreeText) IsAbort() bool { return strings.TrimSpace(f.Text) == AbortKeyword }

// LocationShare carries an attached location.
type LocationShare struct {
	Origin
	Lat float64
	Lon float64
}

// ContactShare carries an attached contact. Target is zero when the contact
// is not bound to a Telegram account.
type ContactShare struct {
	Origin
	Target    identity.ID
	FirstName string
	Phone     string
}

// Control is a button press. Payload is nil when Err is set.
type Control struct {
	Origin
	Raw     string
	Payload payload.Control
	Err     error
}

func (Command) isEvent()       {}
func (FreeText) isEvent()      {}
func (LocationShare) isEvent() {}
func (ContactShare) isEvent()  {}
func (Control) isEvent()       {}

// NewControl decodes raw once at the boundary.
func NewControl(o Origin, raw string) Control {
	p, err := payload.Decode(raw)
	return Control{Origin: o, Raw: raw, Payload: p, Err: err}
}

// ParseText classifies message text as a Command or FreeText. known decides
// whether a command name is registered; it may be nil.
func ParseText(o Origin, text string, known func(name string) bool) Event {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") || len(trimmed) == 1 {
		return FreeText{Origin: o, Text: text}
	}
	name, args, _ := strings.Cut(trimmed, " ")
	if at := strings.IndexByte(name, '@'); at > 0 {
		name = name[:at]
	}
	name = strings.ToLower(name)
	cmd := Command{Origin: o, Name: name, Args: strings.TrimSpace(args)}
	if known != nil {
		cmd.Known = known(name)
	}
	return cmd
}

// Kind returns a short label for logs and metrics.
func Kind(e Event) string {
	switch e.(type) {
	case Command:
		return "command"
	case FreeText:
		return "text"
	case LocationShare:
		return "location"
	case ContactShare:
		return "contact"
	case Control:
		return "control"
	default:
		return "unknown"
	}
}
