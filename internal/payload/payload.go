// Package payload encodes and strictly decodes button control payloads.
//
// Wire shapes, colon-delimited:
//
//	accept_friend_request:<senderId>:<receiverId>
//	decline_friend_request:<senderId>:<receiverId>
//	remove_friend:<targetId>
//	remove_friend:confirm:<targetId>
//	remove_friend:abort
//	remove_friend:index:<start>
//	confirm
//	abort
package payload

import (
	"strconv"
	"strings"

	"github.com/m3rciful/geopal/internal/failure"
	"github.com/m3rciful/geopal/internal/identity"
)

const (
	InstrAccept       = "accept_friend_request"
	InstrDecline      = "decline_friend_request"
	InstrRemoveFriend = "remove_friend"
	InstrConfirm      = "confirm"
	InstrAbort        = "abort"

	argConfirm = "confirm"
	argAbort   = "abort"
	argIndex   = "index"
)

// Control is a decoded payload.
type Control interface {
	Encode() string
	control()
}

type (
	// AcceptRequest answers a pending request positively.
	AcceptRequest struct{ Sender, Receiver identity.ID }
	// DeclineRequest answers a pending request negatively.
	DeclineRequest struct{ Sender, Receiver identity.ID }
	// RemoveSelect picks a friend for removal.
	RemoveSelect struct{ Target identity.ID }
	// RemoveConfirm confirms removal of a friend.
	RemoveConfirm struct{ Target identity.ID }
	// RemoveAbort cancels the removal flow.
	RemoveAbort struct{}
	// RemoveIndex moves the removal list to another window.
	RemoveIndex struct{ Start int }
	// WizardConfirm sends the pending friend request.
	WizardConfirm struct{}
	// WizardAbort cancels the friend request wizard.
	WizardAbort struct{}
)

func (c AcceptRequest) Encode() string  { return join(InstrAccept, id(c.Sender), id(c.Receiver)) }
func (c DeclineRequest) Encode() string { return join(InstrDecline, id(c.Sender), id(c.Receiver)) }
func (c RemoveSelect) Encode() string   { return join(InstrRemoveFriend, id(c.Target)) }
func (c RemoveConfirm) Encode() string  { return join(InstrRemoveFriend, argConfirm, id(c.Target)) }
func (RemoveAbort) Encode() string      { return join(InstrRemoveFriend, argAbort) }
func (c RemoveIndex) Encode() string    { return join(InstrRemoveFriend, argIndex, strconv.Itoa(c.Start)) }
func (WizardConfirm) Encode() string    { return InstrConfirm }
func (WizardAbort) Encode() string      { return InstrAbort }

func (AcceptRequest) control()  {}
func (DeclineRequest) control() {}
func (RemoveSelect) control()   {}
func (RemoveConfirm) control()  {}
func (RemoveAbort) control()    {}
func (RemoveIndex) control()    {}
func (WizardConfirm) control()  {}
func (WizardAbort) control()    {}

// Decode parses raw into a Control. Any shape mismatch yields an
// InvalidControlPayload failure.
func Decode(raw string) (Control, error) {
	parts := strings.Split(raw, ":")
	switch parts[0] {
	case InstrConfirm:
		if len(parts) == 1 {
			return WizardConfirm{}, nil
		}
	case InstrAbort:
		if len(parts) == 1 {
			return WizardAbort{}, nil
		}
	case InstrAccept, InstrDecline:
		if len(parts) != 3 {
			break
		}
		sender, ok1 := parseID(parts[1])
		receiver, ok2 := parseID(parts[2])
		if !ok1 || !ok2 {
			break
		}
		if parts[0] == InstrAccept {
			return AcceptRequest{Sender: sender, Receiver: receiver}, nil
		}
		return DeclineRequest{Sender: sender, Receiver: receiver}, nil
	case InstrRemoveFriend:
		return decodeRemove(raw, parts)
	}
	return nil, invalid(raw)
}

func decodeRemove(raw string, parts []string) (Control, error) {
	switch len(parts) {
	case 2:
		if parts[1] == argAbort {
			return RemoveAbort{}, nil
		}
		if target, ok := parseID(parts[1]); ok {
			return RemoveSelect{Target: target}, nil
		}
	case 3:
		switch parts[1] {
		case argConfirm:
			if target, ok := parseID(parts[2]); ok {
				return RemoveConfirm{Target: target}, nil
			}
		case argIndex:
			if !digits(parts[2]) {
				break
			}
			if start, err := strconv.Atoi(parts[2]); err == nil {
				return RemoveIndex{Start: start}, nil
			}
		}
	}
	return nil, invalid(raw)
}

func invalid(raw string) error {
	return failure.New(failure.InvalidControlPayload, "unrecognized control %q", raw)
}

func parseID(s string) (identity.ID, bool) {
	if !digits(s) {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return identity.ID(v), true
}

// digits reports whether s is a non-empty run of ASCII decimal digits.
func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func id(v identity.ID) string { return strconv.FormatInt(int64(v), 10) }

func join(parts ...string) string { return strings.Join(parts, ":") }
