// Package failure defines the error kinds surfaced by the conversation core.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for routing and logging.
type Kind string

const (
	PeerNotRegistered         Kind = "peer_not_registered"
	InvalidControlPayload     Kind = "invalid_control_payload"
	NoActiveWizard            Kind = "no_active_wizard"
	DeliveryFailure           Kind = "delivery_failure"
	EmptyBroadcastPayload     Kind = "empty_broadcast_payload"
	LookupFailure             Kind = "lookup_failure"
	PaginationIndexOutOfRange Kind = "pagination_index_out_of_range"
)

// AdminSuffix is appended to notices for failures the user cannot fix alone.
const AdminSuffix = "If error persists, please contact administrator"

// Sentinels usable with errors.Is; any *Error of the same kind matches.
var (
	ErrPeerNotRegistered         = &Error{Kind: PeerNotRegistered}
	ErrInvalidControlPayload     = &Error{Kind: InvalidControlPayload}
	ErrNoActiveWizard            = &Error{Kind: NoActiveWizard}
	ErrDeliveryFailure           = &Error{Kind: DeliveryFailure}
	ErrEmptyBroadcastPayload     = &Error{Kind: EmptyBroadcastPayload}
	ErrLookupFailure             = &Error{Kind: LookupFailure}
	ErrPaginationIndexOutOfRange = &Error{Kind: PaginationIndexOutOfRange}
)

// Error carries a kind, a user-facing message and an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// New builds an Error with a formatted user-facing message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an Error around cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Code is read by the handler summary logger as err_code.
func (e *Error) Code() string { return string(e.Kind) }

// Is matches any *Error of the same kind when target is a bare sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg != "" || t.Err != nil {
		return t == e
	}
	return t.Kind == e.Kind
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// Message returns the user-facing message of err, or "" if it carries none.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Msg
	}
	return ""
}
