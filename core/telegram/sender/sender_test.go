package sender

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

func TestErrorKind(t *testing.T) {
	cases := map[string]error{
		"timeout":  context.DeadlineExceeded,
		"network":  &net.OpError{Op: "dial", Err: errors.New("refused")},
		"server":   tele.NewError(502, "Bad Gateway"),
		"rejected": tele.NewError(400, "Bad Request: chat not found"),
		"other":    errors.New("boom"),
	}
	for want, err := range cases {
		if got := errorKind(err); got != want {
			t.Fatalf("errorKind(%v) = %s, want %s", err, got, want)
		}
	}
}

func TestRedact(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-bb_CC/sendMessage": EOF`)
	got := redact(err)
	if got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": EOF` {
		t.Fatalf("token not redacted: %s", got)
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	s := New(Options{MaxRetries: 2, RetryBackoff: time.Millisecond})
	var slept []time.Duration
	s.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	errs := []error{tele.NewError(502, "Bad Gateway"), tele.NewError(500, "Internal Server Error"), nil}
	calls := 0
	err := s.Do(context.Background(), "edit_controls", "editMessageReplyMarkup", func() error {
		e := errs[calls]
		calls++
		return e
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(slept) != 2 || slept[0] != time.Millisecond || slept[1] != 2*time.Millisecond {
		t.Fatalf("unexpected backoff %v", slept)
	}
}

func TestDoDefaultsToSingleAttempt(t *testing.T) {
	s := New(Options{})
	calls := 0
	err := s.Do(context.Background(), "delete", "deleteMessage", func() error {
		calls++
		return tele.NewError(502, "Bad Gateway")
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls = %d err = %v, want a single failed call", calls, err)
	}
}

func TestOnceNeverRepeats(t *testing.T) {
	s := New(Options{MaxRetries: 5, RetryBackoff: time.Millisecond})
	s.sleep = func(context.Context, time.Duration) error {
		t.Fatal("Once must not back off")
		return nil
	}
	calls := 0
	err := s.Once(context.Background(), "notify", "sendMessage", func() error {
		calls++
		return tele.NewError(502, "Bad Gateway")
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls = %d err = %v, want a single failed call", calls, err)
	}
	if s.ErrorCount() != 1 {
		t.Fatalf("ErrorCount = %d, want 1", s.ErrorCount())
	}
}

func TestDoStopsOnClientErrors(t *testing.T) {
	s := New(Options{MaxRetries: 3})
	calls := 0
	err := s.Do(context.Background(), "edit_controls", "editMessageReplyMarkup", func() error {
		calls++
		return tele.NewError(403, "Forbidden: bot was blocked by the user")
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls = %d err = %v, want a single failed call", calls, err)
	}
	if s.ErrorCount() != 1 {
		t.Fatalf("ErrorCount = %d, want 1", s.ErrorCount())
	}
}
