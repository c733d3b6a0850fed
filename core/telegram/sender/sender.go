// Package sender runs outbound Bot API calls and logs how they ended.
// Only calls the caller declares repeatable are ever retried.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/m3rciful/geopal/core/logger"

	tele "gopkg.in/telebot.v4"
)

const component = "tg.sender"

var botToken = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// Options controls retries of repeatable calls. MaxRetries 0 means a single
// attempt.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent on a single call, retries included.
	MaxDuration time.Duration
	// MaxFloodWait caps how long a flood-control retry_after is honoured.
	MaxFloodWait time.Duration
}

// Sender executes outbound Telegram calls synchronously.
type Sender struct {
	opts  Options
	errs  atomic.Uint64
	sleep func(ctx context.Context, d time.Duration) error
}

// New fills zero durations with defaults. Negative MaxRetries is treated as 0.
func New(opts Options) *Sender {
	opts.MaxRetries = max(opts.MaxRetries, 0)
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 2 * time.Second
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = 12 * time.Second
	}
	if opts.MaxFloodWait <= 0 {
		opts.MaxFloodWait = 5 * time.Second
	}
	return &Sender{opts: opts, sleep: sleepCtx}
}

// ErrorCount returns the number of calls that failed for good.
func (s *Sender) ErrorCount() uint64 {
	return s.errs.Load()
}

// Once runs call exactly one time. Use it for calls Telegram may have
// applied even when the response was an error, such as sendMessage.
func (s *Sender) Once(ctx context.Context, action, endpoint string, call func() error) error {
	return s.run(ctx, action, endpoint, 1, call)
}

// Do runs an idempotent call, repeating it up to MaxRetries times on 5xx
// responses and short flood waits. The returned error is the last one seen.
func (s *Sender) Do(ctx context.Context, action, endpoint string, call func() error) error {
	return s.run(ctx, action, endpoint, s.opts.MaxRetries+1, call)
}

func (s *Sender) run(ctx context.Context, action, endpoint string, attempts int, call func() error) error {
	if call == nil {
		return errors.New("telegram sender: nil call")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.MaxDuration)
	defer cancel()

	base := callAttrs(ctx, action, endpoint)
	start := time.Now()
	var err error
	attempt := 0
	for attempt < attempts {
		if ctxErr := callCtx.Err(); ctxErr != nil {
			err = ctxErr
			break
		}
		attempt++
		if err = call(); err == nil {
			logger.Debug(ctx, component, "send.success",
				append(base, slog.Int("attempt", attempt), elapsedAttr(start))...)
			return nil
		}
		delay, again := s.backoff(err, attempt)
		if !again || attempt == attempts {
			break
		}
		logger.Debug(ctx, component, "send.retry.backoff",
			append(base, slog.Int("attempt", attempt), slog.Duration("delay", delay), slog.String("error_kind", errorKind(err)))...)
		if sleepErr := s.sleep(callCtx, delay); sleepErr != nil {
			err = errors.Join(err, sleepErr)
			break
		}
	}

	s.errs.Add(1)
	logger.Error(ctx, component, "send.fail", append(base,
		slog.Int("attempts", attempt),
		slog.String("error_kind", errorKind(err)),
		slog.String("err", redact(err)),
		elapsedAttr(start),
	)...)
	return err
}

// backoff reports whether err may clear up on its own and how long to wait.
func (s *Sender) backoff(err error, attempt int) (time.Duration, bool) {
	var flood tele.FloodError
	if errors.As(err, &flood) {
		wait := time.Duration(flood.RetryAfter) * time.Second
		return wait, wait <= s.opts.MaxFloodWait
	}
	if statusOf(err) >= http.StatusInternalServerError {
		return s.opts.RetryBackoff * time.Duration(attempt), true
	}
	return 0, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// callAttrs tags a log line with the call and the update that caused it.
func callAttrs(ctx context.Context, action, endpoint string) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", action), slog.String("endpoint", endpoint)}
	if rid := logger.RIDFrom(ctx); rid != "" {
		attrs = append(attrs, slog.String("rid", rid))
	}
	if chat := logger.ChatIDFrom(ctx); chat != 0 {
		attrs = append(attrs, slog.Int64("chat_id", chat))
	}
	return attrs
}

func elapsedAttr(start time.Time) slog.Attr {
	return slog.Duration("elapsed", logger.RoundMS(time.Since(start)))
}

// errorKind buckets err for log filtering.
func errorKind(err error) string {
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "network"
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return "flood"
	}
	switch code := statusOf(err); {
	case code >= http.StatusInternalServerError:
		return "server"
	case code >= http.StatusBadRequest:
		return "rejected"
	}
	return "other"
}

// redact strips bot tokens that net/http puts into URL errors.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return botToken.ReplaceAllString(err.Error(), "bot<redacted>")
}

func statusOf(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}
