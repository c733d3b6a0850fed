package telegram

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/geopal/core/config"
	"github.com/m3rciful/geopal/core/telegram/commands"
)

func TestBuildPoller(t *testing.T) {
	lp, ok := BuildPoller(PollerOptions{RunMode: coreconfig.RunModeLongpoll}).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, lp.Timeout)
	assert.Equal(t, AllowedUpdates, lp.AllowedUpdates)

	cfg := &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{RunMode: coreconfig.RunModeWebhook},
		Webhook:  coreconfig.WebhookConfig{URL: "https://bot.example/hook", Listen: "0.0.0.0", Port: 8443},
	}
	wh, ok := BuildPoller(PollerOptionsFrom(cfg)).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "https://bot.example/hook", wh.Endpoint.PublicURL)
	assert.Equal(t, AllowedUpdates, wh.AllowedUpdates)
}

type scriptedTransport struct {
	errs  []error
	calls int
	seen  []string
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		s.seen = append(s.seen, string(b))
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
}

func TestRetryTransportReplaysPollBody(t *testing.T) {
	base := &scriptedTransport{errs: []error{
		&net.OpError{Op: "dial", Err: errors.New("no route")},
		syscall.ECONNRESET,
	}}
	rt := &retryTransport{base: base, attempts: 3}

	req, err := http.NewRequest(http.MethodPost, "https://api.example/bot1:x/getUpdates", strings.NewReader(`{"offset":7}`))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 3, base.calls)
	assert.Equal(t, []string{`{"offset":7}`, `{"offset":7}`, `{"offset":7}`}, base.seen)
}

func TestRetryTransportSendsWritesOnce(t *testing.T) {
	for _, method := range []string{"sendMessage", "editMessageReplyMarkup", "deleteMessage"} {
		t.Run(method, func(t *testing.T) {
			base := &scriptedTransport{errs: []error{syscall.ECONNRESET}}
			rt := &retryTransport{base: base, attempts: 3}

			req, err := http.NewRequest(http.MethodPost, "https://api.example/bot1:x/"+method, strings.NewReader(`{"chat_id":1}`))
			require.NoError(t, err)
			_, err = rt.RoundTrip(req)
			assert.ErrorIs(t, err, syscall.ECONNRESET)
			assert.Equal(t, 1, base.calls)
		})
	}
}

func TestRetryTransportStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("tls: bad certificate")
	base := &scriptedTransport{errs: []error{boom}}
	rt := &retryTransport{base: base, attempts: 3}

	req, err := http.NewRequest(http.MethodGet, "https://api.example/getMe", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, base.calls)
}

func TestRetryTransportHonoursContext(t *testing.T) {
	base := &scriptedTransport{errs: []error{syscall.ECONNREFUSED}}
	rt := &retryTransport{base: base, attempts: 3, backoff: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.example/getMe", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, base.calls)
}

func TestConnectionFailure(t *testing.T) {
	assert.True(t, connectionFailure(io.ErrUnexpectedEOF))
	assert.True(t, connectionFailure(&net.OpError{Op: "dial", Err: errors.New("x")}))
	assert.False(t, connectionFailure(context.Canceled))
	assert.False(t, connectionFailure(errors.New("bad request")))
}

func TestDefaultMiddlewares(t *testing.T) {
	names := func(mws []Middleware) []string {
		var out []string
		for _, mw := range mws {
			out = append(out, mw.Name)
		}
		return out
	}
	assert.Equal(t, []string{"recover", "logger"}, names(DefaultMiddlewares(nil, nil)))

	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{IntervalMS: 500}}
	assert.Equal(t, []string{"recover", "logger", "rate_limit"}, names(DefaultMiddlewares(cfg, nil)))
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	assert.True(t, reg.RegisterCommand("/start", commands.Command{Description: "Start"}))
	assert.True(t, reg.RegisterCommand("/debug", commands.Command{Description: "Dump state", Hidden: true}))
	assert.True(t, reg.RegisterCommand("/friends", commands.Command{Description: "Friends", Aliases: []string{"f"}}))
	assert.False(t, reg.RegisterCommand("/start", commands.Command{Description: "again"}))
	assert.False(t, reg.RegisterCommand("help", commands.Command{Description: "no slash"}))
	assert.False(t, reg.RegisterCommand("/empty", commands.Command{}))

	key, _, ok := reg.LookupCommand("f")
	assert.True(t, ok)
	assert.Equal(t, "/friends", key)
	assert.True(t, reg.Known("start"))
	assert.False(t, reg.Known("/unknown"))

	assert.Equal(t, []tele.Command{
		{Text: "friends", Description: "Friends"},
		{Text: "start", Description: "Start"},
	}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)
}

func TestBuildRegistersRoutes(t *testing.T) {
	cfg := &coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "123:abc", RunMode: coreconfig.RunModeLongpoll}}
	var handled []string
	done := make(chan struct{})
	opts := RunOptions{
		Config: cfg,
		Client: http.DefaultClient,
		Middlewares: []Middleware{{Name: "trace", Use: func(next tele.HandlerFunc) tele.HandlerFunc {
			return func(c tele.Context) error {
				handled = append(handled, "mw")
				return next(c)
			}
		}}},
		Routes: []Route{
			{Endpoint: tele.OnText, Handler: func(tele.Context) error {
				handled = append(handled, "text")
				close(done)
				return nil
			}},
			{Endpoint: tele.OnLocation},
		},
	}

	bot, err := build(context.Background(), opts, true)
	require.NoError(t, err)
	_, ok := bot.Poller.(*tele.LongPoller)
	assert.True(t, ok)

	bot.ProcessUpdate(tele.Update{ID: 1, Message: &tele.Message{
		Sender: &tele.User{ID: 1},
		Chat:   &tele.Chat{ID: 1, Type: tele.ChatPrivate},
		Text:   "hello",
	}})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("text route not invoked")
	}
	assert.Equal(t, []string{"mw", "text"}, handled)
}

func TestRedactToken(t *testing.T) {
	msg := `Post "https://api.telegram.org/bot123:abc/deleteWebhook": dial tcp: timeout`
	got := redactToken(msg, "123:abc")
	assert.NotContains(t, got, "123:abc")
	assert.Contains(t, got, "<redacted>")
	assert.Equal(t, "plain", redactToken("plain", ""))
}
