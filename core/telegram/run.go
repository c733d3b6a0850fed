package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/geopal/core/config"
	"github.com/m3rciful/geopal/core/logger"
)

const component = "tg"

// Middleware describes a global bot middleware to be registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route declares a single bot handler bound to an arbitrary endpoint.
// Endpoint values are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry
	// Client overrides the Bot API HTTP client; nil builds one from Config.
	Client *http.Client

	Middlewares []Middleware
	Routes      []Route

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to lifecycle hooks.
type Runtime struct {
	Bot      *tele.Bot
	Registry *Registry
}

// RunTelegram builds the bot, publishes the command menu and serves updates
// until ctx is done or the poller stops. OnStop runs with a fresh 5s budget.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	if opts.Client == nil {
		opts.Client = BuildHTTPClient(time.Duration(opts.Config.Telegram.RequestTimeoutSeconds) * time.Second)
	}

	started := time.Now()
	bot, err := build(ctx, opts, false)
	if err != nil {
		return err
	}
	logMode(ctx, bot.Poller, time.Since(started))
	if !opts.DisableWebhookCleanup && opts.Config.Telegram.RunMode == coreconfig.RunModeLongpoll {
		clearWebhook(ctx, opts.Client, opts.Config.Telegram.Token)
	}
	InitBotCommands(ctx, bot, opts.Registry)

	rt := Runtime{Bot: bot, Registry: opts.Registry}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runErr := serve(ctx, bot)
	if opts.OnStop != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := opts.OnStop(stopCtx, rt); err != nil {
			return err
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// build creates the bot with its poller, middleware chain and routes.
// offline skips the getMe round trip.
func build(ctx context.Context, opts RunOptions, offline bool) (*tele.Bot, error) {
	token := opts.Config.Telegram.Token
	bot, err := tele.NewBot(tele.Settings{
		Token:   token,
		Poller:  BuildPoller(PollerOptionsFrom(opts.Config)),
		Client:  opts.Client,
		Offline: offline,
		OnError: func(err error, c tele.Context) {
			attrs := []slog.Attr{slog.String("err", redactToken(err.Error(), token))}
			if c != nil && c.Update().ID != 0 {
				attrs = append(attrs, slog.Int("update_id", c.Update().ID))
			}
			logger.Error(ctx, component, "tg.error", attrs...)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, route := range opts.Routes {
		if route.Endpoint != nil && route.Handler != nil {
			bot.Handle(route.Endpoint, route.Handler)
		}
	}
	return bot, nil
}

// serve runs the poller until it stops on its own or ctx is done.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	}
}

// clearWebhook removes a webhook left by an earlier webhook deployment, which
// would otherwise make getUpdates fail.
func clearWebhook(ctx context.Context, client *http.Client, token string) {
	if err := deleteWebhook(ctx, client, token, false); err != nil {
		logger.Warn(ctx, component, "tg.webhook.delete",
			slog.String("status", "fail"),
			slog.String("err", redactToken(err.Error(), token)),
		)
		return
	}
	logger.Debug(ctx, component, "tg.webhook.delete", slog.String("status", "ok"))
}

// redactToken strips the bot token, which net/http errors echo in the URL.
func redactToken(msg, token string) string {
	if token != "" {
		msg = strings.ReplaceAll(msg, token, "<redacted>")
	}
	return logger.SanitizeLimit(msg, 256)
}

func logMode(ctx context.Context, poller tele.Poller, took time.Duration) {
	attrs := []slog.Attr{slog.Duration("duration", logger.RoundMS(took))}
	switch p := poller.(type) {
	case *tele.Webhook:
		attrs = append(attrs,
			slog.String("mode", "webhook"),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
		)
	case *tele.LongPoller:
		attrs = append(attrs,
			slog.String("mode", "polling"),
			slog.Duration("timeout", p.Timeout),
		)
	}
	logger.Info(ctx, component, "tg.mode", attrs...)
}

func deleteWebhook(ctx context.Context, client *http.Client, token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("empty token")
	}
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/deleteWebhook", token)
	body := fmt.Sprintf("drop_pending_updates=%t", dropPending)
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}
