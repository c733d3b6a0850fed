package telegram

import (
	"net"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/geopal/core/config"
)

const defaultLongPollTimeout = 10 * time.Second

// AllowedUpdates are the update types the bot subscribes to. Everything it
// handles arrives as a message or an inline button press.
var AllowedUpdates = []string{"message", "callback_query"}

// PollerOptions configures BuildPoller.
type PollerOptions struct {
	// RunMode is one of the coreconfig run modes, already normalized.
	RunMode string
	// LongPollTimeout is the getUpdates wait; <= 0 -> 10s.
	LongPollTimeout time.Duration
	Webhook         coreconfig.WebhookConfig
}

// PollerOptionsFrom maps the core configuration onto PollerOptions.
func PollerOptionsFrom(cfg *coreconfig.Config) PollerOptions {
	return PollerOptions{
		RunMode:         cfg.Telegram.RunMode,
		LongPollTimeout: time.Duration(cfg.Telegram.LongPollTimeoutSeconds) * time.Second,
		Webhook:         cfg.Webhook,
	}
}

// BuildPoller returns the webhook listener or the long poller selected by
// opts.RunMode, both restricted to AllowedUpdates.
func BuildPoller(opts PollerOptions) tele.Poller {
	if opts.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(opts.Webhook.Listen, strconv.Itoa(opts.Webhook.Port)),
			Endpoint:       &tele.WebhookEndpoint{PublicURL: opts.Webhook.URL},
			AllowedUpdates: AllowedUpdates,
		}
	}

	timeout := opts.LongPollTimeout
	if timeout <= 0 {
		timeout = defaultLongPollTimeout
	}
	return &tele.LongPoller{Timeout: timeout, AllowedUpdates: AllowedUpdates}
}
