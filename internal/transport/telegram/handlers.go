package telegram

import (
	"context"
	"log/slog"

	"github.com/m3rciful/geopal/core/logger"
	tgcore "github.com/m3rciful/geopal/core/telegram"
	"github.com/m3rciful/geopal/core/telegram/commands"
	tghelpers "github.com/m3rciful/geopal/core/telegram/helpers"
	"github.com/m3rciful/geopal/core/telegram/router"
	"github.com/m3rciful/geopal/internal/dispatch"
	"github.com/m3rciful/geopal/internal/event"

	tele "gopkg.in/telebot.v4"
)

// Dispatcher consumes classified events and reports the route taken.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev event.Event) (string, error)
}

// Handlers feeds bot updates into a Dispatcher.
type Handlers struct {
	dispatcher Dispatcher
	known      func(name string) bool
}

// NewHandlers binds d. Command recognition uses reg.
func NewHandlers(d Dispatcher, reg *tgcore.Registry) *Handlers {
	h := &Handlers{dispatcher: d}
	if reg != nil {
		h.known = reg.Known
	}
	return h
}

// RegisterCommands adds the router's commands to the menu registry.
func RegisterCommands(reg *tgcore.Registry, list []dispatch.CommandInfo) int {
	n := 0
	for _, info := range list {
		if reg.RegisterCommand(info.Name, commands.Command{Description: info.Description, Hidden: info.Hidden}) {
			n++
		}
	}
	return n
}

// Routes lists the telebot endpoints served by h. Commands arrive through
// OnText because no command endpoint is registered.
func (h *Handlers) Routes() []tgcore.Route {
	return []tgcore.Route{
		{Endpoint: tele.OnText, Handler: h.handle("text")},
		{Endpoint: tele.OnContact, Handler: h.handle("contact")},
		{Endpoint: tele.OnUserShared, Handler: h.handle("user_shared")},
		{Endpoint: tele.OnLocation, Handler: h.handle("location")},
		{Endpoint: tele.OnCallback, Handler: h.handle("callback")},
	}
}

func (h *Handlers) handle(endpoint string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Callback() != nil {
			if err := c.Respond(); err != nil {
				logger.Warn(tghelpers.BuildContext(c), "tg", "callback.respond_failed",
					slog.String("err", err.Error()),
				)
			}
		}

		ev, ok := Classify(c, h.known)
		if !ok {
			logger.Debug(tghelpers.BuildContext(c), "tg", "update.ignored",
				slog.String("handler", endpoint),
			)
			return nil
		}

		// The router already answered the user; the error only feeds the summary.
		_ = router.HandleWithSummary(c, handlerName(endpoint, ev), func() ([]slog.Attr, error) {
			route, err := h.dispatcher.Dispatch(tghelpers.BuildContext(c), ev)
			return []slog.Attr{
				slog.String("kind", event.Kind(ev)),
				slog.String("route", route),
			}, err
		})
		return nil
	}
}

func handlerName(endpoint string, ev event.Event) string {
	if cmd, ok := ev.(event.Command); ok {
		return cmd.Name
	}
	return endpoint
}
