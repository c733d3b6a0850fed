// Package app wires configuration, infrastructure and the conversation core
// into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/m3rciful/geopal/core/bootstrap"
	"github.com/m3rciful/geopal/core/cmd"
	"github.com/m3rciful/geopal/core/logger"
	tgcore "github.com/m3rciful/geopal/core/telegram"
	"github.com/m3rciful/geopal/core/telegram/sender"
	"github.com/m3rciful/geopal/internal/dispatch"
	"github.com/m3rciful/geopal/internal/geo"
	"github.com/m3rciful/geopal/internal/identity"
	"github.com/m3rciful/geopal/internal/journal"
	"github.com/m3rciful/geopal/internal/metrics"
	"github.com/m3rciful/geopal/internal/relations"
	tgtransport "github.com/m3rciful/geopal/internal/transport/telegram"
	"github.com/m3rciful/geopal/internal/wizard"
)

const component = "app"

// App is a fully wired bot.
type App struct {
	cfg *Config
	db  *sqlx.DB

	registry *tgcore.Registry
	notifier *tgtransport.Notifier
	router   *dispatch.Router
	handlers *tgtransport.Handlers
	places   *geo.CachedResolver

	promRegistry *prometheus.Registry
}

// Load is the cmd.Options.LoadConfig hook.
func Load(path string) (cmd.ConfigCarrier, error) {
	return LoadConfig(path)
}

// Bootstrap is the cmd.Options.Bootstrap hook: it starts the logger, opens the
// journal database when enabled and wires the bot.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	infra, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	return New(cfg, infra.DB)
}

// New wires the application. db may be nil, in which case the relationship
// journal is disabled.
func New(cfg *Config, db *sqlx.DB) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(promRegistry)

	var j journal.Writer = journal.Nop{}
	if db != nil {
		j = journal.NewPostgres(db)
	}

	snd := sender.New(sender.Options{
		MaxRetries:   cfg.Delivery.MaxRetries,
		RetryBackoff: time.Duration(cfg.Delivery.RetryBackoffMS) * time.Millisecond,
		MaxFloodWait: time.Duration(cfg.Delivery.MaxFloodWaitSeconds) * time.Second,
	})
	tgNotifier := tgtransport.NewNotifier(snd)
	notifier := metrics.InstrumentNotifier(tgNotifier, m)

	places := geo.NewCachedResolver(buildResolver(cfg.Geocoding), cfg.Geocoding.cacheTTL(), cfg.Geocoding.Precision, m)

	people := identity.NewRegistry()
	rel := relations.NewEngine(people, j)
	flows := wizard.NewEngine(wizard.NewStore(), people, rel, notifier, m)
	router := dispatch.New(dispatch.Deps{
		People:    people,
		Relations: rel,
		Wizard:    flows,
		Notifier:  notifier,
		Places:    places,
		Journal:   j,
		Observer:  m,
	})

	reg := tgcore.NewRegistry()
	tgtransport.RegisterCommands(reg, dispatch.Commands)

	return &App{
		cfg:          cfg,
		db:           db,
		registry:     reg,
		notifier:     tgNotifier,
		router:       router,
		handlers:     tgtransport.NewHandlers(router, reg),
		places:       places,
		promRegistry: promRegistry,
	}, nil
}

func buildResolver(cfg GeocodingConfig) geo.Resolver {
	google, err := geo.NewGoogleResolver(geo.GoogleOptions{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.timeout(),
	})
	if err != nil {
		logger.Warn(context.Background(), component, "geocoding.disabled",
			slog.String("status", "skip"),
			slog.String("err", err.Error()),
		)
		return geo.Unavailable{Reason: err}
	}
	return google
}

// TelegramRunOptions builds the bot runtime options.
func (a *App) TelegramRunOptions() (tgcore.RunOptions, error) {
	core := a.cfg.CoreConfig()
	return tgcore.RunOptions{
		Config:      core,
		Registry:    a.registry,
		Middlewares: tgcore.DefaultMiddlewares(core, nil),
		Routes:      a.handlers.Routes(),
		OnStart: func(ctx context.Context, rt tgcore.Runtime) error {
			a.notifier.Bind(rt.Bot)
			a.places.Start()
			logger.Info(ctx, component, "app.wired",
				slog.Int("routes", len(a.router.RouteNames())),
				slog.Bool("journal", a.db != nil),
			)
			return nil
		},
		OnStop: func(ctx context.Context, _ tgcore.Runtime) error {
			a.places.Stop()
			return nil
		},
	}, nil
}

// Services returns the background services that run next to the bot.
func (a *App) Services() []cmd.Service {
	if a.cfg.Metrics.Listen == "" {
		return nil
	}
	return []cmd.Service{{Name: "metrics", Run: a.serveMetrics}}
}

func (a *App) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, metrics.Handler(a.promRegistry))
	srv := &http.Server{
		Addr:              a.cfg.Metrics.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, component, "metrics.listen",
			slog.String("listen", a.cfg.Metrics.Listen),
			slog.String("path", a.cfg.Metrics.Path),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: metrics shutdown: %w", err)
		}
		return nil
	}
}

// Close releases the database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
