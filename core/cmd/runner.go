// Package cmd is the process entry point shared by bots built on core.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	coreconfig "github.com/m3rciful/geopal/core/config"
	"github.com/m3rciful/geopal/core/logger"
	coretelegram "github.com/m3rciful/geopal/core/telegram"
)

// ConfigCarrier exposes access to the embedded core configuration.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp is the minimal interface required to run a Telegram bot.
type TelegramApp interface {
	TelegramRunOptions() (coretelegram.RunOptions, error)
}

// Service is a background task that runs next to the bot until ctx is done.
type Service struct {
	Name string
	Run  func(ctx context.Context) error
}

// ServiceProvider is implemented by apps that run extra services.
type ServiceProvider interface {
	Services() []Service
}

// Options describe how to load configuration, bootstrap the app, and run the bot.
type Options struct {
	// ConfigEnvVar names the variable holding the config path; "" -> CONFIG_PATH.
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(ctx context.Context, cfg ConfigCarrier) (TelegramApp, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
	// Context replaces context.Background as the parent of the signal context.
	Context context.Context
}

func (o Options) configPath() (string, error) {
	env := o.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if o.DefaultConfigPath != "" {
		return o.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", env)
}

// Run loads configuration, bootstraps the app and runs the bot together with
// the app's services until SIGINT/SIGTERM or until one of them fails. The
// first failure stops the rest.
func Run(opts Options) error {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	path, err := opts.configPath()
	if err != nil {
		return err
	}

	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}
	if cfg == nil || cfg.CoreConfig() == nil {
		return errors.New("cmd: loaded config is missing core configuration")
	}

	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	startedAt := time.Now()
	application, err := opts.Bootstrap(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	defer shutdown(application, opts.ShutdownLogger)

	runOpts, err := application.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: telegram options: %w", err)
	}
	announce(&runOpts, startedAt)

	runBot := opts.RunTelegram
	if runBot == nil {
		runBot = coretelegram.RunTelegram
	}
	var services []Service
	if provider, ok := application.(ServiceProvider); ok {
		services = provider.Services()
	}

	err = runAll(ctx, func(ctx context.Context) error { return runBot(ctx, runOpts) }, services)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runAll runs the bot and services in one errgroup. The services are stopped
// when the bot returns, even without error.
func runAll(ctx context.Context, bot func(context.Context) error, services []Service) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return bot(gctx)
	})
	for _, svc := range services {
		if svc.Run == nil {
			continue
		}
		g.Go(func() error {
			if err := svc.Run(gctx); err != nil {
				return fmt.Errorf("cmd: service %s: %w", svc.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// announce chains the ready and shutdown log lines onto the app's hooks.
func announce(opts *coretelegram.RunOptions, startedAt time.Time) {
	onStart, onStop := opts.OnStart, opts.OnStop
	opts.OnStart = func(ctx context.Context, rt coretelegram.Runtime) error {
		if onStart != nil {
			if err := onStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, "app", "ready",
			slog.String("status", "ok"),
			slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
		)
		return nil
	}
	opts.OnStop = func(ctx context.Context, rt coretelegram.Runtime) error {
		logger.Info(ctx, "app", "shutdown")
		if onStop != nil {
			return onStop(ctx, rt)
		}
		return nil
	}
}

// shutdown closes the app when it is an io.Closer, then flushes the logger.
func shutdown(application TelegramApp, flush func() error) {
	if closer, ok := application.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warn(context.Background(), "app", "close.failed", slog.String("err", err.Error()))
		}
	}
	if flush == nil {
		flush = logger.Shutdown
	}
	if err := flush(); err != nil {
		log.Printf("logger shutdown error: %v", err)
	}
}
