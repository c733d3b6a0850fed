package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/geopal/core/config"
	coretelegram "github.com/m3rciful/geopal/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	services []Service
	closed   bool
	started  bool
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error {
			a.started = true
			return nil
		},
	}, nil
}

func (a *fakeApp) Services() []Service { return a.services }

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

func baseOptions(app *fakeApp) Options {
	return Options{
		ConfigEnvVar:      "GEOPAL_TEST_CONFIG",
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(string) (ConfigCarrier, error) {
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap: func(context.Context, ConfigCarrier) (TelegramApp, error) {
			return app, nil
		},
		ShutdownLogger: func() error { return nil },
	}
}

func TestRunStopsServicesWithBot(t *testing.T) {
	app := &fakeApp{}
	serviceStopped := make(chan struct{})
	app.services = []Service{{Name: "metrics", Run: func(ctx context.Context) error {
		<-ctx.Done()
		close(serviceStopped)
		return nil
	}}}

	opts := baseOptions(app)
	opts.RunTelegram = func(ctx context.Context, ro coretelegram.RunOptions) error {
		return ro.OnStart(ctx, coretelegram.Runtime{})
	}

	require.NoError(t, Run(opts))
	<-serviceStopped
	assert.True(t, app.started)
	assert.True(t, app.closed)
}

func TestRunReportsServiceFailure(t *testing.T) {
	app := &fakeApp{}
	boom := errors.New("listen: address in use")
	app.services = []Service{{Name: "metrics", Run: func(context.Context) error { return boom }}}

	opts := baseOptions(app)
	opts.RunTelegram = func(ctx context.Context, _ coretelegram.RunOptions) error {
		<-ctx.Done()
		return ctx.Err()
	}

	err := Run(opts)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "service metrics")
	assert.True(t, app.closed)
}

func TestRunParentCancelIsClean(t *testing.T) {
	app := &fakeApp{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := baseOptions(app)
	opts.Context = ctx
	opts.RunTelegram = func(ctx context.Context, _ coretelegram.RunOptions) error {
		<-ctx.Done()
		return ctx.Err()
	}
	assert.NoError(t, Run(opts))
}

func TestRunRequiresConfig(t *testing.T) {
	assert.Error(t, Run(Options{}))

	opts := baseOptions(&fakeApp{})
	opts.DefaultConfigPath = ""
	assert.Error(t, Run(opts))

	opts = baseOptions(&fakeApp{})
	opts.LoadConfig = func(string) (ConfigCarrier, error) { return carrier{}, nil }
	assert.Error(t, Run(opts))
}

func TestConfigPathPrefersEnv(t *testing.T) {
	t.Setenv("GEOPAL_TEST_CONFIG", "/etc/geopal.yaml")
	path, err := baseOptions(&fakeApp{}).configPath()
	require.NoError(t, err)
	assert.Equal(t, "/etc/geopal.yaml", path)
}
