package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaultsToLongpoll(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: abc\nrate_limit:\n  exclude_updates: [\" Callback \"]\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, []string{UpdateCallback}, cfg.RateLimit.ExcludeUpdates)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("TELEGRAM_RUN_MODE", "polling")
	path := writeConfig(t, "telegram:\n  token: from-file\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestNormalizeRejects(t *testing.T) {
	cases := map[string]Config{
		"missing token":   {},
		"bad run mode":    {Telegram: TelegramConfig{Token: "t", RunMode: "carrier-pigeon"}},
		"webhook no url":  {Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook}},
		"negative poll":   {Telegram: TelegramConfig{Token: "t", LongPollTimeoutSeconds: -1}},
		"bad rate update": {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}}},
		"negative burst":  {Telegram: TelegramConfig{Token: "t"}, RateLimit: RateLimitConfig{Burst: -1}},
		"webhook port":    {Telegram: TelegramConfig{Token: "t", RunMode: "webhook"}, Webhook: WebhookConfig{URL: "https://x", Listen: "0.0.0.0", Port: 70000}},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Normalize(&cfg))
		})
	}
	assert.Error(t, Normalize(nil))
}

func TestDecodeIntoEmbeddingStruct(t *testing.T) {
	type app struct {
		Config `yaml:",inline"`
		Extra  string `yaml:"extra"`
	}
	path := writeConfig(t, "telegram:\n  token: abc\nextra: yes-please\n")

	var out app
	require.NoError(t, Decode(path, &out))
	assert.Equal(t, "abc", out.Telegram.Token)
	assert.Equal(t, "yes-please", out.Extra)
}

func TestNormalizeReportsEveryProblem(t *testing.T) {
	cfg := Config{
		Telegram: TelegramConfig{RunMode: RunModeWebhook},
		Webhook:  WebhookConfig{Port: 8443},
	}
	err := Normalize(&cfg)
	require.Error(t, err)
	for _, want := range []string{"telegram.token", "webhook.url", "webhook.listen"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestNormalizeDropsBlankExclusions(t *testing.T) {
	cfg := Config{
		Telegram:  TelegramConfig{Token: "t"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" ", "MESSAGE"}},
	}
	require.NoError(t, Normalize(&cfg))
	assert.Equal(t, []string{UpdateMessage}, cfg.RateLimit.ExcludeUpdates)
}
