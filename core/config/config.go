// Package config loads the settings shared by every bot built on core: the
// Telegram connection, the webhook listener, logging and inbound rate limits.
// Values come from a YAML file and are then overridden by the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Telegram run modes.
const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update classes accepted by RateLimitConfig.ExcludeUpdates.
const (
	UpdateCallback = "callback"
	UpdateMessage  = "message"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds is the getUpdates wait; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
	// RequestTimeoutSeconds bounds a single Bot API call; 0 -> default
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" envconfig:"TELEGRAM_REQUEST_TIMEOUT_SECONDS"`
}

// WebhookConfig is only consulted in webhook run mode.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	// Profile is "prod", "dev" or "debug"; dev and debug default to kv output.
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// RateLimitConfig limits inbound updates per user. IntervalMS 0 disables it.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	Burst          int      `yaml:"burst" envconfig:"RATE_LIMIT_BURST"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load decodes and normalizes the core configuration at path.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	if err := Decode(path, cfg); err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode fills out from the YAML file at path and then from the environment.
// out may be any struct, so applications can embed Config in their own type.
func Decode(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := envconfig.Process("", out); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// Normalize fills defaults and reports every invalid field at once.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	var errs []error
	errs = append(errs, cfg.Telegram.normalize()...)
	if cfg.Telegram.RunMode == RunModeWebhook {
		errs = append(errs, cfg.Webhook.validate()...)
	}
	errs = append(errs, cfg.RateLimit.normalize()...)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (t *TelegramConfig) normalize() []error {
	var errs []error
	if strings.TrimSpace(t.Token) == "" {
		errs = append(errs, errors.New("telegram.token is required"))
	}
	if t.RequestTimeoutSeconds < 0 {
		errs = append(errs, errors.New("telegram.request_timeout_seconds must be >= 0"))
	}
	if t.LongPollTimeoutSeconds < 0 {
		errs = append(errs, errors.New("telegram.longpoll_timeout_seconds must be >= 0"))
	}

	switch mode := strings.ToLower(strings.TrimSpace(t.RunMode)); mode {
	case "", "polling", RunModeLongpoll:
		t.RunMode = RunModeLongpoll
	case RunModeWebhook:
		t.RunMode = RunModeWebhook
	default:
		errs = append(errs, fmt.Errorf("telegram.run_mode %q: want %s or %s", t.RunMode, RunModeLongpoll, RunModeWebhook))
	}
	return errs
}

func (w WebhookConfig) validate() []error {
	var errs []error
	if strings.TrimSpace(w.URL) == "" {
		errs = append(errs, errors.New("webhook.url is required in webhook mode"))
	}
	if strings.TrimSpace(w.Listen) == "" {
		errs = append(errs, errors.New("webhook.listen is required in webhook mode"))
	}
	if w.Port <= 0 || w.Port > 65535 {
		errs = append(errs, fmt.Errorf("webhook.port %d out of range", w.Port))
	}
	return errs
}

func (r *RateLimitConfig) normalize() []error {
	var errs []error
	if r.IntervalMS < 0 {
		errs = append(errs, errors.New("rate_limit.interval_ms must be >= 0"))
	}
	if r.Burst < 0 {
		errs = append(errs, errors.New("rate_limit.burst must be >= 0"))
	}

	kept := r.ExcludeUpdates[:0]
	for _, v := range r.ExcludeUpdates {
		switch key := strings.ToLower(strings.TrimSpace(v)); key {
		case "":
		case UpdateCallback, UpdateMessage:
			kept = append(kept, key)
		default:
			errs = append(errs, fmt.Errorf("rate_limit.exclude_updates %q: want %s or %s", v, UpdateCallback, UpdateMessage))
		}
	}
	r.ExcludeUpdates = kept
	return errs
}
