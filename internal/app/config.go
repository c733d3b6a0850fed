package app

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/geopal/core/config"
	coredatabase "github.com/m3rciful/geopal/core/database"
)

// GeocodingConfig configures place resolution.
type GeocodingConfig struct {
	APIKey  string `yaml:"api_key" envconfig:"GOOGLE_MAPS_API_KEY"`
	BaseURL string `yaml:"base_url" envconfig:"GEOCODING_BASE_URL"`
	// CacheTTLSeconds is how long a resolved place is reused; 0 -> default.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds" envconfig:"GEOCODING_CACHE_TTL_SECONDS"`
	// Precision is the number of coordinate decimals used as cache key.
	Precision      int `yaml:"precision" envconfig:"GEOCODING_PRECISION"`
	TimeoutSeconds int `yaml:"timeout_seconds" envconfig:"GEOCODING_TIMEOUT_SECONDS"`
}

// MetricsConfig enables the Prometheus endpoint when Listen is set.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
	Path   string `yaml:"path" envconfig:"METRICS_PATH"`
}

// DeliveryConfig tunes retries of message edits and deletes. Sends are never
// repeated. MaxRetries 0 means a single attempt.
type DeliveryConfig struct {
	MaxRetries          int `yaml:"max_retries" envconfig:"DELIVERY_MAX_RETRIES"`
	RetryBackoffMS      int `yaml:"retry_backoff_ms" envconfig:"DELIVERY_RETRY_BACKOFF_MS"`
	MaxFloodWaitSeconds int `yaml:"max_flood_wait_seconds" envconfig:"DELIVERY_MAX_FLOOD_WAIT_SECONDS"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Geocoding GeocodingConfig     `yaml:"geocoding"`
	Database  coredatabase.Config `yaml:"database"`
	Metrics   MetricsConfig       `yaml:"metrics"`
	Delivery  DeliveryConfig      `yaml:"delivery"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads path, applies the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}
	if err := c.Database.Normalize(); err != nil {
		return err
	}

	g := &c.Geocoding
	g.APIKey = strings.TrimSpace(g.APIKey)
	if g.CacheTTLSeconds < 0 || g.Precision < 0 || g.TimeoutSeconds < 0 {
		return fmt.Errorf("geocoding.cache_ttl_seconds, precision and timeout_seconds must be >= 0")
	}
	if g.CacheTTLSeconds == 0 {
		g.CacheTTLSeconds = 3600
	}
	if g.Precision == 0 {
		g.Precision = 2
	}
	if g.Precision > 6 {
		return fmt.Errorf("geocoding.precision must be <= 6")
	}
	if g.TimeoutSeconds == 0 {
		g.TimeoutSeconds = 5
	}

	if c.Metrics.Listen != "" {
		if c.Metrics.Path == "" {
			c.Metrics.Path = "/metrics"
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return fmt.Errorf("metrics.path must start with '/'")
		}
	}

	d := &c.Delivery
	if d.MaxRetries < 0 || d.RetryBackoffMS < 0 || d.MaxFloodWaitSeconds < 0 {
		return fmt.Errorf("delivery settings must be >= 0")
	}
	return nil
}

func (g GeocodingConfig) cacheTTL() time.Duration {
	return time.Duration(g.CacheTTLSeconds) * time.Second
}

func (g GeocodingConfig) timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}
