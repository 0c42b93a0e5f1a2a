// Package config loads the azureafeed configuration: a YAML file with ${VAR}
// expansion, defaults, then AZUREA_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/channel"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "AZUREA_"

// Feed names accepted in Config.Feed.
const (
	FeedNotifications  = "notifications"
	FeedActiveBookings = "active_bookings"
)

type Config struct {
	// Origin is the page origin the client is served from; socket URLs are
	// derived from it.
	Origin string `yaml:"origin" env:"ORIGIN"`
	// APIBaseURL is the REST root, without the /api/guest prefix.
	APIBaseURL  string `yaml:"api_base_url" env:"API_BASE_URL"`
	UserID      string `yaml:"user_id" env:"USER_ID"`
	AccessToken string `yaml:"access_token" env:"ACCESS_TOKEN"`
	Feed        string `yaml:"feed" env:"FEED"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`

	// InitialLimit is how many notifications are fetched over REST before
	// tailing the feed. Zero skips the fetch.
	InitialLimit int `yaml:"initial_limit" env:"INITIAL_LIMIT"`

	Channel ChannelConfig `yaml:"channel" envPrefix:"CHANNEL_"`
}

type ChannelConfig struct {
	DebounceWindow    time.Duration `yaml:"debounce_window" env:"DEBOUNCE_WINDOW"`
	LivenessInterval  time.Duration `yaml:"liveness_interval" env:"LIVENESS_INTERVAL"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL"`
	BaseDelay         time.Duration `yaml:"base_delay" env:"BASE_DELAY"`
	Multiplier        float64       `yaml:"multiplier" env:"MULTIPLIER"`
	MaxRetries        *int          `yaml:"max_retries" env:"MAX_RETRIES"`
	WriteTimeout      time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	LocalBackendAddr  string        `yaml:"local_backend_addr" env:"LOCAL_BACKEND_ADDR"`
}

// Load reads path, applies defaults and environment overrides, and validates
// the result. An empty path loads from the environment alone.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Feed == "" {
		c.Feed = FeedNotifications
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = c.Origin
	}

	d := channel.DefaultConfig()
	ch := &c.Channel
	if ch.DebounceWindow == 0 {
		ch.DebounceWindow = d.DebounceWindow
	}
	if ch.LivenessInterval == 0 {
		ch.LivenessInterval = d.LivenessInterval
	}
	if ch.HeartbeatInterval == 0 {
		ch.HeartbeatInterval = d.HeartbeatInterval
	}
	if ch.BaseDelay == 0 {
		ch.BaseDelay = d.BaseDelay
	}
	if ch.Multiplier == 0 {
		ch.Multiplier = d.Multiplier
	}
	if ch.MaxRetries == nil {
		n := d.MaxRetries
		ch.MaxRetries = &n
	}
	if ch.WriteTimeout == 0 {
		ch.WriteTimeout = d.WriteTimeout
	}
	if ch.LocalBackendAddr == "" {
		ch.LocalBackendAddr = d.LocalBackendAddr
	}
}

func (c *Config) Validate() error {
	var errs []error

	if c.Origin == "" {
		errs = append(errs, errors.New("origin is required"))
	} else if _, err := channel.BuildURL(c.Origin, "/", c.Channel.LocalBackendAddr); err != nil {
		errs = append(errs, fmt.Errorf("origin: %w", err))
	}
	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("api_base_url %q is not an absolute url", c.APIBaseURL))
	}
	if c.UserID == "" {
		errs = append(errs, errors.New("user_id is required"))
	}
	switch c.Feed {
	case FeedNotifications, FeedActiveBookings:
	default:
		errs = append(errs, fmt.Errorf("feed %q must be %q or %q", c.Feed, FeedNotifications, FeedActiveBookings))
	}
	if c.InitialLimit < 0 {
		errs = append(errs, errors.New("initial_limit must not be negative"))
	}

	ch := c.Channel
	if ch.Multiplier < 1 {
		errs = append(errs, errors.New("channel.multiplier must be at least 1"))
	}
	if ch.MaxRetries != nil && *ch.MaxRetries < 0 {
		errs = append(errs, errors.New("channel.max_retries must not be negative"))
	}
	for name, d := range map[string]time.Duration{
		"debounce_window":    ch.DebounceWindow,
		"liveness_interval":  ch.LivenessInterval,
		"heartbeat_interval": ch.HeartbeatInterval,
		"base_delay":         ch.BaseDelay,
		"write_timeout":      ch.WriteTimeout,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("channel.%s must not be negative", name))
		}
	}

	return errors.Join(errs...)
}

// ChannelConfig converts the loaded timings to a channel.Config. Call it on a
// loaded Config so defaults are filled.
func (c *Config) ChannelConfig() channel.Config {
	cfg := channel.DefaultConfig()
	ch := c.Channel
	cfg.DebounceWindow = ch.DebounceWindow
	cfg.LivenessInterval = ch.LivenessInterval
	cfg.HeartbeatInterval = ch.HeartbeatInterval
	cfg.BaseDelay = ch.BaseDelay
	cfg.Multiplier = ch.Multiplier
	if ch.MaxRetries != nil {
		cfg.MaxRetries = *ch.MaxRetries
	}
	cfg.WriteTimeout = ch.WriteTimeout
	cfg.LocalBackendAddr = ch.LocalBackendAddr
	return cfg
}
