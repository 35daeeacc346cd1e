package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Remote   RemoteConfig      `yaml:"remote"`
	Cache    CacheConfig       `yaml:"cache"`
	Sync     SyncConfig        `yaml:"sync"`
	Calendar CalendarConfig    `yaml:"calendar"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Remote.Validate(); err != nil {
		return err
	}
	if err := c.Cache.Validate(); err != nil {
		return err
	}
	if err := c.Sync.Validate(); err != nil {
		return err
	}
	if err := c.Calendar.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// RemoteConfig holds the hosted backend connection settings.
type RemoteConfig struct {
	BaseURL        string  `yaml:"base_url"`
	UserID         string  `yaml:"user_id"`
	Token          string  `yaml:"token"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RateLimit      float64 `yaml:"rate_limit"`
}

// Timeout returns the per-request timeout.
func (c *RemoteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Validate validates the remote configuration.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.UserID, validation.Required),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
		validation.Field(&c.RateLimit, validation.Min(float64(0))),
	)
}

// CacheConfig holds the local SQLite cache configuration.
type CacheConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SyncConfig controls connectivity probing and startup loading.
type SyncConfig struct {
	PingIntervalSeconds  int `yaml:"ping_interval_seconds"`
	LoadTimeoutSeconds   int `yaml:"load_timeout_seconds"`
	StatsThrottleSeconds int `yaml:"stats_throttle_seconds"`
}

// PingInterval returns the connectivity probe interval.
func (c *SyncConfig) PingInterval() time.Duration {
	return time.Duration(c.PingIntervalSeconds) * time.Second
}

// LoadTimeout returns the startup remote-load timeout.
func (c *SyncConfig) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSeconds) * time.Second
}

// StatsThrottle returns the minimum interval between aggregate stats events.
func (c *SyncConfig) StatsThrottle() time.Duration {
	return time.Duration(c.StatsThrottleSeconds) * time.Second
}

// Validate validates the sync configuration.
func (c *SyncConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.PingIntervalSeconds, validation.Min(0)),
		validation.Field(&c.LoadTimeoutSeconds, validation.Min(0)),
		validation.Field(&c.StatsThrottleSeconds, validation.Min(0)),
	)
}

// CalendarConfig holds month-grid display settings.
//
// WeekStart is the first day of the week as time.Weekday (0 = Sunday,
// 1 = Monday, ... 6 = Saturday).
type CalendarConfig struct {
	WeekStart int `yaml:"week_start"`
}

// Weekday returns the configured week start as a time.Weekday.
func (c *CalendarConfig) Weekday() time.Weekday {
	return time.Weekday(c.WeekStart)
}

// Validate validates the calendar configuration.
func (c *CalendarConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.WeekStart, validation.Min(0), validation.Max(6)),
	)
}

// AuthConfig holds API authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Remote: RemoteConfig{
			BaseURL:        "http://localhost:9000",
			UserID:         "local",
			TimeoutSeconds: 10,
			RateLimit:      10,
		},
		Cache: CacheConfig{
			Path: "./lumen.db",
		},
		Sync: SyncConfig{
			PingIntervalSeconds:  15,
			LoadTimeoutSeconds:   5,
			StatsThrottleSeconds: 2,
		},
		Calendar: CalendarConfig{
			WeekStart: int(time.Sunday),
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
