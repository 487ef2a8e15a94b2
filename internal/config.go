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

// Duration is a time.Duration that unmarshals from YAML strings like "2s"
// or "5m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Uploads UploadsConfig     `yaml:"uploads"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	Engine  EngineConfig      `yaml:"engine"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Uploads.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Engine.Validate()
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

// UploadsConfig holds the directories for ingested knowledge files.
//
// Path is where organized copies live. Inbox, when set, is watched for new
// files which are ingested automatically and then removed.
type UploadsConfig struct {
	Path  string `yaml:"path"`
	Inbox string `yaml:"inbox"`
}

// Validate validates the uploads configuration.
func (c *UploadsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
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

// EngineConfig holds the timing knobs of the organization engine. Zero
// values fall back to the engine defaults.
type EngineConfig struct {
	Debounce             Duration `yaml:"debounce"`
	SuggestionTTL        Duration `yaml:"suggestion_ttl"`
	RelevanceInterval    Duration `yaml:"relevance_interval"`
	RelationshipInterval Duration `yaml:"relationship_interval"`
	AmbientShowDelay     Duration `yaml:"ambient_show_delay"`
	AmbientDuration      Duration `yaml:"ambient_duration"`
}

// Validate validates the engine configuration.
func (c *EngineConfig) Validate() error {
	for name, d := range map[string]Duration{
		"debounce":              c.Debounce,
		"suggestion_ttl":        c.SuggestionTTL,
		"relevance_interval":    c.RelevanceInterval,
		"relationship_interval": c.RelationshipInterval,
		"ambient_show_delay":    c.AmbientShowDelay,
		"ambient_duration":      c.AmbientDuration,
	} {
		if d < 0 {
			return fmt.Errorf("engine: %s must not be negative", name)
		}
	}
	return nil
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
		Uploads: UploadsConfig{
			Path: "./uploads",
		},
		SQLite: SQLiteConfig{
			Path: "./ordna.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
