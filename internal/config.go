package internal

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/arnstad/hugin/internal/metadata"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Metadata MetadataConfig    `yaml:"metadata"`
	FactsDir FactsDirConfig    `yaml:"facts_dir"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Metadata.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
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

// Address returns the HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// prefixRe constrains the namespace prefix to an identifier-safe token, so
// every emitted fact name stays valid in downstream templating systems.
var prefixRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// MetadataConfig holds the metadata service endpoints and crawl behavior.
type MetadataConfig struct {
	BaseURI         string        `yaml:"base_uri"`
	UserDataURI     string        `yaml:"user_data_uri"`
	PublicKeyURI    string        `yaml:"public_key_uri"`
	Timeout         time.Duration `yaml:"timeout"`
	Prefix          string        `yaml:"prefix"`
	FilterPatterns  []string      `yaml:"filter_patterns"`
	Regions         []string      `yaml:"regions"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	KeepSnapshots   int           `yaml:"keep_snapshots"`
}

// Validate validates the metadata configuration.
func (c *MetadataConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.BaseURI, validation.Required),
		validation.Field(&c.UserDataURI, validation.Required),
		validation.Field(&c.PublicKeyURI, validation.Required),
		validation.Field(&c.Prefix, validation.Required, validation.Match(prefixRe)),
	); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return fmt.Errorf("metadata: timeout must not be negative")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("metadata: refresh_interval must not be negative")
	}
	return nil
}

// FactsDirConfig holds the optional local facts directory (facts.d).
// An empty path disables the feature.
type FactsDirConfig struct {
	Path string `yaml:"path"`
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

// NewDefaultConfig returns a new Config with sensible default values.
// The metadata endpoints default to the link-local instance metadata
// service.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Metadata: MetadataConfig{
			BaseURI:         "http://169.254.169.254/latest/meta-data/",
			UserDataURI:     "http://169.254.169.254/latest/user-data/",
			PublicKeyURI:    "http://169.254.169.254/latest/meta-data/public-keys/0/openssh-key",
			Timeout:         metadata.DefaultTimeout,
			Prefix:          "ec2",
			FilterPatterns:  metadata.DefaultFilterPatterns,
			Regions:         metadata.DefaultRegions,
			RefreshInterval: 5 * time.Minute,
			KeepSnapshots:   20,
		},
		SQLite: SQLiteConfig{
			Path: "./hugin.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
