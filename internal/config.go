package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/itsbohara/anchor/internal/pathcheck"
	"github.com/itsbohara/anchor/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Storage StorageConfig     `yaml:"storage"`
	Auth    AuthConfig        `yaml:"auth"`
	Client  ClientConfig      `yaml:"client"`
	Shell   ShellConfig       `yaml:"shell"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Client.Validate()
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

// StorageConfig selects where references are persisted.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Driver == "" {
		c.Driver = storage.DriverJSON
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Driver, validation.In(storage.DriverJSON, storage.DriverSQLite)),
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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

// ClientConfig is read by the popover and the one-shot CLI commands.
type ClientConfig struct {
	ServerURL      string        `yaml:"server_url"`
	Token          string        `yaml:"token"`
	PathCheckDelay time.Duration `yaml:"path_check_delay"`
}

// Validate validates the client configuration.
func (c *ClientConfig) Validate() error {
	if c.PathCheckDelay <= 0 {
		c.PathCheckDelay = pathcheck.DefaultDelay
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.ServerURL, validation.Required),
	)
}

// ShellConfig overrides the programs used by the open commands.
type ShellConfig struct {
	Terminal string `yaml:"terminal"`
	Editor   string `yaml:"editor"`
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
		Storage: StorageConfig{
			Driver: storage.DriverJSON,
			Path:   "./data/data.json",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Client: ClientConfig{
			ServerURL:      "http://localhost:8080",
			PathCheckDelay: pathcheck.DefaultDelay,
		},
		Shell: ShellConfig{
			Editor: "code",
		},
	}
}
