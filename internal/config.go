package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/classdeck/internal/export"
	"github.com/starford/classdeck/internal/snapshot"
	"github.com/starford/classdeck/internal/timing"
	"github.com/starford/classdeck/internal/widget"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Store     StoreConfig       `yaml:"store"`
	Container ContainerConfig   `yaml:"container"`
	Snapshot  SnapshotConfig    `yaml:"snapshot"`
	Term      TermConfig        `yaml:"term"`
	Export    ExportConfig      `yaml:"export"`
	Widget    WidgetConfig      `yaml:"widget"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Container.Validate(); err != nil {
		return fmt.Errorf("container: %w", err)
	}
	loc, _ := c.App.Location()
	if err := c.Term.validate(loc); err != nil {
		return fmt.Errorf("term: %w", err)
	}
	if err := c.Widget.Validate(); err != nil {
		return fmt.Errorf("widget: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	// Timezone is the IANA zone used for dates and minutes of day. Empty
	// means the system zone.
	Timezone string     `yaml:"timezone"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// Location resolves Timezone.
func (c *ApplicationConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
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

// StoreConfig configures the primary store tiers.
type StoreConfig struct {
	SQLite SQLiteConfig `yaml:"sqlite"`
	Remote RemoteConfig `yaml:"remote"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	return c.Remote.Validate()
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

// RemoteConfig locates the NATS JetStream KV bucket courses replicate to.
type RemoteConfig struct {
	Enabled bool          `yaml:"enabled"`
	URL     string        `yaml:"url"`
	Bucket  string        `yaml:"bucket"`
	Timeout time.Duration `yaml:"timeout"`
}

// Validate validates the remote configuration. URL and bucket are only
// required when the remote is enabled.
func (c *RemoteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.URL, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Bucket, validation.When(c.Enabled, validation.Required)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// ContainerConfig is the shared directory every cooperating process can
// reach and the snapshot file inside it.
type ContainerConfig struct {
	Path     string `yaml:"path"`
	Filename string `yaml:"filename"`
}

// Validate validates the container configuration.
func (c *ContainerConfig) Validate() error {
	if c.Filename == "" {
		c.Filename = snapshot.DefaultFilename
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SnapshotConfig selects the snapshot encoding.
type SnapshotConfig struct {
	// LegacyFormat writes a bare entries array for readers that predate
	// the versioned document.
	LegacyFormat bool `yaml:"legacy_format"`
}

// TermConfig places teaching weeks on the calendar.
type TermConfig struct {
	// Start is the Monday of week 1, as YYYY-MM-DD.
	Start string `yaml:"start"`
	Weeks int    `yaml:"weeks"`
}

func (c *TermConfig) validate(loc *time.Location) error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Start, validation.Required, validation.Date(timing.DateLayout)),
		validation.Field(&c.Weeks, validation.Required, validation.Min(1), validation.Max(60)),
	); err != nil {
		return err
	}
	if loc == nil {
		loc = time.Local
	}
	start, _ := time.ParseInLocation(timing.DateLayout, c.Start, loc)
	if start.Weekday() != time.Monday {
		return errors.New("start must be a Monday")
	}
	return nil
}

// StartIn returns the term start as midnight in loc.
func (c *TermConfig) StartIn(loc *time.Location) time.Time {
	t, _ := time.ParseInLocation(timing.DateLayout, c.Start, loc)
	return t
}

// ExportConfig schedules periodic snapshot exports.
type ExportConfig struct {
	// Schedules are cron specs: five standard fields or descriptors such
	// as "@every 15m".
	Schedules []string `yaml:"schedules"`
}

// WidgetConfig configures the consumer process.
type WidgetConfig struct {
	HTTP    HTTPConfig `yaml:"http"`
	Refresh string     `yaml:"refresh"`
}

// Validate validates the widget configuration.
func (c *WidgetConfig) Validate() error {
	if c.Refresh == "" {
		c.Refresh = widget.DefaultRefreshSpec
	}
	return c.HTTP.Validate()
}

// AuthConfig holds authentication configuration for the main API.
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
		Store: StoreConfig{
			SQLite: SQLiteConfig{
				Path: "./classdeck.db",
			},
			Remote: RemoteConfig{
				Bucket:  "classdeck-courses",
				Timeout: 5 * time.Second,
			},
		},
		Container: ContainerConfig{
			Path:     "./shared",
			Filename: snapshot.DefaultFilename,
		},
		Term: TermConfig{
			Weeks: 18,
		},
		Export: ExportConfig{
			Schedules: append([]string(nil), export.DefaultSchedules...),
		},
		Widget: WidgetConfig{
			HTTP: HTTPConfig{
				Port: 8081,
			},
			Refresh: widget.DefaultRefreshSpec,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
