// Package config loads settings from the XDG configuration directory and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "supatodo"

	// ConfigFile is the configuration filename.
	ConfigFile = "config.yaml"

	// TokenFile is the stored session token filename.
	TokenFile = "token.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "SUPATODO"
)

// Reorder persistence modes.
const (
	OrderEphemeral = "ephemeral"
	OrderPersisted = "persisted"
)

// Failure policies for optimistic updates.
const (
	FailureKeep     = "keep"
	FailureRollback = "rollback"
)

// ErrBackendNotConfigured is returned when the Supabase endpoint or key is missing.
var ErrBackendNotConfigured = errors.New("supabase.url and supabase.anon_key must be configured")

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `yaml:"-" mapstructure:"-"`

	// Debug enables debug logging.
	Debug bool `yaml:"-" mapstructure:"-"`

	// Quiet suppresses informational output.
	Quiet bool `yaml:"-" mapstructure:"-"`

	Supabase SupabaseConfig `yaml:"supabase" mapstructure:"supabase"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Tasks    TasksConfig    `yaml:"tasks" mapstructure:"tasks"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// SupabaseConfig points at the hosted backend.
type SupabaseConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	AnonKey string        `yaml:"anon_key" mapstructure:"anon_key"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ServerConfig configures the web server.
type ServerConfig struct {
	Listen        string        `yaml:"listen" mapstructure:"listen"`
	SessionKey    string        `yaml:"session_key" mapstructure:"session_key"`
	SecureCookies bool          `yaml:"secure_cookies" mapstructure:"secure_cookies"`
	ViewIdle      time.Duration `yaml:"view_idle" mapstructure:"view_idle"`
}

// TasksConfig configures the task list.
type TasksConfig struct {
	Table     string `yaml:"table" mapstructure:"table"`
	Order     string `yaml:"order" mapstructure:"order"`
	OnFailure string `yaml:"on_failure" mapstructure:"on_failure"`
}

// PersistOrder reports whether reordering is written to the table.
func (t TasksConfig) PersistOrder() bool {
	return t.Order == OrderPersisted
}

// Rollback reports whether failed optimistic changes are reverted.
func (t TasksConfig) Rollback() bool {
	return t.OnFailure == FailureRollback
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// New creates a Config holding defaults for the given or default config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/supatodo or $HOME/.config/supatodo.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir: dir,
		Supabase: SupabaseConfig{
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Listen:   ":8080",
			ViewIdle: 30 * time.Minute,
		},
		Tasks: TasksConfig{
			Table:     "todos",
			Order:     OrderEphemeral,
			OnFailure: FailureKeep,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}, nil
}

// Load builds a Config from defaults, the config file (if present) and the
// environment, in increasing order of precedence.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("supabase.url", EnvPrefix+"_SUPABASE_URL", "SUPABASE_URL")
	_ = v.BindEnv("supabase.anon_key", EnvPrefix+"_SUPABASE_ANON_KEY", "SUPABASE_ANON_KEY")

	path := cfg.ConfigFilePath()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("supabase.url", cfg.Supabase.URL)
	v.SetDefault("supabase.anon_key", cfg.Supabase.AnonKey)
	v.SetDefault("supabase.timeout", cfg.Supabase.Timeout)
	v.SetDefault("server.listen", cfg.Server.Listen)
	v.SetDefault("server.session_key", cfg.Server.SessionKey)
	v.SetDefault("server.secure_cookies", cfg.Server.SecureCookies)
	v.SetDefault("server.view_idle", cfg.Server.ViewIdle)
	v.SetDefault("tasks.table", cfg.Tasks.Table)
	v.SetDefault("tasks.order", cfg.Tasks.Order)
	v.SetDefault("tasks.on_failure", cfg.Tasks.OnFailure)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

func (c *Config) validate() error {
	switch c.Tasks.Order {
	case OrderEphemeral, OrderPersisted:
	default:
		return fmt.Errorf("invalid tasks.order: %q (want %s or %s)", c.Tasks.Order, OrderEphemeral, OrderPersisted)
	}
	switch c.Tasks.OnFailure {
	case FailureKeep, FailureRollback:
	default:
		return fmt.Errorf("invalid tasks.on_failure: %q (want %s or %s)", c.Tasks.OnFailure, FailureKeep, FailureRollback)
	}
	if strings.TrimSpace(c.Tasks.Table) == "" {
		return fmt.Errorf("tasks.table must not be empty")
	}
	return nil
}

// RequireBackend reports whether the Supabase endpoint and key are set.
func (c *Config) RequireBackend() error {
	if strings.TrimSpace(c.Supabase.URL) == "" || strings.TrimSpace(c.Supabase.AnonKey) == "" {
		return ErrBackendNotConfigured
	}
	return nil
}

// Redacted returns a copy of c with secrets masked, for display.
func (c *Config) Redacted() Config {
	out := *c
	out.Supabase.AnonKey = mask(out.Supabase.AnonKey)
	out.Server.SessionKey = mask(out.Server.SessionKey)
	return out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigFilePath returns the path to the configuration file.
func (c *Config) ConfigFilePath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// TokenPath returns the path to the stored session token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	_, err := os.Stat(c.TokenPath())
	return err == nil
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}
