// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Supported scripting host backends.
const (
	BackendSafari  = "safari"
	BackendCDP     = "cdp"
	BackendOffline = "offline"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Host() HostConfig
	Sync() SyncConfig
	Typing() TypingConfig

	// Host Setters
	SetHostBackend(string)
	SetHostHeadless(bool)
}

// Config holds the entire application configuration. Sections are exported so
// viper can decode into them; callers should go through the Interface getters.
type Config struct {
	LoggerCfg LoggerConfig `mapstructure:"logger" yaml:"logger"`
	HostCfg   HostConfig   `mapstructure:"host" yaml:"host"`
	SyncCfg   SyncConfig   `mapstructure:"sync" yaml:"sync"`
	TypingCfg TypingConfig `mapstructure:"typing" yaml:"typing"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig { return c.LoggerCfg }
func (c *Config) Host() HostConfig     { return c.HostCfg }
func (c *Config) Sync() SyncConfig     { return c.SyncCfg }
func (c *Config) Typing() TypingConfig { return c.TypingCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetHostBackend(b string) { c.HostCfg.Backend = b }
func (c *Config) SetHostHeadless(b bool)  { c.HostCfg.Headless = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// HostConfig selects and tunes the scripting host.
type HostConfig struct {
	// Backend is "safari" (AppleScript through osascript), "cdp" (Chromium)
	// or "offline" (a saved HTML file run in process).
	Backend string `mapstructure:"backend" yaml:"backend"`
	// AppName is the scriptable application osascript talks to.
	AppName       string `mapstructure:"app_name" yaml:"app_name"`
	OSAScriptPath string `mapstructure:"osascript_path" yaml:"osascript_path"`
	// RemoteURL attaches to a running browser's DevTools endpoint instead of
	// launching one.
	RemoteURL     string        `mapstructure:"remote_url" yaml:"remote_url"`
	Headless      bool          `mapstructure:"headless" yaml:"headless"`
	ScriptTimeout time.Duration `mapstructure:"script_timeout" yaml:"script_timeout"`
	// Document is the HTML file the offline backend loads. DocumentURL is the
	// address it pretends to be served from; empty means its file:// URL.
	Document    string `mapstructure:"document" yaml:"document"`
	DocumentURL string `mapstructure:"document_url" yaml:"document_url"`
}

// SyncConfig is the page-load budget.
type SyncConfig struct {
	MaxRounds    int           `mapstructure:"max_rounds" yaml:"max_rounds"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SettleDelay  time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
}

// TypingConfig controls simulated keystrokes.
type TypingConfig struct {
	Lag time.Duration `mapstructure:"lag" yaml:"lag"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "docdriver")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Host --
	v.SetDefault("host.backend", BackendSafari)
	v.SetDefault("host.app_name", "Safari")
	v.SetDefault("host.osascript_path", "osascript")
	v.SetDefault("host.remote_url", "")
	v.SetDefault("host.headless", true)
	v.SetDefault("host.script_timeout", "30s")
	v.SetDefault("host.document", "")
	v.SetDefault("host.document_url", "")

	// -- Sync --
	v.SetDefault("sync.max_rounds", 10)
	v.SetDefault("sync.initial_delay", "1s")
	v.SetDefault("sync.poll_interval", "1s")
	v.SetDefault("sync.settle_delay", "400ms")

	// -- Typing --
	v.SetDefault("typing.lag", "0s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The DevTools endpoint is commonly handed over by whatever launched the browser.
	v.BindEnv("host.remote_url", "DOCDRIVER_HOST_REMOTE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.HostCfg.Document != "" {
		expanded, err := homedir.Expand(cfg.HostCfg.Document)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: host.document: %w", err)
		}
		cfg.HostCfg.Document = expanded
	}

	if cfg.LoggerCfg.LogFile != "" {
		expanded, err := homedir.Expand(cfg.LoggerCfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("invalid configuration: logger.log_file: %w", err)
		}
		cfg.LoggerCfg.LogFile = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.HostCfg.Validate(); err != nil {
		return fmt.Errorf("host configuration invalid: %w", err)
	}
	if err := c.SyncCfg.Validate(); err != nil {
		return fmt.Errorf("sync configuration invalid: %w", err)
	}
	if c.TypingCfg.Lag < 0 {
		return fmt.Errorf("typing.lag must not be negative")
	}
	return nil
}

// Validate checks the host settings.
func (h *HostConfig) Validate() error {
	switch h.Backend {
	case BackendSafari:
		if h.AppName == "" {
			return fmt.Errorf("host.app_name is required for the safari backend")
		}
	case BackendCDP:
	case BackendOffline:
		if h.Document == "" {
			return fmt.Errorf("host.document is required for the offline backend")
		}
	default:
		return fmt.Errorf("host.backend must be %q, %q or %q, got %q", BackendSafari, BackendCDP, BackendOffline, h.Backend)
	}
	if h.ScriptTimeout < 0 {
		return fmt.Errorf("host.script_timeout must not be negative")
	}
	return nil
}

// Validate checks the page-load budget.
func (s *SyncConfig) Validate() error {
	if s.MaxRounds <= 0 {
		return fmt.Errorf("sync.max_rounds must be a positive integer")
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("sync.poll_interval must be a positive duration")
	}
	if s.InitialDelay < 0 || s.SettleDelay < 0 {
		return fmt.Errorf("sync.initial_delay and sync.settle_delay must not be negative")
	}
	return nil
}
