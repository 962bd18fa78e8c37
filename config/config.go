package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pricecollector/internal/apperror"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Symbols  SymbolsConfig  `mapstructure:"symbols"`
	Provider ProviderConfig `mapstructure:"provider"`
	Store    StoreConfig    `mapstructure:"store"`
	Log      LogConfig      `mapstructure:"log"`
	Secret   SecretConfig   `mapstructure:"secret"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

type SymbolsConfig struct {
	Path   string `mapstructure:"path"`   // comma-separated list with a header row
	Column string `mapstructure:"column"` // header holding the symbol names
}

type ProviderConfig struct {
	ChartURL  string        `mapstructure:"chart_url"`
	CookieURL string        `mapstructure:"cookie_url"`
	CrumbURL  string        `mapstructure:"crumb_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Workers   int           `mapstructure:"workers"`
}

type StoreConfig struct {
	Path          string `mapstructure:"path"`
	Delimiter     string `mapstructure:"delimiter"`      // single character
	MissingMarker string `mapstructure:"missing_marker"` // written where a symbol has no price
	TimeLayout    string `mapstructure:"time_layout"`    // Go reference layout for the Time column
	TimeZone      string `mapstructure:"timezone"`       // IANA name or "Local"
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	Compress    bool   `mapstructure:"compress"`
}

type SecretConfig struct {
	Env          string `mapstructure:"env"`           // environment variable holding the token
	Default      string `mapstructure:"default"`       // used when the variable is unset
	SSMParameter string `mapstructure:"ssm_parameter"` // prod only
}

type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"` // node_exporter textfile collector target (optional)
}

type ScheduleConfig struct {
	Cron string `mapstructure:"cron"`
}

// Load reads config.yaml (if any) and overrides it with environment variables.
// An explicit path must exist; otherwise the config directory is optional.
// Errors carry the CONFIGURATION code. When only validation fails, the decoded
// Config is returned with the error so the caller can still open its log sink.
func Load(path string) (*Config, error) {
	// .env is optional, real environment variables take precedence
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	// Support environment variables with dot notation (e.g., STORE_PATH)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, apperror.Wrapf(apperror.Configuration, "config.load", err, "failed to read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperror.Wrapf(apperror.Configuration, "config.load", err, "failed to unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return &cfg, apperror.Wrapf(apperror.Configuration, "config.validate", err, "invalid config")
	}
	return &cfg, nil
}

// Validate checks the settings the collector cannot run without.
func (c *Config) Validate() error {
	if c.Symbols.Path == "" {
		return errors.New("symbols.path is required")
	}
	if c.Store.Path == "" {
		return errors.New("store.path is required")
	}
	if _, err := c.Store.DelimiterRune(); err != nil {
		return err
	}
	if _, err := c.Store.Location(); err != nil {
		return err
	}
	if c.Provider.Workers <= 0 {
		return fmt.Errorf("provider.workers must be positive, got %d", c.Provider.Workers)
	}
	if c.Mirror.Enabled {
		switch c.Mirror.Driver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("mirror.driver %q is not supported", c.Mirror.Driver)
		}
	}
	return nil
}

// DelimiterRune returns the single-character delimiter.
func (s StoreConfig) DelimiterRune() (rune, error) {
	r := []rune(s.Delimiter)
	if len(r) != 1 || r[0] == '"' || r[0] == '\n' || r[0] == '\r' {
		return 0, fmt.Errorf("store.delimiter must be a single character, got %q", s.Delimiter)
	}
	return r[0], nil
}

func (s StoreConfig) Location() (*time.Location, error) {
	if s.TimeZone == "" || s.TimeZone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("store.timezone: %w", err)
	}
	return loc, nil
}
