package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for optional configuration fields.
const (
	DefaultSymbolsPath     = "symbols.csv"
	DefaultSymbolsColumn   = "name"
	DefaultChartURL        = "https://query2.finance.yahoo.com/v8/finance/chart"
	DefaultCookieURL       = "https://fc.yahoo.com"
	DefaultCrumbURL        = "https://query1.finance.yahoo.com/v1/test/getcrumb"
	DefaultProviderTimeout = 30 * time.Second
	DefaultProviderWorkers = 5
	DefaultStorePath       = "prices.csv"
	DefaultDelimiter       = ";"
	DefaultMissingMarker   = "NaN"
	DefaultTimeLayout      = "2006-01-02 15:04:05"
	DefaultLogFile         = "status.log"
	DefaultLogMaxSizeMB    = 1
	DefaultLogMaxBackups   = 1
	DefaultSecretEnv       = "SOME_SECRET"
	DefaultSecretValue     = "Token not available!"
	DefaultMirrorDriver    = "sqlite"
	DefaultCron            = "*/5 * * * *"
)

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("symbols.path", DefaultSymbolsPath)
	v.SetDefault("symbols.column", DefaultSymbolsColumn)

	v.SetDefault("provider.chart_url", DefaultChartURL)
	v.SetDefault("provider.cookie_url", DefaultCookieURL)
	v.SetDefault("provider.crumb_url", DefaultCrumbURL)
	v.SetDefault("provider.timeout", DefaultProviderTimeout)
	v.SetDefault("provider.workers", DefaultProviderWorkers)

	v.SetDefault("store.path", DefaultStorePath)
	v.SetDefault("store.delimiter", DefaultDelimiter)
	v.SetDefault("store.missing_marker", DefaultMissingMarker)
	v.SetDefault("store.time_layout", DefaultTimeLayout)
	v.SetDefault("store.timezone", "Local")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", DefaultLogFile)
	v.SetDefault("log.environment", "dev")
	v.SetDefault("log.max_size_mb", DefaultLogMaxSizeMB)
	v.SetDefault("log.max_backups", DefaultLogMaxBackups)
	v.SetDefault("log.max_age_days", 0)
	v.SetDefault("log.compress", false)

	v.SetDefault("secret.env", DefaultSecretEnv)
	v.SetDefault("secret.default", DefaultSecretValue)
	v.SetDefault("secret.ssm_parameter", "")

	v.SetDefault("mirror.enabled", false)
	v.SetDefault("mirror.driver", DefaultMirrorDriver)
	v.SetDefault("mirror.dsn", "")
	v.SetDefault("mirror.create_db", false)
	v.SetDefault("mirror.postgres.host", "localhost")
	v.SetDefault("mirror.postgres.port", 5432)
	v.SetDefault("mirror.postgres.user", "postgres")
	v.SetDefault("mirror.postgres.password", "")
	v.SetDefault("mirror.postgres.dbname", "pricecollector")
	v.SetDefault("mirror.postgres.sslmode", "disable")
	v.SetDefault("mirror.postgres.timezone", "UTC")
	v.SetDefault("mirror.postgres.max_open_conns", 4)
	v.SetDefault("mirror.postgres.max_idle_conns", 2)
	v.SetDefault("mirror.postgres.conn_max_lifetime", time.Hour)

	v.SetDefault("metrics.textfile", "")
	v.SetDefault("schedule.cron", DefaultCron)
}

// DefaultLogConfig is the log sink used when the config itself cannot be read.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "info",
		Format:      "console",
		OutputFile:  DefaultLogFile,
		Environment: "dev",
		MaxSizeMB:   DefaultLogMaxSizeMB,
		MaxBackups:  DefaultLogMaxBackups,
	}
}
