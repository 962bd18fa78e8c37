package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pricecollector/internal/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const sampleYAML = `
symbols:
  path: /data/symbols.csv
provider:
  timeout: 15s
  workers: 3
store:
  path: /data/prices.csv
  timezone: UTC
log:
  level: debug
  output_file: ""
mirror:
  enabled: true
  driver: sqlite
  dsn: /data/prices.db
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// go test -v --run TestLoadFile
func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "/data/symbols.csv", cfg.Symbols.Path)
	assert.Equal(t, "name", cfg.Symbols.Column)
	assert.Equal(t, 15*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 3, cfg.Provider.Workers)
	assert.Equal(t, DefaultChartURL, cfg.Provider.ChartURL)
	assert.Equal(t, ";", cfg.Store.Delimiter)
	assert.Equal(t, "NaN", cfg.Store.MissingMarker)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "", cfg.Log.OutputFile)
	assert.Equal(t, 1, cfg.Log.MaxSizeMB)
	assert.Equal(t, "SOME_SECRET", cfg.Secret.Env)
	assert.True(t, cfg.Mirror.Enabled)
	assert.Equal(t, 5432, cfg.Mirror.Postgres.Port)
}

// go test -v --run TestLoadEnvOverride
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("STORE_PATH", "/override/prices.csv")
	t.Setenv("PROVIDER_WORKERS", "8")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)
	assert.Equal(t, "/override/prices.csv", cfg.Store.Path)
	assert.Equal(t, 8, cfg.Provider.Workers)
}

// go test -v --run TestLoadMissingExplicitFile
func TestLoadMissingExplicitFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, apperror.Configuration, apperror.CodeOf(err))
}

// go test -v --run TestLoadInvalidKeepsLogConfig
func TestLoadInvalidKeepsLogConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
symbols:
  path: /data/symbols.csv
store:
  path: /data/prices.csv
  delimiter: ";;"
log:
  level: warn
`))
	require.Error(t, err)
	assert.Equal(t, apperror.Configuration, apperror.CodeOf(err))
	assert.Equal(t, 2, apperror.CodeOf(err).ExitCode())
	assert.Contains(t, err.Error(), "store.delimiter")

	require.NotNil(t, cfg)
	assert.Equal(t, "warn", cfg.Log.Level)
}

// go test -v --run TestValidate
func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Symbols:  SymbolsConfig{Path: "s.csv"},
			Store:    StoreConfig{Path: "p.csv", Delimiter: ";"},
			Provider: ProviderConfig{Workers: 1},
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"no symbols path":   func(c *Config) { c.Symbols.Path = "" },
		"no store path":     func(c *Config) { c.Store.Path = "" },
		"long delimiter":    func(c *Config) { c.Store.Delimiter = ";;" },
		"quote delimiter":   func(c *Config) { c.Store.Delimiter = `"` },
		"unknown timezone":  func(c *Config) { c.Store.TimeZone = "Mars/Base" },
		"zero workers":      func(c *Config) { c.Provider.Workers = 0 },
		"bad mirror driver": func(c *Config) { c.Mirror = MirrorConfig{Enabled: true, Driver: "mysql"} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

// go test -v --run TestResolveSecret
func TestResolveSecret(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logger := zap.New(core)

	cfg := &Config{Secret: SecretConfig{Env: "PRICECOLLECTOR_TEST_SECRET", Default: DefaultSecretValue}}
	noSSM := func(string, bool) string { return "" }

	assert.Equal(t, DefaultSecretValue, resolveSecret(cfg, logger, noSSM))
	assert.Equal(t, 1, logs.FilterMessage("environment variable not set, using default value").Len())

	t.Setenv("PRICECOLLECTOR_TEST_SECRET", "from-env")
	assert.Equal(t, "from-env", resolveSecret(cfg, logger, noSSM))

	cfg.Log.Environment = "prod"
	cfg.Secret.SSMParameter = "/collector/token"
	fromSSM := func(name string, decrypt bool) string {
		assert.True(t, decrypt)
		return "ssm:" + name
	}
	assert.Equal(t, "ssm:/collector/token", resolveSecret(cfg, logger, fromSSM))
	assert.Equal(t, "from-env", resolveSecret(cfg, logger, noSSM))
}

// go test -v --run TestPostgresDSN
func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", DBName: "prices", SSLMode: "disable", TimeZone: "UTC"}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=prices sslmode=disable TimeZone=UTC", cfg.DSN("dev"))
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=postgres sslmode=disable TimeZone=UTC", cfg.AdminDSN())
}
