package config

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"
)

// ParameterLookup resolves a Parameter Store value, returning "" when unavailable.
type ParameterLookup func(name string, decrypt bool) string

// ResolveSecret returns the provider token. In prod a configured SSM parameter
// wins; otherwise the environment variable is used, falling back to the default.
func ResolveSecret(cfg *Config, logger *zap.Logger) string {
	return resolveSecret(cfg, logger, getParameterStoreValue)
}

func resolveSecret(cfg *Config, logger *zap.Logger, lookup ParameterLookup) string {
	sc := cfg.Secret

	if cfg.Log.Environment == "prod" && sc.SSMParameter != "" {
		if v := lookup(sc.SSMParameter, true); v != "" {
			return v
		}
		logger.Warn("secret not available from parameter store, falling back to environment",
			zap.String("parameter", sc.SSMParameter))
	}

	if v, ok := os.LookupEnv(sc.Env); ok {
		return v
	}

	logger.Warn("environment variable not set, using default value", zap.String("name", sc.Env))
	return sc.Default
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	baseCtx := context.Background()
	ctxWithTimeout, cancel := context.WithTimeout(baseCtx, 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}
