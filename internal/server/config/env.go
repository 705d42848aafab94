package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/joho/godotenv"
)

// dotenvFile is loaded (if present) before environment variables are read.
// Variables already set in the process environment win over the file.
var dotenvFile = ".env"

type envBinding struct {
	name string
	set  func(c *Config, v string) error
}

func str(dst func(c *Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error { *dst(c) = v; return nil }
}

func dur(dst func(c *Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst(c) = d
		return nil
	}
}

func num(dst func(c *Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

// envBindings lists the supported variables, without common.EnvPrefix.
var envBindings = []envBinding{
	{"HTTP_ADDR", str(func(c *Config) *string { return &c.EndpointAddrHTTP })},
	{"GRPC_ADDR", str(func(c *Config) *string { return &c.EndpointAddrGRPC })},
	{"DATABASE_DSN", str(func(c *Config) *string { return &c.DatabaseDSN })},
	{"SECRET_KEY", str(func(c *Config) *string { return &c.SecretKey })},
	{"ACCESS_TOKEN_VALIDITY", dur(func(c *Config) *time.Duration { return &c.AccessTokenValidityDuration })},
	{"ALLOWLIST_BACKEND", str(func(c *Config) *string { return &c.AllowlistBackend })},
	{"REDIS_ADDR", str(func(c *Config) *string { return &c.RedisAddr })},
	{"REDIS_PASSWORD", str(func(c *Config) *string { return &c.RedisPassword })},
	{"REDIS_DB", num(func(c *Config) *int { return &c.RedisDB })},
	{"REDIS_KEY_PREFIX", str(func(c *Config) *string { return &c.RedisKeyPrefix })},
	{"REDIS_RETENTION", dur(func(c *Config) *time.Duration { return &c.RedisRetention })},
	{"PURGE_INTERVAL", dur(func(c *Config) *time.Duration { return &c.PurgeInterval })},
	{"S3_ROOT_USER", str(func(c *Config) *string { return &c.S3RootUser })},
	{"S3_ROOT_PASSWORD", str(func(c *Config) *string { return &c.S3RootPassword })},
	{"S3_BUCKET", str(func(c *Config) *string { return &c.S3Bucket })},
	{"S3_REGION", str(func(c *Config) *string { return &c.S3Region })},
	{"S3_BASE_ENDPOINT", str(func(c *Config) *string { return &c.S3BaseEndpoint })},
	{"STRIPE_SECRET_KEY", str(func(c *Config) *string { return &c.StripeSecretKey })},
	{"STRIPE_API_BASE_URL", str(func(c *Config) *string { return &c.StripeAPIBaseURL })},
	{"CHECKOUT_SUCCESS_URL", str(func(c *Config) *string { return &c.CheckoutSuccessURL })},
	{"CHECKOUT_CANCEL_URL", str(func(c *Config) *string { return &c.CheckoutCancelURL })},
	{"PORTAL_RETURN_URL", str(func(c *Config) *string { return &c.PortalReturnURL })},
	{"MIN_PASSWORD_SCORE", num(func(c *Config) *int { return &c.MinPasswordScore })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.LogLevel })},
	{"METRICS_ENABLED", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.MetricsEnabled = b
		return nil
	}},
}

// parseEnv overlays config with JWTKEEPER_* environment variables.
func parseEnv(config *Config) error {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", dotenvFile, err)
	}

	for _, b := range envBindings {
		name := common.EnvPrefix + b.name
		v, ok := os.LookupEnv(name)
		if !ok {
			continue
		}
		if err := b.set(config, v); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}
