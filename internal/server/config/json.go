package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/jwtkeeper/internal/common"
	"github.com/dmitrijs2005/jwtkeeper/internal/flagx"
	"github.com/dmitrijs2005/jwtkeeper/internal/timex"
)

// JsonConfig mirrors Config for JSON decoding. Durations use timex.Duration,
// so both "1h" strings and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	AllowlistBackend            string         `json:"allowlist_backend"`
	RedisAddr                   string         `json:"redis_addr"`
	RedisPassword               string         `json:"redis_password"`
	RedisDB                     int            `json:"redis_db"`
	RedisKeyPrefix              string         `json:"redis_key_prefix"`
	RedisRetention              timex.Duration `json:"redis_retention"`
	PurgeInterval               timex.Duration `json:"purge_interval"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	StripeSecretKey             string         `json:"stripe_secret_key"`
	StripeAPIBaseURL            string         `json:"stripe_api_base_url"`
	CheckoutSuccessURL          string         `json:"checkout_success_url"`
	CheckoutCancelURL           string         `json:"checkout_cancel_url"`
	PortalReturnURL             string         `json:"portal_return_url"`
	MinPasswordScore            int            `json:"min_password_score"`
	LogLevel                    string         `json:"log_level"`
	MetricsEnabled              bool           `json:"metrics_enabled"`
}

// parseJson overlays config with the JSON file named by -c/-config in args
// (or the JWTKEEPER_CONFIG variable). Keys missing from the file keep their
// current values. An unreadable or invalid file panics.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFilePath(args, common.EnvPrefix+"CONFIG")
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}
	fromJson(config, c)
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:            c.EndpointAddrHTTP,
		EndpointAddrGRPC:            c.EndpointAddrGRPC,
		DatabaseDSN:                 c.DatabaseDSN,
		SecretKey:                   c.SecretKey,
		AccessTokenValidityDuration: timex.Duration{Duration: c.AccessTokenValidityDuration},
		AllowlistBackend:            c.AllowlistBackend,
		RedisAddr:                   c.RedisAddr,
		RedisPassword:               c.RedisPassword,
		RedisDB:                     c.RedisDB,
		RedisKeyPrefix:              c.RedisKeyPrefix,
		RedisRetention:              timex.Duration{Duration: c.RedisRetention},
		PurgeInterval:               timex.Duration{Duration: c.PurgeInterval},
		S3RootUser:                  c.S3RootUser,
		S3RootPassword:              c.S3RootPassword,
		S3Bucket:                    c.S3Bucket,
		S3Region:                    c.S3Region,
		S3BaseEndpoint:              c.S3BaseEndpoint,
		StripeSecretKey:             c.StripeSecretKey,
		StripeAPIBaseURL:            c.StripeAPIBaseURL,
		CheckoutSuccessURL:          c.CheckoutSuccessURL,
		CheckoutCancelURL:           c.CheckoutCancelURL,
		PortalReturnURL:             c.PortalReturnURL,
		MinPasswordScore:            c.MinPasswordScore,
		LogLevel:                    c.LogLevel,
		MetricsEnabled:              c.MetricsEnabled,
	}
}

func fromJson(config *Config, c *JsonConfig) {
	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.EndpointAddrGRPC = c.EndpointAddrGRPC
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.AllowlistBackend = c.AllowlistBackend
	config.RedisAddr = c.RedisAddr
	config.RedisPassword = c.RedisPassword
	config.RedisDB = c.RedisDB
	config.RedisKeyPrefix = c.RedisKeyPrefix
	config.RedisRetention = c.RedisRetention.Duration
	config.PurgeInterval = c.PurgeInterval.Duration
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.StripeSecretKey = c.StripeSecretKey
	config.StripeAPIBaseURL = c.StripeAPIBaseURL
	config.CheckoutSuccessURL = c.CheckoutSuccessURL
	config.CheckoutCancelURL = c.CheckoutCancelURL
	config.PortalReturnURL = c.PortalReturnURL
	config.MinPasswordScore = c.MinPasswordScore
	config.LogLevel = c.LogLevel
	config.MetricsEnabled = c.MetricsEnabled
}
