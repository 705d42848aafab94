package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-k string   allowlist backend: postgres | redis
//	-r string   redis address
//	-i int      purge interval, minutes (0 disables purging)
//	-l string   log level
//	-m bool     expose Prometheus metrics
//
// Only the flags above are looked at (flagx.FilterArgs), so flags owned by
// other components do not break parsing.
func parseFlags(config *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-g", "-d", "-s", "-t", "-k", "-r", "-i", "-l", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")

	fs.StringVar(&config.AllowlistBackend, "k", config.AllowlistBackend, "allowlist backend (postgres|redis)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")

	purgeInterval := fs.Int("i", int(config.PurgeInterval.Minutes()), "purge_interval (in minutes, 0 disables)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.MetricsEnabled, "m", config.MetricsEnabled, "expose Prometheus metrics")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
	config.PurgeInterval = time.Duration(*purgeInterval) * time.Minute
}
