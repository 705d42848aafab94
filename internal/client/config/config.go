package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the jwtctl client.
//
// Fields:
//   - ServerURL: base URL of the HTTP API (sign-up, sign-in, refresh).
//   - ServerGRPCAddr: host:port of the gRPC sessions endpoint.
//   - StatePath: SQLite file that keeps the current session.
//   - RequestTimeout: deadline applied to every server call.
type Config struct {
	ServerURL      string
	ServerGRPCAddr string
	StatePath      string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.ServerGRPCAddr = "127.0.0.1:50051"
	c.StatePath = "jwtctl.db"
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
