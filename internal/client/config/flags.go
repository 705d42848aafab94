package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/jwtkeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-u string   base URL of the HTTP API
//	-g string   address and port of the gRPC endpoint
//	-s string   path of the local session database
//	-t int      request timeout (in seconds)
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-u", "-g", "-s", "-t"})

	fs := flag.NewFlagSet("jwtctl", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerURL, "u", cfg.ServerURL, "base URL of the HTTP API")
	fs.StringVar(&cfg.ServerGRPCAddr, "g", cfg.ServerGRPCAddr, "address and port of the gRPC endpoint")
	fs.StringVar(&cfg.StatePath, "s", cfg.StatePath, "path of the local session database")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
