package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/jwtkeeper/internal/flagx"
	"github.com/dmitrijs2005/jwtkeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept strings like "3s" or integer nanoseconds.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	ServerGRPCAddr string         `json:"server_grpc_addr"`
	StatePath      string         `json:"state_path"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJson overlays cfg with the JSON file named by -c/-config in args
// (or the JWTCTL_CONFIG variable). Keys missing from the file keep their
// current values. Read or unmarshal errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFilePath(args, "JWTCTL_CONFIG")
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	jc := JsonConfig{
		ServerURL:      cfg.ServerURL,
		ServerGRPCAddr: cfg.ServerGRPCAddr,
		StatePath:      cfg.StatePath,
		RequestTimeout: timex.Duration{Duration: cfg.RequestTimeout},
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerURL = jc.ServerURL
	cfg.ServerGRPCAddr = jc.ServerGRPCAddr
	cfg.StatePath = jc.StatePath
	cfg.RequestTimeout = jc.RequestTimeout.Duration
}
