package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "all flags", args: []string{"-u", "http://api:8080", "-g", "api:9090", "-s", "/tmp/s.db", "-t", "3"},
			expected: &Config{ServerURL: "http://api:8080", ServerGRPCAddr: "api:9090", StatePath: "/tmp/s.db", RequestTimeout: 3 * time.Second}},
		{name: "foreign flags are ignored", args: []string{"-x", "1", "-g", "api:9090"},
			expected: &Config{ServerGRPCAddr: "api:9090"}},
		{name: "incorrect timeout", args: []string{"-t", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config, tt.args) })
				assert.Empty(t, cmp.Diff(tt.expected, config))
			} else {
				require.Panics(t, func() { parseFlags(config, tt.args) })
			}
		})
	}
}
