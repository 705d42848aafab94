// Package config loads runtime configuration for the jwtctl client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config (or JWTCTL_CONFIG).
//  3. Command-line flags, which override earlier values.
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "server_grpc_addr": "127.0.0.1:50051",
//	  "state_path": "jwtctl.db",
//	  "request_timeout": "10s"
//	}
package config
