// Package config loads runtime configuration for the gophfeed CLI.
//
// Sources, in order of increasing precedence:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via -c or -config.
//  3. Command-line flags.
//
// Supported flags
//
//	-a string   base URL of the REST API
//	-g string   host:port of the gRPC health endpoint
//	-d string   data directory
//	-t int      request timeout (seconds)
//	-i int      online status check interval (seconds)
//	-r int      token refresh check interval (seconds)
//	-l string   log level
//
// # JSON schema
//
// Durations accept strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:3000",
//	  "health_addr": "127.0.0.1:50051",
//	  "data_dir": "/home/me/.config/gophfeed",
//	  "request_timeout": "10s",
//	  "online_check_interval": "3s",
//	  "refresh_check_interval": "1m",
//	  "log_level": "info"
//	}
package config
