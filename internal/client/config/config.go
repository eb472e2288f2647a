package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the gophfeed CLI.
//
// Fields:
//   - ServerURL: base URL of the REST API.
//   - HealthAddr: host:port of the gRPC health endpoint pinged by the online watcher.
//   - DataDir: directory holding the durable token store and the broadcast directory.
//   - RequestTimeout: per request deadline for API calls.
//   - OnlineCheckInterval: how often the client checks server reachability.
//   - RefreshCheckInterval: how often the access token is checked for proactive refresh.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerURL            string
	HealthAddr           string
	DataDir              string
	RequestTimeout       time.Duration
	OnlineCheckInterval  time.Duration
	RefreshCheckInterval time.Duration
	LogLevel             string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:3000"
	c.HealthAddr = "127.0.0.1:50051"
	c.DataDir = defaultDataDir()
	c.RequestTimeout = 10 * time.Second
	c.OnlineCheckInterval = 3 * time.Second
	c.RefreshCheckInterval = time.Minute
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".gophfeed"
	}
	return filepath.Join(dir, "gophfeed")
}
