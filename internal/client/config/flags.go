package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only the flags handled here are passed to the flag set, see flagx.FilterArgs.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-g", "-d", "-t", "-i", "-r", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the API server")
	fs.StringVar(&cfg.HealthAddr, "g", cfg.HealthAddr, "address and port of the health endpoint")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	refreshCheckInterval := fs.Int("r", int(cfg.RefreshCheckInterval.Seconds()), "token refresh check interval (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	cfg.RefreshCheckInterval = time.Duration(*refreshCheckInterval) * time.Second
}
