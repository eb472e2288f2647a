// Package config handles configuration for the server component: built-in
// defaults, then a dotenv file, then an optional JSON file, then
// command-line flags. Later sources override earlier ones.
package config

import "time"

// Config holds runtime settings for the gophfeed server.
//
// Fields:
//   - EndpointAddrHTTP: bind address of the REST API.
//   - EndpointAddrGRPC: bind address of the gRPC health endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps users in memory.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - LogLevel: debug, info, warn or error.
//   - AllowedOrigins: CORS allow-list.
type Config struct {
	EndpointAddrHTTP             string
	EndpointAddrGRPC             string
	DatabaseDSN                  string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	LogLevel                     string
	AllowedOrigins               []string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret is insecure and must be overridden outside development.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":3000"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.LogLevel = "info"
	c.AllowedOrigins = []string{"http://localhost:3000"}
}

// LoadConfig builds a Config from defaults, dotenv, JSON and flags in that order.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
