package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophfeed/internal/flagx"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

// parseEnv loads a dotenv file into the process environment and then reads
//
//	API_PORT, GRPC_ADDR, DATABASE_DSN, JWT_SECRET, ACCESS_TOKEN_TTL,
//	REFRESH_TOKEN_TTL, LOG_LEVEL, ALLOWED_ORIGINS
//
// The file is taken from -e/-env, falling back to ./.env. A missing default
// file is ignored; a missing explicit one panics. Variables already present
// in the environment win over the file.
func parseEnv(cfg *Config) {
	path := flagx.EnvFileFlags()
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	if err := godotenv.Load(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup("API_PORT"); ok && v != "" {
		if !strings.Contains(v, ":") {
			v = ":" + v
		}
		cfg.EndpointAddrHTTP = v
	}
	if v, ok := lookup("GRPC_ADDR"); ok && v != "" {
		cfg.EndpointAddrGRPC = v
	}
	if v, ok := lookup("DATABASE_DSN"); ok {
		cfg.DatabaseDSN = v
	}
	if v, ok := lookup("JWT_SECRET"); ok && v != "" {
		cfg.SecretKey = v
	}
	if v, ok := lookup("ACCESS_TOKEN_TTL"); ok && v != "" {
		cfg.AccessTokenValidityDuration = mustDuration("ACCESS_TOKEN_TTL", v)
	}
	if v, ok := lookup("REFRESH_TOKEN_TTL"); ok && v != "" {
		cfg.RefreshTokenValidityDuration = mustDuration("REFRESH_TOKEN_TTL", v)
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
}

func mustDuration(name, v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(name + ": " + err.Error())
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
