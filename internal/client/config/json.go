package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophfeed/internal/flagx"
	"github.com/dmitrijs2005/gophfeed/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
type JsonConfig struct {
	ServerURL            string         `json:"server_url"`
	HealthAddr           string         `json:"health_addr"`
	DataDir              string         `json:"data_dir"`
	RequestTimeout       timex.Duration `json:"request_timeout"`
	OnlineCheckInterval  timex.Duration `json:"online_check_interval"`
	RefreshCheckInterval timex.Duration `json:"refresh_check_interval"`
	LogLevel             string         `json:"log_level"`
}

// parseJson overlays Config with values loaded from the file named by
// -c/-config. Absent keys keep the current value. Read or decode errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.HealthAddr, jc.HealthAddr)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.LogLevel, jc.LogLevel)
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RefreshCheckInterval.Duration > 0 {
		cfg.RefreshCheckInterval = jc.RefreshCheckInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
