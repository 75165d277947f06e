// internal/config/load.go
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads and decodes the YAML configuration, then applies environment
// overrides for the deployment-varying values. A missing or unreadable file
// is an error; the system must not start on guessed protocol addresses.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv overlays INSPECTOR_* environment variables. A .env file is
// loaded if present; its absence is not an error.
func applyEnv(cfg *Config) error {
	_ = godotenv.Load()

	if v := os.Getenv("INSPECTOR_PLC_HOST"); v != "" {
		cfg.Inspector.PLC.Host = v
	}
	if v := os.Getenv("INSPECTOR_PLC_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: INSPECTOR_PLC_PORT: %w", err)
		}
		cfg.Inspector.PLC.Port = port
	}
	if v := os.Getenv("INSPECTOR_HISTORY_DSN"); v != "" {
		cfg.Inspector.History.DSN = v
	}
	if v := os.Getenv("INSPECTOR_METRICS_LISTEN"); v != "" {
		cfg.Inspector.Metrics.Listen = v
	}

	return nil
}
