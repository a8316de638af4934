package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the service.
type Config struct {
	DatabaseURL    string
	HTTPAddr       string
	ShortCode      string
	SweepInterval  time.Duration
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		HTTPAddr:       strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		ShortCode:      strings.TrimSpace(os.Getenv("SHORT_CODE")),
		AllowedOrigins: parseOrigins(os.Getenv("ALLOWED_ORIGINS")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "penzi.db"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.ShortCode == "" {
		cfg.ShortCode = "22141"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	interval, err := parseSweepInterval(strings.TrimSpace(os.Getenv("SWEEP_INTERVAL_MINUTES")))
	if err != nil {
		return cfg, err
	}
	cfg.SweepInterval = interval

	return cfg, nil
}

func parseSweepInterval(raw string) (time.Duration, error) {
	if raw == "" {
		return time.Hour, nil
	}
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("SWEEP_INTERVAL_MINUTES must be a positive integer, got %q", raw)
	}
	return time.Duration(minutes) * time.Minute, nil
}

func parseOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
