package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the annotation service.
type Config struct {
	// HTTP API
	BindAddr string

	// Persistence. An empty DBPath (ANNOTATOR_DB_PATH set to "") disables
	// it: tools live in memory only and vanish on restart.
	DBPath string

	// Logging
	LogLevel string
	LogFile  string

	// Gesture tuning
	DragThresholdPx      int
	SnapTolerancePercent float64
	AutosaveDelayMS      int

	// WebSocket ingest for chart library callbacks
	WSPath string

	// CDP connection for the injected DOM listener source
	CDPAddress   string
	CDPPort      int
	TabURLFilter string
	DOMFeed      bool
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:             getEnvOrDefault("ANNOTATOR_BIND_ADDR", "127.0.0.1:8190"),
		DBPath:               getEnvAllowEmpty("ANNOTATOR_DB_PATH", "./data/annotations.db"),
		LogLevel:             strings.ToLower(getEnvOrDefault("ANNOTATOR_LOG_LEVEL", "info")),
		LogFile:              getEnvOrDefault("ANNOTATOR_LOG_FILE", "logs/annotator.log"),
		DragThresholdPx:      getEnvIntOrDefault("ANNOTATOR_DRAG_THRESHOLD_PX", 5),
		SnapTolerancePercent: getEnvFloatOrDefault("ANNOTATOR_SNAP_TOLERANCE_PCT", 0),
		AutosaveDelayMS:      getEnvIntOrDefault("ANNOTATOR_AUTOSAVE_DELAY_MS", 1500),
		WSPath:               getEnvOrDefault("ANNOTATOR_WS_PATH", "/ws/pointer"),
		CDPAddress:           getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:              getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		TabURLFilter:         getEnvOrDefault("ANNOTATOR_TAB_URL_FILTER", "tradingview.com"),
		DOMFeed:              getEnvBoolOrDefault("ANNOTATOR_DOM_FEED", false),
	}
	if cfg.DragThresholdPx < 1 {
		cfg.DragThresholdPx = 1
	}
	if cfg.AutosaveDelayMS < 100 {
		cfg.AutosaveDelayMS = 100
	}
	return cfg, nil
}

// CDPURL returns the full CDP HTTP endpoint used by the chromedp remote
// allocator.
func (c *Config) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

// AutosaveDelay returns the debounce as a duration.
func (c *Config) AutosaveDelay() time.Duration {
	return time.Duration(c.AutosaveDelayMS) * time.Millisecond
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvAllowEmpty differs from getEnvOrDefault in that a variable set to
// the empty string counts as set. Used where "" is a meaningful value.
func getEnvAllowEmpty(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloatOrDefault(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
