package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all process-wide configuration. It is read once at
// startup and passed explicitly into constructors; nothing reads the
// environment after Load returns.
type AppConfig struct {
	// Provider credentials. A provider whose credentials are missing is not
	// constructed at all; its constructor enforces that.
	NASAAPIKey           string
	SentinelClientID     string
	SentinelClientSecret string

	// GIBSLayer is the WMTS layer identifier used for tiled fetches.
	GIBSLayer string

	// GeocoderAPIKey enables place-name lookups when set.
	GeocoderAPIKey string

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration

	// ProbeInterval controls how often provider health probes run.
	ProbeInterval time.Duration

	// In-memory probe-history retention.
	StoreMaxHistory int           // max number of results per provider (0 = unlimited)
	StoreMaxAge     time.Duration // max age of results (0 = unlimited)

	// AuditLogPath enables the file-backed audit trail when set.
	AuditLogPath string

	// DefaultCloudCoverMax applies when a request does not set its own
	// cloud cover ceiling.
	DefaultCloudCoverMax float64

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.NASAAPIKey = os.Getenv("NASA_API_KEY")
	cfg.SentinelClientID = os.Getenv("SENTINEL_CLIENT_ID")
	cfg.SentinelClientSecret = os.Getenv("SENTINEL_CLIENT_SECRET")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	cfg.GIBSLayer = getenvDefault("GIBS_LAYER", "MODIS_Terra_CorrectedReflectance_TrueColor")

	timeoutStr := getenvDefault("HTTP_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	// Probe interval: default 15 minutes.
	intervalStr := getenvDefault("PROBE_INTERVAL", "15m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PROBE_INTERVAL: %w", err)
	}
	cfg.ProbeInterval = interval

	// Probe-history retention.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 96) // roughly 24h at 15-minute intervals

	maxAgeStr := getenvDefault("STORE_MAX_AGE", "24h")
	maxAge, err := time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_MAX_AGE: %w", err)
	}
	cfg.StoreMaxAge = maxAge

	cfg.AuditLogPath = os.Getenv("AUDIT_LOG_PATH")
	cfg.DefaultCloudCoverMax = getenvFloat("DEFAULT_CLOUD_COVER_MAX", 100)
	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return def
}
