// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string
	LogDir   string

	OSRMBaseURL string
	HTTPTimeout time.Duration
	CacheTTL    time.Duration
	CacheSize   int

	RedisURL      string
	MongoURI      string
	MongoDatabase string
	JWTSecret     string

	GTFSFeedURL      string
	GTFSVehicleID    string
	GTFSPollInterval time.Duration

	// ProfilePath points to the YAML navigation policy profile. Empty
	// means built-in defaults for every mode.
	ProfilePath   string
	AutoStart     bool
	TestingMode   bool
	VoiceFeedback bool
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is loaded first if present;
// variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:     getEnv("PORT", "3000"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogDir:   getEnv("LOG_DIR", ""),

		OSRMBaseURL: strings.TrimRight(getEnv("OSRM_BASE_URL", "https://router.project-osrm.org"), "/"),
		HTTPTimeout: getDurationEnv("HTTP_TIMEOUT_SECONDS", 10) * time.Second,
		CacheTTL:    getDurationEnv("CACHE_TTL_SECONDS", 600) * time.Second,
		CacheSize:   getIntEnv("CACHE_SIZE", 256),

		RedisURL:      getEnv("REDIS_URL", ""),
		MongoURI:      getEnv("MONGODB_URI", ""),
		MongoDatabase: getEnv("MONGODB_DATABASE", "walkwise"),
		JWTSecret:     getEnv("JWT_SECRET", ""),

		GTFSFeedURL:      getEnv("GTFS_FEED_URL", ""),
		GTFSVehicleID:    getEnv("GTFS_VEHICLE_ID", ""),
		GTFSPollInterval: getDurationEnv("GTFS_POLL_SECONDS", 2) * time.Second,

		ProfilePath:   getEnv("NAV_PROFILE", ""),
		AutoStart:     getBoolEnv("AUTO_START", false),
		TestingMode:   getBoolEnv("TESTING_MODE", false),
		VoiceFeedback: getBoolEnv("VOICE_FEEDBACK", true),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %q is not a valid port", c.Port))
	}
	if err := checkURL("OSRM_BASE_URL", c.OSRMBaseURL, "http", "https"); err != nil {
		errs = append(errs, err)
	}
	if c.RedisURL != "" {
		if err := checkURL("REDIS_URL", c.RedisURL, "redis", "rediss"); err != nil {
			errs = append(errs, err)
		}
	}
	if c.MongoURI != "" {
		if err := checkURL("MONGODB_URI", c.MongoURI, "mongodb", "mongodb+srv"); err != nil {
			errs = append(errs, err)
		}
	}
	if c.GTFSFeedURL != "" {
		if err := checkURL("GTFS_FEED_URL", c.GTFSFeedURL, "http", "https"); err != nil {
			errs = append(errs, err)
		}
		if c.GTFSVehicleID == "" {
			errs = append(errs, errors.New("GTFS_VEHICLE_ID is required when GTFS_FEED_URL is set"))
		}
	}
	if c.ProfilePath != "" {
		if _, err := os.Stat(c.ProfilePath); err != nil {
			errs = append(errs, fmt.Errorf("NAV_PROFILE: %w", err))
		}
	}
	if c.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("CACHE_SIZE must be positive, got %d", c.CacheSize))
	}

	return errors.Join(errs...)
}

func checkURL(key, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s %q must be a %s URL", key, raw, strings.Join(schemes, "/"))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultSeconds int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds)
		}
	}
	return time.Duration(defaultSeconds)
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
