// Package config loads and validates the application configuration.
// Configuration is read from a JSON file with environment variable
// overrides for values that change between deployments.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/skywatchdev/sattrack/pkg/coordinates"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Telescope TelescopeConfig `json:"telescope"`
	Observer  ObserverConfig  `json:"observer"`
	Data      DataConfig      `json:"data"`
}

// ServerConfig contains HTTP server configuration for the status API.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host"`
}

// TelescopeConfig contains ASCOM Alpaca telescope settings.
type TelescopeConfig struct {
	// BaseURL is the Alpaca server address (e.g., "http://192.168.1.100:11111")
	BaseURL string `json:"base_url"`

	// DeviceNumber is the Alpaca device number (typically 0)
	DeviceNumber int `json:"device_number"`

	// MaxSlewRate is the mount's maximum axis rate in degrees per second.
	// Trajectory segments demanding more than this near zenith are flagged
	// rather than clamped.
	MaxSlewRate float64 `json:"max_slew_rate"`

	// ZenithMargin is how close to 90° altitude counts as a zenith
	// passage, in degrees
	ZenithMargin float64 `json:"zenith_margin"`

	// SlewGraceSeconds bounds how long the mount may take to reach the
	// pass start position before the session aborts
	SlewGraceSeconds float64 `json:"slew_grace_seconds"`

	// RequestTimeoutSeconds bounds each Alpaca HTTP request
	RequestTimeoutSeconds float64 `json:"request_timeout_seconds"`
}

// ObserverConfig contains the observer's geographic location. This is
// critical for accurate look-angle computation and telescope control.
type ObserverConfig struct {
	// Name is a friendly identifier for this observer location
	Name string `json:"name"`

	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude"`

	// Longitude in decimal degrees (-180 to +180)
	Longitude float64 `json:"longitude"`

	// Elevation in meters above sea level
	Elevation float64 `json:"elevation"`

	// TimeZone is the IANA timezone name (e.g., "America/New_York"),
	// used only for display; all computation runs in UTC
	TimeZone string `json:"timezone"`
}

// DataConfig contains local data storage settings.
type DataConfig struct {
	// CacheDir is where downloaded TLE catalogs are cached
	CacheDir string `json:"cache_dir"`

	// TLEGroups are the Celestrak element groups fetched into the catalog
	TLEGroups []string `json:"tle_groups"`
}

// Load reads configuration from a JSON file. If the file doesn't exist,
// returns a default configuration. Environment variables override file
// values either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvironmentOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a JSON file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir := "tle-cache"
	if home, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(home, "sattrack", "tle")
	}

	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Telescope: TelescopeConfig{
			BaseURL:               "http://localhost:11111",
			DeviceNumber:          0,
			MaxSlewRate:           6.0,
			ZenithMargin:          2.0,
			SlewGraceSeconds:      90,
			RequestTimeoutSeconds: 10,
		},
		Observer: ObserverConfig{
			Name:     "Primary Observer",
			TimeZone: "UTC",
		},
		Data: DataConfig{
			CacheDir:  cacheDir,
			TLEGroups: []string{"stations", "active"},
		},
	}
}

// Validate checks the configuration for values that would fail later in
// confusing ways.
func (c *Config) Validate() error {
	if c.Observer.Latitude < -90 || c.Observer.Latitude > 90 {
		return fmt.Errorf("config: observer latitude %.4f out of range [-90, 90]", c.Observer.Latitude)
	}
	if c.Observer.Longitude < -180 || c.Observer.Longitude > 180 {
		return fmt.Errorf("config: observer longitude %.4f out of range [-180, 180]", c.Observer.Longitude)
	}
	if c.Observer.TimeZone != "" {
		if _, err := time.LoadLocation(c.Observer.TimeZone); err != nil {
			return fmt.Errorf("config: invalid observer timezone %q: %w", c.Observer.TimeZone, err)
		}
	}
	if c.Telescope.BaseURL == "" {
		return fmt.Errorf("config: telescope base_url must be set")
	}
	if c.Telescope.MaxSlewRate < 0 {
		return fmt.Errorf("config: max_slew_rate must not be negative")
	}
	return nil
}

// CoordinatesObserver converts the observer settings to the form the
// ephemeris layer consumes.
func (c *ObserverConfig) CoordinatesObserver() (coordinates.Observer, error) {
	tz := c.TimeZone
	if tz == "" {
		tz = "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return coordinates.Observer{}, fmt.Errorf("loading timezone %q: %w", tz, err)
	}
	return coordinates.Observer{
		Location: coordinates.Geographic{
			Latitude:  c.Latitude,
			Longitude: c.Longitude,
			Altitude:  c.Elevation,
		},
		Timezone: tz,
	}, nil
}

// applyEnvironmentOverrides applies environment variable overrides so
// deployment-specific values can stay out of config files.
func (c *Config) applyEnvironmentOverrides() {
	if port := os.Getenv("SATTRACK_PORT"); port != "" {
		c.Server.Port = port
	}
	if telescopeURL := os.Getenv("SATTRACK_TELESCOPE_URL"); telescopeURL != "" {
		c.Telescope.BaseURL = telescopeURL
	}
	if device := os.Getenv("SATTRACK_TELESCOPE_DEVICE"); device != "" {
		if n, err := strconv.Atoi(device); err == nil {
			c.Telescope.DeviceNumber = n
		}
	}
	if cacheDir := os.Getenv("SATTRACK_CACHE_DIR"); cacheDir != "" {
		c.Data.CacheDir = cacheDir
	}
}
