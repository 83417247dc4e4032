package throttle

import (
	"os"
	"strconv"
	"time"
)

// Defaults match MoinMoin's stock surge protection settings with some headroom.
const (
	DefaultWindow      = 3 * time.Second
	DefaultMaxRequests = 4
	DefaultCooldown    = 7 * time.Second
)

// Config holds throttle configuration.
type Config struct {
	Enabled     bool
	Window      time.Duration // Rolling window length
	MaxRequests int           // Requests allowed per window
	Cooldown    time.Duration // Wait enforced when the window is full
}

// DefaultConfig returns the stock configuration with throttling enabled.
func DefaultConfig() Config {
	return Config{
		Enabled:     true,
		Window:      DefaultWindow,
		MaxRequests: DefaultMaxRequests,
		Cooldown:    DefaultCooldown,
	}
}

// WithDefaults returns a copy of the config with zero-value fields filled in.
func (c Config) WithDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	return c
}

// LoadConfig loads throttle configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Enabled:     getEnvBool("WIKIBOT_THROTTLE_ENABLED", true),
		Window:      getEnvDuration("WIKIBOT_THROTTLE_WINDOW", DefaultWindow),
		MaxRequests: getEnvInt("WIKIBOT_THROTTLE_MAX_REQUESTS", DefaultMaxRequests),
		Cooldown:    getEnvDuration("WIKIBOT_THROTTLE_COOLDOWN", DefaultCooldown),
	}
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
