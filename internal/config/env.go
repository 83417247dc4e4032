package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvPrefix is prepended to every environment variable the config reads.
const EnvPrefix = "WIKIBOT_"

// ApplyEnv overrides fields with any WIKIBOT_* environment variables that are
// set, e.g. WIKIBOT_HOST_URL or WIKIBOT_ITEM_EXPIRATION=720h.
func (c *Config) ApplyEnv() error {
	setString(&c.HostURL, "HOST_URL")
	setString(&c.LookupPage, "LOOKUP_PAGE")
	setString(&c.CacheFile, "CACHE_FILE")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.RefreshSchedule, "REFRESH_SCHEDULE")
	setString(&c.LogLevel, "LOG_LEVEL")

	for _, f := range []struct {
		key string
		dst *bool
	}{
		{"USE_BROWSER", &c.UseBrowser},
		{"AUTOMATICALLY_UPDATE_CACHE", &c.AutomaticallyUpdateCache},
		{"PRETTY_EXPORT", &c.PrettyExport},
	} {
		if err := setBool(f.dst, f.key); err != nil {
			return err
		}
	}

	if value, ok := lookup("UPDATE_LOOKUPS"); ok {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return envError("UPDATE_LOOKUPS", value, err)
		}
		c.UpdateLookups = &b
	}

	for _, f := range []struct {
		key string
		dst *Duration
	}{
		{"RETRY_STEP", &c.RetryStep},
		{"ITEM_EXPIRATION", &c.ItemExpiration},
		{"CACHE_EXPIRATION", &c.CacheExpiration},
		{"SAVE_INTERVAL", &c.SaveInterval},
	} {
		if err := setDuration(f.dst, f.key); err != nil {
			return err
		}
	}

	if value, ok := lookup("SEARCH_CONCURRENCY"); ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return envError("SEARCH_CONCURRENCY", value, err)
		}
		c.SearchConcurrency = n
	}

	return nil
}

func lookup(key string) (string, bool) {
	value := os.Getenv(EnvPrefix + key)
	return value, value != ""
}

func envError(key, value string, err error) error {
	return fmt.Errorf("config error: invalid %s%s=%q: %w", EnvPrefix, key, value, err)
}

func setString(dst *string, key string) {
	if value, ok := lookup(key); ok {
		*dst = value
	}
}

func setBool(dst *bool, key string) error {
	value, ok := lookup(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return envError(key, value, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *Duration, key string) error {
	value, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return envError(key, value, err)
	}
	*dst = Duration(d)
	return nil
}
