// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/jonathan/wikibot/internal/logger"
	"github.com/jonathan/wikibot/internal/wiki"
)

// DefaultCacheFile is where the cache is kept when no path is configured.
const DefaultCacheFile = "wiki_cache.json"

// DefaultHostURL is the wiki queried when none is configured.
const DefaultHostURL = "https://wiki.libsdl.org/"

// Config represents the bot configuration loaded from a JSON file and the
// environment. Zero values fall back to Defaults.
type Config struct {
	// Wiki
	HostURL       string   `json:"host_url,omitempty" validate:"required,url"` // Wiki root, e.g. https://wiki.libsdl.org/
	LookupPage    string   `json:"lookup_page,omitempty"`                      // Category page listing every item
	UseBrowser    bool     `json:"use_browser,omitempty"`                      // Render the lookup page in headless Chrome if it has no links
	UpdateLookups *bool    `json:"update_lookups,omitempty"`                   // Rebuild the lookup index on start
	RetryStep     Duration `json:"retry_step,omitempty" validate:"gte=0"`

	// Cache
	CacheFile                string   `json:"cache_file,omitempty"`
	DatabaseURL              string   `json:"database_url,omitempty"` // Use PostgreSQL instead of the cache file
	AutomaticallyUpdateCache bool     `json:"automatically_update_cache,omitempty"`
	RefreshSchedule          string   `json:"refresh_schedule,omitempty" validate:"omitempty,cron"`
	ItemExpiration           Duration `json:"item_expiration,omitempty" validate:"gte=0"`
	CacheExpiration          Duration `json:"cache_expiration,omitempty" validate:"gte=0"`
	SaveInterval             Duration `json:"save_interval,omitempty" validate:"gte=0"`
	SearchConcurrency        int      `json:"search_concurrency,omitempty" validate:"gte=0,lte=64"`
	PrettyExport             bool     `json:"pretty_export,omitempty"`

	// Behavior
	LogLevel string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`
}

// Defaults returns the configuration used for anything left unset.
func Defaults() Config {
	updateLookups := true
	return Config{
		HostURL:         DefaultHostURL,
		LookupPage:      wiki.DefaultLookupPage,
		UpdateLookups:   &updateLookups,
		RetryStep:       Duration(wiki.DefaultRetryPolicy().Step),
		CacheFile:       DefaultCacheFile,
		ItemExpiration:  Duration(wiki.DefaultItemExpiration),
		CacheExpiration: Duration(wiki.DefaultCacheExpiration),
		SaveInterval:    Duration(wiki.DefaultSaveInterval),
		LogLevel:        logger.DefaultLevel,
	}
}

// Load reads the config file at path, if any, overlays WIKIBOT_* environment
// variables, fills defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	merged := cfg.MergeWithDefaults(Defaults())
	if err := merged.resolvePaths(); err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("config error: %w", err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("config error: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", fe.Field())
	case "url":
		return fmt.Sprintf("'%s' must be an absolute URL", fe.Field())
	case "cron":
		return fmt.Sprintf("'%s' is not a valid cron schedule: %q", fe.Field(), fe.Value())
	case "gte":
		return fmt.Sprintf("'%s' must be non-negative", fe.Field())
	case "lte":
		return fmt.Sprintf("'%s' must be at most %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("'%s' must be one of: %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("'%s' failed '%s' validation", fe.Field(), fe.Tag())
	}
}

// MergeWithDefaults returns a new Config with unset fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.HostURL == "" {
		result.HostURL = defaults.HostURL
	}
	if result.LookupPage == "" {
		result.LookupPage = defaults.LookupPage
	}
	if result.UpdateLookups == nil {
		result.UpdateLookups = defaults.UpdateLookups
	}
	if result.CacheFile == "" {
		result.CacheFile = defaults.CacheFile
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.RefreshSchedule == "" {
		result.RefreshSchedule = defaults.RefreshSchedule
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	if result.RetryStep == 0 {
		result.RetryStep = defaults.RetryStep
	}
	if result.ItemExpiration == 0 {
		result.ItemExpiration = defaults.ItemExpiration
	}
	if result.CacheExpiration == 0 {
		result.CacheExpiration = defaults.CacheExpiration
	}
	if result.SaveInterval == 0 {
		result.SaveInterval = defaults.SaveInterval
	}
	if result.SearchConcurrency == 0 {
		result.SearchConcurrency = defaults.SearchConcurrency
	}

	// Bool fields: true wins
	result.UseBrowser = result.UseBrowser || defaults.UseBrowser
	result.AutomaticallyUpdateCache = result.AutomaticallyUpdateCache || defaults.AutomaticallyUpdateCache
	result.PrettyExport = result.PrettyExport || defaults.PrettyExport

	return result
}

// resolvePaths makes the cache file path absolute.
func (c *Config) resolvePaths() error {
	if c.CacheFile == "" || filepath.IsAbs(c.CacheFile) {
		return nil
	}
	abs, err := filepath.Abs(c.CacheFile)
	if err != nil {
		return fmt.Errorf("failed to resolve cache file %s: %w", c.CacheFile, err)
	}
	c.CacheFile = abs
	return nil
}

// ShouldUpdateLookups reports whether the lookup index is rebuilt on start.
func (c *Config) ShouldUpdateLookups() bool {
	return c.UpdateLookups == nil || *c.UpdateLookups
}

// RepositoryOptions converts the configuration into wiki repository options.
func (c *Config) RepositoryOptions() wiki.Options {
	opts := wiki.DefaultOptions(c.HostURL)
	if c.LookupPage != "" {
		opts.LookupPage = c.LookupPage
	}
	if c.ItemExpiration > 0 {
		opts.ItemExpiration = c.ItemExpiration.Duration()
	}
	if c.CacheExpiration > 0 {
		opts.CacheExpiration = c.CacheExpiration.Duration()
	}
	if c.SaveInterval > 0 {
		opts.SaveInterval = c.SaveInterval.Duration()
	}
	if c.RetryStep > 0 {
		opts.Retry.Step = c.RetryStep.Duration()
	}
	if c.SearchConcurrency > 0 {
		opts.SearchConcurrency = c.SearchConcurrency
	}
	opts.AutoUpdate = c.AutomaticallyUpdateCache
	opts.UpdateLookups = c.ShouldUpdateLookups()
	opts.RefreshSchedule = c.RefreshSchedule
	return opts
}

// Duration is a time.Duration written in JSON as a Go duration string such
// as "720h". Bare numbers are read as seconds.
type Duration time.Duration

// Duration returns d as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value * float64(time.Second)))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}
