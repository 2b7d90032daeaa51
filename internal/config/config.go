// Package config resolves runtime settings from flags, the environment and
// optional .env files. Flags win over the environment; the environment wins
// over .env files.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"github.com/tsxcorp/go-regform/internal/logging"
)

const (
	EnvAddr             = "REGFORM_ADDR"
	EnvSchema           = "REGFORM_SCHEMA"
	EnvLanguage         = "REGFORM_LANGUAGE"
	EnvTranslateURL     = "REGFORM_TRANSLATE_URL"
	EnvTranslateKey     = "REGFORM_TRANSLATE_KEY"
	EnvTranslateTimeout = "REGFORM_TRANSLATE_TIMEOUT"
	EnvTranslateRetries = "REGFORM_TRANSLATE_RETRIES"
	EnvOverrides        = "REGFORM_OVERRIDES"
	EnvWorkers          = "REGFORM_WORKERS"
	EnvPersistRemote    = "REGFORM_PERSIST_REMOTE"
	EnvLogLevel         = "REGFORM_LOG_LEVEL"
)

// Config holds every runtime setting.
type Config struct {
	Addr             string
	Schema           string
	Language         string
	TranslateURL     string
	TranslateKey     string
	TranslateTimeout time.Duration
	TranslateRetries int
	// Overrides is a file path (.yaml, .yml or .json) or a "sqlite:" DSN.
	// Empty keeps overrides in memory.
	Overrides     string
	Workers       int
	PersistRemote bool
	LogLevel      string
}

// Defaults returns the built-in settings.
func Defaults() Config {
	return Config{
		Addr:             ":8080",
		TranslateTimeout: 10 * time.Second,
		TranslateRetries: 2,
		Workers:          4,
		LogLevel:         "info",
	}
}

// LoadEnv loads .env files into the process environment without overriding
// variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", file, err)
		}
		logging.Debugf("config: loaded %s", file)
	}
	return nil
}

// FromEnv overlays REGFORM_* variables found through lookup on the defaults.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	cfg := Defaults()
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var result *multierror.Error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvAddr, &cfg.Addr)
	str(EnvSchema, &cfg.Schema)
	str(EnvLanguage, &cfg.Language)
	str(EnvTranslateURL, &cfg.TranslateURL)
	str(EnvTranslateKey, &cfg.TranslateKey)
	str(EnvOverrides, &cfg.Overrides)
	str(EnvLogLevel, &cfg.LogLevel)

	if v, ok := lookup(EnvTranslateTimeout); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("config: %s: %w", EnvTranslateTimeout, err))
		} else {
			cfg.TranslateTimeout = d
		}
	}
	ints := map[string]*int{EnvWorkers: &cfg.Workers, EnvTranslateRetries: &cfg.TranslateRetries}
	for key, dst := range ints {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("config: %s: %w", key, err))
				continue
			}
			*dst = n
		}
	}
	if v, ok := lookup(EnvPersistRemote); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("config: %s: %w", EnvPersistRemote, err))
		} else {
			cfg.PersistRemote = b
		}
	}
	return cfg, result.ErrorOrNil()
}

// RegisterFlags binds flags on fs using the current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Addr, "addr", c.Addr, "HTTP listen address")
	fs.StringVar(&c.Schema, "schema", c.Schema, "event schema path or URL")
	fs.StringVar(&c.Language, "lang", c.Language, "display language (defaults to the schema language)")
	fs.StringVar(&c.TranslateURL, "translate-url", c.TranslateURL, "LibreTranslate-compatible endpoint; empty disables machine translation")
	fs.StringVar(&c.TranslateKey, "translate-key", c.TranslateKey, "API key for the translation endpoint")
	fs.DurationVar(&c.TranslateTimeout, "translate-timeout", c.TranslateTimeout, "per-request translation timeout")
	fs.IntVar(&c.TranslateRetries, "translate-retries", c.TranslateRetries, "retries for throttled or failed translation requests")
	fs.StringVar(&c.Overrides, "overrides", c.Overrides, "override store: file path or sqlite:<dsn>")
	fs.IntVar(&c.Workers, "workers", c.Workers, "concurrent translation requests")
	fs.BoolVar(&c.PersistRemote, "persist-remote", c.PersistRemote, "save machine translations as overrides")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (trace, debug, info, warn, error)")
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Workers <= 0 {
		result = multierror.Append(result, fmt.Errorf("config: workers must be positive, got %d", c.Workers))
	}
	if c.TranslateRetries < 0 {
		result = multierror.Append(result, fmt.Errorf("config: translate retries must not be negative, got %d", c.TranslateRetries))
	}
	if c.TranslateTimeout < 0 {
		result = multierror.Append(result, fmt.Errorf("config: translate timeout must not be negative, got %s", c.TranslateTimeout))
	}
	if url := strings.TrimSpace(c.TranslateURL); url != "" &&
		!strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		result = multierror.Append(result, fmt.Errorf("config: translate url must be http(s), got %q", url))
	}
	return result.ErrorOrNil()
}

// Load runs the whole chain: .env, environment, flags, validation. The log
// level is applied to the shared logger.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	if err := LoadEnv(); err != nil {
		return Config{}, err
	}
	cfg, err := FromEnv(os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	if err := logging.SetLevel(cfg.LogLevel); err != nil {
		return Config{}, fmt.Errorf("config: log level: %w", err)
	}
	return cfg, nil
}
