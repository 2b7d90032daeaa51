package config_test

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"

	"github.com/tsxcorp/go-regform/internal/config"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromEnv(t *testing.T) {
	t.Parallel()

	cfg, err := config.FromEnv(lookupFrom(map[string]string{
		config.EnvAddr:             ":9090",
		config.EnvSchema:           " testdata/aw2025.json ",
		config.EnvTranslateURL:     "https://translate.example.com",
		config.EnvTranslateTimeout: "3s",
		config.EnvWorkers:          "8",
		config.EnvPersistRemote:    "true",
		config.EnvOverrides:        "sqlite:file:overrides.db",
	}))
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Addr)
	require.Equal(t, "testdata/aw2025.json", cfg.Schema)
	require.Equal(t, 3*time.Second, cfg.TranslateTimeout)
	require.Equal(t, 8, cfg.Workers)
	require.True(t, cfg.PersistRemote)
	require.Equal(t, "sqlite:file:overrides.db", cfg.Overrides)
	require.Equal(t, 2, cfg.TranslateRetries)
}

func TestFromEnv_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	_, err := config.FromEnv(lookupFrom(map[string]string{
		config.EnvTranslateTimeout: "soon",
		config.EnvWorkers:          "many",
		config.EnvPersistRemote:    "perhaps",
	}))
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 3)
}

func TestFlagsOverrideEnvironment(t *testing.T) {
	t.Parallel()

	cfg, err := config.FromEnv(lookupFrom(map[string]string{config.EnvLanguage: "vi"}))
	require.NoError(t, err)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-lang", "en", "-workers", "2"}))

	require.Equal(t, "en", cfg.Language)
	require.Equal(t, 2, cfg.Workers)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.Workers = 0
	cfg.TranslateURL = "ftp://nope"
	err := cfg.Validate()
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 2)
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("REGFORM_TEST_ONLY_KEY=from-dotenv\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("REGFORM_TEST_ONLY_KEY") })

	require.NoError(t, config.LoadEnv(filepath.Join(dir, "missing.env"), path))
	require.Equal(t, "from-dotenv", os.Getenv("REGFORM_TEST_ONLY_KEY"))
}
