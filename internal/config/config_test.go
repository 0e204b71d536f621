package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olgkv/linkchecker/internal/policy"
)

func TestLoad(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HTTP_TIMEOUT", "10s")

	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %q", cfg.Port)
	}

	if cfg.HTTPTimeout.String() != "10s" {
		t.Fatalf("expected HTTP timeout 10s, got %s", cfg.HTTPTimeout)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 10, cfg.MaxRedirects)
	assert.Equal(t, "none", cfg.Archive.Mode)
	assert.Equal(t, "https://web.archive.org", cfg.Archive.Endpoint)
	assert.Equal(t, "grab_link_screenshots", cfg.Screenshot.Dir)
	assert.Equal(t, time.Minute, cfg.Archive.Cooldown)

	rules, err := cfg.ArchiveRules()
	require.NoError(t, err)
	assert.False(t, rules.Enabled())
}

func TestLoadNestedEnv(t *testing.T) {
	t.Setenv("ARCHIVE_MODE", "Strong")
	t.Setenv("ARCHIVE_EXCLUDE", "404,410")
	t.Setenv("MAX_WORKERS", "4")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.MaxWorkers)
	assert.Equal(t, "json", cfg.Log.Format)
	rules, err := cfg.ArchiveRules()
	require.NoError(t, err)
	assert.Equal(t, policy.ModeStrong, rules.Mode)
	assert.Equal(t, []int{404, 410}, rules.Exclude.Codes())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkchecker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
max_redirects: 3
archive:
  mode: standard
  include: [200, 203]
screenshot:
  enabled: true
`), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxRedirects)
	assert.Equal(t, []int{200, 203}, cfg.Archive.Include)
	assert.True(t, cfg.Screenshot.Enabled)

	_, err = Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("ARCHIVE_MODE", "aggressive")
	_, err := Load(viper.New(), "")
	require.Error(t, err)

	var verrs validator.ValidationErrors
	assert.ErrorAs(t, err, &verrs)
	assert.Contains(t, err.Error(), "Archive.Mode")
}

func TestLoadRejectsBadStatusCodes(t *testing.T) {
	t.Setenv("ARCHIVE_INCLUDE", "200,42")
	_, err := Load(viper.New(), "")
	assert.Error(t, err)
}
