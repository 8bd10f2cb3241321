package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL.Std())
}

func TestLoad_Full(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "full.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "books.example.org", cfg.Domain)
	assert.Equal(t, "Spanish", cfg.DefaultLanguage)
	assert.Equal(t, []string{"el", "la", "los", "las"}, cfg.LanguageArticles["Spanish"])
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, "bookcat.db", cfg.Storage.SQLitePath, "unset keys keep defaults")
	assert.Equal(t, PreviewsConfig{Enabled: true, Workers: 4}, cfg.Previews)
	assert.Equal(t, 256, cfg.Cache.Size)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL.Std())
	assert.Equal(t, 30*time.Minute, cfg.Repair.SweepInterval.Std())
	assert.Equal(t, 25, cfg.Repair.BatchSize)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, "change-me", cfg.Auth.JWTSecret)

	p := cfg.Policy()
	assert.Equal(t, "Spanish", p.DefaultLanguage)
	assert.Len(t, p.Articles, 1)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "colour: blue\n"},
		{"unknown nested key", "log:\n  colour: blue\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad driver", "storage:\n  driver: mysql\n"},
		{"zero workers", "previews:\n  workers: 0\n"},
		{"bad duration", "cache:\n  ttl: soon\n"},
		{"wrong type", "cache:\n  size: many\n"},
		{"bad domain", "domain: \"http://x/\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("test.yaml", []byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestParse_PostgresNeedsDSN(t *testing.T) {
	_, err := Parse("test.yaml", []byte("storage:\n  driver: postgres\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParse_EnvOverrides(t *testing.T) {
	t.Setenv("BOOKCAT_DB", "/var/lib/bookcat/catalog.db")
	t.Setenv("BOOKCAT_JWT_SECRET", "from-env")
	t.Setenv("BOOKCAT_PREVIEWS_ENABLED", "true")

	cfg, err := Parse("test.yaml", []byte("auth:\n  jwt_secret: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/bookcat/catalog.db", cfg.Storage.SQLitePath)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.True(t, cfg.Previews.Enabled)
}

func TestParse_BadEnvBool(t *testing.T) {
	t.Setenv("BOOKCAT_PREVIEWS_ENABLED", "sometimes")
	_, err := Parse("", nil)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("trace")
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Format = "json"

	var buf bytes.Buffer
	cfg.NewLogger(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())

	cfg.NewLogger(&buf, true).Debug("shown", slog.String("k", "v"))
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}
