// Package config loads the bookcat configuration file.
//
// The YAML file is validated against an embedded CUE schema, decoded,
// completed with defaults and finally overridden from BOOKCAT_* environment
// variables.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bookcat/internal/book"
)

//go:embed schema.cue
var schemaSource string

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrInvalid is returned when the file does not match the schema or the
// resulting configuration is unusable.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete runtime configuration.
type Config struct {
	Domain           string              `yaml:"domain"`
	DefaultLanguage  string              `yaml:"default_language"`
	LanguageArticles map[string][]string `yaml:"language_articles"`

	Log      LogConfig      `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Previews PreviewsConfig `yaml:"previews"`
	Cache    CacheConfig    `yaml:"cache"`
	Repair   RepairConfig   `yaml:"repair"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Auth     AuthConfig     `yaml:"auth"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StorageConfig struct {
	Driver      string `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type PreviewsConfig struct {
	Enabled bool `yaml:"enabled"`
	Workers int  `yaml:"workers"`
}

type CacheConfig struct {
	Size int      `yaml:"size"`
	TTL  Duration `yaml:"ttl"`
}

type RepairConfig struct {
	SweepInterval Duration `yaml:"sweep_interval"`
	BatchSize     int      `yaml:"batch_size"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// AuthConfig holds the moderator token settings. An empty secret disables
// token-authenticated commands.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`
}

// Duration is a time.Duration written as a Go duration string ("15m").
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Domain:          "localhost",
		DefaultLanguage: "English",
		Log:             LogConfig{Level: "info", Format: "text"},
		Storage:         StorageConfig{Driver: DriverSQLite, SQLitePath: "bookcat.db"},
		Previews:        PreviewsConfig{Workers: 2},
		Cache:           CacheConfig{Size: 1024, TTL: Duration(15 * time.Minute)},
		Repair:          RepairConfig{SweepInterval: Duration(time.Hour), BatchSize: 100},
		Metrics:         MetricsConfig{Addr: ":9090"},
		Auth:            AuthConfig{JWTIssuer: "bookcat"},
	}
}

// Load reads the file at path, or only defaults and environment when path
// is empty.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return Parse(path, data)
}

// Parse validates and decodes YAML config data. filename is used in error
// positions only.
func Parse(filename string, data []byte) (*Config, error) {
	cfg := Default()
	if len(strings.TrimSpace(string(data))) > 0 {
		if err := validate(filename, data); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks data against #Config. Unknown keys are rejected because
// the definition is closed.
func validate(filename string, data []byte) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	value := ctx.BuildFile(file)
	if err := value.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// applyEnv overrides file values from BOOKCAT_* variables.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"BOOKCAT_DOMAIN":         &c.Domain,
		"BOOKCAT_LOG_LEVEL":      &c.Log.Level,
		"BOOKCAT_LOG_FORMAT":     &c.Log.Format,
		"BOOKCAT_STORAGE_DRIVER": &c.Storage.Driver,
		"BOOKCAT_DB":             &c.Storage.SQLitePath,
		"BOOKCAT_POSTGRES_DSN":   &c.Storage.PostgresDSN,
		"BOOKCAT_JWT_SECRET":     &c.Auth.JWTSecret,
		"BOOKCAT_JWT_ISSUER":     &c.Auth.JWTIssuer,
		"BOOKCAT_METRICS_ADDR":   &c.Metrics.Addr,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("BOOKCAT_PREVIEWS_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: BOOKCAT_PREVIEWS_ENABLED: %v", ErrInvalid, err)
		}
		c.Previews.Enabled = b
	}
	return nil
}

func (c *Config) check() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log format %q, want text or json", ErrInvalid, c.Log.Format)
	}
	switch c.Storage.Driver {
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("%w: storage.sqlite_path is empty", ErrInvalid)
		}
	case DriverPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("%w: storage.postgres_dsn is required for the postgres driver", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalid, c.Storage.Driver)
	}
	if c.Domain == "" {
		return fmt.Errorf("%w: domain is empty", ErrInvalid)
	}
	return nil
}

// Policy returns the save-time policy for editions.
func (c *Config) Policy() book.Policy {
	return book.Policy{
		DefaultLanguage: c.DefaultLanguage,
		Articles:        c.LanguageArticles,
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// NewLogger builds the process logger. verbose forces debug level.
func (c *Config) NewLogger(w io.Writer, verbose bool) *slog.Logger {
	level, _ := ParseLevel(c.Log.Level)
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
