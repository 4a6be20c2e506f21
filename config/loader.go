package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golobby/cast"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/GoCodeAlone/interception/logging"
)

// DefaultEnvPrefix prefixes environment overrides, e.g. INTERCEPTION_ENABLED.
const DefaultEnvPrefix = "INTERCEPTION"

// Source describes one place configuration was read from.
type Source struct {
	Name       string     `json:"name"`     // e.g. "file", "dotenv", "environment"
	Type       string     `json:"type"`     // e.g. "yaml", "toml", "json", "env"
	Location   string     `json:"location"` // file path or env prefix
	Loaded     bool       `json:"loaded"`
	LastLoaded *time.Time `json:"last_loaded,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Loader reads a Config from an optional file, optional .env files and the
// environment, in that order of increasing precedence.
type Loader struct {
	path        string
	dotEnvPaths []string
	envPrefix   string
	logger      logging.Logger

	mu      sync.Mutex
	sources []*Source
	current *Config
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFile reads path as YAML, TOML or JSON depending on its extension.
func WithFile(path string) LoaderOption {
	return func(l *Loader) { l.path = path }
}

// WithDotEnv loads the given .env files into the process environment before
// applying overrides. Variables already set are not replaced.
func WithDotEnv(paths ...string) LoaderOption {
	return func(l *Loader) { l.dotEnvPaths = append(l.dotEnvPaths, paths...) }
}

// WithEnvPrefix changes the environment variable prefix. An empty prefix
// disables environment overrides.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithLogger sets the loader logger.
func WithLogger(logger logging.Logger) LoaderOption {
	return func(l *Loader) { l.logger = logging.OrNop(logger) }
}

// NewLoader creates a configuration loader
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		envPrefix: DefaultEnvPrefix,
		logger:    logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Path returns the configuration file path, which may be empty.
func (l *Loader) Path() string {
	return l.path
}

// Load builds a fresh Config from Default, the file, .env files and the
// environment, then validates it.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := Default()
	var sources []*Source

	if l.path != "" {
		src := &Source{Name: "file", Type: formatOf(l.path), Location: l.path}
		sources = append(sources, src)
		if err := decodeFile(l.path, cfg); err != nil {
			src.Error = err.Error()
			l.setSources(sources)
			return nil, err
		}
		markLoaded(src)
	}

	if len(l.dotEnvPaths) > 0 {
		src := &Source{Name: "dotenv", Type: "env", Location: strings.Join(l.dotEnvPaths, ",")}
		sources = append(sources, src)
		if err := LoadDotEnv(l.dotEnvPaths...); err != nil {
			src.Error = err.Error()
			l.setSources(sources)
			return nil, err
		}
		markLoaded(src)
	}

	if l.envPrefix != "" {
		src := &Source{Name: "environment", Type: "env", Location: l.envPrefix}
		sources = append(sources, src)
		if err := ApplyEnv(cfg, l.envPrefix); err != nil {
			src.Error = err.Error()
			l.setSources(sources)
			return nil, err
		}
		markLoaded(src)
	}

	l.setSources(sources)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = cfg.Clone()
	l.mu.Unlock()

	l.logger.Debug("Configuration loaded",
		"path", l.path,
		"enabled", cfg.Enabled,
		"services", len(cfg.Services))
	return cfg, nil
}

// Current returns a copy of the last successfully loaded configuration.
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.Clone()
}

// Sources describes where the last Load read from.
func (l *Loader) Sources() []Source {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Source, len(l.sources))
	for i, src := range l.sources {
		out[i] = *src
	}
	return out
}

func (l *Loader) setSources(sources []*Source) {
	l.mu.Lock()
	l.sources = sources
	l.mu.Unlock()
}

func markLoaded(src *Source) {
	now := time.Now()
	src.Loaded = true
	src.LastLoaded = &now
}

// LoadFile decodes path over Default and validates the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	default:
		return ""
	}
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := Decode(data, formatOf(path), cfg); err != nil {
		return fmt.Errorf("decoding config file %s: %w", path, err)
	}
	return nil
}

// Decode parses data in the given format ("yaml", "toml" or "json") into cfg.
// Fields absent from data keep their current values.
func Decode(data []byte, format string, cfg *Config) error {
	if cfg == nil {
		return ErrNilConfig
	}
	switch format {
	case "yaml":
		if len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		return yaml.Unmarshal(data, cfg)
	case "toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	case "json":
		return json.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; variables already present are kept.
func LoadDotEnv(paths ...string) error {
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("checking dotenv file %s: %w", p, err)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("loading dotenv files: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields tagged `env:"NAME"` from PREFIX_NAME variables.
// Empty variables are ignored.
func ApplyEnv(cfg *Config, prefix string) error {
	if cfg == nil {
		return ErrNilConfig
	}
	rv := reflect.ValueOf(cfg).Elem()
	rt := rv.Type()
	prefix = strings.ToUpper(prefix)

	for i := 0; i < rt.NumField(); i++ {
		fieldType := rt.Field(i)
		envTag, ok := fieldType.Tag.Lookup("env")
		if !ok {
			continue
		}
		envName := strings.ToUpper(envTag)
		if prefix != "" {
			envName = prefix + "_" + envName
		}
		value := os.Getenv(envName)
		if value == "" {
			continue
		}
		converted, err := cast.FromType(value, fieldType.Type)
		if err != nil {
			return fmt.Errorf("env %s: cannot convert %q to %v: %w", envName, value, fieldType.Type, err)
		}
		rv.Field(i).Set(reflect.ValueOf(converted))
	}
	return nil
}
