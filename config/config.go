// Package config loads and validates the YAML configuration that wires a
// store together: logging, metrics, and the collections to mount with
// their document sources.
package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Source types a collection can load from.
const (
	SourceTypeDir    = "dir"
	SourceTypeSQLite = "sqlite"
)

// Default values applied to a loaded configuration.
const (
	DefaultLogLevel = "info"
)

// Config is the root configuration document.
type Config struct {
	Logging     LoggingConfig      `yaml:"logging"`
	Store       StoreConfig        `yaml:"store"`
	Collections []CollectionConfig `yaml:"collections"`
}

// LoggingConfig selects the zap logger built by BuildLogger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Development switches to zap's development config: console encoding
	// and stack traces on warnings.
	Development bool `yaml:"development"`
}

// StoreConfig holds store-wide settings.
type StoreConfig struct {
	// Metrics enables Prometheus collectors on the store.
	Metrics bool `yaml:"metrics"`
}

// CollectionConfig describes one collection to mount.
type CollectionConfig struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	// SearchFields lists the fields indexed for full-text search, in
	// clause order for bare-string searches.
	SearchFields []string `yaml:"searchFields"`
	// SlugField names the unique lookup field. Empty means "slug".
	SlugField string `yaml:"slugField"`
	// Watch reloads the collection when its source changes. Only directory
	// sources support watching.
	Watch  bool         `yaml:"watch"`
	Source SourceConfig `yaml:"source"`
}

// SourceConfig locates a collection's documents.
type SourceConfig struct {
	// Type is "dir" or "sqlite".
	Type string `yaml:"type"`
	// Path is the content directory or the database file.
	Path string `yaml:"path"`
	// Table is the table read from a sqlite source.
	Table string `yaml:"table"`
	// Extensions filters files loaded from a dir source, e.g. [".md"].
	Extensions []string `yaml:"extensions"`
	// Workers bounds the parse pool of a dir source. Zero means the CPU
	// count.
	Workers int `yaml:"workers"`
}

// Load reads the configuration file at path. Unknown YAML keys are
// rejected. Defaults are applied, environment overrides take effect, and
// the result is validated before it is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes configuration bytes through the same staging as Load:
// strict unmarshal, defaults, environment overrides, validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(strings.NewReader(string(data)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills the zero values a file may omit.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	for i := range cfg.Collections {
		coll := &cfg.Collections[i]
		if coll.Source.Type == "" {
			coll.Source.Type = SourceTypeDir
		}
	}
}

// applyEnvOverrides applies environment variable overrides. Variables take
// precedence over file values.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("MAKTABA_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("MAKTABA_LOG_DEVELOPMENT"); val != "" {
		cfg.Logging.Development = strings.EqualFold(val, "true")
	}
	if val := os.Getenv("MAKTABA_STORE_METRICS"); val != "" {
		cfg.Store.Metrics = strings.EqualFold(val, "true")
	}
}

// Validate checks the configuration for internal consistency. Collection
// names must be unique, sources must be of a known type and name what that
// type needs. Paths are not checked for existence here; mounting reports
// those errors with more context.
func Validate(cfg *Config) error {
	if _, err := parseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	names := make(map[string]bool, len(cfg.Collections))
	for i := range cfg.Collections {
		coll := &cfg.Collections[i]
		at := fmt.Sprintf("collections[%d]", i)
		if strings.TrimSpace(coll.Name) == "" {
			return fmt.Errorf("%s: name must not be empty", at)
		}
		if names[coll.Name] {
			return fmt.Errorf("%s: duplicate collection name %q", at, coll.Name)
		}
		names[coll.Name] = true

		switch coll.Source.Type {
		case SourceTypeDir:
			if coll.Source.Path == "" {
				return fmt.Errorf("%s: dir source needs a path", at)
			}
		case SourceTypeSQLite:
			if coll.Source.Path == "" {
				return fmt.Errorf("%s: sqlite source needs a path", at)
			}
			if coll.Source.Table == "" {
				return fmt.Errorf("%s: sqlite source needs a table", at)
			}
			if coll.Watch {
				return fmt.Errorf("%s: sqlite sources cannot be watched", at)
			}
		default:
			return fmt.Errorf("%s: unknown source type %q", at, coll.Source.Type)
		}
	}
	return nil
}

// BuildLogger constructs the zap logger the configuration asks for.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := parseLevel(c.Logging.Level)
	if err != nil {
		return nil, err
	}

	var zc zap.Config
	if c.Logging.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

func parseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
