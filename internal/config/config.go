// Package config loads qpdiff settings. Precedence is flags > environment >
// config file > defaults; flags are applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"qpdiff/internal/compare"
	"qpdiff/internal/log"
)

// Output formats accepted by compare.Format.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatCI      = "ci"
	FormatUnified = "unified"
)

var (
	// ErrUnknownFormat is returned by Validate for an unsupported report format.
	ErrUnknownFormat = errors.New("unknown output format")

	AllFormats = []string{FormatText, FormatJSON, FormatCI, FormatUnified}
)

type Config struct {
	Catalog string `yaml:"catalog"` // rule catalog YAML, used for profile documents

	Database struct {
		DSN string `yaml:"dsn"` // SQLite profile database; empty disables it
	} `yaml:"database"`

	Store struct {
		Dir string `yaml:"dir"` // snapshot directory; empty means the store default
	} `yaml:"store"`

	Compare struct {
		Strategy string `yaml:"strategy"` // "merge"|"index"
		Format   string `yaml:"format"`   // "text"|"json"|"ci"|"unified"
	} `yaml:"compare"`

	Logging struct {
		Level  string `yaml:"level"`  // "error"|"warn"|"info"|"debug"
		Format string `yaml:"format"` // "text"|"logfmt"|"json"
	} `yaml:"logging"`
}

func Defaults() Config {
	var c Config
	c.Compare.Strategy = string(compare.StrategyMerge)
	c.Compare.Format = FormatText
	c.Logging.Level = string(log.LevelWarn)
	c.Logging.Format = string(log.FormatText)
	return c
}

// Load reads the YAML file at path over the defaults and then applies
// environment overrides from environ. An empty path falls back to
// QPDIFF_CONFIG; if that is unset too, no file is read.
func Load(path string, environ []string) (Config, error) {
	c := Defaults()
	env := ParseEnviron(environ)

	if path == "" {
		path = env[EnvConfig]
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	}

	applyEnv(&c, env)
	return c, nil
}

// Validate checks the enumerated settings.
func (c Config) Validate() error {
	var errs []error
	if _, err := compare.ParseStrategy(c.Compare.Strategy); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(AllFormats, c.Compare.Format) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownFormat, c.Compare.Format))
	}
	if _, err := log.GetLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if _, err := log.GetFormat(c.Logging.Format); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
