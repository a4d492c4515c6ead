package cachekit

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/cachekit/internal/util"
)

const (
	DefaultExpire = 3600 // seconds
	DefaultDir    = "data/cache"
)

// Required keys of a configuration mapping.
const (
	KeyEnabled  = "enabled"
	KeyCompress = "compress"
	KeyDir      = "dir"
	KeyExpire   = "expire"
)

// Config holds the settings a cache is built from.
// Enabled and Compress are fixed for the lifetime of the cache; Dir and Expire
// can still be adjusted through Cache.SetDir and Cache.SetExpire during setup.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	Compress bool   `yaml:"compress"`
	Dir      string `yaml:"dir"`
	Expire   int    `yaml:"expire"` // seconds; <= 0 => entries never expire
}

// DefaultConfig returns an enabled, compressed config rooted at DefaultDir.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Compress: true,
		Dir:      DefaultDir,
		Expire:   DefaultExpire,
	}
}

// Validate checks fields that cannot be expressed by the type alone.
func (c Config) Validate() error {
	switch util.CleanDir(c.Dir) {
	case "":
		return &ConfigError{Field: KeyDir, Reason: "must not be empty"}
	case "/":
		// Clear("") would sweep the whole filesystem
		return &ConfigError{Field: KeyDir, Reason: "must not be the filesystem root"}
	}
	return nil
}

// ConfigFromMap builds a Config from a loosely typed mapping (decoded YAML/JSON,
// framework settings). All four keys are required; there are no silent defaults.
// Every problem is reported, joined into one error that matches ErrConfig.
func ConfigFromMap(m map[string]any) (Config, error) {
	var (
		cfg  Config
		errs []error
		err  error
	)

	if cfg.Enabled, err = boolField(m, KeyEnabled); err != nil {
		errs = append(errs, err)
	}
	if cfg.Compress, err = boolField(m, KeyCompress); err != nil {
		errs = append(errs, err)
	}
	if cfg.Dir, err = stringField(m, KeyDir); err != nil {
		errs = append(errs, err)
	}
	if cfg.Expire, err = intField(m, KeyExpire); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	cfg.Dir = util.CleanDir(cfg.Dir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseConfig decodes a YAML document and applies ConfigFromMap to it.
func ParseConfig(data []byte) (Config, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Config{}, errors.Join(ErrConfig, fmt.Errorf("parse yaml: %w", err))
	}
	if m == nil {
		m = map[string]any{}
	}
	return ConfigFromMap(m)
}

// LoadConfig reads a YAML file holding the four required keys at its top level.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Join(ErrConfig, fmt.Errorf("read %s: %w", path, err))
	}
	return ParseConfig(data)
}

func missing(key string) error { return &ConfigError{Field: key, Reason: "is required"} }

func boolField(m map[string]any, key string) (bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return false, missing(key)
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case int:
		return t != 0, nil
	case int64:
		return t != 0, nil
	case float64:
		return t != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, &ConfigError{Field: key, Reason: fmt.Sprintf("not a boolean: %q", t)}
		}
		return b, nil
	default:
		return false, &ConfigError{Field: key, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}

func stringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", missing(key)
	}
	s, ok := v.(string)
	if !ok {
		return "", &ConfigError{Field: key, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
	return s, nil
}

// intField coerces numbers and numeric strings to int; fractions truncate.
func intField(m map[string]any, key string) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, missing(key)
	}
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	case uint64:
		if t > math.MaxInt {
			return 0, &ConfigError{Field: key, Reason: "out of range"}
		}
		return int(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, &ConfigError{Field: key, Reason: "not a finite number"}
		}
		return int(t), nil
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, &ConfigError{Field: key, Reason: fmt.Sprintf("not an integer: %q", t)}
		}
		return int(f), nil
	default:
		return 0, &ConfigError{Field: key, Reason: fmt.Sprintf("unsupported type %T", v)}
	}
}
