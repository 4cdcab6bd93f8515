package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/dashcore/internal/config/loader"
)

// Well-known configuration paths.
const (
	PathPluginsEnabled  = "plugins.enabled"
	PathPluginsDisabled = "plugins.disabled"
	PathPluginsDir      = "plugins.dir"
	PathLogLevel        = "logging.level"
	PathLogConsole      = "logging.console"
)

// ErrTypeMismatch indicates the value at a path has an unexpected type.
var ErrTypeMismatch = errors.New("type mismatch")

// Config is an immutable configuration snapshot.
type Config struct {
	path   string
	values map[string]any
}

// New creates a Config holding a deep copy of values.
func New(values map[string]any) *Config {
	v := loader.Clone(values)
	if v == nil {
		v = make(map[string]any)
	}
	return &Config{values: v}
}

// Load reads the file at path and overlays DASHCORE_* environment
// variables. An empty path or a missing file yields a Config built from the
// environment alone.
func Load(path string) (*Config, error) {
	return LoadWith(path, loader.NewEnvLoader(loader.EnvPrefix))
}

// LoadWith is Load with a custom overlay loader; env may be nil.
func LoadWith(path string, env loader.Loader) (*Config, error) {
	var file map[string]any
	if path != "" {
		var err error
		file, err = loader.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	merged := file
	if env != nil {
		overlay, err := env.Load()
		if err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}
		merged = loader.DeepMerge(merged, overlay)
	}
	if merged == nil {
		merged = make(map[string]any)
	}
	return &Config{path: path, values: merged}, nil
}

// Path returns the file the configuration was loaded from, if any.
func (c *Config) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Lookup returns the value at a dot-separated path.
func (c *Config) Lookup(path string) (any, bool) {
	if c == nil {
		return nil, false
	}
	return loader.GetByPath(c.values, path)
}

// Has reports whether path holds a non-nil value.
func (c *Config) Has(path string) bool {
	v, ok := c.Lookup(path)
	return ok && v != nil
}

// String returns the value at path formatted as a string, or "" if absent.
func (c *Config) String(path string) string {
	v, ok := c.Lookup(path)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Bool returns the boolean at path. Missing values yield false.
func (c *Config) Bool(path string) bool {
	v, _ := c.Lookup(path)
	b, _ := v.(bool)
	return b
}

// StringSlice returns the list at path. A single string is split on commas.
// Missing values yield nil; non-string items return ErrTypeMismatch.
func (c *Config) StringSlice(path string) ([]string, error) {
	v, ok := c.Lookup(path)
	if !ok || v == nil {
		return nil, nil
	}

	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] is %T, want string", ErrTypeMismatch, path, i, item)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		var out []string
		for _, s := range strings.Split(list, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T, want list", ErrTypeMismatch, path, v)
	}
}

// PluginLists returns the plugins.enabled and plugins.disabled lists.
// Malformed lists are reported through err and treated as empty.
func (c *Config) PluginLists() (enabled, disabled []string, err error) {
	enabled, errEnabled := c.StringSlice(PathPluginsEnabled)
	disabled, errDisabled := c.StringSlice(PathPluginsDisabled)
	return enabled, disabled, errors.Join(errEnabled, errDisabled)
}

// Values returns a deep copy of the configuration map.
func (c *Config) Values() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	return loader.Clone(c.values)
}
