// Package config provides read access to the dashboard configuration.
//
// A Config is an immutable snapshot of one merged configuration map: the
// configuration file (TOML, YAML or JSON, see package loader) overlaid with
// DASHCORE_* environment variables. Values are addressed by dot-separated
// paths:
//
//	# dashcore.toml
//	[plugins]
//	enabled  = ["goals", "weather"]
//	disabled = ["beta"]
//
//	[weather]
//	apiKey = "..."
//
//	cfg, err := config.Load("dashcore.toml")
//	if err != nil {
//	    return err
//	}
//	enabled, disabled := cfg.PluginLists()
//	if cfg.Has("weather.apiKey") {
//	    // ...
//	}
//
// Every method is safe on a nil *Config, which behaves as an empty
// configuration. Live reload is provided by package watcher, which publishes
// a fresh Config on each change.
//
// # Sub-packages
//
//   - loader: file and environment loading, merging
//   - watcher: fsnotify-based reload with config:changed events
package config
