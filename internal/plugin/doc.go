// Package plugin manages the lifecycle of dashboard plugins.
//
// A plugin is a Definition: an ID, a layer, the slots it mounts into and the
// configuration and environment keys it requires. The Manager decides which
// registered plugins are eligible from the configured policy, checks their
// requirements and mounts them into the containers of the slot registry.
//
// # Lifecycle
//
//	unregistered --Register--> disabled --Enable--> enabled
//	                              ^  |                  |
//	                              |  +--> requirements-failed
//	                              +------Disable--------+
//
// Enable and Disable are idempotent. While one of them runs for a plugin the
// plugin is transitioning; a nested Enable or Disable of the same plugin
// (for example from its own mount function) returns ErrTransitionInProgress.
//
// # Policy
//
// The plugins.enabled and plugins.disabled configuration lists select the
// policy mode:
//
//   - neither list set: every plugin is eligible (PolicyNoConfig)
//   - enabled set: only listed plugins are eligible (PolicyAllowList)
//   - only disabled set: no plugin is listed as enabled, so only core
//     plugins are eligible (PolicyDenyList)
//
// Core plugins are always eligible and the disabled list always wins over
// the enabled list.
//
// # Events
//
// Every transition is published on the event bus (see package events):
// plugin:registered, plugin:config-loaded, plugin:enabled,
// plugin:disabled, plugin:requirements-failed, plugin:slot-missing and
// plugin:mount-failed. Emissions use the context of the call, so they
// continue the correlation of whatever triggered them.
//
// # Basic Usage
//
//	mgr := plugin.NewManager(bus, slots, plugin.WithStore(st))
//
//	mgr.Register(ctx, plugin.Definition{
//	    ID: "goals",
//	    Slots: map[string]plugin.MountSpec{
//	        "widgets": plugin.Mount(func(ctx context.Context, mc plugin.MountContext) (plugin.UnmountFunc, error) {
//	            slot.SetText(mc.Container, "3 goals due")
//	            return nil, nil
//	        }),
//	    },
//	    Requirements: plugin.Requirements{ConfigKeys: []string{"goals.source"}},
//	})
//
//	mgr.LoadConfig(ctx, cfg)
//	if err := mgr.EnableConfigured(ctx); err != nil {
//	    // programmer errors only; missing requirements are reported as events
//	}
//
// # Lua Plugins
//
// Sub-package lua turns Lua scripts into Definitions.
package plugin
