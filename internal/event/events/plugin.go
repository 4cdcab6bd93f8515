package events

import "github.com/dshills/dashcore/internal/event/topic"

// Plugin event topics.
const (
	// TopicPluginAll matches every plugin lifecycle event.
	TopicPluginAll topic.Topic = "plugin:*"

	// TopicPluginRegistered is published when a definition is registered.
	TopicPluginRegistered topic.Topic = "plugin:registered"

	// TopicPluginConfigLoaded is published when the enable/disable policy is
	// (re)loaded.
	TopicPluginConfigLoaded topic.Topic = "plugin:config-loaded"

	// TopicPluginEnabled is published after a plugin finished mounting.
	TopicPluginEnabled topic.Topic = "plugin:enabled"

	// TopicPluginDisabled is published after a plugin was unmounted.
	TopicPluginDisabled topic.Topic = "plugin:disabled"

	// TopicPluginRequirementsFailed is published when an enable is refused
	// because configuration or environment keys are missing.
	TopicPluginRequirementsFailed topic.Topic = "plugin:requirements-failed"

	// TopicPluginSlotMissing is published when a plugin targets a slot with
	// no registered container.
	TopicPluginSlotMissing topic.Topic = "plugin:slot-missing"

	// TopicPluginMountFailed is published when a mount function returns an
	// error or panics.
	TopicPluginMountFailed topic.Topic = "plugin:mount-failed"
)

// PluginRegistered is published when a definition is registered.
type PluginRegistered struct {
	// PluginID is the unique plugin identifier.
	PluginID string

	// Layer is the plugin layer (e.g., "core", "feature").
	Layer string

	// Slots lists the slot IDs the plugin mounts into, sorted.
	Slots []string
}

// PluginConfigLoaded is published when the enable/disable policy is loaded.
type PluginConfigLoaded struct {
	// Policy is the policy mode: "no-config", "allow-list" or "deny-list".
	Policy string

	// Enabled is the configured enabled list.
	Enabled []string

	// Disabled is the configured disabled list.
	Disabled []string
}

// PluginEnabled is published after a plugin finished mounting.
type PluginEnabled struct {
	PluginID string

	// Mounts is the number of unmount callbacks retained.
	Mounts int
}

// PluginDisabled is published after a plugin was unmounted.
type PluginDisabled struct {
	PluginID string

	// Unmounted is the number of unmount callbacks run.
	Unmounted int

	// UnmountErrors is how many of them panicked.
	UnmountErrors int
}

// PluginRequirementsFailed is published when requirements are not met.
type PluginRequirementsFailed struct {
	PluginID string

	// MissingConfigKeys lists configuration paths that were absent or nil.
	MissingConfigKeys []string

	// MissingEnvKeys lists environment keys reported as unavailable.
	MissingEnvKeys []string
}

// PluginSlotMissing is published when a targeted slot has no container.
type PluginSlotMissing struct {
	PluginID string
	SlotID   string
}

// PluginMountFailed is published when a mount fails.
type PluginMountFailed struct {
	PluginID string
	SlotID   string

	// Container is the key of the container the mount targeted.
	Container string

	// Err is the mount error.
	Err error
}
