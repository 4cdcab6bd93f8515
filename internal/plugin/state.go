package plugin

// State represents the lifecycle state of a plugin.
type State int

// Plugin states.
const (
	// StateUnregistered - No definition with this ID was registered.
	StateUnregistered State = iota

	// StateDisabled - Registered but not mounted.
	StateDisabled

	// StateEnabled - Mounted into its slots.
	StateEnabled

	// StateRequirementsFailed - The last enable was refused for missing keys.
	StateRequirementsFailed

	// StateTransitioning - Enable or Disable is running.
	StateTransitioning
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateDisabled:
		return "disabled"
	case StateEnabled:
		return "enabled"
	case StateRequirementsFailed:
		return "requirements-failed"
	case StateTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// IsActive returns true if the plugin is mounted.
func (s State) IsActive() bool {
	return s == StateEnabled
}
