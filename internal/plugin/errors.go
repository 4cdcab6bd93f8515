package plugin

import (
	"errors"
	"strings"
)

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin ID is not registered.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrAlreadyRegistered is returned when registering a duplicate ID.
	ErrAlreadyRegistered = errors.New("plugin is already registered")

	// ErrPluginDisabled is returned when enabling a plugin the policy excludes.
	ErrPluginDisabled = errors.New("plugin is disabled")

	// ErrTransitionInProgress is returned when Enable or Disable re-enters
	// a plugin that is already transitioning.
	ErrTransitionInProgress = errors.New("plugin transition in progress")

	// ErrRequirementsNotMet is matched by *RequirementsError.
	ErrRequirementsNotMet = errors.New("plugin requirements not met")

	// ErrInvalidPlugin is returned when definition validation fails.
	ErrInvalidPlugin = errors.New("invalid plugin")
)

// RequirementsError lists the keys that kept a plugin from enabling.
type RequirementsError struct {
	PluginID          string
	MissingConfigKeys []string
	MissingEnvKeys    []string
}

// Error implements the error interface.
func (e *RequirementsError) Error() string {
	var b strings.Builder
	b.WriteString("plugin ")
	b.WriteString(e.PluginID)
	b.WriteString(": requirements not met")
	if len(e.MissingConfigKeys) > 0 {
		b.WriteString("; missing config: ")
		b.WriteString(strings.Join(e.MissingConfigKeys, ", "))
	}
	if len(e.MissingEnvKeys) > 0 {
		b.WriteString("; missing env: ")
		b.WriteString(strings.Join(e.MissingEnvKeys, ", "))
	}
	return b.String()
}

// Is matches ErrRequirementsNotMet.
func (e *RequirementsError) Is(target error) bool {
	return target == ErrRequirementsNotMet
}

// Missing returns every missing key, config keys first.
func (e *RequirementsError) Missing() []string {
	out := make([]string, 0, len(e.MissingConfigKeys)+len(e.MissingEnvKeys))
	out = append(out, e.MissingConfigKeys...)
	return append(out, e.MissingEnvKeys...)
}
