package plugin

import "sort"

// PolicyMode is how the enable/disable lists select plugins.
type PolicyMode int

const (
	// PolicyNoConfig - Neither list is set; every plugin is eligible.
	PolicyNoConfig PolicyMode = iota

	// PolicyAllowList - Only plugins in the enabled list are eligible.
	PolicyAllowList

	// PolicyDenyList - Only the disabled list is set. Nothing is in the
	// enabled list, so only core plugins are eligible.
	PolicyDenyList
)

// String returns the policy mode name.
func (m PolicyMode) String() string {
	switch m {
	case PolicyNoConfig:
		return "no-config"
	case PolicyAllowList:
		return "allow-list"
	case PolicyDenyList:
		return "deny-list"
	default:
		return "unknown"
	}
}

// Policy decides which plugins are eligible. The zero value is
// PolicyNoConfig.
type Policy struct {
	mode     PolicyMode
	enabled  map[string]struct{}
	disabled map[string]struct{}
}

// NewPolicy derives the policy from the configured lists.
func NewPolicy(enabled, disabled []string) Policy {
	p := Policy{
		enabled:  toSet(enabled),
		disabled: toSet(disabled),
	}
	switch {
	case len(p.enabled) > 0:
		p.mode = PolicyAllowList
	case len(p.disabled) > 0:
		p.mode = PolicyDenyList
	default:
		p.mode = PolicyNoConfig
	}
	return p
}

// Mode returns the policy mode.
func (p Policy) Mode() PolicyMode {
	return p.mode
}

// Allows reports whether a plugin is eligible. Core plugins always are; the
// disabled list wins over everything else. Outside PolicyNoConfig a plugin
// must be in the enabled list.
func (p Policy) Allows(id string, core bool) bool {
	if core {
		return true
	}
	if _, off := p.disabled[id]; off {
		return false
	}
	if p.mode == PolicyNoConfig {
		return true
	}
	_, on := p.enabled[id]
	return on
}

// Enabled returns the enabled list, sorted.
func (p Policy) Enabled() []string {
	return sortedKeys(p.enabled)
}

// Disabled returns the disabled list, sorted.
func (p Policy) Disabled() []string {
	return sortedKeys(p.disabled)
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it != "" {
			set[it] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
