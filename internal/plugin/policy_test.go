package plugin

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewPolicy_Mode(t *testing.T) {
	tests := []struct {
		name     string
		enabled  []string
		disabled []string
		want     PolicyMode
	}{
		{"no lists", nil, nil, PolicyNoConfig},
		{"empty lists", []string{}, []string{}, PolicyNoConfig},
		{"blank entries only", []string{""}, nil, PolicyNoConfig},
		{"enabled list", []string{"goals"}, nil, PolicyAllowList},
		{"both lists", []string{"goals"}, []string{"tasks"}, PolicyAllowList},
		{"disabled list", nil, []string{"tasks"}, PolicyDenyList},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewPolicy(tt.enabled, tt.disabled).Mode(); got != tt.want {
				t.Errorf("Mode() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolicy_Allows(t *testing.T) {
	tests := []struct {
		name     string
		enabled  []string
		disabled []string
		id       string
		core     bool
		want     bool
	}{
		{"no config allows all", nil, nil, "goals", false, true},
		{"allow list member", []string{"goals"}, nil, "goals", false, true},
		{"allow list non-member", []string{"goals"}, nil, "tasks", false, false},
		{"deny list member", nil, []string{"tasks"}, "tasks", false, false},
		{"deny list non-member", nil, []string{"tasks"}, "goals", false, false},
		{"deny list core", nil, []string{"tasks"}, "shell", true, true},
		{"disabled wins over enabled", []string{"goals"}, []string{"goals"}, "goals", false, false},
		{"core ignores allow list", []string{"goals"}, nil, "shell", true, true},
		{"core ignores disabled list", nil, []string{"shell"}, "shell", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy(tt.enabled, tt.disabled)
			if got := p.Allows(tt.id, tt.core); got != tt.want {
				t.Errorf("Allows(%q, %v) = %v, want %v", tt.id, tt.core, got, tt.want)
			}
		})
	}
}

func TestPolicy_ZeroValueAllowsAll(t *testing.T) {
	var p Policy
	if p.Mode() != PolicyNoConfig {
		t.Errorf("Mode() = %v, want %v", p.Mode(), PolicyNoConfig)
	}
	if !p.Allows("anything", false) {
		t.Error("zero policy should allow every plugin")
	}
}

func TestPolicy_Lists(t *testing.T) {
	p := NewPolicy([]string{"tasks", "goals", "tasks"}, []string{"weather"})
	if diff := cmp.Diff([]string{"goals", "tasks"}, p.Enabled()); diff != "" {
		t.Errorf("Enabled() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"weather"}, p.Disabled()); diff != "" {
		t.Errorf("Disabled() mismatch (-want +got):\n%s", diff)
	}
}

func TestPolicyMode_String(t *testing.T) {
	tests := []struct {
		mode PolicyMode
		want string
	}{
		{PolicyNoConfig, "no-config"},
		{PolicyAllowList, "allow-list"},
		{PolicyDenyList, "deny-list"},
		{PolicyMode(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("PolicyMode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
