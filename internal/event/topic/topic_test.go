package topic

import (
	"testing"
)

func TestTopic_Segments(t *testing.T) {
	tests := []struct {
		topic    Topic
		expected []string
	}{
		{Topic("plugin:requirements-failed"), []string{"plugin", "requirements-failed"}},
		{Topic("session:timer:started"), []string{"session", "timer", "started"}},
		{Topic("single"), []string{"single"}},
		{Topic(""), nil},
	}

	for _, tt := range tests {
		t.Run(tt.topic.String(), func(t *testing.T) {
			got := tt.topic.Segments()
			if len(got) != len(tt.expected) {
				t.Fatalf("Segments() = %v, want %v", got, tt.expected)
			}
			for i, seg := range got {
				if seg != tt.expected[i] {
					t.Errorf("Segments()[%d] = %v, want %v", i, seg, tt.expected[i])
				}
			}
		})
	}
}

func TestTopic_NamespaceAndChild(t *testing.T) {
	if got := Topic("plugin:enabled").Namespace(); got != "plugin" {
		t.Errorf("Namespace() = %q, want plugin", got)
	}
	if got := Topic("bare").Namespace(); got != "bare" {
		t.Errorf("Namespace() = %q, want bare", got)
	}
	if got := Topic("plugin").Child("enabled"); got != "plugin:enabled" {
		t.Errorf("Child() = %q, want plugin:enabled", got)
	}
	if got := Topic("").Child("root"); got != "root" {
		t.Errorf("Child() on empty = %q, want root", got)
	}
}

func TestTopic_IsValid(t *testing.T) {
	tests := []struct {
		topic Topic
		valid bool
	}{
		{"plugin:enabled", true},
		{"a", true},
		{"plugin:*", true},
		{"**", true},
		{"", false},
		{":enabled", false},
		{"plugin:", false},
		{"plugin::enabled", false},
		{"plugin:en abled", false},
		{"plugin:en*", false},
	}
	for _, tt := range tests {
		if got := tt.topic.IsValid(); got != tt.valid {
			t.Errorf("Topic(%q).IsValid() = %v, want %v", tt.topic, got, tt.valid)
		}
	}
}

func TestTopic_Matches(t *testing.T) {
	tests := []struct {
		pattern Topic
		name    Topic
		want    bool
	}{
		{"plugin:enabled", "plugin:enabled", true},
		{"plugin:enabled", "plugin:disabled", false},
		{"plugin:*", "plugin:enabled", true},
		{"plugin:*", "plugin:a:b", false},
		{"plugin:*", "plugin", false},
		{"*:changed", "config:changed", true},
		{"session:**", "session:started", true},
		{"session:**", "session:timer:started", true},
		{"session:**", "session", true},
		{"session:**", "goal:started", false},
		{"**", "anything:at:all", true},
		{"a:**:z", "a:z", true},
		{"a:**:z", "a:b:c:z", true},
		{"a:**:z", "a:b:c", false},
	}
	for _, tt := range tests {
		if got := tt.pattern.Matches(tt.name); got != tt.want {
			t.Errorf("Topic(%q).Matches(%q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
		}
	}
}
