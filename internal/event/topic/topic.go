package topic

import "strings"

// Topic is an event name or a subscription pattern.
type Topic string

// Wildcard and separator tokens.
const (
	// WildcardSingle matches exactly one segment.
	WildcardSingle = "*"

	// WildcardMulti matches zero or more segments.
	WildcardMulti = "**"

	// Separator splits a topic into segments.
	Separator = ":"
)

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the topic split by the separator.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.Split(string(t), Separator)
}

// Namespace returns the first segment.
//
// Example: "plugin:enabled" -> "plugin"
func (t Topic) Namespace() string {
	s := string(t)
	if idx := strings.Index(s, Separator); idx >= 0 {
		return s[:idx]
	}
	return s
}

// Child appends a segment.
//
// Example: Topic("plugin").Child("enabled") -> "plugin:enabled"
func (t Topic) Child(segment string) Topic {
	if t == "" {
		return Topic(segment)
	}
	return Topic(string(t) + Separator + segment)
}

// IsWildcard returns true if the topic contains a wildcard segment.
func (t Topic) IsWildcard() bool {
	for _, seg := range t.Segments() {
		if seg == WildcardSingle || seg == WildcardMulti {
			return true
		}
	}
	return false
}

// IsValid returns true if the topic is non-empty, has no empty segments and
// contains no whitespace. Wildcard segments are allowed.
func (t Topic) IsValid() bool {
	if t == "" {
		return false
	}
	if strings.ContainsAny(string(t), " \t\r\n") {
		return false
	}
	for _, seg := range t.Segments() {
		if seg == "" {
			return false
		}
		if strings.Contains(seg, WildcardSingle) && seg != WildcardSingle && seg != WildcardMulti {
			return false
		}
	}
	return true
}

// Matches reports whether the concrete name is selected by this pattern.
// A pattern without wildcards matches only itself.
func (t Topic) Matches(name Topic) bool {
	if t == name {
		return true
	}
	if !t.IsWildcard() {
		return false
	}
	return matchSegments(t.Segments(), name.Segments())
}

func matchSegments(pattern, name []string) bool {
	for len(pattern) > 0 {
		seg := pattern[0]
		switch seg {
		case WildcardMulti:
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(name); i++ {
				if matchSegments(rest, name[i:]) {
					return true
				}
			}
			return false
		case WildcardSingle:
			if len(name) == 0 {
				return false
			}
		default:
			if len(name) == 0 || name[0] != seg {
				return false
			}
		}
		pattern = pattern[1:]
		name = name[1:]
	}
	return len(name) == 0
}
