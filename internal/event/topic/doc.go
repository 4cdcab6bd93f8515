// Package topic provides event names and the patterns subscriptions use to
// select them.
//
// # Names
//
// Names are colon-separated hierarchies:
//
//	plugin:enabled
//	plugin:requirements-failed
//	config:changed
//	session:timer:started
//
// # Patterns
//
// A subscription may name a pattern instead of a concrete event:
//
//   - "*" matches exactly one segment
//   - "**" matches zero or more segments
//
// Examples:
//
//	plugin:*         matches plugin:enabled, plugin:disabled (not plugin:a:b)
//	session:**       matches session:started, session:timer:started
//	*:changed        matches config:changed, goal:changed
//	**               matches everything
//
// Concrete events are always published under a plain name; wildcards are
// only meaningful on the subscribing side.
package topic
