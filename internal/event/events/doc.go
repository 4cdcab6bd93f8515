// Package events defines the topics and payloads of the events published by
// dashcore itself.
//
// Each topic constant has a matching payload struct, carried as the
// event.Event Detail:
//
//   - Plugin events: registration, policy loading, enable/disable
//     transitions and the failures observed along the way
//   - Config events: reloads of the configuration file
//
// # Usage
//
//	bus.OnAsync(events.TopicPluginEnabled, func(ctx context.Context, evt event.Event) error {
//	    p := evt.Detail.(events.PluginEnabled)
//	    logger.Info().Str("plugin", p.PluginID).Int("mounts", p.Mounts).Msg("up")
//	    return nil
//	})
//
// # Topic Naming Convention
//
// Topics are colon-separated, module first:
//
//	<module>:<action>
//
// Subscribers can use wildcards: "plugin:*" receives every plugin event and
// "**" receives everything.
package events
