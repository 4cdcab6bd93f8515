package events

import (
	"github.com/dshills/dashcore/internal/config"
	"github.com/dshills/dashcore/internal/event/topic"
)

// Config event topics.
const (
	// TopicConfigChanged is published when the configuration was reloaded.
	TopicConfigChanged topic.Topic = "config:changed"
)

// ConfigChanged is published when the configuration was reloaded.
type ConfigChanged struct {
	// Path is the file the configuration was read from, if any.
	Path string

	// Config is the newly loaded configuration.
	Config *config.Config
}
