package plugin

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/net/html"

	"github.com/dshills/dashcore/internal/config"
	"github.com/dshills/dashcore/internal/event"
	"github.com/dshills/dashcore/internal/store"
)

// Layer groups plugins; core plugins are always enabled.
type Layer string

// Known layers.
const (
	LayerCore    Layer = "core"
	LayerFeature Layer = "feature"
)

// UnmountFunc undoes one mount.
type UnmountFunc func()

// MountFunc renders a plugin into one container. A non-nil UnmountFunc is
// called when the plugin is disabled.
type MountFunc func(ctx context.Context, mc MountContext) (UnmountFunc, error)

// MountContext is what a mount function receives.
type MountContext struct {
	// Container is the slot container to render into.
	Container *html.Node

	SlotID   string
	PluginID string

	Bus     *event.Bus
	Store   store.Store
	Manager *Manager

	// Config is the configuration the manager was last loaded with.
	Config *config.Config

	// App carries application-defined values shared with every plugin.
	App map[string]any
}

// MountSpec describes how a plugin mounts into one slot.
type MountSpec struct {
	Mount MountFunc

	// ManageVisibility makes the manager show the containers before
	// mounting and hide them when the plugin is disabled or refused.
	ManageVisibility bool
}

// MountOption configures a MountSpec.
type MountOption func(*MountSpec)

// WithoutVisibility leaves container visibility to the plugin.
func WithoutVisibility() MountOption {
	return func(s *MountSpec) {
		s.ManageVisibility = false
	}
}

// Mount returns a MountSpec with managed visibility.
func Mount(fn MountFunc) MountSpec {
	return MountWithOptions(fn)
}

// MountWithOptions returns a MountSpec for fn with opts applied.
func MountWithOptions(fn MountFunc, opts ...MountOption) MountSpec {
	s := MountSpec{Mount: fn, ManageVisibility: true}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Requirements lists what must be present for a plugin to enable.
type Requirements struct {
	// ConfigKeys are dot-paths that must hold non-nil values.
	ConfigKeys []string

	// EnvKeys are environment keys the env-status provider must report.
	EnvKeys []string
}

// Definition describes a plugin.
type Definition struct {
	ID           string
	Layer        Layer
	Core         bool
	Slots        map[string]MountSpec
	Requirements Requirements
}

// IsCore reports whether the plugin is always enabled.
func (d Definition) IsCore() bool {
	return d.Core || d.Layer == LayerCore
}

// SlotIDs returns the slot IDs of d, sorted.
func (d Definition) SlotIDs() []string {
	ids := make([]string, 0, len(d.Slots))
	for id := range d.Slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks that d can be registered.
func (d Definition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidPlugin)
	}
	for id, spec := range d.Slots {
		if id == "" {
			return fmt.Errorf("%w: %s: empty slot id", ErrInvalidPlugin, d.ID)
		}
		if spec.Mount == nil {
			return fmt.Errorf("%w: %s: slot %q has no mount function", ErrInvalidPlugin, d.ID, id)
		}
	}
	return nil
}
