package plugin

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"github.com/dshills/dashcore/internal/config"
	"github.com/dshills/dashcore/internal/event"
	"github.com/dshills/dashcore/internal/event/events"
	"github.com/dshills/dashcore/internal/event/topic"
	"github.com/dshills/dashcore/internal/log"
	"github.com/dshills/dashcore/internal/plugin/envstatus"
	"github.com/dshills/dashcore/internal/slot"
	"github.com/dshills/dashcore/internal/store"
)

// StoreKey is the store key that receives lifecycle snapshots.
const StoreKey = "plugins"

// record is the runtime state of one registered plugin.
type record struct {
	def           Definition
	enabled       bool
	transitioning bool
	mounts        []mounted
	missing       []string
}

// mounted is one retained unmount callback, keyed slotID:containerKey.
type mounted struct {
	key     string
	unmount UnmountFunc
}

// Snapshot is the lifecycle summary written to the store.
type Snapshot struct {
	// Policy is the policy mode name.
	Policy string

	// Enabled and Disabled are the configured lists, sorted.
	Enabled  []string
	Disabled []string

	// Active lists enabled plugins in registration order.
	Active []string

	// Failed maps plugins whose last enable failed requirements to the
	// missing keys.
	Failed map[string][]string
}

// Manager manages the lifecycle of all plugins.
// It is safe for concurrent use; mount and unmount functions run without
// any manager lock held.
type Manager struct {
	bus      *event.Bus
	slots    *slot.Registry
	env      *envstatus.Cache
	store    store.Store
	recorder Recorder
	logger   zerolog.Logger
	app      map[string]any

	mu             sync.Mutex
	plugins        map[string]*record
	order          []string
	cfg            *config.Config
	policy         Policy
	warnedNoConfig bool

	// domMu serializes visibility changes on shared containers.
	domMu sync.Mutex

	attachMu sync.Mutex
	group    *event.Group
}

// NewManager creates a plugin manager publishing on bus and mounting into
// the containers of slots. Nil arguments are replaced with empty instances.
func NewManager(bus *event.Bus, slots *slot.Registry, opts ...Option) *Manager {
	cfg := defaultManagerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if bus == nil {
		bus = event.NewBus(event.WithLogger(cfg.logger))
	}
	if slots == nil {
		slots = slot.NewRegistry()
	}
	return &Manager{
		bus:      bus,
		slots:    slots,
		env:      envstatus.NewCache(cfg.env),
		store:    cfg.store,
		recorder: cfg.recorder,
		logger:   cfg.logger,
		app:      cfg.app,
		plugins:  make(map[string]*record),
	}
}

// Bus returns the bus the manager publishes on.
func (m *Manager) Bus() *event.Bus {
	return m.bus
}

// Slots returns the slot registry the manager mounts into.
func (m *Manager) Slots() *slot.Registry {
	return m.slots
}

// Register adds a plugin definition. The plugin starts disabled.
func (m *Manager) Register(ctx context.Context, def Definition) error {
	if err := def.Validate(); err != nil {
		m.logger.Error().Err(err).Str(log.FieldPluginID, def.ID).Msg("rejected plugin definition")
		return err
	}
	def.Slots = maps.Clone(def.Slots)

	m.mu.Lock()
	if _, exists := m.plugins[def.ID]; exists {
		m.mu.Unlock()
		m.logger.Warn().Str(log.FieldPluginID, def.ID).Msg("plugin already registered")
		return fmt.Errorf("plugin %q: %w", def.ID, ErrAlreadyRegistered)
	}
	m.plugins[def.ID] = &record{def: def}
	m.order = append(m.order, def.ID)
	m.mu.Unlock()

	m.logger.Debug().Str(log.FieldPluginID, def.ID).Str("layer", string(def.Layer)).Msg("plugin registered")
	m.publish(ctx, events.TopicPluginRegistered, events.PluginRegistered{
		PluginID: def.ID,
		Layer:    string(def.Layer),
		Slots:    def.SlotIDs(),
	})
	return nil
}

// LoadConfig derives the policy from cfg's plugin lists and keeps cfg for
// requirement checks. A nil cfg selects PolicyNoConfig.
func (m *Manager) LoadConfig(ctx context.Context, cfg *config.Config) error {
	enabled, disabled, err := cfg.PluginLists()
	if err != nil {
		m.logger.Error().Err(err).Str(log.FieldPath, cfg.Path()).Msg("invalid plugin lists")
		return fmt.Errorf("load plugin config: %w", err)
	}
	p := NewPolicy(enabled, disabled)

	m.mu.Lock()
	m.cfg = cfg
	m.policy = p
	warn := p.Mode() == PolicyNoConfig && !m.warnedNoConfig
	if warn {
		m.warnedNoConfig = true
	}
	m.mu.Unlock()

	if warn {
		m.logger.Warn().Msg("no plugin lists configured, every plugin is eligible")
	}
	m.logger.Info().
		Str("policy", p.Mode().String()).
		Strs("enabled", p.Enabled()).
		Strs("disabled", p.Disabled()).
		Msg("plugin config loaded")

	m.publish(ctx, events.TopicPluginConfigLoaded, events.PluginConfigLoaded{
		Policy:   p.Mode().String(),
		Enabled:  p.Enabled(),
		Disabled: p.Disabled(),
	})
	m.writeSnapshot()
	return nil
}

// Policy returns the current policy.
func (m *Manager) Policy() Policy {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.policy
}

// IsEnabled reports whether the policy makes a plugin eligible. Unknown
// plugins are not.
func (m *Manager) IsEnabled(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.plugins[id]
	if !ok {
		return false
	}
	return m.policy.Allows(id, rec.def.IsCore())
}

// IsActive reports whether a plugin is mounted.
func (m *Manager) IsActive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.plugins[id]
	return ok && rec.enabled
}

// State returns the lifecycle state of a plugin.
func (m *Manager) State(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.plugins[id]
	switch {
	case !ok:
		return StateUnregistered
	case rec.transitioning:
		return StateTransitioning
	case rec.enabled:
		return StateEnabled
	case rec.missing != nil:
		return StateRequirementsFailed
	default:
		return StateDisabled
	}
}

// Enable mounts a plugin into every container of its slots. Enabling an
// active plugin is a no-op.
func (m *Manager) Enable(ctx context.Context, id string) error {
	m.mu.Lock()
	rec, ok := m.plugins[id]
	if !ok {
		m.mu.Unlock()
		m.logger.Error().Str(log.FieldPluginID, id).Msg("enable: unknown plugin")
		return fmt.Errorf("plugin %q: %w", id, ErrPluginNotFound)
	}
	if rec.transitioning {
		m.mu.Unlock()
		m.logger.Warn().Str(log.FieldPluginID, id).Msg("enable: transition in progress")
		return fmt.Errorf("enable plugin %q: %w", id, ErrTransitionInProgress)
	}
	if rec.enabled {
		m.mu.Unlock()
		return nil
	}
	def := rec.def
	if !m.policy.Allows(id, def.IsCore()) {
		m.mu.Unlock()
		m.hideSlots(def)
		m.recorder.TransitionRecorded(id, TransitionRefused)
		m.logger.Debug().Str(log.FieldPluginID, id).Msg("enable refused by policy")
		return fmt.Errorf("enable plugin %q: %w", id, ErrPluginDisabled)
	}
	rec.transitioning = true
	cfg := m.cfg
	m.mu.Unlock()

	if rerr := m.checkRequirements(ctx, def, cfg); rerr != nil {
		m.hideSlots(def)

		m.mu.Lock()
		rec.transitioning = false
		rec.missing = rerr.Missing()
		m.mu.Unlock()

		m.logger.Warn().
			Str(log.FieldPluginID, id).
			Strs("missing_config", rerr.MissingConfigKeys).
			Strs("missing_env", rerr.MissingEnvKeys).
			Msg("plugin requirements not met")
		m.publish(ctx, events.TopicPluginRequirementsFailed, events.PluginRequirementsFailed{
			PluginID:          id,
			MissingConfigKeys: rerr.MissingConfigKeys,
			MissingEnvKeys:    rerr.MissingEnvKeys,
		})
		m.recorder.TransitionRecorded(id, TransitionRequirementsFailed)
		m.writeSnapshot()
		return rerr
	}

	mounts := m.mountAll(ctx, def, cfg)

	m.mu.Lock()
	rec.mounts = mounts
	rec.enabled = true
	rec.transitioning = false
	rec.missing = nil
	active := m.activeCountLocked()
	m.mu.Unlock()

	m.logger.Info().Str(log.FieldPluginID, id).Int("mounts", len(mounts)).Msg("plugin enabled")
	m.publish(ctx, events.TopicPluginEnabled, events.PluginEnabled{PluginID: id, Mounts: len(mounts)})
	m.recorder.TransitionRecorded(id, TransitionEnabled)
	m.recorder.ActivePlugins(active)
	m.writeSnapshot()
	return nil
}

func (m *Manager) mountAll(ctx context.Context, def Definition, cfg *config.Config) []mounted {
	var mounts []mounted
	for _, slotID := range def.SlotIDs() {
		spec := def.Slots[slotID]
		containers := m.slots.All(slotID)
		if len(containers) == 0 {
			m.logger.Warn().Str(log.FieldPluginID, def.ID).Str(log.FieldSlotID, slotID).Msg("slot has no containers")
			m.publish(ctx, events.TopicPluginSlotMissing, events.PluginSlotMissing{PluginID: def.ID, SlotID: slotID})
			continue
		}

		for _, container := range containers {
			if spec.ManageVisibility {
				m.domMu.Lock()
				slot.Show(container)
				m.domMu.Unlock()
			}

			key := slotID + ":" + slot.ContainerKey(container)
			unmount, err := m.callMount(ctx, spec.Mount, MountContext{
				Container: container,
				SlotID:    slotID,
				PluginID:  def.ID,
				Bus:       m.bus,
				Store:     m.store,
				Manager:   m,
				Config:    cfg,
				App:       m.app,
			})
			if err != nil {
				m.logger.Error().Err(err).
					Str(log.FieldPluginID, def.ID).
					Str(log.FieldSlotID, slotID).
					Str("container", key).
					Msg("mount failed")
				m.publish(ctx, events.TopicPluginMountFailed, events.PluginMountFailed{
					PluginID:  def.ID,
					SlotID:    slotID,
					Container: key,
					Err:       err,
				})
				m.recorder.TransitionRecorded(def.ID, TransitionMountFailed)
				continue
			}
			if unmount != nil {
				mounts = append(mounts, mounted{key: key, unmount: unmount})
			}
		}
	}
	return mounts
}

func (m *Manager) callMount(ctx context.Context, fn MountFunc, mc MountContext) (unmount UnmountFunc, err error) {
	defer func() {
		if r := recover(); r != nil {
			unmount = nil
			err = &event.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(ctx, mc)
}

// Disable unmounts a plugin. Disabling an inactive plugin only hides its
// slots.
func (m *Manager) Disable(ctx context.Context, id string) error {
	m.mu.Lock()
	rec, ok := m.plugins[id]
	if !ok {
		m.mu.Unlock()
		m.logger.Error().Str(log.FieldPluginID, id).Msg("disable: unknown plugin")
		return fmt.Errorf("plugin %q: %w", id, ErrPluginNotFound)
	}
	if rec.transitioning {
		m.mu.Unlock()
		m.logger.Warn().Str(log.FieldPluginID, id).Msg("disable: transition in progress")
		return fmt.Errorf("disable plugin %q: %w", id, ErrTransitionInProgress)
	}
	def := rec.def
	if !rec.enabled {
		m.mu.Unlock()
		m.hideSlots(def)
		return nil
	}
	rec.transitioning = true
	mounts := rec.mounts
	rec.mounts = nil
	m.mu.Unlock()

	m.hideSlots(def)

	failures := 0
	for _, mt := range mounts {
		if !m.runUnmount(id, mt) {
			failures++
		}
	}

	m.mu.Lock()
	rec.enabled = false
	rec.transitioning = false
	active := m.activeCountLocked()
	m.mu.Unlock()

	m.logger.Info().Str(log.FieldPluginID, id).Int("unmounted", len(mounts)).Int("failures", failures).Msg("plugin disabled")
	m.publish(ctx, events.TopicPluginDisabled, events.PluginDisabled{
		PluginID:      id,
		Unmounted:     len(mounts),
		UnmountErrors: failures,
	})
	m.recorder.TransitionRecorded(id, TransitionDisabled)
	m.recorder.ActivePlugins(active)
	m.writeSnapshot()
	return nil
}

// runUnmount calls one unmount callback and reports whether it completed.
func (m *Manager) runUnmount(pluginID string, mt mounted) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			m.logger.Error().
				Str(log.FieldPluginID, pluginID).
				Str("container", mt.key).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("unmount failed")
		}
	}()
	mt.unmount()
	return true
}

// EnableConfigured enables every eligible plugin in registration order and
// hides the slots of the inactive ineligible ones. Environment keys of
// eligible plugins are probed in one batch first. Requirement failures are
// reported by event only; the returned error joins everything else.
func (m *Manager) EnableConfigured(ctx context.Context) error {
	m.mu.Lock()
	var eligible, ineligible []Definition
	for _, id := range m.order {
		rec := m.plugins[id]
		if m.policy.Allows(id, rec.def.IsCore()) {
			eligible = append(eligible, rec.def)
		} else if !rec.enabled {
			ineligible = append(ineligible, rec.def)
		}
	}
	m.mu.Unlock()

	m.prefetchEnv(ctx, eligible)

	var errs []error
	for _, def := range eligible {
		if err := m.Enable(ctx, def.ID); err != nil && !errors.Is(err, ErrRequirementsNotMet) {
			errs = append(errs, err)
		}
	}
	for _, def := range ineligible {
		m.hideSlots(def)
	}
	return errors.Join(errs...)
}

func (m *Manager) prefetchEnv(ctx context.Context, defs []Definition) {
	var keys []string
	for _, def := range defs {
		keys = append(keys, def.Requirements.EnvKeys...)
	}
	if len(keys) == 0 {
		return
	}
	if _, err := m.env.Status(ctx, keys); err != nil {
		m.logger.Warn().Err(err).Strs("keys", keys).Msg("env status prefetch failed")
	}
}

// Reconcile disables active plugins the current policy no longer allows,
// then enables the newly eligible ones.
func (m *Manager) Reconcile(ctx context.Context) error {
	m.mu.Lock()
	var stale []string
	for _, id := range m.order {
		rec := m.plugins[id]
		if rec.enabled && !m.policy.Allows(id, rec.def.IsCore()) {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, id := range stale {
		if err := m.Disable(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.EnableConfigured(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Attach subscribes the manager to config:changed on bus. Each change
// reloads the policy and reconciles. Attaching again replaces the previous
// subscription.
func (m *Manager) Attach(bus *event.Bus) error {
	m.attachMu.Lock()
	defer m.attachMu.Unlock()

	if m.group != nil {
		m.group.Close()
		m.group = nil
	}
	g := event.NewGroup(bus)
	if _, err := g.OnAsync(events.TopicConfigChanged, m.onConfigChanged); err != nil {
		return fmt.Errorf("attach plugin manager: %w", err)
	}
	m.group = g
	return nil
}

// Detach removes the config:changed subscription. It is a no-op when the
// manager is not attached.
func (m *Manager) Detach() {
	m.attachMu.Lock()
	defer m.attachMu.Unlock()

	if m.group != nil {
		m.group.Close()
		m.group = nil
	}
}

func (m *Manager) onConfigChanged(ctx context.Context, evt event.Event) error {
	var cfg *config.Config
	switch d := evt.Detail.(type) {
	case events.ConfigChanged:
		cfg = d.Config
	case *events.ConfigChanged:
		if d != nil {
			cfg = d.Config
		}
	case *config.Config:
		cfg = d
	default:
		return fmt.Errorf("%s: unexpected detail %T", evt.Name, evt.Detail)
	}
	if err := m.LoadConfig(ctx, cfg); err != nil {
		return err
	}
	return m.Reconcile(ctx)
}

// Get returns the definition registered under id.
func (m *Manager) Get(id string) (Definition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.plugins[id]
	if !ok {
		return Definition{}, false
	}
	return rec.def, true
}

// List returns all definitions in registration order.
func (m *Manager) List() []Definition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Definition, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.plugins[id].def)
	}
	return out
}

// Failed returns the plugins whose last enable failed requirements, with
// the missing keys.
func (m *Manager) Failed() map[string][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failedLocked()
}

// Mounts returns the retained mount keys of a plugin, in mount order.
func (m *Manager) Mounts(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.plugins[id]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(rec.mounts))
	for _, mt := range rec.mounts {
		keys = append(keys, mt.key)
	}
	return keys
}

// Snapshot returns the current lifecycle summary.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	active := make([]string, 0, len(m.order))
	for _, id := range m.order {
		if m.plugins[id].enabled {
			active = append(active, id)
		}
	}
	return Snapshot{
		Policy:   m.policy.Mode().String(),
		Enabled:  m.policy.Enabled(),
		Disabled: m.policy.Disabled(),
		Active:   active,
		Failed:   m.failedLocked(),
	}
}

func (m *Manager) failedLocked() map[string][]string {
	out := make(map[string][]string)
	for id, rec := range m.plugins {
		if rec.missing != nil {
			out[id] = append([]string(nil), rec.missing...)
		}
	}
	return out
}

func (m *Manager) activeCountLocked() int {
	n := 0
	for _, rec := range m.plugins {
		if rec.enabled {
			n++
		}
	}
	return n
}

func (m *Manager) writeSnapshot() {
	if m.store == nil {
		return
	}
	m.store.SetState(map[string]any{StoreKey: m.Snapshot()})
}

// hideSlots hides every container of the slots def manages visibility for.
func (m *Manager) hideSlots(def Definition) {
	var targets []*html.Node
	for _, slotID := range def.SlotIDs() {
		if !def.Slots[slotID].ManageVisibility {
			continue
		}
		targets = append(targets, m.slots.All(slotID)...)
	}
	if len(targets) == 0 {
		return
	}
	m.domMu.Lock()
	defer m.domMu.Unlock()
	for _, n := range targets {
		slot.Hide(n)
	}
}

// publish emits a lifecycle event. Handler failures are logged; they never
// fail the transition that published them.
func (m *Manager) publish(ctx context.Context, name topic.Topic, detail any) {
	if _, err := m.bus.Emit(ctx, name, detail); err != nil {
		m.logger.Error().Err(err).Str(log.FieldEvent, string(name)).Msg("lifecycle event handler failed")
	}
}
