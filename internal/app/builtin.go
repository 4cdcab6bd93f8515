package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dshills/dashcore/internal/plugin"
	"github.com/dshills/dashcore/internal/slot"
	"github.com/dshills/dashcore/internal/store"
)

// StatusPluginID is the id of the built-in status line plugin.
const StatusPluginID = "status"

// statusPlugin renders the plugin lifecycle summary into the status slot and
// keeps it current by observing the store.
func statusPlugin(st *store.Memory) plugin.Definition {
	return plugin.Definition{
		ID:    StatusPluginID,
		Layer: plugin.LayerCore,
		Core:  true,
		Slots: map[string]plugin.MountSpec{
			SlotStatus: plugin.Mount(mountStatus(st)),
		},
	}
}

func mountStatus(st *store.Memory) plugin.MountFunc {
	return func(_ context.Context, mc plugin.MountContext) (plugin.UnmountFunc, error) {
		var mu sync.Mutex
		render := func(state map[string]any) {
			snap, _ := state[plugin.StoreKey].(plugin.Snapshot)
			mu.Lock()
			defer mu.Unlock()
			slot.SetText(mc.Container, statusLine(snap))
			if snap.Policy != "" {
				slot.SetAttr(mc.Container, "data-policy", snap.Policy)
			}
		}

		render(st.GetState())
		sub := st.Subscribe(func(c store.Change) {
			if slices.Contains(c.Keys, plugin.StoreKey) {
				render(c.State)
			}
		})
		return sub.Unsubscribe, nil
	}
}

// statusLine formats a snapshot, e.g. "2 active: status, clock; 1 failed: weather".
func statusLine(snap plugin.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d active", len(snap.Active))
	if len(snap.Active) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(snap.Active, ", "))
	}
	if len(snap.Failed) > 0 {
		failed := make([]string, 0, len(snap.Failed))
		for id := range snap.Failed {
			failed = append(failed, id)
		}
		slices.Sort(failed)
		fmt.Fprintf(&b, "; %d failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return b.String()
}
