package lua

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/dshills/dashcore/internal/config"
	"github.com/dshills/dashcore/internal/event"
	"github.com/dshills/dashcore/internal/plugin"
	"github.com/dshills/dashcore/internal/plugin/envstatus"
	"github.com/dshills/dashcore/internal/slot"
)

const clockScript = `
dashboard.register{
    id = "clock",
    requirements = { config = {"clock.zone"} },
    slots = {
        ["view:header"] = function(ctx)
            ctx.set_text("now in " .. ctx.config("clock.zone"))
            ctx:set_attr("data-plugin", ctx.plugin_id)
            ctx.emit("clock:mounted", { slot = ctx.slot_id, zones = {"utc"} })
            return function()
                ctx.set_text("")
                ctx.emit("clock:unmounted", {})
            end
        end,
        ["view:footer"] = { mount = function(ctx) ctx.append_html("<em>tick</em>") end, manage_visibility = false },
    },
}
`

func newTestLoader() *Loader {
	return NewLoader(WithLogger(zerolog.Nop()))
}

func TestLoader_LoadStringDefinitions(t *testing.T) {
	sc, err := newTestLoader().LoadString("clock.lua", clockScript)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	defer sc.Close()

	defs := sc.Definitions()
	if len(defs) != 1 {
		t.Fatalf("len(Definitions()) = %d, want 1", len(defs))
	}
	def := defs[0]
	if def.ID != "clock" || def.Layer != plugin.LayerFeature || def.IsCore() {
		t.Errorf("definition = %+v", def)
	}
	if diff := cmp.Diff([]string{"view:footer", "view:header"}, def.SlotIDs()); diff != "" {
		t.Errorf("SlotIDs() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"clock.zone"}, def.Requirements.ConfigKeys); diff != "" {
		t.Errorf("ConfigKeys mismatch (-want +got):\n%s", diff)
	}
	if !def.Slots["view:header"].ManageVisibility || def.Slots["view:footer"].ManageVisibility {
		t.Error("manage_visibility not honoured")
	}
	if err := def.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if sc.Name() != "clock.lua" {
		t.Errorf("Name() = %q", sc.Name())
	}
}

func TestLoader_RegistrationErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing id", `dashboard.register{ slots = {} }`},
		{"bad layer", `dashboard.register{ id = "a", layer = 3 }`},
		{"bad requirements", `dashboard.register{ id = "a", requirements = { env = {1} } }`},
		{"slot without mount", `dashboard.register{ id = "a", slots = { x = { manage_visibility = true } } }`},
		{"slot not callable", `dashboard.register{ id = "a", slots = { x = 42 } }`},
		{"duplicate id", `dashboard.register{ id = "a" }; dashboard.register{ id = "a" }`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestLoader().LoadString(tt.name, tt.src)
			if !errors.Is(err, ErrInvalidRegistration) {
				t.Errorf("LoadString() error = %v, want ErrInvalidRegistration", err)
			}
		})
	}
}

func TestLoader_ScriptErrors(t *testing.T) {
	if _, err := newTestLoader().LoadString("syntax", `dashboard.register{`); err == nil {
		t.Error("LoadString() should fail on a syntax error")
	}
	if _, err := newTestLoader().LoadString("runtime", `error("nope")`); err == nil {
		t.Error("LoadString() should fail on a runtime error")
	}
	if _, err := newTestLoader().LoadString("sandbox", `dofile("/etc/passwd")`); err == nil {
		t.Error("LoadString() should fail when calling a removed loader")
	}
}

func TestLoader_MountAndUnmountThroughManager(t *testing.T) {
	doc, err := slot.ParseDocument(strings.NewReader(
		`<html><body><header data-slot="view:header"></header><footer data-slot="view:footer"></footer></body></html>`))
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	slots := slot.NewRegistry()
	slots.RegisterFromDOM(doc)

	bus := event.NewBus(event.WithLogger(zerolog.Nop()))
	var (
		mu      sync.Mutex
		emitted []event.Event
	)
	if _, err := bus.On("clock:**", func(_ context.Context, evt event.Event) error {
		mu.Lock()
		emitted = append(emitted, evt)
		mu.Unlock()
		return nil
	}); err != nil {
		t.Fatalf("On() error = %v", err)
	}

	mgr := plugin.NewManager(bus, slots,
		plugin.WithLogger(zerolog.Nop()),
		plugin.WithEnvProvider(envstatus.ProviderFunc(func(context.Context, []string) (map[string]bool, error) {
			return nil, nil
		})),
	)

	sc, err := newTestLoader().LoadString("clock.lua", clockScript)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	defer sc.Close()

	ctx := context.Background()
	for _, def := range sc.Definitions() {
		if err := mgr.Register(ctx, def); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	if err := mgr.LoadConfig(ctx, config.New(map[string]any{"clock": map[string]any{"zone": "UTC"}})); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if err := mgr.Enable(ctx, "clock"); err != nil {
		t.Fatalf("Enable() error = %v", err)
	}

	header := slots.Get("view:header")
	if got := slot.Text(header); got != "now in UTC" {
		t.Errorf("header text = %q, want %q", got, "now in UTC")
	}
	if v, _ := slot.Attr(header, "data-plugin"); v != "clock" {
		t.Errorf("data-plugin = %q, want clock", v)
	}
	if got := slot.Text(slots.Get("view:footer")); got != "tick" {
		t.Errorf("footer text = %q, want %q", got, "tick")
	}

	mu.Lock()
	if len(emitted) != 1 || emitted[0].Name != "clock:mounted" {
		t.Fatalf("emitted = %+v, want clock:mounted", emitted)
	}
	want := map[string]any{"slot": "view:header", "zones": []any{"utc"}}
	if diff := cmp.Diff(want, emitted[0].Detail); diff != "" {
		t.Errorf("emit detail mismatch (-want +got):\n%s", diff)
	}
	mu.Unlock()

	if err := mgr.Disable(ctx, "clock"); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if got := slot.Text(header); got != "" {
		t.Errorf("header text after unmount = %q, want empty", got)
	}
	if !slot.IsHidden(header) {
		t.Error("header not hidden after disable")
	}
	if slot.IsHidden(slots.Get("view:footer")) {
		t.Error("footer hidden although visibility is unmanaged")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(emitted) != 2 || emitted[1].Name != "clock:unmounted" {
		t.Errorf("emitted = %+v, want clock:unmounted last", emitted)
	}
}

func TestLoader_MountErrorAndBadReturn(t *testing.T) {
	sc, err := newTestLoader().LoadString("bad.lua", `
		dashboard.register{ id = "err", slots = { x = function(ctx) error("render failed") end } }
		dashboard.register{ id = "ret", slots = { x = function(ctx) return 42 end } }
	`)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	defer sc.Close()

	for _, def := range sc.Definitions() {
		unmount, err := def.Slots["x"].Mount(context.Background(), plugin.MountContext{
			Container: slot.NewRegistry().Get("x"),
			SlotID:    "x",
			PluginID:  def.ID,
		})
		if err == nil {
			t.Errorf("%s: Mount() error = nil", def.ID)
		}
		if unmount != nil {
			t.Errorf("%s: Mount() returned an unmount on failure", def.ID)
		}
	}
}

func TestLoader_UnmountErrorPanics(t *testing.T) {
	sc, err := newTestLoader().LoadString("cleanup.lua", `
		dashboard.register{ id = "p", slots = { x = function(ctx) return function() error("cleanup failed") end end } }
	`)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	defer sc.Close()

	unmount, err := sc.Definitions()[0].Slots["x"].Mount(context.Background(), plugin.MountContext{SlotID: "x", PluginID: "p"})
	if err != nil || unmount == nil {
		t.Fatalf("Mount() = %v, %v", unmount, err)
	}

	defer func() {
		if recover() == nil {
			t.Error("unmount error did not panic")
		}
	}()
	unmount()
}

func TestLoader_LoadFileAndDir(t *testing.T) {
	dir := t.TempDir()
	write := func(rel, src string) {
		t.Helper()
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("alpha.lua", `dashboard.register{ id = "alpha" }`)
	write("beta/init.lua", `dashboard.register{ id = "beta" }; dashboard.register{ id = "beta-extra" }`)
	write("broken.lua", `error("broken")`)
	write("empty/readme.txt", "no entry point")

	sc, err := newTestLoader().LoadFile(filepath.Join(dir, "alpha.lua"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	sc.Close()

	scripts, err := newTestLoader().LoadDir(dir)
	if err == nil {
		t.Error("LoadDir() error = nil, want broken and empty reported")
	}
	if !errors.Is(err, ErrNoEntryPoint) {
		t.Errorf("LoadDir() error = %v, want ErrNoEntryPoint joined", err)
	}

	var ids []string
	for _, sc := range scripts {
		for _, def := range sc.Definitions() {
			ids = append(ids, def.ID)
		}
		sc.Close()
	}
	if diff := cmp.Diff([]string{"alpha", "beta", "beta-extra"}, ids); diff != "" {
		t.Errorf("loaded plugin ids mismatch (-want +got):\n%s", diff)
	}

	if _, err := newTestLoader().LoadFile(filepath.Join(dir, "missing.lua")); err == nil {
		t.Error("LoadFile() of a missing file should fail")
	}
}

func TestScript_CloseStopsMounts(t *testing.T) {
	sc, err := newTestLoader().LoadString("p.lua", `dashboard.register{ id = "p", slots = { x = function(ctx) end } }`)
	if err != nil {
		t.Fatalf("LoadString() error = %v", err)
	}
	mount := sc.Definitions()[0].Slots["x"].Mount
	sc.Close()

	if _, err := mount(context.Background(), plugin.MountContext{SlotID: "x", PluginID: "p"}); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Mount() after Close error = %v, want ErrStateClosed", err)
	}
}
