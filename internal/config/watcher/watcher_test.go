package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dshills/dashcore/internal/config"
	"github.com/dshills/dashcore/internal/event"
	"github.com/dshills/dashcore/internal/event/events"
)

func loadFileOnly(path string) (*config.Config, error) {
	return config.LoadWith(path, nil)
}

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func startWatcher(t *testing.T, path string, bus *event.Bus) *Watcher {
	t.Helper()
	w, err := New(path, bus,
		WithDebounce(20*time.Millisecond),
		WithLogger(zerolog.Nop()),
		WithLoadFunc(loadFileOnly),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OpWrite, "write"},
		{OpCreate, "create"},
		{OpRemove, "remove"},
		{OpRename, "rename"},
		{Operation(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestNew_RequiresPath(t *testing.T) {
	if _, err := New("", nil); err == nil {
		t.Error("New(\"\") succeeded")
	}
}

func TestWatcher_PublishesConfigChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashcore.toml")
	writeConfig(t, path, "[plugins]\ndisabled = []\n")

	bus := event.NewBus(event.WithLogger(zerolog.Nop()))
	changed := make(chan events.ConfigChanged, 16)
	bus.OnAsync(events.TopicConfigChanged, func(ctx context.Context, evt event.Event) error {
		changed <- evt.Detail.(events.ConfigChanged)
		return nil
	})

	w := startWatcher(t, path, bus)
	writeConfig(t, path, "[plugins]\ndisabled = [\"weather\"]\n")

	// A save may surface as several bursts; wait for the final content.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changed:
			if c.Path != w.Path() {
				t.Errorf("Path = %q, want %q", c.Path, w.Path())
			}
			_, disabled, _ := c.Config.PluginLists()
			if len(disabled) != 1 || disabled[0] != "weather" {
				continue
			}
			if w.Current() != c.Config {
				t.Error("Current() is not the published config")
			}
		case <-deadline:
			t.Fatal("no config:changed event with the new content")
		}
		break
	}

	if w.Stats().Reloads < 1 {
		t.Errorf("Reloads = %d", w.Stats().Reloads)
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashcore.toml")
	writeConfig(t, path, "")

	bus := event.NewBus(event.WithLogger(zerolog.Nop()))
	changed := make(chan struct{}, 1)
	bus.OnAsync(events.TopicConfigChanged, func(ctx context.Context, evt event.Event) error {
		changed <- struct{}{}
		return nil
	})

	startWatcher(t, path, bus)
	writeConfig(t, filepath.Join(dir, "notes.txt"), "hello")

	select {
	case <-changed:
		t.Fatal("reload triggered by an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_KeepsPreviousOnParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashcore.toml")
	writeConfig(t, path, "")

	initial := config.New(map[string]any{"title": "before"})
	w, err := New(path, nil,
		WithDebounce(10*time.Millisecond),
		WithLogger(zerolog.Nop()),
		WithLoadFunc(loadFileOnly),
		WithInitial(initial),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	writeConfig(t, path, "[broken")

	deadline := time.Now().Add(5 * time.Second)
	for w.Stats().Failures == 0 {
		if time.Now().After(deadline) {
			t.Fatal("parse failure not recorded")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if w.Current() != initial {
		t.Error("Current() replaced after a failed reload")
	}
	if w.Stats().LastError == nil {
		t.Error("LastError not recorded")
	}
}

func TestWatcher_CloseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashcore.toml")
	w, err := New(path, nil, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := w.Start(context.Background()); err != ErrWatcherClosed {
		t.Errorf("Start() after Close error = %v, want ErrWatcherClosed", err)
	}
}
