package lua

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"zeta.lua", "alpha/init.lua", "dup.lua", "dup/init.lua", ".hidden.lua", "notes.txt", "nomain/x.lua"} {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	want := []struct {
		name string
		path string
		err  error
	}{
		{"alpha", filepath.Join(dir, "alpha", "init.lua"), nil},
		{"dup", filepath.Join(dir, "dup.lua"), nil},
		{"nomain", filepath.Join(dir, "nomain"), ErrNoEntryPoint},
		{"zeta", filepath.Join(dir, "zeta.lua"), nil},
	}
	if len(entries) != len(want) {
		t.Fatalf("Discover() = %+v, want %d entries", entries, len(want))
	}
	for i, w := range want {
		e := entries[i]
		if e.Name != w.name || e.Path != w.path || !errors.Is(e.Err, w.err) {
			t.Errorf("entry %d = %+v, want %s at %s (err %v)", i, e, w.name, w.path, w.err)
		}
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	entries, err := Discover(filepath.Join(t.TempDir(), "absent"))
	if err != nil || len(entries) != 0 {
		t.Errorf("Discover(missing) = %v, %v; want no entries", entries, err)
	}
}
