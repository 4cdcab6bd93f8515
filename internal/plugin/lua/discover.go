package lua

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Entry is a discovered plugin script.
type Entry struct {
	// Name is the file name without .lua, or the directory name.
	Name string

	// Path is the script to load.
	Path string

	// Err is set for directories without an init.lua.
	Err error
}

// Discover finds plugin scripts in dir: every name.lua file and every
// subdirectory's init.lua. Entries are sorted by name and a file wins over
// a directory of the same name. A missing dir yields no entries.
func Discover(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	found := make(map[string]Entry)
	for _, de := range dirEntries {
		if strings.HasPrefix(de.Name(), ".") {
			continue
		}
		if !de.IsDir() {
			if filepath.Ext(de.Name()) == ".lua" {
				name := strings.TrimSuffix(de.Name(), ".lua")
				found[name] = Entry{Name: name, Path: filepath.Join(dir, de.Name())}
			}
			continue
		}

		if _, exists := found[de.Name()]; exists {
			continue
		}
		initPath := filepath.Join(dir, de.Name(), "init.lua")
		e := Entry{Name: de.Name(), Path: initPath}
		if _, err := os.Stat(initPath); err != nil {
			e.Path = filepath.Join(dir, de.Name())
			e.Err = ErrNoEntryPoint
		}
		found[de.Name()] = e
	}

	entries := make([]Entry, 0, len(found))
	for _, e := range found {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
