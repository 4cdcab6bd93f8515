// Package envstatus reports which environment keys a plugin relies on are
// available.
//
// A Provider answers for a batch of keys. Cache wraps a provider so each
// key is probed at most once: it only asks for keys it has not seen, and
// collapses concurrent requests for the same set of keys.
package envstatus

import (
	"context"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Provider reports the availability of environment keys.
type Provider interface {
	// Status returns the availability of each key. Keys absent from the
	// result are treated as unavailable.
	Status(ctx context.Context, keys []string) (map[string]bool, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, keys []string) (map[string]bool, error)

// Status calls f.
func (f ProviderFunc) Status(ctx context.Context, keys []string) (map[string]bool, error) {
	return f(ctx, keys)
}

// OSProvider reports keys from the process environment.
type OSProvider struct {
	// Lookup defaults to os.LookupEnv.
	Lookup func(key string) (string, bool)
}

// Status reports each key as available when its variable is set to a
// truthy value.
func (p OSProvider) Status(ctx context.Context, keys []string) (map[string]bool, error) {
	lookup := p.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		v, ok := lookup(k)
		out[k] = ok && Truthy(v)
	}
	return out, nil
}

// Truthy reports whether an environment value counts as set. Values that
// strconv.ParseBool understands are used as is; otherwise anything but
// empty, "no" and "off" is truthy.
func Truthy(v string) bool {
	v = strings.TrimSpace(v)
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	switch strings.ToLower(v) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

// Cache memoizes a Provider. It is safe for concurrent use.
type Cache struct {
	provider Provider

	mu    sync.RWMutex
	known map[string]bool

	group  singleflight.Group
	probes atomic.Int64
}

// NewCache wraps p.
func NewCache(p Provider) *Cache {
	return &Cache{
		provider: p,
		known:    make(map[string]bool),
	}
}

// Status returns the availability of keys, probing the provider only for
// keys not yet cached. When the provider fails its answers are not cached;
// the returned map still holds every requested key, with unknown ones false.
func (c *Cache) Status(ctx context.Context, keys []string) (map[string]bool, error) {
	result := make(map[string]bool, len(keys))
	var missing []string

	c.mu.RLock()
	for _, k := range keys {
		if _, dup := result[k]; dup {
			continue
		}
		v, ok := c.known[k]
		result[k] = v
		if !ok {
			missing = append(missing, k)
		}
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return result, nil
	}
	sort.Strings(missing)
	missing = dedupSorted(missing)

	v, err, _ := c.group.Do(strings.Join(missing, "\x00"), func() (any, error) {
		c.probes.Add(1)
		res, err := c.provider.Status(ctx, missing)
		if err != nil {
			return res, err
		}
		c.mu.Lock()
		for _, k := range missing {
			c.known[k] = res[k]
		}
		c.mu.Unlock()
		return res, nil
	})

	res, _ := v.(map[string]bool)
	for _, k := range missing {
		result[k] = res[k]
	}
	return result, err
}

// Lookup returns the cached availability of key.
func (c *Cache) Lookup(key string) (available, cached bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	available, cached = c.known[key]
	return available, cached
}

// Reset forgets every cached answer.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known = make(map[string]bool)
}

// Probes returns how many times the provider was called.
func (c *Cache) Probes() int64 {
	return c.probes.Load()
}

func dedupSorted(keys []string) []string {
	out := keys[:0]
	for i, k := range keys {
		if i == 0 || k != keys[i-1] {
			out = append(out, k)
		}
	}
	return out
}
