package observatory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/star/pulsedelay/internal/toa"
)

// Registry maps observatory names and aliases to observatories. Lookups are
// case-insensitive. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byKey  map[string]Observatory
	byName map[string]Observatory
}

// NewRegistry returns a registry holding the barycentre and geocentre.
func NewRegistry() *Registry {
	r := &Registry{
		byKey:  make(map[string]Observatory),
		byName: make(map[string]Observatory),
	}
	// Barycentric aliases are folded by toa.CanonicalObservatory before
	// lookup, so only the canonical name is stored.
	_ = r.Register(Barycenter())
	_ = r.Register(Geocenter(), "geo", "coe")
	return r
}

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Register adds obs under its name and any aliases. Nothing is added if
// any of the keys is already taken.
func (r *Registry) Register(obs Observatory, aliases ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := append([]string{obs.Name()}, aliases...)
	for _, k := range keys {
		k = key(k)
		if k == "" {
			return fmt.Errorf("observatory %s: empty alias", obs.Name())
		}
		if prev, ok := r.byKey[k]; ok {
			return fmt.Errorf("%w: %q already names %s", ErrDuplicate, k, prev.Name())
		}
	}
	for _, k := range keys {
		r.byKey[key(k)] = obs
	}
	r.byName[obs.Name()] = obs
	return nil
}

// Lookup resolves a name or alias.
func (r *Registry) Lookup(name string) (Observatory, error) {
	canon := toa.CanonicalObservatory(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	obs, ok := r.byKey[key(canon)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, name)
	}
	return obs, nil
}

// Names returns the canonical names of all registered observatories, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
