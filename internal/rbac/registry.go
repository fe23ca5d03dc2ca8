package rbac

import (
	"sort"
	"strings"
	"sync"
)

// Registry records the permission names declared by guarded routes.
// Routes register while they are mounted, so Discover must run after
// the router is built.
type Registry struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register declares a guarded permission. Blank names are ignored.
func (r *Registry) Register(names ...string) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		r.names[name] = struct{}{}
	}
}

// Discover returns the deduplicated, sorted permission names.
func (r *Registry) Discover() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.names))
	for name := range r.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
