package instance

import (
	"sort"
	"sync"

	"github.com/heatsafenet/hubsite/internal/model"
)

// Registry maps geographies to loaded instances. The lock guards only the
// map; instances themselves are read without locking.
type Registry struct {
	mu        sync.RWMutex
	instances map[string]*Instance
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{instances: make(map[string]*Instance)}
}

// Register adds or replaces the instance for its geography.
func (r *Registry) Register(in *Instance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.instances[in.Geography] = in
}

// Get returns the instance for a geography.
func (r *Registry) Get(geography string) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.instances[geography]
	if !ok {
		return nil, &model.NotFoundError{Kind: "geography", ID: geography}
	}
	return in, nil
}

// Geographies lists registered geographies in sorted order.
func (r *Registry) Geographies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.instances))
	for g := range r.instances {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Summaries returns a summary per registered geography, sorted.
func (r *Registry) Summaries() []Summary {
	names := r.Geographies()
	out := make([]Summary, 0, len(names))
	for _, n := range names {
		if in, err := r.Get(n); err == nil {
			out = append(out, in.Summarize())
		}
	}
	return out
}
