package assemblymap

import "sync"

// Registry shares assembly maps between the variables of a session. A
// variable whose map numbers the same coefficients as one already held
// reuses it.
type Registry struct {
	mu       sync.Mutex
	maps     map[string]*AssemblyMap
	distinct []*AssemblyMap // in registration order
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{maps: make(map[string]*AssemblyMap)}
}

// Add records m for variable and returns the map the variable should use:
// the earliest registered map equal to m, or m itself
func (r *Registry) Add(variable string, m *AssemblyMap) *AssemblyMap {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.distinct {
		if sameNumbering(other, m) {
			r.maps[variable] = other
			return other
		}
	}
	r.distinct = append(r.distinct, m)
	r.maps[variable] = m
	return m
}

// Get returns the map of variable
func (r *Registry) Get(variable string) (*AssemblyMap, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.maps[variable]
	return m, ok
}

func sameNumbering(a, b *AssemblyMap) bool {
	return a.hash == b.hash &&
		a.numGlobalCoeffs == b.numGlobalCoeffs &&
		a.numLocalCoeffs == b.numLocalCoeffs
}
