package ecs

// Registry holds every component store under a name so an entity's data can
// be dropped in one call and inspected when something goes wrong.
type Registry struct {
	names  []string
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a store. Names are for diagnostics and need not be unique.
func (r *Registry) Register(name string, store Removable) {
	r.names = append(r.names, name)
	r.stores = append(r.stores, store)
}

// Len returns the number of registered stores.
func (r *Registry) Len() int { return len(r.stores) }

// RemoveAll drops h from every store and reports how many held it.
func (r *Registry) RemoveAll(h Handle) int {
	n := 0
	for _, s := range r.stores {
		if s.Has(h) {
			s.Remove(h)
			n++
		}
	}
	return n
}

// Components lists the names of the stores holding h, in registration order.
func (r *Registry) Components(h Handle) []string {
	var held []string
	for i, s := range r.stores {
		if s.Has(h) {
			held = append(held, r.names[i])
		}
	}
	return held
}
