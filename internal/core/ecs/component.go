package ecs

// Removable is implemented by all component stores so the Registry can
// bulk-remove an entity's data from every store on destroy.
type Removable interface {
	Has(h Handle) bool
	Remove(h Handle)
}

// PtrComponentStore is a generic typed map store for ECS components keyed by
// arena handle.
type PtrComponentStore[T any] struct {
	data map[Handle]*T
}

func NewPtrComponentStore[T any]() *PtrComponentStore[T] {
	return &PtrComponentStore[T]{
		data: make(map[Handle]*T, 256),
	}
}

func (s *PtrComponentStore[T]) Set(h Handle, c *T) {
	s.data[h] = c
}

func (s *PtrComponentStore[T]) Get(h Handle) (*T, bool) {
	c, ok := s.data[h]
	return c, ok
}

// MustGet panics when h has no component in this store.
func (s *PtrComponentStore[T]) MustGet(h Handle) *T {
	c, ok := s.data[h]
	if !ok {
		panic("ecs: missing component for " + h.String())
	}
	return c
}

func (s *PtrComponentStore[T]) Remove(h Handle) {
	delete(s.data, h)
}

func (s *PtrComponentStore[T]) Has(h Handle) bool {
	_, ok := s.data[h]
	return ok
}

func (s *PtrComponentStore[T]) Len() int {
	return len(s.data)
}

// Each visits every component. Iteration order is unspecified.
func (s *PtrComponentStore[T]) Each(fn func(Handle, *T)) {
	for h, c := range s.data {
		fn(h, c)
	}
}
