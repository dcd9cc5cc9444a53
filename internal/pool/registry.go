package pool

import (
	"fmt"

	"github.com/l1jgo/bulletpool/internal/core/ecs"
)

// FreeList is a LIFO stack of inactive entities of one pool.
type FreeList struct {
	items []ecs.Handle
}

func (l *FreeList) Push(h ecs.Handle) {
	l.items = append(l.items, h)
}

// Pop removes the most recently pushed handle.
func (l *FreeList) Pop() (ecs.Handle, bool) {
	n := len(l.items)
	if n == 0 {
		return 0, false
	}
	h := l.items[n-1]
	l.items[n-1] = 0
	l.items = l.items[:n-1]
	return h, true
}

// Peek returns the handle Pop would return, without removing it.
func (l *FreeList) Peek() (ecs.Handle, bool) {
	if len(l.items) == 0 {
		return 0, false
	}
	return l.items[len(l.items)-1], true
}

func (l *FreeList) Len() int { return len(l.items) }

func (l *FreeList) Contains(h ecs.Handle) bool {
	for _, x := range l.items {
		if x == h {
			return true
		}
	}
	return false
}

// Registry owns one free-list per pool id. Pools are created once, in
// prototype order, and only their contents change afterwards.
type Registry struct {
	lists []*FreeList
}

func NewRegistry(capacity int) *Registry {
	return &Registry{lists: make([]*FreeList, 0, capacity)}
}

// CreatePool allocates the free-list for id, which must be the next id.
func (r *Registry) CreatePool(id ecs.PoolID) error {
	if int(id) != len(r.lists) {
		return fmt.Errorf("create pool %d: next pool id is %d", id, len(r.lists))
	}
	r.lists = append(r.lists, &FreeList{items: make([]ecs.Handle, 0, 32)})
	return nil
}

// FreeList returns the free-list of id for push/pop. Manager use only.
func (r *Registry) FreeList(id ecs.PoolID) *FreeList {
	if int(id) >= len(r.lists) {
		panic(fmt.Sprintf("pool: invalid pool id %d (have %d)", id, len(r.lists)))
	}
	return r.lists[id]
}

// Clear swaps in an empty free-list for id and returns the old contents.
func (r *Registry) Clear(id ecs.PoolID) []ecs.Handle {
	old := r.FreeList(id).items
	r.lists[id] = &FreeList{items: make([]ecs.Handle, 0, 32)}
	return old
}

func (r *Registry) Len() int { return len(r.lists) }

func (r *Registry) Size(id ecs.PoolID) int { return r.FreeList(id).Len() }
