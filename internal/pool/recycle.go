package pool

import (
	"github.com/l1jgo/bulletpool/internal/component"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
)

// Recycle tears h down and returns it to its own pool. h is always pushed
// exactly once; opt only decides what happens to its children.
func (m *Manager) Recycle(h ecs.Handle, opt RecycleOptions) {
	body := m.body(h)
	if body.Pooled {
		m.misuse("recycle of pooled entity", h)
		return
	}
	if body.Discarded {
		m.misuse("recycle of discarded entity", h)
		return
	}
	if body.Parent != 0 {
		m.detach(h, body)
	}
	m.teardown(h, body)
	body.Pooled = true
	m.registry.FreeList(body.Pool).Push(h)
	m.stats[body.Pool].Recycled++

	if opt.Children {
		m.recycleChildren(body, opt.Split)
	}
}

// teardown cancels animation and callbacks, retires the collision shape and
// deactivates. The shape is disabled before it is marked recyclable so a
// pass running this frame already treats it as inert.
func (m *Manager) teardown(h ecs.Handle, body *component.Body) {
	m.anim.Kill(h)
	m.anim.ClearCallbacks(h)
	if shape, ok := m.stores.Shapes.Get(h); ok {
		shape.SetEnable(false)
		shape.SetRecyclable(true)
	}
	body.Active = false
}

// recycleChildren tears down every child of body, detaching it. Children go
// back to their pools only when split; otherwise they are queued for
// destruction. Grandchildren are visited either way with the same flags.
func (m *Manager) recycleChildren(body *component.Body, split bool) {
	children := body.Children
	body.Children = nil
	for _, c := range children {
		if !m.world.Alive(c) {
			continue
		}
		cb := m.stores.Bodies.MustGet(c)
		cb.Parent = 0
		if cb.Pooled || cb.Discarded {
			m.misuse("recycle of retired child", c)
			continue
		}
		m.teardown(c, cb)
		if split {
			cb.Pooled = true
			m.registry.FreeList(cb.Pool).Push(c)
			m.stats[cb.Pool].Recycled++
		} else {
			cb.Discarded = true
			m.world.MarkForDestruction(c)
			m.stats[cb.Pool].Discarded++
		}
		m.recycleChildren(cb, split)
	}
}

// destroy frees h immediately. Children are orphaned and h leaves its
// parent's list, so no body is left pointing at a dead handle.
func (m *Manager) destroy(h ecs.Handle) bool {
	if body, ok := m.stores.Bodies.Get(h); ok {
		for _, c := range body.Children {
			if cb, ok := m.stores.Bodies.Get(c); ok && cb.Parent == h {
				cb.Parent = 0
			}
		}
		body.Children = nil
		if body.Parent != 0 {
			m.detach(h, body)
		}
	}
	return m.world.DestroyEntity(h)
}
