package pool

import (
	"errors"
	"fmt"

	"github.com/l1jgo/bulletpool/internal/collision"
	"github.com/l1jgo/bulletpool/internal/component"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
	"go.uber.org/zap"
)

// Monitor is the part of the collision subsystem the pool talks to.
// Removal is never requested: recycled shapes are flagged recyclable and the
// monitor drops them at its own safe point.
type Monitor interface {
	AddBulletCollider(s *collision.Shape)
}

// Animator cancels pending transform animations and scheduled callbacks.
type Animator interface {
	Kill(h ecs.Handle) int
	ClearCallbacks(h ecs.Handle) int
}

var (
	ErrNotAlive     = errors.New("entity is not alive")
	ErrPooled       = errors.New("entity is in a free-list")
	ErrAlreadyOwned = errors.New("entity already has a parent")
	ErrNotOwned     = errors.New("entity has no parent")
	ErrCycle        = errors.New("attachment would create a cycle")
	ErrDiscarded    = errors.New("entity is queued for destruction")
)

// Options tunes a Manager.
type Options struct {
	// DebugGuards turns misuse (recycling a pooled entity, activating a
	// pooled entity) into panics instead of logged no-ops.
	DebugGuards bool
	Log         *zap.Logger
}

// FetchOptions controls what Fetch does with the entity. The zero value
// leaves it inactive; when Activate is set the shape is registered with the
// monitor and enabled unless SkipMonitor / KeepShapeDisabled say otherwise.
type FetchOptions struct {
	Activate          bool
	SkipMonitor       bool
	KeepShapeDisabled bool
}

// ActivateOptions controls deferred activation of an inactive fetched entity.
type ActivateOptions struct {
	SkipMonitor       bool
	KeepShapeDisabled bool
}

// RecycleOptions selects what happens to owned children. Children are only
// visited when Children is set; Split pushes them into their own pools,
// otherwise they are torn down and destroyed at end of tick.
type RecycleOptions struct {
	Children bool
	Split    bool
}

// Manager hands out and takes back pooled projectiles. It owns the registry
// and is the only writer of free-lists. Single-goroutine access only.
type Manager struct {
	world    *ecs.World
	stores   *component.Stores
	table    *PrototypeTable
	registry *Registry
	factory  *Factory
	monitor  Monitor
	anim     Animator
	stats    []Stats
	debug    bool
	log      *zap.Logger
}

// NewManager creates one pool per prototype, in table order.
func NewManager(world *ecs.World, stores *component.Stores, table *PrototypeTable, monitor Monitor, anim Animator, opts Options) (*Manager, error) {
	if world.Arena().PoolCount() != table.Len() {
		return nil, fmt.Errorf("new manager: world has %d pools, table has %d prototypes",
			world.Arena().PoolCount(), table.Len())
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		world:    world,
		stores:   stores,
		table:    table,
		registry: NewRegistry(table.Len()),
		factory:  NewFactory(world, stores, table),
		monitor:  monitor,
		anim:     anim,
		stats:    make([]Stats, table.Len()),
		debug:    opts.DebugGuards,
		log:      log,
	}
	for i := 0; i < table.Len(); i++ {
		id := ecs.PoolID(i)
		if err := m.registry.CreatePool(id); err != nil {
			return nil, fmt.Errorf("new manager: %w", err)
		}
		proto, _ := table.Get(id)
		m.stats[i] = Stats{Pool: id, Name: proto.Name()}
	}
	return m, nil
}

func (m *Manager) mustPool(id ecs.PoolID) {
	if int(id) >= m.table.Len() {
		panic(fmt.Sprintf("pool: invalid pool id %d (have %d)", id, m.table.Len()))
	}
}

// body returns the pooling state of a live entity; stale handles panic.
func (m *Manager) body(h ecs.Handle) *component.Body {
	m.mustPool(h.Pool())
	if !m.world.Alive(h) {
		panic(fmt.Sprintf("pool: stale handle %v", h))
	}
	return m.stores.Bodies.MustGet(h)
}

func (m *Manager) misuse(what string, h ecs.Handle) {
	if m.debug {
		panic(fmt.Sprintf("pool: %s %v", what, h))
	}
	m.log.Error("pool misuse ignored",
		zap.String("op", what),
		zap.Stringer("entity", h),
		zap.Strings("components", m.world.Registry().Components(h)),
	)
}

// Preload instantiates count inactive entities into pool id.
func (m *Manager) Preload(id ecs.PoolID, count int) {
	m.mustPool(id)
	fl := m.registry.FreeList(id)
	for i := 0; i < count; i++ {
		h := m.factory.Instantiate(id)
		m.stores.Bodies.MustGet(h).Pooled = true
		fl.Push(h)
	}
	if count > 0 {
		m.stats[id].Created += uint64(count)
		m.log.Debug("pool preloaded",
			zap.String("pool", m.stats[id].Name),
			zap.Int("count", count),
			zap.Int("free", fl.Len()),
		)
	}
}

// Fetch takes an inactive entity out of pool id, creating one on underflow.
func (m *Manager) Fetch(id ecs.PoolID) ecs.Handle {
	return m.FetchWith(id, FetchOptions{})
}

// FetchWith is Fetch with explicit activation control.
func (m *Manager) FetchWith(id ecs.PoolID, opt FetchOptions) ecs.Handle {
	m.mustPool(id)
	st := &m.stats[id]
	h, ok := m.registry.FreeList(id).Pop()
	if ok {
		st.Reused++
	} else {
		h = m.factory.Instantiate(id)
		st.Created++
	}
	st.Fetched++

	body := m.stores.Bodies.MustGet(h)
	body.Pooled = false
	// Anything that animated a pooled instance behind our back is dropped here.
	m.anim.Kill(h)

	if opt.Activate {
		m.activate(h, body, opt.SkipMonitor, opt.KeepShapeDisabled)
	} else {
		body.Active = false
	}
	return h
}

// Activate exposes an entity fetched inactive to the simulation.
func (m *Manager) Activate(h ecs.Handle, opt ActivateOptions) {
	body := m.body(h)
	if body.Pooled {
		m.misuse("activate of pooled entity", h)
		return
	}
	if body.Discarded {
		m.misuse("activate of discarded entity", h)
		return
	}
	m.activate(h, body, opt.SkipMonitor, opt.KeepShapeDisabled)
}

func (m *Manager) activate(h ecs.Handle, body *component.Body, skipMonitor, keepDisabled bool) {
	body.Active = true
	shape := m.stores.Shapes.MustGet(h)
	// Claim the shape before the monitor can see it.
	shape.SetRecyclable(false)
	if skipMonitor {
		return
	}
	m.monitor.AddBulletCollider(shape)
	if !keepDisabled {
		shape.SetEnable(true)
	}
}

// EmptyPool clears pool id. With destroyContents every free-list entry is
// destroyed; they are assumed already torn down by Recycle. Without it the
// entries are only dropped from the list and stay alive until Close.
func (m *Manager) EmptyPool(id ecs.PoolID, destroyContents bool) {
	m.mustPool(id)
	old := m.registry.Clear(id)
	st := &m.stats[id]
	if destroyContents {
		for _, h := range old {
			if m.destroy(h) {
				st.Destroyed++
			}
		}
		m.log.Debug("pool emptied", zap.String("pool", st.Name), zap.Int("destroyed", len(old)))
		return
	}
	for _, h := range old {
		if b, ok := m.stores.Bodies.Get(h); ok {
			b.Pooled = false
		}
	}
	st.Leaked += uint64(len(old))
	if len(old) > 0 {
		m.log.Warn("pool emptied without destroying contents",
			zap.String("pool", st.Name),
			zap.Int("dropped", len(old)),
		)
	}
}

// Close destroys every entity the manager ever created, pooled or not.
func (m *Manager) Close() {
	for i := 0; i < m.registry.Len(); i++ {
		m.EmptyPool(ecs.PoolID(i), true)
	}
	for _, h := range ecs.Collect(m.stores.Bodies, nil) {
		body := m.stores.Bodies.MustGet(h)
		m.teardown(h, body)
		if m.destroy(h) {
			m.stats[h.Pool()].Destroyed++
		}
	}
}

// PoolID reports the pool a live entity belongs to.
func (m *Manager) PoolID(h ecs.Handle) ecs.PoolID {
	return m.body(h).Pool
}

// PoolCount returns the number of pools (= prototypes).
func (m *Manager) PoolCount() int { return m.registry.Len() }

// FreeCount returns the size of pool id's free-list.
func (m *Manager) FreeCount(id ecs.PoolID) int {
	m.mustPool(id)
	return m.registry.Size(id)
}

// Lookup resolves a prototype name to its pool id.
func (m *Manager) Lookup(name string) (ecs.PoolID, bool) {
	return m.table.Lookup(name)
}

// Prototype returns the prototype behind pool id.
func (m *Manager) Prototype(id ecs.PoolID) Prototype {
	m.mustPool(id)
	p, _ := m.table.Get(id)
	return p
}

// InUse reports whether h is alive and held by a caller. Entities queued
// for destruction are not.
func (m *Manager) InUse(h ecs.Handle) bool {
	if !m.world.Alive(h) {
		return false
	}
	b, ok := m.stores.Bodies.Get(h)
	return ok && !b.Pooled && !b.Discarded
}

// Active reports whether h is alive and active.
func (m *Manager) Active(h ecs.Handle) bool {
	if !m.world.Alive(h) {
		return false
	}
	b, ok := m.stores.Bodies.Get(h)
	return ok && b.Active
}

// Attach makes child owned by parent. Both must be in use; the child must be
// unowned and not an ancestor of parent.
func (m *Manager) Attach(parent, child ecs.Handle) error {
	if !m.world.Alive(parent) || !m.world.Alive(child) {
		return fmt.Errorf("attach %v to %v: %w", child, parent, ErrNotAlive)
	}
	pb, cb := m.stores.Bodies.MustGet(parent), m.stores.Bodies.MustGet(child)
	if pb.Pooled || cb.Pooled {
		return fmt.Errorf("attach %v to %v: %w", child, parent, ErrPooled)
	}
	if pb.Discarded || cb.Discarded {
		return fmt.Errorf("attach %v to %v: %w", child, parent, ErrDiscarded)
	}
	if cb.Parent != 0 && m.world.Alive(cb.Parent) {
		return fmt.Errorf("attach %v to %v: %w", child, parent, ErrAlreadyOwned)
	}
	// The ancestor walk stops at the first handle that is no longer alive.
	for p := parent; p != 0; {
		if p == child {
			return fmt.Errorf("attach %v to %v: %w", child, parent, ErrCycle)
		}
		b, ok := m.stores.Bodies.Get(p)
		if !ok {
			break
		}
		p = b.Parent
	}
	cb.Parent = parent
	pb.Children = append(pb.Children, child)
	return nil
}

// Detach releases child from its parent.
func (m *Manager) Detach(child ecs.Handle) error {
	if !m.world.Alive(child) {
		return fmt.Errorf("detach %v: %w", child, ErrNotAlive)
	}
	cb := m.stores.Bodies.MustGet(child)
	if cb.Parent == 0 {
		return fmt.Errorf("detach %v: %w", child, ErrNotOwned)
	}
	m.detach(child, cb)
	return nil
}

func (m *Manager) detach(child ecs.Handle, cb *component.Body) {
	if pb, ok := m.stores.Bodies.Get(cb.Parent); ok {
		for i, c := range pb.Children {
			if c == child {
				pb.Children = append(pb.Children[:i], pb.Children[i+1:]...)
				break
			}
		}
	}
	cb.Parent = 0
}

// Children returns a copy of h's owned children.
func (m *Manager) Children(h ecs.Handle) []ecs.Handle {
	body := m.body(h)
	out := make([]ecs.Handle, len(body.Children))
	copy(out, body.Children)
	return out
}
