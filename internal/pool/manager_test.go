package pool

import (
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/bulletpool/internal/anim"
	"github.com/l1jgo/bulletpool/internal/collision"
	"github.com/l1jgo/bulletpool/internal/component"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
)

type testProto struct{ name string }

func (p testProto) Name() string { return p.name }

func (p testProto) Instantiate(h ecs.Handle, s *component.Stores) {
	s.Shapes.Set(h, collision.NewCircle(h, 1))
}

type fixture struct {
	world   *ecs.World
	stores  *component.Stores
	monitor *collision.Monitor
	anim    *anim.Animator
	m       *Manager
}

const (
	poolBullet ecs.PoolID = iota
	poolShard
	poolSpark
)

func newFixture(t *testing.T, debug bool) *fixture {
	t.Helper()
	table, err := NewPrototypeTable(testProto{"bullet"}, testProto{"shard"}, testProto{"spark"})
	if err != nil {
		t.Fatalf("prototype table: %v", err)
	}
	world := ecs.NewWorld(table.Len())
	stores := component.NewStores(world.Registry())
	monitor := collision.NewMonitor(nil)
	animator := anim.NewAnimator(stores.Transforms, nil)
	m, err := NewManager(world, stores, table, monitor, animator, Options{DebugGuards: debug})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return &fixture{world: world, stores: stores, monitor: monitor, anim: animator, m: m}
}

func (f *fixture) shape(h ecs.Handle) *collision.Shape { return f.stores.Shapes.MustGet(h) }
func (f *fixture) body(h ecs.Handle) *component.Body   { return f.stores.Bodies.MustGet(h) }

func (f *fixture) fetchActive(id ecs.PoolID) ecs.Handle {
	return f.m.FetchWith(id, FetchOptions{Activate: true})
}

func expectPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	fn()
}

func TestPreloadSizing(t *testing.T) {
	f := newFixture(t, true)
	f.m.Preload(poolBullet, 5)
	f.m.Preload(poolBullet, 2)

	if n := f.m.FreeCount(poolBullet); n != 7 {
		t.Fatalf("expected 7 free after two preloads, got %d", n)
	}
	for _, h := range f.m.registry.FreeList(poolBullet).items {
		if f.body(h).Active || !f.body(h).Pooled {
			t.Fatalf("preloaded %v should be inactive and pooled", h)
		}
		if s := f.shape(h); s.Enabled() || s.Registered() {
			t.Fatalf("preloaded %v shape should be disabled and unregistered", h)
		}
	}
	if f.monitor.Len() != 0 {
		t.Fatalf("preload must not register with the monitor")
	}
	if st := f.m.Stats(poolBullet); st.Created != 7 || st.Live != 7 || st.Free != 7 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestFetchFromEmptyPoolCreates(t *testing.T) {
	f := newFixture(t, true)
	h := f.m.Fetch(poolShard)
	if !f.world.Alive(h) || !f.m.InUse(h) {
		t.Fatalf("fetched entity should be alive and in use")
	}
	if f.m.Active(h) {
		t.Fatalf("default fetch leaves the entity inactive")
	}
	if f.m.FreeCount(poolShard) != 0 {
		t.Fatalf("free-list should stay empty, got %d", f.m.FreeCount(poolShard))
	}
	if f.m.PoolID(h) != poolShard {
		t.Fatalf("PoolID = %d, want %d", f.m.PoolID(h), poolShard)
	}
	if st := f.m.Stats(poolShard); st.Created != 1 || st.Fetched != 1 || st.Reused != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestFetchRecycleRoundTrip(t *testing.T) {
	f := newFixture(t, true)
	f.m.Preload(poolBullet, 3)

	h := f.fetchActive(poolBullet)
	if f.m.FreeCount(poolBullet) != 2 {
		t.Fatalf("fetch should pop one entry")
	}
	s := f.shape(h)
	if !f.m.Active(h) || !s.Enabled() || s.Recyclable() || !s.Registered() {
		t.Fatalf("activated fetch: active=%v enabled=%v recyclable=%v registered=%v",
			f.m.Active(h), s.Enabled(), s.Recyclable(), s.Registered())
	}

	f.m.Recycle(h, RecycleOptions{})
	if f.m.FreeCount(poolBullet) != 3 {
		t.Fatalf("recycle should restore free count to 3, got %d", f.m.FreeCount(poolBullet))
	}
	if f.m.Active(h) || s.Enabled() || !s.Recyclable() {
		t.Fatalf("recycled entity should be inactive with a disabled recyclable shape")
	}

	f.monitor.Compact()
	if s.Registered() {
		t.Fatalf("monitor should drop the recyclable shape at its safe point")
	}
	again := f.fetchActive(poolBullet)
	if again != h || !s.Registered() || s.Recyclable() {
		t.Fatalf("refetch should reclaim and re-register the same instance")
	}
}

func TestFetchIsLIFO(t *testing.T) {
	f := newFixture(t, true)
	a := f.fetchActive(poolBullet)
	b := f.fetchActive(poolBullet)
	f.m.Recycle(a, RecycleOptions{})
	f.m.Recycle(b, RecycleOptions{})

	if top, ok := f.m.registry.FreeList(poolBullet).Peek(); !ok || top != b {
		t.Fatalf("Peek = %v, want %v", top, b)
	}
	if got := f.m.Fetch(poolBullet); got != b {
		t.Fatalf("first fetch = %v, want most recent %v", got, b)
	}
	if got := f.m.Fetch(poolBullet); got != a {
		t.Fatalf("second fetch = %v, want %v", got, a)
	}
}

func TestRecyclePushesParentExactlyOnce(t *testing.T) {
	cases := []RecycleOptions{
		{},
		{Children: true},
		{Split: true},
		{Children: true, Split: true},
	}
	for _, opt := range cases {
		opt := opt
		name := map[bool]string{true: "children", false: "no_children"}[opt.Children] +
			map[bool]string{true: "_split", false: ""}[opt.Split]
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, true)
			parent := f.fetchActive(poolBullet)
			child := f.fetchActive(poolShard)
			if err := f.m.Attach(parent, child); err != nil {
				t.Fatalf("attach: %v", err)
			}
			before := f.m.FreeCount(poolBullet)
			f.m.Recycle(parent, opt)
			if got := f.m.FreeCount(poolBullet) - before; got != 1 {
				t.Fatalf("parent pool grew by %d, want 1", got)
			}
			if !f.m.registry.FreeList(poolBullet).Contains(parent) {
				t.Fatalf("parent should be in its free-list")
			}
		})
	}
}

func TestRecycleChildrenWithoutChildrenIsNoop(t *testing.T) {
	type snapshot struct {
		active, pooled, enabled, recyclable bool
		free, pending                       int
	}
	take := func(opt RecycleOptions) snapshot {
		f := newFixture(t, true)
		h := f.fetchActive(poolBullet)
		f.m.Recycle(h, opt)
		b, s := f.body(h), f.shape(h)
		return snapshot{b.Active, b.Pooled, s.Enabled(), s.Recyclable(), f.m.FreeCount(poolBullet), f.world.Pending()}
	}
	plain := take(RecycleOptions{})
	withChildren := take(RecycleOptions{Children: true, Split: true})
	if plain != withChildren {
		t.Fatalf("states differ: %+v vs %+v", plain, withChildren)
	}
}

func TestRecycleSplitChildren(t *testing.T) {
	t.Run("split", func(t *testing.T) {
		f := newFixture(t, true)
		parent := f.fetchActive(poolBullet)
		child := f.fetchActive(poolShard)
		grandchild := f.fetchActive(poolSpark)
		mustAttach(t, f, parent, child)
		mustAttach(t, f, child, grandchild)

		f.m.Recycle(parent, RecycleOptions{Children: true, Split: true})

		if f.m.FreeCount(poolShard) != 1 || f.m.FreeCount(poolSpark) != 1 {
			t.Fatalf("children should be pooled: shard=%d spark=%d",
				f.m.FreeCount(poolShard), f.m.FreeCount(poolSpark))
		}
		for _, h := range []ecs.Handle{child, grandchild} {
			b := f.body(h)
			if b.Active || !b.Pooled || b.Parent != 0 || len(b.Children) != 0 {
				t.Fatalf("%v should be inactive, pooled and detached: %+v", h, b)
			}
		}
		if len(f.body(parent).Children) != 0 {
			t.Fatalf("parent should no longer own children")
		}
		if f.world.Pending() != 0 {
			t.Fatalf("split children must not be destroyed")
		}
	})

	t.Run("no_split", func(t *testing.T) {
		f := newFixture(t, true)
		parent := f.fetchActive(poolBullet)
		child := f.fetchActive(poolShard)
		grandchild := f.fetchActive(poolSpark)
		mustAttach(t, f, parent, child)
		mustAttach(t, f, child, grandchild)
		childShape, grandShape := f.shape(child), f.shape(grandchild)

		f.m.Recycle(parent, RecycleOptions{Children: true})

		if f.m.FreeCount(poolShard) != 0 || f.m.FreeCount(poolSpark) != 0 {
			t.Fatalf("children must not be pooled without split")
		}
		for _, s := range []*collision.Shape{childShape, grandShape} {
			if s.Enabled() || !s.Recyclable() {
				t.Fatalf("torn-down child shape should be disabled and recyclable")
			}
		}
		if f.m.Active(child) || f.m.Active(grandchild) {
			t.Fatalf("children should be deactivated")
		}
		if n := f.world.FlushDestroyQueue(); n != 2 {
			t.Fatalf("expected 2 destroyed children, got %d", n)
		}
		if f.world.Alive(child) || f.world.Alive(grandchild) {
			t.Fatalf("children should be gone after cleanup")
		}
		if st := f.m.Stats(poolShard); st.Discarded != 1 || st.Live != 0 {
			t.Fatalf("unexpected shard stats %+v", st)
		}
	})

	t.Run("children_flag_off", func(t *testing.T) {
		f := newFixture(t, true)
		parent := f.fetchActive(poolBullet)
		child := f.fetchActive(poolShard)
		mustAttach(t, f, parent, child)

		f.m.Recycle(parent, RecycleOptions{Split: true})
		if !f.m.Active(child) || f.shape(child).Recyclable() {
			t.Fatalf("children are left alone unless requested")
		}
	})
}

func mustAttach(t *testing.T, f *fixture, parent, child ecs.Handle) {
	t.Helper()
	if err := f.m.Attach(parent, child); err != nil {
		t.Fatalf("attach %v to %v: %v", child, parent, err)
	}
}

func TestEmptyPool(t *testing.T) {
	for _, size := range []int{0, 1, 16} {
		f := newFixture(t, true)
		f.m.Preload(poolBullet, size)
		held := append([]ecs.Handle(nil), f.m.registry.FreeList(poolBullet).items...)
		f.m.EmptyPool(poolBullet, true)
		if f.m.FreeCount(poolBullet) != 0 {
			t.Fatalf("size %d: pool not empty", size)
		}
		for _, h := range held {
			if f.world.Alive(h) {
				t.Fatalf("size %d: %v should be destroyed", size, h)
			}
		}
		if st := f.m.Stats(poolBullet); st.Live != 0 || st.Destroyed != uint64(size) {
			t.Fatalf("size %d: unexpected stats %+v", size, st)
		}
	}
}

func TestEmptyPoolWithoutDestroy(t *testing.T) {
	f := newFixture(t, true)
	f.m.Preload(poolBullet, 3)
	f.m.EmptyPool(poolBullet, false)
	if f.m.FreeCount(poolBullet) != 0 {
		t.Fatalf("pool not empty")
	}
	st := f.m.Stats(poolBullet)
	if st.Leaked != 3 || st.Live != 3 {
		t.Fatalf("dropped entries should be counted and still alive: %+v", st)
	}
	f.m.Close()
	if st := f.m.Stats(poolBullet); st.Live != 0 {
		t.Fatalf("Close should destroy leaked entries, live=%d", st.Live)
	}
}

func TestRecycleCancelsCallbacks(t *testing.T) {
	f := newFixture(t, true)
	h := f.fetchActive(poolBullet)

	fired := 0
	f.anim.After(h, 100*time.Millisecond, func() { fired++ })
	f.anim.MoveTo(h, mgl64.Vec2{50, 0}, time.Second, anim.Linear).OnComplete(func() { fired++ })
	f.anim.Sequence(h).Wait(10 * time.Millisecond).Call(func() { fired++ }).Play()

	f.m.Recycle(h, RecycleOptions{})
	if seqs, calls := f.anim.Pending(h); seqs != 0 || calls != 0 {
		t.Fatalf("pending after recycle: %d sequences, %d callbacks", seqs, calls)
	}
	f.anim.Advance(2 * time.Second)
	if fired != 0 {
		t.Fatalf("%d callbacks fired after recycle", fired)
	}
	if pos := f.stores.Transforms.MustGet(h).Position; pos != (mgl64.Vec2{}) {
		t.Fatalf("cancelled animation moved the transform to %v", pos)
	}
}

func TestFetchKillsStrayAnimation(t *testing.T) {
	f := newFixture(t, true)
	f.m.Preload(poolBullet, 1)
	h := f.m.registry.FreeList(poolBullet).items[0]
	f.anim.MoveTo(h, mgl64.Vec2{1, 1}, time.Second, nil)

	if got := f.m.Fetch(poolBullet); got != h {
		t.Fatalf("expected preloaded instance")
	}
	if seqs, _ := f.anim.Pending(h); seqs != 0 {
		t.Fatalf("fetch should cancel animation on the instance")
	}
}

func TestActivationOptions(t *testing.T) {
	cases := []struct {
		name           string
		opt            FetchOptions
		wantRegistered bool
		wantEnabled    bool
	}{
		{"full", FetchOptions{Activate: true}, true, true},
		{"skip_monitor", FetchOptions{Activate: true, SkipMonitor: true}, false, false},
		{"keep_disabled", FetchOptions{Activate: true, KeepShapeDisabled: true}, true, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t, true)
			h := f.m.FetchWith(poolBullet, c.opt)
			s := f.shape(h)
			if !f.m.Active(h) || s.Recyclable() {
				t.Fatalf("activated entity must be active and claimed")
			}
			if s.Registered() != c.wantRegistered || s.Enabled() != c.wantEnabled {
				t.Fatalf("registered=%v enabled=%v", s.Registered(), s.Enabled())
			}
		})
	}

	t.Run("deferred", func(t *testing.T) {
		f := newFixture(t, true)
		h := f.m.Fetch(poolBullet)
		if f.m.Active(h) || f.shape(h).Registered() {
			t.Fatalf("inactive fetch must not expose the entity")
		}
		f.m.Activate(h, ActivateOptions{})
		if !f.m.Active(h) || !f.shape(h).Enabled() || !f.shape(h).Registered() {
			t.Fatalf("Activate should expose the entity")
		}
	})
}

func TestInvalidPoolIDPanics(t *testing.T) {
	f := newFixture(t, false)
	bad := ecs.PoolID(9)
	ops := map[string]func(){
		"preload":   func() { f.m.Preload(bad, 1) },
		"fetch":     func() { f.m.Fetch(bad) },
		"empty":     func() { f.m.EmptyPool(bad, true) },
		"freecount": func() { f.m.FreeCount(bad) },
		"recycle":   func() { f.m.Recycle(ecs.NewHandle(bad, 0, 1), RecycleOptions{}) },
		"factory":   func() { f.m.factory.Instantiate(bad) },
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) { expectPanic(t, op) })
	}
}

func TestDoubleRecycle(t *testing.T) {
	t.Run("debug_guard", func(t *testing.T) {
		f := newFixture(t, true)
		h := f.fetchActive(poolBullet)
		f.m.Recycle(h, RecycleOptions{})
		expectPanic(t, func() { f.m.Recycle(h, RecycleOptions{}) })
	})
	t.Run("release", func(t *testing.T) {
		f := newFixture(t, false)
		h := f.fetchActive(poolBullet)
		f.m.Recycle(h, RecycleOptions{})
		f.m.Recycle(h, RecycleOptions{})
		if f.m.FreeCount(poolBullet) != 1 {
			t.Fatalf("second recycle must not push again, free=%d", f.m.FreeCount(poolBullet))
		}
	})
}

func TestAttachRules(t *testing.T) {
	f := newFixture(t, true)
	a := f.fetchActive(poolBullet)
	b := f.fetchActive(poolShard)
	c := f.fetchActive(poolSpark)
	mustAttach(t, f, a, b)
	mustAttach(t, f, b, c)

	if err := f.m.Attach(a, b); !errors.Is(err, ErrAlreadyOwned) {
		t.Fatalf("expected ErrAlreadyOwned, got %v", err)
	}
	if err := f.m.Detach(c); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if err := f.m.Attach(c, a); err != nil {
		t.Fatalf("attach root under leaf: %v", err)
	}
	if err := f.m.Detach(a); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if err := f.m.Attach(c, a); err != nil {
		t.Fatalf("reattach: %v", err)
	}
	// c -> a -> b; attaching c under b closes a loop.
	if err := f.m.Attach(b, c); !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if err := f.m.Detach(c); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned, got %v", err)
	}

	pooled := f.fetchActive(poolBullet)
	f.m.Recycle(pooled, RecycleOptions{})
	if err := f.m.Attach(c, pooled); !errors.Is(err, ErrPooled) {
		t.Fatalf("expected ErrPooled, got %v", err)
	}
}

func TestRecycleOwnedChildDetaches(t *testing.T) {
	f := newFixture(t, true)
	parent := f.fetchActive(poolBullet)
	child := f.fetchActive(poolShard)
	mustAttach(t, f, parent, child)

	f.m.Recycle(child, RecycleOptions{})
	if kids := f.m.Children(parent); len(kids) != 0 {
		t.Fatalf("recycled child still listed under parent: %v", kids)
	}
	if f.body(child).Parent != 0 {
		t.Fatalf("recycled child keeps parent reference")
	}
}

func TestDiscardedChildStaysOutOfFreeList(t *testing.T) {
	setup := func(t *testing.T, debug bool) (*fixture, ecs.Handle) {
		f := newFixture(t, debug)
		parent := f.fetchActive(poolBullet)
		child := f.fetchActive(poolShard)
		mustAttach(t, f, parent, child)
		f.m.Recycle(parent, RecycleOptions{Children: true})
		if f.m.InUse(child) {
			t.Fatalf("discarded child reported in use")
		}
		return f, child
	}

	t.Run("debug", func(t *testing.T) {
		f, child := setup(t, true)
		expectPanic(t, func() { f.m.Recycle(child, RecycleOptions{}) })
		expectPanic(t, func() { f.m.Activate(child, ActivateOptions{}) })
	})

	t.Run("release", func(t *testing.T) {
		f, child := setup(t, false)
		f.m.Recycle(child, RecycleOptions{})
		if n := f.m.FreeCount(poolShard); n != 0 {
			t.Fatalf("discarded child pushed to its free-list, free=%d", n)
		}
		spark := f.fetchActive(poolSpark)
		if err := f.m.Attach(spark, child); !errors.Is(err, ErrDiscarded) {
			t.Fatalf("expected ErrDiscarded, got %v", err)
		}

		f.world.FlushDestroyQueue()
		if f.world.Alive(child) {
			t.Fatalf("discarded child survived the destroy queue")
		}
		h := f.fetchActive(poolShard)
		if h == child || !f.world.Alive(h) || !f.m.InUse(h) {
			t.Fatalf("fetch after discard returned %v", h)
		}
	})
}

func TestEmptyPoolOrphansChildren(t *testing.T) {
	f := newFixture(t, true)
	parent := f.fetchActive(poolBullet)
	child := f.fetchActive(poolShard)
	mustAttach(t, f, parent, child)

	f.m.Recycle(parent, RecycleOptions{})
	f.m.EmptyPool(poolBullet, true)
	if f.world.Alive(parent) {
		t.Fatalf("pooled parent should be destroyed")
	}
	if f.body(child).Parent != 0 {
		t.Fatalf("child still points at destroyed parent %v", f.body(child).Parent)
	}

	spark := f.fetchActive(poolSpark)
	mustAttach(t, f, child, spark)
	other := f.fetchActive(poolBullet)
	mustAttach(t, f, other, child)
	if kids := f.m.Children(other); len(kids) != 1 || kids[0] != child {
		t.Fatalf("children of new owner = %v", kids)
	}
}

func TestDestroyOrphansLiveChildren(t *testing.T) {
	f := newFixture(t, true)
	parent := f.fetchActive(poolBullet)
	child := f.fetchActive(poolShard)
	mustAttach(t, f, parent, child)
	grand := f.fetchActive(poolSpark)
	mustAttach(t, f, child, grand)

	if !f.m.destroy(parent) {
		t.Fatalf("destroy of pooled parent failed")
	}
	if f.body(child).Parent != 0 {
		t.Fatalf("child keeps a dead parent")
	}
	f.m.Close()
	if f.world.Alive(child) || f.world.Alive(grand) {
		t.Fatalf("Close left %v or %v alive", child, grand)
	}
}

func TestCloseDestroysEverything(t *testing.T) {
	f := newFixture(t, true)
	f.m.Preload(poolBullet, 4)
	live := f.fetchActive(poolShard)
	f.anim.After(live, time.Second, func() { t.Fatalf("callback survived Close") })

	f.m.Close()
	for i := 0; i < f.m.PoolCount(); i++ {
		if st := f.m.Stats(ecs.PoolID(i)); st.Live != 0 || st.Free != 0 {
			t.Fatalf("pool %d not torn down: %+v", i, st)
		}
	}
	f.anim.Advance(2 * time.Second)
}

func TestConstructionErrors(t *testing.T) {
	if _, err := NewPrototypeTable(testProto{"a"}, nil); err == nil {
		t.Fatalf("nil prototype should be rejected")
	}
	if _, err := NewPrototypeTable(testProto{"a"}, testProto{"a"}); err == nil {
		t.Fatalf("duplicate prototype should be rejected")
	}
	table, _ := NewPrototypeTable(testProto{"a"})
	world := ecs.NewWorld(2)
	stores := component.NewStores(world.Registry())
	if _, err := NewManager(world, stores, table, collision.NewMonitor(nil), anim.NewAnimator(stores.Transforms, nil), Options{}); err == nil {
		t.Fatalf("pool count mismatch should be rejected")
	}

	r := NewRegistry(2)
	if err := r.CreatePool(1); err == nil {
		t.Fatalf("out-of-order CreatePool should fail")
	}
}
