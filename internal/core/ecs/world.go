package ecs

// World is the top-level ECS container. It owns the arena, the component
// registry, and a deferred destruction queue flushed by CleanupSystem each tick.
type World struct {
	arena        *Arena
	registry     *Registry
	destroyQueue []Handle
}

func NewWorld(poolCount int) *World {
	return &World{
		arena:        NewArena(poolCount),
		registry:     NewRegistry(),
		destroyQueue: make([]Handle, 0, 64),
	}
}

func (w *World) Arena() *Arena       { return w.arena }
func (w *World) Registry() *Registry { return w.registry }

func (w *World) CreateEntity(pool PoolID) Handle {
	return w.arena.Create(pool)
}

func (w *World) Alive(h Handle) bool {
	return w.arena.Alive(h)
}

// DestroyEntity removes h's components and frees its slot immediately.
func (w *World) DestroyEntity(h Handle) bool {
	if !w.arena.Alive(h) {
		return false
	}
	w.registry.RemoveAll(h)
	return w.arena.Destroy(h)
}

// MarkForDestruction queues an entity for end-of-tick cleanup.
func (w *World) MarkForDestruction(h Handle) {
	w.destroyQueue = append(w.destroyQueue, h)
}

// Pending returns the number of queued destructions.
func (w *World) Pending() int { return len(w.destroyQueue) }

// FlushDestroyQueue destroys all queued entities and clears their components.
// Returns how many were destroyed; stale or duplicate entries are skipped.
func (w *World) FlushDestroyQueue() int {
	n := 0
	for _, h := range w.destroyQueue {
		if w.DestroyEntity(h) {
			n++
		}
	}
	w.destroyQueue = w.destroyQueue[:0]
	return n
}
