package pool

import (
	"fmt"

	"github.com/l1jgo/bulletpool/internal/component"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
)

// Factory clones prototypes into new entities. Every instance starts
// inactive, unowned, with its collision shape disabled and unregistered.
type Factory struct {
	world  *ecs.World
	stores *component.Stores
	table  *PrototypeTable
}

func NewFactory(world *ecs.World, stores *component.Stores, table *PrototypeTable) *Factory {
	return &Factory{world: world, stores: stores, table: table}
}

// Instantiate creates one entity in pool id. An unknown id or a prototype
// that yields no collision shape is a programmer error and panics.
func (f *Factory) Instantiate(id ecs.PoolID) ecs.Handle {
	proto, ok := f.table.Get(id)
	if !ok {
		panic(fmt.Sprintf("pool: invalid pool id %d (have %d)", id, f.table.Len()))
	}
	h := f.world.CreateEntity(id)
	proto.Instantiate(h, f.stores)

	shape, ok := f.stores.Shapes.Get(h)
	if !ok {
		panic(fmt.Sprintf("pool: prototype %q produced no collision shape", proto.Name()))
	}
	shape.SetEnable(false)
	shape.SetRecyclable(false)
	if !f.stores.Transforms.Has(h) {
		f.stores.Transforms.Set(h, &component.Transform{})
	}
	f.stores.Bodies.Set(h, &component.Body{Pool: id})
	return h
}
