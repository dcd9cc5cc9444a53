package pool

import (
	"fmt"
	"math"

	"github.com/l1jgo/bulletpool/internal/collision"
	"github.com/l1jgo/bulletpool/internal/component"
	"github.com/l1jgo/bulletpool/internal/core/ecs"
	"github.com/l1jgo/bulletpool/internal/data"
)

// Prototype is the capability the factory needs from a projectile kind: fill
// in the components of a freshly allocated entity. Implementations must
// attach a collision shape; the factory resets its flags afterwards.
type Prototype interface {
	Name() string
	Instantiate(h ecs.Handle, s *component.Stores)
}

// PrototypeTable is the fixed, ordered list of prototypes. A prototype's
// index is its pool id.
type PrototypeTable struct {
	protos []Prototype
	byName map[string]ecs.PoolID
}

// NewPrototypeTable validates and indexes protos in order.
func NewPrototypeTable(protos ...Prototype) (*PrototypeTable, error) {
	if len(protos) > math.MaxUint16+1 {
		return nil, fmt.Errorf("prototype table: %d prototypes exceeds pool id range", len(protos))
	}
	t := &PrototypeTable{
		protos: make([]Prototype, 0, len(protos)),
		byName: make(map[string]ecs.PoolID, len(protos)),
	}
	for i, p := range protos {
		if p == nil {
			return nil, fmt.Errorf("prototype table: prototype #%d is nil", i)
		}
		name := p.Name()
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("prototype table: duplicate prototype %q", name)
		}
		t.byName[name] = ecs.PoolID(i)
		t.protos = append(t.protos, p)
	}
	return t, nil
}

// FromTemplates builds a table whose pool ids follow the template file order.
func FromTemplates(tbl *data.ProjectileTable) (*PrototypeTable, error) {
	protos := make([]Prototype, 0, tbl.Count())
	for _, tmpl := range tbl.All() {
		protos = append(protos, &TemplatePrototype{Template: tmpl})
	}
	return NewPrototypeTable(protos...)
}

func (t *PrototypeTable) Len() int { return len(t.protos) }

func (t *PrototypeTable) Get(id ecs.PoolID) (Prototype, bool) {
	if int(id) >= len(t.protos) {
		return nil, false
	}
	return t.protos[id], true
}

// Lookup resolves a prototype name to its pool id.
func (t *PrototypeTable) Lookup(name string) (ecs.PoolID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// TemplatePrototype instantiates projectiles described by a YAML template.
type TemplatePrototype struct {
	Template *data.ProjectileTemplate
}

func (p *TemplatePrototype) Name() string { return p.Template.Name }

func (p *TemplatePrototype) Instantiate(h ecs.Handle, s *component.Stores) {
	spec := p.Template.Shape
	var shape *collision.Shape
	if spec.Kind == "box" {
		shape = collision.NewBox(h, spec.Width, spec.Height)
	} else {
		shape = collision.NewCircle(h, spec.Radius)
	}
	s.Shapes.Set(h, shape)
	s.Transforms.Set(h, &component.Transform{})
	if p.Template.Lifetime > 0 {
		s.Lifetimes.Set(h, &component.Lifetime{Initial: p.Template.Lifetime})
	}
}
