package data

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ShapeSpec describes the collision bounds of a projectile kind.
type ShapeSpec struct {
	Kind   string  `yaml:"kind"` // "circle" or "box"
	Radius float64 `yaml:"radius"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// ChildSpec lists sub-munitions attached to a projectile at spawn.
type ChildSpec struct {
	Prototype string  `yaml:"prototype"`
	Count     int     `yaml:"count"`
	Spread    float64 `yaml:"spread"` // degrees between siblings when released
}

// ProjectileTemplate holds static data for one projectile kind loaded from YAML.
type ProjectileTemplate struct {
	Name     string        `yaml:"name"`
	Sprite   string        `yaml:"sprite"` // opaque to the pool
	Shape    ShapeSpec     `yaml:"shape"`
	Speed    float64       `yaml:"speed"`
	Lifetime time.Duration `yaml:"lifetime"`
	Preload  int           `yaml:"preload"`
	Children []ChildSpec   `yaml:"children"`
}

type projectileListFile struct {
	Projectiles []ProjectileTemplate `yaml:"projectiles"`
}

// ProjectileTable holds templates in file order. The order is significant:
// it becomes the pool id assignment.
type ProjectileTable struct {
	templates []*ProjectileTemplate
	byName    map[string]int
}

// LoadProjectileTable loads projectile templates from a YAML file.
func LoadProjectileTable(path string) (*ProjectileTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read projectile_list: %w", err)
	}
	t, err := ParseProjectileTable(raw)
	if err != nil {
		return nil, fmt.Errorf("parse projectile_list %s: %w", path, err)
	}
	return t, nil
}

// ParseProjectileTable decodes and validates a projectile list document.
func ParseProjectileTable(raw []byte) (*ProjectileTable, error) {
	var f projectileListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	t := &ProjectileTable{
		templates: make([]*ProjectileTemplate, 0, len(f.Projectiles)),
		byName:    make(map[string]int, len(f.Projectiles)),
	}
	for i := range f.Projectiles {
		p := &f.Projectiles[i]
		if p.Name == "" {
			return nil, fmt.Errorf("projectile #%d: missing name", i)
		}
		if _, dup := t.byName[p.Name]; dup {
			return nil, fmt.Errorf("projectile %q: duplicate name", p.Name)
		}
		switch p.Shape.Kind {
		case "", "circle":
			p.Shape.Kind = "circle"
			if p.Shape.Radius <= 0 {
				return nil, fmt.Errorf("projectile %q: circle radius must be positive", p.Name)
			}
		case "box":
			if p.Shape.Width <= 0 || p.Shape.Height <= 0 {
				return nil, fmt.Errorf("projectile %q: box size must be positive", p.Name)
			}
		default:
			return nil, fmt.Errorf("projectile %q: unknown shape kind %q", p.Name, p.Shape.Kind)
		}
		t.byName[p.Name] = len(t.templates)
		t.templates = append(t.templates, p)
	}
	for _, p := range t.templates {
		for _, c := range p.Children {
			if _, ok := t.byName[c.Prototype]; !ok {
				return nil, fmt.Errorf("projectile %q: unknown child prototype %q", p.Name, c.Prototype)
			}
			if c.Prototype == p.Name {
				return nil, fmt.Errorf("projectile %q: cannot contain itself", p.Name)
			}
		}
	}
	return t, nil
}

// All returns templates in file order.
func (t *ProjectileTable) All() []*ProjectileTemplate {
	return t.templates
}

// Get returns a template by name, or nil if not found.
func (t *ProjectileTable) Get(name string) *ProjectileTemplate {
	i, ok := t.byName[name]
	if !ok {
		return nil
	}
	return t.templates[i]
}

// Count returns the number of loaded templates.
func (t *ProjectileTable) Count() int {
	return len(t.templates)
}
