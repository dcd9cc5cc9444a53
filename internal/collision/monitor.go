package collision

import "go.uber.org/zap"

// Monitor evaluates registered bullet shapes against target shapes once per
// frame. Shapes are never removed while a pass is running: callers flag them
// recyclable and Compact drops them afterwards.
type Monitor struct {
	bullets  []*Shape
	targets  []*Shape
	pending  []*Shape
	sweeping bool
	purged   uint64
	log      *zap.Logger
}

func NewMonitor(log *zap.Logger) *Monitor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Monitor{
		bullets: make([]*Shape, 0, 256),
		targets: make([]*Shape, 0, 16),
		log:     log,
	}
}

// AddBulletCollider registers a projectile shape. Registering an already held
// shape is a no-op. During a pass the shape is queued and joins after Compact.
func (m *Monitor) AddBulletCollider(s *Shape) {
	if s == nil || s.registered {
		return
	}
	s.registered = true
	if m.sweeping {
		m.pending = append(m.pending, s)
		return
	}
	m.bullets = append(m.bullets, s)
}

// AddTarget registers a shape that bullets are tested against.
func (m *Monitor) AddTarget(s *Shape) {
	if s == nil {
		return
	}
	m.targets = append(m.targets, s)
}

// Sweep runs one collision pass and then compacts. fn may flip shape flags
// (e.g. by recycling the owning projectile); a shape that stops being live
// mid-pass is not reported again. Returns the number of hits reported.
func (m *Monitor) Sweep(fn func(bullet, target *Shape)) int {
	m.sweeping = true
	hits := 0
	for _, b := range m.bullets {
		if !b.live() {
			continue
		}
		for _, t := range m.targets {
			if !t.live() {
				continue
			}
			if b.Overlaps(t) {
				hits++
				fn(b, t)
				if !b.live() {
					break
				}
			}
		}
	}
	m.sweeping = false
	m.Compact()
	return hits
}

// Compact is the safe point: it drops recyclable shapes and admits shapes
// registered during the last pass. It does nothing while a pass is running.
func (m *Monitor) Compact() int {
	if m.sweeping {
		return 0
	}
	dropped := 0
	kept := m.bullets[:0]
	for _, s := range m.bullets {
		if s.recyclable {
			s.registered = false
			dropped++
			continue
		}
		kept = append(kept, s)
	}
	for i := len(kept); i < len(m.bullets); i++ {
		m.bullets[i] = nil
	}
	m.bullets = kept

	for _, s := range m.pending {
		if s.recyclable {
			s.registered = false
			dropped++
			continue
		}
		m.bullets = append(m.bullets, s)
	}
	m.pending = m.pending[:0]

	targets := m.targets[:0]
	for _, t := range m.targets {
		if !t.recyclable {
			targets = append(targets, t)
		}
	}
	m.targets = targets

	if dropped > 0 {
		m.purged += uint64(dropped)
		m.log.Debug("collision monitor compacted",
			zap.Int("dropped", dropped),
			zap.Int("registered", len(m.bullets)),
		)
	}
	return dropped
}

// Len returns the number of registered bullet shapes, pending ones included.
func (m *Monitor) Len() int { return len(m.bullets) + len(m.pending) }

// Targets returns the number of registered target shapes.
func (m *Monitor) Targets() int { return len(m.targets) }

// Purged returns the total number of shapes dropped at safe points.
func (m *Monitor) Purged() uint64 { return m.purged }
