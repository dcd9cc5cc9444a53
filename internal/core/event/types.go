package event

import "github.com/l1jgo/bulletpool/internal/core/ecs"

// ProjectileHit is emitted when a projectile's shape overlapped a target
// during the collision pass. The projectile is already recycled.
type ProjectileHit struct {
	Projectile ecs.Handle
	Pool       ecs.PoolID
	Target     ecs.Handle
}

// ProjectileExpired is emitted when a projectile's lifetime ran out.
type ProjectileExpired struct {
	Projectile ecs.Handle
	Pool       ecs.PoolID
}

// ProjectileSpawned is emitted when a script spawned a projectile.
type ProjectileSpawned struct {
	Projectile ecs.Handle
	Pool       ecs.PoolID
	Children   int
}
