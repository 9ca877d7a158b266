package main

import (
	"zombie-server/collision"
)

// pickUpReach is how far past its body a structure can be grabbed from
const pickUpReach = 20

// Turret is a marine-owned gun that shoots the nearest zombie in range
type Turret struct {
	collision.Entity
	Owner     int32
	Angle     float64
	Range     float64
	Gun       *Weapon
	Health    int
	MaxHealth int
	Placed    bool
	Activated bool
}

// NewTurret creates an unplaced turret. Its pickup box reaches past its body
// so a marine standing against it can lift it.
func NewTurret(id, owner int32, x, y float64, cfg TurretConfig, gun *Weapon) *Turret {
	t := &Turret{
		Entity:    collision.NewEntity(id, collision.CategoryTurret, x, y, cfg.Width, cfg.Height, false),
		Owner:     owner,
		Range:     cfg.Range,
		Gun:       gun,
		Health:    cfg.Health,
		MaxHealth: cfg.Health,
	}
	t.SetHitBox(collision.KindPickUp, collision.Rect{
		X: -pickUpReach, Y: -pickUpReach,
		W: cfg.Width + 2*pickUpReach, H: cfg.Height + 2*pickUpReach,
	})
	return t
}

// Heading returns where the barrel points
func (t *Turret) Heading() float64 { return t.Angle }

// Place puts the turret down at (x, y) and switches it on
func (t *Turret) Place(x, y float64) {
	t.SetPosition(x, y)
	t.Placed = true
	t.Activated = true
}

// PickUp lifts the turret off the ground
func (t *Turret) PickUp() {
	t.Placed = false
	t.Activated = false
}

// TakeDamage wears the turret down and removes it once destroyed
func (t *Turret) TakeDamage(w *World, dmg int) {
	t.Health -= dmg
	if t.Health <= 0 {
		w.RemoveTurret(t.ID)
	}
}

// ScanArea aims at the closest zombie within range and fires at it
func (t *Turret) ScanArea(w *World) ShotResult {
	cx, cy := t.Center()
	r := t.Range
	area := collision.Rect{X: cx - r, Y: cy - r, W: 2 * r, H: 2 * r}

	best := r
	found := false
	var tx, ty float64
	for _, e := range w.collider.QuadTreeEntitiesRect(collision.CategoryZombie, area) {
		// the tree is from frame start; skip zombies killed since
		if !w.ZombieExists(e.ID) {
			continue
		}
		ex, ey := e.HitBox(collision.KindProjectile).Rect.Center()
		if d := Distance(cx, cy, ex, ey); d <= best {
			best, tx, ty, found = d, ex, ey, true
		}
	}
	if !found {
		return ShotResult{}
	}
	t.Angle = HeadingTo(cx, cy, tx, ty)
	return t.Gun.Fire(w, t)
}

// ToState converts to protocol state
func (t *Turret) ToState() TurretState {
	return TurretState{
		ID:     t.ID,
		Owner:  t.Owner,
		X:      round1(t.X),
		Y:      round1(t.Y),
		A:      round1(t.Angle),
		Placed: t.Placed,
		HP:     t.Health,
		Ammo:   t.Gun.Clip + t.Gun.Ammo,
	}
}
