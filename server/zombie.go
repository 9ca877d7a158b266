package main

import (
	"math"

	"zombie-server/collision"
)

// Zombie is an AI walker that heads for the nearest marine or turret in
// sight, or the base when nothing is close.
type Zombie struct {
	collision.Entity
	Health int
	Angle  float64 // heading in degrees, 0 = up
	DX, DY float64
	Hand   *Weapon

	cfg        ZombieConfig
	frameCount int
	ignore     int     // re-aims left to skip while steering around something
	flipper    float64 // +1 or -1, which way to rotate when blocked
	attacking  bool    // set during Update, resolved after the barrier
}

// NewZombie creates a zombie at (x, y) armed with its configured hands
func NewZombie(id int32, x, y float64, cfg Config) *Zombie {
	zc := cfg.Zombie
	z := &Zombie{
		Entity:  collision.NewEntity(id, collision.CategoryZombie, x, y, zc.Width, zc.Height, false),
		Health:  zc.Health,
		cfg:     zc,
		flipper: 1,
	}
	if spec, ok := cfg.Weapon(zc.Weapon); ok {
		z.Hand = NewWeapon(id, spec)
	}
	return z
}

// Heading returns the direction the zombie walks and swings
func (z *Zombie) Heading() float64 { return z.Angle }

// handRange is how close a target has to be for a swing
func (z *Zombie) handRange() float64 {
	if z.Hand == nil {
		return 0
	}
	return z.Hand.Spec.Range
}

// Update re-aims every AngleUpdateRate frames and sets this frame's
// displacement. Only the zombie itself is written.
func (z *Zombie) Update(w *World) {
	z.frameCount++
	if z.frameCount%z.cfg.AngleUpdateRate == 0 {
		z.reAim(w)
	}
	z.DX, z.DY = Step(z.Angle, z.cfg.Velocity)
}

func (z *Zombie) reAim(w *World) {
	h := w.collider
	cx, cy := z.Center()
	sight := z.cfg.Sight
	vision := collision.Rect{X: cx - sight, Y: cy - sight, W: 2 * sight, H: 2 * sight}

	best := sight
	var tx, ty float64
	for _, tree := range []collision.Category{collision.CategoryMarine, collision.CategoryTurret} {
		for _, e := range h.QuadTreeEntitiesRect(tree, vision) {
			ex, ey := e.HitBox(collision.KindMovement).Rect.Center()
			if d := Distance(cx, cy, ex, ey); d < best {
				best, tx, ty = d, ex, ey
			}
		}
	}

	if z.ignore > 0 {
		z.ignore--
		return
	}

	z.attacking = false
	if best < sight {
		z.Angle = HeadingTo(cx, cy, tx, ty)
		z.attacking = best <= z.handRange()
		return
	}

	bx, by := w.base.Center()
	z.Angle = HeadingTo(cx, cy, bx, by)
	z.attacking = rectDistance(w.base.Bounds(), cx, cy) <= z.handRange()
}

// rectDistance is the distance from a point to the nearest edge of r, zero
// inside it.
func rectDistance(r collision.Rect, x, y float64) float64 {
	dx := math.Max(math.Max(r.X-x, 0), x-r.Right())
	dy := math.Max(math.Max(r.Y-y, 0), y-r.Bottom())
	return math.Hypot(dx, dy)
}

// MoveStep applies DX then DY, undoing each axis that collides. A blocked
// axis starts steering around the obstacle, and if the zombie is still stuck
// one frame into steering it swaps the rotation direction (once per frame).
func (z *Zombie) MoveStep(w *World) {
	flipped := false
	steer := func() {
		switch {
		case z.ignore == z.cfg.IgnoreTime-1 && !flipped:
			z.flipper = -z.flipper
			flipped = true
		case z.ignore == 0:
			z.ignore = z.cfg.IgnoreTime
		}
		z.Angle = NormalizeDegrees(z.Angle + z.flipper*z.cfg.PartialRotation)
	}

	z.Move(z.DX, 0)
	if blocked(w.collider, &z.Entity) {
		z.Move(-z.DX, 0)
		steer()
	}
	z.Move(0, z.DY)
	if blocked(w.collider, &z.Entity) {
		z.Move(0, -z.DY)
		steer()
	}
	clampToWorld(&z.Entity, w.Bounds())
}

// Attack swings the zombie's hands at whatever is in front of it
func (z *Zombie) Attack(w *World) ShotResult {
	z.attacking = false
	if z.Hand == nil {
		return ShotResult{}
	}
	return z.Hand.Fire(w, z)
}

// CollidingProjectile applies a hit and removes the zombie when it dies.
// It reports whether the hit was lethal.
func (z *Zombie) CollidingProjectile(w *World, damage int) bool {
	z.Health -= damage
	if z.Health > 0 {
		return false
	}
	w.DeleteZombie(z.ID)
	return true
}

// ToState converts to protocol state
func (z *Zombie) ToState() ZombieState {
	return ZombieState{
		ID: z.ID,
		X:  round1(z.X),
		Y:  round1(z.Y),
		A:  round1(z.Angle),
		HP: z.Health,
	}
}
