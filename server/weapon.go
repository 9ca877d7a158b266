package main

import (
	"zombie-server/collision"
)

// Shooter is anything that can hold and fire a weapon
type Shooter interface {
	Center() (float64, float64)
	Heading() float64
	Snapshot() collision.Entry
}

// ShotResult summarizes what one trigger pull did
type ShotResult struct {
	Fired bool
	Hits  int
	Kills int
}

// Weapon is one gun (or pair of hands) with its own clip and timers.
// Times are milliseconds of simulated time, see World.Now.
type Weapon struct {
	ID   int32
	Spec WeaponSpec
	Clip int
	Ammo int

	fireTick   int64 // last time a round was chambered
	reloadTick int64 // last reload
}

// NewWeapon creates a weapon with a full clip
func NewWeapon(id int32, spec WeaponSpec) *Weapon {
	return &Weapon{
		ID:         id,
		Spec:       spec,
		Clip:       spec.Clip,
		Ammo:       spec.Ammo,
		fireTick:   -spec.FireDelay,
		reloadTick: -spec.ReloadDelay,
	}
}

// Empty reports whether the weapon can never fire again
func (wp *Weapon) Empty() bool {
	return wp.Spec.Clip > 0 && wp.Clip == 0 && wp.Ammo == 0
}

// chamberRound respects the fire delay and takes one round from the clip
func (wp *Weapon) chamberRound(now int64) bool {
	if now < wp.fireTick+wp.Spec.FireDelay {
		return false
	}
	wp.fireTick = now
	return wp.reduceClip(now, 1)
}

// reduceClip removes rounds, reloading instead when the clip is short
func (wp *Weapon) reduceClip(now int64, rounds int) bool {
	if wp.Spec.Clip == 0 {
		return true
	}
	if wp.Clip < rounds {
		wp.Reload(now)
		return false
	}
	wp.Clip -= rounds
	return true
}

// Reload refills the clip from reserve ammo. Firing is blocked for the
// reload delay afterwards.
func (wp *Weapon) Reload(now int64) bool {
	if wp.Spec.Clip == 0 || now < wp.reloadTick+wp.Spec.ReloadDelay {
		return false
	}
	wp.reloadTick = now
	wp.fireTick += wp.Spec.ReloadDelay
	if wp.Ammo <= 0 {
		return false
	}

	needed := wp.Spec.Clip - wp.Clip
	if wp.Ammo < needed {
		wp.Clip += wp.Ammo
		wp.Ammo = 0
		return true
	}
	wp.Ammo -= needed
	wp.Clip += needed
	return true
}

// Fire pulls the trigger for s. Nothing happens while the weapon is cooling
// down or reloading.
func (wp *Weapon) Fire(w *World, s Shooter) ShotResult {
	if !wp.chamberRound(w.Now()) {
		return ShotResult{}
	}
	res := ShotResult{Fired: true}
	gunX, gunY := s.Center()

	switch wp.Spec.Kind {
	case WeaponHand:
		res.Hits = wp.swing(w, s, gunX, gunY)
	case WeaponShotgun:
		pellets := wp.Spec.Pellets
		if pellets < 1 {
			pellets = 1
		}
		for i := 0; i < pellets; i++ {
			h, k := wp.fireSingleProjectile(w, gunX, gunY, s.Heading()+w.deviation(wp.Spec.Accuracy))
			res.Hits += h
			res.Kills += k
		}
	default:
		res.Hits, res.Kills = wp.fireSingleProjectile(w, gunX, gunY, s.Heading()+w.deviation(wp.Spec.Accuracy))
	}
	return res
}

// fireSingleProjectile casts one line and walks its targets nearest first,
// damaging zombies until penetration runs out or something solid is hit.
func (wp *Weapon) fireSingleProjectile(w *World, gunX, gunY, angle float64) (hits, kills int) {
	tl := collision.NewTargetList()
	w.collider.DetectLineCollision(tl, gunX, gunY, angle, wp.Spec.Range)

	finalX, finalY := tl.EndX, tl.EndY
	for i := 0; i <= wp.Spec.Penetration; i++ {
		target, ok := tl.Next()
		if !ok {
			break
		}
		if i == wp.Spec.Penetration {
			finalX, finalY = target.HitX, target.HitY
		}
		if !target.IsType(collision.CategoryZombie) {
			finalX, finalY = target.HitX, target.HitY
			break
		}
		if !w.ZombieExists(target.ID) {
			break
		}
		hits++
		if w.Zombie(target.ID).CollidingProjectile(w, wp.Spec.Damage) {
			kills++
		}
		tl.RemoveTop()
	}
	w.effects.AddTrace(tl.OriginX, tl.OriginY, finalX, finalY, w.frame)
	return hits, kills
}

// swingBox is the square of side Range in front of the attacker
func (wp *Weapon) swingBox(x, y, heading float64) collision.HitBox {
	r := wp.Spec.Range
	cx, cy := collision.LineEnd(x, y, heading, r/2)
	return collision.HitBox{
		Rect: collision.Rect{X: cx - r/2, Y: cy - r/2, W: r, H: r},
		Kind: collision.KindDamage,
	}
}

// swing damages every marine, turret, barricade and the base inside the swing box
func (wp *Weapon) swing(w *World, s Shooter, x, y float64) int {
	box := wp.swingBox(x, y, s.Heading())
	self := s.Snapshot()
	hits := 0

	for _, e := range w.collider.DetectMeleeCollision(
		w.collider.QuadTreeEntitiesRect(collision.CategoryMarine, box.Rect), self, box) {
		if m, ok := w.marines[e.ID]; ok && !m.Dead {
			m.TakeDamage(w, self.ID, wp.Spec.Damage)
			hits++
		}
	}
	for _, e := range w.collider.DetectMeleeCollision(
		w.collider.QuadTreeEntitiesRect(collision.CategoryTurret, box.Rect), self, box) {
		if t, ok := w.turrets[e.ID]; ok {
			t.TakeDamage(w, wp.Spec.Damage)
			hits++
		}
	}
	for _, e := range w.collider.DetectMeleeCollision(
		w.collider.QuadTreeEntitiesRect(collision.CategoryBarricade, box.Rect), self, box) {
		if b, ok := w.barricades[e.ID]; ok {
			b.TakeDamage(w, wp.Spec.Damage)
			hits++
		}
	}
	if w.base != nil && box.Intersects(w.base.DamageHitBox()) {
		w.base.TakeDamage(w, wp.Spec.Damage)
		hits++
	}
	return hits
}
