package main

import (
	"zombie-server/collision"
)

// DropKind is what a drop gives the marine who collects it
type DropKind string

const (
	DropWeapon     DropKind = "weapon"
	DropConsumable DropKind = "consumable"
	DropBarricade  DropKind = "barricade"
)

const (
	dropSize        = 40
	dropHeal        = 50
	dropPointCount  = 8
	dropPointRadius = 400 // distance from the base center
)

// DropPoint is a fixed spot where drops appear. Only one drop sits on a point
// at a time.
type DropPoint struct {
	X, Y float64
	Used bool
}

// Drop is an item lying on the ground
type Drop struct {
	collision.Entity
	Kind   DropKind
	Weapon string // weapon name for DropWeapon
	Heal   int    // health restored by DropConsumable
	Point  int    // index into the world's drop points
}

// initDropPoints lays the drop points on a ring around the base
func (w *World) initDropPoints() {
	cx, cy := w.base.Center()
	w.dropPoints = w.dropPoints[:0]
	for i := 0; i < dropPointCount; i++ {
		a := float64(i) * 360 / dropPointCount
		x, y := collision.LineEnd(cx, cy, a, dropPointRadius)
		x = Clamp(x-dropSize/2, 0, w.cfg.World.Width-dropSize)
		y = Clamp(y-dropSize/2, 0, w.cfg.World.Height-dropSize)
		w.dropPoints = append(w.dropPoints, DropPoint{X: x, Y: y})
	}
}

// SpawnDrop puts a drop on a free drop point. It returns nil when every
// point is taken.
func (w *World) SpawnDrop(kind DropKind, weapon string) *Drop {
	point := -1
	for i, p := range w.dropPoints {
		if !p.Used {
			point = i
			break
		}
	}
	if point < 0 {
		return nil
	}
	p := &w.dropPoints[point]
	p.Used = true

	d := &Drop{
		Entity: collision.NewEntity(w.newID(), collision.CategoryPickUp, p.X, p.Y, dropSize, dropSize, false),
		Kind:   kind,
		Weapon: weapon,
		Point:  point,
	}
	if kind == DropConsumable {
		d.Heal = dropHeal
	}
	w.drops[d.ID] = d
	return d
}

// SpawnRandomDrop spawns a weapon, medkit or barricade on a free point
func (w *World) SpawnRandomDrop() *Drop {
	switch w.rng.Intn(3) {
	case 0:
		var buyable []string
		for _, s := range w.cfg.Weapons {
			if s.Price > 0 {
				buyable = append(buyable, s.Name)
			}
		}
		if len(buyable) == 0 {
			return w.SpawnDrop(DropConsumable, "")
		}
		return w.SpawnDrop(DropWeapon, buyable[w.rng.Intn(len(buyable))])
	case 1:
		return w.SpawnDrop(DropConsumable, "")
	default:
		return w.SpawnDrop(DropBarricade, "")
	}
}

// RemoveDrop deletes a drop and frees its point
func (w *World) RemoveDrop(id int32) {
	d, ok := w.drops[id]
	if !ok {
		return
	}
	w.freeDropPoint(d.Point)
	delete(w.drops, id)
}

func (w *World) freeDropPoint(i int) {
	if i >= 0 && i < len(w.dropPoints) {
		w.dropPoints[i].Used = false
	}
}

// FreeDropPoints counts the points a drop could still appear on
func (w *World) FreeDropPoints() int {
	n := 0
	for _, p := range w.dropPoints {
		if !p.Used {
			n++
		}
	}
	return n
}

// ToState converts to protocol state
func (d *Drop) ToState() DropState {
	return DropState{ID: d.ID, Kind: string(d.Kind), Weapon: d.Weapon, X: round1(d.X), Y: round1(d.Y)}
}
