package main

import (
	"zombie-server/collision"
)

// Base is the structure the marines defend. The game is lost when it falls.
type Base struct {
	collision.Entity
	Health    int
	MaxHealth int
}

// NewBase creates a square base of side size
func NewBase(id int32, x, y, size float64, hp int) *Base {
	return &Base{
		Entity:    collision.NewEntity(id, collision.CategoryWall, x, y, size, size, false),
		Health:    hp,
		MaxHealth: hp,
	}
}

// TakeDamage lowers the base's health, never below zero
func (b *Base) TakeDamage(w *World, dmg int) {
	b.Health = max(0, b.Health-dmg)
}

// Destroyed reports whether the base has fallen
func (b *Base) Destroyed() bool { return b.Health <= 0 }

// Wall blocks movement and shots
type Wall struct {
	collision.Entity
}

func NewWall(id int32, x, y, w, h float64) *Wall {
	return &Wall{Entity: collision.NewEntity(id, collision.CategoryWall, x, y, w, h, false)}
}

// Object is scenery that blocks movement only
type Object struct {
	collision.Entity
}

func NewObject(id int32, x, y, w, h float64) *Object {
	return &Object{Entity: collision.NewEntity(id, collision.CategoryObject, x, y, w, h, false)}
}

// Barricade is a placeable obstacle zombies have to chew through
type Barricade struct {
	collision.Entity
	Health int
	Placed bool
}

func NewBarricade(id int32, x, y float64, cfg BarricadeConfig) *Barricade {
	return &Barricade{
		Entity: collision.NewEntity(id, collision.CategoryBarricade, x, y, cfg.Width, cfg.Height, false),
		Health: cfg.Health,
	}
}

// Place sets the barricade down at (x, y)
func (b *Barricade) Place(x, y float64) {
	b.SetPosition(x, y)
	b.Placed = true
}

// TakeDamage wears the barricade down and removes it once broken
func (b *Barricade) TakeDamage(w *World, dmg int) {
	b.Health -= dmg
	if b.Health <= 0 {
		delete(w.barricades, b.ID)
	}
}

// ToState converts to protocol state
func (b *Barricade) ToState() StructureState {
	return StructureState{ID: b.ID, Kind: "barricade", X: round1(b.X), Y: round1(b.Y), W: b.W, H: b.H, HP: b.Health}
}
