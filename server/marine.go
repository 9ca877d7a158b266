package main

import (
	"math"

	"zombie-server/collision"
)

// CarryKind is what a marine is holding for placement
type CarryKind int

const (
	CarryNothing CarryKind = iota
	CarryTurret
	CarryBarricade
)

// Carried is a turret or barricade waiting to be placed
type Carried struct {
	Kind CarryKind
	ID   int32
}

// MarineInput is the latest control state from a player's client
type MarineInput struct {
	MoveX, MoveY float64 // -1..1 per axis
	AimX, AimY   float64 // world coords
	Fire         bool
	Use          bool // pick up / open store, one shot
	Place        bool // place what we carry, one shot
	Reload       bool
	Slot         int // 1-based, 0 keeps the current slot
}

// Inventory holds a marine's weapon slots
type Inventory struct {
	Slots   []*Weapon
	Current int
}

// NewInventory creates n empty slots
func NewInventory(n int) Inventory {
	return Inventory{Slots: make([]*Weapon, n)}
}

// Add puts wp in the first free slot and selects it. If every slot is taken
// it replaces the current weapon.
func (inv *Inventory) Add(wp *Weapon) {
	for i, s := range inv.Slots {
		if s == nil {
			inv.Slots[i] = wp
			inv.Current = i
			return
		}
	}
	inv.Slots[inv.Current] = wp
}

// Weapon returns the selected weapon, or nil for an empty slot
func (inv *Inventory) Weapon() *Weapon {
	if inv.Current < 0 || inv.Current >= len(inv.Slots) {
		return nil
	}
	return inv.Slots[inv.Current]
}

// Switch selects slot i (0-based) if it exists
func (inv *Inventory) Switch(i int) {
	if i >= 0 && i < len(inv.Slots) {
		inv.Current = i
	}
}

// Marine is a player-controlled soldier
type Marine struct {
	collision.Entity
	Name      string
	Health    int
	MaxHealth int
	Angle     float64 // heading in degrees, 0 = up
	DX, DY    float64 // displacement attempted this frame
	Velocity  float64
	Credits   int
	Kills     int
	Shots     int
	Deaths    int
	Dead      bool
	RespawnAt uint64
	Inventory Inventory
	Carrying  Carried

	input MarineInput
}

// NewMarine creates a marine at (x, y)
func NewMarine(id int32, name string, x, y float64, cfg Config) *Marine {
	mc := cfg.Marine
	return &Marine{
		Entity:    collision.NewEntity(id, collision.CategoryMarine, x, y, mc.Width, mc.Height, true),
		Name:      name,
		Health:    mc.Health,
		MaxHealth: mc.Health,
		Velocity:  mc.Velocity,
		Credits:   mc.StartCredits,
		Inventory: NewInventory(mc.Slots),
	}
}

// Heading returns where the marine is aiming
func (m *Marine) Heading() float64 { return m.Angle }

// SetInput stores the controls applied on the next frame. One-shot actions
// stay latched until the frame consumes them.
func (m *Marine) SetInput(in MarineInput) {
	in.Use = in.Use || m.input.Use
	in.Place = in.Place || m.input.Place
	in.Reload = in.Reload || m.input.Reload
	if in.Slot == 0 {
		in.Slot = m.input.Slot
	}
	m.input = in
}

// Update aims and moves the marine. It runs concurrently with other entity
// tasks and only writes the marine itself.
func (m *Marine) Update(w *World) {
	if m.Dead {
		return
	}
	cx, cy := m.Center()
	if Distance(cx, cy, m.input.AimX, m.input.AimY) > 5 {
		m.Angle = HeadingTo(cx, cy, m.input.AimX, m.input.AimY)
	}

	mx := Clamp(m.input.MoveX, -1, 1)
	my := Clamp(m.input.MoveY, -1, 1)
	if l := math.Hypot(mx, my); l > 1 {
		mx /= l
		my /= l
	}
	m.DX = mx * m.Velocity
	m.DY = my * m.Velocity
	m.move(w, m.DX, m.DY)
}

// move tries each axis separately and undoes the ones that hit something
func (m *Marine) move(w *World, dx, dy float64) {
	if dx != 0 {
		m.Move(dx, 0)
		if blocked(w.collider, &m.Entity) {
			m.Move(-dx, 0)
		}
	}
	if dy != 0 {
		m.Move(0, dy)
		if blocked(w.collider, &m.Entity) {
			m.Move(0, -dy)
		}
	}
	clampToWorld(&m.Entity, w.Bounds())
}

// blocked reports whether e's movement box hits the movement-blocking tree
func blocked(h *collision.Handler, e *collision.Entity) bool {
	self := e.Snapshot()
	return h.DetectMovementCollision(h.QuadTreeEntities(collision.CategoryMovement, self), self)
}

// Act applies the marine's one-shot and held actions. Runs after the
// movement barrier, one marine at a time.
func (m *Marine) Act(w *World) {
	if m.Dead {
		if w.frame >= m.RespawnAt {
			m.respawn(w)
		}
		return
	}
	in := &m.input
	if in.Slot > 0 {
		m.Inventory.Switch(in.Slot - 1)
		in.Slot = 0
	}
	if in.Reload {
		if wp := m.Inventory.Weapon(); wp != nil {
			wp.Reload(w.Now())
		}
		in.Reload = false
	}
	if in.Use {
		if id := m.CheckForPickUp(w); id >= 0 {
			m.pickUpTurret(w, id)
		}
		in.Use = false
	}
	if in.Place {
		m.PlaceCarried(w)
		in.Place = false
	}
	if in.Fire {
		m.FireWeapon(w)
	}
}

// FireWeapon fires the selected weapon and credits any kills
func (m *Marine) FireWeapon(w *World) ShotResult {
	wp := m.Inventory.Weapon()
	if wp == nil {
		return ShotResult{}
	}
	res := wp.Fire(w, m)
	if res.Fired {
		m.Shots++
	}
	if res.Kills > 0 {
		m.AddKills(w, res.Kills)
	}
	return res
}

// AddKills credits zombie kills to the marine
func (m *Marine) AddKills(w *World, n int) {
	m.Kills += n
	m.Credits += n * w.cfg.Zombie.KillCredits
	w.emit(Event{Kind: EventKill, Actor: m.ID, Count: n})
}

// CheckForPickUp interacts with whatever the marine stands on, in order:
// a store opens, a turret id is returned for pickup, a drop is collected.
// It returns -1 unless a turret was found.
func (m *Marine) CheckForPickUp(w *World) int32 {
	h := w.collider
	self := m.Snapshot()

	if e := h.DetectPickUpCollision(h.QuadTreeEntities(collision.CategoryStore, self), self); e != nil {
		if s, ok := w.stores[e.ID]; ok {
			s.Activate(m)
			w.emit(Event{Kind: EventStoreOpen, Actor: m.ID, Target: s.ID})
		}
		return -1
	}

	if e := h.DetectPickUpCollision(h.QuadTreeEntities(collision.CategoryTurret, self), self); e != nil {
		if _, ok := w.turrets[e.ID]; ok {
			return e.ID
		}
	}

	e := h.DetectPickUpCollision(h.QuadTreeEntities(collision.CategoryPickUp, self), self)
	if e == nil {
		return -1
	}
	d, ok := w.drops[e.ID]
	if !ok {
		return -1
	}
	switch d.Kind {
	case DropWeapon:
		spec, ok := w.cfg.Weapon(d.Weapon)
		if !ok {
			return -1
		}
		m.Inventory.Add(NewWeapon(w.newID(), spec))
	case DropBarricade:
		if m.Carrying.Kind != CarryNothing {
			return -1
		}
		b := w.AddBarricade(d.X, d.Y, false)
		m.Carrying = Carried{Kind: CarryBarricade, ID: b.ID}
	case DropConsumable:
		m.Health = min(m.MaxHealth, m.Health+d.Heal)
	}
	w.RemoveDrop(d.ID)
	w.emit(Event{Kind: EventPickUp, Actor: m.ID, Item: string(d.Kind)})
	return -1
}

// pickUpTurret lifts a placed turret so it can be moved
func (m *Marine) pickUpTurret(w *World, id int32) {
	if m.Carrying.Kind != CarryNothing {
		return
	}
	t, ok := w.turrets[id]
	if !ok {
		return
	}
	t.PickUp()
	m.Carrying = Carried{Kind: CarryTurret, ID: id}
}

// PlaceCarried puts the carried turret or barricade down in front of the
// marine if nothing blocks that spot.
func (m *Marine) PlaceCarried(w *World) bool {
	var body *collision.Entity
	var place func(x, y float64)

	switch m.Carrying.Kind {
	case CarryTurret:
		t, ok := w.turrets[m.Carrying.ID]
		if !ok {
			m.Carrying = Carried{}
			return false
		}
		body, place = &t.Entity, t.Place
	case CarryBarricade:
		b, ok := w.barricades[m.Carrying.ID]
		if !ok {
			m.Carrying = Carried{}
			return false
		}
		body, place = &b.Entity, b.Place
	default:
		return false
	}

	cx, cy := m.Center()
	reach := math.Max(m.W, m.H)/2 + math.Max(body.W, body.H)/2 + 5
	px, py := collision.LineEnd(cx, cy, m.Angle, reach)
	spot := collision.NewEntity(-1, body.Category, px-body.W/2, py-body.H/2, body.W, body.H, false)

	if !w.Bounds().Contains(spot.X, spot.Y) || !w.Bounds().Contains(spot.X+spot.W, spot.Y+spot.H) {
		return false
	}
	if blocked(w.collider, &spot) {
		return false
	}
	place(spot.X, spot.Y)
	m.Carrying = Carried{}
	return true
}

// TakeDamage applies a zombie hit and reports whether the marine died
func (m *Marine) TakeDamage(w *World, attacker int32, dmg int) bool {
	if m.Dead {
		return false
	}
	m.Health -= dmg
	if m.Health > 0 {
		return false
	}
	m.Health = 0
	m.Dead = true
	m.Deaths++
	m.RespawnAt = w.frame + uint64(marineRespawnSeconds*w.cfg.Server.TickRate)
	w.emit(Event{Kind: EventMarineDeath, Actor: attacker, Target: m.ID})
	return true
}

// respawn brings a dead marine back next to the base
func (m *Marine) respawn(w *World) {
	x, y := w.marineSpawn()
	m.SetPosition(x, y)
	m.Health = m.MaxHealth
	m.Dead = false
	m.RespawnAt = 0
}

// ToState converts to protocol state
func (m *Marine) ToState() MarineState {
	st := MarineState{
		ID:      m.ID,
		Name:    m.Name,
		X:       round1(m.X),
		Y:       round1(m.Y),
		A:       round1(m.Angle),
		HP:      m.Health,
		MaxHP:   m.MaxHealth,
		Credits: m.Credits,
		Kills:   m.Kills,
		Alive:   !m.Dead,
	}
	if wp := m.Inventory.Weapon(); wp != nil {
		st.Weapon = wp.Spec.Name
		st.Clip = wp.Clip
		st.Ammo = wp.Ammo
	}
	return st
}
