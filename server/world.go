package main

import (
	"fmt"
	"maps"
	"math"
	"math/rand"
	"slices"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"zombie-server/collision"
)

// Event kinds emitted by World.Step
const (
	EventKill        = "kill"         // Actor killed Count zombies
	EventMarineDeath = "marine_death" // zombie Actor killed marine Target
	EventPurchase    = "purchase"     // Actor bought Item
	EventPickUp      = "pickup"       // Actor picked up Item
	EventWave        = "wave"         // Count zombies spawned
	EventStoreOpen   = "store_open"   // Actor opened store Target
	EventBaseLost    = "base_lost"
)

// Event is something that happened during a frame that the game loop reports
type Event struct {
	Kind   string
	Actor  int32
	Target int32
	Item   string
	Count  int
}

const marineRespawnSeconds = 3

// World is one simulation: every entity manager plus the collision handler
// whose trees are rebuilt from them each frame.
//
// World is driven by a single goroutine. Step fans out internally and joins
// before it returns.
type World struct {
	cfg      Config
	collider *collision.Handler
	rng      *rand.Rand
	nextID   atomic.Int32
	frame    uint64
	wave     int

	base       *Base
	marines    map[int32]*Marine
	zombies    map[int32]*Zombie
	turrets    map[int32]*Turret
	barricades map[int32]*Barricade
	walls      map[int32]*Wall
	objects    map[int32]*Object
	drops      map[int32]*Drop
	stores     map[int32]*Store
	dropPoints []DropPoint

	effects *Effects
	events  []Event
}

// NewWorld creates a world with the base at its center
func NewWorld(cfg Config) *World {
	bounds := collision.Rect{W: cfg.World.Width, H: cfg.World.Height}
	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	w := &World{
		cfg:        cfg,
		collider:   collision.NewHandler(bounds),
		rng:        rand.New(rand.NewSource(seed)),
		marines:    make(map[int32]*Marine),
		zombies:    make(map[int32]*Zombie),
		turrets:    make(map[int32]*Turret),
		barricades: make(map[int32]*Barricade),
		walls:      make(map[int32]*Wall),
		objects:    make(map[int32]*Object),
		drops:      make(map[int32]*Drop),
		stores:     make(map[int32]*Store),
		effects:    NewEffects(),
	}
	w.collider.SetWorkers(cfg.World.Workers)

	size := cfg.World.BaseSize
	w.base = NewBase(w.newID(), cfg.World.Width/2-size/2, cfg.World.Height/2-size/2, size, cfg.World.BaseHP)
	w.initDropPoints()
	return w
}

// newID hands out ids unique across every category of this world
func (w *World) newID() int32 {
	return w.nextID.Add(1)
}

// Bounds returns the playable rectangle
func (w *World) Bounds() collision.Rect { return w.collider.World() }

// Frame returns the number of completed frames
func (w *World) Frame() uint64 { return w.frame }

// Now returns simulated time in milliseconds
func (w *World) Now() int64 {
	return int64(w.frame) * 1000 / int64(w.cfg.Server.TickRate)
}

// deviation returns a random whole-degree offset in [-acc/2, acc/2)
func (w *World) deviation(acc int) float64 {
	if acc <= 0 {
		return 0
	}
	return float64(w.rng.Intn(acc) - acc/2)
}

func (w *World) emit(e Event) {
	w.events = append(w.events, e)
}

// Base returns the structure zombies march on
func (w *World) Base() *Base { return w.base }

// Wave returns the number of waves spawned so far
func (w *World) Wave() int { return w.wave }

// --- zombies ---

// AddZombie spawns a zombie with its top-left corner at (x, y)
func (w *World) AddZombie(x, y float64) *Zombie {
	z := NewZombie(w.newID(), x, y, w.cfg)
	w.zombies[z.ID] = z
	return z
}

// ZombieExists reports whether id is a live zombie
func (w *World) ZombieExists(id int32) bool {
	_, ok := w.zombies[id]
	return ok
}

// Zombie returns a zombie that must exist
func (w *World) Zombie(id int32) *Zombie {
	z, ok := w.zombies[id]
	if !ok {
		panic(fmt.Sprintf("zombie %d does not exist", id))
	}
	return z
}

// DeleteZombie removes a zombie from its manager
func (w *World) DeleteZombie(id int32) {
	delete(w.zombies, id)
}

// ZombieCount returns the number of live zombies
func (w *World) ZombieCount() int { return len(w.zombies) }

// --- marines ---

// AddMarine spawns a marine next to the base
func (w *World) AddMarine(name string) *Marine {
	x, y := w.marineSpawn()
	m := NewMarine(w.newID(), name, x, y, w.cfg)
	if spec, ok := w.cfg.Weapon(w.cfg.Marine.StartWeapon); ok {
		m.Inventory.Add(NewWeapon(w.newID(), spec))
	}
	w.marines[m.ID] = m
	return m
}

// MarineExists reports whether id is a marine in this world
func (w *World) MarineExists(id int32) bool {
	_, ok := w.marines[id]
	return ok
}

// Marine returns a marine that must exist
func (w *World) Marine(id int32) *Marine {
	m, ok := w.marines[id]
	if !ok {
		panic(fmt.Sprintf("marine %d does not exist", id))
	}
	return m
}

// RemoveMarine drops a marine and anything it was carrying
func (w *World) RemoveMarine(id int32) {
	m, ok := w.marines[id]
	if !ok {
		return
	}
	switch m.Carrying.Kind {
	case CarryTurret:
		delete(w.turrets, m.Carrying.ID)
	case CarryBarricade:
		delete(w.barricades, m.Carrying.ID)
	}
	for _, s := range w.stores {
		if s.Customer == id {
			s.Close()
		}
	}
	delete(w.marines, id)
}

// RemoveTurret deletes a turret and frees the hands of a marine carrying it
func (w *World) RemoveTurret(id int32) {
	delete(w.turrets, id)
	for _, m := range w.marines {
		if m.Carrying.Kind == CarryTurret && m.Carrying.ID == id {
			m.Carrying = Carried{}
		}
	}
}

// marineSpawn picks a point just below the base
func (w *World) marineSpawn() (float64, float64) {
	b := w.base.Bounds()
	mw := w.cfg.Marine.Width
	x := b.X + w.rng.Float64()*math.Max(b.W-mw, 0)
	y := b.Bottom() + 10
	return x, y
}

// --- structures ---

// AddWall places an impassable wall
func (w *World) AddWall(x, y, width, height float64) *Wall {
	wl := NewWall(w.newID(), x, y, width, height)
	w.walls[wl.ID] = wl
	return wl
}

// AddObject places a movement-blocking prop that shots pass over
func (w *World) AddObject(x, y, width, height float64) *Object {
	o := NewObject(w.newID(), x, y, width, height)
	w.objects[o.ID] = o
	return o
}

// AddStore places a store selling items
func (w *World) AddStore(x, y float64, items []string) *Store {
	s := NewStore(w.newID(), x, y, items)
	w.stores[s.ID] = s
	return s
}

// AddTurret creates a turret owned by a marine. placed turrets are active immediately.
func (w *World) AddTurret(owner int32, x, y float64, placed bool) *Turret {
	spec, _ := w.cfg.Weapon(w.cfg.Turret.Weapon)
	t := NewTurret(w.newID(), owner, x, y, w.cfg.Turret, NewWeapon(w.newID(), spec))
	if placed {
		t.Place(x, y)
	}
	w.turrets[t.ID] = t
	return t
}

// AddBarricade creates a barricade, placed or waiting in someone's hands
func (w *World) AddBarricade(x, y float64, placed bool) *Barricade {
	b := NewBarricade(w.newID(), x, y, w.cfg.Barricade)
	if placed {
		b.Place(x, y)
	}
	w.barricades[b.ID] = b
	return b
}

// --- per-frame pipeline ---

// RebuildCollider clears every tree and re-inserts the live entities. Each
// category is inserted by its own goroutine; the shared movement tree
// serializes its writers inside the handler.
func (w *World) RebuildCollider() {
	h := w.collider
	h.Clear()
	h.InsertWall(w.base.Snapshot())

	var g errgroup.Group
	g.Go(func() error {
		for _, m := range w.marines {
			if !m.Dead {
				h.InsertMarine(m.Snapshot())
			}
		}
		return nil
	})
	g.Go(func() error {
		for _, z := range w.zombies {
			h.InsertZombie(z.Snapshot())
		}
		return nil
	})
	g.Go(func() error {
		for _, wl := range w.walls {
			h.InsertWall(wl.Snapshot())
		}
		return nil
	})
	g.Go(func() error {
		for _, t := range w.turrets {
			if t.Placed {
				h.InsertTurret(t.Snapshot())
			}
		}
		return nil
	})
	g.Go(func() error {
		for _, b := range w.barricades {
			if b.Placed {
				h.InsertBarricade(b.Snapshot())
			}
		}
		return nil
	})
	g.Go(func() error {
		for _, o := range w.objects {
			h.InsertObject(o.Snapshot())
		}
		return nil
	})
	g.Go(func() error {
		for _, d := range w.drops {
			h.InsertPickUp(d.Snapshot())
		}
		return nil
	})
	g.Go(func() error {
		for _, s := range w.stores {
			h.InsertStore(s.Snapshot())
		}
		return nil
	})
	g.Wait()
}

// UpdateEntities runs one task per marine and per zombie against the frozen
// trees and waits for all of them. Tasks only write their own entity.
func (w *World) UpdateEntities() {
	var g errgroup.Group
	for _, m := range w.marines {
		g.Go(func() error {
			m.Update(w)
			return nil
		})
	}
	for _, z := range w.zombies {
		g.Go(func() error {
			z.Update(w)
			z.MoveStep(w)
			return nil
		})
	}
	g.Wait()
}

// Step advances the world one frame and returns what happened, including
// events raised by calls made since the previous Step.
func (w *World) Step() []Event {
	w.frame++

	w.RebuildCollider()
	w.UpdateEntities()

	// everything below mutates other entities, so it runs after the barrier
	for _, id := range slices.Sorted(maps.Keys(w.zombies)) {
		if z, ok := w.zombies[id]; ok && z.attacking {
			z.Attack(w)
		}
	}
	for _, id := range slices.Sorted(maps.Keys(w.marines)) {
		if m, ok := w.marines[id]; ok {
			m.Act(w)
		}
	}
	w.UpdateTurrets()
	w.UpdateStores()
	w.spawnWaves()
	w.effects.Expire(w.frame)

	if w.base.Destroyed() {
		w.emit(Event{Kind: EventBaseLost})
	}
	out := w.events
	w.events = nil
	return out
}

// UpdateTurrets lets every active turret aim and fire, removing empty ones
func (w *World) UpdateTurrets() {
	for _, id := range slices.Sorted(maps.Keys(w.turrets)) {
		t := w.turrets[id]
		if !t.Placed || !t.Activated {
			continue
		}
		res := t.ScanArea(w)
		if res.Kills > 0 && w.MarineExists(t.Owner) {
			w.marines[t.Owner].AddKills(w, res.Kills)
		}
		if t.Gun.Empty() {
			w.RemoveTurret(id)
		}
	}
}

// UpdateStores closes stores whose customer walked away
func (w *World) UpdateStores() {
	for _, s := range w.stores {
		if !s.Open {
			continue
		}
		m, ok := w.marines[s.Customer]
		if !ok || m.Dead || !w.collider.DetectStoreCollision(m.Snapshot(), s.Snapshot()) {
			s.Close()
		}
	}
}

// spawnWaves starts a new wave on the configured interval
func (w *World) spawnWaves() {
	iv := w.cfg.Waves.Interval
	if iv <= 0 {
		return
	}
	every := uint64(iv.Seconds() * float64(w.cfg.Server.TickRate))
	if every == 0 || w.frame%every != 0 {
		return
	}
	w.SpawnWave(w.cfg.Waves.Size + w.wave*w.cfg.Waves.Growth)
}

// SpawnWave spawns n zombies along the world edges, capped by MaxZombies,
// and restocks one free drop point. It returns the number spawned.
func (w *World) SpawnWave(n int) int {
	if limit := w.cfg.Server.MaxZombies; limit > 0 && len(w.zombies)+n > limit {
		n = limit - len(w.zombies)
	}
	if n < 0 {
		n = 0
	}
	W, H := w.cfg.World.Width, w.cfg.World.Height
	zw, zh := w.cfg.Zombie.Width, w.cfg.Zombie.Height
	for i := 0; i < n; i++ {
		var x, y float64
		switch w.rng.Intn(4) {
		case 0:
			x, y = 0, w.rng.Float64()*(H-zh)
		case 1:
			x, y = W-zw, w.rng.Float64()*(H-zh)
		case 2:
			x, y = w.rng.Float64()*(W-zw), 0
		default:
			x, y = w.rng.Float64()*(W-zw), H-zh
		}
		w.AddZombie(x, y)
	}
	w.wave++
	w.SpawnRandomDrop()
	w.emit(Event{Kind: EventWave, Count: n})
	return n
}
