package main

import (
	"errors"
	"fmt"

	"zombie-server/collision"
)

// Non-weapon items a store can sell
const (
	ItemTurret    = "turret"
	ItemBarricade = "barricade"
)

const storeSize = 80

var (
	ErrStoreClosed      = errors.New("store is not open for this marine")
	ErrUnknownItem      = errors.New("item not sold here")
	ErrNotEnoughCredits = errors.New("not enough credits")
	ErrHandsFull        = errors.New("already carrying something")
)

// StoreItem is one catalog row as shown to clients
type StoreItem struct {
	Name  string `json:"name" msgpack:"name"`
	Type  string `json:"type" msgpack:"type"` // weapon, turret or barricade
	Price int    `json:"price" msgpack:"price"`
}

// Store is a stand marines walk up to and buy from. Only the marine who
// opened it can buy.
type Store struct {
	collision.Entity
	Items    []string
	Open     bool
	Customer int32
}

// NewStore creates a closed store. Marines reach its pickup box from
// anywhere around the stand.
func NewStore(id int32, x, y float64, items []string) *Store {
	s := &Store{
		Entity:   collision.NewEntity(id, collision.CategoryStore, x, y, storeSize, storeSize, false),
		Items:    items,
		Customer: -1,
	}
	s.SetHitBox(collision.KindPickUp, collision.Rect{
		X: -pickUpReach, Y: -pickUpReach,
		W: storeSize + 2*pickUpReach, H: storeSize + 2*pickUpReach,
	})
	return s
}

// Activate opens the store for m
func (s *Store) Activate(m *Marine) {
	s.Open = true
	s.Customer = m.ID
}

// Close ends the current session
func (s *Store) Close() {
	s.Open = false
	s.Customer = -1
}

// sells reports whether item is on this store's shelf
func (s *Store) sells(item string) bool {
	for _, it := range s.Items {
		if it == item {
			return true
		}
	}
	return false
}

// Catalog lists the store's items with their current prices
func (s *Store) Catalog(cfg *Config) []StoreItem {
	out := make([]StoreItem, 0, len(s.Items))
	for _, it := range s.Items {
		if price, typ, ok := itemPrice(cfg, it); ok {
			out = append(out, StoreItem{Name: it, Type: typ, Price: price})
		}
	}
	return out
}

// itemPrice looks up the price and type of anything a store can sell
func itemPrice(cfg *Config, item string) (int, string, bool) {
	switch item {
	case ItemTurret:
		return cfg.Turret.Price, ItemTurret, true
	case ItemBarricade:
		return cfg.Barricade.Price, ItemBarricade, true
	}
	if spec, ok := cfg.Weapon(item); ok && spec.Price > 0 {
		return spec.Price, "weapon", true
	}
	return 0, "", false
}

// Purchase sells item to m. Weapons go straight to the inventory; turrets
// and barricades are handed over unplaced for the marine to carry.
func (s *Store) Purchase(w *World, m *Marine, item string) error {
	if !s.Open || s.Customer != m.ID {
		return ErrStoreClosed
	}
	if !s.sells(item) {
		return fmt.Errorf("%w: %q", ErrUnknownItem, item)
	}
	price, typ, ok := itemPrice(&w.cfg, item)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownItem, item)
	}
	if m.Credits < price {
		return ErrNotEnoughCredits
	}
	if typ != "weapon" && m.Carrying.Kind != CarryNothing {
		return ErrHandsFull
	}

	switch typ {
	case ItemTurret:
		t := w.AddTurret(m.ID, m.X, m.Y, false)
		m.Carrying = Carried{Kind: CarryTurret, ID: t.ID}
	case ItemBarricade:
		b := w.AddBarricade(m.X, m.Y, false)
		m.Carrying = Carried{Kind: CarryBarricade, ID: b.ID}
	default:
		spec, _ := w.cfg.Weapon(item)
		m.Inventory.Add(NewWeapon(w.newID(), spec))
	}
	m.Credits -= price
	w.emit(Event{Kind: EventPurchase, Actor: m.ID, Item: item, Count: price})
	return nil
}

// ToState converts to protocol state
func (s *Store) ToState() StructureState {
	return StructureState{ID: s.ID, Kind: "store", X: round1(s.X), Y: round1(s.Y), W: s.W, H: s.H, Open: s.Open}
}
