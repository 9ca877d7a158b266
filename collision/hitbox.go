package collision

// Kind selects which of an entity's hitboxes an interaction uses
type Kind int

const (
	KindMovement   Kind = 0 // blocks movement
	KindProjectile Kind = 1 // hit by shots
	KindDamage     Kind = 2 // receives melee damage
	KindPickUp     Kind = 3 // pickup / interaction range
	numKinds            = 4
)

func (k Kind) String() string {
	switch k {
	case KindMovement:
		return "movement"
	case KindProjectile:
		return "projectile"
	case KindDamage:
		return "damage"
	case KindPickUp:
		return "pickup"
	}
	return "unknown"
}

// Category tags an entity with the manager that owns it
type Category int

const (
	CategoryZombie Category = iota
	CategoryMarine
	CategoryBarricade
	CategoryTurret
	CategoryWall
	CategoryPickUp
	CategoryObject
	CategoryStore
	CategoryMovement // combined movement-blocking tree, never an entity tag
	numCategories
)

var categoryNames = [numCategories]string{
	"zombie", "marine", "barricade", "turret", "wall", "pickup", "object", "store", "movement",
}

func (c Category) String() string {
	if c < 0 || c >= numCategories {
		return "unknown"
	}
	return categoryNames[c]
}

// HitBox is one interaction rectangle of an entity
type HitBox struct {
	Rect     Rect
	Kind     Kind
	Friendly bool // player friendly; two friendly boxes never collide
}

// Intersects tests the rectangles only, ignoring faction
func (h HitBox) Intersects(o HitBox) bool {
	return h.Rect.Intersects(o.Rect)
}

// bothFriendly is the friendliness exemption
func (h HitBox) bothFriendly(o HitBox) bool {
	return h.Friendly && o.Friendly
}

// Entity is the collidable base every game object embeds: an id, a position
// and four hitboxes anchored to that position.
type Entity struct {
	ID       int32
	Category Category
	X, Y     float64
	W, H     float64

	offsets  [numKinds]Rect // relative to X,Y
	hitboxes [numKinds]HitBox
}

// NewEntity creates an entity at (x, y) whose hitboxes all cover its w×h body.
// Use SetHitBox to give individual kinds their own shape.
func NewEntity(id int32, cat Category, x, y, w, h float64, friendly bool) Entity {
	e := Entity{ID: id, Category: cat, X: x, Y: y, W: w, H: h}
	for k := Kind(0); k < numKinds; k++ {
		e.offsets[k] = Rect{W: w, H: h}
		e.hitboxes[k] = HitBox{Kind: k, Friendly: friendly}
	}
	e.sync()
	return e
}

// SetHitBox sets the shape of one hitbox relative to the entity's position
func (e *Entity) SetHitBox(k Kind, offset Rect) {
	e.offsets[k] = offset
	e.hitboxes[k].Rect = offset.Translate(e.X, e.Y)
}

// SetFriendly sets the faction flag on every hitbox
func (e *Entity) SetFriendly(friendly bool) {
	for k := range e.hitboxes {
		e.hitboxes[k].Friendly = friendly
	}
}

// SetPosition moves the entity and all of its hitboxes
func (e *Entity) SetPosition(x, y float64) {
	e.X = x
	e.Y = y
	e.sync()
}

// Move shifts the entity by (dx, dy)
func (e *Entity) Move(dx, dy float64) {
	e.SetPosition(e.X+dx, e.Y+dy)
}

func (e *Entity) sync() {
	for k := range e.hitboxes {
		e.hitboxes[k].Rect = e.offsets[k].Translate(e.X, e.Y)
	}
}

// Bounds returns the entity's body rectangle
func (e *Entity) Bounds() Rect {
	return Rect{X: e.X, Y: e.Y, W: e.W, H: e.H}
}

// Center returns the midpoint of the body
func (e *Entity) Center() (float64, float64) {
	return e.X + e.W/2, e.Y + e.H/2
}

// HitBox returns the hitbox of the given kind
func (e *Entity) HitBox(k Kind) HitBox { return e.hitboxes[k] }

func (e *Entity) MoveHitBox() HitBox       { return e.hitboxes[KindMovement] }
func (e *Entity) ProjectileHitBox() HitBox { return e.hitboxes[KindProjectile] }
func (e *Entity) DamageHitBox() HitBox     { return e.hitboxes[KindDamage] }
func (e *Entity) PickUpHitBox() HitBox     { return e.hitboxes[KindPickUp] }

// Snapshot freezes the entity's id and hitboxes into a tree entry
func (e *Entity) Snapshot() Entry {
	return Entry{ID: e.ID, Category: e.Category, HitBoxes: e.hitboxes}
}

// Entry is what the trees hold: a handle (ID + category) and the hitboxes as
// they were when the entry was taken. Callers resolve the ID against the
// owning manager when they need the live object.
type Entry struct {
	ID       int32
	Category Category
	HitBoxes [numKinds]HitBox
}

// EntryFromRect builds an entry whose hitboxes all equal r, for ad-hoc queries
// such as a vision square.
func EntryFromRect(r Rect) Entry {
	e := Entry{ID: -1}
	for k := range e.HitBoxes {
		e.HitBoxes[k] = HitBox{Rect: r, Kind: Kind(k)}
	}
	return e
}

// HitBox returns the hitbox of the given kind
func (e Entry) HitBox(k Kind) HitBox { return e.HitBoxes[k] }

// Bounds is the union of all four hitboxes
func (e Entry) Bounds() Rect {
	r := e.HitBoxes[0].Rect
	for k := 1; k < numKinds; k++ {
		r = r.Union(e.HitBoxes[k].Rect)
	}
	return r
}
