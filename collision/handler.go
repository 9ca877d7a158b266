package collision

import (
	"runtime"

	"github.com/sasha-s/go-deadlock"
)

// treeKinds is the hitbox kind each category tree is keyed by, chosen so the
// exact test run against that tree always uses the same kind.
var treeKinds = [numCategories]Kind{
	CategoryZombie:    KindProjectile, // line fire
	CategoryMarine:    KindDamage,     // zombie melee
	CategoryBarricade: KindDamage,     // zombie melee
	CategoryTurret:    KindPickUp,     // marine pickup
	CategoryWall:      KindProjectile, // line fire
	CategoryPickUp:    KindPickUp,
	CategoryObject:    KindMovement,
	CategoryStore:     KindPickUp,
	CategoryMovement:  KindMovement,
}

// Handler owns one quadtree per category plus the shared movement-blocking
// tree, and runs the exact collision tests against their candidates.
//
// During a frame the trees are written once (Clear + Insert*) and then only
// read. Inserts into different categories may run concurrently; the shared
// movement tree serializes its own writers.
type Handler struct {
	world   Rect
	trees   [numCategories]*Quadtree
	moveMu  deadlock.Mutex
	workers int
}

// NewHandler creates a handler whose trees all cover world
func NewHandler(world Rect) *Handler {
	h := &Handler{world: world, workers: runtime.GOMAXPROCS(0)}
	for c := Category(0); c < numCategories; c++ {
		h.trees[c] = NewQuadtree(world, treeKinds[c])
	}
	return h
}

// SetWorkers bounds the goroutines used per line query. n < 1 means GOMAXPROCS.
func (h *Handler) SetWorkers(n int) {
	if n < 1 {
		n = runtime.GOMAXPROCS(0)
	}
	h.workers = n
}

// World returns the rectangle all trees cover
func (h *Handler) World() Rect { return h.world }

// Tree returns the tree for category c
func (h *Handler) Tree(c Category) *Quadtree { return h.trees[c] }

// Clear empties every tree. Call once per frame before re-inserting.
func (h *Handler) Clear() {
	for _, t := range h.trees {
		t.Clear()
	}
}

func (h *Handler) insertMovement(e Entry) {
	h.moveMu.Lock()
	h.trees[CategoryMovement].Insert(e)
	h.moveMu.Unlock()
}

func (h *Handler) InsertMarine(e Entry) {
	h.insertMovement(e)
	h.trees[CategoryMarine].Insert(e)
}

func (h *Handler) InsertZombie(e Entry) {
	h.trees[CategoryZombie].Insert(e)
}

func (h *Handler) InsertBarricade(e Entry) {
	h.insertMovement(e)
	h.trees[CategoryBarricade].Insert(e)
}

func (h *Handler) InsertTurret(e Entry) {
	h.insertMovement(e)
	h.trees[CategoryTurret].Insert(e)
}

func (h *Handler) InsertWall(e Entry) {
	h.insertMovement(e)
	h.trees[CategoryWall].Insert(e)
}

func (h *Handler) InsertPickUp(e Entry) {
	h.trees[CategoryPickUp].Insert(e)
}

func (h *Handler) InsertObject(e Entry) {
	h.insertMovement(e)
	h.trees[CategoryObject].Insert(e)
}

func (h *Handler) InsertStore(e Entry) {
	h.insertMovement(e)
	h.trees[CategoryStore].Insert(e)
}

// QuadTreeEntities returns the coarse candidates near e in the given tree
func (h *Handler) QuadTreeEntities(tree Category, e Entry) []Entry {
	return h.trees[tree].Retrieve(e)
}

// QuadTreeEntitiesRect returns the coarse candidates intersecting r
func (h *Handler) QuadTreeEntitiesRect(tree Category, r Rect) []Entry {
	return h.trees[tree].RetrieveRect(r)
}

// firstHit returns the index of the first candidate other than self whose
// box of kind ck intersects self's box of kind sk, skipping friendly pairs.
func firstHit(candidates []Entry, self Entry, sk, ck Kind) int {
	mine := self.HitBoxes[sk]
	for i := range candidates {
		obj := &candidates[i]
		if obj.ID == self.ID {
			continue
		}
		theirs := obj.HitBoxes[ck]
		if mine.Intersects(theirs) && !mine.bothFriendly(theirs) {
			return i
		}
	}
	return -1
}

// DetectMovementCollision reports whether self's movement hitbox overlaps any
// candidate's, unless both are player friendly.
func (h *Handler) DetectMovementCollision(candidates []Entry, self Entry) bool {
	return firstHit(candidates, self, KindMovement, KindMovement) >= 0
}

// DetectDamageCollision returns the first candidate damage hitbox overlapping
// self's, or nil.
func (h *Handler) DetectDamageCollision(candidates []Entry, self Entry) *HitBox {
	if i := firstHit(candidates, self, KindDamage, KindDamage); i >= 0 {
		return &candidates[i].HitBoxes[KindDamage]
	}
	return nil
}

// DetectProjectileCollision returns the first candidate projectile hitbox
// overlapping self's, or nil.
func (h *Handler) DetectProjectileCollision(candidates []Entry, self Entry) *HitBox {
	if i := firstHit(candidates, self, KindProjectile, KindProjectile); i >= 0 {
		return &candidates[i].HitBoxes[KindProjectile]
	}
	return nil
}

// DetectPickUpCollision returns the first candidate whose pickup hitbox
// overlaps self's movement hitbox, or nil when there is nothing to pick up.
func (h *Handler) DetectPickUpCollision(candidates []Entry, self Entry) *Entry {
	if i := firstHit(candidates, self, KindMovement, KindPickUp); i >= 0 {
		return &candidates[i]
	}
	logf("nothing to pick up for %d", self.ID)
	return nil
}

// DetectStoreCollision tests the store's pickup hitbox against the player's
// movement hitbox directly, without a tree lookup.
func (h *Handler) DetectStoreCollision(player, store Entry) bool {
	return store.HitBoxes[KindPickUp].Intersects(player.HitBoxes[KindMovement])
}

// DetectMeleeCollision returns every candidate other than self whose damage
// hitbox overlaps swing. Faction is ignored; the caller decides who takes damage.
func (h *Handler) DetectMeleeCollision(candidates []Entry, self Entry, swing HitBox) []Entry {
	var hits []Entry
	for _, obj := range candidates {
		if obj.ID != self.ID && swing.Intersects(obj.HitBoxes[KindDamage]) {
			hits = append(hits, obj)
		}
	}
	return hits
}
