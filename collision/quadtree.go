package collision

const (
	MaxEntries = 10 // entries a node holds before it splits
	MaxDepth   = 5  // nodes at this depth never split
)

// Quadtree is a spatial index of entries keyed by one hitbox kind.
// It is rebuilt from empty every frame: Clear, then Insert everything.
// A Quadtree is not safe for concurrent writers.
type Quadtree struct {
	depth    int
	bounds   Rect
	kind     Kind
	entries  []Entry
	children []*Quadtree // nil or exactly 4
}

// NewQuadtree creates an empty root covering bounds, indexing entries by kind
func NewQuadtree(bounds Rect, kind Kind) *Quadtree {
	return newNode(0, bounds, kind)
}

func newNode(depth int, bounds Rect, kind Kind) *Quadtree {
	return &Quadtree{
		depth:   depth,
		bounds:  bounds,
		kind:    kind,
		entries: make([]Entry, 0, MaxEntries),
	}
}

// Bounds returns the area covered by the tree
func (q *Quadtree) Bounds() Rect { return q.bounds }

// Kind returns the hitbox kind entries are keyed by
func (q *Quadtree) Kind() Kind { return q.kind }

// Clear drops all children and entries, keeping the root's slice capacity
func (q *Quadtree) Clear() {
	q.entries = q.entries[:0]
	q.children = nil
}

// split divides the node into four equal quadrants
func (q *Quadtree) split() {
	hw := q.bounds.W / 2
	hh := q.bounds.H / 2
	x, y := q.bounds.X, q.bounds.Y
	d := q.depth + 1
	q.children = []*Quadtree{
		newNode(d, Rect{X: x + hw, Y: y, W: hw, H: hh}, q.kind),      // NE
		newNode(d, Rect{X: x, Y: y, W: hw, H: hh}, q.kind),           // NW
		newNode(d, Rect{X: x, Y: y + hh, W: hw, H: hh}, q.kind),      // SW
		newNode(d, Rect{X: x + hw, Y: y + hh, W: hw, H: hh}, q.kind), // SE
	}
}

// Insert adds e keyed by its hitbox of the tree's kind. It returns false and
// stores nothing when that hitbox lies entirely outside the tree.
func (q *Quadtree) Insert(e Entry) bool {
	box := e.HitBoxes[q.kind].Rect
	if !q.bounds.Intersects(box) {
		logf("quadtree(%s): dropped entry %d outside bounds", q.kind, e.ID)
		return false
	}
	q.insert(e, box)
	return true
}

func (q *Quadtree) insert(e Entry, box Rect) {
	if q.children != nil {
		q.insertChildren(e, box)
		return
	}
	if len(q.entries) < MaxEntries || q.depth >= MaxDepth {
		q.entries = append(q.entries, e)
		return
	}

	q.split()
	for _, old := range q.entries {
		q.insertChildren(old, old.HitBoxes[q.kind].Rect)
	}
	q.entries = q.entries[:0]
	q.insertChildren(e, box)
}

// insertChildren routes e to every child its box overlaps
func (q *Quadtree) insertChildren(e Entry, box Rect) {
	for _, c := range q.children {
		if c.bounds.Intersects(box) {
			c.insert(e, box)
		}
	}
}

// Retrieve returns the candidates near e, using the union of e's hitboxes as
// the query area. Candidates may not actually intersect; callers refine with
// an exact test. Each entity appears at most once.
func (q *Quadtree) Retrieve(e Entry) []Entry {
	return q.RetrieveRect(e.Bounds())
}

// RetrieveRect returns the candidates whose leaves intersect r
func (q *Quadtree) RetrieveRect(r Rect) []Entry {
	var out []Entry
	var seen map[int32]struct{}
	if q.children != nil {
		seen = make(map[int32]struct{})
	}
	q.retrieve(r, &out, seen)
	return out
}

func (q *Quadtree) retrieve(r Rect, out *[]Entry, seen map[int32]struct{}) {
	if !q.bounds.Intersects(r) {
		return
	}
	for _, e := range q.entries {
		if seen != nil {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
		}
		*out = append(*out, e)
	}
	for _, c := range q.children {
		c.retrieve(r, out, seen)
	}
}

// Len returns the number of distinct entries stored
func (q *Quadtree) Len() int {
	return len(q.RetrieveRect(q.bounds))
}

// Depth returns the depth of the deepest node
func (q *Quadtree) Depth() int {
	d := q.depth
	for _, c := range q.children {
		if cd := c.Depth(); cd > d {
			d = cd
		}
	}
	return d
}
