package collision

import (
	"sort"

	"github.com/sasha-s/go-deadlock"
)

// Target is one thing a shot's line passes through
type Target struct {
	ID       int32
	Type     Category
	HitX     float64 // entry point on the hitbox
	HitY     float64
	Distance float64 // from the line's origin to the entry point
}

// IsType reports whether the target belongs to category c
func (t Target) IsType(c Category) bool { return t.Type == c }

// TargetList collects line hits ordered by distance from the origin.
// Add is safe for concurrent producers; the remaining methods are meant for
// the single consumer that resolves the shot afterwards.
type TargetList struct {
	mu      deadlock.Mutex
	targets []Target

	OriginX, OriginY float64
	EndX, EndY       float64
}

// NewTargetList creates an empty list
func NewTargetList() *TargetList {
	return &TargetList{}
}

// Add inserts t after every target at a distance <= its own, keeping the list
// sorted and ties in arrival order.
func (tl *TargetList) Add(t Target) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	i := sort.Search(len(tl.targets), func(i int) bool {
		return tl.targets[i].Distance > t.Distance
	})
	tl.targets = append(tl.targets, Target{})
	copy(tl.targets[i+1:], tl.targets[i:])
	tl.targets[i] = t
}

// Next returns the nearest remaining target without removing it
func (tl *TargetList) Next() (Target, bool) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if len(tl.targets) == 0 {
		return Target{}, false
	}
	return tl.targets[0], true
}

// RemoveTop drops the nearest target
func (tl *TargetList) RemoveTop() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if len(tl.targets) > 0 {
		tl.targets = tl.targets[1:]
	}
}

// IsEmpty reports whether no targets remain
func (tl *TargetList) IsEmpty() bool {
	return tl.Len() == 0
}

// Len returns the number of remaining targets
func (tl *TargetList) Len() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.targets)
}

// Targets returns a copy of the remaining targets, nearest first
func (tl *TargetList) Targets() []Target {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	out := make([]Target, len(tl.targets))
	copy(out, tl.targets)
	return out
}
