package collision

import "math"

// Rect is an axis-aligned rectangle with its origin at the top-left corner
type Rect struct {
	X, Y float64
	W, H float64
}

// Right returns the x coordinate of the right edge
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns the y coordinate of the bottom edge
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Center returns the midpoint of the rectangle
func (r Rect) Center() (float64, float64) {
	return r.X + r.W/2, r.Y + r.H/2
}

// Intersects reports whether two rectangles overlap. Edges are inclusive,
// so rectangles that only touch count as intersecting.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.Right() && o.X <= r.Right() &&
		r.Y <= o.Bottom() && o.Y <= r.Bottom()
}

// Contains reports whether the point lies inside r (edges inclusive)
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.Right() && y >= r.Y && y <= r.Bottom()
}

// Union returns the smallest rectangle covering both r and o
func (r Rect) Union(o Rect) Rect {
	x := math.Min(r.X, o.X)
	y := math.Min(r.Y, o.Y)
	return Rect{
		X: x,
		Y: y,
		W: math.Max(r.Right(), o.Right()) - x,
		H: math.Max(r.Bottom(), o.Bottom()) - y,
	}
}

// Translate returns r shifted by (dx, dy)
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, W: r.W, H: r.H}
}

// SegmentBounds returns the rectangle spanned by two points
func SegmentBounds(x1, y1, x2, y2 float64) Rect {
	minX, maxX := math.Min(x1, x2), math.Max(x1, x2)
	minY, maxY := math.Min(y1, y2), math.Max(y1, y2)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// ClipSegment clips the segment (x1,y1)-(x2,y2) against r using Liang-Barsky.
// On success it returns the entry point (closest to x1,y1) and the exit point.
func (r Rect) ClipSegment(x1, y1, x2, y2 float64) (ex, ey, xx, xy float64, ok bool) {
	dx := x2 - x1
	dy := y2 - y1
	t0, t1 := 0.0, 1.0

	// p·t <= q for each of the four edges
	clip := func(p, q float64) bool {
		if p == 0 {
			return q >= 0
		}
		t := q / p
		if p < 0 {
			if t > t1 {
				return false
			}
			if t > t0 {
				t0 = t
			}
		} else {
			if t < t0 {
				return false
			}
			if t < t1 {
				t1 = t
			}
		}
		return true
	}

	if !clip(-dx, x1-r.X) || !clip(dx, r.Right()-x1) ||
		!clip(-dy, y1-r.Y) || !clip(dy, r.Bottom()-y1) {
		return 0, 0, 0, 0, false
	}
	return x1 + t0*dx, y1 + t0*dy, x1 + t1*dx, y1 + t1*dy, true
}
