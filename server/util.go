package main

import (
	"math"

	"zombie-server/collision"
)

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Distance returns the distance between two points
func Distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}

// NormalizeDegrees wraps a heading to [0, 360)
func NormalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}

// HeadingTo returns the heading from (x1,y1) to (x2,y2). Headings are in
// degrees with 0 pointing up and 90 pointing along +x.
func HeadingTo(x1, y1, x2, y2 float64) float64 {
	return NormalizeDegrees(math.Atan2(y2-y1, x2-x1)*180/math.Pi + 90)
}

// Step returns the per-frame displacement for a heading and speed
func Step(heading, speed float64) (float64, float64) {
	return collision.LineEnd(0, 0, heading, speed)
}

// clampToWorld keeps an entity's body inside the world rectangle
func clampToWorld(e *collision.Entity, world collision.Rect) {
	x := Clamp(e.X, world.X, world.Right()-e.W)
	y := Clamp(e.Y, world.Y, world.Bottom()-e.H)
	if x != e.X || y != e.Y {
		e.SetPosition(x, y)
	}
}

// round1 rounds to one decimal place for compact state frames
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
