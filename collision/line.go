package collision

import (
	"math"

	"golang.org/x/sync/errgroup"
)

// LineEnd returns the point rng away from (x, y) along angle, in degrees with
// 0 pointing up and 90 pointing along +x.
func LineEnd(x, y, angle, rng float64) (float64, float64) {
	rad := (angle - 90) * math.Pi / 180
	return x + rng*math.Cos(rad), y + rng*math.Sin(rad)
}

// DetectLineCollision casts a segment from the origin along angle for rng
// units and adds a Target to tl for every zombie and wall whose projectile
// hitbox it crosses. tl's origin and end are set to the segment.
func (h *Handler) DetectLineCollision(tl *TargetList, originX, originY, angle, rng float64) {
	endX, endY := LineEnd(originX, originY, angle, rng)
	tl.OriginX, tl.OriginY = originX, originY
	tl.EndX, tl.EndY = endX, endY

	bounds := SegmentBounds(originX, originY, endX, endY)
	zombies := h.trees[CategoryZombie].RetrieveRect(bounds)
	walls := h.trees[CategoryWall].RetrieveRect(bounds)

	var g errgroup.Group
	g.SetLimit(h.workers)
	h.checkForTargets(&g, tl, zombies, CategoryZombie, originX, originY, endX, endY)
	h.checkForTargets(&g, tl, walls, CategoryWall, originX, originY, endX, endY)
	g.Wait()

	logf("line (%.1f,%.1f)->(%.1f,%.1f): %d targets", originX, originY, endX, endY, tl.Len())
}

// checkForTargets schedules one segment/hitbox test per candidate
func (h *Handler) checkForTargets(g *errgroup.Group, tl *TargetList, candidates []Entry,
	cat Category, x1, y1, x2, y2 float64) {
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			box := c.HitBoxes[KindProjectile].Rect
			hx, hy, _, _, ok := box.ClipSegment(x1, y1, x2, y2)
			if !ok {
				return nil
			}
			tl.Add(Target{
				ID:       c.ID,
				Type:     cat,
				HitX:     hx,
				HitY:     hy,
				Distance: math.Hypot(hx-x1, hy-y1),
			})
			return nil
		})
	}
}
