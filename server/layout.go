package main

// Populate lays out the default map around the base: two stores flanking
// it, wall segments in each quadrant and a few crates.
func (w *World) Populate() {
	W, H := w.cfg.World.Width, w.cfg.World.Height
	cx, cy := w.base.Center()
	half := w.cfg.World.BaseSize / 2

	items := []string{ItemTurret, ItemBarricade}
	for _, s := range w.cfg.Weapons {
		if s.Price > 0 {
			items = append(items, s.Name)
		}
	}
	gap := half + 50
	w.AddStore(cx-gap-storeSize, cy-storeSize/2, items)
	w.AddStore(cx+gap, cy-storeSize/2, items)

	for _, q := range [][2]float64{{0.25, 0.25}, {0.75, 0.25}, {0.25, 0.75}, {0.75, 0.75}} {
		x, y := W*q[0], H*q[1]
		w.AddWall(x-150, y-20, 300, 40)
		w.AddWall(x-20, y+20, 40, 160)
	}

	for _, p := range [][2]float64{{0.5, 0.2}, {0.5, 0.8}, {0.2, 0.5}, {0.8, 0.5}} {
		w.AddObject(W*p[0]-30, H*p[1]-30, 60, 60)
	}
}
