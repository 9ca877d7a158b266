package main

import "testing"

func TestTurretKillsCreditOwner(t *testing.T) {
	w := NewWorld(testConfig())
	owner := w.AddMarine("owner")
	tr := w.AddTurret(owner.ID, 100, 100, true)
	z := w.AddZombie(300, 105)
	z.Health = 5
	w.RebuildCollider()

	w.UpdateTurrets()
	if w.ZombieExists(z.ID) {
		t.Fatal("turret did not kill the zombie in range")
	}
	if owner.Kills != 1 || owner.Credits != w.cfg.Zombie.KillCredits {
		t.Errorf("owner kills=%d credits=%d", owner.Kills, owner.Credits)
	}
	if tr.Angle < 80 || tr.Angle > 100 {
		t.Errorf("turret angle = %.1f, want roughly 90", tr.Angle)
	}
	if tr.Gun.Clip != 99 {
		t.Errorf("clip = %d, want 99", tr.Gun.Clip)
	}
}

func TestTurretIgnoresOutOfRange(t *testing.T) {
	w := NewWorld(testConfig())
	tr := w.AddTurret(0, 100, 100, true)
	w.AddZombie(1000, 100)
	w.RebuildCollider()

	if res := tr.ScanArea(w); res.Fired {
		t.Error("fired at a zombie out of range")
	}
	if tr.Gun.Clip != 100 {
		t.Errorf("clip = %d, want 100", tr.Gun.Clip)
	}
}

func TestUnplacedTurretIdle(t *testing.T) {
	w := NewWorld(testConfig())
	tr := w.AddTurret(0, 100, 100, false)
	z := w.AddZombie(200, 100)
	w.RebuildCollider()

	w.UpdateTurrets()
	if z.Health != 100 || tr.Gun.Clip != 100 {
		t.Error("carried turret fired")
	}
}

func TestEmptyTurretRemoved(t *testing.T) {
	w := NewWorld(testConfig())
	tr := w.AddTurret(0, 100, 100, true)
	tr.Gun.Clip = 0
	tr.Gun.Ammo = 0
	w.RebuildCollider()

	w.UpdateTurrets()
	if _, ok := w.turrets[tr.ID]; ok {
		t.Error("empty turret still in the world")
	}
}

func TestTurretPickUpBoxReachesPastBody(t *testing.T) {
	tr := NewTurret(1, 0, 100, 100, testConfig().Turret, nil)
	body := tr.Bounds()
	reach := tr.PickUpHitBox().Rect
	if reach.X != body.X-pickUpReach || reach.Right() != body.Right()+pickUpReach {
		t.Errorf("pickup box %+v does not extend %d past body %+v", reach, pickUpReach, body)
	}
}

func TestTurretSkipsZombieKilledThisFrame(t *testing.T) {
	w := NewWorld(testConfig())
	tr := w.AddTurret(0, 100, 100, true)
	near := w.AddZombie(300, 105)
	far := w.AddZombie(100, 350)
	w.RebuildCollider()

	// killed after the trees were built, still present in them
	w.DeleteZombie(near.ID)

	res := tr.ScanArea(w)
	if !res.Fired {
		t.Fatal("turret did not fire at the remaining zombie")
	}
	if tr.Angle < 170 || tr.Angle > 190 {
		t.Errorf("turret angle = %.1f, want roughly 180", tr.Angle)
	}
	if far.Health != 90 {
		t.Errorf("far zombie hp = %d, want 90", far.Health)
	}
}

func TestZombieSwingDamagesTurret(t *testing.T) {
	w := NewWorld(testConfig())
	z := w.AddZombie(100, 100)
	z.Angle = 90
	tr := w.AddTurret(0, 150, 100, true)
	w.RebuildCollider()

	res := z.Attack(w)
	if res.Hits != 1 {
		t.Errorf("hits = %d, want 1", res.Hits)
	}
	if want := w.cfg.Turret.Health - 5; tr.Health != want {
		t.Errorf("turret hp = %d, want %d", tr.Health, want)
	}
}

func TestTurretDestroyed(t *testing.T) {
	tests := []struct {
		name    string
		health  int
		removed bool
	}{
		{"survives", 6, false},
		{"exactly zero", 5, true},
		{"overkill", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld(testConfig())
			m := w.AddMarine("carrier")
			tr := w.AddTurret(m.ID, 100, 100, false)
			m.Carrying = Carried{Kind: CarryTurret, ID: tr.ID}
			tr.Health = tt.health

			tr.TakeDamage(w, 5)
			if _, ok := w.turrets[tr.ID]; ok == tt.removed {
				t.Errorf("turret in world = %v, want %v", ok, !tt.removed)
			}
			if freed := m.Carrying.Kind == CarryNothing; freed != tt.removed {
				t.Errorf("carrier freed = %v, want %v", freed, tt.removed)
			}
		})
	}
}
