package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of a zombie-defence server
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Server    ServerConfig    `yaml:"server"`
	Zombie    ZombieConfig    `yaml:"zombie"`
	Marine    MarineConfig    `yaml:"marine"`
	Turret    TurretConfig    `yaml:"turret"`
	Barricade BarricadeConfig `yaml:"barricade"`
	Waves     WaveConfig      `yaml:"waves"`
	Weapons   []WeaponSpec    `yaml:"weapons"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Debug     bool            `yaml:"debug"` // enables collision debug logging
}

// WorldConfig describes the playable rectangle and the base at its center
type WorldConfig struct {
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	BaseSize float64 `yaml:"base_size"`
	BaseHP   int     `yaml:"base_hp"`
	Workers  int     `yaml:"workers"` // goroutines per line query, 0 = GOMAXPROCS
	Seed     int64   `yaml:"seed"`    // 0 = time based
}

// ServerConfig holds loop rates and session limits
type ServerConfig struct {
	TickRate      int    `yaml:"tick_rate"`
	BroadcastRate int    `yaml:"broadcast_rate"`
	MaxSessions   int    `yaml:"max_sessions"`
	MaxMarines    int    `yaml:"max_marines"`
	MaxZombies    int    `yaml:"max_zombies"`
	PublicURL     string `yaml:"public_url"` // encoded into /qr
}

// ZombieConfig tunes zombie bodies and AI
type ZombieConfig struct {
	Width           float64 `yaml:"width"`
	Height          float64 `yaml:"height"`
	Health          int     `yaml:"health"`
	Velocity        float64 `yaml:"velocity"` // units per frame
	Sight           float64 `yaml:"sight"`
	AngleUpdateRate int     `yaml:"angle_update_rate"` // frames between re-aims
	IgnoreTime      int     `yaml:"ignore_time"`       // re-aims skipped while avoiding
	PartialRotation float64 `yaml:"partial_rotation"`  // degrees nudged per blocked axis
	Weapon          string  `yaml:"weapon"`
	KillCredits     int     `yaml:"kill_credits"`
}

// MarineConfig tunes player bodies
type MarineConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	Health       int     `yaml:"health"`
	Velocity     float64 `yaml:"velocity"`
	StartCredits int     `yaml:"start_credits"`
	StartWeapon  string  `yaml:"start_weapon"`
	Slots        int     `yaml:"slots"`
}

// TurretConfig tunes placeable turrets
type TurretConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Range  float64 `yaml:"range"`
	Health int     `yaml:"health"`
	Weapon string  `yaml:"weapon"`
	Price  int     `yaml:"price"`
}

// BarricadeConfig tunes placeable barricades
type BarricadeConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Health int     `yaml:"health"`
	Price  int     `yaml:"price"`
}

// WaveConfig controls automatic zombie spawning
type WaveConfig struct {
	Interval time.Duration `yaml:"interval"`
	Size     int           `yaml:"size"`
	Growth   int           `yaml:"growth"` // extra zombies per wave
}

// DatabaseConfig locates the sqlite file
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig controls operator tokens
type AuthConfig struct {
	TokenExpiry   time.Duration `yaml:"token_expiry"`
	AdminUser     string        `yaml:"admin_user"`
	AdminPassword string        `yaml:"admin_password"`
}

// WeaponKind selects how a weapon resolves a shot
type WeaponKind string

const (
	WeaponInstant WeaponKind = "instant" // single hitscan line
	WeaponShotgun WeaponKind = "shotgun" // several deviated lines
	WeaponHand    WeaponKind = "hand"    // melee swing box
)

// WeaponSpec is one row of the weapon table. Delays are in milliseconds of
// simulated time.
type WeaponSpec struct {
	Name        string     `yaml:"name"`
	Kind        WeaponKind `yaml:"kind"`
	Range       float64    `yaml:"range"`
	Damage      int        `yaml:"damage"`
	Penetration int        `yaml:"penetration"`
	Accuracy    int        `yaml:"accuracy"` // spread in degrees
	Clip        int        `yaml:"clip"`     // 0 = never reloads
	Ammo        int        `yaml:"ammo"`
	ReloadDelay int64      `yaml:"reload_delay"`
	FireDelay   int64      `yaml:"fire_delay"`
	Pellets     int        `yaml:"pellets"`
	Price       int        `yaml:"price"`
}

// DefaultConfig returns a playable configuration
func DefaultConfig() Config {
	return Config{
		World: WorldConfig{
			Width:    4000,
			Height:   4000,
			BaseSize: 200,
			BaseHP:   1000,
		},
		Server: ServerConfig{
			TickRate:      60,
			BroadcastRate: 30,
			MaxSessions:   100,
			MaxMarines:    20,
			MaxZombies:    500,
			PublicURL:     "http://localhost:8080",
		},
		Zombie: ZombieConfig{
			Width:           50,
			Height:          50,
			Health:          100,
			Velocity:        2,
			Sight:           500,
			AngleUpdateRate: 15,
			IgnoreTime:      5,
			PartialRotation: 63,
			Weapon:          "zombie_hand",
			KillCredits:     10,
		},
		Marine: MarineConfig{
			Width:        50,
			Height:       50,
			Health:       100,
			Velocity:     5,
			StartCredits: 0,
			StartWeapon:  "rifle",
			Slots:        3,
		},
		Turret: TurretConfig{
			Width:  60,
			Height: 60,
			Range:  400,
			Health: 200,
			Weapon: "turret_gun",
			Price:  500,
		},
		Barricade: BarricadeConfig{
			Width:  100,
			Height: 30,
			Health: 300,
			Price:  100,
		},
		Waves: WaveConfig{
			Interval: 30 * time.Second,
			Size:     10,
			Growth:   5,
		},
		Weapons: []WeaponSpec{
			{Name: "rifle", Kind: WeaponInstant, Range: 800, Damage: 25, Penetration: 1, Accuracy: 8,
				Clip: 30, Ammo: 180, ReloadDelay: 2000, FireDelay: 100},
			{Name: "shotgun", Kind: WeaponShotgun, Range: 400, Damage: 15, Penetration: 0, Accuracy: 30,
				Clip: 8, Ammo: 48, ReloadDelay: 2500, FireDelay: 700, Pellets: 6, Price: 300},
			{Name: "sniper", Kind: WeaponInstant, Range: 1600, Damage: 90, Penetration: 3, Accuracy: 2,
				Clip: 5, Ammo: 30, ReloadDelay: 3000, FireDelay: 1200, Price: 600},
			{Name: "zombie_hand", Kind: WeaponHand, Range: 60, Damage: 5, FireDelay: 500},
			{Name: "turret_gun", Kind: WeaponInstant, Range: 400, Damage: 10, Accuracy: 6,
				Clip: 100, Ammo: 200, ReloadDelay: 3000, FireDelay: 200},
		},
		Database: DatabaseConfig{Path: "zombies.db"},
		Auth: AuthConfig{
			TokenExpiry: 24 * time.Hour,
			AdminUser:   "admin",
		},
	}
}

// LoadConfig reads a YAML file over the defaults and validates the result
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the values a running world depends on
func (c *Config) Validate() error {
	var errs []error
	if c.World.Width <= 0 || c.World.Height <= 0 {
		errs = append(errs, errors.New("world size must be positive"))
	}
	if c.World.BaseSize <= 0 || c.World.BaseSize >= c.World.Width || c.World.BaseSize >= c.World.Height {
		errs = append(errs, errors.New("base must fit inside the world"))
	}
	if c.Server.TickRate <= 0 || c.Server.BroadcastRate <= 0 || c.Server.BroadcastRate > c.Server.TickRate {
		errs = append(errs, errors.New("broadcast rate must be in (0, tick rate]"))
	}
	if c.Zombie.AngleUpdateRate <= 0 {
		errs = append(errs, errors.New("zombie angle_update_rate must be positive"))
	}
	if c.Zombie.IgnoreTime < 1 {
		errs = append(errs, errors.New("zombie ignore_time must be at least 1"))
	}
	if c.Turret.Health <= 0 || c.Barricade.Health <= 0 {
		errs = append(errs, errors.New("turret and barricade health must be positive"))
	}
	if c.Marine.Slots < 1 {
		errs = append(errs, errors.New("marine needs at least one weapon slot"))
	}

	seen := make(map[string]bool, len(c.Weapons))
	for _, w := range c.Weapons {
		if w.Name == "" {
			errs = append(errs, errors.New("weapon without a name"))
			continue
		}
		if seen[w.Name] {
			errs = append(errs, fmt.Errorf("duplicate weapon %q", w.Name))
		}
		seen[w.Name] = true
		switch w.Kind {
		case WeaponInstant, WeaponShotgun, WeaponHand:
		default:
			errs = append(errs, fmt.Errorf("weapon %q: unknown kind %q", w.Name, w.Kind))
		}
		if w.Range <= 0 {
			errs = append(errs, fmt.Errorf("weapon %q: range must be positive", w.Name))
		}
		if w.Penetration < 0 || w.Accuracy < 0 || w.Clip < 0 || w.Ammo < 0 {
			errs = append(errs, fmt.Errorf("weapon %q: negative stat", w.Name))
		}
	}
	for _, ref := range []struct{ who, name string }{
		{"zombie", c.Zombie.Weapon},
		{"marine", c.Marine.StartWeapon},
		{"turret", c.Turret.Weapon},
	} {
		if !seen[ref.name] {
			errs = append(errs, fmt.Errorf("%s weapon %q not in weapon table", ref.who, ref.name))
		}
	}
	return errors.Join(errs...)
}

// Weapon looks up a weapon row by name
func (c *Config) Weapon(name string) (WeaponSpec, bool) {
	for _, w := range c.Weapons {
		if w.Name == name {
			return w, true
		}
	}
	return WeaponSpec{}, false
}

// TickDuration is the wall time of one frame
func (c *Config) TickDuration() time.Duration {
	return time.Second / time.Duration(c.Server.TickRate)
}

// BroadcastEvery is the number of frames between state snapshots
func (c *Config) BroadcastEvery() uint64 {
	return uint64(c.Server.TickRate / c.Server.BroadcastRate)
}
