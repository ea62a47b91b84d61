package config

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Sentinel errors returned by Validate.
var (
	ErrInvalidRate     = errors.New("invalid tick rate")
	ErrInvalidUniverse = errors.New("invalid universe size")
	ErrInvalidRadius   = errors.New("invalid radius")
	ErrInvalidPlanet   = errors.New("invalid planet")
	ErrInvalidDigits   = errors.New("invalid snapshot precision")
	ErrInvalidCodec    = errors.New("invalid codec")
	ErrInvalidLevel    = errors.New("invalid log level")
)

// PlanetConfig describes one gravity source created at world init.
// A planet with OrbitRadius > 0 circles the primary planet's position.
type PlanetConfig struct {
	X       float64 `yaml:"x"`
	Y       float64 `yaml:"y"`
	Radius  float64 `yaml:"radius"`
	Primary bool    `yaml:"primary"`

	OrbitRadius float64 `yaml:"orbit_radius"`
	OrbitSpeed  float64 `yaml:"orbit_speed"` // rad/s
	OrbitPhase  float64 `yaml:"orbit_phase"` // rad
}

// Simulation holds the physics and gameplay constants.
// Not reconfigurable at runtime: read once at startup.
type Simulation struct {
	// Timing
	UpdatesPerSecond int `yaml:"updates_per_second"`
	StepsPerUpdate   int `yaml:"steps_per_update"`

	// Universe
	UniverseSize  float64        `yaml:"universe_size"`
	G             float64        `yaml:"gravitational_constant"`
	PlanetDensity float64        `yaml:"planet_density"` // mass = density * radius³
	Planets       []PlanetConfig `yaml:"planets"`

	// Asteroids
	AsteroidCount     int     `yaml:"asteroid_count"`
	AsteroidOrbitMin  float64 `yaml:"asteroid_orbit_min"`
	AsteroidOrbitMax  float64 `yaml:"asteroid_orbit_max"`
	AsteroidRadiusMin float64 `yaml:"asteroid_radius_min"`
	AsteroidRadiusMax float64 `yaml:"asteroid_radius_max"`
	MinAsteroidRadius float64 `yaml:"min_asteroid_radius"` // below this a hit destroys instead of splitting
	SplitKick         float64 `yaml:"split_kick"`          // max random velocity change on split

	// Ships and bullets
	ShipRadius        float64 `yaml:"ship_radius"`
	BulletRadius      float64 `yaml:"bullet_radius"`
	SpawnOrbitRadius  float64 `yaml:"spawn_orbit_radius"`
	MaxSpeed          float64 `yaml:"max_speed"` // 0 disables the clamp
	Thrust            float64 `yaml:"thrust"`
	TurnRate          float64 `yaml:"turn_rate"` // rad/s at full turn
	MuzzleSpeed       float64 `yaml:"muzzle_speed"`
	BulletLifeSeconds int     `yaml:"bullet_life_seconds"`
	ShotsPerSecond    int     `yaml:"shots_per_second"`

	// Snapshot
	SnapshotDigits int `yaml:"snapshot_digits"` // significant digits of coordinates

	// Seed for the simulation RNG (0 = time based).
	Seed uint64 `yaml:"seed"`
}

// DefaultSimulation returns the classic single-sun arena.
func DefaultSimulation() Simulation {
	return Simulation{
		UpdatesPerSecond: 10,
		StepsPerUpdate:   4,
		UniverseSize:     200,
		G:                1,
		PlanetDensity:    1,
		Planets: []PlanetConfig{
			{X: 100, Y: 100, Radius: 10, Primary: true},
		},
		AsteroidCount:     100,
		AsteroidOrbitMin:  45,
		AsteroidOrbitMax:  55,
		AsteroidRadiusMin: 0.25,
		AsteroidRadiusMax: 0.75,
		MinAsteroidRadius: 0.2,
		SplitKick:         1,
		ShipRadius:        0.4,
		BulletRadius:      0,
		SpawnOrbitRadius:  60,
		MaxSpeed:          50,
		Thrust:            5,
		TurnRate:          math.Pi,
		MuzzleSpeed:       12,
		BulletLifeSeconds: 5,
		ShotsPerSecond:    5,
		SnapshotDigits:    5,
	}
}

// Dt returns the integration substep in seconds: 1 / (updatesPerSecond * stepsPerUpdate).
func (s Simulation) Dt() float64 {
	return 1 / float64(s.UpdatesPerSecond*s.StepsPerUpdate)
}

// TickInterval returns the wall-clock duration of one macro tick.
func (s Simulation) TickInterval() time.Duration {
	return time.Second / time.Duration(s.UpdatesPerSecond)
}

// BulletLifeTicks returns bullet life in substeps.
func (s Simulation) BulletLifeTicks() int {
	return s.BulletLifeSeconds * s.UpdatesPerSecond * s.StepsPerUpdate
}

// ShootCooldownTicks returns the macro ticks between two shots (at least 1).
func (s Simulation) ShootCooldownTicks() int {
	if s.ShotsPerSecond <= 0 {
		return s.UpdatesPerSecond
	}
	return max(1, s.UpdatesPerSecond/s.ShotsPerSecond)
}

// Validate checks invariants the simulation relies on.
func (s Simulation) Validate() error {
	if s.UpdatesPerSecond <= 0 || s.StepsPerUpdate <= 0 {
		return fmt.Errorf("updates_per_second=%d steps_per_update=%d: %w",
			s.UpdatesPerSecond, s.StepsPerUpdate, ErrInvalidRate)
	}
	if !(s.UniverseSize > 0) || math.IsInf(s.UniverseSize, 0) {
		return fmt.Errorf("universe_size=%v: %w", s.UniverseSize, ErrInvalidUniverse)
	}
	if s.ShipRadius < 0 || s.BulletRadius < 0 || s.MinAsteroidRadius < 0 {
		return fmt.Errorf("ship/bullet/min asteroid radius must be >= 0: %w", ErrInvalidRadius)
	}
	if s.AsteroidRadiusMin < 0 || s.AsteroidRadiusMax < s.AsteroidRadiusMin {
		return fmt.Errorf("asteroid radius range [%v, %v]: %w",
			s.AsteroidRadiusMin, s.AsteroidRadiusMax, ErrInvalidRadius)
	}
	if s.AsteroidOrbitMax < s.AsteroidOrbitMin {
		return fmt.Errorf("asteroid orbit range [%v, %v]: %w",
			s.AsteroidOrbitMin, s.AsteroidOrbitMax, ErrInvalidRadius)
	}
	primaries := 0
	for i, p := range s.Planets {
		if p.Radius <= 0 {
			return fmt.Errorf("planet %d radius=%v: %w", i, p.Radius, ErrInvalidPlanet)
		}
		if p.Primary {
			primaries++
		}
	}
	if primaries > 1 {
		return fmt.Errorf("%d primary planets: %w", primaries, ErrInvalidPlanet)
	}
	if s.SnapshotDigits <= 0 || s.SnapshotDigits > 17 {
		return fmt.Errorf("snapshot_digits=%d: %w", s.SnapshotDigits, ErrInvalidDigits)
	}
	return nil
}
