package spawn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/udisondev/orbitwar/internal/config"
	"github.com/udisondev/orbitwar/internal/model"
	"github.com/udisondev/orbitwar/internal/physics"
	"github.com/udisondev/orbitwar/internal/vector"
	"github.com/udisondev/orbitwar/internal/world"
)

// Spawner creates world content: planets and asteroids at init, ships on join,
// and places ships back on a stable orbit after a fatal collision.
type Spawner struct {
	cfg config.Simulation
	rng *rand.Rand
}

// NewSpawner creates a spawner drawing randomness from rng.
func NewSpawner(cfg config.Simulation, rng *rand.Rand) *Spawner {
	return &Spawner{cfg: cfg, rng: rng}
}

// NewRand returns the simulation RNG for a seed (0 = seeded from runtime entropy).
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Rand exposes the shared RNG (collision split kicks use the same stream).
func (s *Spawner) Rand() *rand.Rand {
	return s.rng
}

// Populate adds configured planets, then asteroids on circular orbits around the primary planet.
func (s *Spawner) Populate(w *world.World) error {
	if err := s.addPlanets(w); err != nil {
		return err
	}
	for range s.cfg.AsteroidCount {
		if _, err := s.addAsteroid(w); err != nil {
			return err
		}
	}
	return nil
}

func (s *Spawner) addPlanets(w *world.World) error {
	// Primary first so orbiting planets can circle its position.
	ordered := make([]config.PlanetConfig, 0, len(s.cfg.Planets))
	for _, pc := range s.cfg.Planets {
		if pc.Primary {
			ordered = append(ordered, pc)
		}
	}
	for _, pc := range s.cfg.Planets {
		if !pc.Primary {
			ordered = append(ordered, pc)
		}
	}

	for _, pc := range ordered {
		pos := vector.New(pc.X, pc.Y)
		p := model.NewPlanet(w.NextID(), pos, pc.Radius, s.cfg.PlanetDensity, pc.Primary)
		if pc.OrbitRadius > 0 {
			center := pos
			if primary := w.PrimaryPlanet(); primary != nil {
				center = primary.Position
			}
			p.Planet.OrbitCenter = center
			p.Planet.OrbitRadius = pc.OrbitRadius
			p.Planet.OrbitSpeed = pc.OrbitSpeed
			p.Planet.OrbitPhase = pc.OrbitPhase
			p.Position = physics.WrapVec(center.Add(vector.FromAngle(pc.OrbitPhase, pc.OrbitRadius)), w.Size())
			p.PreviousPosition = p.Position
		}
		if err := w.Add(p); err != nil {
			return fmt.Errorf("adding planet: %w", err)
		}
	}
	return nil
}

func (s *Spawner) addAsteroid(w *world.World) (*model.Entity, error) {
	radius := s.between(s.cfg.AsteroidRadiusMin, s.cfg.AsteroidRadiusMax)

	var pos, vel vector.Vec
	if primary := w.PrimaryPlanet(); primary != nil {
		orbit := s.between(s.cfg.AsteroidOrbitMin, s.cfg.AsteroidOrbitMax)
		angle := s.rng.Float64() * 2 * math.Pi
		pos, vel = s.orbitState(primary, angle, orbit)
	} else {
		pos = s.randomPoint(w.Size())
	}

	a := model.NewAsteroid(w.NextID(), physics.WrapVec(pos, w.Size()), vel, radius)
	if err := w.Add(a); err != nil {
		return nil, fmt.Errorf("adding asteroid: %w", err)
	}
	return a, nil
}

// NewShip creates a ship, places it on the spawn orbit and adds it to the world.
func (s *Spawner) NewShip(w *world.World) (*model.Entity, error) {
	ship := model.NewShip(w.NextID(), vector.Vec{}, s.cfg.ShipRadius)
	s.Respawn(w, ship)
	if err := w.Add(ship); err != nil {
		return nil, fmt.Errorf("adding ship: %w", err)
	}
	return ship, nil
}

// Respawn resets a ship in place (same ID) onto a circular orbit around the primary planet:
// random angle θ, position center + r·dir(θ), facing inward (θ + π),
// tangential speed sqrt(G·m/r). Intent fields are left as they are.
// Without planets the ship is dropped at a random point at rest.
func (s *Spawner) Respawn(w *world.World, ship *model.Entity) {
	angle := s.rng.Float64() * 2 * math.Pi

	primary := w.PrimaryPlanet()
	if primary == nil {
		ship.Position = s.randomPoint(w.Size())
		ship.Velocity = vector.Vec{}
	} else {
		pos, vel := s.orbitState(primary, angle, s.cfg.SpawnOrbitRadius)
		ship.Position = physics.WrapVec(pos, w.Size())
		ship.Velocity = vel
	}

	ship.PreviousPosition = ship.Position
	if ship.Ship != nil {
		ship.Ship.Angle = angle + math.Pi
		ship.Ship.PreviousAngle = ship.Ship.Angle
	}
}

// orbitState returns position and velocity of a circular orbit around planet at angle and radius.
// The planet's own velocity is added so the orbit is circular in the planet's frame.
func (s *Spawner) orbitState(planet *model.Entity, angle, radius float64) (vector.Vec, vector.Vec) {
	mass, _ := planet.GravitySource()
	pos := planet.Position.Add(vector.FromAngle(angle, radius))
	speed := physics.CircularOrbitSpeed(s.cfg.G, mass, radius)
	vel := vector.FromAngle(angle+math.Pi/2, speed).Add(planet.Velocity)
	return pos, vel
}

func (s *Spawner) between(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *Spawner) randomPoint(size float64) vector.Vec {
	return vector.New(s.rng.Float64()*size, s.rng.Float64()*size)
}
