package model

import (
	"math"

	"github.com/udisondev/orbitwar/internal/vector"
)

// Kind tags the variant of an Entity.
type Kind uint8

const (
	KindShip Kind = iota + 1
	KindBullet
	KindAsteroid
	KindPlanet
)

// String returns the lowercase kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindShip:
		return "ship"
	case KindBullet:
		return "bullet"
	case KindAsteroid:
		return "asteroid"
	case KindPlanet:
		return "planet"
	default:
		return "unknown"
	}
}

// Entity is every simulated object in the universe.
// Kinematic fields are shared; exactly one payload pointer matching Kind is non-nil
// (asteroids carry no payload).
//
// Entities are owned by the simulation goroutine and are not safe for concurrent use.
type Entity struct {
	ID   uint64
	Kind Kind

	Position vector.Vec
	Velocity vector.Vec

	// PreviousPosition is the position at the start of the current macro tick.
	PreviousPosition vector.Vec

	// Radius is the collision radius (0 for point-like bullets).
	Radius float64

	Ship   *Ship
	Bullet *Bullet
	Planet *Planet
}

// Ship holds player-controlled state.
type Ship struct {
	Angle         float64
	PreviousAngle float64

	Accelerating bool
	Shooting     bool

	// Turn is the signed turn coefficient in [-1, 1]; multiplied by the configured turn rate.
	Turn float64

	// PendingTurn is the turn in effect before the latest turn intent.
	// It is applied for exactly one substep and then cleared.
	PendingTurn    float64
	HasPendingTurn bool

	ShootCooldown int
}

// Bullet is a short-lived projectile.
type Bullet struct {
	LifeTicks int
	OwnerID   uint64
}

// Planet is a gravity source.
// A planet with OrbitRadius > 0 moves kinematically around OrbitCenter.
type Planet struct {
	Mass    float64
	Primary bool

	OrbitCenter vector.Vec
	OrbitRadius float64
	OrbitSpeed  float64 // rad/s
	OrbitPhase  float64
}

// NewShip creates a ship at rest facing angle 0.
func NewShip(id uint64, pos vector.Vec, radius float64) *Entity {
	return &Entity{
		ID:               id,
		Kind:             KindShip,
		Position:         pos,
		PreviousPosition: pos,
		Radius:           radius,
		Ship:             &Ship{},
	}
}

// NewBullet creates a bullet owned by ownerID.
func NewBullet(id uint64, pos, vel vector.Vec, radius float64, lifeTicks int, ownerID uint64) *Entity {
	return &Entity{
		ID:               id,
		Kind:             KindBullet,
		Position:         pos,
		PreviousPosition: pos,
		Velocity:         vel,
		Radius:           radius,
		Bullet:           &Bullet{LifeTicks: lifeTicks, OwnerID: ownerID},
	}
}

// NewAsteroid creates an asteroid.
func NewAsteroid(id uint64, pos, vel vector.Vec, radius float64) *Entity {
	return &Entity{
		ID:               id,
		Kind:             KindAsteroid,
		Position:         pos,
		PreviousPosition: pos,
		Velocity:         vel,
		Radius:           radius,
	}
}

// NewPlanet creates a static planet whose mass is density * radius³.
func NewPlanet(id uint64, pos vector.Vec, radius, density float64, primary bool) *Entity {
	return &Entity{
		ID:               id,
		Kind:             KindPlanet,
		Position:         pos,
		PreviousPosition: pos,
		Radius:           radius,
		Planet: &Planet{
			Mass:    PlanetMass(radius, density),
			Primary: primary,
		},
	}
}

// PlanetMass returns density * radius³.
func PlanetMass(radius, density float64) float64 {
	return density * radius * radius * radius
}

// GravitySource returns the mass of the entity when it attracts other bodies.
func (e *Entity) GravitySource() (float64, bool) {
	if e.Kind != KindPlanet || e.Planet == nil {
		return 0, false
	}
	return e.Planet.Mass, true
}

// Moving reports whether the integrator advances this entity.
func (e *Entity) Moving() bool {
	return e.Kind == KindShip || e.Kind == KindBullet || e.Kind == KindAsteroid
}

// CapturePrevious records the tick-start state used for render interpolation.
func (e *Entity) CapturePrevious() {
	e.PreviousPosition = e.Position
	if e.Ship != nil {
		e.Ship.PreviousAngle = e.Ship.Angle
	}
}

// SetTurn records a new turn coefficient, keeping the old one pending for one substep.
// Values are clamped to [-1, 1]; NaN and infinities become 0.
func (s *Ship) SetTurn(turn float64) {
	s.PendingTurn = s.Turn
	s.HasPendingTurn = true
	s.Turn = ClampTurn(turn)
}

// ConsumeTurn returns the turn coefficient for the current substep.
func (s *Ship) ConsumeTurn() float64 {
	if s.HasPendingTurn {
		s.HasPendingTurn = false
		return s.PendingTurn
	}
	return s.Turn
}

// ClampTurn bounds a client turn coefficient to [-1, 1].
func ClampTurn(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
