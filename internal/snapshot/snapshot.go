package snapshot

import (
	"math"
	"strconv"

	"github.com/udisondev/orbitwar/internal/model"
	"github.com/udisondev/orbitwar/internal/physics"
	"github.com/udisondev/orbitwar/internal/world"
)

// angleDecimals is the fixed precision of ship angles on the wire. Angles are
// not wrapped on the server, so significant digits would lose precision as
// they grow.
const angleDecimals = 4

// ShipState is the wire form of a ship.
type ShipState struct {
	ID           uint64  `json:"id" msgpack:"id"`
	X            float64 `json:"x" msgpack:"x"`
	Y            float64 `json:"y" msgpack:"y"`
	Angle        float64 `json:"a" msgpack:"a"`
	Accelerating bool    `json:"acc" msgpack:"acc"`
}

// BulletState is the wire form of a bullet.
type BulletState struct {
	ID uint64  `json:"id" msgpack:"id"`
	X  float64 `json:"x" msgpack:"x"`
	Y  float64 `json:"y" msgpack:"y"`
}

// AsteroidState is the wire form of an asteroid.
type AsteroidState struct {
	ID     uint64  `json:"id" msgpack:"id"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Radius float64 `json:"r" msgpack:"r"`
}

// PlanetState is the wire form of a planet.
type PlanetState struct {
	ID     uint64  `json:"id" msgpack:"id"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Radius float64 `json:"r" msgpack:"r"`
}

// Snapshot is the state of the universe after one macro tick.
// Slices are in ascending id order.
type Snapshot struct {
	Tick      uint64          `json:"tick" msgpack:"tick"`
	Ships     []ShipState     `json:"ships" msgpack:"ships"`
	Bullets   []BulletState   `json:"bullets" msgpack:"bullets"`
	Asteroids []AsteroidState `json:"asteroids" msgpack:"asteroids"`
	Planets   []PlanetState   `json:"planets" msgpack:"planets"`
}

// Build captures the world. Coordinates and radii are rounded to digits
// significant digits and angles to a fixed number of decimals (digits <= 0 keeps
// full precision). Rounded coordinates are wrapped back into [0, size).
func Build(w *world.World, tick uint64, digits int) *Snapshot {
	ships := w.Ships()
	bullets := w.Bullets()
	asteroids := w.Asteroids()
	planets := w.Planets()

	s := &Snapshot{
		Tick:      tick,
		Ships:     make([]ShipState, 0, len(ships)),
		Bullets:   make([]BulletState, 0, len(bullets)),
		Asteroids: make([]AsteroidState, 0, len(asteroids)),
		Planets:   make([]PlanetState, 0, len(planets)),
	}
	size := w.Size()
	round := func(v float64) float64 { return RoundSignificant(v, digits) }
	coord := func(v float64) float64 { return physics.Wrap(round(v), size) }

	for _, e := range ships {
		st := ShipState{ID: e.ID, X: coord(e.Position.X), Y: coord(e.Position.Y)}
		if e.Ship != nil {
			st.Angle = e.Ship.Angle
			if digits > 0 {
				st.Angle = RoundDecimals(e.Ship.Angle, angleDecimals)
			}
			st.Accelerating = e.Ship.Accelerating
		}
		s.Ships = append(s.Ships, st)
	}
	for _, e := range bullets {
		s.Bullets = append(s.Bullets, BulletState{ID: e.ID, X: coord(e.Position.X), Y: coord(e.Position.Y)})
	}
	for _, e := range asteroids {
		s.Asteroids = append(s.Asteroids, AsteroidState{
			ID: e.ID, X: coord(e.Position.X), Y: coord(e.Position.Y), Radius: round(e.Radius),
		})
	}
	for _, e := range planets {
		s.Planets = append(s.Planets, PlanetState{
			ID: e.ID, X: coord(e.Position.X), Y: coord(e.Position.Y), Radius: round(e.Radius),
		})
	}
	return s
}

// Len returns the total number of entities in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.Ships) + len(s.Bullets) + len(s.Asteroids) + len(s.Planets)
}

// Kind reports which category an id belongs to in this snapshot.
func (s *Snapshot) Kind(id uint64) (model.Kind, bool) {
	for _, e := range s.Ships {
		if e.ID == id {
			return model.KindShip, true
		}
	}
	for _, e := range s.Bullets {
		if e.ID == id {
			return model.KindBullet, true
		}
	}
	for _, e := range s.Asteroids {
		if e.ID == id {
			return model.KindAsteroid, true
		}
	}
	for _, e := range s.Planets {
		if e.ID == id {
			return model.KindPlanet, true
		}
	}
	return 0, false
}

// RoundSignificant rounds v to digits significant digits.
// Zero, non-finite values and digits <= 0 are returned unchanged.
func RoundSignificant(v float64, digits int) float64 {
	if digits <= 0 || v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', digits, 64), 64)
	if err != nil {
		return v
	}
	return r
}

// RoundDecimals rounds v to decimals places after the point.
// Non-finite values and decimals < 0 are returned unchanged.
func RoundDecimals(v float64, decimals int) float64 {
	if decimals < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', decimals, 64), 64)
	if err != nil {
		return v
	}
	return r
}
