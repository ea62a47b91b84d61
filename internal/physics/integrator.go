package physics

import (
	"math"

	"github.com/udisondev/orbitwar/internal/config"
	"github.com/udisondev/orbitwar/internal/model"
	"github.com/udisondev/orbitwar/internal/vector"
	"github.com/udisondev/orbitwar/internal/world"
)

// Integrator advances moving bodies under planetary gravity.
//
// Semi-implicit Euler: velocity is updated before position, which keeps
// circular orbits bounded over long runs.
type Integrator struct {
	G        float64
	Thrust   float64
	MaxSpeed float64 // 0 disables the clamp
}

// NewIntegrator builds an integrator from simulation config.
func NewIntegrator(cfg config.Simulation) *Integrator {
	return &Integrator{
		G:        cfg.G,
		Thrust:   cfg.Thrust,
		MaxSpeed: cfg.MaxSpeed,
	}
}

// Acceleration returns the gravitational acceleration on body from every other planet:
// Σ G·m / d², directed from body toward the planet.
func (in *Integrator) Acceleration(w *world.World, body *model.Entity) vector.Vec {
	var acc vector.Vec
	for _, p := range w.Planets() {
		if p.ID == body.ID {
			continue
		}
		mass, ok := p.GravitySource()
		if !ok {
			continue
		}
		dir := p.Position.Sub(body.Position)
		d2 := dir.LengthSquared()
		if d2 == 0 {
			continue
		}
		acc = acc.Add(dir.Normalize().Scale(in.G * mass / d2))
	}
	return acc
}

// IntegrateStep advances every ship, bullet and asteroid by one substep of dt seconds.
func (in *Integrator) IntegrateStep(w *world.World, dt float64) {
	size := w.Size()
	for _, e := range w.Moving() {
		acc := in.Acceleration(w, e)
		if e.Ship != nil && e.Ship.Accelerating {
			acc = acc.Add(vector.FromAngle(e.Ship.Angle, in.Thrust))
		}

		e.Velocity = e.Velocity.Add(acc.Scale(dt))
		if in.MaxSpeed > 0 {
			e.Velocity = ClampSpeed(e.Velocity, in.MaxSpeed)
		}

		moved := e.Position.Add(e.Velocity.Scale(dt))
		wrapped := WrapVec(moved, size)

		// Keep the tick-start sample in the same frame as the wrapped position.
		e.PreviousPosition = e.PreviousPosition.Add(wrapped.Sub(moved))
		e.Position = wrapped
	}
}

// AdvancePlanets moves orbiting planets along their circle. Static planets are untouched.
func AdvancePlanets(w *world.World, dt float64) {
	size := w.Size()
	for _, p := range w.Planets() {
		pl := p.Planet
		if pl == nil || pl.OrbitRadius <= 0 {
			continue
		}
		pl.OrbitPhase = math.Mod(pl.OrbitPhase+pl.OrbitSpeed*dt, 2*math.Pi)
		p.Position = WrapVec(pl.OrbitCenter.Add(vector.FromAngle(pl.OrbitPhase, pl.OrbitRadius)), size)
		p.Velocity = vector.FromAngle(pl.OrbitPhase+math.Pi/2, pl.OrbitSpeed*pl.OrbitRadius)
	}
}

// ClampSpeed rescales v to max when |v| > max, keeping its direction.
func ClampSpeed(v vector.Vec, max float64) vector.Vec {
	speed := v.Length()
	if speed <= max || speed == 0 {
		return v
	}
	return v.Scale(max / speed)
}

// CircularOrbitSpeed returns the speed of a circular orbit of radius r around mass.
func CircularOrbitSpeed(g, mass, r float64) float64 {
	if r <= 0 {
		return 0
	}
	return math.Sqrt(g * mass / r)
}

// Wrap maps v into [0, size) by repeated add/subtract of size.
// Far-out values are first reduced with math.Mod so the loops run O(1) times.
// Non-finite input or a non-positive size is returned unchanged.
func Wrap(v, size float64) float64 {
	if !(size > 0) || math.IsInf(size, 0) || math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	if v < -size || v >= 2*size {
		v = math.Mod(v, size)
	}
	for v < 0 {
		v += size
	}
	for v >= size {
		v -= size
	}
	return v
}

// WrapVec wraps both axes independently.
func WrapVec(p vector.Vec, size float64) vector.Vec {
	return vector.Vec{X: Wrap(p.X, size), Y: Wrap(p.Y, size)}
}

// WrappedDelta returns the shortest toroidal displacement from a to b.
func WrappedDelta(a, b vector.Vec, size float64) vector.Vec {
	d := b.Sub(a)
	if !(size > 0) {
		return d
	}
	half := size / 2
	d.X = Wrap(d.X+half, size) - half
	d.Y = Wrap(d.Y+half, size) - half
	return d
}
