package vector

import "math"

// Vec is a 2D vector in universe units.
// Treated as an immutable value: every operation returns a new Vec.
type Vec struct {
	X float64
	Y float64
}

// New creates a vector from components.
func New(x, y float64) Vec {
	return Vec{X: x, Y: y}
}

// FromAngle returns a vector of given magnitude pointing along angle (radians).
// The y axis grows downward (screen space), so positive angles turn counter-clockwise on screen.
func FromAngle(angle, magnitude float64) Vec {
	return Vec{
		X: magnitude * math.Cos(angle),
		Y: -magnitude * math.Sin(angle),
	}
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec) Sub(o Vec) Vec {
	return Vec{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v * s.
func (v Vec) Scale(s float64) Vec {
	return Vec{X: v.X * s, Y: v.Y * s}
}

// Div returns v / s.
func (v Vec) Div(s float64) Vec {
	return Vec{X: v.X / s, Y: v.Y / s}
}

// Length returns the magnitude of v.
func (v Vec) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// LengthSquared returns the squared magnitude (no sqrt).
func (v Vec) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y
}

// Normalize returns the unit vector of v.
// The zero vector normalizes to itself.
func (v Vec) Normalize() Vec {
	l := v.Length()
	if l == 0 {
		return Vec{}
	}
	return Vec{X: v.X / l, Y: v.Y / l}
}

// Distance returns |v - o|.
func (v Vec) Distance(o Vec) float64 {
	return v.Sub(o).Length()
}

// Lerp returns v + (o - v) * t. t is not clamped.
func (v Vec) Lerp(o Vec, t float64) Vec {
	return Vec{
		X: v.X + (o.X-v.X)*t,
		Y: v.Y + (o.Y-v.Y)*t,
	}
}

// IsFinite reports whether both components are finite numbers.
func (v Vec) IsFinite() bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) && !math.IsNaN(v.Y) && !math.IsInf(v.Y, 0)
}
