package collision

import (
	"fmt"
	"math"

	"github.com/udisondev/orbitwar/internal/config"
	"github.com/udisondev/orbitwar/internal/model"
	"github.com/udisondev/orbitwar/internal/physics"
	"github.com/udisondev/orbitwar/internal/spawn"
	"github.com/udisondev/orbitwar/internal/vector"
	"github.com/udisondev/orbitwar/internal/world"
)

// splitFactor is the radius ratio of both fragments after a split.
const splitFactor = 2.0 / 3.0

// Stats counts what a single Resolve pass did.
type Stats struct {
	BulletHits       int
	Respawns         int
	Splits           int
	AsteroidsRemoved int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.BulletHits += o.BulletHits
	s.Respawns += o.Respawns
	s.Splits += o.Splits
	s.AsteroidsRemoved += o.AsteroidsRemoved
}

// Empty reports whether nothing happened.
func (s Stats) Empty() bool {
	return s == Stats{}
}

// String implements fmt.Stringer for debug logs.
func (s Stats) String() string {
	return fmt.Sprintf("hits=%d respawns=%d splits=%d removed=%d",
		s.BulletHits, s.Respawns, s.Splits, s.AsteroidsRemoved)
}

// Resolver detects contacts and applies their consequences to the world.
//
// Detection runs on the positions present when Resolve is called. The simulation
// loop calls it at the start of every substep, before integration, so each pass
// sees exactly the positions produced by the previous substep.
type Resolver struct {
	minAsteroidRadius float64
	splitKick         float64
	spawner           *spawn.Spawner

	asteroids *world.Grid
	near      []uint64
}

// NewResolver creates a resolver. Ships are respawned through spawner and split
// kicks draw from the spawner's RNG.
func NewResolver(cfg config.Simulation, spawner *spawn.Spawner) *Resolver {
	return &Resolver{
		minAsteroidRadius: cfg.MinAsteroidRadius,
		splitKick:         cfg.SplitKick,
		spawner:           spawner,
	}
}

// Collide reports whether two circles overlap (center distance < r1 + r2).
// An axis-aligned pre-check rejects far pairs before the square root.
func Collide(p1 vector.Vec, r1 float64, p2 vector.Vec, r2 float64) bool {
	return overlap(p2.Sub(p1), r1+r2)
}

// CollideWrapped is Collide on a torus of side size, using the shortest wrapped delta.
// A non-positive size falls back to Collide.
func CollideWrapped(p1 vector.Vec, r1 float64, p2 vector.Vec, r2 float64, size float64) bool {
	return overlap(physics.WrappedDelta(p1, p2, size), r1+r2)
}

func overlap(d vector.Vec, reach float64) bool {
	if math.Abs(d.X) > reach || math.Abs(d.Y) > reach {
		return false
	}
	return d.Length() < reach
}

func (r *Resolver) hit(w *world.World, a, b *model.Entity) bool {
	return CollideWrapped(a.Position, a.Radius, b.Position, b.Radius, w.Size())
}

// Resolve runs one collision pass:
//
//	bullet × asteroid  -> bullet removed, asteroid split
//	bullet × ship      -> bullet removed, ship respawned (not the owner)
//	bullet × planet    -> bullet removed
//	ship × asteroid    -> ship respawned
//	ship × planet      -> ship respawned
//	asteroid × planet  -> asteroid removed
//
// A bullet is consumed by its first hit. Entities removed earlier in the pass are
// skipped; asteroids spawned by a split are not tested until the next pass.
//
// Asteroids are looked up through a grid rebuilt at the start of the pass, so
// bullets and ships only test the asteroids in nearby cells.
func (r *Resolver) Resolve(w *world.World) Stats {
	var st Stats
	planets := w.Planets()
	if r.asteroids == nil || r.asteroids.Size() != w.Size() {
		r.asteroids = world.NewGrid(w.Size(), world.DefaultCellSize)
	}
	r.asteroids.Rebuild(w.Asteroids())

	for _, b := range w.Bullets() {
		r.resolveBullet(w, b, planets, &st)
	}

	for _, s := range w.Ships() {
		if !w.Contains(s.ID) {
			continue
		}
		if r.shipHit(w, s, planets) {
			r.spawner.Respawn(w, s)
			st.Respawns++
		}
	}

	for _, a := range w.Asteroids() {
		if !w.Contains(a.ID) {
			continue
		}
		for _, p := range planets {
			if r.hit(w, a, p) {
				w.Remove(a.ID)
				st.AsteroidsRemoved++
				break
			}
		}
	}

	return st
}

func (r *Resolver) resolveBullet(w *world.World, b *model.Entity, planets []*model.Entity, st *Stats) {
	if !w.Contains(b.ID) {
		return
	}

	for _, a := range r.nearAsteroids(w, b) {
		if !r.hit(w, b, a) {
			continue
		}
		w.Remove(b.ID)
		st.BulletHits++
		if r.Split(w, a) != nil {
			st.Splits++
		} else {
			st.AsteroidsRemoved++
		}
		return
	}

	var owner uint64
	if b.Bullet != nil {
		owner = b.Bullet.OwnerID
	}
	for _, s := range w.Ships() {
		if s.ID == owner || !r.hit(w, b, s) {
			continue
		}
		w.Remove(b.ID)
		st.BulletHits++
		r.spawner.Respawn(w, s)
		st.Respawns++
		return
	}

	for _, p := range planets {
		if r.hit(w, b, p) {
			w.Remove(b.ID)
			st.BulletHits++
			return
		}
	}
}

func (r *Resolver) shipHit(w *world.World, s *model.Entity, planets []*model.Entity) bool {
	for _, a := range r.nearAsteroids(w, s) {
		if r.hit(w, s, a) {
			return true
		}
	}
	for _, p := range planets {
		if r.hit(w, s, p) {
			return true
		}
	}
	return false
}

// nearAsteroids returns the live indexed asteroids that may touch e, in id order.
func (r *Resolver) nearAsteroids(w *world.World, e *model.Entity) []*model.Entity {
	r.near = r.asteroids.Near(r.near[:0], e.Position, e.Radius+r.asteroids.MaxRadius())
	out := make([]*model.Entity, 0, len(r.near))
	for _, id := range r.near {
		a, err := w.Get(id)
		if err != nil || a.Kind != model.KindAsteroid {
			continue
		}
		out = append(out, a)
	}
	return out
}

// Split breaks an asteroid hit by a bullet.
// Below the minimum radius the asteroid is removed and nil is returned. Otherwise the
// original shrinks to ⅔ of its radius with a random velocity kick, and a second ⅔-radius
// asteroid with its own kick is spawned at the same position and returned.
func (r *Resolver) Split(w *world.World, a *model.Entity) *model.Entity {
	if a.Radius < r.minAsteroidRadius {
		w.Remove(a.ID)
		return nil
	}

	radius := a.Radius * splitFactor
	child := model.NewAsteroid(w.NextID(), a.Position, a.Velocity.Add(r.kick()), radius)
	child.PreviousPosition = a.PreviousPosition

	a.Radius = radius
	a.Velocity = a.Velocity.Add(r.kick())

	if err := w.Add(child); err != nil {
		// IDs come from the world's own generator; a clash means a broken invariant.
		panic(fmt.Sprintf("split asteroid %d: %v", a.ID, err))
	}
	return child
}

// kick returns a random vector uniformly distributed in a disc of radius splitKick.
func (r *Resolver) kick() vector.Vec {
	if r.splitKick <= 0 {
		return vector.Vec{}
	}
	rng := r.spawner.Rand()
	angle := rng.Float64() * 2 * math.Pi
	mag := r.splitKick * math.Sqrt(rng.Float64())
	return vector.FromAngle(angle, mag)
}
