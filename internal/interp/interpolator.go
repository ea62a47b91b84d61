package interp

import (
	"cmp"
	"slices"
	"time"

	"github.com/udisondev/orbitwar/internal/model"
	"github.com/udisondev/orbitwar/internal/physics"
	"github.com/udisondev/orbitwar/internal/snapshot"
	"github.com/udisondev/orbitwar/internal/vector"
)

// Blended is an entity rendered between the two latest snapshots.
type Blended struct {
	ID           uint64
	Kind         model.Kind
	Position     vector.Vec
	Angle        float64
	Radius       float64
	Accelerating bool
}

type sample struct {
	pos          vector.Vec
	angle        float64
	radius       float64
	accelerating bool
}

type track struct {
	prev, cur sample
}

// Interpolator keeps the previous and current state of every entity seen in
// the latest snapshot and blends them by the time elapsed since it arrived.
//
// Not safe for concurrent use.
type Interpolator struct {
	interval time.Duration
	size     float64

	arrival time.Time
	tick    uint64
	applied bool

	tracks map[model.Kind]map[uint64]*track
}

// New creates an interpolator for snapshots sent every interval.
// A positive size enables wrap-aware blending on a torus of that side;
// 0 blends linearly in plain coordinates.
func New(interval time.Duration, size float64) *Interpolator {
	return &Interpolator{
		interval: interval,
		size:     size,
		tracks:   make(map[model.Kind]map[uint64]*track, 4),
	}
}

// restartGap is how far a tick may fall behind the last applied one before the
// snapshot is taken as coming from a restarted server instead of arriving late.
const restartGap = 64

// Apply records a snapshot received at arrival. Entities missing from snap are
// dropped; entities seen for the first time render at their current state.
// A snapshot older than the last applied one is ignored and Apply returns false,
// unless its tick is restartGap or more behind, which resets the interpolator.
func (ip *Interpolator) Apply(snap *snapshot.Snapshot, arrival time.Time) bool {
	if snap == nil {
		return false
	}
	if ip.applied && snap.Tick <= ip.tick {
		switch {
		case snap.Tick == 0 || ip.tick-snap.Tick >= restartGap:
			ip.Reset()
		default:
			return false
		}
	}

	ships := make([]sampled, 0, len(snap.Ships))
	for _, s := range snap.Ships {
		ships = append(ships, sampled{s.ID, sample{
			pos: vector.New(s.X, s.Y), angle: s.Angle, accelerating: s.Accelerating,
		}})
	}
	bullets := make([]sampled, 0, len(snap.Bullets))
	for _, b := range snap.Bullets {
		bullets = append(bullets, sampled{b.ID, sample{pos: vector.New(b.X, b.Y)}})
	}
	asteroids := make([]sampled, 0, len(snap.Asteroids))
	for _, a := range snap.Asteroids {
		asteroids = append(asteroids, sampled{a.ID, sample{pos: vector.New(a.X, a.Y), radius: a.Radius}})
	}
	planets := make([]sampled, 0, len(snap.Planets))
	for _, p := range snap.Planets {
		planets = append(planets, sampled{p.ID, sample{pos: vector.New(p.X, p.Y), radius: p.Radius}})
	}

	ip.replace(model.KindShip, ships)
	ip.replace(model.KindBullet, bullets)
	ip.replace(model.KindAsteroid, asteroids)
	ip.replace(model.KindPlanet, planets)

	ip.arrival = arrival
	ip.tick = snap.Tick
	ip.applied = true
	return true
}

type sampled struct {
	id uint64
	s  sample
}

func (ip *Interpolator) replace(kind model.Kind, items []sampled) {
	old := ip.tracks[kind]
	next := make(map[uint64]*track, len(items))
	for _, it := range items {
		t := &track{prev: it.s, cur: it.s}
		if o, ok := old[it.id]; ok {
			t.prev = o.cur
		}
		next[it.id] = t
	}
	ip.tracks[kind] = next
}

// Reset forgets every tracked entity and the last tick, as before the first Apply.
// Call it when the connection to the server is re-established.
func (ip *Interpolator) Reset() {
	clear(ip.tracks)
	ip.arrival = time.Time{}
	ip.tick = 0
	ip.applied = false
}

// Fraction returns (now - arrival) / interval. It is not clamped: values above 1
// extrapolate along the last observed motion.
func (ip *Interpolator) Fraction(now time.Time) float64 {
	if !ip.applied || ip.interval <= 0 {
		return 0
	}
	return float64(now.Sub(ip.arrival)) / float64(ip.interval)
}

// Tick returns the tick of the last applied snapshot.
func (ip *Interpolator) Tick() uint64 {
	return ip.tick
}

// Len returns the number of tracked entities.
func (ip *Interpolator) Len() int {
	n := 0
	for _, m := range ip.tracks {
		n += len(m)
	}
	return n
}

// Ship returns the blended ship with id at now.
func (ip *Interpolator) Ship(id uint64, now time.Time) (Blended, bool) {
	return ip.get(model.KindShip, id, now)
}

// Bullet returns the blended bullet with id at now.
func (ip *Interpolator) Bullet(id uint64, now time.Time) (Blended, bool) {
	return ip.get(model.KindBullet, id, now)
}

// Asteroid returns the blended asteroid with id at now.
func (ip *Interpolator) Asteroid(id uint64, now time.Time) (Blended, bool) {
	return ip.get(model.KindAsteroid, id, now)
}

// Planet returns the blended planet with id at now.
func (ip *Interpolator) Planet(id uint64, now time.Time) (Blended, bool) {
	return ip.get(model.KindPlanet, id, now)
}

func (ip *Interpolator) get(kind model.Kind, id uint64, now time.Time) (Blended, bool) {
	t, ok := ip.tracks[kind][id]
	if !ok {
		return Blended{}, false
	}
	return ip.blend(kind, id, t, ip.Fraction(now)), true
}

// All returns every tracked entity blended at now, ordered by kind then id.
func (ip *Interpolator) All(now time.Time) []Blended {
	f := ip.Fraction(now)
	out := make([]Blended, 0, ip.Len())
	for kind, m := range ip.tracks {
		for id, t := range m {
			out = append(out, ip.blend(kind, id, t, f))
		}
	}
	slices.SortFunc(out, func(a, b Blended) int {
		if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (ip *Interpolator) blend(kind model.Kind, id uint64, t *track, f float64) Blended {
	return Blended{
		ID:           id,
		Kind:         kind,
		Position:     ip.blendPosition(t.prev.pos, t.cur.pos, f),
		Angle:        lerp(t.prev.angle, t.cur.angle, f),
		Radius:       lerp(t.prev.radius, t.cur.radius, f),
		Accelerating: t.cur.accelerating,
	}
}

func (ip *Interpolator) blendPosition(prev, cur vector.Vec, f float64) vector.Vec {
	if ip.size <= 0 {
		return prev.Lerp(cur, f)
	}
	d := physics.WrappedDelta(prev, cur, ip.size)
	return physics.WrapVec(prev.Add(d.Scale(f)), ip.size)
}

func lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}
