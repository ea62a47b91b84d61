package interp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/orbitwar/internal/model"
	"github.com/udisondev/orbitwar/internal/snapshot"
)

const interval = 100 * time.Millisecond

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func shipSnap(tick uint64, x, y, angle float64) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Tick:  tick,
		Ships: []snapshot.ShipState{{ID: 1, X: x, Y: y, Angle: angle}},
	}
}

func TestInterpolator_FirstSightingRendersCurrent(t *testing.T) {
	ip := New(interval, 0)
	require.True(t, ip.Apply(shipSnap(1, 10, 20, 1), t0))

	got, ok := ip.Ship(1, t0.Add(50*time.Millisecond))
	require.True(t, ok)
	assert.Equal(t, 10.0, got.Position.X)
	assert.Equal(t, 20.0, got.Position.Y)
	assert.Equal(t, 1.0, got.Angle)
}

func TestInterpolator_Identity(t *testing.T) {
	ip := New(interval, 0)
	ip.Apply(shipSnap(1, 10, 20, 0), t0)
	ip.Apply(shipSnap(2, 14, 16, 0.5), t0.Add(interval))

	atStart, ok := ip.Ship(1, t0.Add(interval))
	require.True(t, ok)
	assert.InDelta(t, 10.0, atStart.Position.X, 1e-12, "f=0 renders previous")
	assert.InDelta(t, 20.0, atStart.Position.Y, 1e-12)
	assert.InDelta(t, 0.0, atStart.Angle, 1e-12)

	atEnd, _ := ip.Ship(1, t0.Add(2*interval))
	assert.InDelta(t, 14.0, atEnd.Position.X, 1e-12, "f=1 renders current")
	assert.InDelta(t, 16.0, atEnd.Position.Y, 1e-12)
	assert.InDelta(t, 0.5, atEnd.Angle, 1e-12)

	mid, _ := ip.Ship(1, t0.Add(interval+interval/2))
	assert.InDelta(t, 12.0, mid.Position.X, 1e-12)
	assert.InDelta(t, 18.0, mid.Position.Y, 1e-12)
}

func TestInterpolator_ExtrapolatesPastOne(t *testing.T) {
	ip := New(interval, 0)
	ip.Apply(shipSnap(1, 10, 0, 0), t0)
	ip.Apply(shipSnap(2, 12, 0, 0), t0.Add(interval))

	now := t0.Add(interval + 3*interval/2)
	assert.InDelta(t, 1.5, ip.Fraction(now), 1e-12)

	got, _ := ip.Ship(1, now)
	assert.InDelta(t, 13.0, got.Position.X, 1e-12)
}

func TestInterpolator_FractionBeforeFirstSnapshot(t *testing.T) {
	ip := New(interval, 0)
	assert.Equal(t, 0.0, ip.Fraction(t0))
	_, ok := ip.Ship(1, t0)
	assert.False(t, ok)
}

func TestInterpolator_DropsAbsentEntities(t *testing.T) {
	ip := New(interval, 0)
	ip.Apply(&snapshot.Snapshot{
		Tick:      1,
		Ships:     []snapshot.ShipState{{ID: 1}},
		Bullets:   []snapshot.BulletState{{ID: 2}},
		Asteroids: []snapshot.AsteroidState{{ID: 3, Radius: 0.6}},
	}, t0)
	require.Equal(t, 3, ip.Len())

	ip.Apply(&snapshot.Snapshot{
		Tick:      2,
		Ships:     []snapshot.ShipState{{ID: 1}},
		Asteroids: []snapshot.AsteroidState{{ID: 3, Radius: 0.4}, {ID: 5, Radius: 0.4}},
	}, t0.Add(interval))

	assert.Equal(t, 3, ip.Len())
	_, ok := ip.Bullet(2, t0)
	assert.False(t, ok, "expired bullet dropped")

	split, ok := ip.Asteroid(3, t0.Add(interval+interval/2))
	require.True(t, ok)
	assert.InDelta(t, 0.5, split.Radius, 1e-12, "radius blends too")

	fresh, ok := ip.Asteroid(5, t0.Add(interval+interval/2))
	require.True(t, ok)
	assert.Equal(t, 0.4, fresh.Radius)
}

func TestInterpolator_IgnoresStaleSnapshot(t *testing.T) {
	ip := New(interval, 0)
	require.True(t, ip.Apply(shipSnap(5, 1, 1, 0), t0))
	assert.False(t, ip.Apply(shipSnap(4, 9, 9, 0), t0.Add(interval)))
	assert.False(t, ip.Apply(nil, t0))
	assert.Equal(t, uint64(5), ip.Tick())

	got, _ := ip.Ship(1, t0)
	assert.Equal(t, 1.0, got.Position.X)
}

func TestInterpolator_AcceptsRestartedServer(t *testing.T) {
	ip := New(interval, 0)
	require.True(t, ip.Apply(shipSnap(500, 50, 50, 0), t0))

	// Ticks start again at 1 after a server restart.
	require.True(t, ip.Apply(shipSnap(1, 10, 20, 0), t0.Add(interval)))
	assert.Equal(t, uint64(1), ip.Tick())

	got, ok := ip.Ship(1, t0.Add(interval+interval/2))
	require.True(t, ok)
	assert.Equal(t, 10.0, got.Position.X, "no blending from the previous session")
	assert.Equal(t, 20.0, got.Position.Y)

	require.True(t, ip.Apply(shipSnap(2, 12, 20, 0), t0.Add(2*interval)))
}

func TestInterpolator_Reset(t *testing.T) {
	ip := New(interval, 0)
	require.True(t, ip.Apply(shipSnap(30, 50, 50, 0), t0))

	ip.Reset()
	assert.Zero(t, ip.Len())
	assert.Zero(t, ip.Tick())
	assert.Zero(t, ip.Fraction(t0.Add(interval)))

	require.True(t, ip.Apply(shipSnap(3, 10, 10, 0), t0.Add(interval)))
	got, ok := ip.Ship(1, t0.Add(interval))
	require.True(t, ok)
	assert.Equal(t, 10.0, got.Position.X)
}

func TestInterpolator_WrapAware(t *testing.T) {
	ip := New(interval, 200)
	ip.Apply(shipSnap(1, 199, 100, 0), t0)
	ip.Apply(shipSnap(2, 1, 100, 0), t0.Add(interval))

	mid, _ := ip.Ship(1, t0.Add(interval+interval/2))
	assert.InDelta(t, 0.0, mid.Position.X, 1e-9, "crosses the seam instead of sweeping the map")

	quarter, _ := ip.Ship(1, t0.Add(interval+interval/4))
	assert.InDelta(t, 199.5, quarter.Position.X, 1e-9)

	plain := New(interval, 0)
	plain.Apply(shipSnap(1, 199, 100, 0), t0)
	plain.Apply(shipSnap(2, 1, 100, 0), t0.Add(interval))
	sweep, _ := plain.Ship(1, t0.Add(interval+interval/2))
	assert.InDelta(t, 100.0, sweep.Position.X, 1e-9)
}

func TestInterpolator_All(t *testing.T) {
	ip := New(interval, 0)
	ip.Apply(&snapshot.Snapshot{
		Tick:      1,
		Ships:     []snapshot.ShipState{{ID: 9, Accelerating: true}, {ID: 4}},
		Bullets:   []snapshot.BulletState{{ID: 7}},
		Asteroids: []snapshot.AsteroidState{{ID: 2}},
		Planets:   []snapshot.PlanetState{{ID: 1, X: 100, Y: 100, Radius: 10}},
	}, t0)

	all := ip.All(t0)
	require.Len(t, all, 5)

	type key struct {
		kind model.Kind
		id   uint64
	}
	var got []key
	for _, b := range all {
		got = append(got, key{b.Kind, b.ID})
	}
	assert.Equal(t, []key{
		{model.KindShip, 4},
		{model.KindShip, 9},
		{model.KindBullet, 7},
		{model.KindAsteroid, 2},
		{model.KindPlanet, 1},
	}, got)
	assert.True(t, all[1].Accelerating)

	planet, ok := ip.Planet(1, t0)
	require.True(t, ok)
	assert.Equal(t, 10.0, planet.Radius)
}
