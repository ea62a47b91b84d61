package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/udisondev/orbitwar/internal/collision"
	"github.com/udisondev/orbitwar/internal/config"
	"github.com/udisondev/orbitwar/internal/model"
	"github.com/udisondev/orbitwar/internal/physics"
	"github.com/udisondev/orbitwar/internal/snapshot"
	"github.com/udisondev/orbitwar/internal/spawn"
	"github.com/udisondev/orbitwar/internal/vector"
	"github.com/udisondev/orbitwar/internal/world"
)

// DefaultInboxSize is the capacity of the command queue.
const DefaultInboxSize = 256

// Broadcaster receives every snapshot. Broadcast must not block.
type Broadcaster interface {
	Broadcast(s *snapshot.Snapshot)
}

// BroadcasterFunc adapts a function to Broadcaster.
type BroadcasterFunc func(s *snapshot.Snapshot)

// Broadcast calls f(s).
func (f BroadcasterFunc) Broadcast(s *snapshot.Snapshot) { f(s) }

// Loop is the authoritative simulation.
//
// A single goroutine (Run) owns the world. Everything else talks to it through
// the inbox: joins, intents and leaves are applied between ticks and take effect
// on the next tick.
type Loop struct {
	cfg config.Simulation

	world      *world.World
	spawner    *spawn.Spawner
	integrator *physics.Integrator
	resolver   *collision.Resolver

	broadcaster Broadcaster
	inbox       chan Command

	tick  atomic.Uint64
	stats collision.Stats
}

// NewLoop validates cfg, builds a populated world and returns a loop that
// publishes snapshots to b (nil disables publishing).
func NewLoop(cfg config.Simulation, b Broadcaster) (*Loop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("simulation config: %w", err)
	}

	spawner := spawn.NewSpawner(cfg, spawn.NewRand(cfg.Seed))
	w := world.New(cfg.UniverseSize)
	if err := spawner.Populate(w); err != nil {
		return nil, fmt.Errorf("populating world: %w", err)
	}

	l := &Loop{
		cfg:         cfg,
		world:       w,
		spawner:     spawner,
		integrator:  physics.NewIntegrator(cfg),
		resolver:    collision.NewResolver(cfg, spawner),
		broadcaster: b,
		inbox:       make(chan Command, DefaultInboxSize),
	}

	slog.Info("world populated",
		"size", cfg.UniverseSize,
		"planets", w.Count(model.KindPlanet),
		"asteroids", w.Count(model.KindAsteroid))
	return l, nil
}

// Inbox returns the command queue.
func (l *Loop) Inbox() chan<- Command {
	return l.inbox
}

// TickCount returns the number of completed macro ticks.
func (l *Loop) TickCount() uint64 {
	return l.tick.Load()
}

// Config returns the simulation config.
func (l *Loop) Config() config.Simulation {
	return l.cfg
}

// Run ticks the simulation every 1/ups seconds until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.cfg.TickInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("simulation loop started",
		"interval", interval,
		"stepsPerUpdate", l.cfg.StepsPerUpdate)

	for {
		select {
		case <-ctx.Done():
			slog.Info("simulation loop stopping", "ticks", l.TickCount())
			return ctx.Err()

		case cmd := <-l.inbox:
			cmd.apply(l)

		case <-ticker.C:
			l.Tick()
		}
	}
}

// Tick advances one macro tick: fire weapons and capture tick-start state,
// run the substeps, then publish a snapshot. Must be called from the goroutine
// that owns the loop.
func (l *Loop) Tick() *snapshot.Snapshot {
	l.fireWeapons()
	for _, e := range l.world.Moving() {
		e.CapturePrevious()
	}

	var st collision.Stats
	dt := l.cfg.Dt()
	for range l.cfg.StepsPerUpdate {
		st.Add(l.substep(dt))
	}
	l.stats.Add(st)

	n := l.tick.Add(1)
	snap := snapshot.Build(l.world, n, l.cfg.SnapshotDigits)
	if l.broadcaster != nil {
		l.broadcaster.Broadcast(snap)
	}

	if IsDebugEnabled() {
		slog.Debug("tick completed",
			"tick", n,
			"objects", l.world.ObjectCount(),
			"collisions", st)
	}
	return snap
}

// fireWeapons counts down shot cooldowns and spawns a bullet for every ship
// that wants to shoot and is ready.
func (l *Loop) fireWeapons() {
	for _, s := range l.world.Ships() {
		sh := s.Ship
		if sh.ShootCooldown > 0 {
			sh.ShootCooldown--
		}
		if !sh.Shooting || sh.ShootCooldown > 0 {
			continue
		}

		vel := s.Velocity.Add(vector.FromAngle(sh.Angle, l.cfg.MuzzleSpeed))
		b := model.NewBullet(l.world.NextID(), s.Position, vel, l.cfg.BulletRadius, l.cfg.BulletLifeTicks(), s.ID)
		if err := l.world.Add(b); err != nil {
			slog.Error("spawning bullet", "shipID", s.ID, "error", err)
			continue
		}
		sh.ShootCooldown = l.cfg.ShootCooldownTicks()
	}
}

func (l *Loop) substep(dt float64) collision.Stats {
	for _, s := range l.world.Ships() {
		s.Ship.Angle += s.Ship.ConsumeTurn() * l.cfg.TurnRate * dt
	}

	st := l.resolver.Resolve(l.world)
	physics.AdvancePlanets(l.world, dt)
	l.integrator.IntegrateStep(l.world, dt)

	for _, b := range l.world.Bullets() {
		b.Bullet.LifeTicks--
		if b.Bullet.LifeTicks <= 0 {
			l.world.Remove(b.ID)
		}
	}
	return st
}

func (l *Loop) join() (*model.Entity, error) {
	ship, err := l.spawner.NewShip(l.world)
	if err != nil {
		return nil, err
	}
	slog.Info("ship joined", "shipID", ship.ID, "ships", l.world.Count(model.KindShip))
	return ship, nil
}

func (l *Loop) ship(id uint64) *model.Entity {
	e, err := l.world.Get(id)
	if err != nil || e.Kind != model.KindShip || e.Ship == nil {
		return nil
	}
	return e
}

func (l *Loop) send(ctx context.Context, cmd Command) error {
	select {
	case l.inbox <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect adds a new ship and returns its id. It blocks until the loop
// goroutine has processed the request.
func (l *Loop) Connect(ctx context.Context) (uint64, error) {
	reply := make(chan JoinReply, 1)
	if err := l.send(ctx, Join{Reply: reply}); err != nil {
		return 0, err
	}
	select {
	case r := <-reply:
		return r.ShipID, r.Err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// SetTurn queues a turn intent; turn is clamped to [-1, 1].
func (l *Loop) SetTurn(ctx context.Context, shipID uint64, turn float64) error {
	return l.send(ctx, Intent{ShipID: shipID, Kind: IntentTurn, Turn: turn})
}

// SetAccelerate queues a thrust intent.
func (l *Loop) SetAccelerate(ctx context.Context, shipID uint64, on bool) error {
	return l.send(ctx, Intent{ShipID: shipID, Kind: IntentAccelerate, On: on})
}

// SetShoot queues a fire intent.
func (l *Loop) SetShoot(ctx context.Context, shipID uint64, on bool) error {
	return l.send(ctx, Intent{ShipID: shipID, Kind: IntentShoot, On: on})
}

// Disconnect queues removal of the ship.
func (l *Loop) Disconnect(ctx context.Context, shipID uint64) error {
	return l.send(ctx, Leave{ShipID: shipID})
}

// Do runs fn with the world on the loop goroutine and waits for it to return.
// fn must not retain the world.
func (l *Loop) Do(ctx context.Context, fn func(w *world.World)) error {
	done := make(chan struct{})
	if err := l.send(ctx, inspect{fn: func(l *Loop) { fn(l.world) }, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns collision counters accumulated since start.
// Safe only on the loop goroutine (or through Do).
func (l *Loop) Stats() collision.Stats {
	return l.stats
}
