package sim

import (
	"log/slog"

	"github.com/udisondev/orbitwar/internal/model"
)

// Command is a request executed on the loop goroutine between ticks.
type Command interface {
	apply(l *Loop)
}

// JoinReply is the answer to Join.
type JoinReply struct {
	ShipID uint64
	Err    error
}

// Join creates a ship on the spawn orbit and replies with its id.
// Reply must be buffered (capacity >= 1).
type Join struct {
	Reply chan<- JoinReply
}

func (c Join) apply(l *Loop) {
	ship, err := l.join()
	reply := JoinReply{Err: err}
	if ship != nil {
		reply.ShipID = ship.ID
	}
	select {
	case c.Reply <- reply:
	default:
		slog.Warn("join reply dropped", "shipID", reply.ShipID)
	}
}

// IntentKind selects which ship control an Intent writes.
type IntentKind uint8

const (
	IntentTurn IntentKind = iota + 1
	IntentAccelerate
	IntentShoot
)

// String returns the wire name of the intent.
func (k IntentKind) String() string {
	switch k {
	case IntentTurn:
		return "dir"
	case IntentAccelerate:
		return "acc"
	case IntentShoot:
		return "shoot"
	default:
		return "unknown"
	}
}

// Intent writes a desired control value onto a ship.
// Turn is used by IntentTurn, On by IntentAccelerate and IntentShoot.
type Intent struct {
	ShipID uint64
	Kind   IntentKind
	Turn   float64
	On     bool
}

func (c Intent) apply(l *Loop) {
	ship := l.ship(c.ShipID)
	if ship == nil {
		if IsDebugEnabled() {
			slog.Debug("intent for unknown ship", "shipID", c.ShipID, "intent", c.Kind)
		}
		return
	}

	switch c.Kind {
	case IntentTurn:
		ship.Ship.SetTurn(c.Turn)
	case IntentAccelerate:
		ship.Ship.Accelerating = c.On
	case IntentShoot:
		ship.Ship.Shooting = c.On
	default:
		slog.Warn("unknown intent kind", "shipID", c.ShipID, "kind", uint8(c.Kind))
	}
}

// Leave removes a ship. Leaving twice is a no-op.
// Bullets already fired by the ship keep flying.
type Leave struct {
	ShipID uint64
}

func (c Leave) apply(l *Loop) {
	if l.ship(c.ShipID) == nil {
		return
	}
	l.world.Remove(c.ShipID)
	slog.Info("ship left", "shipID", c.ShipID, "ships", l.world.Count(model.KindShip))
}

// inspect runs fn on the loop goroutine and closes done.
type inspect struct {
	fn   func(l *Loop)
	done chan struct{}
}

func (c inspect) apply(l *Loop) {
	defer close(c.done)
	c.fn(l)
}
