package gameserver

import (
	"context"
	"fmt"

	"github.com/udisondev/orbitwar/internal/snapshot"
)

// Simulation is the part of sim.Loop the transport drives.
type Simulation interface {
	Connect(ctx context.Context) (uint64, error)
	SetTurn(ctx context.Context, shipID uint64, turn float64) error
	SetAccelerate(ctx context.Context, shipID uint64, on bool) error
	SetShoot(ctx context.Context, shipID uint64, on bool) error
	Disconnect(ctx context.Context, shipID uint64) error
}

// HandleIntent decodes one inbound frame and forwards it to the simulation.
func HandleIntent(ctx context.Context, sim Simulation, shipID uint64, data []byte) error {
	in, err := snapshot.DecodeIntent(data)
	if err != nil {
		return err
	}

	switch in.Type {
	case snapshot.TypeDir:
		err = sim.SetTurn(ctx, shipID, in.Turn)
	case snapshot.TypeAcc:
		err = sim.SetAccelerate(ctx, shipID, in.On)
	case snapshot.TypeShoot:
		err = sim.SetShoot(ctx, shipID, in.On)
	default:
		return fmt.Errorf("%w: %q", snapshot.ErrUnknownMessage, in.Type)
	}
	if err != nil {
		return fmt.Errorf("queueing %s intent: %w", in.Type, err)
	}
	return nil
}
