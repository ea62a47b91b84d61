package gameserver

import (
	"context"
	"log/slog"
	"time"
)

// disconnectTimeout bounds how long a closing connection waits for the
// simulation to accept the leave request.
const disconnectTimeout = 3 * time.Second

// OnDisconnection removes the client's ship from the simulation and the client
// from the manager. Bullets already fired stay in flight.
func OnDisconnection(ctx context.Context, client *Client, clients *ClientManager, sim Simulation) {
	clients.Unregister(client.ShipID())

	// The server context may already be canceled during shutdown; the leave
	// still has to reach the loop if it is running.
	leaveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disconnectTimeout)
	defer cancel()

	if err := sim.Disconnect(leaveCtx, client.ShipID()); err != nil {
		slog.Warn("queueing ship removal",
			"shipID", client.ShipID(),
			"client", client.IP(),
			"error", err)
	}

	slog.Info("client disconnected",
		"shipID", client.ShipID(),
		"client", client.IP(),
		"dropped", client.Dropped())
}
