package gameserver

import (
	"log/slog"
	"sync/atomic"

	"github.com/udisondev/orbitwar/internal/snapshot"
)

// Broadcaster fans every snapshot out to all connected clients.
// It implements sim.Broadcaster: the snapshot is encoded once and queued on
// each client without blocking the simulation.
type Broadcaster struct {
	clients *ClientManager
	codec   snapshot.Codec

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewBroadcaster creates a broadcaster encoding with codec.
func NewBroadcaster(clients *ClientManager, codec snapshot.Codec) *Broadcaster {
	return &Broadcaster{clients: clients, codec: codec}
}

// Broadcast encodes s and queues it for every client.
func (b *Broadcaster) Broadcast(s *snapshot.Snapshot) {
	if b.clients.Count() == 0 {
		return
	}

	frame, err := b.codec.EncodeSnapshot(s)
	if err != nil {
		slog.Error("encoding snapshot", "tick", s.Tick, "codec", b.codec.Name(), "error", err)
		return
	}

	b.BroadcastToAll(frame)
}

// BroadcastToAll queues an encoded frame for every client and returns how many
// accepted it. The frame is shared and must not be modified afterwards.
func (b *Broadcaster) BroadcastToAll(frame []byte) int {
	sent := 0
	b.clients.ForEachClient(func(c *Client) bool {
		if c.Send(frame) {
			sent++
		} else {
			b.dropped.Add(1)
		}
		return true
	})
	b.sent.Add(uint64(sent))
	return sent
}

// Sent returns the number of frames queued since start.
func (b *Broadcaster) Sent() uint64 {
	return b.sent.Load()
}

// Dropped returns the number of frames discarded on full or closed queues.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}
