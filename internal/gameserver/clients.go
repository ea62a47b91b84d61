package gameserver

import "sync"

// ClientManager tracks connected clients by ship id.
type ClientManager struct {
	mu      sync.RWMutex
	clients map[uint64]*Client

	// reserved counts accepted connections that are not registered yet.
	reserved int
}

// NewClientManager creates an empty manager.
func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[uint64]*Client, 64),
	}
}

// Register adds a client under its ship id.
func (cm *ClientManager) Register(client *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.clients[client.ShipID()] = client
}

// Reserve claims a slot for a connection being set up. It fails when the
// registered and reserved clients together reach limit; limit <= 0 means no limit.
// A successful Reserve must be followed by Claim or Release.
func (cm *ClientManager) Reserve(limit int) bool {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if limit > 0 && len(cm.clients)+cm.reserved >= limit {
		return false
	}
	cm.reserved++
	return true
}

// Release gives back a slot taken by Reserve.
func (cm *ClientManager) Release() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.reserved > 0 {
		cm.reserved--
	}
}

// Claim registers client in a slot taken by Reserve.
func (cm *ClientManager) Claim(client *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.reserved > 0 {
		cm.reserved--
	}
	cm.clients[client.ShipID()] = client
}

// Unregister removes the client for shipID. Unknown ids are ignored.
func (cm *ClientManager) Unregister(shipID uint64) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.clients, shipID)
}

// Get returns the client for shipID or nil.
func (cm *ClientManager) Get(shipID uint64) *Client {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.clients[shipID]
}

// Count returns the number of connected clients.
func (cm *ClientManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.clients)
}

// ForEachClient calls fn for each client until fn returns false.
// fn runs under the read lock and must not call Register or Unregister.
func (cm *ClientManager) ForEachClient(fn func(*Client) bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, client := range cm.clients {
		if !fn(client) {
			return
		}
	}
}

// CloseAll signals every client to close.
func (cm *ClientManager) CloseAll() {
	cm.ForEachClient(func(c *Client) bool {
		c.CloseAsync()
		return true
	})
}
