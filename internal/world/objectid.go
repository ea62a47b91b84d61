package world

import "sync/atomic"

// IDGenerator hands out entity IDs for every kind of world entity.
//
// IDs start at 1 (0 means "no entity", e.g. a bullet without owner) and strictly
// increase for the lifetime of the process. An ID is never reused, so a stale ID
// held by another entity (bullet owner) can never alias a newer entity.
type IDGenerator struct {
	next atomic.Uint64
}

// NewIDGenerator creates a generator whose first ID is 1.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the next unique ID.
// Thread-safe via atomic increment.
func (g *IDGenerator) Next() uint64 {
	return g.next.Add(1)
}

// Last returns the most recently issued ID (0 if none).
func (g *IDGenerator) Last() uint64 {
	return g.next.Load()
}
