package world

import (
	"errors"
	"fmt"
	"slices"

	"github.com/udisondev/orbitwar/internal/model"
)

var (
	// ErrEntityNotFound is returned for IDs that were never added or were already removed.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrDuplicateID is returned when adding an entity whose ID is already present.
	ErrDuplicateID = errors.New("duplicate entity id")
	// ErrUnknownKind is returned when adding an entity without a valid Kind.
	ErrUnknownKind = errors.New("unknown entity kind")
)

// partition keeps the entities of one kind with IDs in ascending order.
// IDs are allocated monotonically, so appends keep the slice sorted.
type partition struct {
	ids []uint64
}

func (p *partition) add(id uint64) {
	if n := len(p.ids); n == 0 || p.ids[n-1] < id {
		p.ids = append(p.ids, id)
		return
	}
	i, _ := slices.BinarySearch(p.ids, id)
	p.ids = slices.Insert(p.ids, i, id)
}

func (p *partition) remove(id uint64) {
	i, ok := slices.BinarySearch(p.ids, id)
	if ok {
		p.ids = slices.Delete(p.ids, i, i+1)
	}
}

// World owns every entity of the universe, partitioned by kind.
//
// Invariant: an ID is present in at most one partition.
// World is owned by the simulation goroutine and is not safe for concurrent use.
type World struct {
	size float64
	ids  *IDGenerator

	entities map[uint64]*model.Entity

	ships     partition
	bullets   partition
	asteroids partition
	planets   partition
}

// New creates an empty toroidal world with side length size.
func New(size float64) *World {
	return &World{
		size:     size,
		ids:      NewIDGenerator(),
		entities: make(map[uint64]*model.Entity, 256),
	}
}

// Size returns the universe side length.
func (w *World) Size() float64 {
	return w.size
}

// NextID allocates a fresh entity ID.
func (w *World) NextID() uint64 {
	return w.ids.Next()
}

// IDs returns the world's ID generator.
func (w *World) IDs() *IDGenerator {
	return w.ids
}

func (w *World) partitionFor(k model.Kind) *partition {
	switch k {
	case model.KindShip:
		return &w.ships
	case model.KindBullet:
		return &w.bullets
	case model.KindAsteroid:
		return &w.asteroids
	case model.KindPlanet:
		return &w.planets
	default:
		return nil
	}
}

// Add registers an entity in the world and its kind partition.
func (w *World) Add(e *model.Entity) error {
	p := w.partitionFor(e.Kind)
	if p == nil {
		return fmt.Errorf("adding entity %d: %w", e.ID, ErrUnknownKind)
	}
	if _, exists := w.entities[e.ID]; exists {
		return fmt.Errorf("adding %s %d: %w", e.Kind, e.ID, ErrDuplicateID)
	}

	w.entities[e.ID] = e
	p.add(e.ID)
	return nil
}

// Remove deletes an entity by ID.
// Removing an unknown ID is a no-op; returns whether something was removed.
func (w *World) Remove(id uint64) bool {
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	delete(w.entities, id)
	if p := w.partitionFor(e.Kind); p != nil {
		p.remove(id)
	}
	return true
}

// Get returns the entity with given ID or ErrEntityNotFound.
func (w *World) Get(id uint64) (*model.Entity, error) {
	e, ok := w.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", id, ErrEntityNotFound)
	}
	return e, nil
}

// Contains reports whether id is live.
func (w *World) Contains(id uint64) bool {
	_, ok := w.entities[id]
	return ok
}

func (w *World) collect(p *partition) []*model.Entity {
	out := make([]*model.Entity, 0, len(p.ids))
	for _, id := range p.ids {
		out = append(out, w.entities[id])
	}
	return out
}

// Ships returns the live ships in ascending ID order.
// The slice is a copy: removals during iteration do not shift it.
func (w *World) Ships() []*model.Entity { return w.collect(&w.ships) }

// Bullets returns the live bullets in ascending ID order.
func (w *World) Bullets() []*model.Entity { return w.collect(&w.bullets) }

// Asteroids returns the live asteroids in ascending ID order.
func (w *World) Asteroids() []*model.Entity { return w.collect(&w.asteroids) }

// Planets returns the planets in ascending ID order.
func (w *World) Planets() []*model.Entity { return w.collect(&w.planets) }

// Moving returns ships, bullets and asteroids (everything the integrator advances).
func (w *World) Moving() []*model.Entity {
	out := make([]*model.Entity, 0, len(w.ships.ids)+len(w.bullets.ids)+len(w.asteroids.ids))
	for _, p := range []*partition{&w.ships, &w.bullets, &w.asteroids} {
		for _, id := range p.ids {
			out = append(out, w.entities[id])
		}
	}
	return out
}

// PrimaryPlanet returns the planet flagged primary, falling back to the lowest-ID planet.
// Returns nil when the world has no planets.
func (w *World) PrimaryPlanet() *model.Entity {
	var first *model.Entity
	for _, id := range w.planets.ids {
		p := w.entities[id]
		if p.Planet != nil && p.Planet.Primary {
			return p
		}
		if first == nil {
			first = p
		}
	}
	return first
}

// Count returns the number of live entities of kind k.
func (w *World) Count(k model.Kind) int {
	p := w.partitionFor(k)
	if p == nil {
		return 0
	}
	return len(p.ids)
}

// ObjectCount returns the total number of live entities.
func (w *World) ObjectCount() int {
	return len(w.entities)
}
