package world

import (
	"math"
	"slices"

	"github.com/udisondev/orbitwar/internal/model"
	"github.com/udisondev/orbitwar/internal/vector"
)

// DefaultCellSize is the target side of a grid cell in world units.
const DefaultCellSize = 10.0

// Grid buckets entities into square cells of a toroidal universe for broad-phase
// collision queries. It is rebuilt from scratch before each use and holds ids only.
type Grid struct {
	size     float64
	cells    int     // cells per axis
	cellSize float64 // size / cells

	buckets   [][]uint64
	maxRadius float64
	count     int
}

// NewGrid creates a grid for a universe of side size with cells close to cellSize.
func NewGrid(size, cellSize float64) *Grid {
	cells := 1
	if size > 0 && cellSize > 0 {
		cells = max(1, int(size/cellSize))
	}
	return &Grid{
		size:     size,
		cells:    cells,
		cellSize: size / float64(cells),
		buckets:  make([][]uint64, cells*cells),
	}
}

// Size returns the universe side the grid covers.
func (g *Grid) Size() float64 {
	return g.size
}

// Cells returns the number of cells per axis.
func (g *Grid) Cells() int {
	return g.cells
}

// Len returns the number of entities indexed.
func (g *Grid) Len() int {
	return g.count
}

// MaxRadius returns the largest radius indexed since the last Rebuild.
func (g *Grid) MaxRadius() float64 {
	return g.maxRadius
}

// CellOf returns the cell coordinates of p. Points outside [0, size) are wrapped.
func (g *Grid) CellOf(p vector.Vec) (cx, cy int) {
	return g.axis(p.X), g.axis(p.Y)
}

func (g *Grid) axis(v float64) int {
	if !(g.cellSize > 0) || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	c := int(math.Floor(v / g.cellSize))
	c %= g.cells
	if c < 0 {
		c += g.cells
	}
	return c
}

// Rebuild clears the grid and indexes entities by position.
func (g *Grid) Rebuild(entities []*model.Entity) {
	for i := range g.buckets {
		g.buckets[i] = g.buckets[i][:0]
	}
	g.maxRadius = 0
	g.count = len(entities)

	for _, e := range entities {
		cx, cy := g.CellOf(e.Position)
		idx := cy*g.cells + cx
		g.buckets[idx] = append(g.buckets[idx], e.ID)
		g.maxRadius = max(g.maxRadius, e.Radius)
	}
}

// Near appends to dst the ids of every indexed entity whose cell lies within
// reach of p (wrapping at the edges) and returns dst sorted ascending.
// The result is a superset of the entities within reach; callers run the exact test.
func (g *Grid) Near(dst []uint64, p vector.Vec, reach float64) []uint64 {
	if g.count == 0 {
		return dst
	}

	span := g.cells
	if g.cellSize > 0 && reach >= 0 && !math.IsInf(reach, 0) {
		span = int(math.Ceil(reach/g.cellSize)) + 1
	}

	start := len(dst)
	if 2*span+1 >= g.cells {
		// The window covers every column and row; scan each cell once.
		for _, b := range g.buckets {
			dst = append(dst, b...)
		}
	} else {
		cx, cy := g.CellOf(p)
		for dy := -span; dy <= span; dy++ {
			row := ((cy+dy)%g.cells + g.cells) % g.cells
			for dx := -span; dx <= span; dx++ {
				col := ((cx+dx)%g.cells + g.cells) % g.cells
				dst = append(dst, g.buckets[row*g.cells+col]...)
			}
		}
	}

	slices.Sort(dst[start:])
	return dst
}
