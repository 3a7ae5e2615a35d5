/*
Package grid tessellates the arena floor into fixed size cells.

Cells are visited row by row: the scan starts at the lowest corner of the bound,
walks along +X until a cell centre leaves the bound, then steps along +Z and
repeats. Indices are assigned in visitation order, so cell (row, col) has index
row*cols + col.

Every cell has exactly four neighbours (up, down, left, right). Where the lattice
ends the cell points back at itself.
*/
package grid

import (
	"errors"
	"math"

	"github.com/beka-birhanu/vinom-arena/game"
)

const (
	Up = iota
	Down
	Left
	Right
)

// coordEpsilon is the tolerance used when matching a coordinate to a cell centre.
const coordEpsilon = 1e-5

var (
	// Directions maps a neighbour slot to its (row, col) delta.
	Directions = [4]struct{ Row, Col int }{
		Up:    {Row: 1, Col: 0},
		Down:  {Row: -1, Col: 0},
		Left:  {Row: 0, Col: -1},
		Right: {Row: 0, Col: 1},
	}

	ErrInvalidCellSize = errors.New("cell size must be positive on every axis")
	ErrBoundsTooSmall  = errors.New("bounds are smaller than one cell")
)

// Grid is an immutable row-major lattice of cell centres.
type Grid struct {
	bounds    game.Bounds
	cellSize  game.Vec3
	origin    game.Vec3 // centre of cell 0
	rows      int
	cols      int
	neighbors [][4]int
}

// Build tessellates bounds into cells of cellSize.
func Build(bounds game.Bounds, cellSize game.Vec3) (*Grid, error) {
	if cellSize.X <= 0 || cellSize.Y <= 0 || cellSize.Z <= 0 {
		return nil, ErrInvalidCellSize
	}

	size := bounds.Size()
	if size.X < cellSize.X || size.Z < cellSize.Z {
		return nil, ErrBoundsTooSmall
	}

	g := &Grid{
		bounds:   bounds,
		cellSize: cellSize,
		origin:   bounds.Min().Add(cellSize.Scale(0.5)),
	}
	g.cols = g.scan(g.origin.X, cellSize.X, bounds.Max().X)
	g.rows = g.scan(g.origin.Z, cellSize.Z, bounds.Max().Z)
	g.buildNeighbors()

	return g, nil
}

// scan counts how many steps from start stay within limit.
func (g *Grid) scan(start, step, limit float64) int {
	n := 0
	for start+float64(n)*step <= limit+1e-9 {
		n++
	}
	return n
}

func (g *Grid) buildNeighbors() {
	g.neighbors = make([][4]int, g.rows*g.cols)
	for row := 0; row < g.rows; row++ {
		for col := 0; col < g.cols; col++ {
			idx := g.index(row, col)
			for dir, delta := range Directions {
				r, c := row+delta.Row, col+delta.Col
				if g.inBound(r, c) {
					g.neighbors[idx][dir] = g.index(r, c)
				} else {
					g.neighbors[idx][dir] = idx
				}
			}
		}
	}
}

func (g *Grid) index(row, col int) int {
	return row*g.cols + col
}

func (g *Grid) inBound(row, col int) bool {
	return row >= 0 && row < g.rows && col >= 0 && col < g.cols
}

// Rows returns the number of rows along Z.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns along X.
func (g *Grid) Cols() int { return g.cols }

// CellCount returns the number of cells in the lattice.
func (g *Grid) CellCount() int { return g.rows * g.cols }

// MaxCellIndex returns the highest valid index.
func (g *Grid) MaxCellIndex() int { return g.CellCount() - 1 }

// CellSize returns the size used to build the lattice.
func (g *Grid) CellSize() game.Vec3 { return g.cellSize }

// CoordinateOf returns the centre of cell index. It panics when index is out of
// range.
func (g *Grid) CoordinateOf(index int) game.Vec3 {
	if index < 0 || index >= g.CellCount() {
		panic("grid: cell index out of range")
	}
	row, col := index/g.cols, index%g.cols
	return game.Vec3{
		X: g.origin.X + float64(col)*g.cellSize.X,
		Y: g.origin.Y,
		Z: g.origin.Z + float64(row)*g.cellSize.Z,
	}
}

// CellIndexOf returns the index of the cell whose centre is coord.
func (g *Grid) CellIndexOf(coord game.Vec3) (int, bool) {
	idx, ok := g.CellContaining(coord)
	if !ok {
		return 0, false
	}
	centre := g.CoordinateOf(idx)
	if math.Abs(centre.X-coord.X) > coordEpsilon || math.Abs(centre.Z-coord.Z) > coordEpsilon {
		return 0, false
	}
	return idx, true
}

// CellContaining returns the index of the cell whose area holds p.
func (g *Grid) CellContaining(p game.Vec3) (int, bool) {
	col := int(math.Round((p.X - g.origin.X) / g.cellSize.X))
	row := int(math.Round((p.Z - g.origin.Z) / g.cellSize.Z))
	if !g.inBound(row, col) {
		return 0, false
	}
	return g.index(row, col), true
}

// NeighborsOf returns the up, down, left and right neighbours of index. Missing
// neighbours are replaced by index itself.
func (g *Grid) NeighborsOf(index int) [4]int {
	if index < 0 || index >= g.CellCount() {
		panic("grid: cell index out of range")
	}
	return g.neighbors[index]
}

// Adjacent returns only the neighbours that actually exist.
func (g *Grid) Adjacent(index int) []int {
	result := make([]int, 0, 4)
	for _, n := range g.NeighborsOf(index) {
		if n != index {
			result = append(result, n)
		}
	}
	return result
}
