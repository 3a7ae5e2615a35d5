// Package spawn picks starting poses for entities at reset time.
package spawn

import (
	"math/rand"

	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/beka-birhanu/vinom-arena/game/grid"
)

// DefaultMaxAttempts bounds the rejection sampling loop.
const DefaultMaxAttempts = 1000

// Request describes one continuous placement.
type Request struct {
	Bounds      game.Bounds
	Margin      float64 // fraction of the extents that may be used
	RestY       float64 // vertical coordinate of the placed entity
	Occupied    func(game.Vec3) bool
	MaxAttempts int
}

// Placement is the outcome of a continuous placement.
type Placement struct {
	Position  game.Vec3
	Attempts  int
	Exhausted bool // every attempt overlapped; Position is the last sample
}

// Placer samples positions and rotations from an injected random source.
type Placer struct {
	rng *rand.Rand
}

// New returns a Placer drawing from rng.
func New(rng *rand.Rand) *Placer {
	return &Placer{rng: rng}
}

// RandomContinuousPosition samples positions on the horizontal plane until one
// does not overlap anything. It never blocks: once MaxAttempts samples were
// rejected the last one is returned with Exhausted set.
func (p *Placer) RandomContinuousPosition(req Request) Placement {
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	spanX := req.Bounds.Extents.X * req.Margin
	spanZ := req.Bounds.Extents.Z * req.Margin

	var candidate game.Vec3
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		candidate = game.Vec3{
			X: req.Bounds.Center.X + p.uniform(-spanX, spanX),
			Y: req.RestY,
			Z: req.Bounds.Center.Z + p.uniform(-spanZ, spanZ),
		}
		if req.Occupied == nil || !req.Occupied(candidate) {
			return Placement{Position: candidate, Attempts: attempt}
		}
	}

	return Placement{Position: candidate, Attempts: maxAttempts, Exhausted: true}
}

// GridCellPosition returns the centre of a uniformly chosen cell.
func (p *Placer) GridCellPosition(g *grid.Grid) game.Vec3 {
	return g.CoordinateOf(p.rng.Intn(g.CellCount()))
}

// RandomYawRotation returns a rotation around the vertical axis with a yaw drawn
// from [minDeg, maxDeg).
func (p *Placer) RandomYawRotation(minDeg, maxDeg float64) game.Quat {
	if maxDeg <= minDeg {
		return game.YawQuat(minDeg)
	}
	return game.YawQuat(p.uniform(minDeg, maxDeg))
}

func (p *Placer) uniform(lo, hi float64) float64 {
	return lo + p.rng.Float64()*(hi-lo)
}
