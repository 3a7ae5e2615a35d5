/*
Package sandbox is an in-memory kinematic scene.

It implements every collaborator interface of the game package so that arenas
can run headless: in the CLI, behind the HTTP API and in tests. Bodies are axis
aligned boxes that move with a constant velocity; anything that leaves the
footprint of every surface falls.
*/
package sandbox

import (
	"errors"
	"sync"

	"github.com/beka-birhanu/vinom-arena/game"
)

// Gravity is the vertical acceleration applied to unsupported bodies.
const Gravity = 9.81

var ErrUnknownKind = errors.New("unknown entity kind")

// Body is one simulated entity.
type Body struct {
	Kind               game.EntityKind
	Name               string
	Pose               game.Pose
	Scale              game.Vec3
	Tag                string
	Enabled            bool
	IsActive           bool
	WillingToCooperate bool
	IsMovable          bool
	IsWalkable         bool
	Velocity           game.Vec3
}

// Scene stores bodies in insertion order.
type Scene struct {
	mu     sync.RWMutex
	next   game.Handle
	bodies map[game.Handle]*Body
	order  []game.Handle
}

// New returns an empty scene.
func New() *Scene {
	return &Scene{bodies: make(map[game.Handle]*Body)}
}

// Place adds a pre-built body, as if it had been authored in the scene.
func (s *Scene) Place(b Body) game.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(&b)
}

func (s *Scene) add(b *Body) game.Handle {
	s.next++
	s.bodies[s.next] = b
	s.order = append(s.order, s.next)
	return s.next
}

// Spawn implements game.EntityFactory. Flags are derived from the type tag.
func (s *Scene) Spawn(spec game.EntitySpec) (game.Handle, error) {
	if spec.Kind < game.KindSurface || spec.Kind > game.KindGoal {
		return 0, ErrUnknownKind
	}

	b := &Body{
		Kind:    spec.Kind,
		Name:    spec.Name,
		Pose:    spec.Pose,
		Scale:   spec.Scale,
		Tag:     spec.Tag,
		Enabled: true,
	}
	switch spec.Kind {
	case game.KindAgent:
		team := game.ParseTeam(spec.Tag)
		b.IsActive = team.IsActiveRole()
		b.WillingToCooperate = team == game.ActiveCooperative
	case game.KindObstacle:
		b.IsMovable = game.ParseObstacleType(spec.Tag) == game.Movable
	case game.KindSurface:
		b.IsWalkable = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(b), nil
}

// Enumerate implements game.EntityEnumerator.
func (s *Scene) Enumerate(kind game.EntityKind) []game.DiscoveredEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []game.DiscoveredEntity
	for _, h := range s.order {
		b := s.bodies[h]
		if b.Kind != kind {
			continue
		}
		result = append(result, game.DiscoveredEntity{
			Handle:             h,
			Name:               b.Name,
			Pose:               b.Pose,
			Scale:              b.Scale,
			Tag:                b.Tag,
			Enabled:            b.Enabled,
			IsActive:           b.IsActive,
			WillingToCooperate: b.WillingToCooperate,
			IsMovable:          b.IsMovable,
			IsWalkable:         b.IsWalkable,
		})
	}
	return result
}

// Body returns a copy of the body behind h.
func (s *Scene) Body(h game.Handle) (Body, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bodies[h]
	if !ok {
		return Body{}, false
	}
	return *b, true
}

// Len returns the number of bodies.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// SetEnabled toggles whether a body takes part in the simulation.
func (s *Scene) SetEnabled(h game.Handle, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bodies[h]; ok {
		b.Enabled = enabled
	}
}

// PoseOf implements game.Transformer. Unknown handles yield the zero pose.
func (s *Scene) PoseOf(h game.Handle) game.Pose {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.bodies[h]; ok {
		return b.Pose
	}
	return game.Pose{}
}

// SetPose implements game.Transformer.
func (s *Scene) SetPose(h game.Handle, p game.Pose) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bodies[h]; ok {
		b.Pose = p
	}
}

// BoundsOf implements game.Transformer. Surfaces are flat.
func (s *Scene) BoundsOf(h game.Handle) game.Bounds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bodies[h]
	if !ok {
		return game.Bounds{}
	}
	return bounds(b)
}

func bounds(b *Body) game.Bounds {
	ext := b.Scale.Scale(0.5)
	if b.Kind == game.KindSurface {
		ext.Y = 0
	}
	return game.Bounds{Center: b.Pose.Position, Extents: ext}
}

// ResetVelocity implements game.VelocityResetter.
func (s *Scene) ResetVelocity(h game.Handle) {
	s.SetVelocity(h, game.Vec3{})
}

// SetVelocity sets the linear velocity of a body.
func (s *Scene) SetVelocity(h game.Handle, v game.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.bodies[h]; ok {
		b.Velocity = v
	}
}

// Occupied implements game.OccupancyTester. Surfaces and disabled bodies never
// occupy space.
func (s *Scene) Occupied(center, halfExtents game.Vec3) bool {
	return s.OccupiedExcluding(center, halfExtents, 0)
}

// OccupiedExcluding implements game.ExcludingOccupancyTester.
func (s *Scene) OccupiedExcluding(center, halfExtents game.Vec3, exclude game.Handle) bool {
	probe := game.Bounds{Center: center, Extents: halfExtents}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, h := range s.order {
		b := s.bodies[h]
		if h == exclude || !b.Enabled || b.Kind == game.KindSurface {
			continue
		}
		if probe.Intersects(bounds(b)) {
			return true
		}
	}
	return false
}

// Overlapping returns the enabled non-surface bodies whose bounds intersect
// the bounds of h, in insertion order.
func (s *Scene) Overlapping(h game.Handle) []game.Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	self, ok := s.bodies[h]
	if !ok {
		return nil
	}
	box := bounds(self)

	var result []game.Handle
	for _, other := range s.order {
		b := s.bodies[other]
		if other == h || !b.Enabled || b.Kind == game.KindSurface {
			continue
		}
		if box.Intersects(bounds(b)) {
			result = append(result, other)
		}
	}
	return result
}

// Step advances every enabled body by dt seconds. Bodies that are not above a
// surface accelerate downwards.
func (s *Scene) Step(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, h := range s.order {
		b := s.bodies[h]
		if !b.Enabled || b.Kind == game.KindSurface {
			continue
		}
		if !s.supported(b) {
			b.Velocity.Y -= Gravity * dt
		}
		b.Pose.Position = b.Pose.Position.Add(b.Velocity.Scale(dt))
	}
}

func (s *Scene) supported(b *Body) bool {
	p := b.Pose.Position
	for _, h := range s.order {
		surface := s.bodies[h]
		if !surface.Enabled || surface.Kind != game.KindSurface {
			continue
		}
		lo, hi := bounds(surface).Min(), bounds(surface).Max()
		if p.X >= lo.X && p.X <= hi.X && p.Z >= lo.Z && p.Z <= hi.Z {
			return true
		}
	}
	return false
}
