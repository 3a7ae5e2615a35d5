/*
Package game holds the data model shared by the arena packages: entities, the
arena aggregate, settings and the interfaces the surrounding simulation must
implement (occupancy queries, entity factories, transforms, velocity resets and
scene enumeration).
*/
package game

import "github.com/google/uuid"

// Handle is an opaque reference to an entity owned by the scene collaborator.
type Handle uint64

// EntityKind groups scene entities for enumeration and spawning.
type EntityKind int

const (
	KindSurface EntityKind = iota
	KindObstacle
	KindAgent
	KindGoal
)

func (k EntityKind) String() string {
	switch k {
	case KindSurface:
		return "surface"
	case KindObstacle:
		return "obstacle"
	case KindAgent:
		return "agent"
	case KindGoal:
		return "goal"
	default:
		return "unknown"
	}
}

// EntitySpec describes an entity the factory must materialise.
type EntitySpec struct {
	Kind  EntityKind
	Name  string
	Pose  Pose
	Scale Vec3
	Tag   string // type tag, e.g. "Movable", "Active", "Sphere"
}

// DiscoveredEntity is what the scene reports for an entity that already exists.
type DiscoveredEntity struct {
	Handle             Handle
	Name               string
	Pose               Pose
	Scale              Vec3
	Tag                string
	Enabled            bool
	IsActive           bool
	WillingToCooperate bool
	IsMovable          bool
	IsWalkable         bool
}

// OccupancyTester answers whether a box overlaps anything already in the scene.
type OccupancyTester interface {
	Occupied(center, halfExtents Vec3) bool
}

// ExcludingOccupancyTester is an optional extension of OccupancyTester for
// scenes that can leave one entity out of the query, usually the entity that
// is being placed.
type ExcludingOccupancyTester interface {
	OccupiedExcluding(center, halfExtents Vec3, exclude Handle) bool
}

// EntityFactory materialises renderable/physical entities.
type EntityFactory interface {
	Spawn(spec EntitySpec) (Handle, error)
}

// VelocityResetter zeroes the momentum of an entity.
type VelocityResetter interface {
	ResetVelocity(h Handle)
}

// EntityEnumerator lists the entities of a kind present in a live scene.
type EntityEnumerator interface {
	Enumerate(kind EntityKind) []DiscoveredEntity
}

// Transformer reads and writes entity poses.
type Transformer interface {
	PoseOf(h Handle) Pose
	SetPose(h Handle, p Pose)
	BoundsOf(h Handle) Bounds
}

// Scene is the full set of collaborators an episode controller drives.
type Scene interface {
	OccupancyTester
	EntityFactory
	VelocityResetter
	EntityEnumerator
	Transformer
}

// Logger records diagnostics.
type Logger interface {
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// Surface is the floor every other entity stands on.
type Surface struct {
	Handle Handle
	Pose   Pose
	Scale  Vec3
	Bounds Bounds
}

// Agent is a learner placed in the arena.
type Agent struct {
	ID                 uuid.UUID
	Name               string
	Handle             Handle
	Team               Team
	Start              Pose
	Pose               Pose
	IsActive           bool
	WillingToCooperate bool
	Collisions         int     // obstacle collisions in the current episode
	MoveRequested      bool    // set while a move request is unresolved
	Reward             float64 // individual reward accumulated this episode
}

// Obstacle is a wall block, movable or not.
type Obstacle struct {
	ID              uuid.UUID
	Name            string
	Handle          Handle
	Type            ObstacleType
	Movable         bool
	Walkable        bool
	Start           Pose
	Pose            Pose
	Scale           Vec3
	AllowedToMove   bool
	MoveRequestedBy uuid.UUID
}

// Reset restores the obstacle's transient state.
func (o *Obstacle) Reset() {
	o.Pose = o.Start
	o.AllowedToMove = false
	o.MoveRequestedBy = uuid.Nil
}

// Goal is a target agents have to reach.
type Goal struct {
	ID        uuid.UUID
	Name      string
	Handle    Handle
	Type      GoalType
	Start     Pose
	Pose      Pose
	Scale     Vec3
	Touched   bool // any agent made contact
	Completed bool // an active agent made contact
}

// Reset clears the goal's contact flags.
func (g *Goal) Reset() {
	g.Touched = false
	g.Completed = false
}

// Arena owns every entity of one environment instance.
type Arena struct {
	Surface   Surface
	Obstacles []*Obstacle
	Agents    []*Agent
	Goals     []*Goal
	Mode      BehaviouralPattern
}

// ActiveAgents counts agents holding an active role.
func (a *Arena) ActiveAgents() int {
	n := 0
	for _, agent := range a.Agents {
		if agent.Team.IsActiveRole() {
			n++
		}
	}
	return n
}

// NewAgent builds an agent whose flags follow its team.
func NewAgent(name string, h Handle, team Team, pose Pose) *Agent {
	return &Agent{
		ID:                 uuid.New(),
		Name:               name,
		Handle:             h,
		Team:               team,
		Start:              pose,
		Pose:               pose,
		IsActive:           team.IsActiveRole(),
		WillingToCooperate: team == ActiveCooperative,
	}
}

// NewObstacle builds an obstacle of the given type.
func NewObstacle(name string, h Handle, t ObstacleType, pose Pose, scale Vec3) *Obstacle {
	return &Obstacle{
		ID:      uuid.New(),
		Name:    name,
		Handle:  h,
		Type:    t,
		Movable: t == Movable,
		Start:   pose,
		Pose:    pose,
		Scale:   scale,
	}
}

// NewGoal builds a goal of the given type.
func NewGoal(name string, h Handle, t GoalType, pose Pose, scale Vec3) *Goal {
	return &Goal{
		ID:     uuid.New(),
		Name:   name,
		Handle: h,
		Type:   t,
		Start:  pose,
		Pose:   pose,
		Scale:  scale,
	}
}
