package game

// Team is the role an agent plays in the arena.
type Team int

const (
	Passive Team = iota
	Active
	ActiveCooperative
)

var teamNames = map[Team]string{
	Passive:           "Passive",
	Active:            "Active",
	ActiveCooperative: "ActiveCooperative",
}

func (t Team) String() string {
	if name, ok := teamNames[t]; ok {
		return name
	}
	return teamNames[Passive]
}

// IsActiveRole reports whether agents of this team may move obstacles.
func (t Team) IsActiveRole() bool {
	return t == Active || t == ActiveCooperative
}

// ParseTeam maps a config tag to a Team. Unknown tags become Passive so a typo
// never grants an agent an active role.
func ParseTeam(s string) Team {
	for t, name := range teamNames {
		if name == s {
			return t
		}
	}
	return Passive
}

// ObstacleType tells whether an obstacle can be displaced.
type ObstacleType int

const (
	Immovable ObstacleType = iota
	Movable
)

func (o ObstacleType) String() string {
	if o == Movable {
		return "Movable"
	}
	return "Immovable"
}

// ParseObstacleType maps a config tag to an ObstacleType, defaulting to Immovable.
func ParseObstacleType(s string) ObstacleType {
	if s == "Movable" {
		return Movable
	}
	return Immovable
}

// GoalType is the shape a goal is materialised with.
type GoalType int

const (
	GoalCube GoalType = iota
	GoalSphere
	GoalCapsule
	GoalDefault
)

var goalTypeNames = map[GoalType]string{
	GoalCube:    "Cube",
	GoalSphere:  "Sphere",
	GoalCapsule: "Capsule",
	GoalDefault: "Default",
}

func (g GoalType) String() string {
	if name, ok := goalTypeNames[g]; ok {
		return name
	}
	return goalTypeNames[GoalDefault]
}

// ParseGoalType maps a config tag to a GoalType, defaulting to GoalDefault.
func ParseGoalType(s string) GoalType {
	for g, name := range goalTypeNames {
		if name == s {
			return g
		}
	}
	return GoalDefault
}

// BehaviouralPattern selects how group rewards are shaped.
type BehaviouralPattern int

const (
	Decentralized BehaviouralPattern = iota
	Cooperative
	// Competitive is reserved; constructing an arena with it fails.
	Competitive
)

func (b BehaviouralPattern) String() string {
	switch b {
	case Cooperative:
		return "Cooperative"
	case Competitive:
		return "Competitive"
	default:
		return "Decentralized"
	}
}

// ParseBehaviouralPattern maps a name to a pattern, defaulting to Decentralized.
func ParseBehaviouralPattern(s string) BehaviouralPattern {
	switch s {
	case "Cooperative":
		return Cooperative
	case "Competitive":
		return Competitive
	default:
		return Decentralized
	}
}

// GameEvent keys the reward tables.
type GameEvent int

const (
	AgentOutOfBounds GameEvent = iota
	AgentHitObstacle
	ActiveAgentHitGoal
	ActiveAgentHitMovableObstacle
	AgentHitAgent
	AllGoalsCompleted
	ActiveAgentAssisted
	AgentHitGoal
)

var gameEventNames = map[GameEvent]string{
	AgentOutOfBounds:              "AgentOutOfBounds",
	AgentHitObstacle:              "AgentHitObstacle",
	ActiveAgentHitGoal:            "ActiveAgentHitGoal",
	ActiveAgentHitMovableObstacle: "ActiveAgentHitMovableObstacle",
	AgentHitAgent:                 "AgentHitAgent",
	AllGoalsCompleted:             "AllGoalsCompleted",
	ActiveAgentAssisted:           "ActiveAgentAssisted",
	AgentHitGoal:                  "AgentHitGoal",
}

func (e GameEvent) String() string {
	if name, ok := gameEventNames[e]; ok {
		return name
	}
	return "Unknown"
}

// Known reports whether e is one of the declared events.
func (e GameEvent) Known() bool {
	_, ok := gameEventNames[e]
	return ok
}

// ParseGameEvent maps an event name to its GameEvent.
func ParseGameEvent(s string) (GameEvent, bool) {
	for e, name := range gameEventNames {
		if name == s {
			return e, true
		}
	}
	return 0, false
}

// RoleAssignment decides how live-scene agents receive their team.
type RoleAssignment int

const (
	// RolesFromFlags derives the team from each agent's own active/cooperate flags.
	RolesFromFlags RoleAssignment = iota
	// RolesRandom draws Active or Passive per agent.
	RolesRandom
	// RolesRoundRobin alternates Active and Passive in discovery order.
	RolesRoundRobin
)

// ParseRoleAssignment accepts "flags", "random" and "round-robin".
func ParseRoleAssignment(s string) RoleAssignment {
	switch s {
	case "random":
		return RolesRandom
	case "round-robin":
		return RolesRoundRobin
	default:
		return RolesFromFlags
	}
}
