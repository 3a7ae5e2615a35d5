package game

// NoSeed disables deterministic reseeding on reset.
const NoSeed int64 = -1

// Settings configures one arena instance.
type Settings struct {
	Seed                int64 // NoSeed means unseeded
	MaxEnvironmentSteps int   // 0 disables the step timeout
	Mode                BehaviouralPattern

	LoadEnvironmentConfiguration bool
	BaseConfigFile               string
	SaveEnvironmentConfiguration bool
	BackupConfigFile             string

	UseGridMovement bool
	GridCellSize    Vec3

	RandomizeAgentPosition bool
	RandomizeAgentRotation bool
	RandomizeGoalPosition  bool

	RoleAssignment         RoleAssignment
	DifferentiateRolesProb float64

	SpawnAreaMarginMultiplier float64
	SpawnOverlapBox           Vec3 // half extents of the spawn occupancy probe
	MaxSpawnAttempts          int
	RotationAngles            [2]float64

	OutOfBoundsTolerance float64
	GlobalSymmetricScale float64 // scale applied to goals built from config

	IndividualRewards map[GameEvent]float64
	GroupRewards      map[GameEvent]float64

	CollisionPenaltyDivisor  float64
	PassivePenaltyMultiplier float64
	CooperativeShapingCap    float64
}

// DefaultSettings returns the settings used when nothing else is configured.
func DefaultSettings() Settings {
	return Settings{
		Seed:                      NoSeed,
		MaxEnvironmentSteps:       5000,
		Mode:                      Decentralized,
		BackupConfigFile:          "./configs/maps/dev_map.json",
		GridCellSize:              Vec3{X: 1, Y: 1, Z: 1},
		RandomizeAgentPosition:    true,
		RandomizeAgentRotation:    true,
		DifferentiateRolesProb:    0.5,
		SpawnAreaMarginMultiplier: 0.95,
		SpawnOverlapBox:           Vec3{X: 0.5, Y: 0.5, Z: 0.5},
		MaxSpawnAttempts:          1000,
		RotationAngles:            [2]float64{0, 360},
		OutOfBoundsTolerance:      1.1,
		GlobalSymmetricScale:      1,
		IndividualRewards: map[GameEvent]float64{
			AgentHitObstacle:              -1,
			AgentHitAgent:                 -10,
			AgentOutOfBounds:              -100,
			ActiveAgentHitGoal:            100,
			ActiveAgentHitMovableObstacle: 0,
		},
		GroupRewards: map[GameEvent]float64{
			AllGoalsCompleted:   100,
			AgentOutOfBounds:    -100,
			ActiveAgentAssisted: 10,
		},
		CollisionPenaltyDivisor:  1000,
		PassivePenaltyMultiplier: 10,
		CooperativeShapingCap:    0.33,
	}
}
