package episode

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
	"github.com/beka-birhanu/vinom-arena/game/sandbox"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var identity = [4]float64{0, 0, 0, 1}

func block(x, z float64, tag string) mazeconfig.BuildingBlock {
	return mazeconfig.BuildingBlock{Position: [3]float64{x, 0.5, z}, Rotation: identity, Type: tag}
}

// layout is a 10x10 arena with one movable and one fixed wall, agents along
// z=0 and goals along x=4.
func layout(teams []string, goals int) mazeconfig.MazeConfig {
	cfg := mazeconfig.MazeConfig{
		Agents: []mazeconfig.BuildingBlock{},
		Goals:  []mazeconfig.BuildingBlock{},
		Map: mazeconfig.MapDescription{
			MapSize:               [2]float64{10, 10},
			BaseBuildingBlockSize: [3]float64{1, 1, 1},
			Walls:                 []mazeconfig.BuildingBlock{block(2, 2, "Movable"), block(-2, -2, "Immovable")},
		},
	}
	for i, team := range teams {
		cfg.Agents = append(cfg.Agents, block(-4+2*float64(i), 0, team))
	}
	for j := 0; j < goals; j++ {
		cfg.Goals = append(cfg.Goals, block(4, 4-2*float64(j), "Cube"))
	}
	return cfg
}

func testSettings(t *testing.T) game.Settings {
	t.Helper()
	s := game.DefaultSettings()
	s.Seed = 1
	s.MaxEnvironmentSteps = 0
	s.RandomizeAgentPosition = false
	s.RandomizeAgentRotation = false
	s.BackupConfigFile = filepath.Join(t.TempDir(), "backup.json")
	return s
}

type fixture struct {
	ctrl    *Controller
	scene   *sandbox.Scene
	results []Result
	moves   []MoveRequest
	onMove  func(MoveRequest)
}

func newFixture(t *testing.T, s game.Settings) *fixture {
	t.Helper()
	f := &fixture{scene: sandbox.New()}
	ctrl, err := New(Options{
		Settings:     s,
		Scene:        f.scene,
		OnEpisodeEnd: func(r Result) { f.results = append(f.results, r) },
		OnMoveRequested: func(m MoveRequest) {
			f.moves = append(f.moves, m)
			if f.onMove != nil {
				f.onMove(m)
			}
		},
	})
	require.NoError(t, err)
	f.ctrl = ctrl
	return f
}

func start(t *testing.T, s game.Settings, cfg mazeconfig.MazeConfig) *fixture {
	t.Helper()
	f := newFixture(t, s)
	require.NoError(t, f.ctrl.Construct(FromMazeConfig(cfg)))
	require.NoError(t, f.ctrl.Reset())
	return f
}

func (f *fixture) agent(i int) game.Agent       { return f.ctrl.Snapshot().Agents[i] }
func (f *fixture) goal(i int) game.Goal         { return f.ctrl.Snapshot().Goals[i] }
func (f *fixture) obstacle(i int) game.Obstacle { return f.ctrl.Snapshot().Obstacles[i] }

func (f *fixture) moveAgent(i int, x, y, z float64) {
	f.scene.SetPose(f.agent(i).Handle, game.Pose{Position: game.Vec3{X: x, Y: y, Z: z}, Rotation: game.IdentityQuat()})
}

func TestNew(t *testing.T) {
	t.Run("scene is required", func(t *testing.T) {
		_, err := New(Options{Settings: game.DefaultSettings()})
		assert.ErrorIs(t, err, ErrNoScene)
	})

	t.Run("reward tables are validated", func(t *testing.T) {
		s := game.DefaultSettings()
		s.GroupRewards = map[game.GameEvent]float64{}
		_, err := New(Options{Settings: s, Scene: sandbox.New()})
		assert.ErrorIs(t, err, game.ErrUnknownEventKind)
	})
}

func TestConstruct(t *testing.T) {
	t.Run("no active agent", func(t *testing.T) {
		f := newFixture(t, testSettings(t))
		err := f.ctrl.Construct(FromMazeConfig(layout([]string{"Passive"}, 1)))
		assert.ErrorIs(t, err, game.ErrInvariantViolation)
		assert.Equal(t, Uninitialized, f.ctrl.State())
	})

	t.Run("no goal", func(t *testing.T) {
		f := newFixture(t, testSettings(t))
		err := f.ctrl.Construct(FromMazeConfig(layout([]string{"Active"}, 0)))
		assert.ErrorIs(t, err, game.ErrInvariantViolation)
		assert.Equal(t, Uninitialized, f.ctrl.State())
	})

	t.Run("competitive mode is rejected", func(t *testing.T) {
		s := testSettings(t)
		s.Mode = game.Competitive
		f := newFixture(t, s)
		err := f.ctrl.Construct(FromMazeConfig(layout([]string{"Active"}, 1)))
		assert.ErrorIs(t, err, game.ErrUnsupportedMode)
	})

	t.Run("constructs once", func(t *testing.T) {
		f := newFixture(t, testSettings(t))
		require.NoError(t, f.ctrl.Construct(FromMazeConfig(layout([]string{"Active"}, 1))))
		assert.Equal(t, Constructed, f.ctrl.State())
		err := f.ctrl.Construct(FromMazeConfig(layout([]string{"Active"}, 1)))
		assert.ErrorIs(t, err, game.ErrAlreadyConstructed)
	})

	t.Run("malformed config file fails construction", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"Agents": []}`), 0o644))

		f := newFixture(t, testSettings(t))
		err := f.ctrl.Construct(FromConfig(path))
		assert.ErrorIs(t, err, game.ErrConfigParse)
		assert.Equal(t, Uninitialized, f.ctrl.State())
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "arena.yaml")
		require.NoError(t, mazeconfig.SaveFile(path, layout([]string{"Active", "Passive"}, 2)))

		s := testSettings(t)
		s.LoadEnvironmentConfiguration = true
		s.BaseConfigFile = path
		f := newFixture(t, s)
		require.NoError(t, f.ctrl.Construct(SourceFromSettings(s)))

		snap := f.ctrl.Snapshot()
		assert.Len(t, snap.Agents, 2)
		assert.Len(t, snap.Goals, 2)
		assert.Len(t, snap.Obstacles, 2)
	})

	t.Run("cooperative agent switches the mode", func(t *testing.T) {
		f := newFixture(t, testSettings(t))
		require.NoError(t, f.ctrl.Construct(FromMazeConfig(layout([]string{"Active", "ActiveCooperative"}, 1))))
		assert.Equal(t, game.Cooperative, f.ctrl.Snapshot().Mode)
	})

	t.Run("grid is built when enabled", func(t *testing.T) {
		s := testSettings(t)
		s.UseGridMovement = true
		f := newFixture(t, s)
		require.NoError(t, f.ctrl.Construct(FromMazeConfig(layout([]string{"Active"}, 1))))
		require.NotNil(t, f.ctrl.Grid())
		assert.Equal(t, 100, f.ctrl.Grid().CellCount())
	})
}

func TestConstructLiveScene(t *testing.T) {
	pose := func(x, z float64) game.Pose {
		return game.Pose{Position: game.Vec3{X: x, Y: 0.5, Z: z}, Rotation: game.IdentityQuat()}
	}
	unit := game.Vec3{X: 1, Y: 1, Z: 1}

	populate := func(s *sandbox.Scene) {
		s.Place(sandbox.Body{Kind: game.KindSurface, Pose: game.Pose{Rotation: game.IdentityQuat()}, Scale: game.Vec3{X: 8, Y: 1, Z: 8}, Enabled: true})
		s.Place(sandbox.Body{Kind: game.KindObstacle, Name: "crate", Pose: pose(1, 1), Scale: unit, Enabled: true, IsMovable: true})
		s.Place(sandbox.Body{Kind: game.KindAgent, Name: "a", Pose: pose(-2, 0), Scale: unit, Enabled: true, IsActive: true})
		s.Place(sandbox.Body{Kind: game.KindAgent, Name: "b", Pose: pose(0, 0), Scale: unit, Enabled: true, IsActive: true, WillingToCooperate: true})
		s.Place(sandbox.Body{Kind: game.KindAgent, Name: "ghost", Pose: pose(2, 0), Scale: unit, Enabled: false, IsActive: true})
		s.Place(sandbox.Body{Kind: game.KindAgent, Name: "c", Pose: pose(3, 0), Scale: unit, Enabled: true})
		s.Place(sandbox.Body{Kind: game.KindGoal, Name: "g", Pose: pose(3, 3), Scale: unit, Enabled: true})
	}

	t.Run("roles from flags", func(t *testing.T) {
		f := newFixture(t, testSettings(t))
		populate(f.scene)
		require.NoError(t, f.ctrl.Construct(LiveScene()))

		snap := f.ctrl.Snapshot()
		require.Len(t, snap.Agents, 3)
		assert.Equal(t, game.Active, snap.Agents[0].Team)
		assert.Equal(t, game.ActiveCooperative, snap.Agents[1].Team)
		assert.Equal(t, game.Passive, snap.Agents[2].Team)
		assert.Equal(t, game.Cooperative, snap.Mode)

		require.Len(t, snap.Obstacles, 1)
		assert.True(t, snap.Obstacles[0].Movable)
		assert.Equal(t, game.GoalSphere, snap.Goals[0].Type)
		assert.Equal(t, game.Vec3{X: 4, Y: 0, Z: 4}, snap.Surface.Bounds.Extents)
	})

	t.Run("round robin roles", func(t *testing.T) {
		s := testSettings(t)
		s.RoleAssignment = game.RolesRoundRobin
		f := newFixture(t, s)
		populate(f.scene)
		require.NoError(t, f.ctrl.Construct(LiveScene()))

		snap := f.ctrl.Snapshot()
		assert.Equal(t, game.Active, snap.Agents[0].Team)
		assert.Equal(t, game.Passive, snap.Agents[1].Team)
		assert.Equal(t, game.Active, snap.Agents[2].Team)
		assert.Equal(t, game.Decentralized, snap.Mode)
	})

	t.Run("random roles always active with probability one", func(t *testing.T) {
		s := testSettings(t)
		s.RoleAssignment = game.RolesRandom
		s.DifferentiateRolesProb = 1
		f := newFixture(t, s)
		populate(f.scene)
		require.NoError(t, f.ctrl.Construct(LiveScene()))

		for _, a := range f.ctrl.Snapshot().Agents {
			assert.Equal(t, game.Active, a.Team)
		}
	})

	t.Run("scene without surface", func(t *testing.T) {
		f := newFixture(t, testSettings(t))
		err := f.ctrl.Construct(LiveScene())
		assert.ErrorIs(t, err, game.ErrInvariantViolation)
	})
}

func TestReset(t *testing.T) {
	t.Run("requires construction", func(t *testing.T) {
		f := newFixture(t, testSettings(t))
		assert.ErrorIs(t, f.ctrl.Reset(), game.ErrNotRunning)
	})

	t.Run("first reset saves the backup config", func(t *testing.T) {
		s := testSettings(t)
		s.SaveEnvironmentConfiguration = true
		cfg := layout([]string{"Active", "Passive"}, 1)
		f := start(t, s, cfg)

		assert.Equal(t, Running, f.ctrl.State())
		assert.Equal(t, 1, f.ctrl.Episode())

		saved, err := mazeconfig.LoadFile(s.BackupConfigFile)
		require.NoError(t, err)
		assert.Equal(t, cfg, saved)
	})

	t.Run("backup failure is not fatal", func(t *testing.T) {
		s := testSettings(t)
		s.SaveEnvironmentConfiguration = true
		blocker := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(blocker, nil, 0o644))
		s.BackupConfigFile = filepath.Join(blocker, "backup.json")

		f := start(t, s, layout([]string{"Active"}, 1))
		assert.Equal(t, Running, f.ctrl.State())
	})

	t.Run("later resets restore the starting layout", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active", "Passive"}, 1))

		wall := f.obstacle(0)
		f.scene.SetPose(wall.Handle, game.Pose{Position: game.Vec3{X: -3, Y: 0.5, Z: 3}, Rotation: game.IdentityQuat()})
		f.moveAgent(0, 1, 0.5, 1)
		f.scene.SetVelocity(f.agent(0).Handle, game.Vec3{X: 2})
		_, err := f.ctrl.OnObstacleContact(f.agent(1).ID, f.obstacle(1).ID)
		require.NoError(t, err)
		_, err = f.ctrl.Tick()
		require.NoError(t, err)

		require.NoError(t, f.ctrl.Reset())

		assert.Equal(t, 2, f.ctrl.Episode())
		assert.Zero(t, f.ctrl.Steps())
		assert.Equal(t, wall.Start, f.scene.PoseOf(wall.Handle))
		assert.Equal(t, f.agent(0).Start, f.scene.PoseOf(f.agent(0).Handle))
		assert.Zero(t, f.agent(1).Collisions)
		assert.Zero(t, f.agent(1).Reward)

		body, ok := f.scene.Body(f.agent(0).Handle)
		require.True(t, ok)
		assert.Equal(t, game.Vec3{}, body.Velocity)

		best, ok := f.ctrl.BestDistances(f.agent(0).ID)
		require.True(t, ok)
		assert.True(t, math.IsInf(best[0], 1))
	})

	t.Run("randomized agents stay on the surface", func(t *testing.T) {
		s := testSettings(t)
		s.RandomizeAgentPosition = true
		s.RandomizeAgentRotation = true
		f := start(t, s, layout([]string{"Active", "Passive", "Passive"}, 1))

		for i := 0; i < 20; i++ {
			require.NoError(t, f.ctrl.Reset())
			for _, a := range f.ctrl.Snapshot().Agents {
				p := f.scene.PoseOf(a.Handle).Position
				assert.LessOrEqual(t, math.Abs(p.X), 5*0.95)
				assert.LessOrEqual(t, math.Abs(p.Z), 5*0.95)
				assert.Equal(t, 0.5, p.Y)
			}
		}
	})

	t.Run("randomized goals move and start fresh", func(t *testing.T) {
		s := testSettings(t)
		s.RandomizeGoalPosition = true
		f := start(t, s, layout([]string{"Active", "Passive"}, 2))
		first := f.goal(0)

		require.NoError(t, f.ctrl.OnGoalContact(f.goal(0).ID, f.agent(0).ID))
		require.NoError(t, f.ctrl.OnGoalContact(f.goal(1).ID, f.agent(1).ID))
		require.True(t, f.goal(0).Completed)
		require.True(t, f.goal(1).Touched)

		for i := 0; i < 20; i++ {
			require.NoError(t, f.ctrl.Reset())
			for _, g := range f.ctrl.Snapshot().Goals {
				p := f.scene.PoseOf(g.Handle).Position
				assert.Equal(t, p, g.Pose.Position)
				assert.LessOrEqual(t, math.Abs(p.X), 5*0.95)
				assert.LessOrEqual(t, math.Abs(p.Z), 5*0.95)
				assert.Equal(t, 0.5, p.Y)
				assert.False(t, g.Touched)
				assert.False(t, g.Completed)
			}
		}
		assert.NotEqual(t, first.Start.Position, f.goal(0).Pose.Position)
		assert.Equal(t, first.Start, f.goal(0).Start)
	})

	t.Run("grid spawning lands on cell centres", func(t *testing.T) {
		s := testSettings(t)
		s.RandomizeAgentPosition = true
		s.UseGridMovement = true
		f := start(t, s, layout([]string{"Active"}, 1))

		require.NoError(t, f.ctrl.Reset())
		_, ok := f.ctrl.Grid().CellIndexOf(f.scene.PoseOf(f.agent(0).Handle).Position)
		assert.True(t, ok)
	})

	t.Run("resetting a running episode interrupts it", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active"}, 1))
		_, err := f.ctrl.Tick()
		require.NoError(t, err)

		require.NoError(t, f.ctrl.Reset())
		require.Len(t, f.results, 1)
		assert.Equal(t, Interrupted, f.results[0].Outcome)
		assert.Equal(t, 1, f.results[0].Steps)
		assert.Equal(t, Interrupted, f.ctrl.LastOutcome())
		assert.Equal(t, 2, f.ctrl.Episode())
	})

	t.Run("reset from a hook inside a tick reports the interruption", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active"}, 1))
		f.onMove = func(MoveRequest) {
			require.NoError(t, f.ctrl.Reset())
		}

		require.NoError(t, f.ctrl.RequestMove(f.agent(0).ID, f.obstacle(0).ID))
		res, err := f.ctrl.Tick()
		require.NoError(t, err)

		assert.True(t, res.Ended)
		assert.Equal(t, Interrupted, res.Outcome)
		require.Len(t, f.results, 1)
		assert.Equal(t, Interrupted, f.results[0].Outcome)
		assert.Equal(t, 2, f.ctrl.Episode())
	})

	t.Run("end hook may reset on its own", func(t *testing.T) {
		var ctrl *Controller
		ends := 0
		ctrl, err := New(Options{
			Settings: testSettings(t),
			Scene:    sandbox.New(),
			OnEpisodeEnd: func(Result) {
				ends++
				require.NoError(t, ctrl.Reset())
			},
		})
		require.NoError(t, err)
		require.NoError(t, ctrl.Construct(FromMazeConfig(layout([]string{"Active"}, 1))))
		require.NoError(t, ctrl.Reset())

		require.NoError(t, ctrl.Interrupt())
		assert.Equal(t, 1, ends)
		assert.Equal(t, 2, ctrl.Episode())
	})

	t.Run("fixed seed repeats spawns", func(t *testing.T) {
		s := testSettings(t)
		s.RandomizeAgentPosition = true
		f := start(t, s, layout([]string{"Active"}, 1))

		require.NoError(t, f.ctrl.Reset())
		first := f.scene.PoseOf(f.agent(0).Handle)
		require.NoError(t, f.ctrl.Reset())
		assert.Equal(t, first, f.scene.PoseOf(f.agent(0).Handle))
	})
}

func TestTick(t *testing.T) {
	t.Run("requires a running episode", func(t *testing.T) {
		f := newFixture(t, testSettings(t))
		require.NoError(t, f.ctrl.Construct(FromMazeConfig(layout([]string{"Active"}, 1))))
		_, err := f.ctrl.Tick()
		assert.ErrorIs(t, err, game.ErrNotRunning)
	})

	t.Run("timeout interrupts the episode", func(t *testing.T) {
		s := testSettings(t)
		s.MaxEnvironmentSteps = 3
		f := start(t, s, layout([]string{"Active"}, 1))

		for step := 1; step < 3; step++ {
			res, err := f.ctrl.Tick()
			require.NoError(t, err)
			assert.False(t, res.Ended)
			assert.Equal(t, step, res.Step)
		}

		res, err := f.ctrl.Tick()
		require.NoError(t, err)
		assert.True(t, res.Ended)
		assert.Equal(t, Timeout, res.Outcome)

		require.Len(t, f.results, 1)
		assert.Equal(t, Timeout, f.results[0].Outcome)
		assert.Equal(t, 3, f.results[0].Steps)
		assert.Zero(t, f.results[0].GoalsCompleted)
		assert.Equal(t, 2, f.ctrl.Episode())
		assert.Zero(t, f.ctrl.Steps())
	})

	t.Run("every step costs each agent", func(t *testing.T) {
		s := testSettings(t)
		s.MaxEnvironmentSteps = 9
		f := start(t, s, layout([]string{"Active", "Passive"}, 1))

		for i := 0; i < 4; i++ {
			_, err := f.ctrl.Tick()
			require.NoError(t, err)
		}
		rewards := f.ctrl.TakeRewards()
		for _, a := range f.ctrl.Snapshot().Agents {
			assert.InDelta(t, -0.4, rewards.Agents[a.ID], 1e-12)
			assert.InDelta(t, -0.4, a.Reward, 1e-12)
		}
		assert.Zero(t, rewards.Group)
	})

	t.Run("no step budget no step penalty", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active"}, 1))
		_, err := f.ctrl.Tick()
		require.NoError(t, err)
		assert.Empty(t, f.ctrl.TakeRewards().Agents)
	})

	t.Run("zero max steps never times out", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active"}, 1))
		for i := 0; i < 50; i++ {
			res, err := f.ctrl.Tick()
			require.NoError(t, err)
			require.False(t, res.Ended)
		}
		assert.Equal(t, 50, f.ctrl.Steps())
	})

	t.Run("one agent out of bounds ends the episode", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active", "Passive"}, 1))
		passive := f.agent(1)
		f.moveAgent(1, 0, -1.2, 0)

		res, err := f.ctrl.Tick()
		require.NoError(t, err)
		assert.True(t, res.Ended)
		assert.Equal(t, OutOfBounds, res.Outcome)

		require.Len(t, f.results, 1)
		assert.Equal(t, -100.0, f.results[0].GroupReward)
		assert.Equal(t, -100.0, f.results[0].AgentRewards[passive.ID])

		rewards := f.ctrl.TakeRewards()
		assert.Equal(t, -100.0, rewards.Group)
		assert.Equal(t, -100.0, rewards.Agents[passive.ID])
		assert.Empty(t, f.ctrl.TakeRewards().Agents)
	})

	t.Run("within tolerance is not out of bounds", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active"}, 1))
		f.moveAgent(0, 0, -1.0, 0)
		res, err := f.ctrl.Tick()
		require.NoError(t, err)
		assert.False(t, res.Ended)
	})

	t.Run("shaping rewards progress towards goals", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active"}, 1))
		goal := f.goal(0).Pose.Position

		res, err := f.ctrl.Tick()
		require.NoError(t, err)
		assert.Zero(t, res.Shaping)

		before := f.agent(0).Pose.Position
		f.moveAgent(0, before.X+0.1, before.Y, before.Z+0.1)
		after := f.scene.PoseOf(f.agent(0).Handle).Position

		res, err = f.ctrl.Tick()
		require.NoError(t, err)
		assert.InDelta(t, before.Distance(goal)-after.Distance(goal), res.Shaping, 1e-9)

		f.moveAgent(0, before.X, before.Y, before.Z)
		res, err = f.ctrl.Tick()
		require.NoError(t, err)
		assert.Zero(t, res.Shaping)
	})

	t.Run("shaping is capped", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active"}, 1))
		_, err := f.ctrl.Tick()
		require.NoError(t, err)

		f.moveAgent(0, 3, 0.5, 3)
		res, err := f.ctrl.Tick()
		require.NoError(t, err)
		assert.Equal(t, 0.33, res.Shaping)
	})
}

func TestGoalCompletion(t *testing.T) {
	t.Run("completing every goal ends the episode once", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active", "Passive"}, 2))
		active := f.agent(0)

		require.NoError(t, f.ctrl.OnGoalContact(f.goal(0).ID, active.ID))
		assert.Empty(t, f.results)
		assert.True(t, f.goal(0).Completed)
		assert.Equal(t, 1, f.ctrl.Snapshot().GoalsCompleted)

		require.NoError(t, f.ctrl.OnGoalContact(f.goal(1).ID, active.ID))
		require.Len(t, f.results, 1)
		assert.Equal(t, Completed, f.results[0].Outcome)
		assert.Equal(t, 2, f.results[0].GoalsCompleted)
		assert.Equal(t, 2*100.0, f.results[0].GroupReward)
		assert.Equal(t, 200.0, f.results[0].AgentRewards[active.ID])
		assert.Equal(t, 2, f.ctrl.Episode())
		assert.False(t, f.goal(0).Completed)
	})

	t.Run("touching twice pays once", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active"}, 2))
		active := f.agent(0)

		require.NoError(t, f.ctrl.OnGoalContact(f.goal(0).ID, active.ID))
		require.NoError(t, f.ctrl.OnGoalContact(f.goal(0).ID, active.ID))
		assert.Equal(t, 100.0, f.ctrl.TakeRewards().Agents[active.ID])
	})

	t.Run("passive and cooperative agents only touch", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active", "Passive", "ActiveCooperative"}, 1))

		require.NoError(t, f.ctrl.OnGoalContact(f.goal(0).ID, f.agent(1).ID))
		require.NoError(t, f.ctrl.OnGoalContact(f.goal(0).ID, f.agent(2).ID))

		assert.True(t, f.goal(0).Touched)
		assert.False(t, f.goal(0).Completed)
		assert.Empty(t, f.results)
		assert.Empty(t, f.ctrl.TakeRewards().Agents)
	})

	t.Run("cooperative mode adds the assist bonus", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active", "ActiveCooperative"}, 1))

		require.NoError(t, f.ctrl.OnContact(game.KindGoal, f.agent(0).ID, f.goal(0).ID))
		require.Len(t, f.results, 1)
		assert.Equal(t, 110.0, f.results[0].GroupReward)
	})

	t.Run("completion inside a tick short circuits it", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active"}, 1))
		active, goal := f.agent(0), f.goal(0)
		f.onMove = func(MoveRequest) {
			require.NoError(t, f.ctrl.OnGoalContact(goal.ID, active.ID))
		}

		require.NoError(t, f.ctrl.RequestMove(active.ID, f.obstacle(0).ID))
		res, err := f.ctrl.Tick()
		require.NoError(t, err)

		assert.True(t, res.Ended)
		assert.Equal(t, Completed, res.Outcome)
		assert.Zero(t, res.Step)
		require.Len(t, f.results, 1)
		assert.Equal(t, 2, f.ctrl.Episode())
		assert.Zero(t, f.ctrl.Steps())
	})

	t.Run("unknown entities", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active"}, 1))
		assert.ErrorIs(t, f.ctrl.OnGoalContact(uuid.New(), f.agent(0).ID), game.ErrUnknownEntity)
		assert.ErrorIs(t, f.ctrl.OnGoalContact(f.goal(0).ID, uuid.New()), game.ErrUnknownEntity)
	})
}

func TestUpdateDistanceThresholds(t *testing.T) {
	f := start(t, testSettings(t), layout([]string{"Active", "Passive"}, 3))
	rng := rand.New(rand.NewSource(11))

	for _, a := range f.ctrl.Snapshot().Agents {
		prev, ok := f.ctrl.BestDistances(a.ID)
		require.True(t, ok)

		for i := 0; i < 200; i++ {
			f.scene.SetPose(a.Handle, game.Pose{
				Position: game.Vec3{X: rng.Float64()*10 - 5, Y: 0.5, Z: rng.Float64()*10 - 5},
				Rotation: game.IdentityQuat(),
			})
			deltas, err := f.ctrl.UpdateDistanceThresholds(a.ID)
			require.NoError(t, err)
			require.Len(t, deltas, 3)

			cur, _ := f.ctrl.BestDistances(a.ID)
			for g := range cur {
				assert.LessOrEqual(t, cur[g], prev[g])
				assert.GreaterOrEqual(t, deltas[g], 0.0)
			}
			prev = cur
		}
	}

	_, err := f.ctrl.UpdateDistanceThresholds(uuid.New())
	assert.ErrorIs(t, err, game.ErrUnknownEntity)
}

func TestContacts(t *testing.T) {
	t.Run("obstacle penalties escalate", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active", "Passive"}, 1))
		wall := f.obstacle(1).ID

		_, err := f.ctrl.OnObstacleContact(f.agent(0).ID, wall)
		require.NoError(t, err)
		_, err = f.ctrl.OnObstacleContact(f.agent(0).ID, wall)
		require.NoError(t, err)
		_, err = f.ctrl.OnObstacleContact(f.agent(1).ID, wall)
		require.NoError(t, err)

		rewards := f.ctrl.TakeRewards()
		assert.InDelta(t, -1.001-1.002, rewards.Agents[f.agent(0).ID], 1e-9)
		assert.InDelta(t, -10.001, rewards.Agents[f.agent(1).ID], 1e-9)
		assert.Equal(t, 2, f.agent(0).Collisions)
	})

	t.Run("movable obstacles need a granted request", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active", "Passive"}, 1))
		active, passive := f.agent(0), f.agent(1)
		crate, wall := f.obstacle(0), f.obstacle(1)

		moved, err := f.ctrl.OnObstacleContact(active.ID, crate.ID)
		require.NoError(t, err)
		assert.False(t, moved)
		assert.Zero(t, f.agent(0).Collisions)

		assert.ErrorIs(t, f.ctrl.RequestMove(passive.ID, crate.ID), game.ErrMoveNotPermitted)
		assert.ErrorIs(t, f.ctrl.RequestMove(active.ID, wall.ID), game.ErrMoveNotPermitted)

		require.NoError(t, f.ctrl.RequestMove(active.ID, crate.ID))
		assert.True(t, f.agent(0).MoveRequested)
		_, err = f.ctrl.Tick()
		require.NoError(t, err)
		require.Len(t, f.moves, 1)
		assert.Equal(t, MoveRequest{AgentID: active.ID, ObstacleID: crate.ID}, f.moves[0])
		assert.True(t, f.obstacle(0).AllowedToMove)

		moved, err = f.ctrl.OnObstacleContact(passive.ID, crate.ID)
		require.NoError(t, err)
		assert.False(t, moved)

		moved, err = f.ctrl.OnObstacleContact(active.ID, crate.ID)
		require.NoError(t, err)
		assert.True(t, moved)
		assert.False(t, f.agent(0).MoveRequested)

		moved, err = f.ctrl.OnObstacleContact(active.ID, crate.ID)
		require.NoError(t, err)
		assert.False(t, moved)
	})

	t.Run("bumping into active agents costs", func(t *testing.T) {
		f := start(t, testSettings(t), layout([]string{"Active", "Passive"}, 1))
		active, passive := f.agent(0), f.agent(1)

		require.NoError(t, f.ctrl.OnContact(game.KindAgent, passive.ID, active.ID))
		require.NoError(t, f.ctrl.OnAgentContact(active.ID, passive.ID))

		rewards := f.ctrl.TakeRewards()
		assert.Equal(t, -100.0, rewards.Agents[passive.ID])
		assert.Zero(t, rewards.Agents[active.ID])
	})
}

func TestLifecycle(t *testing.T) {
	cfg := layout([]string{"Active", "Passive"}, 2)
	f := start(t, testSettings(t), cfg)

	dumped, err := f.ctrl.Dump()
	require.NoError(t, err)
	assert.Equal(t, cfg, dumped)

	require.NoError(t, f.ctrl.Interrupt())
	require.Len(t, f.results, 1)
	assert.Equal(t, Interrupted, f.results[0].Outcome)
	assert.Equal(t, Running, f.ctrl.State())

	f.ctrl.Teardown()
	assert.Equal(t, TornDown, f.ctrl.State())
	_, err = f.ctrl.Tick()
	assert.ErrorIs(t, err, game.ErrNotRunning)
	assert.ErrorIs(t, f.ctrl.Reset(), game.ErrNotRunning)
	_, err = f.ctrl.Dump()
	assert.ErrorIs(t, err, game.ErrNotRunning)
}
