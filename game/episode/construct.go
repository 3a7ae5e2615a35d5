package episode

import (
	"fmt"

	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/beka-birhanu/vinom-arena/game/grid"
	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
	"github.com/google/uuid"
)

// Source tells Construct where the arena comes from.
type Source struct {
	path   string
	config *mazeconfig.MazeConfig
}

// LiveScene discovers the entities already present in the scene.
func LiveScene() Source { return Source{} }

// FromConfig instantiates the config stored at path.
func FromConfig(path string) Source { return Source{path: path} }

// FromMazeConfig instantiates an in-memory config.
func FromMazeConfig(cfg mazeconfig.MazeConfig) Source { return Source{config: &cfg} }

// SourceFromSettings picks the base config file when loading is enabled and
// the live scene otherwise.
func SourceFromSettings(s game.Settings) Source {
	if s.LoadEnvironmentConfiguration && s.BaseConfigFile != "" {
		return FromConfig(s.BaseConfigFile)
	}
	return LiveScene()
}

func (s Source) String() string {
	switch {
	case s.config != nil:
		return "inline config"
	case s.path != "":
		return "config " + s.path
	default:
		return "live scene"
	}
}

// Construct populates the arena from src and checks its invariants. On failure
// the controller stays Uninitialized and no partial arena is kept.
func (c *Controller) Construct(src Source) error {
	if c.state != Uninitialized {
		return fmt.Errorf("%w: state is %s", game.ErrAlreadyConstructed, c.state)
	}
	if c.settings.Mode == game.Competitive {
		return fmt.Errorf("%w: %s", game.ErrUnsupportedMode, c.settings.Mode)
	}

	c.state = Constructing
	arena, err := c.populate(src)
	if err == nil {
		err = checkInvariants(arena)
	}
	var g *grid.Grid
	if err == nil && c.settings.UseGridMovement {
		g, err = grid.Build(arena.Surface.Bounds, c.settings.GridCellSize)
	}
	if err != nil {
		c.state = Uninitialized
		c.logger.Error(fmt.Sprintf("constructing arena from %s: %v", src, err))
		return err
	}

	arena.Mode = c.settings.Mode
	for _, a := range arena.Agents {
		if a.WillingToCooperate {
			arena.Mode = game.Cooperative
			break
		}
	}

	c.arena = arena
	c.grid = g
	c.agents = make(map[uuid.UUID]*game.Agent, len(arena.Agents))
	for _, a := range arena.Agents {
		c.agents[a.ID] = a
	}
	c.obstacles = make(map[uuid.UUID]*game.Obstacle, len(arena.Obstacles))
	for _, o := range arena.Obstacles {
		c.obstacles[o.ID] = o
	}
	c.goals = make(map[uuid.UUID]*game.Goal, len(arena.Goals))
	for _, gl := range arena.Goals {
		c.goals[gl.ID] = gl
	}
	c.firstReset = true
	c.state = Constructed

	c.logger.Info(fmt.Sprintf("arena constructed from %s: %d agents (%d active), %d obstacles, %d goals, mode %s",
		src, len(arena.Agents), arena.ActiveAgents(), len(arena.Obstacles), len(arena.Goals), arena.Mode))
	return nil
}

func (c *Controller) populate(src Source) (*game.Arena, error) {
	opts := mazeconfig.InstantiateOptions{
		Origin:      c.origin,
		GoalScale:   c.settings.GlobalSymmetricScale,
		Transformer: c.scene,
	}

	switch {
	case src.config != nil:
		return mazeconfig.Instantiate(*src.config, c.scene, opts)
	case src.path != "":
		cfg, err := mazeconfig.LoadFile(src.path)
		if err != nil {
			return nil, err
		}
		return mazeconfig.Instantiate(cfg, c.scene, opts)
	default:
		return c.discover()
	}
}

func checkInvariants(a *game.Arena) error {
	if a.ActiveAgents() == 0 {
		return fmt.Errorf("%w: arena has no active-role agent", game.ErrInvariantViolation)
	}
	if len(a.Goals) == 0 {
		return fmt.Errorf("%w: arena has no goal", game.ErrInvariantViolation)
	}
	return nil
}

// discover builds the arena from the enabled entities of the live scene.
func (c *Controller) discover() (*game.Arena, error) {
	var arena game.Arena

	found := false
	for _, s := range c.scene.Enumerate(game.KindSurface) {
		if !s.Enabled {
			continue
		}
		arena.Surface = game.Surface{
			Handle: s.Handle,
			Pose:   s.Pose,
			Scale:  s.Scale,
			Bounds: c.scene.BoundsOf(s.Handle),
		}
		found = true
		break
	}
	if !found {
		return nil, fmt.Errorf("%w: scene has no surface", game.ErrInvariantViolation)
	}

	for _, d := range c.scene.Enumerate(game.KindObstacle) {
		if !d.Enabled {
			continue
		}
		t := game.ParseObstacleType(d.Tag)
		if d.IsMovable {
			t = game.Movable
		}
		o := game.NewObstacle(d.Name, d.Handle, t, d.Pose, d.Scale)
		o.Walkable = d.IsWalkable
		arena.Obstacles = append(arena.Obstacles, o)
	}

	i := 0
	for _, d := range c.scene.Enumerate(game.KindAgent) {
		if !d.Enabled {
			continue
		}
		arena.Agents = append(arena.Agents, game.NewAgent(d.Name, d.Handle, c.assignRole(i, d), d.Pose))
		i++
	}

	for _, d := range c.scene.Enumerate(game.KindGoal) {
		if !d.Enabled {
			continue
		}
		t := game.GoalSphere
		if d.Tag != "" {
			t = game.ParseGoalType(d.Tag)
		}
		arena.Goals = append(arena.Goals, game.NewGoal(d.Name, d.Handle, t, d.Pose, d.Scale))
	}

	return &arena, nil
}

func (c *Controller) assignRole(i int, d game.DiscoveredEntity) game.Team {
	switch c.settings.RoleAssignment {
	case game.RolesRandom:
		if c.rng.Float64() < c.settings.DifferentiateRolesProb {
			return game.Active
		}
		return game.Passive
	case game.RolesRoundRobin:
		if i%2 == 0 {
			return game.Active
		}
		return game.Passive
	default:
		switch {
		case d.IsActive && d.WillingToCooperate:
			return game.ActiveCooperative
		case d.IsActive:
			return game.Active
		default:
			return game.Passive
		}
	}
}
