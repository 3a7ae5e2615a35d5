package mazeconfig

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/beka-birhanu/vinom-arena/game"
)

// ErrNoTransformer is returned when Instantiate cannot read entity bounds.
var ErrNoTransformer = errors.New("factory cannot report bounds and no transformer was given")

// InstantiateOptions positions and scales a config in the scene.
type InstantiateOptions struct {
	Origin      game.Vec3        // where the surface is spawned
	GoalScale   float64          // uniform goal scale, 1 when zero
	Transformer game.Transformer // defaults to the factory when it implements game.Transformer
}

// Instantiate spawns every entity of cfg through factory and returns the
// resulting arena. Spawn order is surface, walls, agents, goals.
func Instantiate(cfg MazeConfig, factory game.EntityFactory, opts InstantiateOptions) (*game.Arena, error) {
	tf := opts.Transformer
	if tf == nil {
		var ok bool
		if tf, ok = factory.(game.Transformer); !ok {
			return nil, ErrNoTransformer
		}
	}
	goalScale := opts.GoalScale
	if goalScale == 0 {
		goalScale = 1
	}

	arena := &game.Arena{}

	surfacePose := game.Pose{Position: opts.Origin, Rotation: game.IdentityQuat()}
	surfaceScale := game.Vec3{X: cfg.Map.MapSize[0], Y: 1, Z: cfg.Map.MapSize[1]}
	h, err := factory.Spawn(game.EntitySpec{
		Kind:  game.KindSurface,
		Name:  "Surface",
		Pose:  surfacePose,
		Scale: surfaceScale,
	})
	if err != nil {
		return nil, fmt.Errorf("spawning surface: %w", err)
	}
	arena.Surface = game.Surface{
		Handle: h,
		Pose:   surfacePose,
		Scale:  surfaceScale,
		Bounds: tf.BoundsOf(h),
	}

	blockScale := game.Vec3FromArray(cfg.Map.BaseBuildingBlockSize)
	for i, b := range cfg.Map.Walls {
		name := strconv.Itoa(i + 1)
		h, err := factory.Spawn(game.EntitySpec{
			Kind:  game.KindObstacle,
			Name:  name,
			Pose:  b.Pose(),
			Scale: blockScale,
			Tag:   b.Type,
		})
		if err != nil {
			return nil, fmt.Errorf("spawning wall %s: %w", name, err)
		}
		arena.Obstacles = append(arena.Obstacles,
			game.NewObstacle(name, h, game.ParseObstacleType(b.Type), b.Pose(), blockScale))
	}

	for i, b := range cfg.Agents {
		name := strconv.Itoa(i + 1)
		h, err := factory.Spawn(game.EntitySpec{
			Kind:  game.KindAgent,
			Name:  name,
			Pose:  b.Pose(),
			Scale: game.Vec3{X: 1, Y: 1, Z: 1},
			Tag:   b.Type,
		})
		if err != nil {
			return nil, fmt.Errorf("spawning agent %s: %w", name, err)
		}
		arena.Agents = append(arena.Agents, game.NewAgent(name, h, game.ParseTeam(b.Type), b.Pose()))
	}

	scale := game.Vec3{X: goalScale, Y: goalScale, Z: goalScale}
	for i, b := range cfg.Goals {
		name := "Goal" + strconv.Itoa(i+1)
		h, err := factory.Spawn(game.EntitySpec{
			Kind:  game.KindGoal,
			Name:  name,
			Pose:  b.Pose(),
			Scale: scale,
			Tag:   b.Type,
		})
		if err != nil {
			return nil, fmt.Errorf("spawning goal %s: %w", name, err)
		}
		arena.Goals = append(arena.Goals, game.NewGoal(name, h, game.ParseGoalType(b.Type), b.Pose(), scale))
	}

	return arena, nil
}
