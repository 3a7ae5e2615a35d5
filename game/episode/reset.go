package episode

import (
	"fmt"

	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
	"github.com/beka-birhanu/vinom-arena/game/spawn"
	"github.com/google/uuid"
)

// Reset starts a new episode. The first reset after construction keeps the
// constructed poses and only persists the backup config when requested; later
// resets restore obstacles, respawn agents and goals and clear every per
// episode counter. Calls made while a reset is in progress are ignored.
// Resetting a running episode that is not already ending interrupts it, so
// the end hook still sees its result.
func (c *Controller) Reset() error {
	if c.resetting {
		return nil
	}
	if c.state != Constructed && c.state != Running {
		return fmt.Errorf("%w: state is %s", game.ErrNotRunning, c.state)
	}
	if c.state == Running && !c.ending {
		return c.endEpisode(Interrupted)
	}

	c.resetting = true
	c.state = Resetting
	defer func() { c.resetting = false }()

	if c.firstReset {
		c.firstReset = false
		if c.settings.SaveEnvironmentConfiguration {
			c.saveBackup()
		}
	} else {
		c.respawn()
	}

	c.steps = 0
	c.goalsCompleted = 0
	c.groupReward = 0
	c.moves = nil
	c.resetThresholds()
	c.episode++
	c.state = Running
	return nil
}

func (c *Controller) saveBackup() {
	path := c.settings.BackupConfigFile
	if path == "" {
		return
	}
	if err := mazeconfig.SaveFile(path, mazeconfig.Dump(c.arena)); err != nil {
		c.logger.Warning(fmt.Sprintf("saving backup config to %s: %v", path, err))
		return
	}
	c.logger.Info("backup config saved to " + path)
}

// respawn restores obstacles before placing agents and goals, since placement
// queries the occupancy of the scene.
func (c *Controller) respawn() {
	if c.settings.Seed != game.NoSeed {
		c.rng.Seed(c.settings.Seed)
	}

	for _, o := range c.arena.Obstacles {
		o.Reset()
		c.scene.SetPose(o.Handle, o.Start)
		c.scene.ResetVelocity(o.Handle)
	}

	for _, a := range c.arena.Agents {
		pose := a.Start
		if c.settings.RandomizeAgentPosition {
			pose.Position = c.samplePosition(a.Name, a.Handle, a.Start.Position.Y)
		}
		if c.settings.RandomizeAgentRotation {
			pose.Rotation = c.placer.RandomYawRotation(c.settings.RotationAngles[0], c.settings.RotationAngles[1])
		}
		a.Pose = pose
		c.scene.SetPose(a.Handle, pose)
		c.scene.ResetVelocity(a.Handle)
		a.Collisions = 0
		a.MoveRequested = false
		a.Reward = 0
	}

	for _, g := range c.arena.Goals {
		pose := g.Start
		if c.settings.RandomizeGoalPosition {
			pose.Position = c.samplePosition(g.Name, g.Handle, g.Start.Position.Y)
		}
		g.Pose = pose
		c.scene.SetPose(g.Handle, pose)
		g.Reset()
	}
}

// samplePosition picks a free position on the grid or on the surface. An
// exhausted search is logged and its last sample is used.
func (c *Controller) samplePosition(name string, self game.Handle, restY float64) game.Vec3 {
	if c.grid != nil {
		p := c.placer.GridCellPosition(c.grid)
		p.Y = restY
		return p
	}

	placement := c.placer.RandomContinuousPosition(spawn.Request{
		Bounds:      c.arena.Surface.Bounds,
		Margin:      c.settings.SpawnAreaMarginMultiplier,
		RestY:       restY,
		MaxAttempts: c.settings.MaxSpawnAttempts,
		Occupied: func(p game.Vec3) bool {
			if ex, ok := c.scene.(game.ExcludingOccupancyTester); ok {
				return ex.OccupiedExcluding(p, c.settings.SpawnOverlapBox, self)
			}
			return c.scene.Occupied(p, c.settings.SpawnOverlapBox)
		},
	})
	if placement.Exhausted {
		c.logger.Warning(fmt.Sprintf("%v: %s placed after %d attempts", game.ErrSpawnExhausted, name, placement.Attempts))
	}
	return placement.Position
}

// endEpisode reports the finished episode and starts the next one.
func (c *Controller) endEpisode(outcome Outcome) error {
	res := Result{
		Episode:        c.episode,
		Steps:          c.steps,
		Outcome:        outcome,
		GoalsCompleted: c.goalsCompleted,
		GroupReward:    c.groupReward,
		AgentRewards:   make(map[uuid.UUID]float64, len(c.arena.Agents)),
	}
	c.lastOutcome = outcome
	c.ending = true
	defer func() { c.ending = false }()
	for _, a := range c.arena.Agents {
		res.AgentRewards[a.ID] = a.Reward
	}

	c.logger.Info(fmt.Sprintf("episode %d ended after %d steps: %s, group reward %.3f",
		res.Episode, res.Steps, outcome, res.GroupReward))
	if c.onEpisodeEnd != nil {
		c.onEpisodeEnd(res)
		if c.episode != res.Episode {
			return nil
		}
	}
	return c.Reset()
}

// Interrupt ends the running episode on operator request.
func (c *Controller) Interrupt() error {
	if err := c.running(); err != nil {
		return err
	}
	return c.endEpisode(Interrupted)
}
