package episode

import (
	"fmt"

	"github.com/beka-birhanu/vinom-arena/game"
)

// Tick advances the episode by one fixed step.
//
// Pending move requests are granted first, then poses are refreshed from the
// scene, the step counter is incremented and every agent pays the per step
// penalty. The episode ends on timeout or when any agent falls below the
// surface; otherwise the cooperative shaping reward of the step is added to
// the group reward.
func (c *Controller) Tick() (TickResult, error) {
	if err := c.running(); err != nil {
		return TickResult{}, err
	}
	episode := c.episode
	res := TickResult{Episode: episode}

	c.grantMoves()
	if c.episode != episode {
		return c.ended(res, c.lastOutcome), nil
	}

	c.refreshPoses()
	c.steps++
	if penalty := c.ledger.PerStepPenalty(); penalty != 0 {
		for _, a := range c.arena.Agents {
			c.addAgentReward(a, penalty)
		}
	}

	if limit := c.settings.MaxEnvironmentSteps; limit > 0 && c.steps >= limit {
		return c.ended(res, Timeout), c.endEpisode(Timeout)
	}

	if agent := c.firstOutOfBounds(); agent != nil {
		c.addAgentReward(agent, c.ledger.Individual(game.AgentOutOfBounds))
		c.addGroupReward(c.ledger.Group(game.AgentOutOfBounds))
		c.logger.Warning(fmt.Sprintf("agent %s fell out of the arena at %.2f", agent.Name, agent.Pose.Position.Y))
		return c.ended(res, OutOfBounds), c.endEpisode(OutOfBounds)
	}

	deltas := make([][]float64, 0, len(c.arena.Agents))
	for _, a := range c.arena.Agents {
		d, err := c.UpdateDistanceThresholds(a.ID)
		if err != nil {
			return res, err
		}
		deltas = append(deltas, d)
	}
	res.Shaping = c.ledger.CooperativeShaping(deltas)
	c.addGroupReward(res.Shaping)

	res.Step = c.steps
	return res, nil
}

func (c *Controller) ended(res TickResult, outcome Outcome) TickResult {
	res.Ended = true
	res.Outcome = outcome
	return res
}

// grantMoves hands each queued request to its obstacle. A hook that ends the
// episode stops the loop.
func (c *Controller) grantMoves() {
	episode := c.episode
	moves := c.moves
	c.moves = nil

	for _, m := range moves {
		o, ok := c.obstacles[m.ObstacleID]
		if !ok {
			continue
		}
		o.AllowedToMove = true
		o.MoveRequestedBy = m.AgentID
		if c.onMoveRequested != nil {
			c.onMoveRequested(m)
			if c.episode != episode {
				return
			}
		}
	}
}

func (c *Controller) refreshPoses() {
	for _, a := range c.arena.Agents {
		a.Pose = c.scene.PoseOf(a.Handle)
	}
	for _, o := range c.arena.Obstacles {
		o.Pose = c.scene.PoseOf(o.Handle)
	}
	for _, g := range c.arena.Goals {
		g.Pose = c.scene.PoseOf(g.Handle)
	}
}

// firstOutOfBounds returns the first agent below the floor minus the tolerance.
func (c *Controller) firstOutOfBounds() *game.Agent {
	floor := c.arena.Surface.Bounds.Max().Y - c.settings.OutOfBoundsTolerance
	for _, a := range c.arena.Agents {
		if a.Pose.Position.Y < floor {
			return a
		}
	}
	return nil
}
