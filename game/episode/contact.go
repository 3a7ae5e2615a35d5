package episode

import (
	"fmt"

	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/google/uuid"
)

// UpdateStatistics recounts completed goals. Once every goal is completed the
// group earns the goal reward per completed goal, plus the assist bonus in
// cooperative mode, and the episode ends.
func (c *Controller) UpdateStatistics() error {
	if err := c.running(); err != nil {
		return err
	}

	completed := 0
	for _, g := range c.arena.Goals {
		if g.Completed {
			completed++
		}
	}
	c.goalsCompleted = completed
	if completed < len(c.arena.Goals) {
		return nil
	}

	c.addGroupReward(float64(completed) * c.ledger.Individual(game.ActiveAgentHitGoal))
	if c.arena.Mode == game.Cooperative {
		c.addGroupReward(c.ledger.Group(game.ActiveAgentAssisted))
	}
	return c.endEpisode(Completed)
}

// OnGoalContact reports that agentID touched goalID. Only agents of the Active
// team complete goals; any other touch just marks the goal as touched.
func (c *Controller) OnGoalContact(goalID, agentID uuid.UUID) error {
	if err := c.running(); err != nil {
		return err
	}
	g, ok := c.goals[goalID]
	if !ok {
		return fmt.Errorf("%w: goal %s", game.ErrUnknownEntity, goalID)
	}
	agent, ok := c.agents[agentID]
	if !ok {
		return fmt.Errorf("%w: agent %s", game.ErrUnknownEntity, agentID)
	}

	g.Touched = true
	if g.Completed || agent.Team != game.Active {
		return nil
	}

	g.Completed = true
	c.addAgentReward(agent, c.ledger.Individual(game.ActiveAgentHitGoal))
	return c.UpdateStatistics()
}

// OnObstacleContact reports that agentID hit obstacleID. It returns whether the
// obstacle may be displaced by this contact, which consumes a granted move
// request. Active agents touching a movable obstacle earn the movable reward;
// every other hit costs an escalating penalty.
func (c *Controller) OnObstacleContact(agentID, obstacleID uuid.UUID) (bool, error) {
	if err := c.running(); err != nil {
		return false, err
	}
	agent, ok := c.agents[agentID]
	if !ok {
		return false, fmt.Errorf("%w: agent %s", game.ErrUnknownEntity, agentID)
	}
	o, ok := c.obstacles[obstacleID]
	if !ok {
		return false, fmt.Errorf("%w: obstacle %s", game.ErrUnknownEntity, obstacleID)
	}

	if o.Movable && agent.Team.IsActiveRole() {
		c.addAgentReward(agent, c.ledger.Individual(game.ActiveAgentHitMovableObstacle))
		if !o.AllowedToMove || o.MoveRequestedBy != agentID {
			return false, nil
		}
		o.AllowedToMove = false
		o.MoveRequestedBy = uuid.Nil
		agent.MoveRequested = false
		return true, nil
	}

	agent.Collisions++
	c.addAgentReward(agent, c.ledger.ObstacleCollisionPenalty(agent.Team, agent.Collisions))
	return false, nil
}

// OnAgentContact reports that agentID bumped into otherID. Bumping into an
// agent holding an active role is penalised.
func (c *Controller) OnAgentContact(agentID, otherID uuid.UUID) error {
	if err := c.running(); err != nil {
		return err
	}
	agent, ok := c.agents[agentID]
	if !ok {
		return fmt.Errorf("%w: agent %s", game.ErrUnknownEntity, agentID)
	}
	other, ok := c.agents[otherID]
	if !ok {
		return fmt.Errorf("%w: agent %s", game.ErrUnknownEntity, otherID)
	}

	if other.Team.IsActiveRole() {
		c.addAgentReward(agent, c.ledger.AgentCollisionPenalty(agent.Team))
	}
	return nil
}

// OnContact dispatches a contact of agentID with an entity of the given kind.
func (c *Controller) OnContact(kind game.EntityKind, agentID, otherID uuid.UUID) error {
	switch kind {
	case game.KindGoal:
		return c.OnGoalContact(otherID, agentID)
	case game.KindObstacle:
		_, err := c.OnObstacleContact(agentID, otherID)
		return err
	case game.KindAgent:
		return c.OnAgentContact(agentID, otherID)
	default:
		return nil
	}
}

// RequestMove queues a request of agentID to displace obstacleID. The request
// is granted on the next Tick.
func (c *Controller) RequestMove(agentID, obstacleID uuid.UUID) error {
	if err := c.running(); err != nil {
		return err
	}
	agent, ok := c.agents[agentID]
	if !ok {
		return fmt.Errorf("%w: agent %s", game.ErrUnknownEntity, agentID)
	}
	o, ok := c.obstacles[obstacleID]
	if !ok {
		return fmt.Errorf("%w: obstacle %s", game.ErrUnknownEntity, obstacleID)
	}
	if !agent.Team.IsActiveRole() || !o.Movable {
		return fmt.Errorf("%w: agent %s, obstacle %s", game.ErrMoveNotPermitted, agent.Name, o.Name)
	}

	agent.MoveRequested = true
	c.moves = append(c.moves, MoveRequest{AgentID: agentID, ObstacleID: obstacleID})
	return nil
}
