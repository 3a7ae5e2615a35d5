package episode

import (
	"fmt"

	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
)

// Snapshot is a read-only copy of the controller's state.
type Snapshot struct {
	State          State
	Episode        int
	Steps          int
	Mode           game.BehaviouralPattern
	GoalsCompleted int
	GroupReward    float64
	LastOutcome    Outcome // outcome of the previous episode
	Surface        game.Surface
	Agents         []game.Agent
	Obstacles      []game.Obstacle
	Goals          []game.Goal
}

// Snapshot copies the current arena. Entities are empty before construction.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		State:          c.state,
		Episode:        c.episode,
		Steps:          c.steps,
		GoalsCompleted: c.goalsCompleted,
		GroupReward:    c.groupReward,
		LastOutcome:    c.lastOutcome,
	}
	if c.arena == nil {
		return s
	}

	s.Mode = c.arena.Mode
	s.Surface = c.arena.Surface
	s.Agents = make([]game.Agent, 0, len(c.arena.Agents))
	for _, a := range c.arena.Agents {
		s.Agents = append(s.Agents, *a)
	}
	s.Obstacles = make([]game.Obstacle, 0, len(c.arena.Obstacles))
	for _, o := range c.arena.Obstacles {
		s.Obstacles = append(s.Obstacles, *o)
	}
	s.Goals = make([]game.Goal, 0, len(c.arena.Goals))
	for _, g := range c.arena.Goals {
		s.Goals = append(s.Goals, *g)
	}
	return s
}

// Dump serialises the starting layout of the arena.
func (c *Controller) Dump() (mazeconfig.MazeConfig, error) {
	if c.arena == nil {
		return mazeconfig.MazeConfig{}, fmt.Errorf("%w: state is %s", game.ErrNotRunning, c.state)
	}
	return mazeconfig.Dump(c.arena), nil
}
