/*
Package episode runs the lifecycle of one arena: construction, resets, per step
bookkeeping and contact callbacks.

A Controller is single threaded. Every method must be called from the host loop
that owns it; callbacks may re-enter the controller and end the episode, in
which case the remainder of the current Tick is skipped.

	Uninitialized -> Constructing -> Constructed -> Running <-> Resetting
	                                                   |
	                                                   v
	                                                TornDown
*/
package episode

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/beka-birhanu/vinom-arena/game/grid"
	"github.com/beka-birhanu/vinom-arena/game/reward"
	"github.com/beka-birhanu/vinom-arena/game/spawn"
	"github.com/google/uuid"
)

var ErrNoScene = errors.New("episode controller needs a scene")

// State is the lifecycle stage of a Controller.
type State int

const (
	Uninitialized State = iota
	Constructing
	Constructed
	Running
	Resetting
	TornDown
)

var stateNames = map[State]string{
	Uninitialized: "Uninitialized",
	Constructing:  "Constructing",
	Constructed:   "Constructed",
	Running:       "Running",
	Resetting:     "Resetting",
	TornDown:      "TornDown",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Outcome tells why an episode ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	Completed           // every goal was completed
	Timeout             // the step budget ran out
	OutOfBounds         // an agent fell off the arena
	Interrupted         // the operator ended the episode
)

var outcomeNames = map[Outcome]string{
	OutcomeNone: "None",
	Completed:   "Completed",
	Timeout:     "Timeout",
	OutOfBounds: "OutOfBounds",
	Interrupted: "Interrupted",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "Unknown"
}

// MoveRequest asks for permission to displace a movable obstacle.
type MoveRequest struct {
	AgentID    uuid.UUID
	ObstacleID uuid.UUID
}

// Result summarises a finished episode.
type Result struct {
	Episode        int
	Steps          int
	Outcome        Outcome
	GoalsCompleted int
	GroupReward    float64
	AgentRewards   map[uuid.UUID]float64
}

// Rewards are rewards earned since the last TakeRewards call.
type Rewards struct {
	Agents map[uuid.UUID]float64
	Group  float64
}

// TickResult reports what one Tick did.
type TickResult struct {
	Step    int     // step counter after the tick, 0 when the episode ended
	Episode int     // episode the tick started in
	Ended   bool    // the tick ended the episode
	Outcome Outcome // why it ended
	Shaping float64 // cooperative shaping added to the group reward
}

// Options configures a Controller. Only Scene is required.
type Options struct {
	Settings        game.Settings
	Scene           game.Scene
	Ledger          *reward.Ledger // built from Settings when nil
	Logger          game.Logger
	Rand            *rand.Rand // seeded from Settings.Seed when nil
	Origin          game.Vec3  // where config arenas are instantiated
	OnEpisodeEnd    func(Result)
	OnMoveRequested func(MoveRequest)
}

// Controller owns an arena and everything that changes during an episode.
type Controller struct {
	settings        game.Settings
	scene           game.Scene
	ledger          *reward.Ledger
	logger          game.Logger
	rng             *rand.Rand
	placer          *spawn.Placer
	origin          game.Vec3
	onEpisodeEnd    func(Result)
	onMoveRequested func(MoveRequest)

	state     State
	arena     *game.Arena
	grid      *grid.Grid
	agents    map[uuid.UUID]*game.Agent
	obstacles map[uuid.UUID]*game.Obstacle
	goals     map[uuid.UUID]*game.Goal

	thresholds     map[uuid.UUID][]float64 // best distance per agent, indexed like arena.Goals
	moves          []MoveRequest
	steps          int
	episode        int
	goalsCompleted int
	groupReward    float64
	lastOutcome    Outcome
	firstReset     bool
	resetting      bool
	ending         bool

	pendingAgents map[uuid.UUID]float64
	pendingGroup  float64
}

// New validates opts and returns an Uninitialized controller.
func New(opts Options) (*Controller, error) {
	if opts.Scene == nil {
		return nil, ErrNoScene
	}

	ledger := opts.Ledger
	if ledger == nil {
		var err error
		if ledger, err = reward.FromSettings(opts.Settings); err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}

	rng := opts.Rand
	if rng == nil {
		seed := opts.Settings.Seed
		if seed == game.NoSeed {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}

	return &Controller{
		settings:        opts.Settings,
		scene:           opts.Scene,
		ledger:          ledger,
		logger:          logger,
		rng:             rng,
		placer:          spawn.New(rng),
		origin:          opts.Origin,
		onEpisodeEnd:    opts.OnEpisodeEnd,
		onMoveRequested: opts.OnMoveRequested,
		state:           Uninitialized,
		pendingAgents:   make(map[uuid.UUID]float64),
	}, nil
}

// State returns the lifecycle stage.
func (c *Controller) State() State { return c.state }

// Episode returns how many resets completed since construction.
func (c *Controller) Episode() int { return c.episode }

// Steps returns the step counter of the current episode.
func (c *Controller) Steps() int { return c.steps }

// LastOutcome returns why the previous episode ended.
func (c *Controller) LastOutcome() Outcome { return c.lastOutcome }

// Grid returns the movement grid, nil unless grid movement is enabled.
func (c *Controller) Grid() *grid.Grid { return c.grid }

// Ledger returns the reward ledger in use.
func (c *Controller) Ledger() *reward.Ledger { return c.ledger }

// Teardown releases the arena. The controller cannot be used afterwards.
func (c *Controller) Teardown() {
	c.state = TornDown
	c.arena = nil
	c.grid = nil
	c.agents, c.obstacles, c.goals = nil, nil, nil
	c.thresholds = nil
	c.moves = nil
}

// UpdateDistanceThresholds records the current distance of agentID to every
// goal. Stored best distances never increase; the returned vector holds, per
// goal, how much the best distance improved. A goal seen for the first time
// reports +Inf.
func (c *Controller) UpdateDistanceThresholds(agentID uuid.UUID) ([]float64, error) {
	agent, ok := c.agents[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: agent %s", game.ErrUnknownEntity, agentID)
	}
	best, ok := c.thresholds[agentID]
	if !ok {
		return nil, fmt.Errorf("%w: no distance table before the first reset", game.ErrNotRunning)
	}
	agent.Pose = c.scene.PoseOf(agent.Handle)

	deltas := make([]float64, len(c.arena.Goals))
	for i, g := range c.arena.Goals {
		d := agent.Pose.Position.Distance(g.Pose.Position)
		prev := best[i]
		next := math.Min(prev, d)
		deltas[i] = prev - next
		best[i] = next
	}
	return deltas, nil
}

// BestDistances returns a copy of the best distances of agentID.
func (c *Controller) BestDistances(agentID uuid.UUID) ([]float64, bool) {
	best, ok := c.thresholds[agentID]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), best...), true
}

func (c *Controller) resetThresholds() {
	c.thresholds = make(map[uuid.UUID][]float64, len(c.arena.Agents))
	for _, a := range c.arena.Agents {
		best := make([]float64, len(c.arena.Goals))
		for i := range best {
			best[i] = math.Inf(1)
		}
		c.thresholds[a.ID] = best
	}
}

func (c *Controller) addAgentReward(a *game.Agent, r float64) {
	if r == 0 {
		return
	}
	a.Reward += r
	c.pendingAgents[a.ID] += r
}

func (c *Controller) addGroupReward(r float64) {
	if r == 0 {
		return
	}
	c.groupReward += r
	c.pendingGroup += r
}

// TakeRewards returns and clears the rewards earned since the previous call.
func (c *Controller) TakeRewards() Rewards {
	r := Rewards{Agents: c.pendingAgents, Group: c.pendingGroup}
	c.pendingAgents = make(map[uuid.UUID]float64)
	c.pendingGroup = 0
	return r
}

func (c *Controller) running() error {
	if c.state != Running {
		return fmt.Errorf("%w: state is %s", game.ErrNotRunning, c.state)
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Info(string)    {}
func (nopLogger) Warning(string) {}
func (nopLogger) Error(string)   {}
