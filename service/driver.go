package service

import (
	"errors"
	"math"
	"math/rand"

	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/beka-birhanu/vinom-arena/game/episode"
	"github.com/beka-birhanu/vinom-arena/game/sandbox"
	"github.com/google/uuid"
)

const (
	defaultStepSeconds = 0.1
	defaultAgentSpeed  = 2.0
)

var ErrNilController = errors.New("driver needs a controller and a scene")

type contactKey struct {
	agent game.Handle
	other game.Handle
}

// Driver plays an arena with a uniformly random policy. Each step moves every
// agent, advances the sandbox, reports new contacts to the controller and then
// ticks it.
type Driver struct {
	ctrl      *episode.Controller
	scene     *sandbox.Scene
	rng       *rand.Rand
	dt        float64
	speed     float64
	episode   int
	touching  map[contactKey]bool
	requested map[uuid.UUID]bool // agents that asked to move an obstacle this step
}

// NewDriver creates a Driver. rng may be nil.
func NewDriver(ctrl *episode.Controller, scene *sandbox.Scene, rng *rand.Rand) (*Driver, error) {
	if ctrl == nil || scene == nil {
		return nil, ErrNilController
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Driver{
		ctrl:      ctrl,
		scene:     scene,
		rng:       rng,
		dt:        defaultStepSeconds,
		speed:     defaultAgentSpeed,
		touching:  make(map[contactKey]bool),
		requested: make(map[uuid.UUID]bool),
	}, nil
}

// lookup maps scene handles back to arena entities.
type lookup struct {
	order     []game.Agent
	agents    map[game.Handle]game.Agent
	obstacles map[game.Handle]game.Obstacle
	goals     map[game.Handle]game.Goal
}

func newLookup(s episode.Snapshot) lookup {
	l := lookup{
		order:     s.Agents,
		agents:    make(map[game.Handle]game.Agent, len(s.Agents)),
		obstacles: make(map[game.Handle]game.Obstacle, len(s.Obstacles)),
		goals:     make(map[game.Handle]game.Goal, len(s.Goals)),
	}
	for _, a := range s.Agents {
		l.agents[a.Handle] = a
	}
	for _, o := range s.Obstacles {
		l.obstacles[o.Handle] = o
	}
	for _, g := range s.Goals {
		l.goals[g.Handle] = g
	}
	return l
}

// Step plays one step of the current episode.
func (d *Driver) Step() (episode.TickResult, error) {
	snap := d.ctrl.Snapshot()
	if snap.State != episode.Running {
		return episode.TickResult{}, game.ErrNotRunning
	}
	if snap.Episode != d.episode {
		d.episode = snap.Episode
		clear(d.touching)
	}

	for _, a := range snap.Agents {
		d.act(a)
	}
	d.scene.Step(d.dt)

	if err := d.resolveContacts(newLookup(snap)); err != nil {
		return episode.TickResult{}, err
	}
	if d.ctrl.Episode() != snap.Episode {
		return episode.TickResult{Episode: snap.Episode, Ended: true, Outcome: d.ctrl.LastOutcome()}, nil
	}
	return d.ctrl.Tick()
}

// Run plays steps until the controller has finished n more episodes.
func (d *Driver) Run(n int) ([]episode.TickResult, error) {
	var ended []episode.TickResult
	for len(ended) < n {
		res, err := d.Step()
		if err != nil {
			return ended, err
		}
		if res.Ended {
			ended = append(ended, res)
		}
	}
	return ended, nil
}

// act picks a random move for an agent: a neighbour cell on a grid or a random
// heading otherwise.
func (d *Driver) act(a game.Agent) {
	if g := d.ctrl.Grid(); g != nil {
		idx, ok := g.CellContaining(a.Pose.Position)
		if !ok {
			return
		}
		adj := g.Adjacent(idx)
		if len(adj) == 0 {
			return
		}
		next := g.CoordinateOf(adj[d.rng.Intn(len(adj))])
		next.Y = a.Pose.Position.Y
		d.scene.SetPose(a.Handle, game.Pose{Position: next, Rotation: a.Pose.Rotation})
		return
	}

	body, ok := d.scene.Body(a.Handle)
	if !ok {
		return
	}
	heading := d.rng.Float64() * 2 * math.Pi
	d.scene.SetVelocity(a.Handle, game.Vec3{
		X: math.Cos(heading) * d.speed,
		Y: body.Velocity.Y,
		Z: math.Sin(heading) * d.speed,
	})
}

// resolveContacts reports every contact that started this step. It stops as
// soon as a callback ends the episode.
func (d *Driver) resolveContacts(l lookup) error {
	episodeBefore := d.ctrl.Episode()
	current := make(map[contactKey]bool)
	clear(d.requested)

	for _, a := range l.order {
		for _, other := range d.scene.Overlapping(a.Handle) {
			key := contactKey{agent: a.Handle, other: other}
			current[key] = true
			entered := !d.touching[key]

			var err error
			switch {
			case entered && l.isGoal(other):
				err = d.ctrl.OnGoalContact(l.goals[other].ID, a.ID)
			case l.isObstacle(other):
				err = d.touchObstacle(a, l.obstacles[other], entered)
			case entered && l.isAgent(other):
				err = d.ctrl.OnAgentContact(a.ID, l.agents[other].ID)
			}
			if err != nil {
				return err
			}
			if d.ctrl.Episode() != episodeBefore {
				clear(d.touching)
				return nil
			}
		}
	}
	d.touching = current
	return nil
}

// touchObstacle handles a contact with an obstacle. New contacts are reported;
// an ongoing contact only matters when it carries a granted move. Active
// agents ask to move the movable obstacles they lean on.
func (d *Driver) touchObstacle(a game.Agent, o game.Obstacle, entered bool) error {
	granted := o.AllowedToMove && o.MoveRequestedBy == a.ID
	if entered || granted {
		pushed, err := d.ctrl.OnObstacleContact(a.ID, o.ID)
		if err != nil {
			return err
		}
		if pushed {
			d.push(a, o)
			return nil
		}
	}
	if o.Movable && a.Team.IsActiveRole() && !a.MoveRequested && !granted && !d.requested[a.ID] {
		if err := d.ctrl.RequestMove(a.ID, o.ID); err != nil {
			return err
		}
		d.requested[a.ID] = true
	}
	return nil
}

// push displaces o one block away from a on the horizontal plane.
func (d *Driver) push(a game.Agent, o game.Obstacle) {
	dir := d.scene.PoseOf(o.Handle).Position.Sub(d.scene.PoseOf(a.Handle).Position)
	dir.Y = 0
	if dir.Length() == 0 {
		return
	}
	dir = dir.Scale(1 / dir.Length())
	step := o.Scale.X
	if g := d.ctrl.Grid(); g != nil {
		step = g.CellSize().X
	}
	pose := d.scene.PoseOf(o.Handle)
	pose.Position = pose.Position.Add(dir.Scale(step))
	d.scene.SetPose(o.Handle, pose)
}

func (l lookup) isGoal(h game.Handle) bool {
	_, ok := l.goals[h]
	return ok
}

func (l lookup) isObstacle(h game.Handle) bool {
	_, ok := l.obstacles[h]
	return ok
}

func (l lookup) isAgent(h game.Handle) bool {
	_, ok := l.agents[h]
	return ok
}
