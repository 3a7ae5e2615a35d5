/*
Package reward attributes rewards to individual agents and to the agent group.

Both tables are validated when the Ledger is built, so a missing or unknown
event surfaces at startup instead of in the middle of an episode.
*/
package reward

import (
	"fmt"
	"math"

	"github.com/beka-birhanu/vinom-arena/game"
)

const (
	defaultCollisionPenaltyDivisor  = 1000
	defaultPassivePenaltyMultiplier = 10
	defaultShapingCap               = 0.33
)

var (
	requiredIndividual = []game.GameEvent{
		game.AgentOutOfBounds,
		game.AgentHitObstacle,
		game.ActiveAgentHitGoal,
		game.AgentHitAgent,
		game.ActiveAgentHitMovableObstacle,
	}
	requiredGroup = []game.GameEvent{
		game.AgentOutOfBounds,
		game.ActiveAgentAssisted,
	}
)

// Table maps an event to its reward magnitude.
type Table map[game.GameEvent]float64

// Option tunes a Ledger.
type Option func(*Ledger)

// WithCollisionPenaltyDivisor sets how fast repeated collisions get expensive.
func WithCollisionPenaltyDivisor(d float64) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.collisionDivisor = d
		}
	}
}

// WithPassivePenaltyMultiplier scales penalties of passive agents.
func WithPassivePenaltyMultiplier(m float64) Option {
	return func(l *Ledger) {
		if m > 0 {
			l.passiveMultiplier = m
		}
	}
}

// WithShapingCap bounds the per tick cooperative shaping reward.
func WithShapingCap(c float64) Option {
	return func(l *Ledger) {
		if c > 0 {
			l.shapingCap = c
		}
	}
}

// WithPerStepPenalty charges every agent p on each step. Positive values are
// ignored.
func WithPerStepPenalty(p float64) Option {
	return func(l *Ledger) {
		if p <= 0 {
			l.stepPenalty = p
		}
	}
}

// Ledger is the single source of reward magnitudes.
type Ledger struct {
	individual        Table
	group             Table
	collisionDivisor  float64
	passiveMultiplier float64
	shapingCap        float64
	stepPenalty       float64
}

// New validates both tables and returns a Ledger over copies of them.
func New(individual, group Table, opts ...Option) (*Ledger, error) {
	if err := validate("individual", individual, requiredIndividual); err != nil {
		return nil, err
	}
	if err := validate("group", group, requiredGroup); err != nil {
		return nil, err
	}

	l := &Ledger{
		individual:        copyTable(individual),
		group:             copyTable(group),
		collisionDivisor:  defaultCollisionPenaltyDivisor,
		passiveMultiplier: defaultPassivePenaltyMultiplier,
		shapingCap:        defaultShapingCap,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// FromSettings builds a Ledger from the reward section of s. A step budget
// spreads a total penalty of one over the steps of a full episode.
func FromSettings(s game.Settings) (*Ledger, error) {
	return New(s.IndividualRewards, s.GroupRewards,
		WithCollisionPenaltyDivisor(s.CollisionPenaltyDivisor),
		WithPassivePenaltyMultiplier(s.PassivePenaltyMultiplier),
		WithShapingCap(s.CooperativeShapingCap),
		WithPerStepPenalty(StepPenaltyFor(s.MaxEnvironmentSteps)),
	)
}

// StepPenaltyFor returns -1/(maxSteps+1), or 0 when episodes have no step
// budget.
func StepPenaltyFor(maxSteps int) float64 {
	if maxSteps <= 0 {
		return 0
	}
	return -1 / float64(maxSteps+1)
}

// DefaultTables returns fresh copies of the default individual and group tables.
func DefaultTables() (individual, group Table) {
	s := game.DefaultSettings()
	return copyTable(s.IndividualRewards), copyTable(s.GroupRewards)
}

func validate(name string, t Table, required []game.GameEvent) error {
	for event := range t {
		if !event.Known() {
			return fmt.Errorf("%w: %s table has event %d", game.ErrUnknownEventKind, name, int(event))
		}
	}
	for _, event := range required {
		if _, ok := t[event]; !ok {
			return fmt.Errorf("%w: %s table misses %s", game.ErrUnknownEventKind, name, event)
		}
	}
	return nil
}

func copyTable(t Table) Table {
	c := make(Table, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// Individual returns the individual reward for event. Events that are known
// but not configured are worth nothing.
func (l *Ledger) Individual(event game.GameEvent) float64 {
	return l.individual[event]
}

// Group returns the group reward for event.
func (l *Ledger) Group(event game.GameEvent) float64 {
	return l.group[event]
}

// ApplyCollisionPenaltyScaling adds a term that grows with the number of
// collisions the agent already had this episode.
func (l *Ledger) ApplyCollisionPenaltyScaling(base float64, collisions int) float64 {
	return base - float64(collisions)/l.collisionDivisor
}

// ObstacleCollisionPenalty is the reward for the n-th obstacle collision of an
// agent of the given team.
func (l *Ledger) ObstacleCollisionPenalty(team game.Team, collisions int) float64 {
	base := l.individual[game.AgentHitObstacle]
	if !team.IsActiveRole() {
		base *= l.passiveMultiplier
	}
	return l.ApplyCollisionPenaltyScaling(base, collisions)
}

// AgentCollisionPenalty is the reward for bumping into an active agent.
func (l *Ledger) AgentCollisionPenalty(team game.Team) float64 {
	base := l.individual[game.AgentHitAgent]
	if !team.IsActiveRole() {
		base *= l.passiveMultiplier
	}
	return base
}

// CooperativeShaping turns per agent goal distance improvements into a group
// reward. Each agent contributes its smallest improvement across goals;
// non-finite or negative improvements count as none. The total is clamped to
// [0, cap].
func (l *Ledger) CooperativeShaping(deltas [][]float64) float64 {
	total := 0.0
	for _, agentDeltas := range deltas {
		if len(agentDeltas) == 0 {
			continue
		}
		smallest := math.Inf(1)
		for _, d := range agentDeltas {
			if math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
				d = 0
			}
			smallest = math.Min(smallest, d)
		}
		total += smallest
	}
	return math.Max(0, math.Min(total, l.shapingCap))
}

// PerStepPenalty is the reward every agent gets for each step it spends in
// the episode.
func (l *Ledger) PerStepPenalty() float64 {
	return l.stepPenalty
}

// ShapingCap returns the upper bound of CooperativeShaping.
func (l *Ledger) ShapingCap() float64 {
	return l.shapingCap
}
