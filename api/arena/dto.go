package arenaapi

import (
	"encoding/json"
	"time"

	"github.com/beka-birhanu/vinom-arena/game/episode"
	"github.com/beka-birhanu/vinom-arena/service/i"
)

// CreateArenaRequest starts a session from a stored config or an inline one.
type CreateArenaRequest struct {
	ConfigName string          `json:"configName"`
	Config     json.RawMessage `json:"config"`
	Seed       *int64          `json:"seed"`
	MaxSteps   *int            `json:"maxSteps"`
	Autoplay   bool            `json:"autoplay"`
}

// CreateArenaResponse carries the new session id.
type CreateArenaResponse struct {
	ID string `json:"id"`
}

// TickRequest asks for a number of steps.
type TickRequest struct {
	Steps int `json:"steps"`
}

// TickResult is one played step.
type TickResult struct {
	Episode int     `json:"episode"`
	Step    int     `json:"step"`
	Ended   bool    `json:"ended"`
	Outcome string  `json:"outcome,omitempty"`
	Shaping float64 `json:"shaping"`
}

// TickResponse lists the played steps.
type TickResponse struct {
	Results []TickResult `json:"results"`
}

// AgentView is the public state of an agent.
type AgentView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Team       string     `json:"team"`
	Position   [3]float64 `json:"position"`
	Collisions int        `json:"collisions"`
	Reward     float64    `json:"reward"`
}

// GoalView is the public state of a goal.
type GoalView struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Position  [3]float64 `json:"position"`
	Completed bool       `json:"completed"`
}

// ObstacleView is the public state of an obstacle.
type ObstacleView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Position      [3]float64 `json:"position"`
	AllowedToMove bool       `json:"allowedToMove"`
}

// ResultView summarises a finished episode.
type ResultView struct {
	Episode        int     `json:"episode"`
	Steps          int     `json:"steps"`
	Outcome        string  `json:"outcome"`
	GoalsCompleted int     `json:"goalsCompleted"`
	GroupReward    float64 `json:"groupReward"`
}

// ArenaStatusResponse is a point in time view of a session.
type ArenaStatusResponse struct {
	ID             string         `json:"id"`
	StartedAt      time.Time      `json:"startedAt"`
	Autoplay       bool           `json:"autoplay"`
	State          string         `json:"state"`
	Mode           string         `json:"mode"`
	Episode        int            `json:"episode"`
	Steps          int            `json:"steps"`
	GoalsCompleted int            `json:"goalsCompleted"`
	GroupReward    float64        `json:"groupReward"`
	Agents         []AgentView    `json:"agents"`
	Goals          []GoalView     `json:"goals"`
	Obstacles      []ObstacleView `json:"obstacles"`
	LastResult     *ResultView    `json:"lastResult,omitempty"`
}

// LeaderboardEntry is one ranked episode.
type LeaderboardEntry struct {
	Episode string  `json:"episode"`
	Score   float64 `json:"score"`
}

func newStatusResponse(s i.SessionStatus) ArenaStatusResponse {
	snap := s.Snapshot
	res := ArenaStatusResponse{
		ID:             s.ID.String(),
		StartedAt:      s.StartedAt,
		Autoplay:       s.Autoplay,
		State:          snap.State.String(),
		Mode:           snap.Mode.String(),
		Episode:        snap.Episode,
		Steps:          snap.Steps,
		GoalsCompleted: snap.GoalsCompleted,
		GroupReward:    snap.GroupReward,
		Agents:         make([]AgentView, 0, len(snap.Agents)),
		Goals:          make([]GoalView, 0, len(snap.Goals)),
		Obstacles:      make([]ObstacleView, 0, len(snap.Obstacles)),
	}
	for _, a := range snap.Agents {
		res.Agents = append(res.Agents, AgentView{
			ID:         a.ID.String(),
			Name:       a.Name,
			Team:       a.Team.String(),
			Position:   a.Pose.Position.Array(),
			Collisions: a.Collisions,
			Reward:     a.Reward,
		})
	}
	for _, g := range snap.Goals {
		res.Goals = append(res.Goals, GoalView{
			ID:        g.ID.String(),
			Name:      g.Name,
			Type:      g.Type.String(),
			Position:  g.Pose.Position.Array(),
			Completed: g.Completed,
		})
	}
	for _, o := range snap.Obstacles {
		res.Obstacles = append(res.Obstacles, ObstacleView{
			ID:            o.ID.String(),
			Name:          o.Name,
			Type:          o.Type.String(),
			Position:      o.Pose.Position.Array(),
			AllowedToMove: o.AllowedToMove,
		})
	}
	if r := s.LastResult; r != nil {
		res.LastResult = &ResultView{
			Episode:        r.Episode,
			Steps:          r.Steps,
			Outcome:        r.Outcome.String(),
			GoalsCompleted: r.GoalsCompleted,
			GroupReward:    r.GroupReward,
		}
	}
	return res
}

func newTickResponse(results []episode.TickResult) TickResponse {
	res := TickResponse{Results: make([]TickResult, 0, len(results))}
	for _, r := range results {
		t := TickResult{Episode: r.Episode, Step: r.Step, Ended: r.Ended, Shaping: r.Shaping}
		if r.Ended {
			t.Outcome = r.Outcome.String()
		}
		res.Results = append(res.Results, t)
	}
	return res
}
