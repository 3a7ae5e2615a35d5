package i

import (
	"context"
	"time"

	"github.com/beka-birhanu/vinom-arena/game/episode"
	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
	"github.com/google/uuid"
)

// SessionRequest describes a new arena session. Exactly one of ConfigName and
// Config must be set.
type SessionRequest struct {
	ConfigName string
	Config     *mazeconfig.MazeConfig
	Seed       *int64 // overrides the configured seed
	MaxSteps   *int   // overrides the configured step budget
	Autoplay   bool   // tick on a fixed cadence with the random policy
}

// SessionStatus is a point in time view of a session.
type SessionStatus struct {
	ID         uuid.UUID
	StartedAt  time.Time
	Autoplay   bool
	Snapshot   episode.Snapshot
	LastResult *episode.Result
}

// ArenaSessionManager owns the running arenas.
type ArenaSessionManager interface {
	NewSession(ctx context.Context, req SessionRequest) (uuid.UUID, error)
	Status(id uuid.UUID) (SessionStatus, error)
	Reset(id uuid.UUID) error
	Tick(id uuid.UUID, steps int) ([]episode.TickResult, error)
	Dump(id uuid.UUID) (mazeconfig.MazeConfig, error)
	Stop(id uuid.UUID) error
	Sessions() []uuid.UUID
	SaveConfig(ctx context.Context, name string, cfg mazeconfig.MazeConfig) error
}

// BoardEntry is one ranked episode.
type BoardEntry struct {
	Member string
	Score  float64
}

// EpisodeBoard ranks finished episodes by group reward.
type EpisodeBoard interface {
	Record(ctx context.Context, member string, score float64) error
	Top(ctx context.Context, n int64) ([]BoardEntry, error)
	Trim(ctx context.Context, keep int64) (int64, error) // drops all but the keep best, returns how many went
	Count(ctx context.Context) (int64, error)
}
