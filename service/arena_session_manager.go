package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/beka-birhanu/vinom-arena/game/episode"
	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
	"github.com/beka-birhanu/vinom-arena/game/sandbox"
	"github.com/beka-birhanu/vinom-arena/service/i"
	"github.com/google/uuid"
)

const (
	defaultTickInterval = 50 * time.Millisecond
	maxTicksPerCall     = 1000
	boardWriteTimeout   = 5 * time.Second
)

var (
	ErrNoSession      = errors.New("no arena session with that id")
	ErrNoConfigSource = errors.New("exactly one of config name and config is required")
	ErrNoConfigRepo   = errors.New("no maze config repository configured")
)

type arenaSession struct {
	id         uuid.UUID
	startedAt  time.Time
	autoplay   bool
	ctrl       *episode.Controller
	driver     *Driver
	lastResult *episode.Result
	stop       chan struct{}
	sync.Mutex
}

// ArenaSessionManager runs sandbox arenas on behalf of the API.
type ArenaSessionManager struct {
	settings     game.Settings
	repo         i.MazeConfigRepo
	board        i.EpisodeBoard
	boardSize    int64
	logger       game.Logger
	tickInterval time.Duration
	sessions     map[uuid.UUID]*arenaSession
	sync.RWMutex
}

var _ i.ArenaSessionManager = &ArenaSessionManager{}

// ArenaConfig configures an ArenaSessionManager. Repo and Board are optional.
type ArenaConfig struct {
	Settings     game.Settings
	Repo         i.MazeConfigRepo
	Board        i.EpisodeBoard
	BoardSize    int64 // best episodes kept on the board, 0 keeps all
	Logger       game.Logger
	TickInterval time.Duration
}

// NewArenaSessionManager creates a manager with no sessions.
func NewArenaSessionManager(c *ArenaConfig) (*ArenaSessionManager, error) {
	if c == nil || c.Logger == nil {
		return nil, ErrNilDependency
	}
	interval := c.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	return &ArenaSessionManager{
		settings:     c.Settings,
		repo:         c.Repo,
		board:        c.Board,
		boardSize:    max(c.BoardSize, 0),
		logger:       c.Logger,
		tickInterval: interval,
		sessions:     make(map[uuid.UUID]*arenaSession),
	}, nil
}

// NewSession builds an arena in a fresh sandbox and starts its first episode.
func (m *ArenaSessionManager) NewSession(ctx context.Context, req i.SessionRequest) (uuid.UUID, error) {
	cfg, err := m.resolveConfig(ctx, req)
	if err != nil {
		return uuid.Nil, err
	}

	settings := m.settings
	if req.Seed != nil {
		settings.Seed = *req.Seed
	}
	if req.MaxSteps != nil {
		settings.MaxEnvironmentSteps = *req.MaxSteps
	}
	seed := settings.Seed
	if seed == game.NoSeed {
		seed = time.Now().UnixNano()
	}

	sess := &arenaSession{
		id:        uuid.New(),
		startedAt: time.Now().UTC(),
		autoplay:  req.Autoplay,
		stop:      make(chan struct{}),
	}
	scene := sandbox.New()
	ctrl, err := episode.New(episode.Options{
		Settings: settings,
		Scene:    scene,
		Logger:   m.logger,
		Rand:     rand.New(rand.NewSource(seed)),
		OnEpisodeEnd: func(r episode.Result) {
			sess.lastResult = &r
			go m.record(sess.id, r)
		},
	})
	if err != nil {
		return uuid.Nil, err
	}
	if err := ctrl.Construct(episode.FromMazeConfig(cfg)); err != nil {
		return uuid.Nil, err
	}
	if err := ctrl.Reset(); err != nil {
		return uuid.Nil, err
	}
	driver, err := NewDriver(ctrl, scene, rand.New(rand.NewSource(seed+1)))
	if err != nil {
		return uuid.Nil, err
	}
	sess.ctrl = ctrl
	sess.driver = driver

	m.Lock()
	m.sessions[sess.id] = sess
	m.Unlock()

	if sess.autoplay {
		go m.autoplay(sess)
	}
	m.logger.Info(fmt.Sprintf("started arena session %s (autoplay %t)", sess.id, sess.autoplay))
	return sess.id, nil
}

func (m *ArenaSessionManager) resolveConfig(ctx context.Context, req i.SessionRequest) (mazeconfig.MazeConfig, error) {
	switch {
	case req.Config != nil && req.ConfigName == "":
		return *req.Config, nil
	case req.Config == nil && req.ConfigName != "":
		if m.repo == nil {
			return mazeconfig.MazeConfig{}, ErrNoConfigRepo
		}
		return m.repo.ByName(ctx, req.ConfigName)
	default:
		return mazeconfig.MazeConfig{}, ErrNoConfigSource
	}
}

// autoplay steps the session on a fixed cadence until it is stopped.
func (m *ArenaSessionManager) autoplay(sess *arenaSession) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sess.stop:
			return
		case <-ticker.C:
			sess.Lock()
			_, err := sess.driver.Step()
			sess.Unlock()
			if err != nil {
				m.logger.Error(fmt.Sprintf("autoplay of session %s stopped: %v", sess.id, err))
				return
			}
		}
	}
}

// record ranks a finished episode. Interrupted episodes are not ranked.
func (m *ArenaSessionManager) record(id uuid.UUID, r episode.Result) {
	if m.board == nil || r.Outcome == episode.Interrupted {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), boardWriteTimeout)
	defer cancel()
	member := fmt.Sprintf("%s:%d", id, r.Episode)
	if err := m.board.Record(ctx, member, r.GroupReward); err != nil {
		m.logger.Error(fmt.Sprintf("recording episode %s: %v", member, err))
		return
	}
	if m.boardSize == 0 {
		return
	}
	if _, err := m.board.Trim(ctx, m.boardSize); err != nil {
		m.logger.Warning(fmt.Sprintf("trimming leaderboard to %d: %v", m.boardSize, err))
	}
}

func (m *ArenaSessionManager) session(id uuid.UUID) (*arenaSession, error) {
	m.RLock()
	defer m.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	return sess, nil
}

// Status returns a snapshot of the session.
func (m *ArenaSessionManager) Status(id uuid.UUID) (i.SessionStatus, error) {
	sess, err := m.session(id)
	if err != nil {
		return i.SessionStatus{}, err
	}
	sess.Lock()
	defer sess.Unlock()

	status := i.SessionStatus{
		ID:        sess.id,
		StartedAt: sess.startedAt,
		Autoplay:  sess.autoplay,
		Snapshot:  sess.ctrl.Snapshot(),
	}
	if sess.lastResult != nil {
		r := *sess.lastResult
		status.LastResult = &r
	}
	return status, nil
}

// Reset interrupts the running episode and starts the next one.
func (m *ArenaSessionManager) Reset(id uuid.UUID) error {
	sess, err := m.session(id)
	if err != nil {
		return err
	}
	sess.Lock()
	defer sess.Unlock()
	return sess.ctrl.Interrupt()
}

// Tick plays up to maxTicksPerCall steps and returns what each did.
func (m *ArenaSessionManager) Tick(id uuid.UUID, steps int) ([]episode.TickResult, error) {
	sess, err := m.session(id)
	if err != nil {
		return nil, err
	}
	steps = min(max(steps, 1), maxTicksPerCall)

	sess.Lock()
	defer sess.Unlock()
	results := make([]episode.TickResult, 0, steps)
	for range steps {
		res, err := sess.driver.Step()
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Dump returns the starting layout of the session's arena.
func (m *ArenaSessionManager) Dump(id uuid.UUID) (mazeconfig.MazeConfig, error) {
	sess, err := m.session(id)
	if err != nil {
		return mazeconfig.MazeConfig{}, err
	}
	sess.Lock()
	defer sess.Unlock()
	return sess.ctrl.Dump()
}

// Stop ends the session and releases its arena.
func (m *ArenaSessionManager) Stop(id uuid.UUID) error {
	m.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.Unlock()
	if !ok {
		return ErrNoSession
	}

	close(sess.stop)
	sess.Lock()
	sess.ctrl.Teardown()
	sess.Unlock()
	m.logger.Info(fmt.Sprintf("stopped arena session %s", id))
	return nil
}

// StopAll stops every session.
func (m *ArenaSessionManager) StopAll() {
	for _, id := range m.Sessions() {
		_ = m.Stop(id)
	}
}

// Sessions lists the running session ids in a stable order.
func (m *ArenaSessionManager) Sessions() []uuid.UUID {
	m.RLock()
	defer m.RUnlock()
	ids := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a].String() < ids[b].String() })
	return ids
}

// SaveConfig stores a named maze config for later sessions.
func (m *ArenaSessionManager) SaveConfig(ctx context.Context, name string, cfg mazeconfig.MazeConfig) error {
	if m.repo == nil {
		return ErrNoConfigRepo
	}
	return m.repo.Save(ctx, name, cfg)
}
