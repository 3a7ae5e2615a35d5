// Package arenaapi exposes arena sessions, maze configs and the episode
// leaderboard over HTTP.
package arenaapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/beka-birhanu/vinom-arena/api/identity"
	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
	"github.com/beka-birhanu/vinom-arena/service"
	"github.com/beka-birhanu/vinom-arena/service/i"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultLeaderboardSize = 10
	maxLeaderboardSize     = 100
	maxConfigBytes         = 1 << 20
)

var ErrNilSessions = errors.New("arena controller needs a session manager")

// ArenaController serves arena sessions.
type ArenaController struct {
	sessions i.ArenaSessionManager
	board    i.EpisodeBoard
	configs  i.MazeConfigRepo
	logger   game.Logger
}

// Config wires an ArenaController. Board and Configs are optional.
type Config struct {
	Sessions i.ArenaSessionManager
	Board    i.EpisodeBoard
	Configs  i.MazeConfigRepo
	Logger   game.Logger
}

// NewArenaController initializes an ArenaController.
func NewArenaController(c Config) (*ArenaController, error) {
	if c.Sessions == nil || c.Logger == nil {
		return nil, ErrNilSessions
	}
	return &ArenaController{
		sessions: c.Sessions,
		board:    c.Board,
		configs:  c.Configs,
		logger:   c.Logger,
	}, nil
}

// RegisterPublic registers public routes.
func (ac *ArenaController) RegisterPublic(route *gin.RouterGroup) {
	arenas := route.Group("/arenas")
	{
		arenas.GET("", ac.list)
		arenas.GET("/:ID", ac.status)
		arenas.GET("/:ID/config", ac.config)
	}
	route.GET("/configs", ac.configNames)
	route.GET("/leaderboard", ac.leaderboard)
}

// RegisterProtected registers protected routes.
func (ac *ArenaController) RegisterProtected(route *gin.RouterGroup) {
	arenas := route.Group("/arenas")
	{
		arenas.POST("", ac.create)
		arenas.POST("/:ID/reset", ac.reset)
		arenas.POST("/:ID/tick", ac.tick)
		arenas.DELETE("/:ID", ac.stop)
	}
	route.PUT("/configs/:name", ac.saveConfig)
}

func (ac *ArenaController) list(ctx *gin.Context) {
	ids := ac.sessions.Sessions()
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		res = append(res, id.String())
	}
	ctx.JSON(http.StatusOK, gin.H{"arenas": res})
}

func (ac *ArenaController) status(ctx *gin.Context) {
	id, ok := sessionID(ctx)
	if !ok {
		return
	}
	status, err := ac.sessions.Status(id)
	if err != nil {
		abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newStatusResponse(status))
}

// config dumps the arena layout, as YAML when asked with ?format=yaml.
func (ac *ArenaController) config(ctx *gin.Context) {
	id, ok := sessionID(ctx)
	if !ok {
		return
	}
	cfg, err := ac.sessions.Dump(id)
	if err != nil {
		abort(ctx, err)
		return
	}

	encode, contentType := mazeconfig.Encode, "application/json"
	if ctx.Query("format") == "yaml" {
		encode, contentType = mazeconfig.EncodeYAML, "application/yaml"
	}
	data, err := encode(cfg)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.Data(http.StatusOK, contentType, data)
}

func (ac *ArenaController) configNames(ctx *gin.Context) {
	if ac.configs == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": service.ErrNoConfigRepo.Error()})
		return
	}
	names, err := ac.configs.Names(ctx)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"configs": names})
}

func (ac *ArenaController) leaderboard(ctx *gin.Context) {
	if ac.board == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "leaderboard is disabled"})
		return
	}
	n, err := strconv.ParseInt(ctx.DefaultQuery("n", strconv.Itoa(defaultLeaderboardSize)), 10, 64)
	if err != nil || n < 1 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "n must be a positive integer"})
		return
	}
	n = min(n, maxLeaderboardSize)

	entries, err := ac.board.Top(ctx, n)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	total, err := ac.board.Count(ctx)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	res := make([]LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		res = append(res, LeaderboardEntry{Episode: e.Member, Score: e.Score})
	}
	ctx.JSON(http.StatusOK, gin.H{"leaderboard": res, "total": total})
}

func (ac *ArenaController) create(ctx *gin.Context) {
	var request CreateArenaRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req := i.SessionRequest{
		ConfigName: request.ConfigName,
		Seed:       request.Seed,
		MaxSteps:   request.MaxSteps,
		Autoplay:   request.Autoplay,
	}
	if len(request.Config) > 0 && string(request.Config) != "null" {
		cfg, err := mazeconfig.Load(request.Config)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		req.Config = &cfg
	}

	id, err := ac.sessions.NewSession(ctx, req)
	if err != nil {
		abort(ctx, err)
		return
	}
	ac.logger.Info(fmt.Sprintf("operator %q started arena %s", identity.OperatorName(ctx), id))
	ctx.JSON(http.StatusCreated, &CreateArenaResponse{ID: id.String()})
}

func (ac *ArenaController) reset(ctx *gin.Context) {
	id, ok := sessionID(ctx)
	if !ok {
		return
	}
	if err := ac.sessions.Reset(id); err != nil {
		abort(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (ac *ArenaController) tick(ctx *gin.Context) {
	id, ok := sessionID(ctx)
	if !ok {
		return
	}
	request := TickRequest{Steps: 1}
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&request); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	results, err := ac.sessions.Tick(id, request.Steps)
	if err != nil {
		abort(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, newTickResponse(results))
}

func (ac *ArenaController) stop(ctx *gin.Context) {
	id, ok := sessionID(ctx)
	if !ok {
		return
	}
	if err := ac.sessions.Stop(id); err != nil {
		abort(ctx, err)
		return
	}
	ac.logger.Info(fmt.Sprintf("operator %q stopped arena %s", identity.OperatorName(ctx), id))
	ctx.Status(http.StatusNoContent)
}

// saveConfig stores the body as a named config. YAML bodies are accepted.
func (ac *ArenaController) saveConfig(ctx *gin.Context) {
	name := ctx.Param("name")
	body, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxConfigBytes))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	load := mazeconfig.Load
	if strings.Contains(ctx.ContentType(), "yaml") {
		load = mazeconfig.LoadYAML
	}
	cfg, err := load(body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ac.sessions.SaveConfig(ctx, name, cfg); err != nil {
		abort(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func sessionID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("ID"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid arena id"})
		return uuid.Nil, false
	}
	return id, true
}

// abort maps service errors to status codes.
func abort(ctx *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, service.ErrNoSession):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNoConfigRepo):
		status = http.StatusServiceUnavailable
	case errors.Is(err, game.ErrNotRunning):
		status = http.StatusConflict
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
