package arenaapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/beka-birhanu/vinom-arena/api"
	api_i "github.com/beka-birhanu/vinom-arena/api/i"
	"github.com/beka-birhanu/vinom-arena/api/identity"
	"github.com/beka-birhanu/vinom-arena/config"
	"github.com/beka-birhanu/vinom-arena/game"
	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
	"github.com/beka-birhanu/vinom-arena/infrastruture/logger"
	"github.com/beka-birhanu/vinom-arena/infrastruture/token"
	"github.com/beka-birhanu/vinom-arena/service"
	"github.com/beka-birhanu/vinom-arena/service/i"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "Agents": [{"Position": [4, 0.5, 4], "Rotation": [0, 0, 0, 1], "Type": "Active"}],
  "Goals": [{"Position": [4, 0.5, 4], "Rotation": [0, 0, 0, 1], "Type": "Cube"}],
  "Map": {
    "mapSize": [10, 10],
    "baseBuildingBlockSize": [1, 1, 1],
    "Walls": [{"Position": [2, 0.5, 2], "Rotation": [0, 0, 0, 1], "Type": "Movable"}]
  }
}`

type memConfigs struct {
	mu      sync.Mutex
	configs map[string]mazeconfig.MazeConfig
}

func (r *memConfigs) Save(_ context.Context, name string, cfg mazeconfig.MazeConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[name] = cfg
	return nil
}

func (r *memConfigs) ByName(_ context.Context, name string) (mazeconfig.MazeConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[name]
	if !ok {
		return mazeconfig.MazeConfig{}, errors.New("not found")
	}
	return cfg, nil
}

func (r *memConfigs) Names(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := []string{}
	for name := range r.configs {
		names = append(names, name)
	}
	return names, nil
}

type fixedBoard struct{}

func (fixedBoard) Record(context.Context, string, float64) error { return nil }

func (fixedBoard) Top(_ context.Context, n int64) ([]i.BoardEntry, error) {
	all := []i.BoardEntry{{Member: "a:1", Score: 200}, {Member: "b:3", Score: 12}}
	return all[:min(int(n), len(all))], nil
}

func (fixedBoard) Trim(context.Context, int64) (int64, error) { return 0, nil }

func (fixedBoard) Count(context.Context) (int64, error) { return 2, nil }

type harness struct {
	handler http.Handler
	bearer  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l, err := logger.New("TEST", config.ColorBlue, io.Discard)
	require.NoError(t, err)

	settings := game.DefaultSettings()
	settings.Seed = 11
	settings.MaxEnvironmentSteps = 0
	settings.RandomizeAgentPosition = false
	settings.RandomizeAgentRotation = false

	configs := &memConfigs{configs: make(map[string]mazeconfig.MazeConfig)}
	manager, err := service.NewArenaSessionManager(&service.ArenaConfig{
		Settings: settings,
		Repo:     configs,
		Board:    fixedBoard{},
		Logger:   l,
	})
	require.NoError(t, err)
	t.Cleanup(manager.StopAll)

	controller, err := NewArenaController(Config{Sessions: manager, Board: fixedBoard{}, Configs: configs, Logger: l})
	require.NoError(t, err)

	tokens := token.NewJwtService("test-secret", "arena")
	tok, err := tokens.Generate(map[string]interface{}{"operator": "trainer"}, time.Minute)
	require.NoError(t, err)

	router := api.NewRouter(api.Config{
		BaseURL:                 "/api",
		Controllers:             []api_i.Controller{controller},
		AuthorizationMiddleware: identity.Authoriz(tokens),
	})
	return &harness{handler: router.Handler(), bearer: "Bearer " + tok}
}

func (h *harness) do(method, path string, authorized bool, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/v1"+path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authorized {
		req.Header.Set("Authorization", h.bearer)
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func (h *harness) create(t *testing.T, body string) string {
	t.Helper()
	w := h.do(http.MethodPost, "/arenas", true, "application/json", []byte(body))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res CreateArenaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	return res.ID
}

func TestArenaController(t *testing.T) {
	h := newHarness(t)

	t.Run("create requires a token", func(t *testing.T) {
		w := h.do(http.MethodPost, "/arenas", false, "application/json", []byte(`{"config": `+sampleConfig+`}`))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("inline config lifecycle", func(t *testing.T) {
		id := h.create(t, `{"config": `+sampleConfig+`}`)

		w := h.do(http.MethodGet, "/arenas/"+id, false, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var status ArenaStatusResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, "Running", status.State)
		assert.Equal(t, 1, status.Episode)
		require.Len(t, status.Agents, 1)
		assert.Equal(t, "Active", status.Agents[0].Team)

		w = h.do(http.MethodPost, "/arenas/"+id+"/tick", true, "application/json", []byte(`{"steps": 2}`))
		require.Equal(t, http.StatusOK, w.Code)
		var ticks TickResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ticks))
		require.Len(t, ticks.Results, 2)
		assert.True(t, ticks.Results[0].Ended)
		assert.Equal(t, "Completed", ticks.Results[0].Outcome)

		w = h.do(http.MethodPost, "/arenas/"+id+"/reset", true, "", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = h.do(http.MethodGet, "/arenas/"+id+"/config", false, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		cfg, err := mazeconfig.Load(w.Body.Bytes())
		require.NoError(t, err)
		assert.Len(t, cfg.Map.Walls, 1)

		w = h.do(http.MethodGet, "/arenas/"+id+"/config?format=yaml", false, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		_, err = mazeconfig.LoadYAML(w.Body.Bytes())
		assert.NoError(t, err)

		w = h.do(http.MethodGet, "/arenas", false, "", nil)
		assert.Contains(t, w.Body.String(), id)

		w = h.do(http.MethodDelete, "/arenas/"+id, true, "", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		w = h.do(http.MethodGet, "/arenas/"+id, false, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("stored config", func(t *testing.T) {
		w := h.do(http.MethodPut, "/configs/on-goal", true, "application/json", []byte(sampleConfig))
		require.Equal(t, http.StatusNoContent, w.Code)

		w = h.do(http.MethodGet, "/configs", false, "", nil)
		assert.Contains(t, w.Body.String(), "on-goal")

		id := h.create(t, `{"configName": "on-goal", "maxSteps": 50}`)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	})

	t.Run("malformed config is rejected", func(t *testing.T) {
		w := h.do(http.MethodPut, "/configs/broken", true, "application/json", []byte(`{"Agents": []}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = h.do(http.MethodPost, "/arenas", true, "application/json", []byte(`{"config": {"Agents": []}}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = h.do(http.MethodPost, "/arenas", true, "application/json", []byte(`{}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown and invalid ids", func(t *testing.T) {
		w := h.do(http.MethodGet, "/arenas/not-a-uuid", false, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = h.do(http.MethodPost, "/arenas/"+uuid.NewString()+"/tick", true, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("leaderboard", func(t *testing.T) {
		w := h.do(http.MethodGet, "/leaderboard?n=1", false, "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var res struct {
			Leaderboard []LeaderboardEntry `json:"leaderboard"`
			Total       int64              `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, int64(2), res.Total)
		require.Len(t, res.Leaderboard, 1)
		assert.Equal(t, "a:1", res.Leaderboard[0].Episode)

		w = h.do(http.MethodGet, "/leaderboard?n=zero", false, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
