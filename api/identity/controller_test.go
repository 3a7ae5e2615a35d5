package identity

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	dmn "github.com/beka-birhanu/vinom-arena/identity"
	"github.com/beka-birhanu/vinom-arena/infrastruture/token"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	op     *dmn.Operator
	secret string
	tokens *token.JwtService
}

func (s *stubAuth) Register(name, secret string) (*dmn.Operator, error) {
	if name == s.op.Name {
		return nil, dmn.ErrOperatorExists
	}
	if len(secret) < 8 {
		return nil, dmn.ErrWeakSecret
	}
	return &dmn.Operator{ID: uuid.New(), Name: name}, nil
}

func (s *stubAuth) SignIn(name, secret string) (*dmn.Operator, string, error) {
	if name != s.op.Name || secret != s.secret {
		return nil, "", dmn.ErrInvalidLogin
	}
	tok, err := s.tokens.Generate(map[string]interface{}{"operator": name}, time.Minute)
	return s.op, tok, err
}

func newEngine(t *testing.T) (*gin.Engine, *stubAuth) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := token.NewJwtService("test-secret", "arena")
	auth := &stubAuth{
		op:     &dmn.Operator{ID: uuid.New(), Name: "trainer"},
		secret: "correct horse",
		tokens: tokens,
	}
	server := NewIdentityServer(auth)

	engine := gin.New()
	public := engine.Group("/v1")
	server.RegisterPublic(public)
	protected := engine.Group("/v1")
	protected.Use(Authoriz(tokens))
	protected.GET("/whoami", func(c *gin.Context) { c.String(http.StatusOK, OperatorName(c)) })
	server.RegisterProtected(protected)
	return engine, auth
}

func send(engine *gin.Engine, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", bearer)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestIdentityServer(t *testing.T) {
	engine, auth := newEngine(t)

	var tok string
	t.Run("token for valid credentials", func(t *testing.T) {
		w := send(engine, http.MethodPost, "/v1/auth/token", "", AuthRequest{Name: "trainer", Secret: auth.secret})
		require.Equal(t, http.StatusOK, w.Code)

		var res AuthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, auth.op.ID.String(), res.ID)
		assert.NotEmpty(t, res.Token)
		tok = res.Token
	})

	t.Run("bad credentials", func(t *testing.T) {
		w := send(engine, http.MethodPost, "/v1/auth/token", "", AuthRequest{Name: "trainer", Secret: "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := send(engine, http.MethodPost, "/v1/auth/token", "", map[string]string{"name": "trainer"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("middleware", func(t *testing.T) {
		tests := []struct {
			name   string
			header string
			code   int
		}{
			{name: "no header", header: "", code: http.StatusUnauthorized},
			{name: "not bearer", header: "Basic abc", code: http.StatusUnauthorized},
			{name: "garbage token", header: "Bearer abc", code: http.StatusUnauthorized},
			{name: "valid token", header: "Bearer " + tok, code: http.StatusOK},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				w := send(engine, http.MethodGet, "/v1/whoami", tt.header, nil)
				assert.Equal(t, tt.code, w.Code)
			})
		}

		w := send(engine, http.MethodGet, "/v1/whoami", "Bearer "+tok, nil)
		assert.Equal(t, "trainer", w.Body.String())
	})

	t.Run("register operator", func(t *testing.T) {
		w := send(engine, http.MethodPost, "/v1/auth/operators", "Bearer "+tok, AuthRequest{Name: "second", Secret: "long enough secret"})
		assert.Equal(t, http.StatusCreated, w.Code)

		w = send(engine, http.MethodPost, "/v1/auth/operators", "Bearer "+tok, AuthRequest{Name: "trainer", Secret: "long enough secret"})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = send(engine, http.MethodPost, "/v1/auth/operators", "Bearer "+tok, AuthRequest{Name: "third", Secret: "short"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = send(engine, http.MethodPost, "/v1/auth/operators", "", AuthRequest{Name: "fourth", Secret: "long enough secret"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
