package identity

import (
	"errors"
	"net/http"

	dmn "github.com/beka-birhanu/vinom-arena/identity"
	"github.com/beka-birhanu/vinom-arena/service/i"
	"github.com/gin-gonic/gin"
)

// IdentityServer handles HTTP requests related to operator authentication.
type IdentityServer struct {
	authService i.Authenticator
}

// NewIdentityServer creates a new IdentityServer.
func NewIdentityServer(a i.Authenticator) *IdentityServer {
	return &IdentityServer{
		authService: a,
	}
}

// RegisterPublic registers public routes.
func (c *IdentityServer) RegisterPublic(route *gin.RouterGroup) {
	route.POST("/auth/token", c.token)
}

// RegisterProtected registers privileged routes. Only operators can add
// operators.
func (c *IdentityServer) RegisterProtected(route *gin.RouterGroup) {
	route.POST("/auth/operators", c.registerOperator)
}

// registerOperator handles operator registration.
func (c *IdentityServer) registerOperator(ctx *gin.Context) {
	var request AuthRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	op, err := c.authService.Register(request.Name, request.Secret)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, dmn.ErrOperatorExists) {
			status = http.StatusConflict
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusCreated, &AuthResponse{ID: op.ID.String(), Name: op.Name})
}

// token exchanges operator credentials for a bearer token.
func (c *IdentityServer) token(ctx *gin.Context) {
	var request AuthRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	op, token, err := c.authService.SignIn(request.Name, request.Secret)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, &AuthResponse{
		ID:    op.ID.String(),
		Name:  op.Name,
		Token: token,
	})
}
