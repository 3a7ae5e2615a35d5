package identity

import (
	"net/http"
	"strings"

	"github.com/beka-birhanu/vinom-arena/service/i"
	"github.com/gin-gonic/gin"
)

const (
	// ContextOperatorClaims is the key used to store operator claims in the Gin context.
	ContextOperatorClaims = "operatorClaims"
)

// Authoriz rejects requests without a valid bearer token.
func Authoriz(ts i.Tokenizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		// Split the "Bearer" prefix from the token.
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		claims, err := ts.Decode(parts[1])
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set(ContextOperatorClaims, claims)
		c.Next()
	}
}

// OperatorName returns the operator name carried by the request token, or an
// empty string on public routes.
func OperatorName(c *gin.Context) string {
	claims, ok := c.Get(ContextOperatorClaims)
	if !ok {
		return ""
	}
	m, ok := claims.(map[string]interface{})
	if !ok {
		return ""
	}
	name, _ := m["operator"].(string)
	return name
}
