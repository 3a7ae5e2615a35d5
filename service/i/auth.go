package i

import (
	"time"

	"github.com/beka-birhanu/vinom-arena/identity"
)

// Authenticator registers operators and exchanges their credentials for tokens.
type Authenticator interface {
	Register(name, secret string) (*identity.Operator, error)
	SignIn(name, secret string) (*identity.Operator, string, error)
}

// Tokenizer defines methods for generating and decoding tokens.
type Tokenizer interface {
	// Generate creates a token with the given claims and expiration duration.
	Generate(claims map[string]interface{}, expTime time.Duration) (string, error)

	// Decode validates and parses a token, returning its claims.
	Decode(token string) (map[string]interface{}, error)
}
