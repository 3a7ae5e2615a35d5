package service

import (
	"errors"
	"time"

	"github.com/beka-birhanu/vinom-arena/identity"
	"github.com/beka-birhanu/vinom-arena/service/i"
)

var ErrNilDependency = errors.New("nil dependency")

// Auth registers operators and issues their tokens.
type Auth struct {
	operatorRepo i.OperatorRepo
	tokenizer    i.Tokenizer
	tokenTTL     time.Duration
}

var _ i.Authenticator = &Auth{}

// NewAuthService creates an Auth. A non-positive ttl falls back to one day.
func NewAuthService(repo i.OperatorRepo, tokenizer i.Tokenizer, ttl time.Duration) (*Auth, error) {
	if repo == nil || tokenizer == nil {
		return nil, ErrNilDependency
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Auth{
		operatorRepo: repo,
		tokenizer:    tokenizer,
		tokenTTL:     ttl,
	}, nil
}

// Register creates a new operator account.
func (a *Auth) Register(name, secret string) (*identity.Operator, error) {
	if _, err := a.operatorRepo.ByName(name); err == nil {
		return nil, identity.ErrOperatorExists
	}

	op, err := identity.NewOperator(identity.OperatorConfig{
		Name:        name,
		PlainSecret: secret,
	})
	if err != nil {
		return nil, err
	}

	if err := a.operatorRepo.Save(op); err != nil {
		return nil, err
	}
	return op, nil
}

// SignIn checks the credentials and returns a signed token for the operator.
func (a *Auth) SignIn(name, secret string) (*identity.Operator, string, error) {
	op, err := a.operatorRepo.ByName(name)
	if err != nil {
		return nil, "", identity.ErrInvalidLogin
	}

	if !op.VerifySecret(secret) {
		return nil, "", identity.ErrInvalidLogin
	}

	token, err := a.tokenizer.Generate(map[string]interface{}{
		"operatorID": op.ID.String(),
		"operator":   op.Name,
	}, a.tokenTTL)
	if err != nil {
		return nil, "", err
	}
	return op, token, nil
}

// EnsureOperator registers the bootstrap operator unless it already exists.
func (a *Auth) EnsureOperator(name, secret string) (*identity.Operator, error) {
	if op, err := a.operatorRepo.ByName(name); err == nil {
		return op, nil
	}
	return a.Register(name, secret)
}
