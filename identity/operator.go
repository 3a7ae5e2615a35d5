package identity

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/nbutton23/zxcvbn-go"
	"golang.org/x/crypto/bcrypt"
)

const (
	minSecretStrengthScore = 3

	namePattern   = `^[a-zA-Z0-9_]+$` // Alphanumeric with underscores
	minNameLength = 3
	maxNameLength = 20
)

var (
	nameRegex = regexp.MustCompile(namePattern)

	// HashCost is the bcrypt cost used for new secrets.
	HashCost = 12

	ErrNameTooShort   = errors.New("operator name too short")
	ErrNameTooLong    = errors.New("operator name too long")
	ErrNameFormat     = errors.New("invalid operator name format")
	ErrWeakSecret     = errors.New("weak secret")
	ErrInvalidLogin   = errors.New("invalid operator name or secret")
	ErrOperatorExists = errors.New("operator already exists")
)

// Operator is an account allowed to drive arenas through the API.
type Operator struct {
	ID         uuid.UUID `bson:"_id"`
	Name       string    `bson:"name"`
	SecretHash string    `bson:"secretHash"`
	CreatedAt  time.Time `bson:"createdAt"`
}

// OperatorConfig holds parameters for creating an Operator from a plain secret.
type OperatorConfig struct {
	ID          uuid.UUID
	Name        string
	PlainSecret string
}

// NewOperator validates the name and the secret strength and hashes the secret.
func NewOperator(config OperatorConfig) (*Operator, error) {
	if err := ValidateName(config.Name); err != nil {
		return nil, err
	}

	if err := ValidateSecret(config.PlainSecret); err != nil {
		return nil, err
	}

	secretHash, err := HashSecret(config.PlainSecret)
	if err != nil {
		return nil, err
	}

	id := config.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	return &Operator{
		ID:         id,
		Name:       config.Name,
		SecretHash: secretHash,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// VerifySecret verifies if the given secret matches the stored hash.
func (o *Operator) VerifySecret(secret string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(o.SecretHash), []byte(secret))
	return err == nil
}

// ValidateName checks length and character set of an operator name.
func ValidateName(name string) error {
	if len(name) < minNameLength {
		return ErrNameTooShort
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	if !nameRegex.MatchString(name) {
		return ErrNameFormat
	}
	return nil
}

// ValidateSecret checks the strength of the secret.
func ValidateSecret(secret string) error {
	result := zxcvbn.PasswordStrength(secret, nil)
	if result.Score < minSecretStrengthScore {
		return ErrWeakSecret
	}
	return nil
}

// HashSecret generates a bcrypt hash for the given secret.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), HashCost)
	return string(bytes), err
}
