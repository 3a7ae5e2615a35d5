package i

import (
	"context"

	"github.com/beka-birhanu/vinom-arena/game/mazeconfig"
	"github.com/beka-birhanu/vinom-arena/identity"
	"github.com/google/uuid"
)

// OperatorRepo defines the interface for operator persistence operations.
type OperatorRepo interface {
	// Save inserts or updates an operator in the repository.
	Save(op *identity.Operator) error

	// ByID retrieves an operator by its unique ID.
	ByID(id uuid.UUID) (*identity.Operator, error)

	// ByName retrieves an operator by its name.
	// Returns an error if the operator is not found or in case of an unexpected error.
	ByName(name string) (*identity.Operator, error)
}

// MazeConfigRepo stores named maze configs.
type MazeConfigRepo interface {
	Save(ctx context.Context, name string, cfg mazeconfig.MazeConfig) error
	ByName(ctx context.Context, name string) (mazeconfig.MazeConfig, error)
	Names(ctx context.Context) ([]string, error)
}
