package repository

import (
	"context"

	"github.com/google/uuid"

	"userapi/internal/model"
)

// UserRepository defines data access for users, independent of the storage technology.
// No business logic here, strictly persistence operations.
//
// Implementations must be safe for concurrent use and must only return errors from the
// taxonomy in errors.go.
type UserRepository interface {
	// Get returns the current record for id, or ErrInvalidID if there is none.
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)

	// Create stores a new user and returns the stored record with CreatedAt set and UpdatedAt nil.
	// Returns ErrAlreadyExists if a user with the same ID is present.
	Create(ctx context.Context, user *model.User) (*model.User, error)

	// Update replaces every mutable field of an existing user, keeps its CreatedAt and sets UpdatedAt.
	// Returns ErrDoesNotExist if no user has the given ID.
	Update(ctx context.Context, user *model.User) (*model.User, error)

	// Delete removes the user with the given id and returns that id.
	// Deleting an absent id is not an error.
	Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}
