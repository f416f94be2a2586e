package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"userapi/internal/logger"
	"userapi/internal/model"
	"userapi/internal/repository"
)

// ErrInvalidUser is returned when a user fails validation. The validator's field errors stay in the chain.
var ErrInvalidUser = errors.New("invalid user")

// UserService defines the use cases for managing users.
type UserService interface {
	// Get returns the user stored under id.
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)

	// Create validates and stores a new user. Timestamps are assigned by the repository.
	Create(ctx context.Context, user *model.User) (*model.User, error)

	// Update validates and replaces an existing user, keeping its created_at.
	Update(ctx context.Context, user *model.User) (*model.User, error)

	// Delete removes the user with id. Deleting an absent id succeeds.
	Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

type userService struct {
	repo repository.UserRepository
	log  *slog.Logger
}

// NewUserService constructs a new UserService.
func NewUserService(repo repository.UserRepository, log *slog.Logger) UserService {
	if log == nil {
		log = logger.Discard()
	}
	return &userService{repo: repo, log: log}
}

func (s *userService) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		s.logFailure(ctx, "get", id, err)
		return nil, err
	}
	return u, nil
}

func (s *userService) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	u, err := s.repo.Create(ctx, user)
	if err != nil {
		s.logFailure(ctx, "create", user.ID, err)
		return nil, err
	}
	logger.FromContext(ctx, s.log).Info("user created", "user_id", u.ID.String())
	return u, nil
}

func (s *userService) Update(ctx context.Context, user *model.User) (*model.User, error) {
	if err := validateUser(user); err != nil {
		return nil, err
	}
	u, err := s.repo.Update(ctx, user)
	if err != nil {
		s.logFailure(ctx, "update", user.ID, err)
		return nil, err
	}
	logger.FromContext(ctx, s.log).Info("user updated", "user_id", u.ID.String())
	return u, nil
}

func (s *userService) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	out, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logFailure(ctx, "delete", id, err)
		return uuid.Nil, err
	}
	logger.FromContext(ctx, s.log).Info("user deleted", "user_id", out.String())
	return out, nil
}

func validateUser(user *model.User) error {
	if user == nil {
		return fmt.Errorf("%w: body is empty", ErrInvalidUser)
	}
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	return nil
}

// logFailure logs faults at error level and expected answers (not found, conflicts) at debug.
func (s *userService) logFailure(ctx context.Context, op string, id uuid.UUID, err error) {
	l := logger.FromContext(ctx, s.log).With(
		"op", op,
		"user_id", id.String(),
		"kind", repository.Kind(err),
	)
	if repository.IsFault(err) || repository.Kind(err) == repository.KindUnknown {
		l.Error("user repository failure", "error", err)
		return
	}
	l.Debug("user repository rejected request", "error", err)
}
