// Package memory implements repository.UserRepository with process-local storage.
// It is the reference backend: the relational backend must behave identically.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"userapi/internal/model"
	"userapi/internal/repository"
)

// UserMemory keeps users in an ordered slice guarded by a RWMutex.
// Reads proceed concurrently; every mutation holds the write lock for the whole
// check-and-write so that uniqueness holds under concurrent callers.
type UserMemory struct {
	mu    sync.RWMutex
	users []model.User
	now   repository.Clock
}

// Option configures a UserMemory.
type Option func(*options)

type options struct {
	clock repository.Clock
	seed  []model.User
}

// WithClock sets the clock used to stamp CreatedAt and UpdatedAt.
func WithClock(c repository.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSeed preloads users as if they had been created when the repository was built.
// Seeds sharing an ID with an earlier seed are skipped.
func WithSeed(users ...model.User) Option {
	return func(o *options) { o.seed = append(o.seed, users...) }
}

// NewUserMemory creates an empty in-memory repository.
func NewUserMemory(opts ...Option) *UserMemory {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	r := &UserMemory{now: o.clock.OrSystem()}
	for i := range o.seed {
		if r.indexOf(o.seed[i].ID) >= 0 {
			continue
		}
		u := *o.seed[i].Clone()
		u.CreatedAt = r.now()
		u.UpdatedAt = nil
		r.users = append(r.users, u)
	}
	return r
}

var _ repository.UserRepository = (*UserMemory)(nil)

// Get returns a copy of the user with the given id.
func (r *UserMemory) Get(_ context.Context, id uuid.UUID) (_ *model.User, err error) {
	defer recoverLock(&err, "get")

	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, repository.ErrInvalidID
	}
	return r.users[i].Clone(), nil
}

// Create appends a copy of user stamped with the current time.
func (r *UserMemory) Create(_ context.Context, user *model.User) (_ *model.User, err error) {
	if user == nil {
		return nil, repository.NilUserError("create")
	}
	defer recoverLock(&err, "create")

	r.mu.Lock()
	defer r.mu.Unlock()

	// The clock is read on every call, conflicting or not.
	now := r.now()
	if r.indexOf(user.ID) >= 0 {
		return nil, repository.ErrAlreadyExists
	}

	stored := *user.Clone()
	stored.CreatedAt = now
	stored.UpdatedAt = nil
	r.users = append(r.users, stored)

	return stored.Clone(), nil
}

// Update replaces the stored user in place, keeping its original CreatedAt.
func (r *UserMemory) Update(_ context.Context, user *model.User) (_ *model.User, err error) {
	if user == nil {
		return nil, repository.NilUserError("update")
	}
	defer recoverLock(&err, "update")

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	i := r.indexOf(user.ID)
	if i < 0 {
		return nil, repository.ErrDoesNotExist
	}

	stored := *user.Clone()
	stored.CreatedAt = r.users[i].CreatedAt
	stored.UpdatedAt = &now
	r.users[i] = stored

	return stored.Clone(), nil
}

// Delete removes every record with the given id. Absent ids are not an error.
func (r *UserMemory) Delete(_ context.Context, id uuid.UUID) (_ uuid.UUID, err error) {
	defer recoverLock(&err, "delete")

	r.mu.Lock()
	defer r.mu.Unlock()

	r.users = slices.DeleteFunc(r.users, func(u model.User) bool { return u.ID == id })
	return id, nil
}

// indexOf must be called with r.mu held.
func (r *UserMemory) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(r.users, func(u model.User) bool { return u.ID == id })
}

// recoverLock converts a panic raised inside a critical section into ErrLock.
// It must be deferred before the lock is taken so that the unlock runs first.
func recoverLock(err *error, op string) {
	if p := recover(); p != nil {
		*err = fmt.Errorf("%w: %s: recovered panic: %v", repository.ErrLock, op, p)
	}
}
