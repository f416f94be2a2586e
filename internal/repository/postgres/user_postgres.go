package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"userapi/internal/model"
	"userapi/internal/repository"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports when a primary key or unique index is violated.
const uniqueViolation = "23505"

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
// Every operation is a single parameterized statement, so each one is its own transaction.
// No in-process lock is held while waiting on the database.
type UserPostgres struct {
	db  *sql.DB
	now repository.Clock
}

// Option configures a UserPostgres.
type Option func(*UserPostgres)

// WithClock sets the clock used to stamp created_at and updated_at.
func WithClock(c repository.Clock) Option {
	return func(r *UserPostgres) { r.now = c.OrSystem() }
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB, opts ...Option) *UserPostgres {
	r := &UserPostgres{db: db, now: repository.SystemClock}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ repository.UserRepository = (*UserPostgres)(nil)

// Get fetches a single user by its ID.
func (r *UserPostgres) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	const q = `
		SELECT id, name, birth_date, custom_data, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	u, err := scanUser(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrInvalidID
		}
		return nil, storageError("get", err)
	}
	return u, nil
}

// Create inserts a new user row and returns the stored record.
// The primary key enforces uniqueness; a violation is reported as ErrAlreadyExists.
func (r *UserPostgres) Create(ctx context.Context, user *model.User) (*model.User, error) {
	const q = `
		INSERT INTO users (id, name, birth_date, custom_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULL)
		RETURNING id, name, birth_date, custom_data, created_at, updated_at
	`
	if user == nil {
		return nil, repository.NilUserError("create")
	}
	custom, err := encodeCustomData(user.CustomData)
	if err != nil {
		return nil, storageError("create", err)
	}

	u, err := scanUser(r.db.QueryRowContext(ctx, q,
		user.ID,
		user.Name,
		user.BirthDate.In(time.UTC),
		custom,
		r.now(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrAlreadyExists
		}
		return nil, storageError("create", err)
	}
	return u, nil
}

// Update overwrites the mutable columns of an existing row. created_at is never written.
func (r *UserPostgres) Update(ctx context.Context, user *model.User) (*model.User, error) {
	const q = `
		UPDATE users
		SET name = $2, birth_date = $3, custom_data = $4, updated_at = $5
		WHERE id = $1
		RETURNING id, name, birth_date, custom_data, created_at, updated_at
	`
	if user == nil {
		return nil, repository.NilUserError("update")
	}
	custom, err := encodeCustomData(user.CustomData)
	if err != nil {
		return nil, storageError("update", err)
	}

	u, err := scanUser(r.db.QueryRowContext(ctx, q,
		user.ID,
		user.Name,
		user.BirthDate.In(time.UTC),
		custom,
		r.now(),
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrDoesNotExist
		}
		return nil, storageError("update", err)
	}
	return u, nil
}

// Delete removes a user by ID. It does not return an error if the row does not exist.
func (r *UserPostgres) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	const q = `DELETE FROM users WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return uuid.Nil, storageError("delete", err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u         model.User
		birthDate time.Time
		custom    []byte
		updatedAt sql.NullTime
	)
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&birthDate,
		&custom,
		&u.CreatedAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(custom, &u.CustomData); err != nil {
		return nil, fmt.Errorf("decode custom_data: %w", err)
	}
	u.BirthDate = civil.DateOf(birthDate)
	u.CreatedAt = u.CreatedAt.UTC()
	if updatedAt.Valid {
		t := updatedAt.Time.UTC()
		u.UpdatedAt = &t
	}
	return &u, nil
}

func encodeCustomData(d model.CustomData) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode custom_data: %w", err)
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// storageError classifies err as ErrStorage. The driver error is kept in the message only,
// so callers cannot match on backend-specific error values.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", repository.ErrStorage, op, err)
}
