package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userapi/internal/model"
	"userapi/internal/repository"
)

var (
	userColumns = []string{"id", "name", "birth_date", "custom_data", "created_at", "updated_at"}
	fixedNow    = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	birthTime   = time.Date(1977, 3, 10, 0, 0, 0, 0, time.UTC)
)

func newTestRepo(t *testing.T) (*UserPostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewUserPostgres(db, WithClock(func() time.Time { return fixedNow })), mock
}

func testUser() *model.User {
	return &model.User{
		ID:         uuid.New(),
		Name:       "Rob",
		BirthDate:  civil.Date{Year: 1977, Month: time.March, Day: 10},
		CustomData: model.CustomData{Random: 1},
	}
}

func TestUserPostgres_Get(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		u := testUser()
		updated := fixedNow.Add(time.Hour)
		rows := sqlmock.NewRows(userColumns).
			AddRow(u.ID.String(), u.Name, birthTime, []byte(`{"random":1}`), fixedNow, updated)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
			WithArgs(u.ID).
			WillReturnRows(rows)

		got, err := repo.Get(ctx, u.ID)

		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "Rob", got.Name)
		assert.Equal(t, u.BirthDate, got.BirthDate)
		assert.Equal(t, model.CustomData{Random: 1}, got.CustomData)
		assert.True(t, fixedNow.Equal(got.CreatedAt))
		require.NotNil(t, got.UpdatedAt)
		assert.True(t, updated.Equal(*got.UpdatedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
			WithArgs(id).
			WillReturnError(sql.ErrNoRows)

		got, err := repo.Get(ctx, id)

		assert.ErrorIs(t, err, repository.ErrInvalidID)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("connection failure", func(t *testing.T) {
		id := uuid.New()
		driverErr := errors.New("connection reset by peer")
		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
			WithArgs(id).
			WillReturnError(driverErr)

		got, err := repo.Get(ctx, id)

		assert.ErrorIs(t, err, repository.ErrStorage)
		assert.NotErrorIs(t, err, driverErr)
		assert.Contains(t, err.Error(), "connection reset by peer")
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt custom data", func(t *testing.T) {
		u := testUser()
		rows := sqlmock.NewRows(userColumns).
			AddRow(u.ID.String(), u.Name, birthTime, []byte(`not json`), fixedNow, nil)

		mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
			WithArgs(u.ID).
			WillReturnRows(rows)

		_, err := repo.Get(ctx, u.ID)

		assert.ErrorIs(t, err, repository.ErrStorage)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserPostgres_Create(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		u := testUser()
		bogus := fixedNow.Add(-24 * time.Hour)
		u.CreatedAt = bogus
		u.UpdatedAt = &bogus

		rows := sqlmock.NewRows(userColumns).
			AddRow(u.ID.String(), u.Name, birthTime, []byte(`{"random":1}`), fixedNow, nil)

		mock.ExpectQuery("INSERT INTO users").
			WithArgs(u.ID, u.Name, birthTime, `{"random":1}`, fixedNow).
			WillReturnRows(rows)

		got, err := repo.Create(ctx, u)

		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
		assert.True(t, fixedNow.Equal(got.CreatedAt))
		assert.Nil(t, got.UpdatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate id", func(t *testing.T) {
		u := testUser()
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(u.ID, u.Name, birthTime, `{"random":1}`, fixedNow).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"users_pkey\""})

		got, err := repo.Create(ctx, u)

		assert.ErrorIs(t, err, repository.ErrAlreadyExists)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other database error", func(t *testing.T) {
		u := testUser()
		mock.ExpectQuery("INSERT INTO users").
			WithArgs(u.ID, u.Name, birthTime, `{"random":1}`, fixedNow).
			WillReturnError(&pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"})

		got, err := repo.Create(ctx, u)

		assert.ErrorIs(t, err, repository.ErrStorage)
		assert.NotErrorIs(t, err, repository.ErrAlreadyExists)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserPostgres_Update(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		u := testUser()
		u.Name = "Robert"
		created := fixedNow.Add(-time.Hour)

		rows := sqlmock.NewRows(userColumns).
			AddRow(u.ID.String(), u.Name, birthTime, []byte(`{"random":1}`), created, fixedNow)

		mock.ExpectQuery("UPDATE users SET (.+) WHERE id = \\$1 RETURNING").
			WithArgs(u.ID, "Robert", birthTime, `{"random":1}`, fixedNow).
			WillReturnRows(rows)

		got, err := repo.Update(ctx, u)

		require.NoError(t, err)
		assert.Equal(t, "Robert", got.Name)
		assert.True(t, created.Equal(got.CreatedAt))
		require.NotNil(t, got.UpdatedAt)
		assert.True(t, fixedNow.Equal(*got.UpdatedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		u := testUser()
		mock.ExpectQuery("UPDATE users").
			WithArgs(u.ID, u.Name, birthTime, `{"random":1}`, fixedNow).
			WillReturnRows(sqlmock.NewRows(userColumns))

		got, err := repo.Update(ctx, u)

		assert.ErrorIs(t, err, repository.ErrDoesNotExist)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		u := testUser()
		mock.ExpectQuery("UPDATE users").
			WithArgs(u.ID, u.Name, birthTime, `{"random":1}`, fixedNow).
			WillReturnError(errors.New("driver: bad connection"))

		got, err := repo.Update(ctx, u)

		assert.ErrorIs(t, err, repository.ErrStorage)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserPostgres_Delete(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	t.Run("existing row", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec("DELETE FROM users WHERE id = ?").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		got, err := repo.Delete(ctx, id)

		assert.NoError(t, err)
		assert.Equal(t, id, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("absent row", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec("DELETE FROM users WHERE id = ?").
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		got, err := repo.Delete(ctx, id)

		assert.NoError(t, err)
		assert.Equal(t, id, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		id := uuid.New()
		mock.ExpectExec("DELETE FROM users WHERE id = ?").
			WithArgs(id).
			WillReturnError(errors.New("connection refused"))

		got, err := repo.Delete(ctx, id)

		assert.ErrorIs(t, err, repository.ErrStorage)
		assert.Equal(t, uuid.Nil, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserPostgres_NilUser(t *testing.T) {
	repo, mock := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, nil)
	assert.ErrorIs(t, err, repository.ErrStorage)

	_, err = repo.Update(ctx, nil)
	assert.ErrorIs(t, err, repository.ErrStorage)

	assert.NoError(t, mock.ExpectationsWereMet())
}
