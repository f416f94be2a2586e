package migration

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userapi/internal/logger"
)

func TestEnsureMigrated(t *testing.T) {
	ctx := context.Background()
	sentinel := "SELECT to_regclass\\('public.users'\\) IS NOT NULL"

	t.Run("schema exists", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(sentinel).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		var buf bytes.Buffer
		err = EnsureMigrated(ctx, db, logger.NewWithWriter(&buf, logger.Config{}), "db.local")
		assert.NoError(t, err)
		assert.Contains(t, buf.String(), "db_migration_skip")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fresh database", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(sentinel).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_users_created_at").WillReturnResult(sqlmock.NewResult(0, 0))

		var buf bytes.Buffer
		err = EnsureMigrated(ctx, db, logger.NewWithWriter(&buf, logger.Config{}), "db.local")
		assert.NoError(t, err)
		assert.Contains(t, buf.String(), "db_migration_success")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sentinel check fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(sentinel).WillReturnError(errors.New("permission denied"))

		err = EnsureMigrated(ctx, db, logger.Discard(), "db.local")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to check sentinel table")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("step fails", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(sentinel).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS users").WillReturnError(errors.New("disk full"))

		var buf bytes.Buffer
		err = EnsureMigrated(ctx, db, logger.NewWithWriter(&buf, logger.Config{}), "db.local")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "migration step create_table_users failed")
		assert.Contains(t, buf.String(), "db_migration_failed")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
