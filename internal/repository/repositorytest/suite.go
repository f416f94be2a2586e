// Package repositorytest holds the behavioural contract every repository.UserRepository
// backend must satisfy. Backends run the same suite so their results stay interchangeable.
package repositorytest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"userapi/internal/model"
	"userapi/internal/repository"
)

// Factory returns an empty repository that stamps timestamps with clock.
type Factory func(t *testing.T, clock repository.Clock) repository.UserRepository

// StepClock returns a goroutine-safe clock that starts at start and advances by step on every call.
func StepClock(start time.Time, step time.Duration) repository.Clock {
	var mu sync.Mutex
	next := start.UTC().Truncate(time.Microsecond)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(step)
		return now
	}
}

// NewUser builds a valid user with a fresh id.
func NewUser(name string) *model.User {
	return &model.User{
		ID:         uuid.New(),
		Name:       name,
		BirthDate:  civil.Date{Year: 1977, Month: time.March, Day: 10},
		CustomData: model.CustomData{Random: 1},
	}
}

var suiteStart = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

// RunUserRepositorySuite runs the full contract against repositories built by newRepo.
func RunUserRepositorySuite(t *testing.T, newRepo Factory) {
	t.Helper()

	fresh := func(t *testing.T) repository.UserRepository {
		return newRepo(t, StepClock(suiteStart, time.Second))
	}

	t.Run("get never created", func(t *testing.T) {
		repo := fresh(t)
		for i := 0; i < 3; i++ {
			_, err := repo.Get(context.Background(), uuid.New())
			assert.ErrorIs(t, err, repository.ErrInvalidID)
		}
	})

	t.Run("create then get", func(t *testing.T) {
		repo := fresh(t)
		ctx := context.Background()

		in := NewUser("Rob")
		// Caller-supplied timestamps are ignored.
		bogus := suiteStart.Add(-48 * time.Hour)
		in.CreatedAt = bogus
		in.UpdatedAt = &bogus

		created, err := repo.Create(ctx, in)
		require.NoError(t, err)
		assert.True(t, created.CreatedAt.Equal(suiteStart), "created_at = %s", created.CreatedAt)
		assert.Nil(t, created.UpdatedAt)
		assertSameData(t, in, created)

		got, err := repo.Get(ctx, in.ID)
		require.NoError(t, err)
		AssertSameUser(t, created, got)
	})

	t.Run("create twice keeps the first record", func(t *testing.T) {
		repo := fresh(t)
		ctx := context.Background()

		first := NewUser("first")
		created, err := repo.Create(ctx, first)
		require.NoError(t, err)

		second := first.Clone()
		second.Name = "second"
		second.CustomData.Random = 99
		_, err = repo.Create(ctx, second)
		assert.ErrorIs(t, err, repository.ErrAlreadyExists)

		got, err := repo.Get(ctx, first.ID)
		require.NoError(t, err)
		AssertSameUser(t, created, got)
	})

	t.Run("update missing leaves store unchanged", func(t *testing.T) {
		repo := fresh(t)
		ctx := context.Background()

		ghost := NewUser("ghost")
		_, err := repo.Update(ctx, ghost)
		assert.ErrorIs(t, err, repository.ErrDoesNotExist)

		_, err = repo.Get(ctx, ghost.ID)
		assert.ErrorIs(t, err, repository.ErrInvalidID)
	})

	t.Run("update round trip", func(t *testing.T) {
		repo := fresh(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, NewUser("Rob"))
		require.NoError(t, err)

		change := created.Clone()
		change.Name = "Robert"
		change.BirthDate = civil.Date{Year: 1980, Month: time.July, Day: 1}
		change.CustomData.Random = 42
		change.CreatedAt = suiteStart.Add(time.Hour)

		updated, err := repo.Update(ctx, change)
		require.NoError(t, err)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		require.NotNil(t, updated.UpdatedAt)
		assert.True(t, updated.UpdatedAt.After(created.CreatedAt))
		assertSameData(t, change, updated)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		AssertSameUser(t, updated, got)
	})

	t.Run("delete existing", func(t *testing.T) {
		repo := fresh(t)
		ctx := context.Background()

		created, err := repo.Create(ctx, NewUser("doomed"))
		require.NoError(t, err)

		id, err := repo.Delete(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, id)

		_, err = repo.Get(ctx, created.ID)
		assert.ErrorIs(t, err, repository.ErrInvalidID)

		// The id can be reused once deleted.
		_, err = repo.Create(ctx, created)
		assert.NoError(t, err)
	})

	t.Run("delete missing is idempotent", func(t *testing.T) {
		repo := fresh(t)
		id := uuid.New()

		for i := 0; i < 2; i++ {
			got, err := repo.Delete(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, id, got)
		}
	})

	t.Run("returned records are copies", func(t *testing.T) {
		repo := fresh(t)
		ctx := context.Background()

		in := NewUser("owner")
		created, err := repo.Create(ctx, in)
		require.NoError(t, err)

		in.Name = "mutated input"
		created.Name = "mutated output"

		got, err := repo.Get(ctx, in.ID)
		require.NoError(t, err)
		assert.Equal(t, "owner", got.Name)

		updated, err := repo.Update(ctx, got)
		require.NoError(t, err)
		*updated.UpdatedAt = suiteStart.Add(-time.Hour)

		again, err := repo.Get(ctx, in.ID)
		require.NoError(t, err)
		require.NotNil(t, again.UpdatedAt)
		assert.True(t, again.UpdatedAt.After(again.CreatedAt))
	})

	t.Run("concurrent create of one id", func(t *testing.T) {
		repo := fresh(t)
		ctx := context.Background()

		const n = 16
		id := uuid.New()
		var created, conflicts atomic.Int32
		var winner atomic.Value

		var g errgroup.Group
		for i := 0; i < n; i++ {
			u := NewUser(fmt.Sprintf("racer-%d", i))
			u.ID = id
			u.CustomData.Random = uint32(i)
			g.Go(func() error {
				stored, err := repo.Create(ctx, u)
				switch {
				case err == nil:
					created.Add(1)
					winner.Store(stored)
					return nil
				case errors.Is(err, repository.ErrAlreadyExists):
					conflicts.Add(1)
					return nil
				default:
					return err
				}
			})
		}
		require.NoError(t, g.Wait())

		assert.EqualValues(t, 1, created.Load())
		assert.EqualValues(t, n-1, conflicts.Load())

		got, err := repo.Get(ctx, id)
		require.NoError(t, err)
		AssertSameUser(t, winner.Load().(*model.User), got)
	})

	t.Run("concurrent updates of one id", func(t *testing.T) {
		repo := fresh(t)
		ctx := context.Background()

		base, err := repo.Create(ctx, NewUser("base"))
		require.NoError(t, err)

		const n = 8
		names := make(map[string]bool, n)
		var g errgroup.Group
		for i := 0; i < n; i++ {
			u := base.Clone()
			u.Name = fmt.Sprintf("writer-%d", i)
			names[u.Name] = true
			g.Go(func() error {
				_, err := repo.Update(ctx, u)
				return err
			})
		}
		require.NoError(t, g.Wait())

		got, err := repo.Get(ctx, base.ID)
		require.NoError(t, err)
		assert.True(t, names[got.Name], "unexpected final name %q", got.Name)
		assert.True(t, got.CreatedAt.Equal(base.CreatedAt))
		require.NotNil(t, got.UpdatedAt)
	})

	t.Run("example scenario", func(t *testing.T) {
		repo := fresh(t)
		ctx := context.Background()

		rob := NewUser("Rob")
		created, err := repo.Create(ctx, rob)
		require.NoError(t, err)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Nil(t, created.UpdatedAt)

		got, err := repo.Get(ctx, rob.ID)
		require.NoError(t, err)
		AssertSameUser(t, created, got)

		robert := got.Clone()
		robert.Name = "Robert"
		updated, err := repo.Update(ctx, robert)
		require.NoError(t, err)
		assert.Equal(t, "Robert", updated.Name)
		assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
		assert.NotNil(t, updated.UpdatedAt)

		id, err := repo.Delete(ctx, rob.ID)
		require.NoError(t, err)
		assert.Equal(t, rob.ID, id)

		_, err = repo.Get(ctx, rob.ID)
		assert.ErrorIs(t, err, repository.ErrInvalidID)
	})
}

// AssertSameUser compares two users field by field, comparing timestamps by instant.
func AssertSameUser(t *testing.T, want, got *model.User) {
	t.Helper()
	require.NotNil(t, got)
	assertSameData(t, want, got)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at: want %s, got %s", want.CreatedAt, got.CreatedAt)
	if want.UpdatedAt == nil {
		assert.Nil(t, got.UpdatedAt)
		return
	}
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, want.UpdatedAt.Equal(*got.UpdatedAt), "updated_at: want %s, got %s", want.UpdatedAt, got.UpdatedAt)
}

func assertSameData(t *testing.T, want, got *model.User) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.BirthDate, got.BirthDate)
	assert.Equal(t, want.CustomData, got.CustomData)
}
