package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionRepositoryContract runs a suite of tests to verify that a SessionRepository
// implementation adheres to the defined interface contract.
func RunSessionRepositoryContract(t *testing.T, repo SessionRepository) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405")

	newRecord := func(id string) *domain.SessionRecord {
		r := domain.NewSessionRecord(id)
		r.KnownWords = []domain.Word{{Word: "bonjour", Translation: "hello"}}
		r.DialogueHistory = []domain.Message{
			{Role: domain.RoleAI, Text: "Bonjour !"},
			{Role: domain.RoleLearner, Text: "bonjour"},
		}
		r.UpdatedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
		return r
	}

	t.Run("Put and Get", func(t *testing.T) {
		record := newRecord(userID)
		require.NoError(t, repo.Put(ctx, record), "Put should not return error")

		loaded, err := repo.Get(ctx, userID)
		require.NoError(t, err, "Get should not return error")
		assert.Equal(t, userID, loaded.UserID)
		assert.Equal(t, record.KnownWords, loaded.KnownWords)
		assert.Equal(t, record.DialogueHistory, loaded.DialogueHistory)
		assert.True(t, record.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Get returns a copy", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, newRecord(userID)))

		loaded, err := repo.Get(ctx, userID)
		require.NoError(t, err)
		loaded.KnownWords[0].Word = "mutated"

		again, err := repo.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, "bonjour", again.KnownWords[0].Word)
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := repo.Get(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, newRecord(userID)))

		require.NoError(t, repo.Delete(ctx, userID), "Delete should not return error")

		_, err := repo.Get(ctx, userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Get after Delete should return ErrSessionNotFound")

		assert.NoError(t, repo.Delete(ctx, userID), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		_ = repo.Put(ctx, newRecord(id1))
		_ = repo.Put(ctx, newRecord(id2))

		defer func() {
			_ = repo.Delete(ctx, id1)
			_ = repo.Delete(ctx, id2)
		}()

		users, err := repo.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, users, id1)
		assert.Contains(t, users, id2)
	})
}
