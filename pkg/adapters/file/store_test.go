package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/freelingo/pkg/adapters/file"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Contract(t *testing.T) {
	ports.RunSessionRepositoryContract(t, file.New(t.TempDir()))
}

func TestStore_ListEmptyDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "missing"))
	users, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, domain.NewSessionRecord("ana")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-ana-123.json"), []byte("{"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.json"), 0o755))

	users, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ana"}, users)
}

func TestStore_RejectsUnsafeIDs(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", " ", "..", "../escape", "a/b", "tmp-ana"} {
		t.Run(id, func(t *testing.T) {
			assert.ErrorIs(t, store.Put(ctx, domain.NewSessionRecord(id)), file.ErrInvalidUserID)
			_, err := store.Get(ctx, id)
			assert.ErrorIs(t, err, file.ErrInvalidUserID)
		})
	}
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ana.json"), []byte("{not json"), 0o600))

	_, err := file.New(dir).Get(context.Background(), "ana")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}
