package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohankatakam/codegraph/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStore_SaveAndGetRepo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := storage.NewBoltStore(path, nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	repo := &storage.RepoRecord{ID: 1, Path: "/repo/a", Hash: "abc123", RegisteredAt: time.Now()}
	require.NoError(t, s.SaveRepo(ctx, repo))

	got, err := s.GetRepo(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, repo.Path, got.Path)
	assert.Equal(t, repo.Hash, got.Hash)
}

func TestBoltStore_GetRepoMissingIsNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := storage.NewBoltStore(path, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetRepo(context.Background(), 99)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBoltStore_ListReposReturnsAllSaved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := storage.NewBoltStore(path, nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveRepo(ctx, &storage.RepoRecord{ID: 1, Path: "/a", Hash: "h1"}))
	require.NoError(t, s.SaveRepo(ctx, &storage.RepoRecord{ID: 2, Path: "/b", Hash: "h2"}))

	repos, err := s.ListRepos(ctx)
	require.NoError(t, err)
	assert.Len(t, repos, 2)
}

func TestBoltStore_DeleteRepoRemovesRepoAndWarmMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := storage.NewBoltStore(path, nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.SaveRepo(ctx, &storage.RepoRecord{ID: 1, Path: "/a", Hash: "h1"}))
	require.NoError(t, s.SaveWarmMetadata(ctx, &storage.WarmMetadata{RepoID: 1, SymbolCount: 10, EdgeCount: 20}))

	require.NoError(t, s.DeleteRepo(ctx, 1))

	_, err = s.GetRepo(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetWarmMetadata(ctx, 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBoltStore_WarmMetadataRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.db")
	s, err := storage.NewBoltStore(path, nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	meta := &storage.WarmMetadata{RepoID: 7, SymbolCount: 123, EdgeCount: 456, UpdatedAt: time.Now()}
	require.NoError(t, s.SaveWarmMetadata(ctx, meta))

	got, err := s.GetWarmMetadata(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, meta.SymbolCount, got.SymbolCount)
	assert.Equal(t, meta.EdgeCount, got.EdgeCount)
}
