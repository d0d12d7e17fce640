package tenant_test

import (
	"fmt"
	"testing"

	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
	"github.com/rohankatakam/codegraph/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_AssignsMonotonicIDs(t *testing.T) {
	r := tenant.NewRegistry()
	a, err := r.Register("/repo/a")
	require.NoError(t, err)
	b, err := r.Register("/repo/b")
	require.NoError(t, err)
	assert.Less(t, a.ID, b.ID)
}

func TestRegister_RejectsDuplicatePath(t *testing.T) {
	r := tenant.NewRegistry()
	_, err := r.Register("/repo/a")
	require.NoError(t, err)
	_, err = r.Register("/repo/a")
	assert.ErrorIs(t, err, cgerrors.ErrDuplicateRepo)
}

func TestRegister_RejectsAtCapacity(t *testing.T) {
	r := tenant.NewRegistry()
	for i := 0; i < tenant.MaxRepos; i++ {
		_, err := r.Register(fmt.Sprintf("/repo/%d", i))
		require.NoError(t, err)
	}
	_, err := r.Register("one-too-many")
	assert.ErrorIs(t, err, cgerrors.ErrTooManyRepos)
}

func TestDirectoryHash_DeterministicAndDistinctPerPath(t *testing.T) {
	h1 := tenant.DirectoryHash("/repo/a")
	h2 := tenant.DirectoryHash("/repo/a")
	h3 := tenant.DirectoryHash("/repo/b")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.Len(t, h1, 32)
}

func TestMRSW_ScenarioS5(t *testing.T) {
	r := tenant.NewRegistry()
	repo, err := r.Register("/repo/a")
	require.NoError(t, err)

	require.NoError(t, r.AcquireRead(repo.ID))
	require.NoError(t, r.AcquireRead(repo.ID))

	err = r.AcquireWrite(repo.ID)
	assert.ErrorIs(t, err, cgerrors.ErrReadLocked)

	r.ReleaseRead(repo.ID)
	r.ReleaseRead(repo.ID)

	require.NoError(t, r.AcquireWrite(repo.ID))

	err = r.AcquireWrite(repo.ID)
	assert.ErrorIs(t, err, cgerrors.ErrWriteLocked)
}

func TestMRSW_WriteBlocksReadAndReleaseIsDefensive(t *testing.T) {
	r := tenant.NewRegistry()
	repo, err := r.Register("/repo/a")
	require.NoError(t, err)

	require.NoError(t, r.AcquireWrite(repo.ID))
	err = r.AcquireRead(repo.ID)
	assert.ErrorIs(t, err, cgerrors.ErrWriteLocked)

	r.ReleaseRead(repo.ID) // no-op, no readers held
	r.ReleaseWrite(repo.ID)
	r.ReleaseWrite(repo.ID) // defensive no-op, idempotent

	require.NoError(t, r.AcquireRead(repo.ID))
}

func TestUnregister_BusyRepoFails(t *testing.T) {
	r := tenant.NewRegistry()
	repo, err := r.Register("/repo/a")
	require.NoError(t, err)
	require.NoError(t, r.AcquireRead(repo.ID))

	err = r.Unregister(repo.ID)
	assert.ErrorIs(t, err, cgerrors.ErrRepoBusy)

	r.ReleaseRead(repo.ID)
	require.NoError(t, r.Unregister(repo.ID))
}
