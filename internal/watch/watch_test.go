package watch_test

import (
	"os"
	"path/filepath"
	"testing"

	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
	"github.com/rohankatakam/codegraph/internal/watch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatch_IdempotentOnDuplicatePath(t *testing.T) {
	w := watch.NewWatcher(watch.DefaultDebounceMs)
	require.NoError(t, w.Watch("a.ts"))
	require.NoError(t, w.Watch("a.ts"))
	assert.Equal(t, 1, w.Count())
}

func TestWatchMany_ReturnsCallCountNotUniqueAdditions(t *testing.T) {
	w := watch.NewWatcher(watch.DefaultDebounceMs)
	n, err := w.WatchMany([]string{"a.ts", "a.ts", "b.ts"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 2, w.Count())
}

func TestWatch_RejectsAtCapacity(t *testing.T) {
	w := watch.NewWatcher(watch.DefaultDebounceMs)
	for i := 0; i < watch.MaxWatchPaths; i++ {
		require.NoError(t, w.Watch(string(rune(i))+"x"))
	}
	err := w.Watch("one-too-many")
	assert.ErrorIs(t, err, cgerrors.ErrTooManyWatches)
}

// TestDebounceScenarioS7 reproduces the spec's debounce scenario: watch a
// path, create the file, and confirm the created event only fires once the
// poll time crosses the debounce window measured from detection time.
func TestDebounceScenarioS7(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "watched.ts")

	w := watch.NewWatcher(300)
	require.NoError(t, w.Watch(p))

	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))

	assert.Empty(t, w.Poll(5000))
	assert.Empty(t, w.Poll(5299))

	events := w.Poll(5300)
	require.Len(t, events, 1)
	assert.Equal(t, watch.Created, events[0].Kind)
	assert.Equal(t, p, events[0].Path)
}

func TestPoll_DeletedPathEmitsDeletedEvent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "watched.ts")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))

	w := watch.NewWatcher(0) // zero debounce for immediate emission in this test
	require.NoError(t, w.Watch(p))
	w.Poll(0) // establish baseline "exists" state, consuming the created event

	require.NoError(t, os.Remove(p))
	events := w.Poll(1)
	require.Len(t, events, 1)
	assert.Equal(t, watch.Deleted, events[0].Kind)
}

func TestUnwatchRemovesPath(t *testing.T) {
	w := watch.NewWatcher(watch.DefaultDebounceMs)
	require.NoError(t, w.Watch("a.ts"))
	w.Unwatch("a.ts")
	assert.Equal(t, 0, w.Count())
}
