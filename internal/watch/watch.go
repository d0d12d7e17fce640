// Package watch implements the stat-based polling file watcher: no OS-level
// filesystem notification is used, since the core must remain embeddable
// without platform-specific watch primitives. The host drives the polling
// cadence; this package only tracks per-path state and debounces.
package watch

import (
	"os"

	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
)

// MaxWatchPaths bounds how many paths a single Watcher may track.
const MaxWatchPaths = 10_000

// DefaultDebounceMs is the default quiet-window before a pending change is
// emitted as an event.
const DefaultDebounceMs = 300

// ChangeKind classifies a detected filesystem change.
type ChangeKind int

const (
	Created ChangeKind = iota
	Modified
	Deleted
)

func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "created"
	case Deleted:
		return "deleted"
	default:
		return "modified"
	}
}

// Event is one debounced, emitted change.
type Event struct {
	Path string
	Kind ChangeKind
}

type pathState struct {
	exists       bool
	modTimeNs    int64
	size         int64
	pending      bool
	pendingKind  ChangeKind
	lastChangeMs int64
}

// Watcher tracks per-path stat state and debounces rapid changes into at
// most one event per quiet interval.
type Watcher struct {
	DebounceMs int64
	paths      map[string]*pathState
}

// NewWatcher returns a Watcher using debounceMs as its quiet window.
func NewWatcher(debounceMs int64) *Watcher {
	return &Watcher{DebounceMs: debounceMs, paths: make(map[string]*pathState)}
}

// Watch adds path to the watch set. Idempotent: watching an already-watched
// path is a silent no-op. Adding at MaxWatchPaths fails with
// ErrTooManyWatches.
func (w *Watcher) Watch(path string) error {
	if _, ok := w.paths[path]; ok {
		return nil
	}
	if len(w.paths) >= MaxWatchPaths {
		return cgerrors.ErrTooManyWatches
	}
	w.paths[path] = &pathState{}
	return nil
}

// WatchMany calls Watch for each path in paths and returns the number of
// calls made — not the number of unique additions, matching the contract
// that watch_many's count reflects call volume, not dedup outcome.
func (w *Watcher) WatchMany(paths []string) (int, error) {
	count := 0
	for _, p := range paths {
		if err := w.Watch(p); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Unwatch removes path from the watch set. A no-op if path isn't watched.
func (w *Watcher) Unwatch(path string) {
	delete(w.paths, path)
}

// Count returns the number of watched paths.
func (w *Watcher) Count() int {
	return len(w.paths)
}

// Poll stats every watched path at the given poll time (nowMs), classifies
// any change as created/modified/deleted, and emits an event for any path
// whose pending change has sat for at least DebounceMs. A path that churns
// faster than the debounce window emits at most one event per quiet
// interval: each new change within the window simply restamps
// lastChangeMs, pushing the emission out further.
func (w *Watcher) Poll(nowMs int64) []Event {
	var events []Event
	for path, st := range w.paths {
		existsNow, modTimeNs, size := statPath(path)

		changed := false
		var kind ChangeKind
		switch {
		case existsNow && !st.exists:
			changed, kind = true, Created
		case !existsNow && st.exists:
			changed, kind = true, Deleted
		case existsNow && st.exists && (modTimeNs != st.modTimeNs || size != st.size):
			changed, kind = true, Modified
		}

		st.exists, st.modTimeNs, st.size = existsNow, modTimeNs, size

		if changed {
			st.pending = true
			st.pendingKind = kind
			st.lastChangeMs = nowMs
		}

		if st.pending && nowMs-st.lastChangeMs >= w.DebounceMs {
			events = append(events, Event{Path: path, Kind: st.pendingKind})
			st.pending = false
		}
	}
	return events
}

func statPath(path string) (exists bool, modTimeNs, size int64) {
	info, err := os.Stat(path)
	if err != nil {
		return false, 0, 0
	}
	return true, info.ModTime().UnixNano(), info.Size()
}
