// Package tenant implements the multi-repository registry: per-repo id
// allocation, the MRSW (multiple-reader/single-writer) lock discipline, and
// the directory-hash scheme used to lay out each repo's on-disk files.
package tenant

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
)

// MaxRepos is the registry's capacity.
const MaxRepos = 256

// directoryHashSalt distinguishes the registry's second seeded hash from its
// first; xxhash has no built-in seed parameter, so a fixed salt appended to
// the input is used to derive an independent-enough second digest.
const directoryHashSalt = "\x00codegraph-dirhash-v1"

// Repo is one registered repository's bookkeeping record.
type Repo struct {
	ID   uint32
	Path string
	Hash string // 32-hex-char directory hash, e.g. .codegraph/repos/<Hash>/

	readers      int
	writerActive bool
}

// Registry tracks registered repos and enforces MAX_REPOS and per-repo MRSW
// locking. Not safe for concurrent use by multiple goroutines; it models the
// single-threaded logical counters described by the core, not OS locks.
type Registry struct {
	repos  map[uint32]*Repo
	byPath map[string]uint32
	nextID uint32
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		repos:  make(map[uint32]*Repo),
		byPath: make(map[string]uint32),
	}
}

// DirectoryHash computes the 32-hex-char directory hash for path: two
// independent 64-bit hashes of path concatenated into 16 bytes, hex-encoded.
func DirectoryHash(path string) string {
	h1 := xxhash.Sum64String(path)
	h2 := xxhash.Sum64String(path + directoryHashSalt)
	return fmt.Sprintf("%016x%016x", h1, h2)
}

// Register adds path to the registry, returning its newly assigned id.
// Registering an already-registered path fails with ErrDuplicateRepo;
// registering at capacity fails with ErrTooManyRepos.
func (r *Registry) Register(path string) (*Repo, error) {
	if _, exists := r.byPath[path]; exists {
		return nil, cgerrors.ErrDuplicateRepo
	}
	if len(r.repos) >= MaxRepos {
		return nil, cgerrors.ErrTooManyRepos
	}

	r.nextID++
	id := r.nextID
	repo := &Repo{ID: id, Path: path, Hash: DirectoryHash(path)}
	r.repos[id] = repo
	r.byPath[path] = id
	return repo, nil
}

// Unregister removes a repo by id. A busy repo (readers > 0 or a writer
// active) fails with ErrRepoBusy.
func (r *Registry) Unregister(id uint32) error {
	repo, ok := r.repos[id]
	if !ok {
		return cgerrors.ErrRepoNotFound
	}
	if repo.readers > 0 || repo.writerActive {
		return cgerrors.ErrRepoBusy
	}
	delete(r.repos, id)
	delete(r.byPath, repo.Path)
	return nil
}

// Get returns the repo record for id.
func (r *Registry) Get(id uint32) (*Repo, error) {
	repo, ok := r.repos[id]
	if !ok {
		return nil, cgerrors.ErrRepoNotFound
	}
	return repo, nil
}

// AcquireRead increments id's reader count. Fails with ErrWriteLocked if a
// writer is currently active.
func (r *Registry) AcquireRead(id uint32) error {
	repo, err := r.Get(id)
	if err != nil {
		return err
	}
	if repo.writerActive {
		return cgerrors.ErrWriteLocked
	}
	repo.readers++
	return nil
}

// ReleaseRead decrements id's reader count. Releasing when no readers are
// held is a defensive no-op (floor-clamped at zero).
func (r *Registry) ReleaseRead(id uint32) {
	repo, ok := r.repos[id]
	if !ok {
		return
	}
	if repo.readers > 0 {
		repo.readers--
	}
}

// AcquireWrite sets id's writer flag. Fails with ErrReadLocked if readers > 0,
// or ErrWriteLocked if a writer is already active.
func (r *Registry) AcquireWrite(id uint32) error {
	repo, err := r.Get(id)
	if err != nil {
		return err
	}
	if repo.writerActive {
		return cgerrors.ErrWriteLocked
	}
	if repo.readers > 0 {
		return cgerrors.ErrReadLocked
	}
	repo.writerActive = true
	return nil
}

// ReleaseWrite clears id's writer flag. Releasing an un-held write lock is a
// defensive no-op.
func (r *Registry) ReleaseWrite(id uint32) {
	repo, ok := r.repos[id]
	if !ok {
		return
	}
	repo.writerActive = false
}

// Count returns the number of currently registered repos.
func (r *Registry) Count() int {
	return len(r.repos)
}
