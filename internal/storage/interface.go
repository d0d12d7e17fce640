// Package storage persists the C11 tenant registry and C12 tier manager's
// warm-tier metadata across process restarts. The in-memory graph itself
// (internal/graph, internal/tier) is never persisted here — only the
// bookkeeping needed to rebuild it: which repos are registered, where they
// live, and how big their graphs were last time they were loaded.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Common errors returned by every RegistryStore implementation.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// RepoRecord is the durable form of a tenant.Repo: enough to re-register a
// repo with the same id and directory hash after a restart, without
// re-walking the filesystem to recompute the hash.
type RepoRecord struct {
	ID           uint32    `db:"id" json:"id"`
	Path         string    `db:"path" json:"path"`
	Hash         string    `db:"hash" json:"hash"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
	LastSyncedAt time.Time `db:"last_synced_at" json:"last_synced_at"`
}

// WarmMetadata is the durable form of a tier.Entry's cached counts, used to
// skip reloading a graph into WARM purely to learn its size.
type WarmMetadata struct {
	RepoID      uint32    `db:"repo_id" json:"repo_id"`
	SymbolCount int       `db:"symbol_count" json:"symbol_count"`
	EdgeCount   int       `db:"edge_count" json:"edge_count"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// RegistryStore persists the tenant registry (and, where the backend
// supports it cheaply, warm-tier metadata) across restarts.
type RegistryStore interface {
	SaveRepo(ctx context.Context, repo *RepoRecord) error
	GetRepo(ctx context.Context, id uint32) (*RepoRecord, error)
	ListRepos(ctx context.Context) ([]*RepoRecord, error)
	DeleteRepo(ctx context.Context, id uint32) error

	SaveWarmMetadata(ctx context.Context, meta *WarmMetadata) error
	GetWarmMetadata(ctx context.Context, repoID uint32) (*WarmMetadata, error)

	Close() error
}

// Open selects a RegistryStore implementation by backend name: "bolt" (the
// default, a single embedded file at boltPath) or "postgres" (a shared
// registry at dsn, for multiple daemons tracking the same repos). Any other
// backend is an error rather than a silent fallback, so a config typo
// surfaces at startup instead of quietly degrading to single-daemon mode.
func Open(backend, dsn, boltPath string, logger *logrus.Logger) (RegistryStore, error) {
	switch backend {
	case "", "bolt":
		return NewBoltStore(boltPath, logger)
	case "postgres":
		return NewPostgresStore(dsn, logger)
	default:
		return nil, fmt.Errorf("unknown registry backend %q", backend)
	}
}
