package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// SQLiteStore is an optional durable copy of per-repo symbol/edge counts,
// written by the tier manager (tier.Manager.SetStore). The tier manager
// does not read these rows back after a daemon restart; they are available
// through GetWarmMetadata. It does not replace BoltStore as the registry's
// source of truth.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewSQLiteStore opens (creating if necessary) a SQLite database at path.
func NewSQLiteStore(path string, logger *logrus.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	db.Exec("PRAGMA journal_mode = WAL")

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS repos (
		id INTEGER PRIMARY KEY,
		path TEXT NOT NULL,
		hash TEXT NOT NULL,
		registered_at DATETIME,
		last_synced_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS warm_metadata (
		repo_id INTEGER PRIMARY KEY,
		symbol_count INTEGER,
		edge_count INTEGER,
		updated_at DATETIME,
		FOREIGN KEY (repo_id) REFERENCES repos(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRepo upserts a repo record.
func (s *SQLiteStore) SaveRepo(ctx context.Context, repo *RepoRecord) error {
	query := `
		INSERT OR REPLACE INTO repos (id, path, hash, registered_at, last_synced_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		repo.ID, repo.Path, repo.Hash, repo.RegisteredAt, repo.LastSyncedAt)
	if err != nil {
		return fmt.Errorf("save repo: %w", err)
	}
	return nil
}

// GetRepo fetches a repo record by id, or ErrNotFound.
func (s *SQLiteStore) GetRepo(ctx context.Context, id uint32) (*RepoRecord, error) {
	var repo RepoRecord
	query := `SELECT id, path, hash, registered_at, last_synced_at FROM repos WHERE id = ?`
	err := s.db.GetContext(ctx, &repo, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get repo: %w", err)
	}
	return &repo, nil
}

// ListRepos returns every persisted repo record.
func (s *SQLiteStore) ListRepos(ctx context.Context) ([]*RepoRecord, error) {
	var repos []*RepoRecord
	query := `SELECT id, path, hash, registered_at, last_synced_at FROM repos ORDER BY id`
	if err := s.db.SelectContext(ctx, &repos, query); err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	return repos, nil
}

// DeleteRepo removes a repo record and its warm metadata.
func (s *SQLiteStore) DeleteRepo(ctx context.Context, id uint32) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM warm_metadata WHERE repo_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM repos WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveWarmMetadata upserts the cached symbol/edge counts for a repo.
func (s *SQLiteStore) SaveWarmMetadata(ctx context.Context, meta *WarmMetadata) error {
	query := `
		INSERT OR REPLACE INTO warm_metadata (repo_id, symbol_count, edge_count, updated_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, meta.RepoID, meta.SymbolCount, meta.EdgeCount, meta.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save warm metadata: %w", err)
	}
	return nil
}

// GetWarmMetadata fetches cached counts for a repo, or ErrNotFound.
func (s *SQLiteStore) GetWarmMetadata(ctx context.Context, repoID uint32) (*WarmMetadata, error) {
	var meta WarmMetadata
	query := `SELECT repo_id, symbol_count, edge_count, updated_at FROM warm_metadata WHERE repo_id = ?`
	err := s.db.GetContext(ctx, &meta, query, repoID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get warm metadata: %w", err)
	}
	return &meta, nil
}
