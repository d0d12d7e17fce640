package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const registryChangeChannel = "codegraph_registry_changes"

// PostgresStore lets several local daemons share one registry table for
// repo-path bookkeeping, mirroring the local/team split of BoltStore vs a
// shared backend: graph data and query execution always stay local to the
// daemon that holds the HOT graph, only registry discovery is shared.
type PostgresStore struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPostgresStore connects to dsn and ensures the registry tables exist.
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store := &PostgresStore{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS repos (
		id BIGINT PRIMARY KEY,
		path TEXT NOT NULL,
		hash TEXT NOT NULL,
		registered_at TIMESTAMPTZ,
		last_synced_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS warm_metadata (
		repo_id BIGINT PRIMARY KEY REFERENCES repos(id),
		symbol_count BIGINT,
		edge_count BIGINT,
		updated_at TIMESTAMPTZ
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SaveRepo upserts a repo record.
func (s *PostgresStore) SaveRepo(ctx context.Context, repo *RepoRecord) error {
	query := `
		INSERT INTO repos (id, path, hash, registered_at, last_synced_at)
		VALUES (:id, :path, :hash, :registered_at, :last_synced_at)
		ON CONFLICT (id) DO UPDATE SET
			path = EXCLUDED.path,
			hash = EXCLUDED.hash,
			last_synced_at = EXCLUDED.last_synced_at
	`
	_, err := s.db.NamedExecContext(ctx, query, repo)
	if err != nil {
		return fmt.Errorf("save repo: %w", err)
	}
	s.notifyChange(ctx, repo.ID)
	return nil
}

// notifyChange sends a NOTIFY on registryChangeChannel so other daemons
// sharing this registry can invalidate their own cached repo listings
// without polling.
func (s *PostgresStore) notifyChange(ctx context.Context, repoID uint32) {
	_, err := s.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, registryChangeChannel, fmt.Sprint(repoID))
	if err != nil && s.logger != nil {
		s.logger.WithError(err).Warn("registry change notify failed")
	}
}

// GetRepo fetches a repo record by id, or ErrNotFound.
func (s *PostgresStore) GetRepo(ctx context.Context, id uint32) (*RepoRecord, error) {
	var repo RepoRecord
	query := `SELECT * FROM repos WHERE id = $1`
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
func (s *PostgresStore) ListRepos(ctx context.Context) ([]*RepoRecord, error) {
	var repos []*RepoRecord
	query := `SELECT * FROM repos ORDER BY id`
	if err := s.db.SelectContext(ctx, &repos, query); err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	return repos, nil
}

// DeleteRepo removes a repo record and its warm metadata.
func (s *PostgresStore) DeleteRepo(ctx context.Context, id uint32) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM warm_metadata WHERE repo_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM repos WHERE id = $1`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.notifyChange(ctx, id)
	return nil
}

// SaveWarmMetadata upserts the cached symbol/edge counts for a repo.
func (s *PostgresStore) SaveWarmMetadata(ctx context.Context, meta *WarmMetadata) error {
	query := `
		INSERT INTO warm_metadata (repo_id, symbol_count, edge_count, updated_at)
		VALUES (:repo_id, :symbol_count, :edge_count, :updated_at)
		ON CONFLICT (repo_id) DO UPDATE SET
			symbol_count = EXCLUDED.symbol_count,
			edge_count = EXCLUDED.edge_count,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.NamedExecContext(ctx, query, meta)
	if err != nil {
		return fmt.Errorf("save warm metadata: %w", err)
	}
	return nil
}

// GetWarmMetadata fetches cached counts for a repo, or ErrNotFound.
func (s *PostgresStore) GetWarmMetadata(ctx context.Context, repoID uint32) (*WarmMetadata, error) {
	var meta WarmMetadata
	query := `SELECT * FROM warm_metadata WHERE repo_id = $1`
	err := s.db.GetContext(ctx, &meta, query, repoID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get warm metadata: %w", err)
	}
	return &meta, nil
}

// RegistryListener subscribes to registry change notifications so a daemon
// sharing a PostgresStore with others learns about repos registered or
// removed elsewhere without polling. It uses lib/pq directly rather than
// the pgx stdlib driver: pq.Listener owns the LISTEN/NOTIFY session
// lifecycle (reconnect, keepalive ping) that database/sql's pooled
// connections don't expose.
type RegistryListener struct {
	listener *pq.Listener
	logger   *logrus.Logger
}

// NewRegistryListener opens a dedicated LISTEN connection against dsn.
func NewRegistryListener(dsn string, logger *logrus.Logger) (*RegistryListener, error) {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil && logger != nil {
			logger.WithError(err).Warn("registry listener event")
		}
	}
	listener := pq.NewListener(dsn, 10*time.Second, time.Minute, reportProblem)
	if err := listener.Listen(registryChangeChannel); err != nil {
		listener.Close()
		return nil, fmt.Errorf("listen on registry channel: %w", err)
	}
	return &RegistryListener{listener: listener, logger: logger}, nil
}

// Changes returns the channel on which notifications of changed repo ids
// arrive. A nil notification is pq's own keepalive ping and carries no
// repo id.
func (l *RegistryListener) Changes() <-chan *pq.Notification {
	return l.listener.Notify
}

// Close stops listening and releases the dedicated connection.
func (l *RegistryListener) Close() error {
	return l.listener.Close()
}
