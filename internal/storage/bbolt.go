package storage

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"go.etcd.io/bbolt"
)

var (
	repoBucket         = []byte("repos")
	warmMetadataBucket = []byte("warm_metadata")
)

// BoltStore is the primary RegistryStore: a single embedded KV file holding
// the tenant registry and warm-tier metadata, durable across daemon
// restarts without a running database server.
type BoltStore struct {
	db     *bbolt.DB
	logger *logrus.Logger
}

// NewBoltStore opens (creating if necessary) a bbolt database at path and
// ensures both buckets exist.
func NewBoltStore(path string, logger *logrus.Logger) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create registry directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt registry: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(repoBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(warmMetadataBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init registry buckets: %w", err)
	}

	return &BoltStore{db: db, logger: logger}, nil
}

func repoKey(id uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, id)
	return b
}

// SaveRepo upserts a repo record keyed by id.
func (s *BoltStore) SaveRepo(ctx context.Context, repo *RepoRecord) error {
	data, err := json.Marshal(repo)
	if err != nil {
		return fmt.Errorf("marshal repo record: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(repoBucket).Put(repoKey(repo.ID), data)
	})
}

// GetRepo fetches a repo record by id, or ErrNotFound.
func (s *BoltStore) GetRepo(ctx context.Context, id uint32) (*RepoRecord, error) {
	var repo RepoRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(repoBucket).Get(repoKey(id))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &repo)
	})
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// ListRepos returns every persisted repo record, in key (id) order.
func (s *BoltStore) ListRepos(ctx context.Context) ([]*RepoRecord, error) {
	var repos []*RepoRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(repoBucket).ForEach(func(k, v []byte) error {
			var repo RepoRecord
			if err := json.Unmarshal(v, &repo); err != nil {
				return err
			}
			repos = append(repos, &repo)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list repos: %w", err)
	}
	return repos, nil
}

// DeleteRepo removes a repo record and its warm metadata, if any.
func (s *BoltStore) DeleteRepo(ctx context.Context, id uint32) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(repoBucket).Delete(repoKey(id)); err != nil {
			return err
		}
		return tx.Bucket(warmMetadataBucket).Delete(repoKey(id))
	})
}

// SaveWarmMetadata upserts the cached symbol/edge counts for a repo.
func (s *BoltStore) SaveWarmMetadata(ctx context.Context, meta *WarmMetadata) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal warm metadata: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(warmMetadataBucket).Put(repoKey(meta.RepoID), data)
	})
}

// GetWarmMetadata fetches cached counts for a repo, or ErrNotFound.
func (s *BoltStore) GetWarmMetadata(ctx context.Context, repoID uint32) (*WarmMetadata, error) {
	var meta WarmMetadata
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(warmMetadataBucket).Get(repoKey(repoID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &meta)
	})
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
