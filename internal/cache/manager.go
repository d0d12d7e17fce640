// Package cache memoizes query-surface results (symbol_at, find_callers,
// find_callees, find_dependents) keyed by method and parameters, so a
// daemon answering the same query repeatedly — the common case for an
// editor re-issuing find_dependents while a developer sits on one symbol —
// doesn't recompute PPR or re-walk adjacency lists each time. The local
// cache is flushed wholesale when the host reports a change to the watched
// tree, since a query result may have traversed the changed region; the
// optional shared cache is not flushed, and its entries expire after
// DefaultTTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// DefaultTTL bounds how long a memoized response is trusted even absent an
// explicit invalidation, guarding against a missed invalidation call.
const DefaultTTL = 2 * time.Minute

// Manager memoizes encoded query responses in memory, with an optional
// Redis-backed shared cache so multiple daemons serving the same
// Postgres-backed registry (storage.PostgresStore) can reuse each other's
// results.
type Manager struct {
	logger *logrus.Logger
	local  *gocache.Cache
	shared *Client
}

// NewManager returns a Manager with an in-memory cache only; call
// SetShared to additionally wire a Redis-backed shared cache.
func NewManager(logger *logrus.Logger) *Manager {
	return &Manager{
		logger: logger,
		local:  gocache.New(DefaultTTL, DefaultTTL*2),
	}
}

// SetShared attaches a Redis-backed shared cache used as a fallback when
// the local cache misses.
func (m *Manager) SetShared(client *Client) {
	m.shared = client
}

// Key derives a stable cache key from a repo id, a query method name, and
// its JSON-encoded parameters.
func Key(repoID uint32, method string, params json.RawMessage) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d:%s:", repoID, method)
	h.Write(params)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a previously memoized response for key, checking the local
// cache first and the shared cache second.
func (m *Manager) Get(ctx context.Context, key string) ([]byte, bool) {
	if cached, found := m.local.Get(key); found {
		return cached.([]byte), true
	}
	if m.shared == nil {
		return nil, false
	}
	var data []byte
	found, err := m.shared.GetBytes(ctx, key, &data)
	if err != nil {
		if m.logger != nil {
			m.logger.WithError(err).Warn("shared cache get failed")
		}
		return nil, false
	}
	if found {
		m.local.Set(key, data, gocache.DefaultExpiration)
	}
	return data, found
}

// Set memoizes response under key in both the local and (if wired) shared
// cache.
func (m *Manager) Set(ctx context.Context, key string, response []byte) {
	m.local.Set(key, response, gocache.DefaultExpiration)
	if m.shared == nil {
		return
	}
	if err := m.shared.SetBytes(ctx, key, response, DefaultTTL); err != nil && m.logger != nil {
		m.logger.WithError(err).Warn("shared cache set failed")
	}
}

// InvalidateAll drops every response memoized in the local cache. The
// shared cache, if wired, is left as it is; its entries expire after
// DefaultTTL. cmd/cgraphd calls this (through Harness.InvalidateCache) when
// the watcher reports a change, since any query result might have traversed
// the changed region.
func (m *Manager) InvalidateAll() {
	m.local.Flush()
}
