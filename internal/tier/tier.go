// Package tier implements the three-tier residency manager that sits above
// the tenant registry: HOT (graph fully resident), WARM (cached symbol/edge
// counts only), COLD (only the on-disk path known).
package tier

import (
	"context"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rohankatakam/codegraph/internal/codec"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/storage"
)

// Level identifies an entry's current residency tier.
type Level int

const (
	Cold Level = iota
	Warm
	Hot
)

// Defaults per spec.
const (
	DefaultHotCapacity     = 4
	DefaultWarmCapacity    = 16
	DefaultPromoteThreshold = 3
	DefaultDemoteIdleMs     = 600_000
)

// Entry is one repository's tier bookkeeping.
type Entry struct {
	ID           uint32
	Path         string // path to graph.bin, known at every tier
	Level        Level
	AccessCount  int
	LastAccessMs int64

	SymbolCount int
	EdgeCount   int

	graph *graph.Graph // resident only while Level == Hot
}

// Manager tracks tiered entries and enforces capacity/promotion/demotion
// policy. Not safe for concurrent use.
type Manager struct {
	HotCapacity       int
	WarmCapacity      int
	PromoteThreshold  int
	DemoteIdleMs      int64

	entries map[uint32]*Entry

	store  storage.RegistryStore
	logger *logrus.Logger
}

// SetStore wires a durable store (storage.SQLiteStore in the single-daemon
// case) that receives a copy of each entry's symbol/edge counts through
// persistWarmMetadata. The Manager only writes to the store and never reads
// it back, so a restarted Manager starts from its in-memory entries alone;
// the store is a durable mirror, not a replacement.
func (m *Manager) SetStore(store storage.RegistryStore, logger *logrus.Logger) {
	m.store = store
	m.logger = logger
}

func (m *Manager) persistWarmMetadata(e *Entry) {
	if m.store == nil {
		return
	}
	meta := &storage.WarmMetadata{
		RepoID:      e.ID,
		SymbolCount: e.SymbolCount,
		EdgeCount:   e.EdgeCount,
		UpdatedAt:   time.Now(),
	}
	if err := m.store.SaveWarmMetadata(context.Background(), meta); err != nil && m.logger != nil {
		m.logger.WithError(err).Warn("failed to persist warm metadata")
	}
}

// NewManager returns a Manager configured with the given capacities/
// thresholds. Pass the Default* constants for spec defaults.
func NewManager(hotCapacity, warmCapacity, promoteThreshold int, demoteIdleMs int64) *Manager {
	return &Manager{
		HotCapacity:      hotCapacity,
		WarmCapacity:     warmCapacity,
		PromoteThreshold: promoteThreshold,
		DemoteIdleMs:     demoteIdleMs,
		entries:          make(map[uint32]*Entry),
	}
}

// RegisterCold adds or overwrites id's entry as cold, releasing any
// previously owned graph and adjusting tier counts.
func (m *Manager) RegisterCold(id uint32, path string) {
	if prior, ok := m.entries[id]; ok {
		prior.graph = nil
	}
	m.entries[id] = &Entry{ID: id, Path: path, Level: Cold}
}

// Get returns id's entry, or nil if unregistered.
func (m *Manager) Get(id uint32) *Entry {
	return m.entries[id]
}

// RecordAccess increments id's access count, refreshes LastAccessMs, and
// promotes cold -> warm once AccessCount reaches PromoteThreshold, evicting
// the LRU-warm entry (by LastAccessMs) if WarmCapacity is already full.
func (m *Manager) RecordAccess(id uint32, nowMs int64) {
	e, ok := m.entries[id]
	if !ok {
		return
	}
	e.AccessCount++
	e.LastAccessMs = nowMs

	if e.Level == Cold && e.AccessCount >= m.PromoteThreshold {
		if m.warmCount() >= m.WarmCapacity {
			m.evictLRU(Warm)
		}
		e.Level = Warm
	}
}

// PromoteToHot evicts the LRU-hot entry when at capacity, deserializes the
// graph via internal/codec, caches symbol/edge counts, and sets id's tier to
// hot. A failed load leaves the entry at its prior tier and returns an error;
// the entry is never left in a partially-promoted state.
func (m *Manager) PromoteToHot(id uint32) error {
	e, ok := m.entries[id]
	if !ok {
		return nil
	}
	if e.Level == Hot {
		return nil
	}

	if m.hotCount() >= m.HotCapacity {
		m.evictLRU(Hot)
	}

	f, err := os.Open(e.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	g := graph.New()
	if err := codec.Decode(f, g); err != nil {
		return err
	}

	e.graph = g
	e.SymbolCount = g.SymbolCount()
	e.EdgeCount = g.EdgeCount()
	e.Level = Hot
	m.persistWarmMetadata(e)
	return nil
}

// Graph returns the resident graph for a hot entry, or nil if id is not hot.
func (m *Manager) Graph(id uint32) *graph.Graph {
	e, ok := m.entries[id]
	if !ok || e.Level != Hot {
		return nil
	}
	return e.graph
}

// DemoteToWarm persists counts (already cached from the last promotion) and
// releases the resident graph, flipping the entry to warm.
func (m *Manager) DemoteToWarm(id uint32) {
	e, ok := m.entries[id]
	if !ok {
		return
	}
	if e.Level == Hot {
		e.graph = nil
	}
	e.Level = Warm
	m.persistWarmMetadata(e)
}

// DemoteToCold clears cached counts and flips to cold. From hot, this first
// demotes to warm (releasing the graph) then to cold.
func (m *Manager) DemoteToCold(id uint32) {
	e, ok := m.entries[id]
	if !ok {
		return
	}
	if e.Level == Hot {
		m.DemoteToWarm(id)
	}
	e.SymbolCount = 0
	e.EdgeCount = 0
	e.Level = Cold
}

// EvictIdle demotes, one tier toward cold, any entry whose LastAccessMs is
// positive and now-LastAccessMs exceeds idleMs. Called once per entry per
// invocation; repeated calls are needed to walk an entry down two tiers.
func (m *Manager) EvictIdle(idleMs, nowMs int64) {
	for id, e := range m.entries {
		if e.LastAccessMs <= 0 {
			continue
		}
		if nowMs-e.LastAccessMs <= idleMs {
			continue
		}
		switch e.Level {
		case Hot:
			m.DemoteToWarm(id)
		case Warm:
			m.DemoteToCold(id)
		}
	}
}

func (m *Manager) hotCount() int {
	n := 0
	for _, e := range m.entries {
		if e.Level == Hot {
			n++
		}
	}
	return n
}

func (m *Manager) warmCount() int {
	n := 0
	for _, e := range m.entries {
		if e.Level == Warm {
			n++
		}
	}
	return n
}

// evictLRU demotes the least-recently-accessed entry at the given level one
// tier toward cold, making room for a promotion.
func (m *Manager) evictLRU(level Level) {
	var victim *Entry
	for _, e := range m.entries {
		if e.Level != level {
			continue
		}
		if victim == nil || e.LastAccessMs < victim.LastAccessMs {
			victim = e
		}
	}
	if victim == nil {
		return
	}
	switch level {
	case Hot:
		m.DemoteToWarm(victim.ID)
	case Warm:
		m.DemoteToCold(victim.ID)
	}
}
