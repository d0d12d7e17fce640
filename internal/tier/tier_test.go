package tier_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rohankatakam/codegraph/internal/codec"
	"github.com/rohankatakam/codegraph/internal/entity"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/tier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixtureGraph(t *testing.T, path string) {
	t.Helper()
	g := graph.New()
	g.AddSymbol(entity.Symbol{ID: 1, Name: "main"})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, codec.Encode(f, g))
}

func TestTierPromotionScenarioS6(t *testing.T) {
	m := tier.NewManager(tier.DefaultHotCapacity, tier.DefaultWarmCapacity, 3, tier.DefaultDemoteIdleMs)
	m.RegisterCold(1, "unused.bin")

	m.RecordAccess(1, 1000)
	assert.Equal(t, tier.Cold, m.Get(1).Level)

	m.RecordAccess(1, 2000)
	assert.Equal(t, tier.Cold, m.Get(1).Level)

	m.RecordAccess(1, 3000)
	assert.Equal(t, tier.Warm, m.Get(1).Level)

	m.EvictIdle(1000, 4001)
	assert.Equal(t, tier.Cold, m.Get(1).Level)
}

func TestPromoteToHotLoadsGraphAndCachesCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.bin")
	writeFixtureGraph(t, path)

	m := tier.NewManager(tier.DefaultHotCapacity, tier.DefaultWarmCapacity, tier.DefaultPromoteThreshold, tier.DefaultDemoteIdleMs)
	m.RegisterCold(1, path)

	require.NoError(t, m.PromoteToHot(1))
	e := m.Get(1)
	assert.Equal(t, tier.Hot, e.Level)
	assert.Equal(t, 1, e.SymbolCount)
	assert.NotNil(t, m.Graph(1))
}

func TestPromoteToHotFailureLeavesEntryAtPriorTier(t *testing.T) {
	m := tier.NewManager(tier.DefaultHotCapacity, tier.DefaultWarmCapacity, tier.DefaultPromoteThreshold, tier.DefaultDemoteIdleMs)
	m.RegisterCold(1, "does-not-exist.bin")

	err := m.PromoteToHot(1)
	assert.Error(t, err)
	assert.Equal(t, tier.Cold, m.Get(1).Level)
}

func TestHotCapacityEvictsLRUHot(t *testing.T) {
	dir := t.TempDir()
	m := tier.NewManager(1, tier.DefaultWarmCapacity, tier.DefaultPromoteThreshold, tier.DefaultDemoteIdleMs)

	for i := uint32(1); i <= 2; i++ {
		path := filepath.Join(dir, "g.bin")
		writeFixtureGraph(t, path)
		m.RegisterCold(i, path)
		m.RecordAccess(i, int64(i)*1000)
		require.NoError(t, m.PromoteToHot(i))
	}

	assert.Equal(t, tier.Warm, m.Get(1).Level)
	assert.Equal(t, tier.Hot, m.Get(2).Level)
}

func TestRegisterColdOverwritesPriorRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.bin")
	writeFixtureGraph(t, path)

	m := tier.NewManager(tier.DefaultHotCapacity, tier.DefaultWarmCapacity, tier.DefaultPromoteThreshold, tier.DefaultDemoteIdleMs)
	m.RegisterCold(1, path)
	require.NoError(t, m.PromoteToHot(1))
	require.NotNil(t, m.Graph(1))

	m.RegisterCold(1, path)
	assert.Equal(t, tier.Cold, m.Get(1).Level)
	assert.Nil(t, m.Graph(1))
}
