package ppr_test

import (
	"testing"

	"github.com/rohankatakam/codegraph/internal/entity"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/ppr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_QueryNodeAlwaysScoresAtLeastAlpha(t *testing.T) {
	g := graph.New()
	g.AddEdge(entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls, Weight: 1.0})

	res := ppr.Run(g, 1, ppr.DefaultParams())
	assert.GreaterOrEqual(t, res.Scores[1], ppr.DefaultAlpha-1e-9)
}

func TestRun_DisconnectedNodeNeverScores(t *testing.T) {
	g := graph.New()
	g.AddEdge(entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls, Weight: 1.0})

	res := ppr.Run(g, 1, ppr.DefaultParams())
	assert.Equal(t, 0.0, res.Scores[999])
}

func TestRun_ScorePropagatesToNeighbor(t *testing.T) {
	g := graph.New()
	g.AddEdge(entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls, Weight: 1.0})

	res := ppr.Run(g, 1, ppr.DefaultParams())
	assert.Greater(t, res.Scores[2], 0.0)
}

func TestRun_CycleQueryRetainsHighestScore(t *testing.T) {
	g := graph.New()
	g.AddEdge(entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls, Weight: 1.0})
	g.AddEdge(entity.Edge{Src: 2, Dst: 1, Kind: entity.EdgeCalls, Weight: 1.0})

	res := ppr.Run(g, 1, ppr.DefaultParams())
	assert.Greater(t, res.Scores[1], res.Scores[2])
}

func TestTopK_ExcludesQueryAndRespectsLimit(t *testing.T) {
	g := graph.New()
	g.AddEdge(entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls, Weight: 1.0})
	g.AddEdge(entity.Edge{Src: 1, Dst: 3, Kind: entity.EdgeCalls, Weight: 1.0})
	g.AddEdge(entity.Edge{Src: 1, Dst: 4, Kind: entity.EdgeCalls, Weight: 1.0})

	res := ppr.Run(g, 1, ppr.DefaultParams())
	query := uint64(1)
	top := res.TopK(2, &query)

	require.Len(t, top, 2)
	for _, s := range top {
		assert.NotEqual(t, query, s.ID)
	}
	assert.GreaterOrEqual(t, top[0].Score, top[1].Score)
}

func TestIncremental_EdgeAddedMarksDirtyAndInjectsResidual(t *testing.T) {
	g := graph.New()
	g.AddEdge(entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls, Weight: 1.0})

	res := ppr.Run(g, 1, ppr.DefaultParams())
	inc := ppr.NewIncremental(res)

	g.AddEdge(entity.Edge{Src: 1, Dst: 3, Kind: entity.EdgeCalls, Weight: 1.0})
	inc.EdgeAdded(1, 3, 1.0)

	_, dirty := inc.Dirty[1]
	assert.True(t, dirty)

	inc.DeltaUpdate(g)
	assert.Greater(t, inc.Result.Scores[3], 0.0)
}

func TestIncremental_FileInvalidatedInjectsScoreAsResidual(t *testing.T) {
	g := graph.New()
	g.AddEdge(entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls, Weight: 1.0})

	res := ppr.Run(g, 1, ppr.DefaultParams())
	inc := ppr.NewIncremental(res)

	inc.FileInvalidated([]uint64{1})
	_, dirty := inc.Dirty[1]
	assert.True(t, dirty)

	inc.DeltaUpdate(g)
	assert.Empty(t, inc.Dirty)
}
