package graph

import (
	"testing"

	"github.com/rohankatakam/codegraph/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddEdge_AppearsInBothAdjacencyLists(t *testing.T) {
	g := New()
	e := entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls, Weight: 2.5}
	g.AddEdge(e)

	out := g.OutAdjacency(1)
	require.Len(t, out, 1)
	assert.Equal(t, e, out[0])

	in := g.InAdjacency(2)
	require.Len(t, in, 1)
	assert.Equal(t, e, in[0])
}

func TestAddEdge_SelfLoopAndDuplicatesAllowed(t *testing.T) {
	g := New()
	g.AddEdge(entity.Edge{Src: 1, Dst: 1, Kind: entity.EdgeCalls})
	g.AddEdge(entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls})
	g.AddEdge(entity.Edge{Src: 1, Dst: 2, Kind: entity.EdgeCalls})

	assert.Len(t, g.OutAdjacency(1), 3)
	assert.Len(t, g.InAdjacency(2), 2)
	assert.Equal(t, 3, g.EdgeCount())
}

func TestAddSymbol_LastWriterWins(t *testing.T) {
	g := New()
	g.AddSymbol(entity.Symbol{ID: 1, Name: "foo", Kind: entity.KindFunction})
	g.AddSymbol(entity.Symbol{ID: 1, Name: "bar", Kind: entity.KindMethod})

	s, ok := g.Symbol(1)
	require.True(t, ok)
	assert.Equal(t, "bar", s.Name)
	assert.Equal(t, 1, g.SymbolCount())
}

func TestUnknownIDsYieldEmptyAdjacency(t *testing.T) {
	g := New()
	assert.Empty(t, g.OutAdjacency(999))
	assert.Empty(t, g.InAdjacency(999))
	_, ok := g.Symbol(999)
	assert.False(t, ok)
}

func TestEdgeWithoutSymbolEndpointsStillStored(t *testing.T) {
	g := New()
	g.AddEdge(entity.Edge{Src: 100, Dst: 200, Kind: entity.EdgeReferences})
	assert.Len(t, g.OutAdjacency(100), 1)
	_, ok := g.Symbol(100)
	assert.False(t, ok)
}

func TestFindFileByPath(t *testing.T) {
	g := New()
	g.AddFile(entity.File{ID: 1, Path: "src/main.zig", Language: entity.LangZig})

	f, ok := g.FindFileByPath("src/main.zig")
	require.True(t, ok)
	assert.Equal(t, uint32(1), f.ID)

	_, ok = g.FindFileByPath("nope")
	assert.False(t, ok)
}

func TestTeardownResetsGraph(t *testing.T) {
	g := New()
	g.AddSymbol(entity.Symbol{ID: 1, Name: "foo"})
	g.AddEdge(entity.Edge{Src: 1, Dst: 2})
	g.Teardown()

	assert.Equal(t, 0, g.SymbolCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.OutAdjacency(1))
}

func TestSymbolCountsAndEdgeCount(t *testing.T) {
	g := New()
	g.AddSymbol(entity.Symbol{ID: 1})
	g.AddSymbol(entity.Symbol{ID: 2})
	g.AddFile(entity.File{ID: 1})
	g.AddCommit(entity.Commit{ID: 1})
	g.AddEdge(entity.Edge{Src: 1, Dst: 2})

	assert.Equal(t, 2, g.SymbolCount())
	assert.Equal(t, 1, g.FileCount())
	assert.Equal(t, 1, g.CommitCount())
	assert.Equal(t, 1, g.EdgeCount())
}
