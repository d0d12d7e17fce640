package monorepo_test

import (
	"testing"

	"github.com/rohankatakam/codegraph/internal/monorepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPackageByPath_LongestPrefixWins(t *testing.T) {
	m := monorepo.NewManager()
	m.RegisterPackage(1, "src")
	m.RegisterPackage(1, "src/api")

	pkg, ok := m.FindPackageByPath("src/api/handler.ts")
	require.True(t, ok)
	assert.Equal(t, "src/api", pkg.RootPath)
}

func TestFindPackageByPath_RequiresDirectoryBoundary(t *testing.T) {
	m := monorepo.NewManager()
	m.RegisterPackage(1, "src")

	_, ok := m.FindPackageByPath("srcfoo/bar.ts")
	assert.False(t, ok)
}

func TestFindPackageByPath_ExactMatch(t *testing.T) {
	m := monorepo.NewManager()
	m.RegisterPackage(1, "src/api")

	pkg, ok := m.FindPackageByPath("src/api")
	require.True(t, ok)
	assert.Equal(t, uint32(1), pkg.ID)
}

func TestFindPackageByPath_EmptyRootNeverMatches(t *testing.T) {
	m := monorepo.NewManager()
	m.RegisterPackage(1, "")

	_, ok := m.FindPackageByPath("anything")
	assert.False(t, ok)
}

func TestFindCrossDependents_ZeroDepthIsEmpty(t *testing.T) {
	m := monorepo.NewManager()
	m.AddCrossEdge(monorepo.CrossEdge{SrcPkg: 1, SrcSym: 1, DstPkg: 2, DstSym: 2, Kind: monorepo.CrossEdgeCalls})
	assert.Empty(t, m.FindCrossDependents(2, 2, 0))
}

func TestFindCrossDependents_BFSRespectsMaxDepth(t *testing.T) {
	m := monorepo.NewManager()
	// chain: 1 -> 2 -> 3 -> 4 (calls), querying dependents of 4
	m.AddCrossEdge(monorepo.CrossEdge{SrcPkg: 1, SrcSym: 1, DstPkg: 1, DstSym: 2, Kind: monorepo.CrossEdgeCalls})
	m.AddCrossEdge(monorepo.CrossEdge{SrcPkg: 1, SrcSym: 2, DstPkg: 1, DstSym: 3, Kind: monorepo.CrossEdgeCalls})
	m.AddCrossEdge(monorepo.CrossEdge{SrcPkg: 1, SrcSym: 3, DstPkg: 1, DstSym: 4, Kind: monorepo.CrossEdgeCalls})

	got := m.FindCrossDependents(1, 4, 2)
	require.Len(t, got, 2)
	for _, p := range got {
		assert.GreaterOrEqual(t, p.Depth, 1)
		assert.LessOrEqual(t, p.Depth, 2)
	}
}

func TestFindCrossDependents_CycleTerminates(t *testing.T) {
	m := monorepo.NewManager()
	m.AddCrossEdge(monorepo.CrossEdge{SrcPkg: 1, SrcSym: 1, DstPkg: 1, DstSym: 2, Kind: monorepo.CrossEdgeCalls})
	m.AddCrossEdge(monorepo.CrossEdge{SrcPkg: 1, SrcSym: 2, DstPkg: 1, DstSym: 1, Kind: monorepo.CrossEdgeCalls})

	got := m.FindCrossDependents(1, 1, 10)
	assert.Len(t, got, 1) // only node 2 is a predecessor; the cycle doesn't loop forever
}

func TestOrphanedCrossEdgesAreRetained(t *testing.T) {
	m := monorepo.NewManager()
	pkg := m.RegisterPackage(1, "src")
	m.AddCrossEdge(monorepo.CrossEdge{SrcPkg: pkg.ID, SrcSym: 1, DstPkg: 2, DstSym: 2, Kind: monorepo.CrossEdgeCalls})

	m.UnregisterPackage(pkg.ID)

	got := m.FindCrossDependents(2, 2, 1)
	require.Len(t, got, 1)
	assert.Equal(t, pkg.ID, got[0].Pkg)
}
