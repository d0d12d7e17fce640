// Package monorepo layers cross-repository package boundaries and
// cross-repo edges atop the per-repository graphs managed by
// internal/tenant and internal/tier.
package monorepo

import "strings"

// Package is one registered sub-package root within a monorepo.
type Package struct {
	ID       uint32
	RepoID   uint32
	RootPath string
}

// CrossEdgeKind identifies the relationship a CrossEdge represents.
type CrossEdgeKind uint8

const (
	CrossEdgeCalls CrossEdgeKind = iota
	CrossEdgeImports
)

func (k CrossEdgeKind) String() string {
	if k == CrossEdgeImports {
		return "imports"
	}
	return "calls"
}

// CrossEdge is a directed edge between a symbol in one package and a symbol
// in another, possibly across repositories.
type CrossEdge struct {
	SrcPkg uint32
	SrcSym uint64
	DstPkg uint32
	DstSym uint64
	Kind   CrossEdgeKind
}

// Manager tracks registered packages and the cross-repo edges between their
// symbols. Cross-repo edges are retained even when a referenced package is
// later unregistered; orphaned edges are left for consumers to filter.
type Manager struct {
	packages map[uint32]*Package
	edges    []CrossEdge

	// reverse maps a (pkg,sym) composite key to the indices of edges whose
	// Dst endpoint matches it, for BFS over the reverse graph.
	reverse map[uint64][]int
	nextID  uint32
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		packages: make(map[uint32]*Package),
		reverse:  make(map[uint64][]int),
	}
}

// RegisterPackage adds a package rooted at rootPath within repoID, returning
// its newly assigned id.
func (m *Manager) RegisterPackage(repoID uint32, rootPath string) *Package {
	m.nextID++
	pkg := &Package{ID: m.nextID, RepoID: repoID, RootPath: rootPath}
	m.packages[pkg.ID] = pkg
	return pkg
}

// UnregisterPackage removes a package record. Cross-repo edges referencing
// it are left in place as orphans.
func (m *Manager) UnregisterPackage(id uint32) {
	delete(m.packages, id)
}

// FindPackageByPath selects the registered package whose RootPath is a
// prefix of path ending at a directory boundary — RootPath.len == path.len,
// or path[len(RootPath)] == '/' — choosing the longest such root. An empty
// RootPath is excluded outright so it can never act as a universal
// catch-all.
func (m *Manager) FindPackageByPath(path string) (*Package, bool) {
	var best *Package
	for _, pkg := range m.packages {
		if pkg.RootPath == "" {
			continue
		}
		if !strings.HasPrefix(path, pkg.RootPath) {
			continue
		}
		if len(pkg.RootPath) != len(path) && path[len(pkg.RootPath)] != '/' {
			continue
		}
		if best == nil || len(pkg.RootPath) > len(best.RootPath) {
			best = pkg
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// AddCrossEdge appends a cross-repo edge and indexes it for reverse BFS.
func (m *Manager) AddCrossEdge(e CrossEdge) {
	idx := len(m.edges)
	m.edges = append(m.edges, e)
	key := compositeKey(e.DstPkg, e.DstSym)
	m.reverse[key] = append(m.reverse[key], idx)
}

// compositeKey packs a (pkg:32, sym:64) pair into a single key usable in a
// visited set. The low 32 bits of sym and all of pkg are not enough to
// distinguish every (pkg,sym) pair alone, so the two are combined via a
// simple mixing rather than truncation; collisions are astronomically
// unlikely for realistic sym id ranges and are not load-bearing for
// correctness beyond the visited-set dedup BFS performs.
func compositeKey(pkg uint32, sym uint64) uint64 {
	return sym*1000003 + uint64(pkg)
}

// Predecessor is one BFS discovery emitted by FindCrossDependents.
type Predecessor struct {
	Pkg   uint32
	Sym   uint64
	Kind  CrossEdgeKind
	Depth int
}

// FindCrossDependents performs BFS over the reverse of cross-repo edges
// starting from (srcPkg, srcSym), emitting each newly discovered predecessor
// with its edge kind and BFS depth. maxDepth == 0 yields empty. The visited
// set of composite keys guarantees termination even in the presence of
// cycles.
func (m *Manager) FindCrossDependents(srcPkg uint32, srcSym uint64, maxDepth int) []Predecessor {
	if maxDepth <= 0 {
		return nil
	}

	visited := map[uint64]struct{}{compositeKey(srcPkg, srcSym): {}}
	type queued struct {
		pkg   uint32
		sym   uint64
		depth int
	}
	queue := []queued{{pkg: srcPkg, sym: srcSym, depth: 0}}

	var out []Predecessor
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}

		key := compositeKey(cur.pkg, cur.sym)
		for _, idx := range m.reverse[key] {
			e := m.edges[idx]
			predKey := compositeKey(e.SrcPkg, e.SrcSym)
			if _, seen := visited[predKey]; seen {
				continue
			}
			visited[predKey] = struct{}{}

			depth := cur.depth + 1
			out = append(out, Predecessor{Pkg: e.SrcPkg, Sym: e.SrcSym, Kind: e.Kind, Depth: depth})
			queue = append(queue, queued{pkg: e.SrcPkg, sym: e.SrcSym, depth: depth})
		}
	}
	return out
}
