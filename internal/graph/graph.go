// Package graph implements the in-memory code graph: symbols, files,
// commits, and bidirectional edge adjacency, backed by a single owning
// arena for all variable-length string/byte attributes.
//
// Reference: the teacher's internal/graph package wrapped a remote Neo4j
// instance; this package replaces that wiring entirely with a self-contained
// embedded structure, since the engine must run single-host with no
// external graph database (spec.md §1, Non-goals).
package graph

import (
	"sync"

	"github.com/rohankatakam/codegraph/internal/entity"
)

// Graph is the in-memory, arena-backed store of symbols, files, commits,
// and their adjacency. Each method holds an internal sync.RWMutex for its
// own duration; callers that need several calls to act as one unit
// serialize through the tenant manager's MRSW locks (internal/tenant).
type Graph struct {
	mu sync.RWMutex

	symbols map[uint64]*entity.Symbol
	files   map[uint32]*entity.File
	commits map[uint32]*entity.Commit

	out map[uint64][]entity.Edge
	in  map[uint64][]entity.Edge

	arena *arena
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		symbols: make(map[uint64]*entity.Symbol),
		files:   make(map[uint32]*entity.File),
		commits: make(map[uint32]*entity.Commit),
		out:     make(map[uint64][]entity.Edge),
		in:      make(map[uint64][]entity.Edge),
		arena:   newArena(),
	}
}

// AddSymbol inserts or overwrites (by ID) a Symbol. Name/Scope bytes are
// copied into the graph's arena so the caller's buffers can be reused or
// released freely.
func (g *Graph) AddSymbol(s entity.Symbol) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s.Name = g.arena.intern(s.Name)
	s.Scope = g.arena.intern(s.Scope)
	cp := s
	g.symbols[s.ID] = &cp
}

// AddFile inserts or overwrites (by ID) a File.
func (g *Graph) AddFile(f entity.File) {
	g.mu.Lock()
	defer g.mu.Unlock()

	f.Path = g.arena.intern(f.Path)
	cp := f
	g.files[f.ID] = &cp
}

// AddCommit inserts or overwrites (by ID) a Commit.
func (g *Graph) AddCommit(c entity.Commit) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c.Author = g.arena.intern(c.Author)
	c.Message = g.arena.intern(c.Message)
	cp := c
	g.commits[c.ID] = &cp
}

// AddEdge appends e to both e.Src's out-adjacency and e.Dst's in-adjacency,
// unconditionally — no uniqueness constraint, no endpoint validation
// (spec.md §3, Graph invariants).
func (g *Graph) AddEdge(e entity.Edge) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.out[e.Src] = append(g.out[e.Src], e)
	g.in[e.Dst] = append(g.in[e.Dst], e)
}

// Symbol returns the Symbol with the given id, or false if unknown.
func (g *Graph) Symbol(id uint64) (entity.Symbol, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s, ok := g.symbols[id]
	if !ok {
		return entity.Symbol{}, false
	}
	return *s, true
}

// File returns the File with the given id, or false if unknown.
func (g *Graph) File(id uint32) (entity.File, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	f, ok := g.files[id]
	if !ok {
		return entity.File{}, false
	}
	return *f, true
}

// Commit returns the Commit with the given id, or false if unknown.
func (g *Graph) Commit(id uint32) (entity.Commit, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	c, ok := g.commits[id]
	if !ok {
		return entity.Commit{}, false
	}
	return *c, true
}

// OutAdjacency returns a borrowed view (do not mutate) of id's out-edges in
// insertion order. Unknown ids yield a nil (empty) slice.
func (g *Graph) OutAdjacency(id uint64) []entity.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.out[id]
}

// InAdjacency returns a borrowed view (do not mutate) of id's in-edges in
// insertion order. Unknown ids yield a nil (empty) slice.
func (g *Graph) InAdjacency(id uint64) []entity.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.in[id]
}

// Symbols returns every symbol in the graph, order unspecified.
func (g *Graph) Symbols() []entity.Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]entity.Symbol, 0, len(g.symbols))
	for _, s := range g.symbols {
		out = append(out, *s)
	}
	return out
}

// Files returns every file in the graph, order unspecified.
func (g *Graph) Files() []entity.File {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]entity.File, 0, len(g.files))
	for _, f := range g.files {
		out = append(out, *f)
	}
	return out
}

// Commits returns every commit in the graph, order unspecified.
func (g *Graph) Commits() []entity.Commit {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]entity.Commit, 0, len(g.commits))
	for _, c := range g.commits {
		out = append(out, *c)
	}
	return out
}

// Edges returns every edge in the graph (the multiset of out-adjacency
// values), order unspecified.
func (g *Graph) Edges() []entity.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]entity.Edge, 0)
	for _, list := range g.out {
		out = append(out, list...)
	}
	return out
}

// SymbolCount returns the number of distinct symbol ids.
func (g *Graph) SymbolCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.symbols)
}

// FileCount returns the number of distinct file ids.
func (g *Graph) FileCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.files)
}

// CommitCount returns the number of distinct commit ids.
func (g *Graph) CommitCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.commits)
}

// EdgeCount returns the summed length of every out-adjacency list.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for _, list := range g.out {
		n += len(list)
	}
	return n
}

// FindFileByPath does an exact-match scan over files for path. Returns
// false if no file has that path. Used by the symbol_at query (C7); the
// core performs no path normalization.
func (g *Graph) FindFileByPath(path string) (entity.File, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, f := range g.files {
		if f.Path == path {
			return *f, true
		}
	}
	return entity.File{}, false
}

// SymbolsInFile returns every symbol whose File field equals fileID.
func (g *Graph) SymbolsInFile(fileID uint32) []entity.Symbol {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []entity.Symbol
	for _, s := range g.symbols {
		if s.File == fileID {
			out = append(out, *s)
		}
	}
	return out
}

// Teardown releases every owned byte in a single step and resets the graph
// to empty. The Graph remains usable afterward.
func (g *Graph) Teardown() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.symbols = make(map[uint64]*entity.Symbol)
	g.files = make(map[uint32]*entity.File)
	g.commits = make(map[uint32]*entity.Commit)
	g.out = make(map[uint64][]entity.Edge)
	g.in = make(map[uint64][]entity.Edge)
	g.arena = newArena()
}
