// Package query implements the four read operations exposed over the graph:
// symbol_at, find_callers, find_callees, and find_dependents. Each result
// carries the originating file path so callers don't need a second lookup.
package query

import (
	"github.com/rohankatakam/codegraph/internal/entity"
	"github.com/rohankatakam/codegraph/internal/ppr"
)

// Source is the graph read surface the query package needs.
type Source interface {
	FindFileByPath(path string) (entity.File, bool)
	SymbolsInFile(fileID uint32) []entity.Symbol
	Symbol(id uint64) (entity.Symbol, bool)
	File(id uint32) (entity.File, bool)
	InAdjacency(id uint64) []entity.Edge
	OutAdjacency(id uint64) []entity.Edge
	ppr.AdjacencySource
}

// Located is a symbol paired with the file path it was resolved from.
type Located struct {
	Symbol   entity.Symbol
	FilePath string
}

// SymbolAt resolves file_id by exact path equality, then:
//   - if any symbol in that file has Line == line, returns all such symbols;
//   - otherwise returns the single symbol with the greatest Line <= line;
//   - otherwise returns empty.
//
// An unknown path yields an empty result.
func SymbolAt(g Source, path string, line uint32) []Located {
	f, ok := g.FindFileByPath(path)
	if !ok {
		return nil
	}

	symbols := g.SymbolsInFile(f.ID)

	var exact []entity.Symbol
	for _, s := range symbols {
		if s.Line == line {
			exact = append(exact, s)
		}
	}
	if len(exact) > 0 {
		return locateAll(exact, f.Path)
	}

	var best *entity.Symbol
	for i, s := range symbols {
		if s.Line <= line && (best == nil || s.Line > best.Line) {
			best = &symbols[i]
		}
	}
	if best == nil {
		return nil
	}
	return []Located{{Symbol: *best, FilePath: f.Path}}
}

func locateAll(symbols []entity.Symbol, path string) []Located {
	out := make([]Located, len(symbols))
	for i, s := range symbols {
		out[i] = Located{Symbol: s, FilePath: path}
	}
	return out
}

// Related is one edge-adjacent symbol returned by find_callers/find_callees.
type Related struct {
	Symbol   entity.Symbol
	FilePath string
	Kind     entity.EdgeKind
	Weight   float32
}

// FindCallers iterates id's in-adjacency; each edge whose source resolves to
// a known symbol yields a Related. Edges whose source has no Symbol entry
// are silently skipped.
func FindCallers(g Source, id uint64) []Related {
	return relatedFromEdges(g, g.InAdjacency(id), func(e entity.Edge) uint64 { return e.Src })
}

// FindCallees is the symmetric operation over id's out-adjacency.
func FindCallees(g Source, id uint64) []Related {
	return relatedFromEdges(g, g.OutAdjacency(id), func(e entity.Edge) uint64 { return e.Dst })
}

func relatedFromEdges(g Source, edges []entity.Edge, endpoint func(entity.Edge) uint64) []Related {
	var out []Related
	for _, e := range edges {
		s, ok := g.Symbol(endpoint(e))
		if !ok {
			continue
		}
		path := ""
		if f, ok := g.File(s.File); ok {
			path = f.Path
		}
		out = append(out, Related{Symbol: s, FilePath: path, Kind: e.Kind, Weight: e.Weight})
	}
	return out
}

// Dependent is one result entry from find_dependents.
type Dependent struct {
	Symbol   entity.Symbol
	FilePath string
	Score    float64
}

// FindDependents runs full push-PPR seeded at id, then returns the top
// maxResults scored nodes (excluding id itself) that resolve to a known
// symbol. maxResults == 0 yields an empty result.
func FindDependents(g Source, id uint64, maxResults int) []Dependent {
	if maxResults == 0 {
		return nil
	}

	res := ppr.Run(g, id, ppr.DefaultParams())
	top := res.TopK(maxResults, &id)

	out := make([]Dependent, 0, len(top))
	for _, sc := range top {
		s, ok := g.Symbol(sc.ID)
		if !ok {
			continue
		}
		path := ""
		if f, ok := g.File(s.File); ok {
			path = f.Path
		}
		out = append(out, Dependent{Symbol: s, FilePath: path, Score: sc.Score})
	}
	return out
}
