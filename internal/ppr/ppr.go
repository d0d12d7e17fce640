// Package ppr implements Personalized PageRank via the Andersen-Chung-Lang
// push approximation, plus an incremental variant that re-converges a warm
// result after local edge/file-invalidation notifications instead of
// recomputing from scratch.
//
// Reference: the push loop and per-node eligibility threshold follow the
// teacher's RiskSketch.PPRVector field, which this package promotes from a
// cached, externally-computed scalar into a first-class, locally-run engine.
package ppr

import (
	"sort"

	"github.com/rohankatakam/codegraph/internal/entity"
)

// DefaultAlpha is the teleport probability used when a caller doesn't supply
// one explicitly.
const DefaultAlpha = 0.15

// DefaultEpsilon is the convergence threshold used when a caller doesn't
// supply one explicitly.
const DefaultEpsilon = 1e-4

// AdjacencySource exposes the out-adjacency a push needs. internal/graph.Graph
// satisfies this directly.
type AdjacencySource interface {
	OutAdjacency(id uint64) []entity.Edge
}

// Params bundles the two tunables of the push algorithm.
type Params struct {
	Alpha   float64
	Epsilon float64
}

// DefaultParams returns {DefaultAlpha, DefaultEpsilon}.
func DefaultParams() Params {
	return Params{Alpha: DefaultAlpha, Epsilon: DefaultEpsilon}
}

// Result is a completed (or warm, for the incremental variant) PPR state:
// scores and residuals keyed by node id.
type Result struct {
	Scores    map[uint64]float64
	Residuals map[uint64]float64
	params    Params
}

// Run computes full Personalized PageRank seeded at query, iterating the
// push loop until no node is eligible to push.
func Run(g AdjacencySource, query uint64, params Params) *Result {
	res := &Result{
		Scores:    make(map[uint64]float64),
		Residuals: make(map[uint64]float64),
		params:    params,
	}
	res.Residuals[query] = 1.0
	res.converge(g)
	return res
}

// TopK returns the K highest-scoring (id, score) pairs with score > 0,
// sorted descending by score, optionally excluding a single id (e.g. the
// query node itself). Fewer than K pairs are returned if the positive-score
// set is smaller.
func (r *Result) TopK(k int, exclude *uint64) []Scored {
	out := make([]Scored, 0, len(r.Scores))
	for id, score := range r.Scores {
		if score <= 0 {
			continue
		}
		if exclude != nil && id == *exclude {
			continue
		}
		out = append(out, Scored{ID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if k < len(out) {
		out = out[:k]
	}
	return out
}

// Scored pairs a node id with its PPR score.
type Scored struct {
	ID    uint64
	Score float64
}

// eligible reports whether u's residual exceeds its per-node push threshold:
// ε · max(deg_out(u), 1).
func (r *Result) eligible(g AdjacencySource, u uint64) bool {
	deg := len(g.OutAdjacency(u))
	if deg < 1 {
		deg = 1
	}
	return r.Residuals[u] > r.params.Epsilon*float64(deg)
}

// converge repeats the push pass over a snapshot of currently-eligible nodes
// until a pass pushes nothing.
func (r *Result) converge(g AdjacencySource) {
	for {
		pushed := false
		candidates := r.snapshotEligible(g)
		for _, u := range candidates {
			if r.push(g, u) {
				pushed = true
			}
		}
		if !pushed {
			return
		}
	}
}

func (r *Result) snapshotEligible(g AdjacencySource) []uint64 {
	var out []uint64
	for u := range r.Residuals {
		if r.eligible(g, u) {
			out = append(out, u)
		}
	}
	return out
}

// push performs one Andersen-Chung-Lang push at u: moves α·r[u] into p[u],
// distributes (1-α)·r[u] proportionally to u's weighted out-edges, and
// zeroes r[u]. Returns false, pushing nothing, if u is not eligible when
// called.
func (r *Result) push(g AdjacencySource, u uint64) bool {
	if !r.eligible(g, u) {
		return false
	}

	ru := r.Residuals[u]
	alpha := r.params.Alpha
	r.Scores[u] += alpha * ru

	edges := g.OutAdjacency(u)
	sumW := 0.0
	for _, e := range edges {
		sumW += float64(e.Weight)
	}
	if len(edges) > 0 && sumW > 0 {
		share := (1 - alpha) * ru / sumW
		for _, e := range edges {
			r.Residuals[e.Dst] += share * float64(e.Weight)
		}
	}
	r.Residuals[u] = 0
	return true
}

// Incremental wraps a warm Result with the set of nodes dirtied by
// notifications since the last convergence, so DeltaUpdate re-converges only
// the affected region instead of restarting the push loop from scratch.
type Incremental struct {
	Result *Result
	Dirty  map[uint64]struct{}
}

// NewIncremental seeds an Incremental state from a prior full (or warm)
// Result.
func NewIncremental(prior *Result) *Incremental {
	return &Incremental{Result: prior, Dirty: make(map[uint64]struct{})}
}

// EdgeAdded injects (1-α)·scores[src]·w into r[src] and marks src dirty,
// reflecting that src now has a new outgoing relationship to redistribute
// score across.
func (inc *Incremental) EdgeAdded(src, dst uint64, w float64) {
	alpha := inc.Result.params.Alpha
	inc.Result.Residuals[src] += (1 - alpha) * inc.Result.Scores[src] * w
	inc.Dirty[src] = struct{}{}
	_ = dst
}

// EdgeRemoved injects (1-α)·scores[src] into r[src], deducts a conservative
// half of scores[dst] and converts that deduction into residual at dst, and
// marks both nodes dirty. This is an admitted approximation of the exact
// post-removal PPR, not a precise recomputation.
func (inc *Incremental) EdgeRemoved(src, dst uint64) {
	alpha := inc.Result.params.Alpha
	inc.Result.Residuals[src] += (1 - alpha) * inc.Result.Scores[src]
	inc.Dirty[src] = struct{}{}

	half := inc.Result.Scores[dst] * 0.5
	inc.Result.Scores[dst] -= half
	inc.Result.Residuals[dst] += half
	inc.Dirty[dst] = struct{}{}
}

// FileInvalidated marks each id dirty and, for any id with a positive score,
// injects that score as residual so the next DeltaUpdate redistributes it.
func (inc *Incremental) FileInvalidated(ids []uint64) {
	for _, id := range ids {
		inc.Dirty[id] = struct{}{}
		if s := inc.Result.Scores[id]; s > 0 {
			inc.Result.Residuals[id] += s
		}
	}
}

// DeltaUpdate seeds residual α·score[u] into any dirty node lacking
// residual, then runs the same push loop as full PPR restricted to nodes
// reachable from the dirty set's residual mass, until no eligible node
// remains. The dirty set is cleared on return.
func (inc *Incremental) DeltaUpdate(g AdjacencySource) {
	alpha := inc.Result.params.Alpha
	for u := range inc.Dirty {
		if inc.Result.Residuals[u] == 0 {
			inc.Result.Residuals[u] = alpha * inc.Result.Scores[u]
		}
	}
	inc.Result.converge(g)
	inc.Dirty = make(map[uint64]struct{})
}
