package ipc

import (
	"encoding/json"

	"github.com/google/uuid"

	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
)

// Request is the JSON envelope every method call arrives in. ID correlates
// a request with its daemon-side log lines; a client that omits it gets one
// stamped on its behalf by NewRequest.
type Request struct {
	ID     string          `json:"id,omitempty"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewRequest builds a Request with a fresh correlation ID.
func NewRequest(method string, params json.RawMessage) Request {
	return Request{ID: uuid.NewString(), Method: method, Params: params}
}

// SymbolAtParams is the params object for the symbol_at method.
type SymbolAtParams struct {
	File string `json:"file"`
	Line uint32 `json:"line"`
}

// SymbolIDParams is the params object shared by find_callers, find_callees,
// and find_dependents.
type SymbolIDParams struct {
	SymbolID   uint64 `json:"symbol_id"`
	MaxResults int    `json:"max_results,omitempty"`
}

// DefaultDependentsMaxResults is applied to find_dependents when the caller
// omits max_results.
const DefaultDependentsMaxResults = 10

// SymbolJSON is the wire representation of a symbol_at match.
type SymbolJSON struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	FilePath string `json:"file_path"`
	Line     uint32 `json:"line"`
}

// RelatedJSON is the wire representation of a find_callers/find_callees
// result: the related symbol plus the edge that connects it.
type RelatedJSON struct {
	SymbolJSON
	EdgeKind string  `json:"edge_kind"`
	Weight   float32 `json:"weight"`
}

// DependentJSON is the wire representation of a find_dependents result: the
// related symbol plus its PPR score.
type DependentJSON struct {
	SymbolJSON
	Score float64 `json:"score"`
}

// SymbolAtResponse is the successful response body for symbol_at.
type SymbolAtResponse struct {
	Symbols []SymbolJSON `json:"symbols"`
}

// RelatedResponse is the successful response body for find_callers/find_callees.
type RelatedResponse struct {
	Results []RelatedJSON `json:"results"`
}

// DependentsResponse is the successful response body for find_dependents.
type DependentsResponse struct {
	Dependents []DependentJSON `json:"dependents"`
}

// PingResponse is the successful response body for ping.
type PingResponse struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// ShutdownResponse is the final frame sent before the daemon loop exits.
type ShutdownResponse struct {
	Status string `json:"status"`
}

// ParseRequest decodes a raw frame payload into a Request, rejecting
// malformed JSON and an empty method name.
func ParseRequest(payload []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return req, cgerrors.ErrInvalidRequest
	}
	if req.Method == "" {
		return req, cgerrors.ErrInvalidRequest
	}
	return req, nil
}

// ParseSymbolAtParams decodes req.Params as SymbolAtParams, requiring a
// non-empty file and rejecting a missing params object.
func ParseSymbolAtParams(req Request) (SymbolAtParams, error) {
	var p SymbolAtParams
	if len(req.Params) == 0 {
		return p, cgerrors.ErrMissingParams
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return p, cgerrors.ErrInvalidRequest
	}
	if p.File == "" {
		return p, cgerrors.ErrMissingParams
	}
	return p, nil
}

// ParseSymbolIDParams decodes req.Params as SymbolIDParams. defaultMax is
// used when MaxResults is omitted (zero) — callers pass
// DefaultDependentsMaxResults for find_dependents and 0 (no default) for the
// adjacency-only methods.
func ParseSymbolIDParams(req Request, defaultMax int) (SymbolIDParams, error) {
	var p SymbolIDParams
	if len(req.Params) == 0 {
		return p, cgerrors.ErrMissingParams
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return p, cgerrors.ErrInvalidRequest
	}
	if p.MaxResults == 0 {
		p.MaxResults = defaultMax
	}
	return p, nil
}
