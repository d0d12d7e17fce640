// Package harness presents the C7 query surface to in-process callers,
// routing each call either to a local per-call graph load or to a
// persistent daemon connection over the IPC frame protocol (internal/ipc).
//
// Mode is modeled as a tagged variant rather than polymorphic dispatch: a
// Harness is either in local mode or daemon mode at any instant, and the
// transition from daemon to local on I/O failure is an explicit state
// change recorded on the struct, not a fallback object wrapped around it.
package harness

import (
	"context"
	"encoding/json"
	"net"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/rohankatakam/codegraph/internal/cache"
	"github.com/rohankatakam/codegraph/internal/codec"
	"github.com/rohankatakam/codegraph/internal/entity"
	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
	"github.com/rohankatakam/codegraph/internal/graph"
	"github.com/rohankatakam/codegraph/internal/ipc"
	"github.com/rohankatakam/codegraph/internal/logging"
	"github.com/rohankatakam/codegraph/internal/query"
)

// Mode identifies which path a Harness currently routes calls through.
type Mode int

const (
	ModeLocal Mode = iota
	ModeDaemon
)

func (m Mode) String() string {
	if m == ModeDaemon {
		return "daemon"
	}
	return "local"
}

// Harness is the query entry point handed to CLI/embedding hosts.
type Harness struct {
	mode       Mode
	graphPath  string
	socketPath string
	repoID     uint32
	conn       net.Conn
	cache      *cache.Manager
}

// New probes socketPath: if it is accessible and a connection succeeds, the
// Harness starts in daemon mode with the connection retained; otherwise it
// starts in local mode against graphPath.
func New(graphPath, socketPath string) *Harness {
	h := &Harness{
		graphPath:  graphPath,
		socketPath: socketPath,
		mode:       ModeLocal,
		repoID:     uint32(xxhash.Sum64String(graphPath)),
	}

	if socketPath == "" {
		return h
	}
	if _, err := os.Stat(socketPath); err != nil {
		return h
	}
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return h
	}
	h.mode = ModeDaemon
	h.conn = conn
	return h
}

// SetCache wires a C10 memoization layer into local dispatch: symbol_at,
// find_callers, find_callees, and find_dependents responses are cached by
// method+params and served without a graph load on a hit.
func (h *Harness) SetCache(mgr *cache.Manager) {
	h.cache = mgr
}

// InvalidateCache drops every response memoized in the local cache (a
// wired shared cache is not flushed; see cache.Manager.InvalidateAll).
// Hosts call this whenever
// the on-disk graph may have changed underneath them — e.g. the file
// watcher (C14) reporting a change to the watched tree.
func (h *Harness) InvalidateCache() {
	if h.cache != nil {
		h.cache.InvalidateAll()
	}
}

// Mode reports the Harness's current routing mode.
func (h *Harness) Mode() Mode {
	return h.mode
}

// Call dispatches one JSON request payload and returns the JSON response
// payload. A daemon-mode call that fails (write error, read error, or
// connection loss) falls back to local mode for this call and every
// subsequent call on this Harness, until the Harness is reconstructed.
func (h *Harness) Call(payload []byte) ([]byte, error) {
	if h.mode == ModeDaemon {
		resp, err := h.callDaemon(payload)
		if err == nil {
			return resp, nil
		}
		logging.Warn("daemon call failed, falling back to local mode", "error", err)
		h.fallbackToLocal()
	}
	return h.callLocal(payload)
}

func (h *Harness) fallbackToLocal() {
	if h.conn != nil {
		h.conn.Close()
		h.conn = nil
	}
	h.mode = ModeLocal
}

func (h *Harness) callDaemon(payload []byte) ([]byte, error) {
	if err := ipc.WriteFrame(h.conn, payload); err != nil {
		return nil, cgerrors.ErrDaemonWriteFailed
	}
	resp, err := ipc.ReadFrame(h.conn)
	if err != nil {
		return nil, cgerrors.ErrDaemonReadFailed
	}
	return resp, nil
}

// Dispatch runs one request payload through the same local dispatch path
// Call uses in local mode, without any daemon routing or fallback. This is
// what cmd/cgraphd calls per accepted connection: the daemon process always
// dispatches locally, loading its graph file per request, and it is exactly
// that local dispatch that remote Harnesses in daemon mode are relaying to
// over the socket.
func (h *Harness) Dispatch(payload []byte) ([]byte, error) {
	return h.callLocal(payload)
}

// callLocal parses the request, loads the graph from disk, dispatches to
// C7, and formats the response as JSON. The graph is loaded fresh on every
// call; the tier manager (internal/tier) is the layer responsible for
// keeping a hot graph resident across calls.
func (h *Harness) callLocal(payload []byte) ([]byte, error) {
	req, err := ipc.ParseRequest(payload)
	if err != nil {
		return errorResponse(err)
	}

	switch req.Method {
	case "ping":
		return successResponse(ipc.PingResponse{Status: "ok", Mode: h.mode.String()})
	case "shutdown":
		resp, err := successResponse(ipc.ShutdownResponse{Status: "shutdown"})
		if err != nil {
			return errorResponse(err)
		}
		// The reply is still returned alongside the error: the caller must
		// write this frame before acting on ErrShutdownRequested, matching
		// "a shutdown request produces a final frame and terminates the
		// daemon loop".
		return resp, cgerrors.ErrShutdownRequested
	case "symbol_at", "find_callers", "find_callees", "find_dependents":
		return h.dispatchGraphMethod(req)
	default:
		return errorResponse(cgerrors.ErrUnknownMethod)
	}
}

// dispatchGraphMethod serves symbol_at/find_callers/find_callees/
// find_dependents from the C10 memoization cache when wired and warm,
// falling back to a fresh graph load and query dispatch on a miss.
func (h *Harness) dispatchGraphMethod(req ipc.Request) ([]byte, error) {
	var cacheKey string
	if h.cache != nil {
		cacheKey = cache.Key(h.repoID, req.Method, req.Params)
		if cached, found := h.cache.Get(context.Background(), cacheKey); found {
			return cached, nil
		}
	}

	resp, err := h.dispatchGraphMethodUncached(req)
	if err == nil && h.cache != nil {
		h.cache.Set(context.Background(), cacheKey, resp)
	}
	return resp, err
}

func (h *Harness) dispatchGraphMethodUncached(req ipc.Request) ([]byte, error) {
	g, err := h.loadGraph()
	if err != nil {
		return errorResponse(err)
	}

	switch req.Method {
	case "symbol_at":
		p, err := ipc.ParseSymbolAtParams(req)
		if err != nil {
			return errorResponse(err)
		}
		located := query.SymbolAt(g, p.File, p.Line)
		out := make([]ipc.SymbolJSON, len(located))
		for i, l := range located {
			out[i] = toSymbolJSON(l.Symbol, l.FilePath)
		}
		return successResponse(ipc.SymbolAtResponse{Symbols: out})

	case "find_callers":
		p, err := ipc.ParseSymbolIDParams(req, 0)
		if err != nil {
			return errorResponse(err)
		}
		callers := query.FindCallers(g, p.SymbolID)
		if p.MaxResults > 0 && len(callers) > p.MaxResults {
			callers = callers[:p.MaxResults]
		}
		return successResponse(relatedResponse(callers))

	case "find_callees":
		p, err := ipc.ParseSymbolIDParams(req, 0)
		if err != nil {
			return errorResponse(err)
		}
		callees := query.FindCallees(g, p.SymbolID)
		if p.MaxResults > 0 && len(callees) > p.MaxResults {
			callees = callees[:p.MaxResults]
		}
		return successResponse(relatedResponse(callees))

	case "find_dependents":
		p, err := ipc.ParseSymbolIDParams(req, ipc.DefaultDependentsMaxResults)
		if err != nil {
			return errorResponse(err)
		}
		deps := query.FindDependents(g, p.SymbolID, p.MaxResults)
		out := make([]ipc.DependentJSON, len(deps))
		for i, d := range deps {
			out[i] = ipc.DependentJSON{SymbolJSON: toSymbolJSON(d.Symbol, d.FilePath), Score: d.Score}
		}
		return successResponse(ipc.DependentsResponse{Dependents: out})
	}

	return errorResponse(cgerrors.ErrUnknownMethod)
}

func relatedResponse(related []query.Related) ipc.RelatedResponse {
	out := make([]ipc.RelatedJSON, len(related))
	for i, r := range related {
		out[i] = ipc.RelatedJSON{
			SymbolJSON: toSymbolJSON(r.Symbol, r.FilePath),
			EdgeKind:   r.Kind.String(),
			Weight:     r.Weight,
		}
	}
	return ipc.RelatedResponse{Results: out}
}

func toSymbolJSON(s entity.Symbol, filePath string) ipc.SymbolJSON {
	return ipc.SymbolJSON{
		ID:       s.ID,
		Name:     s.Name,
		Kind:     s.Kind.String(),
		FilePath: filePath,
		Line:     s.Line,
	}
}

func (h *Harness) loadGraph() (*graph.Graph, error) {
	f, err := os.Open(h.graphPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cgerrors.ErrGraphNotFound
		}
		return nil, cgerrors.Wrap(err, cgerrors.ErrorTypeFormat, cgerrors.SeverityHigh, "graph open failed")
	}
	defer f.Close()

	g := graph.New()
	if err := codec.Decode(f, g); err != nil {
		return nil, err
	}
	return g, nil
}

func successResponse(v any) ([]byte, error) {
	return json.Marshal(v)
}

func errorResponse(err error) ([]byte, error) {
	type errBody struct {
		Error string `json:"error"`
	}
	b, marshalErr := json.Marshal(errBody{Error: err.Error()})
	if marshalErr != nil {
		return nil, marshalErr
	}
	return b, nil
}
