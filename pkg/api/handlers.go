package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
	"github.com/Zekfad/epam-tetris-solver/internal/catalog"
	"github.com/Zekfad/epam-tetris-solver/pkg/engine"
)

// Simulation requests are capped so one call cannot hold a slow worker for
// hours.
const (
	maxSimulateGames  = 256
	maxSimulatePieces = 100000
)

// Handlers holds the HTTP handlers and engine reference.
type Handlers struct {
	engine  *engine.Engine
	relay   *Relay
	version string
	pool    *WorkerPool
}

// NewHandlers creates a new Handlers instance without a worker pool. A nil
// relay is replaced by an empty one.
func NewHandlers(e *engine.Engine, relay *Relay, version string) *Handlers {
	return NewHandlersWithPool(e, relay, version, nil)
}

// NewHandlersWithPool creates a new Handlers instance with a worker pool.
func NewHandlersWithPool(e *engine.Engine, relay *Relay, version string, pool *WorkerPool) *Handlers {
	if relay == nil {
		relay = NewRelay()
	}
	return &Handlers{
		engine:  e,
		relay:   relay,
		version: version,
		pool:    pool,
	}
}

// Relay returns the board relay.
func (h *Handlers) Relay() *Relay { return h.relay }

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("response-write-failed")
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, msg string, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: msg,
		Code:  code,
	})
}

// Health handles GET /api/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: h.version,
		Ready:   h.engine != nil,
		Clients: h.relay.Clients(),
	}

	if h.pool != nil {
		stats := h.pool.Stats()
		resp.Pool = &stats
	}

	writeJSON(w, http.StatusOK, resp)
}

// Board handles GET /api/board. Before anything is published it returns an
// empty board.
func (h *Handlers) Board(w http.ResponseWriter, r *http.Request) {
	dump := h.relay.Latest()
	if dump == nil {
		dump = bitboard.MustNew(h.engine.Rows(), h.engine.Columns()).Dump()
	}
	resp := BoardResponse{Board: dump, Rows: len(dump)}
	if len(dump) > 0 {
		resp.Columns = len(dump[0])
	}
	writeJSON(w, http.StatusOK, resp)
}

// Move handles POST /api/move. The decision is stateless: the posted board
// is searched and the engine's own board is not touched.
func (h *Handlers) Move(w http.ResponseWriter, r *http.Request) {
	if h.pool != nil {
		if err := h.pool.AcquireFast(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", CodeServerBusy)
			return
		}
		defer h.pool.ReleaseFast()
	}

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidJSON)
		return
	}

	kind := h.engine.Catalog().Index(req.Piece)
	if kind < 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown piece %q", req.Piece), CodeUnknownPiece)
		return
	}

	b := bitboard.MustNew(h.engine.Rows(), h.engine.Columns())
	if err := b.Load(req.Board); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidBoard)
		return
	}

	d, err := h.engine.Decide(b, kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), CodeInvalidBoard)
		return
	}

	k := h.engine.Catalog().Kind(kind)
	resp := MoveResponse{
		Piece:      k.Name,
		Move:       d.Move,
		Score:      d.Score,
		Found:      d.Found,
		Candidates: d.Candidates,
	}
	if req.Top != 0 {
		resp.Ranked = engine.GenerateMoves(b, k).Top(req.Top)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Simulate handles POST /api/simulate
func (h *Handlers) Simulate(w http.ResponseWriter, r *http.Request) {
	// Self-play is CPU-bound.
	if h.pool != nil {
		if err := h.pool.AcquireSlow(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "server busy", CodeServerBusy)
			return
		}
		defer h.pool.ReleaseSlow()
	}

	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON", CodeInvalidJSON)
		return
	}

	opts := engine.SimulationOptions{
		Games:     min(req.Games, maxSimulateGames),
		MaxPieces: min(req.MaxPieces, maxSimulatePieces),
		Seed:      req.Seed,
		Workers:   req.Workers,
	}
	result, err := h.engine.Simulate(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), CodeSimulateError)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Catalog handles GET /api/catalog
func (h *Handlers) Catalog(w http.ResponseWriter, r *http.Request) {
	kinds := lo.Map(h.engine.Catalog().Kinds(), func(k catalog.Kind, _ int) KindResponse {
		return KindResponse{
			Name: k.Name,
			Orientations: lo.Map(k.Orientations, func(o bitboard.Orientation, _ int) string {
				return o.String()
			}),
		}
	})
	writeJSON(w, http.StatusOK, CatalogResponse{Kinds: kinds})
}
