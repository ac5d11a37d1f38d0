// Package api provides the HTTP/JSON API and the debug relay for the engine.
package api

import "github.com/Zekfad/epam-tetris-solver/pkg/engine"

// ============================================================================
// Request Types
// ============================================================================

// MoveRequest is the request body for a placement decision.
type MoveRequest struct {
	Board [][]int `json:"board"`         // Dump, top row first; sized like the engine board
	Piece string  `json:"piece"`         // Kind letter ("I", "T", ...)
	Top   int     `json:"top,omitempty"` // Ranked candidates to return (0 = none, -1 = all)
}

// SimulateRequest is the request body for a self-play batch.
type SimulateRequest struct {
	Games     int    `json:"games,omitempty"`      // Number of games (default 16)
	MaxPieces int    `json:"max_pieces,omitempty"` // Pieces per game (default 2000)
	Seed      uint64 `json:"seed,omitempty"`       // Random seed (0 = random)
	Workers   int    `json:"workers,omitempty"`    // Parallel games
}

// ============================================================================
// Response Types
// ============================================================================

// MoveResponse is the response for a placement decision.
type MoveResponse struct {
	Piece      string              `json:"piece"`
	Move       engine.Move         `json:"move"`
	Score      float64             `json:"score"`
	Found      bool                `json:"found"` // False when every placement ends the game
	Candidates int                 `json:"candidates"`
	Ranked     []engine.ScoredMove `json:"ranked,omitempty"`
}

// BoardResponse is the latest board seen by the relay.
type BoardResponse struct {
	Board   [][]int `json:"board"`
	Rows    int     `json:"rows"`
	Columns int     `json:"columns"`
}

// KindResponse describes one piece kind.
type KindResponse struct {
	Name         string   `json:"name"`
	Orientations []string `json:"orientations"` // Grids of 0 and 1, top row first
}

// CatalogResponse lists the piece kinds in catalog order.
type CatalogResponse struct {
	Kinds []KindResponse `json:"kinds"`
}

// HealthResponse is the response for health check.
type HealthResponse struct {
	Status  string     `json:"status"`
	Version string     `json:"version"`
	Ready   bool       `json:"ready"`
	Clients int        `json:"clients"`        // Connected relay clients
	Pool    *PoolStats `json:"pool,omitempty"` // Worker pool statistics
}

// ErrorResponse is returned on errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Error codes.
const (
	CodeInvalidJSON   = "INVALID_JSON"
	CodeInvalidBoard  = "INVALID_BOARD"
	CodeUnknownPiece  = "UNKNOWN_PIECE"
	CodeServerBusy    = "SERVER_BUSY"
	CodeSimulateError = "SIMULATION_ERROR"
)
