// Package engine provides the public API for the move-selection engine.
package engine

import "github.com/Zekfad/epam-tetris-solver/internal/bitboard"

// Default board size, matching the game server field.
const (
	DefaultRows    = 18
	DefaultColumns = 18
)

// Move is a placement: an orientation index into the piece kind and the
// column of the orientation's leftmost cell.
type Move struct {
	Orientation int `json:"orientation"`
	Column      int `json:"column"`
}

// Decision is the result of a placement search.
type Decision struct {
	Move  Move    `json:"move"`
	Score float64 `json:"score"`
	// Found is false when every candidate ends the game.
	Found bool `json:"found"`
	// Candidates is the number of placements tried.
	Candidates int `json:"candidates"`
}

// PlayResult reports a move played on the live board.
type PlayResult struct {
	Move          Move             `json:"move"`
	OrientationID int              `json:"orientation_id"`
	PieceID       int              `json:"piece_id"`
	Piece         string           `json:"piece"`
	Score         float64          `json:"score"`
	GameOver      bool             `json:"game_over"`
	Outcome       bitboard.Outcome `json:"outcome"`
}
