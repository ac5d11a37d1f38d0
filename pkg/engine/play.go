package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
	"github.com/Zekfad/epam-tetris-solver/internal/catalog"
)

// Decide searches the best placement of the kind at index kind on b without
// touching the engine's own board. Results are served from the decision
// cache when one is configured. Decide is safe for concurrent use.
func (e *Engine) Decide(b *bitboard.Board, kind int) (Decision, error) {
	if kind < 0 || kind >= e.catalog.Len() {
		return Decision{}, fmt.Errorf("%w: index %d", catalog.ErrUnknownKind, kind)
	}
	if b.Height() != e.rows || b.Columns() != e.columns {
		return Decision{}, fmt.Errorf("%w: board is %dx%d, engine plays %dx%d",
			bitboard.ErrBadDimensions, b.Height(), b.Columns(), e.rows, e.columns)
	}

	if e.cache == nil {
		return Search(b, e.catalog.Kind(kind)), nil
	}
	rows := b.Rows()
	var d Decision
	slot := e.cache.Lookup(kind, rows, &d)
	if slot == CacheHit {
		return d, nil
	}
	d = Search(b, e.catalog.Kind(kind))
	e.cache.Add(kind, rows, d, slot)
	return d, nil
}

// DecideNamed is Decide with the kind given by its letter.
func (e *Engine) DecideNamed(b *bitboard.Board, name string) (Decision, error) {
	i := e.catalog.Index(name)
	if i < 0 {
		return Decision{}, fmt.Errorf("%w: %q", catalog.ErrUnknownKind, name)
	}
	return e.Decide(b, i)
}

// Play picks the best placement for the kind at index kind, applies it to
// the live board and clears completed rows. When no placement survives the
// result reports GameOver and the board is left as it was.
//
// Play mutates the engine; callers must not run it concurrently.
func (e *Engine) Play(kind int) (PlayResult, error) {
	d, err := e.Decide(e.board, kind)
	if err != nil {
		return PlayResult{}, err
	}
	k := e.catalog.Kind(kind)
	res := PlayResult{
		PieceID: kind,
		Piece:   k.Name,
	}
	if !d.Found {
		res.GameOver = true
		res.Outcome = bitboard.Outcome{GameOver: true}
		log.Debug().Str("piece", k.Name).Int("candidates", d.Candidates).Msg("no-surviving-placement")
		return res, nil
	}

	out, err := e.board.Drop(k.Orientations[d.Move.Orientation], d.Move.Column)
	if err != nil {
		return PlayResult{}, fmt.Errorf("failed to apply move: %w", err)
	}
	res.Move = d.Move
	res.OrientationID = d.Move.Orientation
	res.Score = d.Score
	res.Outcome = out
	res.GameOver = out.GameOver
	if !out.GameOver {
		e.rowsCompleted += out.RowsCleared
		e.pieces++
	}
	log.Debug().
		Str("piece", k.Name).
		Int("orientation", d.Move.Orientation).
		Int("column", d.Move.Column).
		Float64("score", d.Score).
		Int("landing", out.LandingRow).
		Int("cleared", out.RowsCleared).
		Msg("played")
	return res, nil
}

// PlayNamed is Play with the kind given by its letter.
func (e *Engine) PlayNamed(name string) (PlayResult, error) {
	i := e.catalog.Index(name)
	if i < 0 {
		return PlayResult{}, fmt.Errorf("%w: %q", catalog.ErrUnknownKind, name)
	}
	return e.Play(i)
}

// Board returns a copy of the live board.
func (e *Engine) Board() *bitboard.Board { return e.board.Clone() }

// Dump exports the live board, top row first.
func (e *Engine) Dump() [][]int { return e.board.Dump() }

// Load replaces the live board with a dump. On error the board is unchanged.
func (e *Engine) Load(dump [][]int) error { return e.board.Load(dump) }

// SetBoard copies b into the live board.
func (e *Engine) SetBoard(b *bitboard.Board) error {
	if b.Height() != e.rows || b.Columns() != e.columns {
		return fmt.Errorf("%w: board is %dx%d, engine plays %dx%d",
			bitboard.ErrBadDimensions, b.Height(), b.Columns(), e.rows, e.columns)
	}
	e.board.CopyFrom(b)
	return nil
}

// Reset empties the board and the counters.
func (e *Engine) Reset() {
	e.board.Reset()
	e.rowsCompleted = 0
	e.pieces = 0
}

// RowsCompleted returns the rows cleared since the last Reset.
func (e *Engine) RowsCompleted() int { return e.rowsCompleted }

// Pieces returns the pieces placed since the last Reset.
func (e *Engine) Pieces() int { return e.pieces }
