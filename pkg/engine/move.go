package engine

import (
	"math"
	"sort"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
	"github.com/Zekfad/epam-tetris-solver/internal/catalog"
)

// ScoredMove is one candidate placement and its evaluation. Score is zero
// for placements that end the game.
type ScoredMove struct {
	Move     Move             `json:"move"`
	Score    float64          `json:"score"`
	GameOver bool             `json:"game_over"`
	Outcome  bitboard.Outcome `json:"outcome"`
}

// MoveList contains every candidate placement of a piece, in enumeration
// order: orientation ascending, then column ascending.
type MoveList struct {
	Moves []ScoredMove
}

// forEachPlacement drops every orientation of kind at every column on a
// scratch copy of b and hands the result to fn. b is never modified.
func forEachPlacement(b *bitboard.Board, kind *catalog.Kind, fn func(m Move, out bitboard.Outcome, after *bitboard.Board)) {
	scratch := b.Clone()
	for i, o := range kind.Orientations {
		for col := 0; col+o.Width <= b.Columns(); col++ {
			scratch.CopyFrom(b)
			out, err := scratch.Drop(o, col)
			if err != nil {
				// Unreachable: the loop bounds keep the column in range.
				continue
			}
			fn(Move{Orientation: i, Column: col}, out, scratch)
		}
	}
}

// Search evaluates every placement of kind on b and returns the best one.
// A candidate replaces the current best only with a strictly higher score,
// so ties go to the first candidate in enumeration order. Placements that
// end the game are never selected; if all of them do, Found is false.
func Search(b *bitboard.Board, kind *catalog.Kind) Decision {
	d := Decision{Score: math.Inf(-1)}
	forEachPlacement(b, kind, func(m Move, out bitboard.Outcome, after *bitboard.Board) {
		d.Candidates++
		if out.GameOver {
			return
		}
		if score := EvaluateBoard(after, out); score > d.Score {
			d.Score = score
			d.Move = m
			d.Found = true
		}
	})
	if !d.Found {
		d.Score = 0
	}
	return d
}

// GenerateMoves scores every placement of kind on b.
func GenerateMoves(b *bitboard.Board, kind *catalog.Kind) *MoveList {
	ml := &MoveList{Moves: make([]ScoredMove, 0, len(kind.Orientations)*b.Columns())}
	forEachPlacement(b, kind, func(m Move, out bitboard.Outcome, after *bitboard.Board) {
		sm := ScoredMove{Move: m, GameOver: out.GameOver, Outcome: out}
		if !out.GameOver {
			sm.Score = EvaluateBoard(after, out)
		}
		ml.Moves = append(ml.Moves, sm)
	})
	return ml
}

// Ranked returns the surviving moves best first. The sort is stable, so
// equal scores keep enumeration order and Ranked()[0] agrees with Search.
func (ml *MoveList) Ranked() []ScoredMove {
	ranked := make([]ScoredMove, 0, len(ml.Moves))
	for _, m := range ml.Moves {
		if !m.GameOver {
			ranked = append(ranked, m)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

// Top returns at most n ranked moves.
func (ml *MoveList) Top(n int) []ScoredMove {
	ranked := ml.Ranked()
	if n >= 0 && n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
