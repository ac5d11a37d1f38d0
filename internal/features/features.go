// Package features computes the structural board metrics used by the
// evaluator. They follow the Dellacherie/El-Tetris feature set: landing
// height, row and column transitions, holes and well sums.
package features

import (
	"math/bits"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
)

// NumFeatures is the length of a Vector.
const NumFeatures = 6

// Vector holds the features of one candidate placement, in evaluator order.
type Vector struct {
	LandingHeight     float64
	RowsCleared       float64
	RowTransitions    float64
	ColumnTransitions float64
	Holes             float64
	WellSums          float64
}

// Slice returns the features in evaluator order.
func (v Vector) Slice() []float64 {
	return []float64{
		v.LandingHeight,
		v.RowsCleared,
		v.RowTransitions,
		v.ColumnTransitions,
		v.Holes,
		v.WellSums,
	}
}

// Extract computes every feature for a board that has just received a
// placement with the given outcome.
func Extract(b *bitboard.Board, out bitboard.Outcome) Vector {
	return Vector{
		LandingHeight:     LandingHeight(out),
		RowsCleared:       float64(out.RowsCleared),
		RowTransitions:    float64(RowTransitions(b)),
		ColumnTransitions: float64(ColumnTransitions(b)),
		Holes:             float64(Holes(b)),
		WellSums:          float64(WellSums(b)),
	}
}

// LandingHeight is the vertical midpoint of the placed piece.
func LandingHeight(out bitboard.Outcome) float64 {
	return float64(out.LandingRow) + float64(out.Placed.Height-1)/2
}

// RowTransitions counts horizontally adjacent cells of different occupancy.
// Both side walls count as filled.
func RowTransitions(b *bitboard.Board) int {
	cols := b.Columns()
	transitions := 0
	for i := 0; i < b.Height(); i++ {
		row := b.Row(i)
		last := uint32(1)
		for c := 0; c < cols; c++ {
			bit := row >> uint(c) & 1
			if bit != last {
				transitions++
			}
			last = bit
		}
		if last == 0 {
			transitions++
		}
	}
	return transitions
}

// ColumnTransitions counts vertically adjacent cells of different occupancy.
// The floor counts as filled; nothing is assumed above the top row.
func ColumnTransitions(b *bitboard.Board) int {
	cols := b.Columns()
	transitions := 0
	for c := 0; c < cols; c++ {
		last := uint32(1)
		for i := 0; i < b.Height(); i++ {
			bit := b.Row(i) >> uint(c) & 1
			if bit != last {
				transitions++
			}
			last = bit
		}
	}
	return transitions
}

// Holes counts empty cells with at least one filled cell above them in the
// same column.
func Holes(b *bitboard.Board) int {
	n := b.Height()
	full := b.FullRow()
	holes := 0
	var covered uint32
	previous := b.Row(n - 1)
	for i := n - 2; i >= 0; i-- {
		row := b.Row(i)
		covered = ^row & (previous | covered) & full
		holes += bits.OnesCount32(covered)
		previous = row
	}
	return holes
}

// WellSums adds 1+2+...+depth for every well. A well cell is empty with both
// horizontal neighbours filled (a wall counts as filled); its depth runs down
// through the empty cells below it.
func WellSums(b *bitboard.Board) int {
	cols := b.Columns()
	if cols < 2 {
		return 0
	}
	sum := 0
	for c := 0; c < cols; c++ {
		var walls uint32
		if c > 0 {
			walls |= 1 << uint(c-1)
		}
		if c < cols-1 {
			walls |= 1 << uint(c+1)
		}
		cell := uint32(1) << uint(c)
		for i := b.Height() - 1; i >= 0; i-- {
			row := b.Row(i)
			if row&cell != 0 || row&walls != walls {
				continue
			}
			sum++
			for k := i - 1; k >= 0 && b.Row(k)&cell == 0; k-- {
				sum++
			}
		}
	}
	return sum
}
