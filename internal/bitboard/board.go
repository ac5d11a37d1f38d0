// Package bitboard implements the bit-packed playfield used by the engine.
//
// A board is a stack of rows, one uint32 per row and one bit per column.
// Row 0 is the bottom row and column 0 is the least significant bit. A piece
// orientation uses the same representation over its own bounding box, so
// placing a piece is a shift followed by an OR per row.
package bitboard

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// Board dimension limits. A row must fit in a uint32.
const (
	MinSize    = 1
	MaxColumns = 32
)

var (
	ErrBadDimensions = errors.New("bitboard: invalid board dimensions")
	ErrBadDump       = errors.New("bitboard: malformed dump")
	ErrColumnRange   = errors.New("bitboard: column out of range")
)

// Board is a bit-packed grid. The zero value is not usable; create boards
// with New.
type Board struct {
	rows    []uint32
	columns int
	fullRow uint32
}

// New creates an empty board of the given size.
func New(rows, columns int) (*Board, error) {
	if rows < MinSize || columns < MinSize || columns > MaxColumns {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadDimensions, rows, columns)
	}
	return &Board{
		rows:    make([]uint32, rows),
		columns: columns,
		fullRow: FullRowMask(columns),
	}, nil
}

// MustNew is like New but panics on invalid dimensions.
func MustNew(rows, columns int) *Board {
	b, err := New(rows, columns)
	if err != nil {
		panic(err)
	}
	return b
}

// FullRowMask returns the row value of a completely filled row.
func FullRowMask(columns int) uint32 {
	if columns >= 32 {
		return ^uint32(0)
	}
	return uint32(1)<<uint(columns) - 1
}

// Height returns the number of rows.
func (b *Board) Height() int { return len(b.rows) }

// Columns returns the board width.
func (b *Board) Columns() int { return b.columns }

// FullRow returns the mask of a filled row.
func (b *Board) FullRow() uint32 { return b.fullRow }

// Row returns the bits of row i (0 = bottom).
func (b *Board) Row(i int) uint32 { return b.rows[i] }

// Rows returns a copy of the row values, bottom row first.
func (b *Board) Rows() []uint32 {
	out := make([]uint32, len(b.rows))
	copy(out, b.rows)
	return out
}

// SetRows replaces the board contents. Values must fit in the board width.
func (b *Board) SetRows(rows []uint32) error {
	if len(rows) != len(b.rows) {
		return fmt.Errorf("%w: got %d rows, want %d", ErrBadDump, len(rows), len(b.rows))
	}
	for i, r := range rows {
		if r&^b.fullRow != 0 {
			return fmt.Errorf("%w: row %d wider than %d columns", ErrBadDump, i, b.columns)
		}
	}
	copy(b.rows, rows)
	return nil
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	c := &Board{
		rows:    make([]uint32, len(b.rows)),
		columns: b.columns,
		fullRow: b.fullRow,
	}
	copy(c.rows, b.rows)
	return c
}

// CopyFrom overwrites b with the contents of src. Both boards must have the
// same dimensions.
func (b *Board) CopyFrom(src *Board) {
	copy(b.rows, src.rows)
}

// Reset empties every row.
func (b *Board) Reset() {
	for i := range b.rows {
		b.rows[i] = 0
	}
}

// Equal reports whether both boards have the same size and contents.
func (b *Board) Equal(o *Board) bool {
	if b.columns != o.columns || len(b.rows) != len(o.rows) {
		return false
	}
	for i := range b.rows {
		if b.rows[i] != o.rows[i] {
			return false
		}
	}
	return true
}

// Cells returns the number of filled cells.
func (b *Board) Cells() int {
	n := 0
	for _, r := range b.rows {
		n += bits.OnesCount32(r)
	}
	return n
}

// ColumnHeights returns, per column, one plus the index of the highest filled
// cell (0 for an empty column).
func (b *Board) ColumnHeights() []int {
	heights := make([]int, b.columns)
	for i := len(b.rows) - 1; i >= 0; i-- {
		r := b.rows[i]
		for c := 0; c < b.columns; c++ {
			if heights[c] == 0 && r>>uint(c)&1 == 1 {
				heights[c] = i + 1
			}
		}
	}
	return heights
}

// String renders the board top row first, '#' for filled cells.
func (b *Board) String() string {
	var sb strings.Builder
	for i := len(b.rows) - 1; i >= 0; i-- {
		r := b.rows[i]
		for c := 0; c < b.columns; c++ {
			if r>>uint(c)&1 == 1 {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
