package bitboard

import (
	"fmt"
	"strings"
)

// Orientation is one rotation of a piece: Height row masks over a Width-wide
// bounding box, bottom row first.
type Orientation struct {
	Rows   []uint32
	Width  int
	Height int
}

// Grid returns the orientation as 0/1 cells, top row first.
func (o Orientation) Grid() [][]int {
	grid := make([][]int, o.Height)
	for i := 0; i < o.Height; i++ {
		row := o.Rows[o.Height-1-i]
		cells := make([]int, o.Width)
		for c := 0; c < o.Width; c++ {
			cells[c] = int(row >> uint(c) & 1)
		}
		grid[i] = cells
	}
	return grid
}

// Equal reports whether two orientations have the same footprint.
func (o Orientation) Equal(p Orientation) bool {
	if o.Width != p.Width || o.Height != p.Height {
		return false
	}
	for i := range o.Rows {
		if o.Rows[i] != p.Rows[i] {
			return false
		}
	}
	return true
}

func (o Orientation) String() string {
	var sb strings.Builder
	for _, row := range o.Grid() {
		for _, c := range row {
			sb.WriteByte(byte('0' + c))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Outcome is the result of dropping one orientation onto a board.
type Outcome struct {
	GameOver    bool `json:"game_over"`
	LandingRow  int  `json:"landing_row"`
	RowsCleared int  `json:"rows_cleared"`
	// Placed is the orientation shifted to its column.
	Placed Orientation `json:"-"`
}

// shift moves an orientation right by column bits.
func shift(o Orientation, column int) Orientation {
	rows := make([]uint32, len(o.Rows))
	for i, r := range o.Rows {
		rows[i] = r << uint(column)
	}
	return Orientation{Rows: rows, Width: o.Width, Height: o.Height}
}

// CollisionRow returns the row a shifted piece comes to rest on when dropped
// from the top of the board. The scan descends from the highest row the
// piece fits under and stops at the first overlap, so overhangs are never
// passed through.
func (b *Board) CollisionRow(piece Orientation) int {
	for row := len(b.rows) - piece.Height; row >= 0; row-- {
		for i := 0; i < piece.Height; i++ {
			if b.rows[row+i]&piece.Rows[i] != 0 {
				return row + 1
			}
		}
	}
	return 0
}

// Place drops o at column and ORs it into the board. Full rows are not
// removed; see ClearFullRows. When the piece cannot fit under the top of the
// board the board is left untouched and the outcome reports GameOver.
func (b *Board) Place(o Orientation, column int) (Outcome, error) {
	if column < 0 || column+o.Width > b.columns {
		return Outcome{}, fmt.Errorf("%w: column %d width %d on %d columns", ErrColumnRange, column, o.Width, b.columns)
	}
	piece := shift(o, column)
	landing := b.CollisionRow(piece)
	if landing+piece.Height > len(b.rows) {
		return Outcome{GameOver: true}, nil
	}
	for i := 0; i < piece.Height; i++ {
		b.rows[landing+i] |= piece.Rows[i]
	}
	return Outcome{LandingRow: landing, Placed: piece}, nil
}

// ClearFullRows removes full rows among the ones touched by a placement and
// pushes empty rows on top. It returns the number of rows removed.
func (b *Board) ClearFullRows(landing, height int) int {
	cleared := 0
	for i := 0; i < height; i++ {
		idx := landing + i
		if idx >= len(b.rows) || b.rows[idx] != b.fullRow {
			continue
		}
		copy(b.rows[idx:], b.rows[idx+1:])
		b.rows[len(b.rows)-1] = 0
		cleared++
		// The row above slid into idx; look at it again.
		i--
	}
	return cleared
}

// Drop places o at column and clears the rows it completed.
func (b *Board) Drop(o Orientation, column int) (Outcome, error) {
	out, err := b.Place(o, column)
	if err != nil || out.GameOver {
		return out, err
	}
	out.RowsCleared = b.ClearFullRows(out.LandingRow, out.Placed.Height)
	return out, nil
}
