package bitboard

import "fmt"

// Dump exports the board as a grid of 0/1 cells with the top row first.
func (b *Board) Dump() [][]int {
	n := len(b.rows)
	dump := make([][]int, n)
	for row := 0; row < n; row++ {
		cells := make([]int, b.columns)
		v := b.rows[row]
		for c := 0; c < b.columns; c++ {
			cells[c] = int(v & 1)
			v >>= 1
		}
		dump[n-1-row] = cells
	}
	return dump
}

// DecodeDump converts a top-row-first grid into bottom-first row values.
// The grid must have exactly rows entries of columns cells, each 0 or 1.
func DecodeDump(dump [][]int, rows, columns int) ([]uint32, error) {
	if len(dump) != rows {
		return nil, fmt.Errorf("%w: got %d rows, want %d", ErrBadDump, len(dump), rows)
	}
	out := make([]uint32, rows)
	for i, cells := range dump {
		if len(cells) != columns {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrBadDump, i, len(cells), columns)
		}
		var v uint32
		for c, cell := range cells {
			switch cell {
			case 0:
			case 1:
				v |= 1 << uint(c)
			default:
				return nil, fmt.Errorf("%w: cell (%d,%d) = %d", ErrBadDump, i, c, cell)
			}
		}
		out[rows-1-i] = v
	}
	return out, nil
}

// Load replaces the board contents with a dump. On error the board is left
// unchanged.
func (b *Board) Load(dump [][]int) error {
	rows, err := DecodeDump(dump, len(b.rows), b.columns)
	if err != nil {
		return err
	}
	copy(b.rows, rows)
	return nil
}

// FromDump builds a board sized after the dump.
func FromDump(dump [][]int) (*Board, error) {
	if len(dump) == 0 {
		return nil, fmt.Errorf("%w: empty dump", ErrBadDump)
	}
	b, err := New(len(dump), len(dump[0]))
	if err != nil {
		return nil, err
	}
	if err := b.Load(dump); err != nil {
		return nil, err
	}
	return b, nil
}
