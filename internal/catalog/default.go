package catalog

import "github.com/Zekfad/epam-tetris-solver/internal/bitboard"

// shape builds an orientation from bottom-first row masks, column 0 being
// the least significant bit.
func shape(width, height int, rows ...uint32) bitboard.Orientation {
	return bitboard.Orientation{Rows: rows, Width: width, Height: height}
}

// standardKinds is the conventional tetromino set. Diagrams are drawn top
// row first; masks are listed bottom row first.
var standardKinds = []Kind{
	{Name: "I", Orientations: []bitboard.Orientation{
		// 1
		// 1
		// 1
		// 1
		shape(1, 4, 0b1, 0b1, 0b1, 0b1),
		// 1111
		shape(4, 1, 0b1111),
	}},
	{Name: "T", Orientations: []bitboard.Orientation{
		// 10
		// 11
		// 10
		shape(2, 3, 0b01, 0b11, 0b01),
		// 010
		// 111
		shape(3, 2, 0b111, 0b010),
		// 01
		// 11
		// 01
		shape(2, 3, 0b10, 0b11, 0b10),
		// 111
		// 010
		shape(3, 2, 0b010, 0b111),
	}},
	{Name: "O", Orientations: []bitboard.Orientation{
		// 11
		// 11
		shape(2, 2, 0b11, 0b11),
	}},
	{Name: "J", Orientations: []bitboard.Orientation{
		// 100
		// 111
		shape(3, 2, 0b111, 0b001),
		// 01
		// 01
		// 11
		shape(2, 3, 0b11, 0b10, 0b10),
		// 111
		// 001
		shape(3, 2, 0b100, 0b111),
		// 11
		// 10
		// 10
		shape(2, 3, 0b01, 0b01, 0b11),
	}},
	{Name: "L", Orientations: []bitboard.Orientation{
		// 111
		// 100
		shape(3, 2, 0b001, 0b111),
		// 10
		// 10
		// 11
		shape(2, 3, 0b11, 0b01, 0b01),
		// 001
		// 111
		shape(3, 2, 0b111, 0b100),
		// 11
		// 01
		// 01
		shape(2, 3, 0b10, 0b10, 0b11),
	}},
	{Name: "S", Orientations: []bitboard.Orientation{
		// 10
		// 11
		// 01
		shape(2, 3, 0b10, 0b11, 0b01),
		// 011
		// 110
		shape(3, 2, 0b011, 0b110),
	}},
	{Name: "Z", Orientations: []bitboard.Orientation{
		// 01
		// 11
		// 10
		shape(2, 3, 0b01, 0b11, 0b10),
		// 110
		// 011
		shape(3, 2, 0b110, 0b011),
	}},
}

var defaultCatalog = mustNew(standardKinds)

func mustNew(kinds []Kind) *Catalog {
	c, err := New(kinds)
	if err != nil {
		panic(err)
	}
	return c
}

// Default returns the built-in seven-piece catalog in the order
// I, T, O, J, L, S, Z.
func Default() *Catalog {
	return defaultCatalog
}
