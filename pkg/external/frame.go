package external

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
	"github.com/Zekfad/epam-tetris-solver/internal/catalog"
)

var (
	ErrBadFrame      = errors.New("external: malformed frame")
	ErrUnknownFigure = errors.New("external: unknown figure")
)

// framePrefix precedes the JSON body of every server message.
const framePrefix = "board="

// Point is a cell position in server coordinates: x from the left, y from
// the bottom.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Frame is one game state pushed by the server.
type Frame struct {
	CurrentFigureType  string   `json:"currentFigureType"`
	CurrentFigurePoint Point    `json:"currentFigurePoint"`
	FutureFigures      []string `json:"futureFigures"`
	// Layers[0] holds the field, row after row from the top, '.' marking
	// an empty cell.
	Layers []string `json:"layers"`
}

// ParseFrame decodes a server message, with or without the "board=" prefix.
func ParseFrame(data []byte) (*Frame, error) {
	data = bytes.TrimSpace(data)
	data = bytes.TrimPrefix(data, []byte(framePrefix))
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	if len(f.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrBadFrame)
	}
	return &f, nil
}

// anchorOffsets moves the server's figure anchor to the top-left corner of
// the orientation's bounding box, as (row, column) deltas.
var anchorOffsets = map[string][2]int{
	"I": {-1, 0},
	"O": {0, 0},
	"L": {-1, 0},
	"J": {-1, -1},
	"S": {-1, -1},
	"Z": {-1, -1},
	"T": {-1, -1},
}

// Translation is a frame converted into engine terms.
type Translation struct {
	Piece string
	Kind  int
	// Visible is false while the falling figure is still above the field.
	Visible bool
	// Row and Column locate the top-left corner of the figure's bounding
	// box; Row counts from the top.
	Row    int
	Column int
	// Orientation is the index of the orientation currently on screen.
	Orientation int
	// Board is the field without the falling figure.
	Board *bitboard.Board
}

// ParseField converts a field layer into a dump, top row first.
func ParseField(layer string, rows, columns int) ([][]int, error) {
	if len(layer) != rows*columns {
		return nil, fmt.Errorf("%w: field has %d cells, want %d", ErrBadFrame, len(layer), rows*columns)
	}
	dump := make([][]int, rows)
	for r := range dump {
		line := layer[r*columns : (r+1)*columns]
		cells := make([]int, columns)
		for c := range cells {
			if line[c] != '.' {
				cells[c] = 1
			}
		}
		dump[r] = cells
	}
	return dump, nil
}

// Translate locates the falling figure in a frame, works out which
// orientation is on screen and removes it from the field.
func Translate(f *Frame, cat *catalog.Catalog, rows, columns int) (*Translation, error) {
	piece := strings.ToUpper(f.CurrentFigureType)
	kind := cat.Index(piece)
	off, known := anchorOffsets[piece]
	if kind < 0 || !known {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFigure, f.CurrentFigureType)
	}
	if len(f.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrBadFrame)
	}

	t := &Translation{
		Piece:  piece,
		Kind:   kind,
		Row:    rows - 1 - f.CurrentFigurePoint.Y + off[0],
		Column: f.CurrentFigurePoint.X + off[1],
	}
	if t.Row < 0 {
		return t, nil
	}
	t.Visible = true

	dump, err := ParseField(f.Layers[0], rows, columns)
	if err != nil {
		return nil, err
	}
	orientations := cat.Kind(kind).Orientations
	for i, o := range orientations {
		if boxEquals(dump, t.Row, t.Column, o.Grid()) {
			t.Orientation = i
			break
		}
	}
	o := orientations[t.Orientation]
	clearBox(dump, t.Row, t.Column, o.Width, o.Height)

	b, err := bitboard.New(rows, columns)
	if err != nil {
		return nil, err
	}
	if err := b.Load(dump); err != nil {
		return nil, err
	}
	t.Board = b
	return t, nil
}

// boxEquals reports whether the cells of dump under a box at (row, col)
// equal grid exactly. A box reaching outside the field never matches.
func boxEquals(dump [][]int, row, col int, grid [][]int) bool {
	if row < 0 || col < 0 || row+len(grid) > len(dump) {
		return false
	}
	for i, cells := range grid {
		line := dump[row+i]
		if col+len(cells) > len(line) {
			return false
		}
		for j, c := range cells {
			if line[col+j] != c {
				return false
			}
		}
	}
	return true
}

// clearBox empties a width x height box at (row, col), clipped to the field.
func clearBox(dump [][]int, row, col, width, height int) {
	for i := max(row, 0); i < row+height && i < len(dump); i++ {
		line := dump[i]
		for j := max(col, 0); j < col+width && j < len(line); j++ {
			line[j] = 0
		}
	}
}
