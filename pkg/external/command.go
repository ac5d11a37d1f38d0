package external

import (
	"fmt"
	"strings"

	"github.com/Zekfad/epam-tetris-solver/pkg/engine"
)

// Server command vocabulary.
const (
	CmdRotate = "act"
	CmdLeft   = "LEFT"
	CmdRight  = "RIGHT"
	CmdDown   = "DOWN"
	CmdSkip   = "SKIP"
)

// rotationOffsets corrects the horizontal offset after n clockwise turns,
// indexed by turn count. The server rotates figures around a pivot that does
// not match the bounding-box corner.
var rotationOffsets = map[string][]int{
	"I": {0, 2},
	"O": {0},
	"L": {0, 1, 1, 1},
	"J": {0, 0, -1, 0},
	"S": {0, -1, 0, 0},
	"Z": {0, -1, 0, 0},
	"T": {0, -1, 0, 0},
}

// RotationsCW returns how many clockwise turns take orientation from to
// orientation to, given total orientations listed in counter-clockwise
// order. It returns -1 for out of range arguments.
func RotationsCW(from, to, total int) int {
	if from == to {
		return 0
	}
	if total <= 0 || from < 0 || to < 0 || from >= total || to >= total {
		return -1
	}
	i := 0
	for (from+i)%total != to {
		i++
	}
	return total - i
}

// Command turns a played move into the server command for the figure
// described by t: rotations first, then horizontal steps, then a drop.
func Command(t *Translation, move engine.Move, total int) (string, error) {
	if !t.Visible {
		return CmdSkip, nil
	}
	rotations := RotationsCW(t.Orientation, move.Orientation, total)
	offsets, ok := rotationOffsets[t.Piece]
	if rotations < 0 || !ok || rotations >= len(offsets) {
		return "", fmt.Errorf("%w: cannot rotate %s from %d to %d", ErrUnknownFigure, t.Piece, t.Orientation, move.Orientation)
	}
	offset := move.Column - t.Column + offsets[rotations]

	var parts []string
	switch {
	case rotations == 1:
		parts = append(parts, CmdRotate)
	case rotations > 1:
		parts = append(parts, fmt.Sprintf("%s(%d)", CmdRotate, rotations))
	}
	step := CmdRight
	if offset < 0 {
		step, offset = CmdLeft, -offset
	}
	for i := 0; i < offset; i++ {
		parts = append(parts, step)
	}
	parts = append(parts, CmdDown)
	return strings.Join(parts, ","), nil
}
