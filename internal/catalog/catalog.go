// Package catalog holds the piece kinds the engine can place.
//
// A Kind is an ordered list of distinct orientations. The order matters: it
// is the enumeration order of the placement search and the orientation index
// reported back to callers.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
)

// MaxOrientations is the most rotations a kind can have.
const MaxOrientations = 4

var (
	ErrBadShape    = errors.New("catalog: malformed shape")
	ErrTooWide     = errors.New("catalog: orientation does not fit the board")
	ErrUnknownKind = errors.New("catalog: unknown piece kind")
)

// Kind is one piece type.
type Kind struct {
	Name         string
	Orientations []bitboard.Orientation
}

// Catalog is an immutable table of kinds.
type Catalog struct {
	kinds  []Kind
	byName map[string]int
}

// New builds a catalog, checking the structural invariants of every
// orientation.
func New(kinds []Kind) (*Catalog, error) {
	c := &Catalog{
		kinds:  make([]Kind, len(kinds)),
		byName: make(map[string]int, len(kinds)),
	}
	for i, k := range kinds {
		if k.Name == "" {
			return nil, fmt.Errorf("%w: kind %d has no name", ErrBadShape, i)
		}
		name := strings.ToUpper(k.Name)
		if _, dup := c.byName[name]; dup {
			return nil, fmt.Errorf("%w: duplicate kind %q", ErrBadShape, name)
		}
		if n := len(k.Orientations); n < 1 || n > MaxOrientations {
			return nil, fmt.Errorf("%w: kind %s has %d orientations", ErrBadShape, name, n)
		}
		for j, o := range k.Orientations {
			if err := checkOrientation(o); err != nil {
				return nil, fmt.Errorf("kind %s orientation %d: %w", name, j, err)
			}
			for _, prev := range k.Orientations[:j] {
				if prev.Equal(o) {
					return nil, fmt.Errorf("%w: kind %s orientation %d repeats an earlier one", ErrBadShape, name, j)
				}
			}
		}
		c.kinds[i] = Kind{Name: name, Orientations: k.Orientations}.clone()
		c.byName[name] = i
	}
	return c, nil
}

func checkOrientation(o bitboard.Orientation) error {
	if o.Width < 1 || o.Height < 1 || o.Width > bitboard.MaxColumns {
		return fmt.Errorf("%w: size %dx%d", ErrBadShape, o.Width, o.Height)
	}
	if len(o.Rows) != o.Height {
		return fmt.Errorf("%w: %d rows for height %d", ErrBadShape, len(o.Rows), o.Height)
	}
	full := bitboard.FullRowMask(o.Width)
	var columns uint32
	for i, r := range o.Rows {
		if r&^full != 0 {
			return fmt.Errorf("%w: row %d wider than %d", ErrBadShape, i, o.Width)
		}
		columns |= r
	}
	if o.Rows[0] == 0 || o.Rows[o.Height-1] == 0 {
		return fmt.Errorf("%w: empty boundary row", ErrBadShape)
	}
	if columns&1 == 0 || columns>>uint(o.Width-1)&1 == 0 {
		return fmt.Errorf("%w: empty boundary column", ErrBadShape)
	}
	return nil
}

// Validate checks that every orientation fits on a board of the given size.
func (c *Catalog) Validate(rows, columns int) error {
	for _, k := range c.kinds {
		for j, o := range k.Orientations {
			if o.Width > columns || o.Height > rows {
				return fmt.Errorf("%w: kind %s orientation %d is %dx%d, board is %dx%d",
					ErrTooWide, k.Name, j, o.Width, o.Height, columns, rows)
			}
		}
	}
	return nil
}

// Len returns the number of kinds.
func (c *Catalog) Len() int { return len(c.kinds) }

// Kind returns the kind at index i. The result is shared and must not be
// modified.
func (c *Catalog) Kind(i int) *Kind { return &c.kinds[i] }

// Kinds returns a copy of the kinds in table order.
func (c *Catalog) Kinds() []Kind {
	kinds := make([]Kind, len(c.kinds))
	for i, k := range c.kinds {
		kinds[i] = k.clone()
	}
	return kinds
}

func (k Kind) clone() Kind {
	out := Kind{Name: k.Name, Orientations: make([]bitboard.Orientation, len(k.Orientations))}
	for i, o := range k.Orientations {
		o.Rows = append([]uint32(nil), o.Rows...)
		out.Orientations[i] = o
	}
	return out
}

// Names returns kind names in table order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.kinds))
	for i, k := range c.kinds {
		names[i] = k.Name
	}
	return names
}

// Index returns the table index of a kind name, or -1.
func (c *Catalog) Index(name string) int {
	if i, ok := c.byName[strings.ToUpper(name)]; ok {
		return i
	}
	return -1
}

// ByName looks a kind up by its letter. Like Kind, the result is shared.
func (c *Catalog) ByName(name string) (*Kind, error) {
	i := c.Index(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return &c.kinds[i], nil
}
