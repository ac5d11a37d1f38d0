package catalog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
)

// ParseShape reads an orientation drawn as lines of '0' and '1', top row
// first, leftmost character being column 0. Surrounding whitespace and blank
// lines are ignored.
func ParseShape(text string) (bitboard.Orientation, error) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return bitboard.Orientation{}, fmt.Errorf("%w: empty shape", ErrBadShape)
	}
	width := len(lines[0])
	if width > bitboard.MaxColumns {
		return bitboard.Orientation{}, fmt.Errorf("%w: %d columns", ErrBadShape, width)
	}
	height := len(lines)
	rows := make([]uint32, height)
	for i, l := range lines {
		if len(l) != width {
			return bitboard.Orientation{}, fmt.Errorf("%w: row %d has %d cells, want %d", ErrBadShape, i, len(l), width)
		}
		var v uint32
		for c, ch := range l {
			switch ch {
			case '0':
			case '1':
				v |= 1 << uint(c)
			default:
				return bitboard.Orientation{}, fmt.Errorf("%w: unexpected %q", ErrBadShape, ch)
			}
		}
		rows[height-1-i] = v
	}
	o := bitboard.Orientation{Rows: rows, Width: width, Height: height}
	if err := checkOrientation(o); err != nil {
		return bitboard.Orientation{}, err
	}
	return o, nil
}

type yamlCatalog struct {
	Kinds []yamlKind `yaml:"kinds"`
}

type yamlKind struct {
	Name         string            `yaml:"name"`
	Orientations []yamlOrientation `yaml:"orientations"`
}

type yamlOrientation struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Shape  string `yaml:"shape"`
}

// LoadYAML reads a catalog file.
func LoadYAML(filename string) (*Catalog, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()
	return ParseYAML(f)
}

// ParseYAML parses a catalog document. Declared widths and heights must
// match the drawn shapes.
func ParseYAML(r io.Reader) (*Catalog, error) {
	var doc yamlCatalog
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	if len(doc.Kinds) == 0 {
		return nil, fmt.Errorf("%w: catalog has no kinds", ErrBadShape)
	}
	kinds := make([]Kind, 0, len(doc.Kinds))
	for _, yk := range doc.Kinds {
		k := Kind{Name: yk.Name}
		for j, yo := range yk.Orientations {
			o, err := ParseShape(yo.Shape)
			if err != nil {
				return nil, fmt.Errorf("kind %s orientation %d: %w", yk.Name, j, err)
			}
			if o.Width != yo.Width || o.Height != yo.Height {
				return nil, fmt.Errorf("%w: kind %s orientation %d declared %dx%d, drawn %dx%d",
					ErrBadShape, yk.Name, j, yo.Width, yo.Height, o.Width, o.Height)
			}
			k.Orientations = append(k.Orientations, o)
		}
		kinds = append(kinds, k)
	}
	return New(kinds)
}

// MarshalYAML writes the catalog in the format ParseYAML reads.
func (c *Catalog) MarshalYAML() (interface{}, error) {
	doc := yamlCatalog{Kinds: make([]yamlKind, 0, len(c.kinds))}
	for _, k := range c.kinds {
		yk := yamlKind{Name: k.Name}
		for _, o := range k.Orientations {
			yk.Orientations = append(yk.Orientations, yamlOrientation{
				Width:  o.Width,
				Height: o.Height,
				Shape:  o.String(),
			})
		}
		doc.Kinds = append(doc.Kinds, yk)
	}
	return doc, nil
}
