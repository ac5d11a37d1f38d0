package catalog

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	if got := strings.Join(c.Names(), ""); got != "ITOJLSZ" {
		t.Errorf("Names() = %q, want ITOJLSZ", got)
	}

	counts := map[string]int{"I": 2, "T": 4, "O": 1, "J": 4, "L": 4, "S": 2, "Z": 2}
	for name, want := range counts {
		k, err := c.ByName(name)
		if err != nil {
			t.Fatalf("ByName(%q) failed: %v", name, err)
		}
		if len(k.Orientations) != want {
			t.Errorf("kind %s has %d orientations, want %d", name, len(k.Orientations), want)
		}
		for _, o := range k.Orientations {
			cells := 0
			for _, r := range o.Rows {
				for ; r != 0; r &= r - 1 {
					cells++
				}
			}
			if cells != 4 {
				t.Errorf("kind %s has a %d-cell orientation:\n%s", name, cells, o)
			}
		}
	}
}

func TestByNameCaseInsensitive(t *testing.T) {
	k, err := Default().ByName("t")
	if err != nil {
		t.Fatalf("ByName(t) failed: %v", err)
	}
	if k.Name != "T" {
		t.Errorf("Name = %q, want T", k.Name)
	}
	if got := Default().Index("t"); got != 1 {
		t.Errorf("Index(t) = %d, want 1", got)
	}

	if _, err := Default().ByName("X"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ByName(X) err = %v, want ErrUnknownKind", err)
	}
	if got := Default().Index("X"); got != -1 {
		t.Errorf("Index(X) = %d, want -1", got)
	}
}

func TestParseShape(t *testing.T) {
	o, err := ParseShape(`
		010
		111
	`)
	if err != nil {
		t.Fatalf("ParseShape failed: %v", err)
	}
	if o.Width != 3 || o.Height != 2 {
		t.Errorf("size = %dx%d, want 3x2", o.Width, o.Height)
	}
	if len(o.Rows) != 2 || o.Rows[0] != 0b111 || o.Rows[1] != 0b010 {
		t.Errorf("Rows = %b, want [111 10]", o.Rows)
	}
	if got := o.String(); got != "010\n111\n" {
		t.Errorf("String() = %q, want %q", got, "010\n111\n")
	}
}

func TestParseShapeRejects(t *testing.T) {
	tests := []struct {
		name  string
		shape string
	}{
		{"empty", "\n\n"},
		{"ragged", "11\n1\n"},
		{"bad character", "1x\n11\n"},
		{"empty top row", "00\n11\n"},
		{"empty bottom row", "11\n00\n"},
		{"empty left column", "01\n01\n"},
		{"empty right column", "10\n10\n"},
		{"too wide", strings.Repeat("1", 33)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseShape(tc.shape); !errors.Is(err, ErrBadShape) {
				t.Errorf("ParseShape(%q) err = %v, want ErrBadShape", tc.shape, err)
			}
		})
	}
}

func TestNewRejects(t *testing.T) {
	o := bitboard.Orientation{Rows: []uint32{0b11, 0b11}, Width: 2, Height: 2}
	short := bitboard.Orientation{Rows: []uint32{0b11}, Width: 2, Height: 2}

	tests := []struct {
		name  string
		kinds []Kind
	}{
		{"repeated orientation", []Kind{{Name: "O", Orientations: []bitboard.Orientation{o, o}}}},
		{"duplicate name", []Kind{
			{Name: "O", Orientations: []bitboard.Orientation{o}},
			{Name: "o", Orientations: []bitboard.Orientation{o}},
		}},
		{"no orientations", []Kind{{Name: "E"}}},
		{"rows mismatch height", []Kind{{Name: "O", Orientations: []bitboard.Orientation{short}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.kinds); !errors.Is(err, ErrBadShape) {
				t.Errorf("New err = %v, want ErrBadShape", err)
			}
		})
	}
}

func TestCatalogIsolatedFromCallers(t *testing.T) {
	rows := []uint32{0b11, 0b11}
	kinds := []Kind{{Name: "O", Orientations: []bitboard.Orientation{{Rows: rows, Width: 2, Height: 2}}}}
	c, err := New(kinds)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	rows[0] = 0b01
	kinds[0].Orientations[0].Width = 1
	if o := c.Kind(0).Orientations[0]; o.Rows[0] != 0b11 || o.Width != 2 {
		t.Errorf("catalog changed with its input: %+v", o)
	}

	got := Default().Kinds()
	got[0].Name = "X"
	got[0].Orientations[0].Rows[0] = 0
	got[1].Orientations = nil
	if k := Default().Kind(0); k.Name != "I" || k.Orientations[0].Rows[0] == 0 {
		t.Errorf("Kinds() exposed the default table: %+v", k)
	}
	if n := len(Default().Kind(1).Orientations); n != 4 {
		t.Errorf("T orientations = %d, want 4", n)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		rows, columns int
		want          error
	}{
		{18, 18, nil},
		{4, 4, nil},
		{18, 3, ErrTooWide},
		{3, 18, ErrTooWide},
	}
	for _, tc := range tests {
		if err := Default().Validate(tc.rows, tc.columns); !errors.Is(err, tc.want) {
			t.Errorf("Validate(%d, %d) = %v, want %v", tc.rows, tc.columns, err, tc.want)
		}
	}
}

func TestLoadYAMLMatchesDefault(t *testing.T) {
	c, err := LoadYAML("../../data/pieces.yaml")
	if err != nil {
		t.Fatalf("LoadYAML failed: %v", err)
	}
	if got, want := strings.Join(c.Names(), ""), strings.Join(Default().Names(), ""); got != want {
		t.Fatalf("Names() = %q, want %q", got, want)
	}
	for i, k := range Default().Kinds() {
		got := c.Kind(i)
		if len(got.Orientations) != len(k.Orientations) {
			t.Fatalf("kind %s has %d orientations, want %d", k.Name, len(got.Orientations), len(k.Orientations))
		}
		for j, o := range k.Orientations {
			if !o.Equal(got.Orientations[j]) {
				t.Errorf("kind %s orientation %d:\n%s\nwant\n%s", k.Name, j, got.Orientations[j], o)
			}
		}
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := yaml.NewEncoder(&buf).Encode(Default()); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	c, err := ParseYAML(&buf)
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	if got := strings.Join(c.Names(), ""); got != "ITOJLSZ" {
		t.Errorf("Names() = %q, want ITOJLSZ", got)
	}
}

func TestParseYAMLDeclaredSizeMismatch(t *testing.T) {
	doc := `
kinds:
  - name: O
    orientations:
      - width: 3
        height: 2
        shape: |
          11
          11
`
	if _, err := ParseYAML(strings.NewReader(doc)); !errors.Is(err, ErrBadShape) {
		t.Errorf("ParseYAML err = %v, want ErrBadShape", err)
	}
}
