package bitboard

import (
	"errors"
	"testing"
)

func TestDumpOrientation(t *testing.T) {
	b := MustNew(3, 4)
	b.SetRows([]uint32{0b0001, 0b0010, 0b1000})
	dump := b.Dump()
	want := [][]int{
		{0, 0, 0, 1}, // top
		{0, 1, 0, 0},
		{1, 0, 0, 0}, // bottom
	}
	for i := range want {
		for j := range want[i] {
			if dump[i][j] != want[i][j] {
				t.Fatalf("Dump = %v, want %v", dump, want)
			}
		}
	}
}

func TestDumpRoundTrip(t *testing.T) {
	b := MustNew(18, 18)
	pieces := []struct {
		o   Orientation
		col int
	}{
		{square, 0}, {tUp, 5}, {barV, 17}, {barH, 9}, {square, 2}, {tUp, 14},
	}
	for _, p := range pieces {
		if _, err := b.Drop(p.o, p.col); err != nil {
			t.Fatalf("Drop error: %v", err)
		}

		c := MustNew(18, 18)
		if err := c.Load(b.Dump()); err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if !c.Equal(b) {
			t.Fatalf("round trip mismatch:\n%s\nvs\n%s", b, c)
		}
	}
}

func TestLoadRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		dump [][]int
	}{
		{"too few rows", [][]int{{0, 0, 0}, {0, 0, 0}}},
		{"short row", [][]int{{0, 0, 0}, {0, 0}, {0, 0, 0}}},
		{"long row", [][]int{{0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0}}},
		{"bad value", [][]int{{0, 0, 0}, {0, 2, 0}, {0, 0, 0}}},
		{"negative value", [][]int{{0, 0, 0}, {0, 0, 0}, {-1, 0, 0}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := MustNew(3, 3)
			b.SetRows([]uint32{1, 2, 4})
			before := b.Clone()
			if err := b.Load(tc.dump); !errors.Is(err, ErrBadDump) {
				t.Errorf("Load error = %v, want ErrBadDump", err)
			}
			if !b.Equal(before) {
				t.Error("board modified by failed Load")
			}
		})
	}
}

func TestFromDump(t *testing.T) {
	b, err := FromDump([][]int{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatalf("FromDump error: %v", err)
	}
	if b.Height() != 2 || b.Columns() != 2 {
		t.Errorf("size = %dx%d, want 2x2", b.Height(), b.Columns())
	}
	if b.Row(0) != 0b10 || b.Row(1) != 0b01 {
		t.Errorf("rows = %b,%b, want 10,01", b.Row(0), b.Row(1))
	}
	if _, err := FromDump(nil); !errors.Is(err, ErrBadDump) {
		t.Errorf("FromDump(nil) error = %v, want ErrBadDump", err)
	}
}
