package nav

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestLayout_Examples(t *testing.T) {
	cases := []struct {
		n          int
		rows, cols int
	}{
		{1, 1, 1},
		{2, 1, 2},
		{3, 1, 3},
		{4, 2, 2},
		{5, 2, 3},
		{6, 2, 3},
		{7, 2, 4},
		{8, 2, 4},
		{9, 3, 3},
		{10, 3, 4},
		{13, 3, 5},
		{16, 4, 4},
		{17, 4, 5},
	}
	for _, tc := range cases {
		rows, cols := Layout(tc.n)
		if rows != tc.rows || cols != tc.cols {
			t.Fatalf("Layout(%d)=(%d,%d) want (%d,%d)", tc.n, rows, cols, tc.rows, tc.cols)
		}
	}
}

func TestLayout_FiveEntries(t *testing.T) {
	_, cols := Layout(5)
	want := [][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}}
	for i, w := range want {
		r, c := Position(i, cols)
		if r != w[0] || c != w[1] {
			t.Fatalf("Position(%d)=(%d,%d) want (%d,%d)", i, r, c, w[0], w[1])
		}
	}
}

func TestLayout_PanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for n=0")
		}
	}()
	Layout(0)
}

func TestLayout_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 5000).Draw(t, "n")
		rows, cols := Layout(n)

		if want := int(math.Floor(math.Sqrt(float64(n)))); rows != want {
			t.Fatalf("rows=%d want floor(sqrt(%d))=%d", rows, n, want)
		}
		if want := int(math.Ceil(float64(n) / float64(rows))); cols != want {
			t.Fatalf("cols=%d want ceil(%d/%d)=%d", cols, n, rows, want)
		}
		if rows*cols < n {
			t.Fatalf("grid %dx%d cannot hold %d entries", rows, cols, n)
		}

		seen := make(map[[2]int]bool, n)
		prev := [2]int{-1, -1}
		for i := 0; i < n; i++ {
			r, c := Position(i, cols)
			if r >= rows || c >= cols {
				t.Fatalf("entry %d at (%d,%d) outside %dx%d", i, r, c, rows, cols)
			}
			cell := [2]int{r, c}
			if seen[cell] {
				t.Fatalf("entry %d reuses cell %v", i, cell)
			}
			seen[cell] = true
			if r < prev[0] || (r == prev[0] && c <= prev[1]) {
				t.Fatalf("entry %d at %v is not row-major after %v", i, cell, prev)
			}
			prev = cell
		}
	})
}
