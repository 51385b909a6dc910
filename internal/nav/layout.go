package nav

import "math"

// Layout returns the tile grid for n entries: rows = floor(sqrt(n)),
// cols = ceil(n/rows). It panics for n < 1; an empty page cannot be built
// from a validated menu.
func Layout(n int) (rows, cols int) {
	if n < 1 {
		panic("nav: layout of an empty page")
	}
	rows = int(math.Floor(math.Sqrt(float64(n))))
	// isqrt guard against float rounding for large perfect squares.
	for (rows+1)*(rows+1) <= n {
		rows++
	}
	for rows*rows > n {
		rows--
	}
	cols = (n + rows - 1) / rows
	return rows, cols
}

// Position returns the row-major grid cell of entry index i.
func Position(i, cols int) (row, col int) {
	return i / cols, i % cols
}
