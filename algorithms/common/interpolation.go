package common

// BilinearInterpolate performs 2D bilinear interpolation over data[y][x].
// Coordinates are in index units and clamped to the matrix edges.
func BilinearInterpolate(data [][]float64, x, y float64) float64 {
	if len(data) == 0 || len(data[0]) == 0 {
		return 0.0
	}

	rows := len(data)
	cols := len(data[0])

	// Clamp coordinates
	x = min(max(x, 0), float64(cols-1))
	y = min(max(y, 0), float64(rows-1))

	x1 := int(x)
	y1 := int(y)
	x2 := min(x1+1, cols-1)
	y2 := min(y1+1, rows-1)

	// Fractional parts
	fx := x - float64(x1)
	fy := y - float64(y1)

	q11 := data[y1][x1]
	q12 := data[y2][x1]
	q21 := data[y1][x2]
	q22 := data[y2][x2]

	r1 := q11 + fx*(q21-q11)
	r2 := q12 + fx*(q22-q12)

	return r1 + fy*(r2-r1)
}

// FractionalIndex locates v on a monotonically increasing axis and returns
// its position in index units (for example 2.25 sits a quarter of the way
// between axis[2] and axis[3]). Values beyond either end are clamped.
func FractionalIndex(axis []float64, v float64) float64 {
	n := len(axis)
	if n < 2 || v <= axis[0] {
		return 0
	}
	if v >= axis[n-1] {
		return float64(n - 1)
	}

	// Binary search for the segment holding v
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if axis[mid] <= v {
			lo = mid
		} else {
			hi = mid
		}
	}

	span := axis[hi] - axis[lo]
	if span == 0 {
		return float64(lo)
	}
	return float64(lo) + (v-axis[lo])/span
}
