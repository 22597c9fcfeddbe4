package common

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Sqrt(floats.Dot(data, data) / float64(len(data)))
}

// MatrixRange returns the smallest and largest value of a 2-D matrix.
// ok is false if the matrix is empty or holds a NaN or infinite value.
func MatrixRange(data [][]float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)
	seen := false
	for _, row := range data {
		if len(row) == 0 {
			continue
		}
		if floats.HasNaN(row) {
			return 0, 0, false
		}
		lo = math.Min(lo, floats.Min(row))
		hi = math.Max(hi, floats.Max(row))
		seen = true
	}
	if !seen || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 0, false
	}
	return lo, hi, true
}

// ColumnMeans averages a Time x Frequency matrix over time, returning one
// value per column.
func ColumnMeans(data [][]float64) []float64 {
	if len(data) == 0 {
		return []float64{}
	}

	means := make([]float64, len(data[0]))
	for _, row := range data {
		floats.Add(means, row)
	}
	floats.Scale(1/float64(len(data)), means)
	return means
}

// ArgMax returns the index of the largest value, or -1 for an empty slice
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}
