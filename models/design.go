package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// NewDenseFromArray builds a dense matrix from rows of equal length
func NewDenseFromArray(x [][]float64) (*mat.Dense, error) {
	m := len(x)

	n := -1
	for i, row := range x {
		if n >= 0 && len(row) != n {
			return nil, fmt.Errorf("at row %d, %w", i, ErrColMismatch)
		}
		if n < 0 {
			n = len(row)
		}
	}
	if m == 0 || n <= 0 {
		return nil, ErrNoObservations
	}

	// flatten to row order
	data := make([]float64, 0, m*n)
	for _, row := range x {
		data = append(data, row...)
	}
	return mat.NewDense(m, n, data), nil
}

// MaxFourierOrder is the highest order whose sin and cos terms are both distinguishable when a
// period is sampled at integer steps
func MaxFourierOrder(period int) int {
	if period < 3 {
		return 0
	}
	return (period - 1) / 2
}

// HarmonicRow returns the features of time step t: a linear trend followed by the sin and cos terms
// of every order up to orders
func HarmonicRow(t int, period float64, orders int) []float64 {
	row := make([]float64, 0, 1+2*orders)
	row = append(row, float64(t))
	for k := 1; k <= orders; k++ {
		rad := 2.0 * math.Pi * float64(k) * float64(t) / period
		row = append(row, math.Sin(rad), math.Cos(rad))
	}
	return row
}

// HarmonicDesign returns the design matrix of the time steps in ts
func HarmonicDesign(ts []int, period float64, orders int) (*mat.Dense, error) {
	rows := make([][]float64, len(ts))
	for i, t := range ts {
		rows[i] = HarmonicRow(t, period, orders)
	}
	return NewDenseFromArray(rows)
}
