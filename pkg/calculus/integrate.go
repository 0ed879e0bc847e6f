package calculus

import "fmt"

// Trapezoid applies the composite trapezoidal rule with n equal subintervals
// over [a, b].
func Trapezoid(f func(float64) float64, a, b float64, n int) float64 {
	if n < 1 {
		n = 1
	}
	h := (b - a) / float64(n)
	sum := 0.5*f(a) + 0.5*f(b)
	for i := 1; i < n; i++ {
		sum += f(a + float64(i)*h)
	}
	return h * sum
}

// RombergTable builds the triangular Richardson table. Column 0 holds the
// trapezoid estimates with 2^i subintervals; entry [j][k] combines rows j and
// j+1 of column k-1. Only entries with j+k < levels are filled.
func RombergTable(f func(float64) float64, a, b float64, levels int) ([][]float64, error) {
	if levels < 1 {
		return nil, fmt.Errorf("romberg levels must be at least 1, got %d", levels)
	}

	table := make([][]float64, levels)
	for i := range table {
		table[i] = make([]float64, levels)
		table[i][0] = Trapezoid(f, a, b, 1<<i)
	}

	factor := 1.0
	for k := 1; k < levels; k++ {
		factor *= 4
		for j := 0; j < levels-k; j++ {
			table[j][k] = (factor*table[j+1][k-1] - table[j][k-1]) / (factor - 1)
		}
	}
	return table, nil
}

// Romberg returns the most refined estimate of the Romberg table of the given
// depth. The table is always filled completely; there is no early exit.
func Romberg(f func(float64) float64, a, b float64, levels int) (float64, error) {
	table, err := RombergTable(f, a, b, levels)
	if err != nil {
		return 0, err
	}
	return table[0][levels-1], nil
}
