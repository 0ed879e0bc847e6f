// Package calculus provides the fixed-cost numerical differentiation and
// integration schemes used by the case analysis.
package calculus

// Derivative estimates f'(x) with the fourth-order centered difference
//
//	(-f(x+2h) + 8f(x+h) - 8f(x-h) + f(x-2h)) / 12h
//
// The step is used as given. Too small a step loses accuracy to cancellation.
func Derivative(f func(float64) float64, x, h float64) float64 {
	fp1, fm1 := f(x+h), f(x-h)
	fp2, fm2 := f(x+2*h), f(x-2*h)
	return (-fp2 + 8*fp1 - 8*fm1 + fm2) / (12 * h)
}
