package basis

import (
	"gonum.org/v1/gonum/stat/combin"
)

// zernikeCoeffs returns the monomial coefficients of the Zernike radial
// polynomial R_l^m, so that R_l^m(rho) = sum_k c[k] rho^k. Requires
// m = |m| <= l and l-m even (callers guarantee this through mode
// construction).
//
// The closed form is
//
//	R_l^m(rho) = sum_s (-1)^s (l-s)! / ( s! ((l+m)/2-s)! ((l-m)/2-s)! ) rho^(l-2s)
//
// with s = 0 .. (l-m)/2. Each coefficient is the integer
// C(l-s, s) * C(l-2s, (l-m)/2-s), computed exactly so the alternating
// sum does not lose precision at high radial degree; in particular
// R_l^m(1) = 1 to machine accuracy.
func zernikeCoeffs(l, m int) []float64 {
	c := make([]float64, l+1)
	q := (l - m) / 2
	for s := 0; s <= q; s++ {
		v := float64(combin.Binomial(l-s, s) * combin.Binomial(l-2*s, q-s))
		if s%2 == 1 {
			v = -v
		}
		c[l-2*s] = v
	}
	return c
}

// polyDeriv differentiates monomial coefficients in place semantics:
// given c for sum c[k] x^k it returns coefficients of the derivative.
func polyDeriv(c []float64) []float64 {
	if len(c) <= 1 {
		return []float64{0}
	}
	d := make([]float64, len(c)-1)
	for k := 1; k < len(c); k++ {
		d[k-1] = float64(k) * c[k]
	}
	return d
}

// polyEval evaluates monomial coefficients at x by Horner's rule.
func polyEval(c []float64, x float64) float64 {
	v := 0.0
	for k := len(c) - 1; k >= 0; k-- {
		v = v*x + c[k]
	}
	return v
}

// ZernikeRadial evaluates the dr-th derivative of R_l^{|m|} at rho.
func ZernikeRadial(l, m int, rho float64, dr int) float64 {
	if m < 0 {
		m = -m
	}
	c := zernikeCoeffs(l, m)
	for i := 0; i < dr; i++ {
		c = polyDeriv(c)
	}
	return polyEval(c, rho)
}

// zernikeEvaluator caches differentiated coefficient tables for one (l, m)
// pair so repeated node evaluations avoid recomputing the polynomial.
type zernikeEvaluator struct {
	coeffs [][]float64 // index: derivative order
}

func newZernikeEvaluator(l, m, maxDeriv int) *zernikeEvaluator {
	if m < 0 {
		m = -m
	}
	e := &zernikeEvaluator{coeffs: make([][]float64, maxDeriv+1)}
	e.coeffs[0] = zernikeCoeffs(l, m)
	for d := 1; d <= maxDeriv; d++ {
		e.coeffs[d] = polyDeriv(e.coeffs[d-1])
	}
	return e
}

func (e *zernikeEvaluator) at(rho float64, dr int) float64 {
	return polyEval(e.coeffs[dr], rho)
}
