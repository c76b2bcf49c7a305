package basis

import "math"

// fourier evaluates the d-th derivative of the real Fourier factor for
// mode number m at angle x: cos(m x) for m >= 0, sin(|m| x) for m < 0.
func fourier(m int, x float64, d int) float64 {
	am := math.Abs(float64(m))
	arg := am * x
	// Each derivative advances the phase by pi/2 and multiplies by |m|.
	shift := float64(d) * math.Pi / 2
	scale := math.Pow(am, float64(d))
	if m >= 0 {
		return scale * math.Cos(arg+shift)
	}
	return scale * math.Sin(arg+shift)
}

// Symmetry restricts a basis to one parity under stellarator symmetry
// (theta, zeta) -> (-theta, -zeta).
type Symmetry string

const (
	SymNone Symmetry = ""    // no restriction
	SymCos  Symmetry = "cos" // even series: R, |B|, pressure-like quantities
	SymSin  Symmetry = "sin" // odd series: Z, lambda
)

// keepsMode reports whether the (m, n) Fourier pair survives the symmetry
// restriction. The product F_m(theta) G_n(NFP zeta) is even under
// (theta, zeta) -> (-theta, -zeta) when both factors share parity
// (m >= 0, n >= 0 or m < 0, n < 0) and odd when exactly one factor is a
// sine.
func (s Symmetry) keepsMode(m, n int) bool {
	switch s {
	case SymCos:
		return (m >= 0 && n >= 0) || (m < 0 && n < 0)
	case SymSin:
		return (m < 0 && n >= 0) || (m >= 0 && n < 0)
	default:
		return true
	}
}
