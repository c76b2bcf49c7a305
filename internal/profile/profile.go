// Package profile implements the 1-D radial profiles (pressure and
// rotational transform or toroidal current) as even power series in rho.
package profile

import (
	"fmt"
	"math"
	"sort"
)

// PowerSeries is f(rho) = sum_l c_l rho^l over even degrees l.
type PowerSeries struct {
	degrees []int
	coeffs  []float64
}

// NewPowerSeries builds a profile from (degree, coefficient) pairs.
// Degrees must be even and non-negative; duplicates are rejected.
func NewPowerSeries(degrees []int, coeffs []float64) (*PowerSeries, error) {
	if len(degrees) != len(coeffs) {
		return nil, fmt.Errorf("got %d degrees and %d coefficients", len(degrees), len(coeffs))
	}
	seen := make(map[int]bool, len(degrees))
	for _, l := range degrees {
		if l < 0 || l%2 != 0 {
			return nil, fmt.Errorf("profile degree must be even and non-negative, got %d", l)
		}
		if seen[l] {
			return nil, fmt.Errorf("duplicate profile degree %d", l)
		}
		seen[l] = true
	}
	p := &PowerSeries{
		degrees: append([]int(nil), degrees...),
		coeffs:  append([]float64(nil), coeffs...),
	}
	sort.Sort(byDegree{p})
	return p, nil
}

// Zero returns the identically-zero profile.
func Zero() *PowerSeries {
	return &PowerSeries{}
}

type byDegree struct{ p *PowerSeries }

func (s byDegree) Len() int           { return len(s.p.degrees) }
func (s byDegree) Less(i, j int) bool { return s.p.degrees[i] < s.p.degrees[j] }
func (s byDegree) Swap(i, j int) {
	s.p.degrees[i], s.p.degrees[j] = s.p.degrees[j], s.p.degrees[i]
	s.p.coeffs[i], s.p.coeffs[j] = s.p.coeffs[j], s.p.coeffs[i]
}

// Value evaluates f(rho).
func (p *PowerSeries) Value(rho float64) float64 {
	v := 0.0
	for i, l := range p.degrees {
		v += p.coeffs[i] * math.Pow(rho, float64(l))
	}
	return v
}

// Deriv evaluates df/drho.
func (p *PowerSeries) Deriv(rho float64) float64 {
	v := 0.0
	for i, l := range p.degrees {
		if l == 0 {
			continue
		}
		v += p.coeffs[i] * float64(l) * math.Pow(rho, float64(l-1))
	}
	return v
}

// Values evaluates f at every rho in the slice.
func (p *PowerSeries) Values(rho []float64) []float64 {
	out := make([]float64, len(rho))
	for i, r := range rho {
		out[i] = p.Value(r)
	}
	return out
}

// Derivs evaluates df/drho at every rho in the slice.
func (p *PowerSeries) Derivs(rho []float64) []float64 {
	out := make([]float64, len(rho))
	for i, r := range rho {
		out[i] = p.Deriv(r)
	}
	return out
}

// Scaled returns a copy with every coefficient multiplied by ratio.
// Continuation stages use this to ramp pressure and current.
func (p *PowerSeries) Scaled(ratio float64) *PowerSeries {
	out := &PowerSeries{
		degrees: append([]int(nil), p.degrees...),
		coeffs:  make([]float64, len(p.coeffs)),
	}
	for i, c := range p.coeffs {
		out.coeffs[i] = c * ratio
	}
	return out
}

// Coefficients returns the (degree, coefficient) pairs in ascending
// degree order.
func (p *PowerSeries) Coefficients() ([]int, []float64) {
	return append([]int(nil), p.degrees...), append([]float64(nil), p.coeffs...)
}

// IsZero reports whether the profile has no nonzero coefficients.
func (p *PowerSeries) IsZero() bool {
	for _, c := range p.coeffs {
		if c != 0 {
			return false
		}
	}
	return true
}
