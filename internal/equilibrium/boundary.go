package equilibrium

import (
	"fmt"

	"github.com/stellmhd/stellmhd/internal/basis"
	"github.com/stellmhd/stellmhd/internal/input"
)

// Boundary is the last closed flux surface in double Fourier form. Under
// stellarator symmetry R keeps the cos-parity modes and Z the sin-parity
// modes.
type Boundary struct {
	RBasis *basis.DoubleFourier
	ZBasis *basis.DoubleFourier
	Rmn    []float64
	Zmn    []float64
}

// NewBoundary assembles the surface from parsed coefficient rows. The
// basis is truncated at the largest mode numbers present. Coefficients
// whose parity is excluded by symmetry are rejected rather than silently
// dropped.
func NewBoundary(coeffs []input.BoundaryCoeff, nfp int, sym bool) (*Boundary, error) {
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("boundary requires at least one coefficient")
	}
	M, N := 0, 0
	for _, c := range coeffs {
		if am := abs(c.M); am > M {
			M = am
		}
		if an := abs(c.N); an > N {
			N = an
		}
	}
	rsym, zsym := basis.SymNone, basis.SymNone
	if sym {
		rsym, zsym = basis.SymCos, basis.SymSin
	}
	rb, err := basis.NewDoubleFourier(M, N, nfp, rsym)
	if err != nil {
		return nil, err
	}
	zb, err := basis.NewDoubleFourier(M, N, nfp, zsym)
	if err != nil {
		return nil, err
	}
	b := &Boundary{
		RBasis: rb,
		ZBasis: zb,
		Rmn:    make([]float64, rb.NumModes()),
		Zmn:    make([]float64, zb.NumModes()),
	}
	for _, c := range coeffs {
		if c.R != 0 {
			i, ok := indexOf2D(rb, c.M, c.N)
			if !ok {
				return nil, fmt.Errorf("boundary R coefficient (m=%d, n=%d) violates stellarator symmetry", c.M, c.N)
			}
			b.Rmn[i] = c.R
		}
		if c.Z != 0 {
			i, ok := indexOf2D(zb, c.M, c.N)
			if !ok {
				return nil, fmt.Errorf("boundary Z coefficient (m=%d, n=%d) violates stellarator symmetry", c.M, c.N)
			}
			b.Zmn[i] = c.Z
		}
	}
	return b, nil
}

func indexOf2D(b *basis.DoubleFourier, m, n int) (int, bool) {
	for i, md := range b.Modes {
		if md.M == m && md.N == n {
			return i, true
		}
	}
	return 0, false
}

// Scaled returns a copy with all non-axisymmetric (n != 0) modes
// multiplied by ratio. Continuation uses this to morph from an
// axisymmetric surface to the full 3-D shape.
func (b *Boundary) Scaled(ratio float64) *Boundary {
	out := &Boundary{
		RBasis: b.RBasis,
		ZBasis: b.ZBasis,
		Rmn:    append([]float64(nil), b.Rmn...),
		Zmn:    append([]float64(nil), b.Zmn...),
	}
	for i, md := range b.RBasis.Modes {
		if md.N != 0 {
			out.Rmn[i] *= ratio
		}
	}
	for i, md := range b.ZBasis.Modes {
		if md.N != 0 {
			out.Zmn[i] *= ratio
		}
	}
	return out
}

// Eval returns R and Z on the surface at the given angles.
func (b *Boundary) Eval(theta, zeta []float64) (r, z []float64) {
	ra := b.RBasis.Evaluate(theta, zeta, 0, 0)
	za := b.ZBasis.Evaluate(theta, zeta, 0, 0)
	r = make([]float64, len(theta))
	z = make([]float64, len(theta))
	for i := range theta {
		for j := range b.Rmn {
			r[i] += ra.At(i, j) * b.Rmn[j]
		}
		for j := range b.Zmn {
			z[i] += za.At(i, j) * b.Zmn[j]
		}
	}
	return r, z
}

// Coeff returns the (R, Z) coefficients of mode (m, n); missing modes
// read as zero.
func (b *Boundary) Coeff(m, n int) (rc, zc float64) {
	if i, ok := indexOf2D(b.RBasis, m, n); ok {
		rc = b.Rmn[i]
	}
	if i, ok := indexOf2D(b.ZBasis, m, n); ok {
		zc = b.Zmn[i]
	}
	return rc, zc
}

// Axis is the initial magnetic-axis guess as a toroidal Fourier curve.
type Axis struct {
	RBasis *basis.FourierSeries
	ZBasis *basis.FourierSeries
	Rn     []float64
	Zn     []float64
}

// NewAxis assembles the axis guess from parsed rows. When no rows are
// given the axis falls back to the boundary's m=0 modes.
func NewAxis(coeffs []input.AxisCoeff, b *Boundary, nfp int, sym bool) (*Axis, error) {
	if len(coeffs) == 0 {
		coeffs = axisFromBoundary(b)
	}
	N := 0
	for _, c := range coeffs {
		if an := abs(c.N); an > N {
			N = an
		}
	}
	rsym, zsym := basis.SymNone, basis.SymNone
	if sym {
		rsym, zsym = basis.SymCos, basis.SymSin
	}
	rb, err := basis.NewFourierSeries(N, nfp, rsym)
	if err != nil {
		return nil, err
	}
	zb, err := basis.NewFourierSeries(N, nfp, zsym)
	if err != nil {
		return nil, err
	}
	a := &Axis{
		RBasis: rb,
		ZBasis: zb,
		Rn:     make([]float64, rb.NumModes()),
		Zn:     make([]float64, zb.NumModes()),
	}
	for _, c := range coeffs {
		if c.R != 0 {
			i, ok := indexOf1D(rb, c.N)
			if !ok {
				return nil, fmt.Errorf("axis R coefficient n=%d violates stellarator symmetry", c.N)
			}
			a.Rn[i] = c.R
		}
		if c.Z != 0 {
			i, ok := indexOf1D(zb, c.N)
			if !ok {
				return nil, fmt.Errorf("axis Z coefficient n=%d violates stellarator symmetry", c.N)
			}
			a.Zn[i] = c.Z
		}
	}
	return a, nil
}

func axisFromBoundary(b *Boundary) []input.AxisCoeff {
	var out []input.AxisCoeff
	seen := make(map[int]bool)
	for _, modes := range [][]basis.Mode{b.RBasis.Modes, b.ZBasis.Modes} {
		for _, md := range modes {
			if md.M != 0 || seen[md.N] {
				continue
			}
			seen[md.N] = true
			rc, zc := b.Coeff(0, md.N)
			out = append(out, input.AxisCoeff{N: md.N, R: rc, Z: zc})
		}
	}
	if len(out) == 0 {
		out = []input.AxisCoeff{{N: 0, R: 1}}
	}
	return out
}

func indexOf1D(b *basis.FourierSeries, n int) (int, bool) {
	for i, md := range b.Modes {
		if md.N == n {
			return i, true
		}
	}
	return 0, false
}

// Eval returns the axis curve R and Z at the given toroidal angles.
func (a *Axis) Eval(zeta []float64) (r, z []float64) {
	ra := a.RBasis.Evaluate(zeta, 0)
	za := a.ZBasis.Evaluate(zeta, 0)
	r = make([]float64, len(zeta))
	z = make([]float64, len(zeta))
	for i := range zeta {
		for j := range a.Rn {
			r[i] += ra.At(i, j) * a.Rn[j]
		}
		for j := range a.Zn {
			z[i] += za.At(i, j) * a.Zn[j]
		}
	}
	return r, z
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
