// Package transform connects spectral bases to collocation grids. A
// Transform precomputes the dense matrices that evaluate a coefficient
// vector (or its partial derivatives) on a grid, and can fit grid values
// back onto the basis by least squares. All matrices are built up front,
// so a Transform is safe for concurrent reads once constructed.
package transform

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/stellmhd/stellmhd/internal/basis"
	"github.com/stellmhd/stellmhd/internal/grid"
)

// Deriv identifies a partial derivative order (d rho, d theta, d zeta).
type Deriv [3]int

// Transform evaluates one Fourier-Zernike basis on one grid.
type Transform struct {
	Grid  *grid.Grid
	Basis *basis.FourierZernike

	mats map[Deriv]*mat.Dense
	svd  *mat.SVD
	rank int
}

// New precomputes evaluation matrices for the requested derivative
// orders. fit additionally factorizes the zeroth-order matrix so Fit can
// be called. The zeroth order (0,0,0) is always included.
func New(g *grid.Grid, b *basis.FourierZernike, derivs []Deriv, fit bool) (*Transform, error) {
	if g.NumNodes() == 0 {
		return nil, fmt.Errorf("transform requires a non-empty grid")
	}
	if b.NumModes() == 0 {
		return nil, fmt.Errorf("transform requires a non-empty basis")
	}
	t := &Transform{Grid: g, Basis: b, mats: make(map[Deriv]*mat.Dense)}
	all := append([]Deriv{{0, 0, 0}}, derivs...)
	for _, d := range all {
		if _, ok := t.mats[d]; ok {
			continue
		}
		t.mats[d] = b.Evaluate(g.Rho, g.Theta, g.Zeta, d[0], d[1], d[2])
	}
	if fit {
		var svd mat.SVD
		if ok := svd.Factorize(t.mats[Deriv{0, 0, 0}], mat.SVDThin); !ok {
			return nil, fmt.Errorf("failed to factorize transform matrix for fitting")
		}
		t.svd = &svd
		vals := svd.Values(nil)
		rcond := 1e-12 * vals[0]
		for _, s := range vals {
			if s > rcond {
				t.rank++
			}
		}
	}
	return t, nil
}

// Derivs returns the derivative orders this transform can apply.
func (t *Transform) Derivs() []Deriv {
	out := make([]Deriv, 0, len(t.mats))
	for d := range t.mats {
		out = append(out, d)
	}
	return out
}

// Apply evaluates the series with coefficients c, differentiated to the
// given orders, at every grid node.
func (t *Transform) Apply(c []float64, dr, dt, dz int) ([]float64, error) {
	a, ok := t.mats[Deriv{dr, dt, dz}]
	if !ok {
		return nil, fmt.Errorf("transform was not built with derivative order (%d,%d,%d)", dr, dt, dz)
	}
	if len(c) != t.Basis.NumModes() {
		return nil, fmt.Errorf("coefficient vector has %d entries, basis has %d modes", len(c), t.Basis.NumModes())
	}
	out := mat.NewVecDense(t.Grid.NumNodes(), nil)
	out.MulVec(a, mat.NewVecDense(len(c), c))
	return out.RawVector().Data, nil
}

// Fit returns the least-squares spectral coefficients reproducing the
// given grid values. Used for pseudo-spectral differentiation of
// quantities known only pointwise.
func (t *Transform) Fit(values []float64) ([]float64, error) {
	if t.svd == nil {
		return nil, fmt.Errorf("transform was not built for fitting")
	}
	if len(values) != t.Grid.NumNodes() {
		return nil, fmt.Errorf("value vector has %d entries, grid has %d nodes", len(values), t.Grid.NumNodes())
	}
	var c mat.VecDense
	t.svd.SolveVecTo(&c, mat.NewVecDense(len(values), values), t.rank)
	out := make([]float64, t.Basis.NumModes())
	copy(out, c.RawVector().Data)
	return out, nil
}
