package equilibrium

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/stellmhd/stellmhd/internal/basis"
)

// LinearConstraint is a factorized set of linear equality constraints
// A x = b on the full coefficient vector. The feasible set is
// parameterized as x = xp + Z y where xp is the minimum-norm particular
// solution and the columns of Z span the null space of A, so the
// optimizer works in the reduced variable y and every candidate state
// satisfies the constraints exactly.
type LinearConstraint struct {
	A  *mat.Dense
	b  []float64
	Z  *mat.Dense
	xp []float64
}

// NewBoundaryConstraint builds the fixed-boundary constraints for an
// equilibrium: at rho=1 every Zernike radial polynomial equals one, so
// for each angular mode (m, n) of the R and Z bases the sum of spectral
// coefficients over l must equal the boundary surface coefficient. Modes
// the equilibrium resolves but the boundary does not are pinned to zero.
func NewBoundaryConstraint(eq *Equilibrium) (*LinearConstraint, error) {
	ndof := eq.NumDOF()
	nr := len(eq.RLmn)
	nz := len(eq.ZLmn)

	// Angular modes are grouped in the (sorted) order the basis lists
	// them, so the assembled rows and the null-space basis below are
	// identical from run to run.
	type angular struct{ m, n int }
	group := func(modes []basis.Mode, offset int) ([]angular, map[angular][]int) {
		idx := make(map[angular][]int, len(modes))
		var keys []angular
		for i, md := range modes {
			k := angular{md.M, md.N}
			if _, ok := idx[k]; !ok {
				keys = append(keys, k)
			}
			idx[k] = append(idx[k], i+offset)
		}
		return keys, idx
	}
	rKeys, rRows := group(eq.RBasis.Modes, 0)
	zKeys, zRows := group(eq.ZBasis.Modes, nr)
	lKeys, lRows := group(eq.LBasis.Modes, nr+nz)

	var rows [][]int
	var rhs []float64
	for _, k := range rKeys {
		rc, _ := eq.Boundary.Coeff(k.m, k.n)
		rows = append(rows, rRows[k])
		rhs = append(rhs, rc)
	}
	for _, k := range zKeys {
		_, zc := eq.Boundary.Coeff(k.m, k.n)
		rows = append(rows, zRows[k])
		rhs = append(rhs, zc)
	}
	// Gauge condition: lambda vanishes on the boundary mode by mode,
	// matching the convention that theta equals the boundary poloidal
	// angle at rho=1.
	for _, k := range lKeys {
		rows = append(rows, lRows[k])
		rhs = append(rhs, 0)
	}

	A := mat.NewDense(len(rows), ndof, nil)
	for r, cols := range rows {
		for _, c := range cols {
			A.Set(r, c, 1)
		}
	}
	return factorize(A, rhs)
}

func factorize(A *mat.Dense, b []float64) (*LinearConstraint, error) {
	m, n := A.Dims()
	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDFull) {
		return nil, fmt.Errorf("constraint matrix SVD failed")
	}
	sv := svd.Values(nil)
	rank := 0
	tol := 1e-12 * sv[0] * float64(max(m, n))
	for _, s := range sv {
		if s > tol {
			rank++
		}
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// xp = V S^-1 U^T b over the numerical rank.
	xp := make([]float64, n)
	for k := 0; k < rank; k++ {
		var utb float64
		for i := 0; i < m; i++ {
			utb += u.At(i, k) * b[i]
		}
		utb /= sv[k]
		for j := 0; j < n; j++ {
			xp[j] += v.At(j, k) * utb
		}
	}

	nullDim := n - rank
	if nullDim == 0 {
		return nil, fmt.Errorf("constraints leave no degrees of freedom")
	}
	Z := mat.NewDense(n, nullDim, nil)
	for j := 0; j < nullDim; j++ {
		for i := 0; i < n; i++ {
			Z.Set(i, j, v.At(i, rank+j))
		}
	}
	return &LinearConstraint{A: A, b: b, Z: Z, xp: xp}, nil
}

// DimFull returns the length of the full coefficient vector.
func (c *LinearConstraint) DimFull() int {
	n, _ := c.Z.Dims()
	return n
}

// DimReduced returns the number of free variables after the constraints
// are eliminated.
func (c *LinearConstraint) DimReduced() int {
	_, k := c.Z.Dims()
	return k
}

// Recover maps a reduced vector y to the full feasible state
// x = xp + Z y.
func (c *LinearConstraint) Recover(y []float64) ([]float64, error) {
	n, k := c.Z.Dims()
	if len(y) != k {
		return nil, fmt.Errorf("reduced vector has %d entries, want %d", len(y), k)
	}
	x := make([]float64, n)
	copy(x, c.xp)
	yv := mat.NewVecDense(k, y)
	var zy mat.VecDense
	zy.MulVec(c.Z, yv)
	for i := range x {
		x[i] += zy.AtVec(i)
	}
	return x, nil
}

// Project maps a full state to the reduced variable y = Z^T (x - xp).
// For feasible x this inverts Recover since Z has orthonormal columns.
func (c *LinearConstraint) Project(x []float64) ([]float64, error) {
	n, k := c.Z.Dims()
	if len(x) != n {
		return nil, fmt.Errorf("state vector has %d entries, want %d", len(x), n)
	}
	d := make([]float64, n)
	for i := range d {
		d[i] = x[i] - c.xp[i]
	}
	y := make([]float64, k)
	dv := mat.NewVecDense(n, d)
	yv := mat.NewVecDense(k, y)
	yv.MulVec(c.Z.T(), dv)
	return y, nil
}

// Residual returns the constraint violation A x - b, mainly for tests
// and diagnostics.
func (c *LinearConstraint) Residual(x []float64) []float64 {
	m, _ := c.A.Dims()
	out := make([]float64, m)
	xv := mat.NewVecDense(len(x), x)
	rv := mat.NewVecDense(m, out)
	rv.MulVec(c.A, xv)
	for i := range out {
		out[i] -= c.b[i]
	}
	return out
}
