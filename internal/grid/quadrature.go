package grid

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// GaussJacobiRho returns an n-point Gauss-Jacobi rule for the measure
// rho d rho on [0, 1]: sum_i w_i f(x_i) = int_0^1 f(x) x dx exactly for
// polynomials f of degree <= 2n-1. This is the natural radial quadrature
// for flux coordinates, where the volume element carries a factor of rho
// near the axis.
//
// Nodes and weights come from the Golub-Welsch eigenvalue method applied
// to the Jacobi(alpha=0, beta=1) recurrence, using gonum's symmetric
// eigensolver.
func GaussJacobiRho(n int) (nodes, weights []float64, err error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("quadrature order must be >= 1, got %d", n)
	}

	const alpha, beta = 0.0, 1.0
	// mu0 = int_{-1}^{1} (1-t)^alpha (1+t)^beta dt
	mu0 := 2.0

	j := mat.NewSymDense(n, nil)
	for k := 0; k < n; k++ {
		s := 2*float64(k) + alpha + beta
		j.SetSym(k, k, (beta*beta-alpha*alpha)/(s*(s+2)))
		if k >= 1 {
			fk := float64(k)
			b := 4 * fk * (fk + alpha) * (fk + beta) * (fk + alpha + beta) /
				(s * s * (s + 1) * (s - 1))
			j.SetSym(k-1, k, math.Sqrt(b))
		}
	}

	var es mat.EigenSym
	if ok := es.Factorize(j, true); !ok {
		return nil, nil, fmt.Errorf("quadrature eigendecomposition failed for order %d", n)
	}
	vals := es.Values(nil)
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	nodes = make([]float64, n)
	weights = make([]float64, n)
	for i := 0; i < n; i++ {
		// Map from [-1, 1] to [0, 1].
		nodes[i] = (vals[i] + 1) / 2
		v0 := vecs.At(0, i)
		// The factor 1/4 accounts for the interval map applied to both
		// the measure x and the differential dx.
		weights[i] = mu0 * v0 * v0 / 4
	}
	return nodes, weights, nil
}
