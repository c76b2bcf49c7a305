// Package grid builds the collocation node sets the solver evaluates
// residuals on. Nodes are (rho, theta, zeta) triples with quadrature
// weights; zeta spans a single field period and the toroidal weight
// carries the NFP factor, so weights over a full grid sum to (2 pi)^2
// times the radial extent.
package grid

import (
	"fmt"
	"math"
)

// Pattern selects the radial placement of rings in a ConcentricGrid.
type Pattern string

const (
	PatternLinear Pattern = "linear"
	PatternCheb1  Pattern = "cheb1"  // clustered at both ends
	PatternCheb2  Pattern = "cheb2"  // clustered toward the boundary
	PatternJacobi Pattern = "jacobi" // Gauss-Jacobi nodes, weight rho
)

// Grid is a set of collocation nodes in flux coordinates.
type Grid struct {
	Rho     []float64
	Theta   []float64
	Zeta    []float64
	Weights []float64

	NFP int
	Sym bool
}

// NumNodes returns the number of collocation nodes.
func (g *Grid) NumNodes() int { return len(g.Rho) }

// New builds a custom grid from explicit nodes. Weights are uniform over
// the unique nodes, 4 pi^2 in total, with duplicated nodes splitting
// their share evenly (matching the behavior expected of caller-supplied
// node sets).
func New(nodes [][3]float64, nfp int) (*Grid, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("grid requires at least one node")
	}
	if nfp < 1 {
		return nil, fmt.Errorf("NFP must be >= 1, got %d", nfp)
	}
	g := &Grid{NFP: nfp}

	counts := make(map[[3]float64]int, len(nodes))
	for _, nd := range nodes {
		counts[nd]++
	}
	w := 4 * math.Pi * math.Pi / float64(len(counts))
	for _, nd := range nodes {
		g.Rho = append(g.Rho, nd[0])
		g.Theta = append(g.Theta, nd[1])
		g.Zeta = append(g.Zeta, nd[2])
		g.Weights = append(g.Weights, w/float64(counts[nd]))
	}
	return g, nil
}

// NewLinear builds a tensor-product grid with L+1 uniform radial levels,
// 2M+1 poloidal and 2N+1 toroidal angles. With axis the radial levels
// include rho=0, otherwise they start at the first interior level.
func NewLinear(L, M, N, nfp int, sym, axis bool) (*Grid, error) {
	if err := checkResolution(L, M, N, nfp); err != nil {
		return nil, err
	}
	nrho, ntheta, nzeta := L+1, 2*M+1, 2*N+1

	rho := make([]float64, nrho)
	for i := range rho {
		if axis {
			if nrho == 1 {
				rho[i] = 1
			} else {
				rho[i] = float64(i) / float64(nrho-1)
			}
		} else {
			rho[i] = float64(i+1) / float64(nrho)
		}
	}
	theta := uniformAngles(ntheta, 2*math.Pi, 0)
	zeta := uniformAngles(nzeta, 2*math.Pi/float64(nfp), 0)

	g := &Grid{NFP: nfp}
	drho := radialSpacing(rho)
	dtheta := 2 * math.Pi / float64(ntheta)
	dzeta := 2 * math.Pi / float64(nzeta) // NFP folded in: nzeta spans one period
	for k := 0; k < nzeta; k++ {
		for i := 0; i < nrho; i++ {
			for j := 0; j < ntheta; j++ {
				g.Rho = append(g.Rho, rho[i])
				g.Theta = append(g.Theta, theta[j])
				g.Zeta = append(g.Zeta, zeta[k])
				g.Weights = append(g.Weights, drho[i]*dtheta*dzeta)
			}
		}
	}
	if sym {
		g.reduceSymmetric()
	}
	return g, nil
}

// NewQuadrature builds the grid used for exact volume integrals of the
// spectral basis: Gauss-Jacobi radial nodes with measure rho d rho
// (L+1 points) and uniform angles. Node weights include the division by
// rho so that integrands carrying the sqrt(g) ~ rho volume factor are
// integrated exactly.
func NewQuadrature(L, M, N, nfp int) (*Grid, error) {
	if err := checkResolution(L, M, N, nfp); err != nil {
		return nil, err
	}
	nrho, ntheta, nzeta := L+1, 2*M+1, 2*N+1

	rnodes, rweights, err := GaussJacobiRho(nrho)
	if err != nil {
		return nil, err
	}
	theta := uniformAngles(ntheta, 2*math.Pi, 0)
	zeta := uniformAngles(nzeta, 2*math.Pi/float64(nfp), 0)

	g := &Grid{NFP: nfp}
	dtheta := 2 * math.Pi / float64(ntheta)
	dzeta := 2 * math.Pi / float64(nzeta)
	for i := 0; i < nrho; i++ {
		for k := 0; k < nzeta; k++ {
			for j := 0; j < ntheta; j++ {
				g.Rho = append(g.Rho, rnodes[i])
				g.Theta = append(g.Theta, theta[j])
				g.Zeta = append(g.Zeta, zeta[k])
				g.Weights = append(g.Weights, rweights[i]/rnodes[i]*dtheta*dzeta)
			}
		}
	}
	return g, nil
}

// NewConcentric builds rings of nodes whose poloidal resolution grows
// with radius, mirroring the resolving power of the Zernike basis. The
// rings count is L/2+1; radii follow pattern; ring j carries
// 2*round(M*rho_j)+1 poloidal nodes (one extra with a half-spacing
// offset under symmetry).
func NewConcentric(L, M, N, nfp int, sym, axis bool, pattern Pattern) (*Grid, error) {
	if err := checkResolution(L, M, N, nfp); err != nil {
		return nil, err
	}
	rings := L/2 + 1
	radii, err := ringRadii(rings, axis, pattern)
	if err != nil {
		return nil, err
	}
	nzeta := 2*N + 1
	zeta := uniformAngles(nzeta, 2*math.Pi/float64(nfp), 0)
	dzeta := 2 * math.Pi / float64(nzeta)
	drho := radialSpacing(radii)

	g := &Grid{NFP: nfp, Sym: sym}
	for k := 0; k < nzeta; k++ {
		for j, r := range radii {
			ntheta := 2*int(math.Round(float64(M)*r)) + 1
			offset := 0.0
			if sym {
				if r == 0 {
					// A single axis node; theta = pi/2 keeps it on the
					// symmetry line of the reduced domain.
					g.appendNode(0, math.Pi/2, zeta[k], drho[j]*2*math.Pi*dzeta)
					continue
				}
				ntheta++
				offset = math.Pi / float64(ntheta)
			} else if r == 0 {
				g.appendNode(0, 0, zeta[k], drho[j]*2*math.Pi*dzeta)
				continue
			}
			dtheta := 2 * math.Pi / float64(ntheta)
			for t := 0; t < ntheta; t++ {
				th := offset + float64(t)*dtheta
				if sym && th > math.Pi {
					continue
				}
				w := drho[j] * dtheta * dzeta
				if sym {
					w *= 2
				}
				g.appendNode(r, th, zeta[k], w)
			}
		}
	}
	return g, nil
}

func (g *Grid) appendNode(rho, theta, zeta, w float64) {
	g.Rho = append(g.Rho, rho)
	g.Theta = append(g.Theta, theta)
	g.Zeta = append(g.Zeta, zeta)
	g.Weights = append(g.Weights, w)
}

// reduceSymmetric drops nodes with theta in (pi, 2 pi) and doubles the
// weights of their reflected partners.
func (g *Grid) reduceSymmetric() {
	var rho, theta, zeta, w []float64
	for i := range g.Rho {
		if g.Theta[i] > math.Pi {
			continue
		}
		scale := 2.0
		// theta = 0 and theta = pi lie on the symmetry line.
		if g.Theta[i] == 0 || g.Theta[i] == math.Pi {
			scale = 1.0
		}
		rho = append(rho, g.Rho[i])
		theta = append(theta, g.Theta[i])
		zeta = append(zeta, g.Zeta[i])
		w = append(w, g.Weights[i]*scale)
	}
	g.Rho, g.Theta, g.Zeta, g.Weights = rho, theta, zeta, w
	g.Sym = true
}

func ringRadii(rings int, axis bool, pattern Pattern) ([]float64, error) {
	r := make([]float64, rings)
	switch pattern {
	case PatternLinear, "":
		for j := range r {
			if rings == 1 {
				r[j] = 1
			} else {
				r[j] = float64(j) / float64(rings-1)
			}
		}
	case PatternCheb1:
		for j := range r {
			if rings == 1 {
				r[j] = 1
			} else {
				r[j] = (1 - math.Cos(math.Pi*float64(j)/float64(rings-1))) / 2
			}
		}
	case PatternCheb2:
		for j := range r {
			if rings == 1 {
				r[j] = 1
			} else {
				r[j] = math.Sin(math.Pi * float64(j) / (2 * float64(rings-1)))
			}
		}
	case PatternJacobi:
		nodes, _, err := GaussJacobiRho(rings)
		if err != nil {
			return nil, err
		}
		copy(r, nodes)
	default:
		return nil, fmt.Errorf("unknown node pattern %q", pattern)
	}
	if rings > 1 {
		if axis {
			r[0] = 0
		} else if r[0] == 0 {
			// Shift the innermost ring off the axis, where the
			// coordinate map is singular.
			r[0] = r[1] / 4
		}
	}
	return r, nil
}

// radialSpacing assigns each level the midpoint interval around it,
// covering [0, 1].
func radialSpacing(rho []float64) []float64 {
	n := len(rho)
	d := make([]float64, n)
	if n == 1 {
		d[0] = 1
		return d
	}
	for i := range rho {
		lo, hi := 0.0, 1.0
		if i > 0 {
			lo = (rho[i-1] + rho[i]) / 2
		}
		if i < n-1 {
			hi = (rho[i] + rho[i+1]) / 2
		}
		d[i] = hi - lo
	}
	return d
}

func uniformAngles(n int, period, offset float64) []float64 {
	a := make([]float64, n)
	for i := range a {
		a[i] = offset + period*float64(i)/float64(n)
	}
	return a
}

func checkResolution(L, M, N, nfp int) error {
	if L < 0 || M < 0 || N < 0 {
		return fmt.Errorf("grid resolution must be non-negative, got L=%d M=%d N=%d", L, M, N)
	}
	if nfp < 1 {
		return fmt.Errorf("NFP must be >= 1, got %d", nfp)
	}
	return nil
}
