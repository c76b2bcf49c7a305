package grid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sum(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s
}

func TestCustomGridWeights(t *testing.T) {
	nodes := [][3]float64{
		{0, 0, 0},
		{0.25, 0, 0},
		{0.5, math.Pi / 2, math.Pi / 3},
		{0.5, math.Pi / 2, math.Pi / 3}, // duplicate splits its weight
		{0.75, math.Pi, math.Pi},
		{1, 2 * math.Pi, 3 * math.Pi / 2},
	}
	g, err := New(nodes, 1)
	require.NoError(t, err)

	w := 4 * math.Pi * math.Pi / float64(len(nodes)-1)
	want := []float64{w, w, w / 2, w / 2, w, w}
	for i, wi := range g.Weights {
		assert.InDelta(t, want[i], wi, 1e-12, "weight %d", i)
	}
	assert.InDelta(t, 4*math.Pi*math.Pi, sum(g.Weights), 1e-9)
}

func TestLinearGridNodes(t *testing.T) {
	L, M, N, nfp := 8, 5, 3, 2
	g, err := NewLinear(L, M, N, nfp, false, true)
	require.NoError(t, err)

	assert.Equal(t, (L+1)*(2*M+1)*(2*N+1), g.NumNodes())
	assert.InDelta(t, 4*math.Pi*math.Pi, sum(g.Weights), 1e-9)

	// Radial levels are uniform on [0, 1] including the axis.
	assert.InDelta(t, 0.0, g.Rho[0], 1e-12)
	// zeta stays within one field period.
	for _, z := range g.Zeta {
		assert.Less(t, z, 2*math.Pi/float64(nfp))
	}
}

func TestLinearGridSymmetric(t *testing.T) {
	g, err := NewLinear(4, 4, 2, 3, true, true)
	require.NoError(t, err)
	for _, th := range g.Theta {
		assert.LessOrEqual(t, th, math.Pi)
	}
	// Symmetry reduction preserves the total quadrature weight.
	assert.InDelta(t, 4*math.Pi*math.Pi, sum(g.Weights), 1e-9)
}

func TestGaussJacobiRhoExactness(t *testing.T) {
	// An n-point rule integrates x^k against the measure x dx exactly
	// for k <= 2n-1: int_0^1 x^k x dx = 1/(k+2).
	for _, n := range []int{1, 2, 3, 5, 8} {
		nodes, weights, err := GaussJacobiRho(n)
		require.NoError(t, err)
		require.Len(t, nodes, n)
		for k := 0; k <= 2*n-1; k++ {
			got := 0.0
			for i := range nodes {
				got += weights[i] * math.Pow(nodes[i], float64(k))
			}
			assert.InDelta(t, 1/float64(k+2), got, 1e-10, "n=%d k=%d", n, k)
		}
		// Nodes are interior and ascending.
		for i := range nodes {
			assert.Greater(t, nodes[i], 0.0)
			assert.Less(t, nodes[i], 1.0)
			if i > 0 {
				assert.Greater(t, nodes[i], nodes[i-1])
			}
		}
	}
}

func TestGaussJacobiRhoOnePoint(t *testing.T) {
	nodes, weights, err := GaussJacobiRho(1)
	require.NoError(t, err)
	// The one-point rule for weight x on [0,1] sits at the centroid 2/3
	// with weight 1/2.
	assert.InDelta(t, 2.0/3.0, nodes[0], 1e-12)
	assert.InDelta(t, 0.5, weights[0], 1e-12)
}

func TestQuadratureGridLayout(t *testing.T) {
	L, M, N, nfp := 2, 2, 0, 1
	g, err := NewQuadrature(L, M, N, nfp)
	require.NoError(t, err)

	// L+1 radial levels, each carrying 2M+1 theta nodes at a single zeta.
	require.Equal(t, (L+1)*(2*M+1), g.NumNodes())

	// All theta nodes on the first radial level share the same rho, and
	// theta is uniform starting at zero.
	for j := 0; j < 2*M+1; j++ {
		assert.InDelta(t, g.Rho[0], g.Rho[j], 1e-12)
		assert.InDelta(t, 2*math.Pi*float64(j)/5, g.Theta[j], 1e-12)
		assert.InDelta(t, 0.0, g.Zeta[j], 1e-12)
	}

	// The rule integrates f = rho exactly over the unit volume element:
	// sum w_i rho_i = int rho drho dtheta dzeta = 1/2 * 4 pi^2.
	got := 0.0
	for i := range g.Rho {
		got += g.Weights[i] * g.Rho[i]
	}
	assert.InDelta(t, 2*math.Pi*math.Pi, got, 1e-9)
}

func TestConcentricGridAnsiPattern(t *testing.T) {
	// M=2, N=0: axis ring plus a full ring at rho=1 with 2M+1 nodes.
	g, err := NewConcentric(2, 2, 0, 1, false, true, PatternLinear)
	require.NoError(t, err)

	wantRho := []float64{0, 1, 1, 1, 1, 1}
	wantTheta := []float64{0, 0, 2 * math.Pi / 5, 4 * math.Pi / 5, 6 * math.Pi / 5, 8 * math.Pi / 5}
	require.Equal(t, len(wantRho), g.NumNodes())
	for i := range wantRho {
		assert.InDelta(t, wantRho[i], g.Rho[i], 1e-12, "rho %d", i)
		assert.InDelta(t, wantTheta[i], g.Theta[i], 1e-12, "theta %d", i)
	}
	assert.InDelta(t, 4*math.Pi*math.Pi, sum(g.Weights), 1e-9)
}

func TestConcentricGridSymmetric(t *testing.T) {
	// L=4 -> rings at rho = 0, 0.5, 1 under the linear pattern.
	g, err := NewConcentric(4, 2, 0, 1, true, true, PatternLinear)
	require.NoError(t, err)

	wantRho := []float64{0, 0.5, 0.5, 1, 1, 1}
	wantTheta := []float64{
		math.Pi / 2,
		math.Pi / 4, 3 * math.Pi / 4,
		math.Pi / 6, math.Pi / 2, 5 * math.Pi / 6,
	}
	require.Equal(t, len(wantRho), g.NumNodes())
	for i := range wantRho {
		assert.InDelta(t, wantRho[i], g.Rho[i], 1e-12, "rho %d", i)
		assert.InDelta(t, wantTheta[i], g.Theta[i], 1e-12, "theta %d", i)
	}
	// Reduced-domain weights still cover the full torus.
	assert.InDelta(t, 4*math.Pi*math.Pi, sum(g.Weights), 1e-9)
}

func TestConcentricGridJacobiPattern(t *testing.T) {
	g, err := NewConcentric(6, 3, 1, 2, false, false, PatternJacobi)
	require.NoError(t, err)
	require.Greater(t, g.NumNodes(), 0)
	// Jacobi radii are interior points of (0, 1), ascending per ring.
	prev := -1.0
	for i := 0; i < g.NumNodes(); i++ {
		if g.Zeta[i] != g.Zeta[0] {
			break
		}
		if g.Rho[i] != prev {
			assert.Greater(t, g.Rho[i], prev)
			assert.Greater(t, g.Rho[i], 0.0)
			assert.Less(t, g.Rho[i], 1.0)
			prev = g.Rho[i]
		}
	}
	assert.InDelta(t, 4*math.Pi*math.Pi, sum(g.Weights), 1e-9)
}

func TestRingRadiiPatterns(t *testing.T) {
	lin, err := ringRadii(3, true, PatternLinear)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, lin[0], 1e-12)
	assert.InDelta(t, 0.5, lin[1], 1e-12)
	assert.InDelta(t, 1.0, lin[2], 1e-12)

	ch1, err := ringRadii(3, true, PatternCheb1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, ch1[0], 1e-12)
	assert.InDelta(t, 1.0, ch1[2], 1e-12)

	ch2, err := ringRadii(3, true, PatternCheb2)
	require.NoError(t, err)
	// cheb2 clusters toward the boundary.
	assert.Greater(t, ch2[1], 0.5)
	assert.InDelta(t, 1.0, ch2[2], 1e-12)

	_, err = ringRadii(3, false, Pattern("spiral"))
	require.Error(t, err)
}

// Without the axis flag every pattern must keep its rings strictly off
// rho=0, where the coordinate map is singular; force-balance grids rely
// on this.
func TestRingRadiiExcludeAxis(t *testing.T) {
	for _, pattern := range []Pattern{PatternLinear, PatternCheb1, PatternCheb2, PatternJacobi} {
		radii, err := ringRadii(4, false, pattern)
		require.NoError(t, err, "pattern %s", pattern)
		for j, r := range radii {
			assert.Greater(t, r, 0.0, "pattern %s ring %d", pattern, j)
			assert.LessOrEqual(t, r, 1.0, "pattern %s ring %d", pattern, j)
		}
		// The shifted innermost ring stays inside the second.
		assert.Less(t, radii[0], radii[1], "pattern %s", pattern)
	}

	g, err := NewConcentric(4, 2, 0, 1, false, false, PatternLinear)
	require.NoError(t, err)
	for i := 0; i < g.NumNodes(); i++ {
		assert.Greater(t, g.Rho[i], 0.0, "node %d", i)
	}
}
