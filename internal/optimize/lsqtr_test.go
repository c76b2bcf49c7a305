package optimize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// funcProblem wraps closures as a Problem.
type funcProblem struct {
	res func(x []float64) []float64
	jac func(x []float64) *mat.Dense
}

func (p funcProblem) Residual(x []float64) ([]float64, error) { return p.res(x), nil }

func (p funcProblem) Jacobian(_ context.Context, x, _ []float64) (*mat.Dense, error) {
	return p.jac(x), nil
}

func TestSolveLinearLeastSquares(t *testing.T) {
	// residual = A x - b with A well conditioned; the minimum is the
	// normal-equation solution x = (2, -1).
	A := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	b := []float64{2, -1, 1}
	p := funcProblem{
		res: func(x []float64) []float64 {
			out := make([]float64, 3)
			for i := 0; i < 3; i++ {
				out[i] = A.At(i, 0)*x[0] + A.At(i, 1)*x[1] - b[i]
			}
			return out
		},
		jac: func(x []float64) *mat.Dense { return mat.DenseCopyOf(A) },
	}

	res, err := Solve(context.Background(), p, []float64{0, 0}, Options{
		FTol: 1e-14, XTol: 1e-14, GTol: 1e-10, MaxIter: 50,
		MaxTrustRadius: 10,
	}, nil)
	require.NoError(t, err)
	assert.True(t, res.Status.Success(), "status: %v", res.Status)
	assert.InDelta(t, 2, res.X[0], 1e-8)
	assert.InDelta(t, -1, res.X[1], 1e-8)
	assert.InDelta(t, 0, res.Cost, 1e-12)
}

func TestSolveRosenbrock(t *testing.T) {
	// Rosenbrock in least-squares form: r = (10 (y - x^2), 1 - x).
	p := funcProblem{
		res: func(x []float64) []float64 {
			return []float64{10 * (x[1] - x[0]*x[0]), 1 - x[0]}
		},
		jac: func(x []float64) *mat.Dense {
			return mat.NewDense(2, 2, []float64{
				-20 * x[0], 10,
				-1, 0,
			})
		},
	}

	res, err := Solve(context.Background(), p, []float64{-1.2, 1}, Options{
		FTol: 1e-15, XTol: 1e-15, GTol: 1e-10, MaxIter: 500,
		MaxTrustRadius: 10,
	}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1, res.X[0], 1e-6)
	assert.InDelta(t, 1, res.X[1], 1e-6)
	assert.GreaterOrEqual(t, res.NFev, res.NJev)
}

func TestSolveGtolAtMinimum(t *testing.T) {
	p := funcProblem{
		res: func(x []float64) []float64 { return []float64{x[0], x[1]} },
		jac: func(x []float64) *mat.Dense {
			return mat.NewDense(2, 2, []float64{1, 0, 0, 1})
		},
	}
	res, err := Solve(context.Background(), p, []float64{0, 0}, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusGtol, res.Status)
	assert.Equal(t, 0, res.Iter)
}

func TestSolveMaxIter(t *testing.T) {
	p := funcProblem{
		res: func(x []float64) []float64 {
			return []float64{10 * (x[1] - x[0]*x[0]), 1 - x[0]}
		},
		jac: func(x []float64) *mat.Dense {
			return mat.NewDense(2, 2, []float64{-20 * x[0], 10, -1, 0})
		},
	}
	res, err := Solve(context.Background(), p, []float64{-1.2, 1}, Options{
		FTol: 1e-15, XTol: 1e-15, GTol: 1e-15, MaxIter: 2,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusMaxIter, res.Status)
	assert.Equal(t, 2, res.Iter)
}

func TestSolveContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := funcProblem{
		res: func(x []float64) []float64 { return []float64{1 - x[0]} },
		jac: func(x []float64) *mat.Dense { return mat.NewDense(1, 1, []float64{-1}) },
	}
	_, err := Solve(ctx, p, []float64{0}, Options{}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTrustRegionStepRespectsRadius(t *testing.T) {
	// One singular value, Gauss-Newton step of length 5; the radius
	// caps it.
	sv := []float64{1}
	v := mat.NewDense(1, 1, []float64{1})
	utf := []float64{5}

	step := trustRegionStep(sv, v, utf, 0.5)
	assert.InDelta(t, 0.5, norm(step), 1e-8)

	step = trustRegionStep(sv, v, utf, 100)
	assert.InDelta(t, 5, norm(step), 1e-12)
}

func TestStatusStrings(t *testing.T) {
	assert.True(t, StatusFtol.Success())
	assert.False(t, StatusMaxIter.Success())
	assert.Equal(t, "maximum iterations reached", StatusMaxIter.String())
}
