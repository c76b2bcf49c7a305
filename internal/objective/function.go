package objective

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/stellmhd/stellmhd/internal/equilibrium"
)

// Function aggregates one or more Objectives over the reduced variable
// y of a constraint factorization, so the optimizer sees an
// unconstrained least-squares problem whose every iterate satisfies
// the boundary conditions exactly. Residuals of multiple objectives
// are concatenated in order.
type Function struct {
	objs []Objective
	con  *equilibrium.LinearConstraint
	log  *zap.Logger
}

// NewFunction wraps objectives with the constraint factorization.
func NewFunction(con *equilibrium.LinearConstraint, log *zap.Logger, objs ...Objective) *Function {
	if log == nil {
		log = zap.NewNop()
	}
	return &Function{objs: objs, con: con, log: log}
}

// Dim returns the total residual dimension.
func (fn *Function) Dim() int {
	var n int
	for _, o := range fn.objs {
		n += o.Dim()
	}
	return n
}

// DimReduced returns the number of free variables.
func (fn *Function) DimReduced() int { return fn.con.DimReduced() }

// Recover maps the reduced variable to the full state vector.
func (fn *Function) Recover(y []float64) ([]float64, error) { return fn.con.Recover(y) }

// Project maps a feasible full state to the reduced variable.
func (fn *Function) Project(x []float64) ([]float64, error) { return fn.con.Project(x) }

// Residual evaluates the objectives at the reduced variable y.
func (fn *Function) Residual(y []float64) ([]float64, error) {
	x, err := fn.con.Recover(y)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, fn.Dim())
	for _, o := range fn.objs {
		r, err := o.Residual(x)
		if err != nil {
			return nil, fmt.Errorf("objective %s: %w", o.Name(), err)
		}
		out = append(out, r...)
	}
	return out, nil
}

// Jacobian evaluates d residual / d y by forward differences, one
// column per free variable, fanned out over the available CPUs. f0 is
// the residual at y; passing the value the caller already has avoids
// one extra objective evaluation.
func (fn *Function) Jacobian(ctx context.Context, y, f0 []float64) (*mat.Dense, error) {
	m, k := len(f0), len(y)
	J := mat.NewDense(m, k, nil)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for j := 0; j < k; j++ {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			h := math.Sqrt(eps) * math.Max(1, math.Abs(y[j]))
			yj := append([]float64(nil), y...)
			yj[j] += h
			fj, err := fn.Residual(yj)
			if err != nil {
				return err
			}
			for i := 0; i < m; i++ {
				J.Set(i, j, (fj[i]-f0[i])/h)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return J, nil
}

const eps = 2.220446049250313e-16
