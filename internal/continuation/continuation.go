// Package continuation drives the solve as a sequence of stages. Each
// stage raises the spectral resolution and scales the boundary shape
// and profiles toward their full values, warm starting from the
// previous solution so every stage begins near force balance.
package continuation

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/stellmhd/stellmhd/internal/equilibrium"
	"github.com/stellmhd/stellmhd/internal/grid"
	"github.com/stellmhd/stellmhd/internal/input"
	"github.com/stellmhd/stellmhd/internal/objective"
	"github.com/stellmhd/stellmhd/internal/optimize"
	"github.com/stellmhd/stellmhd/internal/profile"
	"github.com/stellmhd/stellmhd/internal/telemetry"
)

// StageResult summarizes one solved continuation stage.
type StageResult struct {
	Index  int
	Params input.Stage
	Cost   float64
	Iter   int
	Status optimize.Status
}

// Driver owns the full continuation solve.
type Driver struct {
	cfg     *input.Config
	log     *zap.Logger
	metrics *telemetry.Metrics

	// unscaled inputs, captured once
	boundary *equilibrium.Boundary
	pressure *profile.PowerSeries
	current  *profile.PowerSeries
}

// NewDriver builds a driver for the parsed configuration.
func NewDriver(cfg *input.Config, m *telemetry.Metrics, log *zap.Logger) *Driver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{cfg: cfg, log: log, metrics: m}
}

// Run solves every continuation stage in order and returns the final
// equilibrium together with the per-stage summaries.
func (d *Driver) Run(ctx context.Context) (*equilibrium.Equilibrium, []StageResult, error) {
	cfg := d.cfg
	nStages := cfg.NumStages()

	var eq *equilibrium.Equilibrium
	var results []StageResult
	for i := 0; i < nStages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, results, err
		}
		stage := cfg.Stage(i)
		done := d.metrics.StartStage(i)
		d.log.Info("continuation stage",
			zap.Int("stage", i),
			zap.Int("L", stage.LRad), zap.Int("M", stage.MPol), zap.Int("N", stage.NTor),
			zap.Float64("bdry_ratio", stage.BdryRatio),
			zap.Float64("pres_ratio", stage.PresRatio),
			zap.Float64("curr_ratio", stage.CurrRatio),
		)

		var err error
		if eq == nil {
			eq, err = equilibrium.New(cfg, stage)
			if err != nil {
				return nil, results, fmt.Errorf("stage %d: %w", i, err)
			}
			d.boundary = eq.Boundary
			d.pressure = eq.Pressure
			d.current = eq.Current
		} else if err = eq.ChangeResolution(stage.LRad, stage.MPol, stage.NTor); err != nil {
			return nil, results, fmt.Errorf("stage %d: %w", i, err)
		}
		d.applyRatios(eq, stage)

		res, err := d.solveStage(ctx, eq, stage, i)
		if err != nil {
			return nil, results, fmt.Errorf("stage %d: %w", i, err)
		}
		done()
		results = append(results, StageResult{
			Index:  i,
			Params: stage,
			Cost:   res.Cost,
			Iter:   res.Iter,
			Status: res.Status,
		})
		d.log.Info("stage finished",
			zap.Int("stage", i),
			zap.Float64("cost", res.Cost),
			zap.Int("iterations", res.Iter),
			zap.String("status", res.Status.String()),
		)
	}
	return eq, results, nil
}

func (d *Driver) applyRatios(eq *equilibrium.Equilibrium, stage input.Stage) {
	eq.Boundary = d.boundary.Scaled(stage.BdryRatio)
	eq.Pressure = d.pressure.Scaled(stage.PresRatio)
	eq.Current = d.current.Scaled(stage.CurrRatio)
}

func (d *Driver) solveStage(ctx context.Context, eq *equilibrium.Equilibrium, stage input.Stage, idx int) (*optimize.Result, error) {
	obj, err := d.buildObjective(eq, stage)
	if err != nil {
		return nil, err
	}
	con, err := equilibrium.NewBoundaryConstraint(eq)
	if err != nil {
		return nil, err
	}
	fn := objective.NewFunction(con, d.log, obj)

	// Projecting and recovering snaps the warm start onto the feasible
	// set of the (possibly rescaled) boundary constraints.
	y0, err := fn.Project(eq.PackState())
	if err != nil {
		return nil, err
	}
	x0, err := fn.Recover(y0)
	if err != nil {
		return nil, err
	}
	if err := eq.UnpackState(x0); err != nil {
		return nil, err
	}
	if idx > 0 && stage.PertOrder > 0 {
		if y0, err = d.perturb(ctx, fn, y0, stage.PertOrder); err != nil {
			return nil, err
		}
	}

	res, err := optimize.Solve(ctx, problem{fn}, y0, optimize.Options{
		FTol:    d.cfg.FTol,
		XTol:    d.cfg.XTol,
		GTol:    d.cfg.GTol,
		MaxIter: stage.MaxIter,
		Monitor: func(_ int, cost, gradNorm, _ float64) {
			d.metrics.ObserveIteration(cost, gradNorm)
		},
	}, d.log)
	if err != nil {
		return nil, err
	}

	x, err := fn.Recover(res.X)
	if err != nil {
		return nil, err
	}
	if err := eq.UnpackState(x); err != nil {
		return nil, err
	}
	return res, nil
}

func (d *Driver) buildObjective(eq *equilibrium.Equilibrium, stage input.Stage) (objective.Objective, error) {
	switch d.cfg.Objective {
	case input.ObjectiveForce:
		return objective.NewForceBalance(eq, stage, grid.Pattern(d.cfg.NodePattern))
	case input.ObjectiveEnergy:
		return objective.NewEnergy(eq, stage)
	default:
		return nil, fmt.Errorf("unknown objective %q", d.cfg.Objective)
	}
}

// perturb applies Gauss-Newton corrections to the warm start so the
// iterate tracks the continuation parameters before the full solve
// begins. Each order is one correction: the first-order step uses the
// Jacobian at the warm start, the second-order step recomputes the
// residual and corrects again.
func (d *Driver) perturb(ctx context.Context, fn *objective.Function, y []float64, order int) ([]float64, error) {
	for k := 0; k < order; k++ {
		f, err := fn.Residual(y)
		if err != nil {
			return nil, err
		}
		J, err := fn.Jacobian(ctx, y, f)
		if err != nil {
			return nil, err
		}
		var svd mat.SVD
		if !svd.Factorize(J, mat.SVDThin) {
			return nil, fmt.Errorf("perturbation SVD failed")
		}
		sv := svd.Values(nil)
		rank := 0
		for _, s := range sv {
			if s > 1e-12*sv[0] {
				rank++
			}
		}
		dy := mat.NewVecDense(len(y), nil)
		svd.SolveVecTo(dy, mat.NewVecDense(len(f), f), rank)
		for i := range y {
			y[i] -= dy.AtVec(i)
		}
		d.log.Debug("perturbation step", zap.Int("order", k+1))
	}
	return y, nil
}

// problem adapts a Function to the optimizer interface.
type problem struct{ fn *objective.Function }

func (p problem) Residual(x []float64) ([]float64, error) { return p.fn.Residual(x) }

func (p problem) Jacobian(ctx context.Context, x, f []float64) (*mat.Dense, error) {
	return p.fn.Jacobian(ctx, x, f)
}
