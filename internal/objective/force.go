package objective

import (
	"fmt"
	"math"

	"github.com/stellmhd/stellmhd/internal/equilibrium"
	"github.com/stellmhd/stellmhd/internal/grid"
	"github.com/stellmhd/stellmhd/internal/input"
)

// Objective maps a packed equilibrium state to a residual vector whose
// least-squares minimum is the solution.
type Objective interface {
	Name() string
	Dim() int
	Residual(x []float64) ([]float64, error)
}

// ForceBalance is the residual of the MHD force balance
// J x B = grad(p), split into its radial and helical projections at
// each collocation node and weighted by the local volume element.
type ForceBalance struct {
	ev *Evaluator
}

// NewForceBalance builds the force objective on a concentric collocation
// grid sized by the stage's grid resolution. The grid excludes the
// magnetic axis, where the coordinate Jacobian vanishes.
func NewForceBalance(eq *equilibrium.Equilibrium, stage input.Stage, pattern grid.Pattern) (*ForceBalance, error) {
	g, err := grid.NewConcentric(stage.LGrid, stage.MGrid, stage.NGrid, eq.NFP, false, false, pattern)
	if err != nil {
		return nil, fmt.Errorf("collocation grid: %w", err)
	}
	ev, err := NewEvaluator(eq, g)
	if err != nil {
		return nil, err
	}
	return &ForceBalance{ev: ev}, nil
}

func (o *ForceBalance) Name() string { return "force" }

// Dim returns two residuals per collocation node.
func (o *ForceBalance) Dim() int { return 2 * o.ev.Grid.NumNodes() }

// Residual evaluates the radial force error
// f_rho = (sqrtg (J^theta B^zeta - J^zeta B^theta) - p') |grad rho| w
// and the helical force error f_beta = sqrtg J^rho |beta| w with
// beta = B^zeta grad(theta) - B^theta grad(zeta), both in Newtons.
func (o *ForceBalance) Residual(x []float64) ([]float64, error) {
	f, err := o.ev.Compute(x)
	if err != nil {
		return nil, err
	}
	g := o.ev.Grid
	n := g.NumNodes()
	out := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		w := g.Weights[i]
		frho := f.Sqrtg[i]*(f.JsupTheta[i]*f.BsupZeta[i]-f.JsupZeta[i]*f.BsupTheta[i]) - f.PresGrad[i]
		out[i] = frho * f.GradRho[i] * w

		out[n+i] = f.Sqrtg[i] * f.JsupRho[i] * betaNorm(f, i) * w
	}
	return out, nil
}

// betaNorm is |B^zeta grad(theta) - B^theta grad(zeta)| from the
// contravariant metric of the angles.
func betaNorm(f *Fields, i int) float64 {
	r := f.R[i]
	sg2 := f.Sqrtg[i] * f.Sqrtg[i]

	// e_zeta x e_rho = (R Z_r, Z_z R_r - R_z Z_r, -R R_r)
	cx := r * f.Zr[i]
	cy := f.Zz[i]*f.Rr[i] - f.Rz[i]*f.Zr[i]
	cz := -r * f.Rr[i]
	gradT2 := (cx*cx + cy*cy + cz*cz) / sg2
	gradTZ := cy / (f.Sqrtg[i] * r) // grad(zeta) = phihat / R
	gradZ2 := 1 / (r * r)

	bt, bz := f.BsupTheta[i], f.BsupZeta[i]
	b2 := bz*bz*gradT2 - 2*bt*bz*gradTZ + bt*bt*gradZ2
	if b2 < 0 {
		b2 = 0
	}
	return math.Sqrt(b2)
}

// Evaluator exposes the underlying evaluator for diagnostics.
func (o *ForceBalance) Evaluator() *Evaluator { return o.ev }

// Energy is the total MHD energy W = integral of |B|^2/(2 mu0) - p over
// the plasma volume, as a single residual entry. Minimizing W with the
// boundary held fixed is a variational route to the same equilibrium.
type Energy struct {
	ev *Evaluator
}

// NewEnergy builds the energy objective on the Gauss-Jacobi quadrature
// grid, which integrates the spectral basis exactly.
func NewEnergy(eq *equilibrium.Equilibrium, stage input.Stage) (*Energy, error) {
	g, err := grid.NewQuadrature(stage.LGrid, stage.MGrid, stage.NGrid, eq.NFP)
	if err != nil {
		return nil, fmt.Errorf("quadrature grid: %w", err)
	}
	ev, err := NewEvaluator(eq, g)
	if err != nil {
		return nil, err
	}
	return &Energy{ev: ev}, nil
}

func (o *Energy) Name() string { return "energy" }

func (o *Energy) Dim() int { return 1 }

func (o *Energy) Residual(x []float64) ([]float64, error) {
	f, err := o.ev.Compute(x)
	if err != nil {
		return nil, err
	}
	g := o.ev.Grid
	var w float64
	for i := 0; i < g.NumNodes(); i++ {
		w += g.Weights[i] * (f.MagB2[i]/(2*Mu0) - f.Pressure[i]) * math.Abs(f.Sqrtg[i])
	}
	return []float64{w}, nil
}

// Evaluator exposes the underlying evaluator for diagnostics.
func (o *Energy) Evaluator() *Evaluator { return o.ev }
