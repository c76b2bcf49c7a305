package objective

import (
	"fmt"
	"math"

	"github.com/stellmhd/stellmhd/internal/basis"
	"github.com/stellmhd/stellmhd/internal/equilibrium"
	"github.com/stellmhd/stellmhd/internal/grid"
	"github.com/stellmhd/stellmhd/internal/transform"
)

// Mu0 is the vacuum permeability [H/m].
const Mu0 = 4e-7 * math.Pi

// Fields holds the equilibrium quantities evaluated on the collocation
// grid. All slices have one entry per grid node.
type Fields struct {
	R, Rr, Rt, Rz []float64
	Z, Zr, Zt, Zz []float64
	Lt, Lz        []float64

	Sqrtg   []float64 // Jacobian of (rho, theta, zeta)
	GradRho []float64 // |grad rho|
	Gtt     []float64 // g_{theta theta}
	Gtz     []float64 // g_{theta zeta}
	Gzz     []float64 // g_{zeta zeta}
	Grt     []float64 // g_{rho theta}
	Grz     []float64 // g_{rho zeta}

	Iota      []float64 // rotational transform on each node's surface
	Pressure  []float64
	PresGrad  []float64 // dp/drho
	PsiPrime  []float64 // d psi / d rho / (2 pi)
	BsupTheta []float64
	BsupZeta  []float64
	BsubRho   []float64
	BsubTheta []float64
	BsubZeta  []float64
	MagB2     []float64 // |B|^2

	JsupRho   []float64
	JsupTheta []float64
	JsupZeta  []float64
}

// Evaluator computes Fields from a packed state vector on a fixed grid.
// The transforms are built once; Compute is safe for concurrent use,
// which the finite-difference Jacobian relies on.
type Evaluator struct {
	Eq   *equilibrium.Equilibrium
	Grid *grid.Grid

	rt, zt, lt *transform.Transform
	fit        *transform.Transform // full-parity basis used to refit covariant B
}

// NewEvaluator builds the transforms an objective needs on the given
// grid. The field refit uses a symmetry-free basis at the equilibrium
// resolution so that covariant components of either parity are captured.
func NewEvaluator(eq *equilibrium.Equilibrium, g *grid.Grid) (*Evaluator, error) {
	first := []transform.Deriv{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	rt, err := transform.New(g, eq.RBasis, first, false)
	if err != nil {
		return nil, fmt.Errorf("R transform: %w", err)
	}
	zt, err := transform.New(g, eq.ZBasis, first, false)
	if err != nil {
		return nil, fmt.Errorf("Z transform: %w", err)
	}
	lt, err := transform.New(g, eq.LBasis, first, false)
	if err != nil {
		return nil, fmt.Errorf("lambda transform: %w", err)
	}
	fb, err := basis.NewFourierZernike(eq.L, eq.M, eq.N, eq.NFP, basis.SymNone, eq.Indexing)
	if err != nil {
		return nil, err
	}
	fit, err := transform.New(g, fb, first, true)
	if err != nil {
		return nil, fmt.Errorf("refit transform: %w", err)
	}
	return &Evaluator{Eq: eq, Grid: g, rt: rt, zt: zt, lt: lt, fit: fit}, nil
}

// Compute evaluates the geometry, magnetic field, and current density
// for the packed state x.
func (ev *Evaluator) Compute(x []float64) (*Fields, error) {
	eq := ev.Eq
	nr, nz := eq.RBasis.NumModes(), eq.ZBasis.NumModes()
	if len(x) != eq.NumDOF() {
		return nil, fmt.Errorf("state vector has %d entries, want %d", len(x), eq.NumDOF())
	}
	cR := x[:nr]
	cZ := x[nr : nr+nz]
	cL := x[nr+nz:]

	f := &Fields{}
	var err error
	if f.R, err = ev.rt.Apply(cR, 0, 0, 0); err != nil {
		return nil, err
	}
	if f.Rr, err = ev.rt.Apply(cR, 1, 0, 0); err != nil {
		return nil, err
	}
	if f.Rt, err = ev.rt.Apply(cR, 0, 1, 0); err != nil {
		return nil, err
	}
	if f.Rz, err = ev.rt.Apply(cR, 0, 0, 1); err != nil {
		return nil, err
	}
	if f.Z, err = ev.zt.Apply(cZ, 0, 0, 0); err != nil {
		return nil, err
	}
	if f.Zr, err = ev.zt.Apply(cZ, 1, 0, 0); err != nil {
		return nil, err
	}
	if f.Zt, err = ev.zt.Apply(cZ, 0, 1, 0); err != nil {
		return nil, err
	}
	if f.Zz, err = ev.zt.Apply(cZ, 0, 0, 1); err != nil {
		return nil, err
	}
	if f.Lt, err = ev.lt.Apply(cL, 0, 1, 0); err != nil {
		return nil, err
	}
	if f.Lz, err = ev.lt.Apply(cL, 0, 0, 1); err != nil {
		return nil, err
	}

	ev.geometry(f)
	ev.profiles(f)
	if err := ev.field(f); err != nil {
		return nil, err
	}
	return f, nil
}

// geometry fills the Jacobian and metric coefficients from the
// coordinate-map derivatives. The position is (R cos zeta, R sin zeta, Z)
// so the covariant basis vectors in the (Rhat, phihat, Zhat) frame are
// e_rho = (R_r, 0, Z_r), e_theta = (R_t, 0, Z_t), e_zeta = (R_z, R, Z_z).
func (ev *Evaluator) geometry(f *Fields) {
	n := ev.Grid.NumNodes()
	f.Sqrtg = make([]float64, n)
	f.GradRho = make([]float64, n)
	f.Gtt = make([]float64, n)
	f.Gtz = make([]float64, n)
	f.Gzz = make([]float64, n)
	f.Grt = make([]float64, n)
	f.Grz = make([]float64, n)
	for i := 0; i < n; i++ {
		r := f.R[i]
		f.Sqrtg[i] = r * (f.Rt[i]*f.Zr[i] - f.Rr[i]*f.Zt[i])
		f.Gtt[i] = f.Rt[i]*f.Rt[i] + f.Zt[i]*f.Zt[i]
		f.Gtz[i] = f.Rt[i]*f.Rz[i] + f.Zt[i]*f.Zz[i]
		f.Gzz[i] = f.Rz[i]*f.Rz[i] + r*r + f.Zz[i]*f.Zz[i]
		f.Grt[i] = f.Rr[i]*f.Rt[i] + f.Zr[i]*f.Zt[i]
		f.Grz[i] = f.Rr[i]*f.Rz[i] + f.Zr[i]*f.Zz[i]

		// e_theta x e_zeta = (-R Z_t, Z_t R_z - R_t Z_z, R R_t)
		cx := -r * f.Zt[i]
		cy := f.Zt[i]*f.Rz[i] - f.Rt[i]*f.Zz[i]
		cz := r * f.Rt[i]
		f.GradRho[i] = math.Sqrt(cx*cx+cy*cy+cz*cz) / math.Abs(f.Sqrtg[i])
	}
}

func (ev *Evaluator) profiles(f *Fields) {
	n := ev.Grid.NumNodes()
	f.Pressure = make([]float64, n)
	f.PresGrad = make([]float64, n)
	f.PsiPrime = make([]float64, n)
	for i, rho := range ev.Grid.Rho {
		f.Pressure[i] = ev.Eq.Pressure.Value(rho)
		f.PresGrad[i] = ev.Eq.Pressure.Deriv(rho)
		// psi(rho) = Psi rho^2, so d psi/d rho / (2 pi) = Psi rho / pi.
		f.PsiPrime[i] = ev.Eq.Psi * rho / math.Pi
	}
	if ev.Eq.Current.IsZero() {
		f.Iota = make([]float64, n)
		for i, rho := range ev.Grid.Rho {
			f.Iota[i] = ev.Eq.Iota.Value(rho)
		}
	} else {
		f.Iota = ev.iotaFromCurrent(f)
	}
}

// field computes the contravariant magnetic field from the flux
// constraint, refits the covariant components onto the spectral basis,
// and differentiates the fit to obtain the current density.
func (ev *Evaluator) field(f *Fields) error {
	n := ev.Grid.NumNodes()
	f.BsupTheta = make([]float64, n)
	f.BsupZeta = make([]float64, n)
	f.BsubRho = make([]float64, n)
	f.BsubTheta = make([]float64, n)
	f.BsubZeta = make([]float64, n)
	f.MagB2 = make([]float64, n)
	for i := 0; i < n; i++ {
		f.BsupTheta[i] = f.PsiPrime[i] * (f.Iota[i] - f.Lz[i]) / f.Sqrtg[i]
		f.BsupZeta[i] = f.PsiPrime[i] * (1 + f.Lt[i]) / f.Sqrtg[i]
		f.BsubRho[i] = f.BsupTheta[i]*f.Grt[i] + f.BsupZeta[i]*f.Grz[i]
		f.BsubTheta[i] = f.BsupTheta[i]*f.Gtt[i] + f.BsupZeta[i]*f.Gtz[i]
		f.BsubZeta[i] = f.BsupTheta[i]*f.Gtz[i] + f.BsupZeta[i]*f.Gzz[i]
		f.MagB2[i] = f.BsupTheta[i]*f.BsubTheta[i] + f.BsupZeta[i]*f.BsubZeta[i]
	}

	cbr, err := ev.fit.Fit(f.BsubRho)
	if err != nil {
		return fmt.Errorf("refit B_rho: %w", err)
	}
	cbt, err := ev.fit.Fit(f.BsubTheta)
	if err != nil {
		return fmt.Errorf("refit B_theta: %w", err)
	}
	cbz, err := ev.fit.Fit(f.BsubZeta)
	if err != nil {
		return fmt.Errorf("refit B_zeta: %w", err)
	}

	brT, err := ev.fit.Apply(cbr, 0, 1, 0)
	if err != nil {
		return err
	}
	brZ, err := ev.fit.Apply(cbr, 0, 0, 1)
	if err != nil {
		return err
	}
	btR, err := ev.fit.Apply(cbt, 1, 0, 0)
	if err != nil {
		return err
	}
	btZ, err := ev.fit.Apply(cbt, 0, 0, 1)
	if err != nil {
		return err
	}
	bzR, err := ev.fit.Apply(cbz, 1, 0, 0)
	if err != nil {
		return err
	}
	bzT, err := ev.fit.Apply(cbz, 0, 1, 0)
	if err != nil {
		return err
	}

	f.JsupRho = make([]float64, n)
	f.JsupTheta = make([]float64, n)
	f.JsupZeta = make([]float64, n)
	for i := 0; i < n; i++ {
		f.JsupRho[i] = (bzT[i] - btZ[i]) / (Mu0 * f.Sqrtg[i])
		f.JsupTheta[i] = (brZ[i] - bzR[i]) / (Mu0 * f.Sqrtg[i])
		f.JsupZeta[i] = (btR[i] - brT[i]) / (Mu0 * f.Sqrtg[i])
	}
	return nil
}

// iotaFromCurrent solves the enclosed-current constraint for the
// rotational transform surface by surface. Ampere's law around a
// poloidal loop gives, after averaging over the surface,
// mu0 I / psi' = <(iota - lambda_zeta) g_tt / sqrtg> +
// <(1 + lambda_theta) g_tz / sqrtg>, where <.> is the theta-zeta
// average; solving for iota gives the transform consistent with the
// prescribed toroidal current profile.
func (ev *Evaluator) iotaFromCurrent(f *Fields) []float64 {
	g := ev.Grid
	n := g.NumNodes()

	type acc struct {
		wsum float64
		gtt  float64 // <g_tt / sqrtg>
		lam  float64 // <lambda_zeta g_tt / sqrtg>
		gtz  float64 // <(1 + lambda_theta) g_tz / sqrtg>
	}
	surf := make(map[float64]*acc)
	for i := 0; i < n; i++ {
		a := surf[g.Rho[i]]
		if a == nil {
			a = &acc{}
			surf[g.Rho[i]] = a
		}
		w := g.Weights[i]
		a.wsum += w
		a.gtt += w * f.Gtt[i] / f.Sqrtg[i]
		a.lam += w * f.Lz[i] * f.Gtt[i] / f.Sqrtg[i]
		a.gtz += w * (1 + f.Lt[i]) * f.Gtz[i] / f.Sqrtg[i]
	}

	iota := make([]float64, n)
	for i := 0; i < n; i++ {
		rho := g.Rho[i]
		a := surf[rho]
		current := ev.Eq.Current.Value(rho)
		rhs := Mu0*current/f.PsiPrime[i] + a.lam/a.wsum - a.gtz/a.wsum
		iota[i] = rhs / (a.gtt / a.wsum)
	}
	return iota
}
