// Package equilibrium holds the state of a fixed-boundary MHD
// equilibrium: the Fourier-Zernike coefficients of the flux-surface map
// (R, Z) and the poloidal stream function lambda, together with the
// boundary surface, profiles, and resolution. It also factorizes the
// linear boundary constraints that the optimizer must respect.
package equilibrium

import (
	"fmt"

	"github.com/stellmhd/stellmhd/internal/basis"
	"github.com/stellmhd/stellmhd/internal/grid"
	"github.com/stellmhd/stellmhd/internal/input"
	"github.com/stellmhd/stellmhd/internal/profile"
	"github.com/stellmhd/stellmhd/internal/transform"
)

// Equilibrium is the complete state of one equilibrium problem at one
// spectral resolution.
type Equilibrium struct {
	Psi float64 // total toroidal flux [Wb]
	NFP int
	Sym bool

	L, M, N  int
	Indexing basis.Indexing

	RBasis *basis.FourierZernike
	ZBasis *basis.FourierZernike
	LBasis *basis.FourierZernike

	RLmn []float64
	ZLmn []float64
	LLmn []float64

	Boundary *Boundary
	Axis     *Axis

	Pressure *profile.PowerSeries
	Iota     *profile.PowerSeries
	Current  *profile.PowerSeries
}

// New builds an equilibrium from a parsed deck at the resolution of the
// given continuation stage, with the initial axis-to-boundary guess in
// place. Profiles and the boundary carry their full (unscaled) values;
// the continuation driver applies stage ratios.
func New(cfg *input.Config, stage input.Stage) (*Equilibrium, error) {
	eq := &Equilibrium{
		Psi:      cfg.Psi,
		NFP:      cfg.NFP,
		Sym:      cfg.Sym,
		Indexing: basis.Indexing(cfg.SpectralIndexing),
	}

	bdry, err := NewBoundary(cfg.Boundary, cfg.NFP, cfg.Sym)
	if err != nil {
		return nil, fmt.Errorf("boundary: %w", err)
	}
	eq.Boundary = bdry

	axis, err := NewAxis(cfg.Axis, bdry, cfg.NFP, cfg.Sym)
	if err != nil {
		return nil, fmt.Errorf("axis: %w", err)
	}
	eq.Axis = axis

	eq.Pressure, err = newProfile(cfg.Pressure)
	if err != nil {
		return nil, fmt.Errorf("pressure profile: %w", err)
	}
	eq.Iota, err = newProfile(cfg.Iota)
	if err != nil {
		return nil, fmt.Errorf("iota profile: %w", err)
	}
	eq.Current, err = newProfile(cfg.Current)
	if err != nil {
		return nil, fmt.Errorf("current profile: %w", err)
	}

	if err := eq.buildBases(stage.LRad, stage.MPol, stage.NTor); err != nil {
		return nil, err
	}
	if err := eq.SetInitialGuess(); err != nil {
		return nil, fmt.Errorf("initial guess: %w", err)
	}
	return eq, nil
}

func newProfile(coeffs []input.ProfileCoeff) (*profile.PowerSeries, error) {
	if len(coeffs) == 0 {
		return profile.Zero(), nil
	}
	degrees := make([]int, len(coeffs))
	values := make([]float64, len(coeffs))
	for i, c := range coeffs {
		degrees[i] = c.L
		values[i] = c.Value
	}
	return profile.NewPowerSeries(degrees, values)
}

func (eq *Equilibrium) buildBases(L, M, N int) error {
	rsym, zsym := basis.SymNone, basis.SymNone
	if eq.Sym {
		rsym, zsym = basis.SymCos, basis.SymSin
	}
	rb, err := basis.NewFourierZernike(L, M, N, eq.NFP, rsym, eq.Indexing)
	if err != nil {
		return err
	}
	zb, err := basis.NewFourierZernike(L, M, N, eq.NFP, zsym, eq.Indexing)
	if err != nil {
		return err
	}
	lb, err := basis.NewFourierZernike(L, M, N, eq.NFP, zsym, eq.Indexing)
	if err != nil {
		return err
	}
	eq.L, eq.M, eq.N = L, M, N
	eq.RBasis, eq.ZBasis, eq.LBasis = rb, zb, lb
	eq.RLmn = make([]float64, rb.NumModes())
	eq.ZLmn = make([]float64, zb.NumModes())
	eq.LLmn = make([]float64, lb.NumModes())
	return nil
}

// SetInitialGuess fills the coefficients with the linear blend from the
// axis to the boundary, R = Ra + rho (Rb - Ra), fitted onto the basis.
// Lambda starts at zero.
func (eq *Equilibrium) SetInitialGuess() error {
	g, err := grid.NewLinear(2*eq.L, 2*eq.M, 2*eq.N, eq.NFP, false, true)
	if err != nil {
		return err
	}
	rb, zb := eq.Boundary.Eval(g.Theta, g.Zeta)
	ra, za := eq.Axis.Eval(g.Zeta)

	rvals := make([]float64, g.NumNodes())
	zvals := make([]float64, g.NumNodes())
	for i := range rvals {
		rvals[i] = ra[i] + g.Rho[i]*(rb[i]-ra[i])
		zvals[i] = za[i] + g.Rho[i]*(zb[i]-za[i])
	}

	rt, err := transform.New(g, eq.RBasis, nil, true)
	if err != nil {
		return err
	}
	zt, err := transform.New(g, eq.ZBasis, nil, true)
	if err != nil {
		return err
	}
	if eq.RLmn, err = rt.Fit(rvals); err != nil {
		return err
	}
	if eq.ZLmn, err = zt.Fit(zvals); err != nil {
		return err
	}
	for i := range eq.LLmn {
		eq.LLmn[i] = 0
	}
	return nil
}

// ChangeResolution rebuilds the bases at a new truncation, carrying over
// the coefficients of every mode present in both the old and new sets.
// Continuation warm starts rely on this.
func (eq *Equilibrium) ChangeResolution(L, M, N int) error {
	if L == eq.L && M == eq.M && N == eq.N {
		return nil
	}
	oldR, oldZ, oldL := eq.RBasis, eq.ZBasis, eq.LBasis
	cR, cZ, cL := eq.RLmn, eq.ZLmn, eq.LLmn

	if err := eq.buildBases(L, M, N); err != nil {
		return err
	}
	copyModes := func(old *basis.FourierZernike, oldC []float64, next *basis.FourierZernike, nextC []float64) {
		for i, md := range old.Modes {
			if j, ok := next.IndexOf(md); ok {
				nextC[j] = oldC[i]
			}
		}
	}
	copyModes(oldR, cR, eq.RBasis, eq.RLmn)
	copyModes(oldZ, cZ, eq.ZBasis, eq.ZLmn)
	copyModes(oldL, cL, eq.LBasis, eq.LLmn)
	return nil
}

// NumDOF returns the total number of spectral coefficients.
func (eq *Equilibrium) NumDOF() int {
	return len(eq.RLmn) + len(eq.ZLmn) + len(eq.LLmn)
}

// PackState concatenates the coefficient vectors into the optimizer's
// full state vector x = [R; Z; lambda].
func (eq *Equilibrium) PackState() []float64 {
	x := make([]float64, 0, eq.NumDOF())
	x = append(x, eq.RLmn...)
	x = append(x, eq.ZLmn...)
	x = append(x, eq.LLmn...)
	return x
}

// UnpackState writes a full state vector back into the coefficient
// vectors.
func (eq *Equilibrium) UnpackState(x []float64) error {
	if len(x) != eq.NumDOF() {
		return fmt.Errorf("state vector has %d entries, equilibrium has %d degrees of freedom", len(x), eq.NumDOF())
	}
	nr, nz := len(eq.RLmn), len(eq.ZLmn)
	copy(eq.RLmn, x[:nr])
	copy(eq.ZLmn, x[nr:nr+nz])
	copy(eq.LLmn, x[nr+nz:])
	return nil
}

// Copy returns a deep copy sharing the immutable bases, boundary, axis,
// and profiles. Used for scratch evaluations of perturbed states.
func (eq *Equilibrium) Copy() *Equilibrium {
	cp := *eq
	cp.RLmn = append([]float64(nil), eq.RLmn...)
	cp.ZLmn = append([]float64(nil), eq.ZLmn...)
	cp.LLmn = append([]float64(nil), eq.LLmn...)
	return &cp
}
