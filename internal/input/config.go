package input

import (
	"fmt"
)

// Method name enumerations recognized by the deck. Only the values the
// solver implements are accepted; anything else fails validation.
const (
	OptimizerLsqExact = "lsq-exact"

	ObjectiveForce  = "force"
	ObjectiveEnergy = "energy"

	IndexingANSI   = "ansi"
	IndexingFringe = "fringe"

	PatternLinear = "linear"
	PatternCheb1  = "cheb1"
	PatternCheb2  = "cheb2"
	PatternJacobi = "jacobi"

	BdryModeLCFS = "lcfs"
)

// BoundaryCoeff is one Fourier mode of the last closed flux surface:
// R ~ RCoeff * F_m(theta) F_n(NFP zeta), Z ~ ZCoeff * F_m F_n.
type BoundaryCoeff struct {
	M int
	N int
	R float64
	Z float64
}

// ProfileCoeff is one term of an even radial power series,
// f(rho) = sum_l Value_l * rho^l.
type ProfileCoeff struct {
	L     int
	Value float64
}

// AxisCoeff is one toroidal Fourier mode of the initial magnetic-axis guess.
type AxisCoeff struct {
	N int
	R float64
	Z float64
}

// Config is the parsed, validated content of an input deck.
type Config struct {
	// Global parameters.
	Sym bool    // stellarator symmetry
	NFP int     // number of field periods
	Psi float64 // total toroidal flux through the LCFS, in Webers

	// Spectral resolution, one entry per continuation stage (broadcast
	// from shorter arrays by repeating the last value).
	LRad []int // radial (Zernike) resolution
	MPol []int // poloidal Fourier resolution
	NTor []int // toroidal Fourier resolution

	// Collocation grid resolution per stage. Zero means "derive from the
	// spectral resolution" (L_grid = 2*L_rad, etc).
	LGrid []int
	MGrid []int
	NGrid []int

	// Continuation schedule. All four arrays must have equal length; the
	// schedule defaults to a single full-physics stage.
	BdryRatio []float64
	PresRatio []float64
	CurrRatio []float64
	PertOrder []int

	// Solver settings.
	FTol      float64
	XTol      float64
	GTol      float64
	MaxIter   []int // per stage, broadcast
	Optimizer string
	Objective string

	// Method keys.
	SpectralIndexing string
	NodePattern      string
	BdryMode         string

	// Shape and profiles.
	Boundary []BoundaryCoeff
	Pressure []ProfileCoeff
	Iota     []ProfileCoeff // rotational transform coefficients
	Current  []ProfileCoeff // toroidal current coefficients
	Axis     []AxisCoeff
}

// DefaultConfig returns a Config with the solver defaults filled in.
// Parsing overwrites fields that appear in the deck.
func DefaultConfig() *Config {
	return &Config{
		Sym:              false,
		NFP:              1,
		Psi:              1.0,
		FTol:             1e-6,
		XTol:             1e-6,
		GTol:             1e-6,
		Optimizer:        OptimizerLsqExact,
		Objective:        ObjectiveForce,
		SpectralIndexing: IndexingANSI,
		NodePattern:      PatternJacobi,
		BdryMode:         BdryModeLCFS,
	}
}

// NumStages returns the number of continuation stages, which is the common
// length of the schedule arrays, or 1 when no schedule was given.
func (c *Config) NumStages() int {
	n := len(c.BdryRatio)
	if m := len(c.PresRatio); m > n {
		n = m
	}
	if m := len(c.CurrRatio); m > n {
		n = m
	}
	if m := len(c.PertOrder); m > n {
		n = m
	}
	if m := len(c.LRad); m > n {
		n = m
	}
	if m := len(c.MPol); m > n {
		n = m
	}
	if m := len(c.NTor); m > n {
		n = m
	}
	if n == 0 {
		n = 1
	}
	return n
}

// Stage describes one continuation step after broadcasting.
type Stage struct {
	LRad, MPol, NTor    int
	LGrid, MGrid, NGrid int
	BdryRatio           float64
	PresRatio           float64
	CurrRatio           float64
	PertOrder           int
	MaxIter             int
}

// Stage returns the broadcast parameters of continuation stage i.
func (c *Config) Stage(i int) Stage {
	s := Stage{
		LRad:      intAt(c.LRad, i, 0),
		MPol:      intAt(c.MPol, i, 0),
		NTor:      intAt(c.NTor, i, 0),
		BdryRatio: floatAt(c.BdryRatio, i, 1),
		PresRatio: floatAt(c.PresRatio, i, 1),
		CurrRatio: floatAt(c.CurrRatio, i, 1),
		PertOrder: intAt(c.PertOrder, i, 0),
		MaxIter:   intAt(c.MaxIter, i, 100),
	}
	if s.LRad == 0 {
		s.LRad = s.MPol
	}
	s.LGrid = intAt(c.LGrid, i, 2*s.LRad)
	s.MGrid = intAt(c.MGrid, i, 2*s.MPol)
	s.NGrid = intAt(c.NGrid, i, 2*s.NTor)
	return s
}

func intAt(a []int, i, def int) int {
	if len(a) == 0 {
		return def
	}
	if i >= len(a) {
		i = len(a) - 1
	}
	v := a[i]
	if v == 0 && def != 0 {
		return def
	}
	return v
}

func floatAt(a []float64, i int, def float64) float64 {
	if len(a) == 0 {
		return def
	}
	if i >= len(a) {
		i = len(a) - 1
	}
	return a[i]
}

// Validate checks invariants that span multiple keys. Parse calls this
// before returning; it is exported so programmatically built configs get
// the same checks.
func (c *Config) Validate() error {
	if c.NFP < 1 {
		return fmt.Errorf("NFP must be >= 1, got %d", c.NFP)
	}
	if c.Psi == 0 {
		return fmt.Errorf("Psi must be nonzero")
	}
	for _, v := range [][]int{c.LRad, c.MPol, c.NTor, c.LGrid, c.MGrid, c.NGrid} {
		for _, r := range v {
			if r < 0 {
				return fmt.Errorf("spectral and grid resolutions must be non-negative, got %d", r)
			}
		}
	}
	if len(c.MPol) == 0 {
		return fmt.Errorf("M_pol is required")
	}

	// The continuation schedule arrays describe the same stages and must
	// agree in length. Broadcasting is reserved for resolution arrays.
	lens := map[string]int{
		"bdry_ratio": len(c.BdryRatio),
		"pres_ratio": len(c.PresRatio),
		"curr_ratio": len(c.CurrRatio),
		"pert_order": len(c.PertOrder),
	}
	ref, refKey := -1, ""
	for _, key := range []string{"bdry_ratio", "pres_ratio", "curr_ratio", "pert_order"} {
		n := lens[key]
		if n == 0 {
			continue
		}
		if ref == -1 {
			ref, refKey = n, key
			continue
		}
		if n != ref {
			return fmt.Errorf("continuation arrays have unequal lengths: %s has %d entries, %s has %d",
				refKey, ref, key, n)
		}
	}
	stages := c.NumStages()
	for key, n := range map[string]int{
		"L_rad": len(c.LRad), "M_pol": len(c.MPol), "N_tor": len(c.NTor),
		"L_grid": len(c.LGrid), "M_grid": len(c.MGrid), "N_grid": len(c.NGrid),
		"maxiter": len(c.MaxIter),
	} {
		if n > stages {
			return fmt.Errorf("%s has %d entries but the schedule has %d stages", key, n, stages)
		}
	}

	for _, o := range c.PertOrder {
		if o < 0 || o > 2 {
			return fmt.Errorf("pert_order must be 0, 1 or 2, got %d", o)
		}
	}
	if c.FTol < 0 || c.XTol < 0 || c.GTol < 0 {
		return fmt.Errorf("tolerances must be non-negative")
	}

	switch c.Optimizer {
	case OptimizerLsqExact:
	default:
		return fmt.Errorf("unknown optimizer %q", c.Optimizer)
	}
	switch c.Objective {
	case ObjectiveForce, ObjectiveEnergy:
	default:
		return fmt.Errorf("unknown objective %q", c.Objective)
	}
	switch c.SpectralIndexing {
	case IndexingANSI, IndexingFringe:
	default:
		return fmt.Errorf("unknown spectral_indexing %q", c.SpectralIndexing)
	}
	switch c.NodePattern {
	case PatternLinear, PatternCheb1, PatternCheb2, PatternJacobi:
	default:
		return fmt.Errorf("unknown node_pattern %q", c.NodePattern)
	}
	switch c.BdryMode {
	case BdryModeLCFS:
	default:
		return fmt.Errorf("unknown bdry_mode %q", c.BdryMode)
	}

	if len(c.Boundary) == 0 {
		return fmt.Errorf("at least one boundary coefficient row is required")
	}
	if len(c.Iota) > 0 && len(c.Current) > 0 {
		return fmt.Errorf("iota and current profiles are mutually exclusive")
	}
	for _, p := range c.Pressure {
		if p.L < 0 || p.L%2 != 0 {
			return fmt.Errorf("profile degree l must be even and non-negative, got %d", p.L)
		}
	}
	for _, p := range append(append([]ProfileCoeff{}, c.Iota...), c.Current...) {
		if p.L < 0 || p.L%2 != 0 {
			return fmt.Errorf("profile degree l must be even and non-negative, got %d", p.L)
		}
	}
	return nil
}

// BoundaryCoeffAt returns the boundary coefficient for mode (m, n) and
// whether it is present.
func (c *Config) BoundaryCoeffAt(m, n int) (BoundaryCoeff, bool) {
	for _, b := range c.Boundary {
		if b.M == m && b.N == n {
			return b, true
		}
	}
	return BoundaryCoeff{}, false
}
