package basis

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Indexing selects how the (l, m) Zernike mode set is truncated.
type Indexing string

const (
	// IndexingANSI is the pyramid truncation: |m| <= l <= L, l - |m| even.
	IndexingANSI Indexing = "ansi"
	// IndexingFringe is the diamond truncation: l + |m| <= 2*ceil(L/2),
	// l - |m| even. It weights high-m modes less heavily in l.
	IndexingFringe Indexing = "fringe"
)

// Mode is one Fourier-Zernike spectral mode.
type Mode struct {
	L int // radial degree
	M int // poloidal mode number (sign selects cos/sin)
	N int // toroidal mode number (sign selects cos/sin)
}

// FourierZernike is a 3-D basis of Zernike radial polynomials times double
// Fourier series, truncated at radial degree L, poloidal number M, and
// toroidal number N.
type FourierZernike struct {
	L, M, N int
	NFP     int
	Sym     Symmetry
	Index   Indexing

	Modes []Mode
	pos   map[Mode]int
}

// NewFourierZernike builds the mode set for the given truncation. Every
// poloidal number |m| <= M contributes at least its lowest radial mode
// l = |m| so that boundary constraints are always satisfiable.
func NewFourierZernike(L, M, N, NFP int, sym Symmetry, indexing Indexing) (*FourierZernike, error) {
	if L < 0 || M < 0 || N < 0 {
		return nil, fmt.Errorf("spectral resolution must be non-negative, got L=%d M=%d N=%d", L, M, N)
	}
	if NFP < 1 {
		return nil, fmt.Errorf("NFP must be >= 1, got %d", NFP)
	}
	switch indexing {
	case IndexingANSI, IndexingFringe:
	default:
		return nil, fmt.Errorf("unknown spectral indexing %q", indexing)
	}

	b := &FourierZernike{L: L, M: M, N: N, NFP: NFP, Sym: sym, Index: indexing}
	lmax := func(absM int) int {
		if indexing == IndexingFringe {
			top := 2*((L+1)/2) - absM
			if top < absM {
				top = absM
			}
			return top
		}
		if L < absM {
			return absM
		}
		return L
	}
	for m := -M; m <= M; m++ {
		am := m
		if am < 0 {
			am = -am
		}
		for l := am; l <= lmax(am); l += 2 {
			for n := -N; n <= N; n++ {
				if !sym.keepsMode(m, n) {
					continue
				}
				b.Modes = append(b.Modes, Mode{L: l, M: m, N: n})
			}
		}
	}
	sortModes(b.Modes)
	b.pos = make(map[Mode]int, len(b.Modes))
	for i, md := range b.Modes {
		b.pos[md] = i
	}
	return b, nil
}

func sortModes(ms []Mode) {
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].L != ms[j].L {
			return ms[i].L < ms[j].L
		}
		if ms[i].M != ms[j].M {
			return ms[i].M < ms[j].M
		}
		return ms[i].N < ms[j].N
	})
}

// NumModes returns the number of basis functions.
func (b *FourierZernike) NumModes() int { return len(b.Modes) }

// IndexOf returns the position of mode in the coefficient vector and
// whether the basis contains it.
func (b *FourierZernike) IndexOf(mode Mode) (int, bool) {
	i, ok := b.pos[mode]
	return i, ok
}

// Evaluate returns the matrix A with A[i][j] = d^(dr,dt,dz) phi_j at node
// i, where phi_j = R_l^{|m|}(rho) F_m(theta) F_n(NFP zeta). Toroidal
// derivatives include the NFP chain-rule factor. A basis whose symmetry
// excludes every mode evaluates to nil.
func (b *FourierZernike) Evaluate(rho, theta, zeta []float64, dr, dt, dz int) *mat.Dense {
	if len(b.Modes) == 0 {
		return nil
	}
	nn := len(rho)
	a := mat.NewDense(nn, len(b.Modes), nil)

	type lm struct{ l, m int }
	radial := make(map[lm]*zernikeEvaluator)
	for _, md := range b.Modes {
		am := md.M
		if am < 0 {
			am = -am
		}
		key := lm{md.L, am}
		if _, ok := radial[key]; !ok {
			radial[key] = newZernikeEvaluator(md.L, am, dr)
		}
	}

	nfp := float64(b.NFP)
	for j, md := range b.Modes {
		am := md.M
		if am < 0 {
			am = -am
		}
		ze := radial[lm{md.L, am}]
		for i := 0; i < nn; i++ {
			v := ze.at(rho[i], dr) *
				fourier(md.M, theta[i], dt) *
				fourier(md.N, nfp*zeta[i], dz)
			if dz > 0 {
				for k := 0; k < dz; k++ {
					v *= nfp
				}
			}
			a.Set(i, j, v)
		}
	}
	return a
}

// DoubleFourier is a 2-D basis over (theta, zeta), used for the boundary
// surface.
type DoubleFourier struct {
	M, N  int
	NFP   int
	Sym   Symmetry
	Modes []Mode // L is always 0
}

// NewDoubleFourier builds a double Fourier series truncated at (M, N).
func NewDoubleFourier(M, N, NFP int, sym Symmetry) (*DoubleFourier, error) {
	if M < 0 || N < 0 {
		return nil, fmt.Errorf("spectral resolution must be non-negative, got M=%d N=%d", M, N)
	}
	if NFP < 1 {
		return nil, fmt.Errorf("NFP must be >= 1, got %d", NFP)
	}
	b := &DoubleFourier{M: M, N: N, NFP: NFP, Sym: sym}
	for m := -M; m <= M; m++ {
		for n := -N; n <= N; n++ {
			if !sym.keepsMode(m, n) {
				continue
			}
			b.Modes = append(b.Modes, Mode{M: m, N: n})
		}
	}
	sortModes(b.Modes)
	return b, nil
}

// NumModes returns the number of basis functions.
func (b *DoubleFourier) NumModes() int { return len(b.Modes) }

// Evaluate returns the node-by-mode evaluation matrix for the given
// angular derivative orders, or nil when symmetry excludes every mode.
func (b *DoubleFourier) Evaluate(theta, zeta []float64, dt, dz int) *mat.Dense {
	if len(b.Modes) == 0 {
		return nil
	}
	nn := len(theta)
	a := mat.NewDense(nn, len(b.Modes), nil)
	nfp := float64(b.NFP)
	for j, md := range b.Modes {
		for i := 0; i < nn; i++ {
			v := fourier(md.M, theta[i], dt) * fourier(md.N, nfp*zeta[i], dz)
			for k := 0; k < dz; k++ {
				v *= nfp
			}
			a.Set(i, j, v)
		}
	}
	return a
}

// FourierSeries is a 1-D toroidal series, used for the magnetic axis.
type FourierSeries struct {
	N     int
	NFP   int
	Sym   Symmetry
	Modes []Mode // only N varies
}

// NewFourierSeries builds a toroidal Fourier series truncated at N.
func NewFourierSeries(N, NFP int, sym Symmetry) (*FourierSeries, error) {
	if N < 0 {
		return nil, fmt.Errorf("spectral resolution must be non-negative, got N=%d", N)
	}
	if NFP < 1 {
		return nil, fmt.Errorf("NFP must be >= 1, got %d", NFP)
	}
	b := &FourierSeries{N: N, NFP: NFP, Sym: sym}
	for n := -N; n <= N; n++ {
		if !sym.keepsMode(0, n) {
			continue
		}
		b.Modes = append(b.Modes, Mode{N: n})
	}
	return b, nil
}

// NumModes returns the number of basis functions.
func (b *FourierSeries) NumModes() int { return len(b.Modes) }

// Evaluate returns the node-by-mode evaluation matrix at the given zeta
// values and toroidal derivative order, or nil when symmetry excludes
// every mode.
func (b *FourierSeries) Evaluate(zeta []float64, dz int) *mat.Dense {
	if len(b.Modes) == 0 {
		return nil
	}
	nn := len(zeta)
	a := mat.NewDense(nn, len(b.Modes), nil)
	nfp := float64(b.NFP)
	for j, md := range b.Modes {
		for i := 0; i < nn; i++ {
			v := fourier(md.N, nfp*zeta[i], dz)
			for k := 0; k < dz; k++ {
				v *= nfp
			}
			a.Set(i, j, v)
		}
	}
	return a
}
