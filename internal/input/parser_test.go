package input

import (
	"reflect"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const heliotronDeck = `
# Example fixed-boundary heliotron-like configuration.

# global parameters
sym = 1
NFP = 4
Psi = 0.04

# spectral resolution
M_pol = 8
N_tor = 0:2:8
L_rad = 6, 12, 12, 12, 12

# continuation parameters
bdry_ratio = 0.0, 0.25, 0.5, 0.75, 1.0
pres_ratio = 0.0, 0.0, 0.5, 1.0, 1.0
curr_ratio = 1.0, 1.0, 1.0, 1.0, 1.0
pert_order = 1, 1, 1, 1, 1

# solver tolerances
ftol = 1e-2
xtol = 1e-6
gtol = 1e-6
maxiter = 50

# solver methods
optimizer         = lsq-exact
objective         = force
spectral_indexing = ansi
node_pattern      = jacobi
bdry_mode         = lcfs

# fixed-boundary surface shape
m:  0  n:  0  R1 =  1.00E+00  Z1 =  0.00E+00
m:  1  n:  0  R1 = -1.00E-01  Z1 =  0.00E+00
m: -1  n:  0  R1 =  0.00E+00  Z1 =  1.00E-01
m:  0  n:  1  R1 = -3.00E-01  Z1 =  0.00E+00
m:  0  n: -1  R1 =  0.00E+00  Z1 = -3.00E-01

# pressure and rotational transform profiles
l: 0  p =  1.80E+04  i =  1.00E+00
l: 2  p = -3.60E+04  i =  1.50E+00
l: 4  p =  1.80E+04  i =  0.00E+00

# magnetic axis initial guess
n: 0  R0 = 1.00E+00  Z0 = 0.00E+00
`

func TestParseHeliotronDeck(t *testing.T) {
	cfg, err := NewParser(nil).Parse(strings.NewReader(heliotronDeck))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	if !cfg.Sym {
		t.Errorf("Sym = false, want true")
	}
	if cfg.NFP != 4 {
		t.Errorf("NFP = %d, want 4", cfg.NFP)
	}
	if cfg.Psi != 0.04 {
		t.Errorf("Psi = %v, want 0.04", cfg.Psi)
	}
	if want := []int{8}; !reflect.DeepEqual(cfg.MPol, want) {
		t.Errorf("MPol = %v, want %v", cfg.MPol, want)
	}
	if want := []int{0, 2, 4, 6, 8}; !reflect.DeepEqual(cfg.NTor, want) {
		t.Errorf("NTor = %v, want %v", cfg.NTor, want)
	}
	if want := []int{6, 12, 12, 12, 12}; !reflect.DeepEqual(cfg.LRad, want) {
		t.Errorf("LRad = %v, want %v", cfg.LRad, want)
	}
	if got := cfg.NumStages(); got != 5 {
		t.Errorf("NumStages() = %d, want 5", got)
	}

	wantBdry := []BoundaryCoeff{
		{M: 0, N: 0, R: 1.0, Z: 0.0},
		{M: 1, N: 0, R: -0.1, Z: 0.0},
		{M: -1, N: 0, R: 0.0, Z: 0.1},
		{M: 0, N: 1, R: -0.3, Z: 0.0},
		{M: 0, N: -1, R: 0.0, Z: -0.3},
	}
	if diff := cmp.Diff(wantBdry, cfg.Boundary); diff != "" {
		t.Errorf("Boundary mismatch (-want +got):\n%s", diff)
	}

	wantPres := []ProfileCoeff{{L: 0, Value: 1.8e4}, {L: 2, Value: -3.6e4}, {L: 4, Value: 1.8e4}}
	if diff := cmp.Diff(wantPres, cfg.Pressure); diff != "" {
		t.Errorf("Pressure mismatch (-want +got):\n%s", diff)
	}
	wantIota := []ProfileCoeff{{L: 0, Value: 1.0}, {L: 2, Value: 1.5}, {L: 4, Value: 0.0}}
	if diff := cmp.Diff(wantIota, cfg.Iota); diff != "" {
		t.Errorf("Iota mismatch (-want +got):\n%s", diff)
	}
	if want := []AxisCoeff{{N: 0, R: 1.0, Z: 0.0}}; !reflect.DeepEqual(cfg.Axis, want) {
		t.Errorf("Axis = %v, want %v", cfg.Axis, want)
	}

	if cfg.Optimizer != OptimizerLsqExact {
		t.Errorf("Optimizer = %q, want %q", cfg.Optimizer, OptimizerLsqExact)
	}
	if cfg.NodePattern != PatternJacobi {
		t.Errorf("NodePattern = %q, want %q", cfg.NodePattern, PatternJacobi)
	}
}

func TestExpandInts(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    []int
		wantErr bool
	}{
		{name: "range", in: "0:2:8", want: []int{0, 2, 4, 6, 8}},
		{name: "range not hitting end", in: "0:3:8", want: []int{0, 3, 6}},
		{name: "descending range", in: "8:-4:0", want: []int{8, 4, 0}},
		{name: "single value", in: "12", want: []int{12}},
		{name: "comma list", in: "6, 12, 12", want: []int{6, 12, 12}},
		{name: "float-style integers", in: "6.0, 12.0", want: []int{6, 12}},
		{name: "zero step", in: "0:0:8", wantErr: true},
		{name: "diverging range", in: "8:2:0", wantErr: true},
		{name: "garbage", in: "a,b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandInts(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpandInts(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExpandInts(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		deck string
		want string // substring of the error
	}{
		{
			name: "unequal continuation arrays",
			deck: "M_pol = 4\nbdry_ratio = 0.5, 1.0\npres_ratio = 1.0\nm: 0 n: 0 R1 = 1.0 Z1 = 0.0",
			want: "unequal lengths",
		},
		{
			name: "unknown key",
			deck: "M_pol = 4\nM_poll = 4\nm: 0 n: 0 R1 = 1.0 Z1 = 0.0",
			want: "unknown key",
		},
		{
			name: "missing boundary",
			deck: "M_pol = 4",
			want: "boundary",
		},
		{
			name: "bad NFP",
			deck: "M_pol = 4\nNFP = 0\nm: 0 n: 0 R1 = 1.0 Z1 = 0.0",
			want: "NFP",
		},
		{
			name: "zero flux",
			deck: "M_pol = 4\nPsi = 0.0\nm: 0 n: 0 R1 = 1.0 Z1 = 0.0",
			want: "Psi",
		},
		{
			name: "unknown optimizer",
			deck: "M_pol = 4\noptimizer = newton\nm: 0 n: 0 R1 = 1.0 Z1 = 0.0",
			want: "optimizer",
		},
		{
			name: "odd profile degree",
			deck: "M_pol = 4\nm: 0 n: 0 R1 = 1.0 Z1 = 0.0\nl: 1 p = 1.0",
			want: "even",
		},
		{
			name: "iota and current together",
			deck: "M_pol = 4\nm: 0 n: 0 R1 = 1.0 Z1 = 0.0\nl: 0 i = 1.0\nl: 0 c = 1.0",
			want: "mutually exclusive",
		},
		{
			name: "bad pert order",
			deck: "M_pol = 4\npert_order = 3\nm: 0 n: 0 R1 = 1.0 Z1 = 0.0",
			want: "pert_order",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser(nil).Parse(strings.NewReader(tt.deck))
			if err == nil {
				t.Fatalf("Parse() succeeded, want error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Parse() error = %q, want substring %q", err, tt.want)
			}
		})
	}
}

func TestParseDuplicateBoundaryLastWins(t *testing.T) {
	deck := `
M_pol = 2
m: 1 n: 0 R1 = 0.5 Z1 = 0.0
m: 1 n: 0 R1 = -0.1 Z1 = 0.2
`
	cfg, err := NewParser(nil).Parse(strings.NewReader(deck))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if len(cfg.Boundary) != 1 {
		t.Fatalf("len(Boundary) = %d, want 1", len(cfg.Boundary))
	}
	got, ok := cfg.BoundaryCoeffAt(1, 0)
	if !ok {
		t.Fatal("boundary mode (1,0) not found")
	}
	if got.R != -0.1 || got.Z != 0.2 {
		t.Errorf("boundary (1,0) = %+v, want R=-0.1 Z=0.2", got)
	}
}

func TestParseGluedRowSyntax(t *testing.T) {
	deck := "M_pol = 2\nm:1 n:0 R1=-0.1 Z1=0.2"
	cfg, err := NewParser(nil).Parse(strings.NewReader(deck))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	got, ok := cfg.BoundaryCoeffAt(1, 0)
	if !ok {
		t.Fatal("boundary mode (1,0) not found")
	}
	if got.R != -0.1 || got.Z != 0.2 {
		t.Errorf("boundary (1,0) = %+v, want R=-0.1 Z=0.2", got)
	}
}

func TestParseBoundaryRowWithLeadingL(t *testing.T) {
	deck := "M_pol = 2\nl: 0 m: -2 n: 0 R1 = 0.0 Z1 = 0.3"
	cfg, err := NewParser(nil).Parse(strings.NewReader(deck))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	got, ok := cfg.BoundaryCoeffAt(-2, 0)
	if !ok {
		t.Fatal("boundary mode (-2,0) not found")
	}
	if got.Z != 0.3 {
		t.Errorf("boundary (-2,0).Z = %v, want 0.3", got.Z)
	}
}

func TestStageBroadcast(t *testing.T) {
	deck := `
M_pol = 4, 8
L_rad = 4
N_tor = 0:2:4
bdry_ratio = 0.5, 1.0, 1.0
pres_ratio = 0.0, 0.5, 1.0
curr_ratio = 1.0, 1.0, 1.0
pert_order = 1, 1, 2
maxiter = 50, 100
m: 0 n: 0 R1 = 1.0 Z1 = 0.0
`
	cfg, err := NewParser(nil).Parse(strings.NewReader(deck))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if got := cfg.NumStages(); got != 3 {
		t.Fatalf("NumStages() = %d, want 3", got)
	}
	last := cfg.Stage(2)
	if last.MPol != 8 {
		t.Errorf("stage 2 MPol = %d, want 8 (broadcast)", last.MPol)
	}
	if last.LRad != 4 {
		t.Errorf("stage 2 LRad = %d, want 4 (broadcast)", last.LRad)
	}
	if last.NTor != 4 {
		t.Errorf("stage 2 NTor = %d, want 4", last.NTor)
	}
	if last.MaxIter != 100 {
		t.Errorf("stage 2 MaxIter = %d, want 100 (broadcast)", last.MaxIter)
	}
	if last.PertOrder != 2 {
		t.Errorf("stage 2 PertOrder = %d, want 2", last.PertOrder)
	}
	if last.MGrid != 16 {
		t.Errorf("stage 2 MGrid = %d, want 16 (2*M_pol)", last.MGrid)
	}
}
