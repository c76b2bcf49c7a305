// Package output writes a solved equilibrium to a YAML document that
// records everything needed to reconstruct or restart it: resolution,
// flux, profiles, boundary shape, and the spectral coefficients.
package output

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/stellmhd/stellmhd/internal/basis"
	"github.com/stellmhd/stellmhd/internal/continuation"
	"github.com/stellmhd/stellmhd/internal/equilibrium"
	"github.com/stellmhd/stellmhd/pkg/version"
)

// Document is the saved form of an equilibrium.
type Document struct {
	Version string `yaml:"version"`

	Resolution Resolution `yaml:"resolution"`
	Psi        float64    `yaml:"psi"`
	NFP        int        `yaml:"nfp"`
	Sym        bool       `yaml:"sym"`

	Pressure ProfileDoc `yaml:"pressure"`
	Iota     ProfileDoc `yaml:"iota,omitempty"`
	Current  ProfileDoc `yaml:"current,omitempty"`

	Boundary []SurfaceCoeff `yaml:"boundary"`
	Axis     []AxisCoeff    `yaml:"axis"`

	RLmn map[string]float64 `yaml:"R_lmn"`
	ZLmn map[string]float64 `yaml:"Z_lmn"`
	LLmn map[string]float64 `yaml:"L_lmn"`

	Stages []StageDoc `yaml:"stages,omitempty"`
}

// Resolution is the spectral truncation of the saved state.
type Resolution struct {
	L        int    `yaml:"L"`
	M        int    `yaml:"M"`
	N        int    `yaml:"N"`
	Indexing string `yaml:"indexing"`
}

// ProfileDoc is a power series profile as degree/value pairs.
type ProfileDoc []ProfileTerm

// ProfileTerm is one term of a profile.
type ProfileTerm struct {
	L     int     `yaml:"l"`
	Value float64 `yaml:"value"`
}

// SurfaceCoeff is one boundary Fourier coefficient.
type SurfaceCoeff struct {
	M int     `yaml:"m"`
	N int     `yaml:"n"`
	R float64 `yaml:"R,omitempty"`
	Z float64 `yaml:"Z,omitempty"`
}

// AxisCoeff is one axis Fourier coefficient.
type AxisCoeff struct {
	N int     `yaml:"n"`
	R float64 `yaml:"R,omitempty"`
	Z float64 `yaml:"Z,omitempty"`
}

// StageDoc summarizes one continuation stage for the record.
type StageDoc struct {
	Stage      int     `yaml:"stage"`
	Cost       float64 `yaml:"cost"`
	Iterations int     `yaml:"iterations"`
	Status     string  `yaml:"status"`
}

// Build assembles the document from a solved equilibrium.
func Build(eq *equilibrium.Equilibrium, stages []continuation.StageResult) *Document {
	doc := &Document{
		Version: version.Version,
		Resolution: Resolution{
			L: eq.L, M: eq.M, N: eq.N,
			Indexing: string(eq.Indexing),
		},
		Psi:      eq.Psi,
		NFP:      eq.NFP,
		Sym:      eq.Sym,
		Pressure: profileDoc(eq.Pressure.Coefficients()),
		Iota:     profileDoc(eq.Iota.Coefficients()),
		Current:  profileDoc(eq.Current.Coefficients()),
		RLmn:     coeffMap(eq.RBasis, eq.RLmn),
		ZLmn:     coeffMap(eq.ZBasis, eq.ZLmn),
		LLmn:     coeffMap(eq.LBasis, eq.LLmn),
	}
	for i, md := range eq.Boundary.RBasis.Modes {
		if eq.Boundary.Rmn[i] != 0 {
			doc.Boundary = append(doc.Boundary, SurfaceCoeff{M: md.M, N: md.N, R: eq.Boundary.Rmn[i]})
		}
	}
	for i, md := range eq.Boundary.ZBasis.Modes {
		if eq.Boundary.Zmn[i] != 0 {
			doc.Boundary = append(doc.Boundary, SurfaceCoeff{M: md.M, N: md.N, Z: eq.Boundary.Zmn[i]})
		}
	}
	sort.Slice(doc.Boundary, func(i, j int) bool {
		a, b := doc.Boundary[i], doc.Boundary[j]
		if a.M != b.M {
			return a.M < b.M
		}
		return a.N < b.N
	})
	for i, md := range eq.Axis.RBasis.Modes {
		if eq.Axis.Rn[i] != 0 {
			doc.Axis = append(doc.Axis, AxisCoeff{N: md.N, R: eq.Axis.Rn[i]})
		}
	}
	for i, md := range eq.Axis.ZBasis.Modes {
		if eq.Axis.Zn[i] != 0 {
			doc.Axis = append(doc.Axis, AxisCoeff{N: md.N, Z: eq.Axis.Zn[i]})
		}
	}
	for _, s := range stages {
		doc.Stages = append(doc.Stages, StageDoc{
			Stage:      s.Index,
			Cost:       s.Cost,
			Iterations: s.Iter,
			Status:     s.Status.String(),
		})
	}
	return doc
}

func profileDoc(degrees []int, coeffs []float64) ProfileDoc {
	var out ProfileDoc
	for i, d := range degrees {
		out = append(out, ProfileTerm{L: d, Value: coeffs[i]})
	}
	return out
}

// coeffMap keys each spectral coefficient by "l,m,n".
func coeffMap(b *basis.FourierZernike, c []float64) map[string]float64 {
	out := make(map[string]float64, len(c))
	for i, md := range b.Modes {
		out[fmt.Sprintf("%d,%d,%d", md.L, md.M, md.N)] = c[i]
	}
	return out
}

// Write encodes the document as YAML.
func Write(w io.Writer, doc *Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode equilibrium: %w", err)
	}
	return enc.Close()
}

// Save writes the document to path.
func Save(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()
	if err := Write(f, doc); err != nil {
		return err
	}
	return f.Sync()
}

// Load reads a document back, for restarts and tooling.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open equilibrium file: %w", err)
	}
	defer f.Close()
	var doc Document
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode equilibrium: %w", err)
	}
	return &doc, nil
}
