package output

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/stellmhd/stellmhd/internal/continuation"
	"github.com/stellmhd/stellmhd/internal/equilibrium"
	"github.com/stellmhd/stellmhd/internal/input"
	"github.com/stellmhd/stellmhd/internal/optimize"
)

func testEquilibrium(t *testing.T) *equilibrium.Equilibrium {
	t.Helper()
	cfg := input.DefaultConfig()
	cfg.Sym = true
	cfg.NFP = 1
	cfg.Psi = 0.5
	cfg.LRad = []int{2}
	cfg.MPol = []int{2}
	cfg.NTor = []int{0}
	cfg.Boundary = []input.BoundaryCoeff{
		{M: 0, N: 0, R: 10},
		{M: 1, N: 0, R: 1},
		{M: -1, N: 0, Z: 1},
	}
	cfg.Pressure = []input.ProfileCoeff{{L: 0, Value: 500}, {L: 2, Value: -500}}
	cfg.Iota = []input.ProfileCoeff{{L: 0, Value: 0.8}}
	require.NoError(t, cfg.Validate())
	eq, err := equilibrium.New(cfg, cfg.Stage(0))
	require.NoError(t, err)
	return eq
}

func TestBuildDocument(t *testing.T) {
	eq := testEquilibrium(t)
	stages := []continuation.StageResult{
		{Index: 0, Cost: 1.5e-9, Iter: 12, Status: optimize.StatusFtol},
	}

	doc := Build(eq, stages)
	assert.Equal(t, 2, doc.Resolution.L)
	assert.Equal(t, "ansi", doc.Resolution.Indexing)
	assert.Equal(t, 0.5, doc.Psi)
	assert.True(t, doc.Sym)

	require.Len(t, doc.Pressure, 2)
	assert.Equal(t, ProfileTerm{L: 0, Value: 500}, doc.Pressure[0])
	require.Len(t, doc.Iota, 1)

	assert.Len(t, doc.RLmn, eq.RBasis.NumModes())
	assert.Contains(t, doc.RLmn, "0,0,0")
	assert.InDelta(t, 10, doc.RLmn["0,0,0"], 1e-8)
	assert.Contains(t, doc.ZLmn, "1,-1,0")

	require.Len(t, doc.Boundary, 3)
	assert.Equal(t, SurfaceCoeff{M: -1, N: 0, Z: 1}, doc.Boundary[0])

	require.Len(t, doc.Stages, 1)
	assert.Equal(t, "cost tolerance satisfied", doc.Stages[0].Status)
}

func TestWriteRoundTrip(t *testing.T) {
	eq := testEquilibrium(t)
	doc := Build(eq, nil)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, doc))

	var back Document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, doc.Resolution, back.Resolution)
	assert.Equal(t, doc.Psi, back.Psi)
	assert.InDelta(t, doc.RLmn["0,0,0"], back.RLmn["0,0,0"], 1e-12)
	assert.Equal(t, doc.Boundary, back.Boundary)
}

func TestSaveLoad(t *testing.T) {
	eq := testEquilibrium(t)
	doc := Build(eq, nil)
	path := filepath.Join(t.TempDir(), "eq.yaml")

	require.NoError(t, Save(path, doc))
	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, doc.NFP, back.NFP)
	assert.Len(t, back.LLmn, eq.LBasis.NumModes())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
