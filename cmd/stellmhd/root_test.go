package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellmhd/stellmhd/internal/output"
)

const testDeck = `# circular tokamak
sym = 1
NFP = 1
Psi = 1.0
L_rad = 2
M_pol = 2
N_tor = 0
m: 0 n: 0 R1 = 10.0
m: 1 n: 0 R1 = 1.0
m: -1 n: 0 Z1 = 1.0
`

func writeDeck(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokamak.txt")
	require.NoError(t, os.WriteFile(path, []byte(testDeck), 0o644))
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "stellmhd")
}

func TestCheckCommand(t *testing.T) {
	path := writeDeck(t)
	out, err := runCmd(t, "check", path)
	require.NoError(t, err)
	assert.Contains(t, out, "ok (1 continuation stages)")
}

func TestSolveCommandEndToEnd(t *testing.T) {
	dir := t.TempDir()
	deck := filepath.Join(dir, "tokamak.txt")
	require.NoError(t, os.WriteFile(deck, []byte(testDeck+"maxiter = 3\n"), 0o644))
	outPath := filepath.Join(dir, "tokamak_output.yaml")

	_, err := runCmd(t, "solve", deck, "-o", outPath)
	require.NoError(t, err)

	doc, err := output.Load(outPath)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Resolution.L)
	assert.Equal(t, 1, doc.NFP)
	assert.NotEmpty(t, doc.RLmn)
	require.Len(t, doc.Stages, 1)
}

func TestCheckCommandBadDeck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("Psi = not-a-number\n"), 0o644))
	_, err := runCmd(t, "check", path)
	require.Error(t, err)
}

func TestCheckCommandMissingFile(t *testing.T) {
	_, err := runCmd(t, "check", filepath.Join(t.TempDir(), "absent.txt"))
	require.Error(t, err)
}
