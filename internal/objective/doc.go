// Package objective evaluates the physics residuals that the optimizer
// drives to zero. An Evaluator turns a spectral state vector into the
// flux-surface geometry, magnetic field, and plasma currents on a
// collocation grid; the ForceBalance and Energy objectives reduce those
// fields to residual vectors; and Function adapts an objective to the
// constrained reduced variable, with a finite-difference Jacobian
// evaluated column-parallel.
package objective
