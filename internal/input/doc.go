// Package input reads stellmhd input decks.
//
// An input deck is a plain-text file of keyed parameter blocks describing a
// fixed-boundary equilibrium problem: global parameters (symmetry, field
// periods, total toroidal flux), spectral resolution, the continuation
// schedule, solver tolerances and methods, boundary-shape Fourier
// coefficients, profile coefficients, and an initial magnetic-axis guess.
//
// Format summary:
//
//   - comment lines begin with '#'; inline comments are allowed
//   - scalar assignments: key = value        (e.g. NFP = 4, Psi = 0.04)
//   - range shorthand:    key = start:step:end   (0:2:8 -> 0,2,4,6,8)
//   - per-stage arrays:   key = v1, v2, ...
//   - boundary rows:      m: 0  n: 0  R1 = 1.0E+00  Z1 = 0.0E+00
//   - profile rows:       l: 0  p = 1.8E+04  i = 1.0
//   - axis rows:          n: 0  R0 = 3.51  Z0 = 0.0
//
// Parsing is strict: unknown keys, malformed values, and continuation
// arrays of unequal length are rejected with errors naming the offending
// key and line.
package input
