// Package basis implements the spectral bases used to represent flux
// surfaces and profiles: Fourier series in the poloidal and toroidal
// angles combined with Zernike polynomials in the radial coordinate.
//
// All bases use a real-valued convention: a mode number m >= 0 selects
// cos(|m| theta) and m < 0 selects sin(|m| theta), and likewise for the
// toroidal mode number n with argument NFP*zeta. Under stellarator
// symmetry, cos-parity series keep the mode pairs whose product is even
// under (theta, zeta) -> (-theta, -zeta), that is cos*cos and sin*sin;
// sin-parity series keep the mixed pairs.
//
// Basis evaluation produces dense matrices mapping spectral coefficients
// to values (or partial derivatives) at a set of collocation nodes; the
// transform package caches these matrices per grid.
package basis
