// Package biquad implements second-order IIR sections in Direct Form II
// Transposed.
//
// Sections carry their own state, so coefficients can be swapped between
// render quanta with SetCoefficients without clearing the filter memory.
package biquad
