// Package interp provides the fractional-sample interpolators used by the
// modulated delay lines.
package interp
