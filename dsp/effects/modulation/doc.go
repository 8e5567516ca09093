// Package modulation provides the LFO-modulated delay chorus used on the
// chorus send bus.
package modulation
