// Package design provides the RBJ-cookbook biquad designers used by the
// channel EQ and the delay feedback filters.
//
// Every designer returns biquad.Identity() for frequencies outside
// (0, Nyquist) so a misconfigured band degrades to pass-through instead of
// producing an unstable filter.
package design
