// Package dynamics provides the soft-knee compressor used for channel
// dynamics, master program compression and brick-wall limiting.
//
// Gain is computed in the log2 domain with a quadratic soft knee. Detection
// is stereo-linked: both channels receive the gain derived from the louder
// one, so compression never shifts the stereo image.
package dynamics
