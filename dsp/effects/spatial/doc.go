// Package spatial provides stereo placement processors.
//
// Included processors:
//   - Panner: Equal-power stereo balance for stereo sources.
package spatial
