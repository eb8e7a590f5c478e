// Package normalizer validates device readings, canonicalizes their sample
// label and smooths every numeric channel with a sliding-window moving
// average.
//
// A Normalizer holds the smoothing state of exactly one ingestion session.
// Results depend on arrival order and there is no replay: feeding the same
// reading twice moves the averages twice.
//
//	n, _ := normalizer.New(3)
//	reading, err := n.NormalizeReading(frame)
//	if errors.Is(err, errors.ErrInvalidReading) {
//	    // skip the line
//	}
//
// Status frames need no state and are mapped with the package-level
// BuildStatusEvent.
package normalizer
