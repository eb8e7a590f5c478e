// Package errors implements the relay's error taxonomy.
//
// # Classification
//
// Errors fall into three classes:
//
//   - Transient: socket I/O failures, timeouts, cancellation. The affected
//     session ends; listeners and other sessions keep running.
//   - Invalid: a malformed frame or a reading that fails strict decoding.
//     The line is skipped and the session continues.
//   - Fatal: bad configuration or a listener that cannot bind at startup.
//     These are the only conditions that end the process.
//
// # Sentinels
//
//	ErrMalformedFrame    unparseable line or missing/non-string "type"
//	ErrInvalidReading    data frame with a missing or non-numeric field
//	ErrConnection        I/O failure on either socket direction
//	ErrLaggedSubscriber  a subscriber lost events because it fell behind
//
// # Wrapping
//
// All wrapping follows "component.method: action failed: %w":
//
//	if err := ln.Accept(); err != nil {
//	    return errors.WrapTransient(err, "RelayServer", "acceptLoop", "accept")
//	}
//
// Wrapped errors keep their sentinel, so callers branch with errors.Is:
//
//	frame, err := parser.ParseFrame(line)
//	if errors.Is(err, errors.ErrMalformedFrame) {
//	    logger.Warn("Skipping malformed frame", "error", err)
//	}
package errors
