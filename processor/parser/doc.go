// Package parser turns one device line into a tagged Frame.
//
// A frame is a JSON object with a string "type" discriminator. The
// discriminator is resolved here into a closed FrameKind; anything outside
// data, status, motor and calib_progress parses as KindUnknown so callers
// can reject it explicitly:
//
//	frame, err := parser.ParseFrame(`{"type":"motor","motor":"M1","speed":60}`)
//	if err != nil {
//	    // errors.ErrMalformedFrame: not JSON, not an object, or bad "type"
//	}
//	switch frame.Kind {
//	case parser.KindData:
//	    ...
//	}
//
// Field accessors on Frame are strict: GetString only accepts JSON strings,
// GetFloat only JSON numbers, GetInt and GetUint only integer literals. JSON null is
// reported as missing.
package parser
