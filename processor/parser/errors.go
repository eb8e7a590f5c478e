package parser

import "errors"

// Field access errors. They are wrapped into errors.ErrInvalidReading by
// callers that require the field.
var (
	ErrFieldMissing = errors.New("field missing")
	ErrFieldType    = errors.New("field has wrong type")
	ErrFieldRange   = errors.New("field out of range")
)
