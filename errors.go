package qdash

import "errors"

// Error classes. Callers wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
var (
	// ErrMissingData is a missing output directory, file, column value set or geometry layer.
	ErrMissingData = errors.New("missing data")

	// ErrMalformedInput is an unreadable CSV, an absent required column or an unsupported value.
	ErrMalformedInput = errors.New("malformed input")

	// ErrJoinMismatch is a misaligned region/date key between tables that must line up.
	ErrJoinMismatch = errors.New("join mismatch")
)
