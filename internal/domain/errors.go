package domain

import "errors"

var (
	// ErrTestNotFound is returned when the content source has no test for a code.
	ErrTestNotFound = errors.New("test not found")
	// ErrMalformedContent indicates fetched test content failed structural validation.
	ErrMalformedContent = errors.New("malformed test content")
	// ErrInvalidAnswer indicates an answer index out of bounds for the current question.
	ErrInvalidAnswer = errors.New("invalid answer index")
	// ErrNoActiveSession is returned when an answer arrives with no session in progress,
	// or the session is already completed. Callers present a friendly message.
	ErrNoActiveSession = errors.New("no active test session")
)
