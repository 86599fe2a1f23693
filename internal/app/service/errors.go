package service

import "errors"

var (
	// ErrInvalidURL signals a destination that failed normalization.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidCode signals a custom short code that failed validation.
	ErrInvalidCode = errors.New("invalid short code")
	// ErrCodeSpaceExhausted signals that no unique random code was found
	// within the retry budget.
	ErrCodeSpaceExhausted = errors.New("unable to generate a unique short code")
)
