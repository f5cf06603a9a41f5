package auth

import "errors"

var (
	MissingHashErr     = errors.New("login assertion has no hash")
	StaleAssertionErr  = errors.New("login assertion is too old")
	FutureAssertionErr = errors.New("login assertion is dated in the future")
)
