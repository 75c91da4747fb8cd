package model

import "errors"

var (
	// ErrInvalidArgument is returned when a required field is empty or malformed.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
)
