package project

import "errors"

// Sentinel errors for project service operations.
var (
	ErrEmptyPatch   = errors.New("patch changes nothing")
	ErrInvalidInput = errors.New("invalid input")
)
