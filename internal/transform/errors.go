package transform

import "errors"

var (
	// ErrParse is returned (wrapped) when a transformer cannot parse its input.
	ErrParse = errors.New("parse error")

	// ErrUnknownTransformer is returned by ByName for a name that has no
	// built-in implementation.
	ErrUnknownTransformer = errors.New("unknown transformer")
)
