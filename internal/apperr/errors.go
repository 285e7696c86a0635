package apperr

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrNoSnapshot = errors.New("no snapshot")
)
