package geo

import "github.com/pkg/errors"

// ErrInvalidInput marks malformed bounds or inconsistent CRS input.
var ErrInvalidInput = errors.New("invalid input")
