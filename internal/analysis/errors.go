package analysis

import "github.com/pkg/errors"

var (
	// ErrInvalidDimension is returned for non-positive frame or grid dimensions.
	ErrInvalidDimension = errors.New("invalid dimension")
	// ErrInvalidInput is returned for values outside their valid interval,
	// such as a CDI or confidence outside [0,1] or a malformed bounding box.
	ErrInvalidInput = errors.New("invalid input")
)
