package template

import "errors"

// Sentinel errors shared across parsing and resolution
var (
	// Parse errors
	ErrInvalidTemplate = errors.New("invalid template syntax")
	ErrUnterminatedRef = errors.New("unterminated ${ reference")
	ErrEmptyRef        = errors.New("empty ${} reference")
	ErrMalformedRef    = errors.New("malformed ${} reference")

	// Resolution errors
	ErrUnresolvedVariable = errors.New("unresolved variable")
	ErrCircularReference  = errors.New("circular variable reference")
	ErrDepthExceeded      = errors.New("maximum resolution depth exceeded")
	ErrNilContext         = errors.New("nil resolution context")
)
