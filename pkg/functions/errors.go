package functions

import "errors"

// Sentinel errors for function invocation failures. All invocation problems
// are reported through these wrapped sentinels; builtins never panic on
// caller input.
var (
	ErrUnknownFunction  = errors.New("unknown function")
	ErrArity            = errors.New("wrong number of arguments")
	ErrInvalidArguments = errors.New("invalid arguments")
)
