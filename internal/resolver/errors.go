package resolver

import (
	"errors"
	"fmt"

	"partscout/internal/enginecode"
)

// Code classifies a terminal resolution failure.
type Code string

const (
	CodeUnrecognizedInput       Code = "UnrecognizedInput"
	CodeEngineCodeNotRecognized Code = "EngineCodeNotRecognized"
)

// ResolutionError is returned when an identifier cannot be turned into a
// vehicle identity at all.
type ResolutionError struct {
	Code  Code
	Input string
	Err   error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func newResolutionError(input string, err error) *ResolutionError {
	code := CodeUnrecognizedInput
	if errors.Is(err, enginecode.ErrEngineCodeNotRecognized) {
		code = CodeEngineCodeNotRecognized
	}
	return &ResolutionError{Code: code, Input: input, Err: err}
}

// AsResolutionError unwraps err to a *ResolutionError, if it is one.
func AsResolutionError(err error) (*ResolutionError, bool) {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
