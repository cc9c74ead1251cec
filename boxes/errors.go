package boxes

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidImageSize is returned when a scale conversion gets a non-positive dimension.
var ErrInvalidImageSize = errors.New("image dimensions must be positive")

// ParseError reports a box or annotation line that could not be parsed.
type ParseError struct {
	// Input is the offending text.
	Input string
	// Reason says what was wrong with it.
	Reason string
	// Err is the underlying conversion error, if any.
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %q: %s: %v", e.Input, e.Reason, e.Err)
	}
	return fmt.Sprintf("parse %q: %s", e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
