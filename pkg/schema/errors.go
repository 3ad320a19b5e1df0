package schema

import "errors"

// ErrInvalidJSON means the raw response was not well-formed JSON at all.
var ErrInvalidJSON = errors.New("schema: response is not valid JSON")

// ErrValidation means the response parsed but failed one or more field checks.
var ErrValidation = errors.New("schema: validation failed")

// IsValidationError reports whether err originated from schema validation:
// either a failed field check or a response that was not valid JSON.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrInvalidJSON)
}
