package query

import (
	"errors"
	"fmt"
)

// ClientError reports a request the driver refuses before it reaches the
// engine, such as a table item without a name. The HTTP surface maps it to 400.
type ClientError struct {
	Field   string // offending request field, if any
	message string
}

func (e *ClientError) Error() string {
	if e.Field == "" {
		return e.message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.message)
}

// NewClientErrorf creates a client error for the given request field
func NewClientErrorf(field, format string, args ...interface{}) *ClientError {
	return &ClientError{Field: field, message: fmt.Sprintf(format, args...)}
}

// IsClientError checks if err is, or wraps, a client error
func IsClientError(err error) bool {
	var ce *ClientError
	return errors.As(err, &ce)
}
