package services

import (
	"context"
	"errors"
)

// isContextErr reports whether err came from cancellation or a deadline.
func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
