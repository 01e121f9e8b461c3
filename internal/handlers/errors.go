package handlers

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/errx"
	"go.uber.org/zap"
)

// httpError maps a service error to the huma error for its kind. Unclassified errors are
// logged and hidden behind a 500.
func httpError(logger *zap.Logger, op string, err error) error {
	switch errx.KindOf(err) {
	case errx.Unauthenticated:
		return huma.Error401Unauthorized("sign in required")
	case errx.Forbidden:
		return huma.Error403Forbidden(rootCause(err))
	case errx.NotFound:
		return huma.Error404NotFound(rootCause(err))
	case errx.ValidationFailed:
		return huma.Error400BadRequest(rootCause(err))
	case errx.Conflict:
		return huma.Error409Conflict(rootCause(err))
	default:
		logger.Error("request failed", zap.String("op", op), zap.Error(err))

		return huma.Error500InternalServerError("internal server error")
	}
}

// rootCause returns the message of the innermost wrapped error, which for service errors
// is one of the exported sentinels.
func rootCause(err error) string {
	for next := errors.Unwrap(err); next != nil; next = errors.Unwrap(err) {
		err = next
	}

	return err.Error()
}
