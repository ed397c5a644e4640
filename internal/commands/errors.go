package commands

import "errors"

// Outcome classes for command handling. Every failure is still answered with
// a reply; the class only feeds logging and metrics.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrPermissionDenied = errors.New("permission denied")
)

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	default:
		return "error"
	}
}
