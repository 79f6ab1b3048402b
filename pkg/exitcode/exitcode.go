// Package exitcode provides standardized exit codes for sitearchive
package exitcode

import "errors"

// Exit codes for the sitearchive CLI
const (
	Success         = 0
	GeneralError    = 1
	ConfigError     = 2
	ValidationError = 3
	FileSystemError = 4
	NetworkError    = 5
	PermissionError = 6
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case ValidationError:
		return "Validation error"
	case FileSystemError:
		return "File system error"
	case NetworkError:
		return "Network error"
	case PermissionError:
		return "Permission error"
	default:
		return "Unknown error"
	}
}

// Coded is implemented by errors that carry their own exit code.
type Coded interface {
	ExitCode() int
}

// Error attaches an exit code to err.
type Error struct {
	Code int
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
func (e *Error) ExitCode() int { return e.Code }

// Wrap returns err tagged with code, or nil when err is nil.
func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Err: err}
}

// FromError picks the exit code for err. The outermost Coded error in the
// chain wins; anything else is a GeneralError.
func FromError(err error) int {
	if err == nil {
		return Success
	}
	var coded Coded
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return GeneralError
}
