package main

// ExitError pairs a process exit code with a user-facing message. Commands
// return ExitCommandError (exit 2) when the rotation document, the --driver
// value or the log store cannot be used, and ExitFailure (exit 1) when the
// debug server stops; any other error maps to exit 1 via exitCodeFor.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

const (
	ExitFailure      = 1
	ExitCommandError = 2
)

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// exitCodeFor returns the process exit code for err, defaulting to
// ExitFailure when err isn't an *ExitError.
func exitCodeFor(err error) int {
	if ee, ok := err.(*ExitError); ok {
		return ee.Code
	}
	return ExitFailure
}
