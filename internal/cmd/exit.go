package cmd

import "errors"

// Exit codes of the shadertpl command
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	// ExitCompileError is returned when at least one template failed to compile
	ExitCompileError = 2
	// ExitConfigError is returned for an invalid config file or flags
	ExitConfigError = 3
)

// ExitError carries the exit code a command failed with
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit"
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCodeFromError returns the exit code for an error returned by a command
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitGeneralError
}
