package commands

import "fmt"

const (
	exitFailure = 1
	exitUsage   = 2
)

// ExitError carries the process exit status for main.
type ExitError interface {
	error
	ExitCode() int
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func newExitError(code int, err error) ExitError {
	if code == 0 {
		code = exitFailure
	}
	return &exitError{code: code, err: err}
}
