package cmd

import (
	"context"
	"errors"

	"github.com/abdul-hamid-achik/rqn/packages/http"
)

// Exit codes for rqn CLI
const (
	// ExitSuccess indicates the command succeeded
	ExitSuccess = 0

	// ExitTestFailure indicates a failed expectation, threshold or collection request
	ExitTestFailure = 1

	// ExitParseError indicates a collection or schema file could not be parsed
	ExitParseError = 2

	// ExitConfigError indicates a configuration error
	ExitConfigError = 3

	// ExitNetworkError indicates a network or protocol error
	ExitNetworkError = 4

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)

// exitError carries the exit code a command wants alongside its error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps an error returned by a command to the process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}

	var te *http.TransportError
	switch {
	case errors.As(err, &te),
		errors.Is(err, http.ErrUnsupportedProtocol),
		errors.Is(err, http.ErrMalformedResponse),
		errors.Is(err, http.ErrIncompleteResponse),
		errors.Is(err, http.ErrTooManyRedirects),
		errors.Is(err, context.DeadlineExceeded):
		return ExitNetworkError
	}

	return ExitUsageError
}
