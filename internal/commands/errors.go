package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	codeValidationFailed = "COMMAND_VALIDATION_FAILED"
	codeContextCanceled  = "COMMAND_CONTEXT_CANCELED"
	codeContextTimeout   = "COMMAND_CONTEXT_TIMEOUT"
	codeContextError     = "COMMAND_CONTEXT_ERROR"
	codeExecuteFailed    = "COMMAND_EXECUTION_FAILED"
)

// wrap normalizes err into a categorized go-errors value. Errors that are
// already wrapped pass through unchanged so codes set closer to the failure
// are preserved.
func wrap(err error, category goerrors.Category, code, message string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, category, message).WithTextCode(code)
}

func wrapValidationError(err error) error {
	return wrap(err, goerrors.CategoryValidation, codeValidationFailed, "command validation failed")
}

func wrapContextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return wrap(err, goerrors.CategoryCommand, codeContextCanceled, "command execution cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return wrap(err, goerrors.CategoryCommand, codeContextTimeout, "command execution deadline exceeded")
	default:
		return wrap(err, goerrors.CategoryCommand, codeContextError, "command context error")
	}
}

func wrapExecuteError(err error) error {
	return wrap(err, goerrors.CategoryCommand, codeExecuteFailed, "command execution failed")
}
