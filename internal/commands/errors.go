package commands

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to errors returned by Handler.Execute. Errors that are
// already categorised, such as a missing post, keep their own code.
const (
	CodeInvalidMessage = "FREEZE_COMMAND_INVALID"
	CodeCanceled       = "FREEZE_COMMAND_CANCELED"
	CodeTimeout        = "FREEZE_COMMAND_TIMEOUT"
	CodeContext        = "FREEZE_COMMAND_CONTEXT"
	CodeFailed         = "FREEZE_COMMAND_FAILED"
)

// TextCode returns the go-errors text code carried by err, or "".
func TextCode(err error) string {
	var coded *goerrors.Error
	if errors.As(err, &coded) {
		return coded.TextCode
	}
	return ""
}

func wrapValidationError(err error) error {
	return categorise(err, goerrors.CategoryValidation, "invalid command message", CodeInvalidMessage)
}

func wrapContextError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return categorise(err, goerrors.CategoryCommand, "command cancelled", CodeCanceled)
	case errors.Is(err, context.DeadlineExceeded):
		return categorise(err, goerrors.CategoryCommand, "command timed out", CodeTimeout)
	default:
		return categorise(err, goerrors.CategoryCommand, "command context error", CodeContext)
	}
}

func wrapExecuteError(err error) error {
	return categorise(err, goerrors.CategoryCommand, "command failed", CodeFailed)
}

func categorise(err error, category goerrors.Category, message, code string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsWrapped(err) {
		return err
	}
	return goerrors.Wrap(err, category, message).WithTextCode(code)
}
