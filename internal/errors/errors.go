package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error type mapped to process exit codes.
type Code int

const (
	CodeSuccess       Code = 0
	CodeInternal      Code = 1
	CodeUsage         Code = 2
	CodeAuth          Code = 10
	CodeRateLimited   Code = 11
	CodeUnavailable   Code = 12
	CodeUnsupported   Code = 13
	CodeInsufficient  Code = 14
	CodeBlocked       Code = 16
	CodeSigner        Code = 17
	CodeActionTimeout Code = 18
)

// Error is a typed error that carries a stable error code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	if cliErr, ok := As(err); ok {
		return int(cliErr.Code)
	}
	return int(CodeInternal)
}

// Kind names the failure category surfaced to chat users in result data.
func Kind(err error) string {
	cliErr, ok := As(err)
	if !ok {
		return "collaborator_failure"
	}
	switch cliErr.Code {
	case CodeUsage:
		return "validation_error"
	case CodeInsufficient:
		return "insufficient_resource"
	case CodeBlocked:
		return "policy_rejection"
	case CodeUnsupported:
		return "unsupported"
	case CodeInternal:
		return "internal_error"
	default:
		return "collaborator_failure"
	}
}
