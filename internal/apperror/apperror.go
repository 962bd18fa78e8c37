package apperror

import (
	"errors"
	"fmt"
)

// Code classifies a run failure.
type Code string

const (
	Configuration Code = "CONFIGURATION"
	Provider      Code = "PROVIDER"
	StoreCorrupt  Code = "STORE_CORRUPT"
	Persistence   Code = "PERSISTENCE"
	Unknown       Code = "UNKNOWN"
)

// Error is a failure tagged with its Code and the operation that produced it.
type Error struct {
	code Code
	op   string
	err  error
}

func New(code Code, op, message string) *Error {
	return &Error{code: code, op: op, err: errors.New(message)}
}

// Wrap tags err with code. A nil err yields nil.
func Wrap(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, op: op, err: err}
}

func Wrapf(code Code, op string, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{code: code, op: op, err: fmt.Errorf(format+": %w", append(args, err)...)}
}

func (e *Error) Error() string {
	if e.op == "" {
		return e.err.Error()
	}
	return e.op + ": " + e.err.Error()
}

func (e *Error) Unwrap() error { return e.err }
func (e *Error) Code() Code    { return e.code }
func (e *Error) Op() string    { return e.op }

// CodeOf returns the Code of the first tagged error in err's chain.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.code
	}
	return Unknown
}

// ExitCode maps a Code to the process exit status.
func (c Code) ExitCode() int {
	switch c {
	case "":
		return 0
	case Configuration:
		return 2
	case Provider:
		return 3
	case StoreCorrupt:
		return 4
	case Persistence:
		return 5
	default:
		return 1
	}
}
