// Package simerr classifies simulation failures.
package simerr

import (
	"errors"
	"fmt"
)

// Kind is the failure class of a simulation error.
type Kind string

const (
	KindConfig        Kind = "config"
	KindMissingInput  Kind = "missing_input"
	KindEngineFailure Kind = "engine_failure"
	KindIO            Kind = "io"
)

// Input kinds reported with KindMissingInput.
const (
	InputNomfich  = "nomfich"
	InputFins     = "fins"
	InputInitials = "initials"
	InputForcing  = "forcing"
	InputEngine   = "engine"
	InputOutputs  = "outputs"
)

// Error carries a failure kind alongside the failing operation.
type Error struct {
	Kind  Kind
	Input string
	Op    string
	Err   error
}

func (e *Error) Error() string {
	prefix := string(e.Kind)
	if e.Input != "" {
		prefix += "(" + e.Input + ")"
	}
	if e.Op != "" {
		prefix += " " + e.Op
	}
	if e.Err == nil {
		return prefix
	}
	return prefix + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on kind and input so callers can compare against a template,
// e.g. errors.Is(err, &Error{Kind: KindMissingInput, Input: InputForcing}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != "" && t.Kind != e.Kind {
		return false
	}
	if t.Input != "" && t.Input != e.Input {
		return false
	}
	return t.Err == nil
}

func Config(op string, format string, args ...any) error {
	return &Error{Kind: KindConfig, Op: op, Err: fmt.Errorf(format, args...)}
}

func MissingInput(input string, format string, args ...any) error {
	return &Error{Kind: KindMissingInput, Input: input, Err: fmt.Errorf(format, args...)}
}

func Engine(op string, format string, args ...any) error {
	return &Error{Kind: KindEngineFailure, Op: op, Err: fmt.Errorf(format, args...)}
}

// IO wraps a filesystem or transport error. A nil err stays nil.
func IO(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: KindIO, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in the chain, or "" if none.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// InputOf returns the missing input kind, or "" if err is not a missing input.
func InputOf(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Kind == KindMissingInput {
		return se.Input
	}
	return ""
}
