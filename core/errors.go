package tinylisp

import (
	"errors"
	"fmt"
)

// Evaluation failure kinds. Every *EvalError unwraps to exactly one of these.
var (
	ErrArity          = errors.New("wrong number of arguments")
	ErrType           = errors.New("type error")
	ErrUnknownKeyword = errors.New("unknown keyword")
	ErrNotCallable    = errors.New("not callable")
	ErrEmptyArgument  = errors.New("empty argument")
	ErrEmptyForm      = errors.New("empty form")
	ErrDivisionByZero = errors.New("division by zero")
	ErrDepthExceeded  = errors.New("recursion depth exceeded")
)

// ErrEndOfInput is returned by the parser when no form is left to read.
var ErrEndOfInput = errors.New("end of input")

// EvalError is a recoverable evaluation failure. Form is the rendered form
// being evaluated when the failure happened.
type EvalError struct {
	Kind error
	Form string
	Msg  string
}

func (e *EvalError) Error() string {
	if e.Form != "" {
		return fmt.Sprintf("%s: %s", e.Form, e.Msg)
	}
	return e.Msg
}

func (e *EvalError) Unwrap() error { return e.Kind }

func evalErrorf(kind error, form *Node, format string, args ...any) *EvalError {
	e := &EvalError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
	if form != nil {
		e.Form = form.String()
	}
	return e
}

// LexError reports a character the tokenizer cannot classify, or an
// integer literal that does not fit in 64 bits.
type LexError struct {
	Offset int
	Char   rune
	Msg    string
}

func (e *LexError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("lex error at offset %d: %s", e.Offset, e.Msg)
	}
	return fmt.Sprintf("lex error at offset %d: unexpected character %q", e.Offset, e.Char)
}

// ParseError reports malformed token sequences. Incomplete is set when the
// input ended inside an open list, so more input could still complete it.
type ParseError struct {
	Offset     int
	Msg        string
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Msg)
}

// IsIncomplete reports whether err is a parse error caused by input ending
// before an open list was closed.
func IsIncomplete(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Incomplete
}
