package descriptor

import (
	"errors"
	"fmt"
)

// Kind classifies why a tool source was rejected.
type Kind string

const (
	KindNoFunction        Kind = "no_function"
	KindMultipleFunctions Kind = "multiple_functions"
	KindSyntax            Kind = "syntax"
	KindMissingDocstring  Kind = "missing_docstring"
	KindMissingParamDoc   Kind = "missing_param_doc"
	KindParamMismatch     Kind = "param_mismatch"
	KindMissingAnnotation Kind = "missing_annotation"
	KindUnsupportedType   Kind = "unsupported_type"
	KindUnsupportedParam  Kind = "unsupported_param"
	KindMissingExample    Kind = "missing_example"
	KindInvalidExample    Kind = "invalid_example"
	KindInvalidDefault    Kind = "invalid_default"
)

// Error reports a tool source that cannot be described.
type Error struct {
	Kind  Kind
	Param string
	Msg   string
}

func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("describe tool: parameter %q: %s", e.Param, e.Msg)
	}
	return "describe tool: " + e.Msg
}

func newError(kind Kind, param, format string, args ...any) *Error {
	return &Error{Kind: kind, Param: param, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of a descriptor error, or "" for other errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
