package compiler

import (
	"errors"
	"fmt"

	language "github.com/hanpama/gqljit/internal/language"
)

var (
	// ErrAmbiguousOperation is returned when a document holds several
	// operations and no operation name was given.
	ErrAmbiguousOperation = errors.New("Must provide operation name if query contains multiple operations.")

	// ErrMissingOperation is returned for a document without operations.
	ErrMissingOperation = errors.New("Must provide an operation.")
)

// UnknownOperationError reports an operation name that the document does
// not define.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("Unknown operation named \"%s\".", e.Name)
}

// UnsupportedDefinitionError reports a non-executable definition (a type
// system definition or extension) in a query document.
type UnsupportedDefinitionError struct {
	Definition language.DefinitionHeader
}

func (e *UnsupportedDefinitionError) Error() string {
	d := e.Definition
	msg := fmt.Sprintf("unsupported definition %q", d.Keyword)
	if d.Name != "" {
		msg = fmt.Sprintf("unsupported definition %q (%s)", d.Keyword, d.Name)
	}
	if d.Position.Line > 0 {
		msg = fmt.Sprintf("%s at %d:%d", msg, d.Position.Line, d.Position.Column)
	}
	return msg
}

// DuplicateFragmentError reports two fragment definitions sharing a name.
type DuplicateFragmentError struct {
	Name string
}

func (e *DuplicateFragmentError) Error() string {
	return fmt.Sprintf("There can be only one fragment named \"%s\".", e.Name)
}

// FieldResolutionError reports a selected field the schema does not define
// on the parent type. Validation rejects such queries; reaching this error
// means compilation was attempted on an unvalidated document.
type FieldResolutionError struct {
	TypeName  string
	FieldName string
}

func (e *FieldResolutionError) Error() string {
	return fmt.Sprintf("Cannot query field \"%s\" on type \"%s\".", e.FieldName, e.TypeName)
}

// UnsupportedTypeError reports a type shape the compiler does not
// specialize. Callers route such documents to the generic executor.
type UnsupportedTypeError struct {
	TypeName string
	Kind     string
	Path     Path
}

func (e *UnsupportedTypeError) Error() string {
	if e.Kind == "" {
		return fmt.Sprintf("cannot compile selection at %s: unknown type %s", e.Path, e.TypeName)
	}
	return fmt.Sprintf("cannot compile selection at %s: %s %s", e.Path, e.Kind, e.TypeName)
}

// UnsupportedSelectionError reports a selection whose shape depends on
// runtime variables in a way the compiled executor cannot express: several
// field nodes merged under one response key where some are conditional.
type UnsupportedSelectionError struct {
	Path Path
}

func (e *UnsupportedSelectionError) Error() string {
	return fmt.Sprintf("cannot compile selection at %s: conditional sub-selections are merged", e.Path)
}

// IsUnsupported reports whether err means the document is valid but must be
// executed by the generic executor.
func IsUnsupported(err error) bool {
	var te *UnsupportedTypeError
	var se *UnsupportedSelectionError
	return errors.As(err, &te) || errors.As(err, &se)
}
