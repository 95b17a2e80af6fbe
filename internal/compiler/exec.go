package compiler

import (
	"context"
	"reflect"

	executor "github.com/hanpama/gqljit/internal/executor"
)

// getter completes a raw value at a response path.
type getter func(ec *execContext, value any, path executor.Path) any

// execContext is the per-call state of a compiled executor.
type execContext struct {
	ctx        context.Context
	root       any
	variables  map[string]any
	errors     []executor.GraphQLError
	errorPaths map[string]struct{}
}

func newExecContext(ctx context.Context, root any, variables map[string]any) *execContext {
	return &execContext{
		ctx:        ctx,
		root:       root,
		variables:  variables,
		errors:     []executor.GraphQLError{},
		errorPaths: make(map[string]struct{}),
	}
}

func (ec *execContext) addError(message string, path executor.Path) {
	ec.errors = append(ec.errors, executor.GraphQLError{Message: message, Path: path})
	ec.errorPaths[path.String()] = struct{}{}
}

func (ec *execContext) hasErrorAt(path executor.Path) bool {
	_, ok := ec.errorPaths[path.String()]
	return ok
}

func appendPath(path executor.Path, elem executor.PathElement) executor.Path {
	out := make(executor.Path, len(path)+1)
	copy(out, path)
	out[len(path)] = elem
	return out
}

// isNullish reports nil interfaces and typed nils.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

// listItems returns the elements of a slice or array value.
func listItems(v any) ([]any, bool) {
	if direct, ok := v.([]any); ok {
		return direct, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}
