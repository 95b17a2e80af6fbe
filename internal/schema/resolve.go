package schema

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	language "github.com/hanpama/gqljit/internal/language"
)

// FieldResolveFn produces the raw value of a field from its parent value.
type FieldResolveFn func(ctx context.Context, source any, args map[string]any, info *ResolveInfo) (any, error)

// SerializeFn converts a raw leaf value into its response form.
type SerializeFn func(value any) (any, error)

// TypeResolveFn names the concrete object type of an abstract value.
type TypeResolveFn func(ctx context.Context, value any) (string, error)

// Middleware decorates a resolver with cross-cutting behavior.
type Middleware func(next FieldResolveFn) FieldResolveFn

// ResolveInfo describes the field being resolved. The static part is known
// once a query is planned; Path, RootValue and VariableValues are bound per
// execution.
type ResolveInfo struct {
	FieldName  string
	FieldNodes []*language.Field
	ReturnType *TypeRef
	ParentType *Type
	Schema     *Schema
	Operation  *language.OperationDefinition
	Fragments  language.FragmentDefinitionList

	Path           []any
	RootValue      any
	VariableValues map[string]any
}

// Resolver returns the resolver of f decorated by middleware. The first
// middleware is the outermost.
func (f *Field) Resolver(middleware ...Middleware) FieldResolveFn {
	fn := f.Resolve
	if fn == nil {
		fn = DefaultResolve
	}
	for i := len(middleware) - 1; i >= 0; i-- {
		if middleware[i] != nil {
			fn = middleware[i](fn)
		}
	}
	return fn
}

// DefaultResolve reads info.FieldName from the source value: a map key, an
// exported struct field (matched by json tag or case-insensitive name), or
// a method of the same name. A method may take no arguments or
// (context.Context, map[string]any) and may return a trailing error.
func DefaultResolve(ctx context.Context, source any, args map[string]any, info *ResolveInfo) (any, error) {
	if source == nil {
		return nil, nil
	}
	name := info.FieldName
	if m, ok := source.(map[string]any); ok {
		return m[name], nil
	}

	rv := reflect.ValueOf(source)
	if method := findMethod(rv, name); method.IsValid() {
		return callMethod(ctx, method, args)
	}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, nil
		}
		v := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil, nil
		}
		return v.Interface(), nil
	case reflect.Struct:
		if f, ok := findStructField(rv, name); ok {
			return f.Interface(), nil
		}
	}
	return nil, nil
}

func findStructField(rv reflect.Value, name string) (reflect.Value, bool) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		if tag, ok := sf.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == name {
				return rv.Field(i), true
			}
			if tagName != "" {
				continue
			}
		}
		if strings.EqualFold(sf.Name, name) {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func findMethod(rv reflect.Value, name string) reflect.Value {
	if name == "" {
		return reflect.Value{}
	}
	r, size := utf8.DecodeRuneInString(name)
	exported := string(unicode.ToUpper(r)) + name[size:]
	return rv.MethodByName(exported)
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	argsType    = reflect.TypeOf(map[string]any(nil))
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

func callMethod(ctx context.Context, method reflect.Value, args map[string]any) (any, error) {
	mt := method.Type()
	var in []reflect.Value
	switch {
	case mt.NumIn() == 0:
	case mt.NumIn() == 2 && mt.In(0) == contextType && mt.In(1) == argsType:
		in = []reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(args)}
	default:
		return nil, fmt.Errorf("method %s has an unsupported signature", mt)
	}
	out := method.Call(in)
	switch len(out) {
	case 1:
		if mt.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	case 2:
		if mt.Out(1) != errorType {
			return nil, fmt.Errorf("method %s has an unsupported signature", mt)
		}
		return out[0].Interface(), asError(out[1])
	}
	return nil, fmt.Errorf("method %s has an unsupported signature", mt)
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

// ResolveAbstractType names the concrete type of value for the interface or
// union t. Without a TypeResolveFn the "__typename" entry of a map is used.
func ResolveAbstractType(ctx context.Context, t *Type, value any) (string, error) {
	if t.ResolveType != nil {
		return t.ResolveType(ctx, value)
	}
	if m, ok := value.(map[string]any); ok {
		if name, ok := m["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s for value %T", t.Name, value)
}

// DoesFragmentTypeApply reports whether a fragment with the given type
// condition applies to objectType.
func (s *Schema) DoesFragmentTypeApply(objectType *Type, typeCondition string) bool {
	if typeCondition == "" || typeCondition == objectType.Name {
		return true
	}
	cond := s.Types[typeCondition]
	if cond == nil {
		return false
	}
	switch cond.Kind {
	case TypeKindInterface:
		for _, name := range objectType.Interfaces {
			if name == typeCondition {
				return true
			}
		}
		for _, name := range cond.PossibleTypes {
			if name == objectType.Name {
				return true
			}
		}
	case TypeKindUnion:
		for _, name := range cond.PossibleTypes {
			if name == objectType.Name {
				return true
			}
		}
	}
	return false
}
