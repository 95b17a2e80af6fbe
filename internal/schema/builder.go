package schema

import (
	"fmt"
	"strconv"
	"strings"

	language "github.com/hanpama/gqljit/internal/language"
)

// BuildFromSDL parses and validates SDL and returns the corresponding
// Schema. Built-in scalars and directives come from NewSchema; resolvers
// are attached afterwards with SetFieldResolver.
func BuildFromSDL(sdl string) (*Schema, error) {
	doc, err := language.LoadSchema("schema.graphql", sdl)
	if err != nil {
		return nil, err
	}
	return BuildFromAST(doc), nil
}

// BuildFromAST converts a validated type-system document into a Schema.
func BuildFromAST(doc *language.Schema) *Schema {
	s := NewSchema(doc.Description)
	if doc.Query != nil {
		s.SetQueryType(doc.Query.Name)
	}
	if doc.Mutation != nil {
		s.SetMutationType(doc.Mutation.Name)
	}
	if doc.Subscription != nil {
		s.SetSubscriptionType(doc.Subscription.Name)
	}

	for _, def := range doc.Types {
		if def.BuiltIn {
			continue
		}
		switch def.Kind {
		case language.Object:
			s.AddType(buildObject(def, TypeKindObject))
		case language.Interface:
			t := buildObject(def, TypeKindInterface)
			for _, impl := range doc.PossibleTypes[def.Name] {
				t.AddPossibleType(impl.Name)
			}
			s.AddType(t)
		case language.Union:
			t := NewType(def.Name, TypeKindUnion, def.Description)
			for _, name := range def.Types {
				t.AddPossibleType(name)
			}
			s.AddType(t)
		case language.Enum:
			t := NewType(def.Name, TypeKindEnum, def.Description)
			for _, v := range def.EnumValues {
				ev := NewEnumValue(v.Name, v.Description)
				if reason, ok := deprecation(v.Directives); ok {
					ev.Deprecate(reason)
				}
				t.AddEnumValue(ev)
			}
			s.AddType(t)
		case language.InputObject:
			t := NewType(def.Name, TypeKindInputObject, def.Description).
				SetOneOf(def.Directives.ForName("oneOf") != nil)
			for _, f := range def.Fields {
				in := NewInputValue(f.Name, f.Description, buildTypeRef(f.Type)).
					SetDefault(valueFromAST(f.DefaultValue))
				if reason, ok := deprecation(f.Directives); ok {
					in.Deprecate(reason)
				}
				t.AddInputField(in)
			}
			s.AddType(t)
		case language.Scalar:
			t := NewType(def.Name, TypeKindScalar, def.Description)
			if d := def.Directives.ForName("specifiedBy"); d != nil {
				if arg := d.Arguments.ForName("url"); arg != nil {
					url := arg.Value.Raw
					t.SpecifiedByURL = &url
				}
			}
			s.AddType(t)
		}
	}

	for _, d := range doc.Directives {
		if d.Position != nil && d.Position.Src != nil && d.Position.Src.BuiltIn {
			continue
		}
		dir := NewDirective(d.Name, d.Description).SetRepeatable(d.IsRepeatable)
		for _, loc := range d.Locations {
			dir.Locations = append(dir.Locations, string(loc))
		}
		for _, a := range d.Arguments {
			dir.AddArgument(buildArgument(a))
		}
		s.AddDirective(dir)
	}
	return s
}

func buildObject(def *language.Definition, kind TypeKind) *Type {
	t := NewType(def.Name, kind, def.Description)
	for _, name := range def.Interfaces {
		t.AddInterface(name)
	}
	for _, fd := range def.Fields {
		if strings.HasPrefix(fd.Name, "__") {
			continue
		}
		f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type))
		if reason, ok := deprecation(fd.Directives); ok {
			f.Deprecate(reason)
		}
		for _, a := range fd.Arguments {
			f.AddArgument(buildArgument(a))
		}
		t.AddField(f)
	}
	return t
}

func buildArgument(a *language.ArgumentDefinition) *InputValue {
	in := NewInputValue(a.Name, a.Description, buildTypeRef(a.Type)).
		SetDefault(valueFromAST(a.DefaultValue))
	if reason, ok := deprecation(a.Directives); ok {
		in.Deprecate(reason)
	}
	return in
}

func buildTypeRef(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}

func deprecation(dirs language.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "No longer supported", true
}

func valueFromAST(v *language.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.IntValue:
		i, _ := strconv.Atoi(v.Raw)
		return i
	case language.FloatValue:
		f, _ := strconv.ParseFloat(v.Raw, 64)
		return f
	case language.BooleanValue:
		return v.Raw == "true"
	case language.NullValue:
		return nil
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = valueFromAST(c.Value)
		}
		return out
	case language.ObjectValue:
		out := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			out[c.Name] = valueFromAST(c.Value)
		}
		return out
	default:
		return v.Raw
	}
}

// SetFieldResolver attaches fn to typeName.fieldName.
func (s *Schema) SetFieldResolver(typeName, fieldName string, fn FieldResolveFn) error {
	t := s.Types[typeName]
	if t == nil {
		return fmt.Errorf("unknown type %q", typeName)
	}
	f := t.Field(fieldName)
	if f == nil {
		return fmt.Errorf("type %q has no field %q", typeName, fieldName)
	}
	f.Resolve = fn
	return nil
}
