package schema

import (
	"fmt"

	"github.com/spf13/cast"
)

var stringType = &Type{
	Name:        "String",
	Kind:        TypeKindScalar,
	Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
}

var intType = &Type{
	Name:        "Int",
	Kind:        TypeKindScalar,
	Description: "The `Int` scalar type represents non-fractional signed whole numeric values.",
}

var floatType = &Type{
	Name:        "Float",
	Kind:        TypeKindScalar,
	Description: "The `Float` scalar type represents signed double-precision fractional values.",
}

var booleanType = &Type{
	Name:        "Boolean",
	Kind:        TypeKindScalar,
	Description: "The `Boolean` scalar type represents `true` or `false`.",
}

var idType = &Type{
	Name:        "ID",
	Kind:        TypeKindScalar,
	Description: "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
}

var includeDirective = &Directive{
	Name:        "include",
	Description: "Directs the executor to include this field or fragment only when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Included when true.",
			Type:        &TypeRef{Kind: TypeRefKindNonNull, OfType: &TypeRef{Kind: TypeRefKindNamed, Named: "Boolean"}},
		},
	},
	Locations:    []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	IsRepeatable: false,
}

var skipDirective = &Directive{
	Name:        "skip",
	Description: "Directs the executor to skip this field or fragment when the `if` argument is true.",
	Arguments: []*InputValue{
		{
			Name:        "if",
			Description: "Skipped when true.",
			Type:        &TypeRef{Kind: TypeRefKindNonNull, OfType: &TypeRef{Kind: TypeRefKindNamed, Named: "Boolean"}},
		},
	},
	Locations:    []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
	IsRepeatable: false,
}

var builtinSerializers = map[string]SerializeFn{
	"String":  serializeString,
	"ID":      serializeString,
	"Int":     serializeInt,
	"Float":   serializeFloat,
	"Boolean": serializeBoolean,
}

func serializeString(value any) (any, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, fmt.Errorf("String cannot represent value: %v", value)
	}
	return s, nil
}

func serializeInt(value any) (any, error) {
	switch value.(type) {
	case bool:
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
	}
	i, err := cast.ToIntE(value)
	if err != nil {
		return nil, fmt.Errorf("Int cannot represent non-integer value: %v", value)
	}
	return i, nil
}

func serializeFloat(value any) (any, error) {
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return nil, fmt.Errorf("Float cannot represent non numeric value: %v", value)
	}
	return f, nil
}

func serializeBoolean(value any) (any, error) {
	b, err := cast.ToBoolE(value)
	if err != nil {
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
	}
	return b, nil
}

// SerializeValue converts a raw leaf value into its response form using
// the type's SerializeFn, the built-in scalar rules, or enum membership.
// Custom scalars without a SerializeFn pass values through.
func (t *Type) SerializeValue(value any) (any, error) {
	if t.Serialize != nil {
		return t.Serialize(value)
	}
	switch t.Kind {
	case TypeKindEnum:
		name, err := cast.ToStringE(value)
		if err == nil {
			for _, ev := range t.EnumValues {
				if ev.Name == name {
					return name, nil
				}
			}
		}
		return nil, fmt.Errorf("Enum \"%s\" cannot represent value: %v", t.Name, value)
	case TypeKindScalar:
		if fn, ok := builtinSerializers[t.Name]; ok {
			return fn(value)
		}
		return value, nil
	}
	return nil, fmt.Errorf("cannot serialize value of %s type %s", t.Kind, t.Name)
}
