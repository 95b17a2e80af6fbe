package executor

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	language "github.com/hanpama/gqljit/internal/language"
	schema "github.com/hanpama/gqljit/internal/schema"
)

// CoerceVariableValues coerces variable values according to the
// operation's variable definitions.
func CoerceVariableValues(
	sch *schema.Schema,
	operation *language.OperationDefinition,
	variableValues map[string]any,
) (map[string]any, error) {
	if variableValues == nil {
		variableValues = make(map[string]any)
	}
	coerced := make(map[string]any)
	for _, varDef := range operation.VariableDefinitions {
		name := varDef.Variable
		t := varDef.Type
		val, ok := variableValues[name]
		if !ok {
			if v2, ok2 := variableValues[strings.TrimPrefix(name, "$")]; ok2 {
				val = v2
				ok = true
			}
		}
		if !ok {
			if varDef.DefaultValue != nil {
				val = astValueToGo(varDef.DefaultValue)
			} else if t.NonNull {
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, t.String())
			} else {
				continue
			}
		}
		if val == nil && t.NonNull {
			return nil, fmt.Errorf("variable $%s of type %s cannot be null", name, t.String())
		}
		cv, err := CoerceValue(sch, val, typeRefFromAST(t))
		if err != nil {
			return nil, fmt.Errorf("variable $%s of type %s cannot be coerced: %v", name, t.String(), err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceArgumentValues coerces argument values for a field
func coerceArgumentValues(
	fieldDef *schema.Field,
	arguments language.ArgumentList,
	variableValues map[string]any,
	state *executionState,
	path Path,
) map[string]any {
	coerced := make(map[string]any)
	for _, arg := range arguments {
		argDef := fieldDef.Argument(arg.Name)
		if argDef == nil || !VariableProvided(arg.Value, variableValues) {
			continue
		}
		val := ValueFromAST(arg.Value, variableValues)
		cv, err := CoerceValue(state.schema, val, argDef.Type)
		if err != nil {
			state.addError(ArgumentCoercionMessage(arg.Name, err), path)
			continue
		}
		coerced[arg.Name] = cv
	}
	for _, argDef := range fieldDef.Arguments {
		name := argDef.Name
		if _, ok := coerced[name]; !ok {
			if argDef.DefaultValue != nil {
				coerced[name] = argDef.DefaultValue
			} else if schema.IsNonNull(argDef.Type) {
				state.addError(MissingArgumentMessage(name), path)
			}
		}
	}
	return coerced
}

// ArgumentCoercionMessage is the field error recorded when an argument
// value cannot be coerced to its declared type.
func ArgumentCoercionMessage(name string, err error) string {
	return fmt.Sprintf("argument '%s' cannot be coerced: %v", name, err)
}

// MissingArgumentMessage is the field error recorded when a required
// argument has neither a value nor a default.
func MissingArgumentMessage(name string) string {
	return fmt.Sprintf("argument '%s' of required type was not provided", name)
}

// ValueFromAST converts an AST value to a runtime value, substituting
// variables from variableValues at any depth. Object fields bound to an
// unset variable are left out so input field defaults still apply.
func ValueFromAST(value *language.Value, variableValues map[string]any) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		v, _ := lookupVariable(variableValues, value.Raw)
		return v
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = ValueFromAST(c.Value, variableValues)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(value.Children))
		for _, f := range value.Children {
			if !VariableProvided(f.Value, variableValues) {
				continue
			}
			m[f.Name] = ValueFromAST(f.Value, variableValues)
		}
		return m
	default:
		return astValueToGo(value)
	}
}

// VariableProvided reports false only when value is a variable with no
// entry in variableValues. An explicit null counts as provided.
func VariableProvided(value *language.Value, variableValues map[string]any) bool {
	if value == nil || value.Kind != language.Variable {
		return true
	}
	_, ok := lookupVariable(variableValues, value.Raw)
	return ok
}

// HasVariables reports whether value references a variable at any depth.
func HasVariables(value *language.Value) bool {
	if value == nil {
		return false
	}
	if value.Kind == language.Variable {
		return true
	}
	for _, c := range value.Children {
		if HasVariables(c.Value) {
			return true
		}
	}
	return false
}

func lookupVariable(variableValues map[string]any, name string) (any, bool) {
	if v, ok := variableValues[name]; ok {
		return v, true
	}
	v, ok := variableValues[strings.TrimPrefix(name, "$")]
	return v, ok
}

// astValueToGo converts an AST value to a Go value
func astValueToGo(value *language.Value) any {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.IntValue:
		iv, _ := strconv.Atoi(value.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(value.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue:
		return value.Raw
	case language.BooleanValue:
		return value.Raw == "true"
	case language.NullValue:
		return nil
	case language.EnumValue:
		return value.Raw
	case language.ListValue:
		out := make([]any, len(value.Children))
		for i, c := range value.Children {
			out[i] = astValueToGo(c.Value)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any)
		for _, f := range value.Children {
			m[f.Name] = astValueToGo(f.Value)
		}
		return m
	default:
		return nil
	}
}

// CoerceValue coerces an input value to the specified GraphQL type.
// sch may be nil, in which case enums and input objects pass through.
func CoerceValue(sch *schema.Schema, value any, targetType *schema.TypeRef) (any, error) {
	// Handle Non-Null wrapper
	if schema.IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("cannot provide null for non-null type")
		}
		return CoerceValue(sch, value, schema.Unwrap(targetType))
	}

	// Handle null for nullable types
	if value == nil {
		return nil, nil
	}

	// Handle List wrapper
	if schema.IsList(targetType) {
		return coerceListValue(sch, value, targetType)
	}

	// Get the named type for scalar coercion
	namedType := schema.GetNamedType(targetType)

	// Coerce based on target scalar type
	switch namedType {
	case "Int":
		return coerceToInt(value)
	case "Float":
		return coerceToFloat(value)
	case "String":
		return coerceToString(value)
	case "Boolean":
		return coerceToBoolean(value)
	case "ID":
		return coerceToID(value)
	}

	var def *schema.Type
	if sch != nil {
		def = sch.Types[namedType]
	}
	switch {
	case def == nil:
		return value, nil
	case def.Kind == schema.TypeKindEnum:
		return coerceToEnum(def, value)
	case def.Kind == schema.TypeKindInputObject:
		return coerceInputObject(sch, def, value)
	default:
		// For custom scalars and other types, return as-is
		return value, nil
	}
}

// coerceListValue coerces a value to a list
func coerceListValue(sch *schema.Schema, value any, listType *schema.TypeRef) (any, error) {
	innerType := schema.Unwrap(listType)

	// If already a slice, coerce each item
	if slice, ok := value.([]any); ok {
		coercedSlice := make([]any, len(slice))
		for i, item := range slice {
			coercedItem, err := CoerceValue(sch, item, innerType)
			if err != nil {
				return nil, err
			}
			coercedSlice[i] = coercedItem
		}
		return coercedSlice, nil
	}

	// Single value becomes a list of one
	coercedItem, err := CoerceValue(sch, value, innerType)
	if err != nil {
		return nil, err
	}
	return []any{coercedItem}, nil
}

func coerceInputObject(sch *schema.Schema, def *schema.Type, value any) (any, error) {
	fields, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected an object for input type %s, got %T", def.Name, value)
	}
	for name := range fields {
		if findInputField(def, name) == nil {
			return nil, fmt.Errorf("field '%s' is not defined by input type %s", name, def.Name)
		}
	}
	out := make(map[string]any, len(def.InputFields))
	for _, field := range def.InputFields {
		raw, present := fields[field.Name]
		if !present {
			if field.DefaultValue != nil {
				out[field.Name] = field.DefaultValue
			} else if schema.IsNonNull(field.Type) {
				return nil, fmt.Errorf("required field '%s' of input type %s was not provided", field.Name, def.Name)
			}
			continue
		}
		cv, err := CoerceValue(sch, raw, field.Type)
		if err != nil {
			return nil, fmt.Errorf("field '%s': %v", field.Name, err)
		}
		out[field.Name] = cv
	}
	if def.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("exactly one field must be provided for input type %s", def.Name)
	}
	return out, nil
}

func findInputField(def *schema.Type, name string) *schema.InputValue {
	for _, f := range def.InputFields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func coerceToEnum(def *schema.Type, value any) (any, error) {
	if name, ok := value.(string); ok {
		for _, ev := range def.EnumValues {
			if ev.Name == name {
				return name, nil
			}
		}
	}
	return nil, fmt.Errorf("value %v is not a member of enum %s", value, def.Name)
}

// Scalar input coercion accepts numeric kinds only for numbers; JSON
// numbers arrive as float64 and must be integral for Int.
func coerceToInt(value any) (any, error) {
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if i, err := cast.ToIntE(value); err == nil {
			return i, nil
		}
	case reflect.Float32, reflect.Float64:
		f := cast.ToFloat64(value)
		if f == math.Trunc(f) && f >= math.MinInt32 && f <= math.MaxInt32 {
			return int(f), nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to int", value, value)
}

func coerceToFloat(value any) (any, error) {
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if f, err := cast.ToFloat64E(value); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to float", value, value)
}

func coerceToString(value any) (any, error) {
	if v, ok := value.(string); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to string", value, value)
}

func coerceToBoolean(value any) (any, error) {
	if v, ok := value.(bool); ok {
		return v, nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to boolean", value, value)
}

func coerceToID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
	}
	if i, err := coerceToInt(value); err == nil {
		return strconv.Itoa(i.(int)), nil
	}
	return nil, fmt.Errorf("cannot coerce %v (%T) to ID", value, value)
}
