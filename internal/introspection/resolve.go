package introspection

import (
	"context"
	"fmt"
	"sort"

	schema "github.com/hanpama/gqljit/internal/schema"
)

// resolver serves every field of the introspection types. Named types are
// *schema.Type values and wrapped types are *schema.TypeRef values; both
// complete as __Type.
func resolver(sch *schema.Schema) schema.FieldResolveFn {
	return func(_ context.Context, source any, args map[string]any, info *schema.ResolveInfo) (any, error) {
		field := info.FieldName
		var (
			v  any
			ok bool
		)
		switch src := source.(type) {
		case *schema.Schema:
			v, ok = resolveSchemaField(src, field)
		case *schema.Type:
			v, ok = resolveTypeField(sch, src, field, args)
		case *schema.TypeRef:
			v, ok = resolveTypeRefField(sch, src, field, args)
		case *schema.Field:
			v, ok = resolveFieldField(src, field, args)
		case *schema.InputValue:
			v, ok = resolveInputValueField(src, field)
		case *schema.EnumValue:
			v, ok = resolveEnumValueField(src, field)
		case *schema.Directive:
			v, ok = resolveDirectiveField(src, field, args)
		}
		if !ok {
			return nil, fmt.Errorf("introspection: cannot resolve %s on %T", field, source)
		}
		return v, nil
	}
}

// optional maps the empty string to null.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func resolveSchemaTypes(sch *schema.Schema) []*schema.Type {
	if sch.Types == nil {
		return []*schema.Type{}
	}
	out := make([]*schema.Type, 0, len(sch.Types))
	for _, t := range sch.Types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func resolveSchemaDirectives(sch *schema.Schema) []*schema.Directive {
	if sch.Directives == nil {
		return []*schema.Directive{}
	}
	dirs := make([]*schema.Directive, 0, len(sch.Directives))
	for _, d := range sch.Directives {
		dirs = append(dirs, d)
	}
	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Name < dirs[j].Name })
	return dirs
}

func resolveTypeFields(t *schema.Type, args map[string]any) []*schema.Field {
	if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
		return nil
	}
	includeDeprecated := boolArg(args, "includeDeprecated", false)
	out := []*schema.Field{}
	for _, f := range t.GetOrderedFields() {
		if !includeDeprecated && f.IsDeprecated {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func resolveTypeInterfaces(sch *schema.Schema, t *schema.Type) []*schema.Type {
	if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
		return nil
	}
	out := make([]*schema.Type, 0, len(t.Interfaces))
	for _, name := range t.Interfaces {
		if def := sch.Types[name]; def != nil {
			out = append(out, def)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func resolveTypePossibleTypes(sch *schema.Schema, t *schema.Type) []*schema.Type {
	if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
		return nil
	}
	pts := []*schema.Type{}
	for _, name := range t.PossibleTypes {
		if def := sch.Types[name]; def != nil {
			pts = append(pts, def)
		}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].Name < pts[j].Name })
	return pts
}

func resolveTypeEnumValues(t *schema.Type, args map[string]any) []*schema.EnumValue {
	if t.Kind != schema.TypeKindEnum {
		return nil
	}
	includeDeprecated := boolArg(args, "includeDeprecated", false)
	out := []*schema.EnumValue{}
	for _, ev := range t.EnumValues {
		if !includeDeprecated && ev.IsDeprecated {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func resolveTypeInputFields(t *schema.Type, args map[string]any) []*schema.InputValue {
	if t.Kind != schema.TypeKindInputObject {
		return nil
	}
	includeDeprecated := boolArg(args, "includeDeprecated", false)
	out := []*schema.InputValue{}
	for _, iv := range t.GetOrderedInputFields() {
		if !includeDeprecated && iv.IsDeprecated {
			continue
		}
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func resolveFieldArgs(f *schema.Field, args map[string]any) []*schema.InputValue {
	includeDeprecated := boolArg(args, "includeDeprecated", false)
	out := []*schema.InputValue{}
	for _, a := range f.GetOrderedArguments() {
		if !includeDeprecated && a.IsDeprecated {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func resolveFieldDeprecationReason(f *schema.Field) any {
	if f.IsDeprecated {
		return f.DeprecationReason
	}
	return nil
}

func resolveInputValueDefaultValue(a *schema.InputValue) any {
	if a.DefaultValue != nil {
		return fmt.Sprintf("%v", a.DefaultValue)
	}
	return nil
}

func resolveInputValueDeprecationReason(a *schema.InputValue) any {
	if a.IsDeprecated {
		return a.DeprecationReason
	}
	return nil
}

func resolveEnumValueDeprecationReason(ev *schema.EnumValue) any {
	if ev.IsDeprecated {
		return ev.DeprecationReason
	}
	return nil
}

func resolveDirectiveLocations(d *schema.Directive) []string {
	locs := make([]string, len(d.Locations))
	for i, l := range d.Locations {
		locs[i] = string(l)
	}
	sort.Strings(locs)
	return locs
}

func resolveDirectiveArgs(d *schema.Directive, args map[string]any) []*schema.InputValue {
	includeDeprecated := boolArg(args, "includeDeprecated", false)
	out := []*schema.InputValue{}
	for _, a := range d.Arguments {
		if !includeDeprecated && a.IsDeprecated {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func resolveSchemaField(sch *schema.Schema, field string) (any, bool) {
	switch field {
	case "types":
		return resolveSchemaTypes(sch), true
	case "queryType":
		return sch.GetQueryType(), true
	case "mutationType":
		return sch.GetMutationType(), true
	case "subscriptionType":
		return sch.GetSubscriptionType(), true
	case "directives":
		return resolveSchemaDirectives(sch), true
	case "description":
		return optional(sch.Description), true
	}
	return nil, false
}

func resolveTypeField(sch *schema.Schema, t *schema.Type, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return optional(t.Description), true
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil, true
		}
		return *t.SpecifiedByURL, true
	case "fields":
		return resolveTypeFields(t, args), true
	case "interfaces":
		return resolveTypeInterfaces(sch, t), true
	case "possibleTypes":
		return resolveTypePossibleTypes(sch, t), true
	case "enumValues":
		return resolveTypeEnumValues(t, args), true
	case "inputFields":
		return resolveTypeInputFields(t, args), true
	case "isOneOf":
		return t.OneOf, true
	case "ofType":
		// Wrapper types (LIST/NON_NULL) are represented as TypeRef nodes, so named types never expose ofType.
		return nil, true
	}
	return nil, false
}

func resolveTypeRefField(sch *schema.Schema, tr *schema.TypeRef, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		if tr.Kind == schema.TypeRefKindNamed {
			if def := sch.Types[tr.Named]; def != nil {
				return string(def.Kind), true
			}
			return nil, true
		}
		return string(tr.Kind), true
	case "name":
		if schema.IsNonNull(tr) || schema.IsList(tr) {
			return nil, true
		}
		return tr.Named, true
	case "ofType":
		if tr.Kind == schema.TypeRefKindNonNull || tr.Kind == schema.TypeRefKindList {
			return tr.OfType, true
		}
		return nil, true
	default:
		if name := schema.GetNamedType(tr); name != "" {
			if def := sch.Types[name]; def != nil {
				return resolveTypeField(sch, def, field, args)
			}
		}
		return nil, true
	}
}

func resolveFieldField(f *schema.Field, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return f.Name, true
	case "description":
		return optional(f.Description), true
	case "args":
		return resolveFieldArgs(f, args), true
	case "type":
		return f.Type, true
	case "isDeprecated":
		return f.IsDeprecated, true
	case "deprecationReason":
		return resolveFieldDeprecationReason(f), true
	}
	return nil, false
}

func resolveInputValueField(a *schema.InputValue, field string) (any, bool) {
	switch field {
	case "name":
		return a.Name, true
	case "description":
		return optional(a.Description), true
	case "type":
		return a.Type, true
	case "defaultValue":
		return resolveInputValueDefaultValue(a), true
	case "isDeprecated":
		return a.IsDeprecated, true
	case "deprecationReason":
		return resolveInputValueDeprecationReason(a), true
	}
	return nil, false
}

func resolveEnumValueField(ev *schema.EnumValue, field string) (any, bool) {
	switch field {
	case "name":
		return ev.Name, true
	case "description":
		return optional(ev.Description), true
	case "isDeprecated":
		return ev.IsDeprecated, true
	case "deprecationReason":
		return resolveEnumValueDeprecationReason(ev), true
	}
	return nil, false
}

func resolveDirectiveField(d *schema.Directive, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "description":
		return optional(d.Description), true
	case "isRepeatable":
		return d.IsRepeatable, true
	case "locations":
		return resolveDirectiveLocations(d), true
	case "args":
		return resolveDirectiveArgs(d, args), true
	}
	return nil, false
}

func boolArg(args map[string]any, name string, def bool) bool {
	if args == nil {
		return def
	}
	if v, ok := args[name]; ok {
		if b, ok2 := v.(bool); ok2 {
			return b
		}
	}
	return def
}
