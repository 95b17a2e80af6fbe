package compiler

import (
	"fmt"
	"sort"

	executor "github.com/hanpama/gqljit/internal/executor"
	language "github.com/hanpama/gqljit/internal/language"
	schema "github.com/hanpama/gqljit/internal/schema"
)

// GenerateSource compiles the context's operation into a single unit: a
// header, the units of the root selection set at path "root", and a trailer
// binding the schema and the operation.
func GenerateSource(c *Context) (Unit, error) {
	op := c.Operation
	rootType := c.Schema.RootType(string(op.Operation))
	if rootType == nil {
		return Unit{}, fmt.Errorf("schema has no %s root type", op.Operation)
	}

	vars := make([]string, len(op.VariableDefinitions))
	for i, v := range op.VariableDefinitions {
		vars[i] = "$" + v.Variable + ": " + v.Type.String()
	}
	headerText, err := render("header", headerListing{
		Kind:      string(op.Operation),
		Name:      op.Name,
		Variables: vars,
		RootType:  rootType.Name,
	})
	if err != nil {
		return Unit{}, err
	}

	root := Path{rootSegment}
	fields := c.subSelection(rootType, fmt.Sprintf("%p", op), op.SelectionSet)
	body, err := c.generateObject(rootType, fields, root, true)
	if err != nil {
		return Unit{}, err
	}

	trailerText, err := render("trailer", trailerListing{
		Entry:     root.Symbol(RoleGet),
		Schema:    SchemaSymbol,
		Operation: OperationSymbol,
	})
	if err != nil {
		return Unit{}, err
	}
	trailer := Unit{
		Text: trailerText,
		Bindings: []Binding{
			c.bind(SchemaSymbol, c.Schema),
			c.bind(OperationSymbol, op),
		},
		get: body.get,
	}
	return MergeAll(Unit{Text: headerText}, body, trailer), nil
}

// generate dispatches on the shape of ref.
func (c *Context) generate(ref *schema.TypeRef, fields []*language.Field, parent *schema.Type, path Path) (Unit, error) {
	if ref == nil {
		return Unit{}, &UnsupportedTypeError{Path: path}
	}
	switch ref.Kind {
	case schema.TypeRefKindNonNull:
		return c.generateNonNull(ref, fields, parent, path)
	case schema.TypeRefKindList:
		return c.generateList(ref, fields, parent, path)
	case schema.TypeRefKindNamed:
		t := c.Schema.Types[ref.Named]
		if t == nil {
			return Unit{}, &UnsupportedTypeError{TypeName: ref.Named, Path: path}
		}
		switch t.Kind {
		case schema.TypeKindScalar, schema.TypeKindEnum:
			return c.generateLeaf(t, path)
		case schema.TypeKindObject:
			key := nodesKey(fields)
			return c.generateObject(t, c.subSelection(t, key, mergeSelectionSets(fields)), path, false)
		default:
			return Unit{}, &UnsupportedTypeError{TypeName: t.Name, Kind: string(t.Kind), Path: path}
		}
	default:
		return Unit{}, &UnsupportedTypeError{Kind: string(ref.Kind), Path: path}
	}
}

// elementInfo is the static resolve context bound for a wrapped type.
func (c *Context) elementInfo(ref *schema.TypeRef, fields []*language.Field, parent *schema.Type) *schema.ResolveInfo {
	name := ""
	if len(fields) > 0 {
		name = fields[0].Name
	}
	return &schema.ResolveInfo{
		FieldName:  name,
		FieldNodes: fields,
		ReturnType: ref,
		ParentType: parent,
		Schema:     c.Schema,
		Operation:  c.Operation,
		Fragments:  c.Document.Fragments,
	}
}

func (c *Context) generateNonNull(ref *schema.TypeRef, fields []*language.Field, parent *schema.Type, path Path) (Unit, error) {
	innerPath := path.Append(nonNullSegment)
	inner, err := c.generate(ref.OfType, fields, parent, innerPath)
	if err != nil {
		return Unit{}, err
	}
	innerGet := inner.get
	get := getter(func(ec *execContext, value any, p executor.Path) any {
		if isNullish(value) {
			if !ec.hasErrorAt(p) {
				ec.addError("Cannot return null for non-nullable field "+p.String(), p)
			}
			return nil
		}
		out := innerGet(ec, value, p)
		if isNullish(out) {
			return nil
		}
		return out
	})

	text, err := render("nonnull", wrapperListing{
		Getter: path.Symbol(RoleGet),
		Type:   ref.String(),
		Inner:  innerPath.Symbol(RoleGet),
	})
	if err != nil {
		return Unit{}, err
	}
	return Merge(inner, Unit{
		Text: text,
		Bindings: []Binding{
			c.bind(innerPath.Symbol(RoleResolveInfo), c.elementInfo(ref.OfType, fields, parent)),
			c.bind(path.Symbol(RoleGet), get),
		},
		get: get,
	}), nil
}

func (c *Context) generateList(ref *schema.TypeRef, fields []*language.Field, parent *schema.Type, path Path) (Unit, error) {
	itemPath := path.Append(itemSegment)
	item, err := c.generate(ref.OfType, fields, parent, itemPath)
	if err != nil {
		return Unit{}, err
	}
	itemGet := item.get
	itemNonNull := schema.IsNonNull(ref.OfType)
	get := getter(func(ec *execContext, value any, p executor.Path) any {
		if isNullish(value) {
			return nil
		}
		items, ok := listItems(value)
		if !ok {
			ec.addError(fmt.Sprintf("Expected list value, got %T", value), p)
			return nil
		}
		out := make([]any, len(items))
		for i, it := range items {
			v := itemGet(ec, it, appendPath(p, i))
			if itemNonNull && isNullish(v) {
				return nil
			}
			out[i] = v
		}
		return out
	})

	text, err := render("list", wrapperListing{
		Getter:      path.Symbol(RoleGet),
		Type:        ref.String(),
		Item:        itemPath.Symbol(RoleGet),
		ItemNonNull: itemNonNull,
	})
	if err != nil {
		return Unit{}, err
	}
	return Merge(item, Unit{
		Text: text,
		Bindings: []Binding{
			c.bind(itemPath.Symbol(RoleResolveInfo), c.elementInfo(ref.OfType, fields, parent)),
			c.bind(path.Symbol(RoleGet), get),
		},
		get: get,
	}), nil
}

func (c *Context) generateLeaf(t *schema.Type, path Path) (Unit, error) {
	get := getter(func(ec *execContext, value any, p executor.Path) any {
		if isNullish(value) {
			return nil
		}
		out, err := t.SerializeValue(value)
		if err != nil {
			ec.addError(err.Error(), p)
			return nil
		}
		return out
	})
	text, err := render("leaf", leafListing{
		Getter:     path.Symbol(RoleGet),
		TypeSymbol: path.Symbol(RoleLeafType),
		TypeName:   t.Name,
	})
	if err != nil {
		return Unit{}, err
	}
	return Unit{
		Text: text,
		Bindings: []Binding{
			c.bind(path.Symbol(RoleLeafType), t),
			c.bind(path.Symbol(RoleGet), get),
		},
		get: get,
	}, nil
}

// fieldPlan is everything the object driver needs for one response key.
type fieldPlan struct {
	key      string
	typename bool
	field    *collectedField
	guard    *collectedField
	resolve  schema.FieldResolveFn
	info     *schema.ResolveInfo
	args     *argumentBinder
	get      getter
	nonNull  bool
}

func (c *Context) generateObject(t *schema.Type, fields []collectedField, path Path, root bool) (Unit, error) {
	var children []Unit
	var bindings []Binding
	plans := make([]fieldPlan, 0, len(fields))
	listings := make([]fieldListing, 0, len(fields))

	for i := range fields {
		cf := fields[i]
		fieldPath := path.Append(cf.ResponseKey)
		plan := fieldPlan{key: cf.ResponseKey, field: &fields[i]}
		if !cf.static() {
			plan.guard = &fields[i]
		}
		listing := fieldListing{Key: cf.ResponseKey, Guard: describeGuard(cf)}

		if cf.Name() == "__typename" {
			plan.typename = true
			listing.Typename = true
			plans = append(plans, plan)
			listings = append(listings, listing)
			continue
		}

		def := t.Field(cf.Name())
		if def == nil {
			return Unit{}, &FieldResolutionError{TypeName: t.Name, FieldName: cf.Name()}
		}
		nodes := cf.Fields()
		if len(nodes) > 1 && !cf.static() && len(mergeSelectionSets(nodes)) > 0 {
			return Unit{}, &UnsupportedSelectionError{Path: fieldPath}
		}

		child, err := c.generate(def.Type, nodes, t, fieldPath)
		if err != nil {
			return Unit{}, err
		}
		children = append(children, child)

		plan.resolve = def.Resolver(c.Middleware...)
		plan.info = &schema.ResolveInfo{
			FieldName:  def.Name,
			FieldNodes: nodes,
			ReturnType: def.Type,
			ParentType: t,
			Schema:     c.Schema,
			Operation:  c.Operation,
			Fragments:  c.Document.Fragments,
		}
		plan.args = c.argumentsFor(def, nodes[0])
		plan.get = child.get
		plan.nonNull = schema.IsNonNull(def.Type)
		plans = append(plans, plan)

		bindings = append(bindings,
			c.bind(fieldPath.Symbol(RoleFieldDef), def),
			c.bind(fieldPath.Symbol(RoleResolve), plan.resolve),
			c.bind(fieldPath.Symbol(RoleResolveInfo), plan.info),
		)
		listing.FieldDef = fieldPath.Symbol(RoleFieldDef)
		listing.Resolve = fieldPath.Symbol(RoleResolve)
		listing.ResolveInfo = fieldPath.Symbol(RoleResolveInfo)
		listing.Get = fieldPath.Symbol(RoleGet)
		listing.NonNull = plan.nonNull
		for _, a := range nodes[0].Arguments {
			listing.Args = append(listing.Args, a.Name+": "+a.Value.String())
		}
		listings = append(listings, listing)
	}

	drive := objectDriver(t.Name, plans)
	get := getter(func(ec *execContext, value any, p executor.Path) any {
		if !root && isNullish(value) {
			return nil
		}
		if out := drive(ec, value, p); out != nil {
			return out
		}
		return nil
	})
	bindings = append(bindings, c.bind(path.Symbol(RoleGet), get))

	text, err := render("object", objectListing{
		Getter:   path.Symbol(RoleGet),
		TypeName: t.Name,
		Root:     root,
		Fields:   listings,
	})
	if err != nil {
		return Unit{}, err
	}
	driver := Unit{Text: text, Bindings: bindings, get: get}
	return MergeAll(append(children, driver)...), nil
}

// objectDriver resolves plans in response order and assembles the object's
// result. It returns nil once a non-null field completes to null.
func objectDriver(typeName string, plans []fieldPlan) func(ec *execContext, source any, path executor.Path) *executor.Object {
	static := make([]int, len(plans))
	conditional := false
	for i := range plans {
		static[i] = i
		if plans[i].field.conditional() {
			conditional = true
		}
	}
	return func(ec *execContext, source any, path executor.Path) *executor.Object {
		order := static
		if conditional {
			order = responseOrder(plans, ec.variables)
		}
		out := executor.NewObject(len(order))
		for _, i := range order {
			plan := &plans[i]
			if plan.guard != nil && !plan.guard.included(ec.variables) {
				continue
			}
			if plan.typename {
				out.Set(plan.key, typeName)
				continue
			}
			fieldPath := appendPath(path, plan.key)
			args := plan.args.bind(ec, fieldPath)

			info := *plan.info
			info.Path = fieldPath
			info.RootValue = ec.root
			info.VariableValues = ec.variables

			raw, err := plan.resolve(ec.ctx, source, args, &info)
			if err != nil {
				ec.addError(err.Error(), fieldPath)
				raw = nil
			}
			v := plan.get(ec, raw, fieldPath)
			if plan.nonNull && isNullish(v) {
				return nil
			}
			if isNullish(v) {
				out.Set(plan.key, nil)
			} else {
				out.Set(plan.key, v)
			}
		}
		return out
	}
}

// responseOrder returns the indexes of the included plans ordered by their
// first included occurrence. A key whose earlier occurrences are excluded
// takes the place of its first included one.
func responseOrder(plans []fieldPlan, variables map[string]any) []int {
	pos := make([]int, len(plans))
	out := make([]int, 0, len(plans))
	for i := range plans {
		p, ok := plans[i].field.position(variables)
		if !ok {
			continue
		}
		pos[i] = p
		out = append(out, i)
	}
	sort.SliceStable(out, func(a, b int) bool { return pos[out[a]] < pos[out[b]] })
	return out
}
