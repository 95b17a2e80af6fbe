package compiler

import (
	"fmt"
	"strings"

	executor "github.com/hanpama/gqljit/internal/executor"
	language "github.com/hanpama/gqljit/internal/language"
	schema "github.com/hanpama/gqljit/internal/schema"
)

// Context carries everything one compilation needs. It is built once per
// compile request and is not safe for concurrent use; its caches are
// write-once per key.
type Context struct {
	Schema     *schema.Schema
	Document   *language.QueryDocument
	Operation  *language.OperationDefinition
	Fragments  map[string]*language.FragmentDefinition
	Middleware []schema.Middleware
	RootValue  any

	selections map[selectionKey][]collectedField
	arguments  map[argumentKey]*argumentBinder
	nextHandle Handle
}

type selectionKey struct {
	objectType *schema.Type
	nodes      string
}

type argumentKey struct {
	field *schema.Field
	node  *language.Field
}

// NewContext selects the operation to compile and indexes fragments.
func NewContext(
	sch *schema.Schema,
	doc *language.QueryDocument,
	operationName string,
	middleware []schema.Middleware,
	root any,
) (*Context, error) {
	if len(doc.Operations) > 1 && operationName == "" {
		return nil, ErrAmbiguousOperation
	}
	var operation *language.OperationDefinition
	for _, op := range doc.Operations {
		if operationName == "" || op.Name == operationName {
			operation = op
			break
		}
	}

	fragments := make(map[string]*language.FragmentDefinition, len(doc.Fragments))
	for _, f := range doc.Fragments {
		if _, dup := fragments[f.Name]; dup {
			return nil, &DuplicateFragmentError{Name: f.Name}
		}
		fragments[f.Name] = f
	}

	if operation == nil {
		if len(doc.Operations) == 0 {
			return nil, ErrMissingOperation
		}
		return nil, &UnknownOperationError{Name: operationName}
	}

	return &Context{
		Schema:     sch,
		Document:   doc,
		Operation:  operation,
		Fragments:  fragments,
		Middleware: middleware,
		RootValue:  root,
		selections: make(map[selectionKey][]collectedField),
		arguments:  make(map[argumentKey]*argumentBinder),
	}, nil
}

// bind allocates the next handle for value.
func (c *Context) bind(symbol string, value any) Binding {
	h := c.nextHandle
	c.nextHandle++
	return Binding{Handle: h, Symbol: symbol, Value: value}
}

// ------------------ Sub-selection expansion ------------------

// variableCheck is a @skip or @include whose condition is a variable.
type variableCheck struct {
	Variable string
	Skip     bool
}

// passes mirrors the generic executor: only a boolean variable value can
// exclude a node.
func (v variableCheck) passes(variables map[string]any) bool {
	b, ok := variables[v.Variable].(bool)
	if !ok {
		return true
	}
	if v.Skip {
		return !b
	}
	return b
}

// condition is a conjunction of variable checks; empty means always true.
type condition []variableCheck

func (c condition) holds(variables map[string]any) bool {
	for _, v := range c {
		if !v.passes(variables) {
			return false
		}
	}
	return true
}

// fieldNode is one field occurrence under a response key. It is included
// when any of its conditions holds.
type fieldNode struct {
	Field *language.Field
	when  []condition
	seq   []int // collection order of each entry in when
}

func (n fieldNode) always() bool {
	for _, c := range n.when {
		if len(c) == 0 {
			return true
		}
	}
	return false
}

func (n fieldNode) included(variables map[string]any) bool {
	for _, c := range n.when {
		if c.holds(variables) {
			return true
		}
	}
	return false
}

// collectedField groups the field nodes sharing a response key.
type collectedField struct {
	ResponseKey string
	Nodes       []fieldNode
}

func (f collectedField) Name() string { return f.Nodes[0].Field.Name }

func (f collectedField) Fields() []*language.Field {
	out := make([]*language.Field, len(f.Nodes))
	for i, n := range f.Nodes {
		out[i] = n.Field
	}
	return out
}

// static reports whether the field is selected regardless of variables.
func (f collectedField) static() bool {
	for _, n := range f.Nodes {
		if !n.always() {
			return false
		}
	}
	return true
}

func (f collectedField) included(variables map[string]any) bool {
	for _, n := range f.Nodes {
		if n.included(variables) {
			return true
		}
	}
	return false
}

// conditional reports whether any occurrence of f depends on a variable.
func (f collectedField) conditional() bool {
	for _, n := range f.Nodes {
		for _, c := range n.when {
			if len(c) > 0 {
				return true
			}
		}
	}
	return false
}

// position returns the collection order of the first occurrence of f that
// is included under variables.
func (f collectedField) position(variables map[string]any) (int, bool) {
	best, found := 0, false
	for _, n := range f.Nodes {
		for i, c := range n.when {
			if (!found || n.seq[i] < best) && c.holds(variables) {
				best, found = n.seq[i], true
			}
		}
	}
	return best, found
}

type fieldGroups struct {
	fields []collectedField
	index  map[string]int
	seq    int
}

func (g *fieldGroups) add(key string, field *language.Field, cond condition) {
	seq := g.seq
	g.seq++
	idx, ok := g.index[key]
	if !ok {
		g.index[key] = len(g.fields)
		g.fields = append(g.fields, collectedField{
			ResponseKey: key,
			Nodes:       []fieldNode{{Field: field, when: []condition{cond}, seq: []int{seq}}},
		})
		return
	}
	group := &g.fields[idx]
	for i := range group.Nodes {
		if group.Nodes[i].Field == field {
			group.Nodes[i].when = append(group.Nodes[i].when, cond)
			group.Nodes[i].seq = append(group.Nodes[i].seq, seq)
			return
		}
	}
	group.Nodes = append(group.Nodes, fieldNode{Field: field, when: []condition{cond}, seq: []int{seq}})
}

// subSelection returns the collected fields of selectionSet on objectType.
// owner identifies the selection set for the cache: the operation for the
// root, otherwise the field nodes whose selection sets were merged.
func (c *Context) subSelection(objectType *schema.Type, owner string, selectionSet language.SelectionSet) []collectedField {
	key := selectionKey{objectType: objectType, nodes: owner}
	if cached, ok := c.selections[key]; ok {
		return cached
	}
	groups := &fieldGroups{index: make(map[string]int)}
	c.collect(objectType, selectionSet, nil, groups, make(map[string]bool))
	c.selections[key] = groups.fields
	return groups.fields
}

func (c *Context) collect(objectType *schema.Type, selectionSet language.SelectionSet, cond condition, out *fieldGroups, visited map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			fieldCond, ok := extendCondition(cond, sel.Directives)
			if !ok {
				continue
			}
			key := sel.Alias
			if key == "" {
				key = sel.Name
			}
			out.add(key, sel, fieldCond)

		case *language.InlineFragment:
			fragCond, ok := extendCondition(cond, sel.Directives)
			if !ok {
				continue
			}
			if !c.Schema.DoesFragmentTypeApply(objectType, sel.TypeCondition) {
				continue
			}
			c.collect(objectType, sel.SelectionSet, fragCond, out, visited)

		case *language.FragmentSpread:
			spreadCond, ok := extendCondition(cond, sel.Directives)
			if !ok {
				continue
			}
			if visited[sel.Name] {
				continue
			}
			// A conditional spread may be excluded at run time, letting a
			// later spread of the same fragment take effect.
			if len(spreadCond) == 0 {
				visited[sel.Name] = true
			}
			def := c.Fragments[sel.Name]
			if def == nil {
				continue
			}
			if !c.Schema.DoesFragmentTypeApply(objectType, def.TypeCondition) {
				continue
			}
			defCond, ok := extendCondition(spreadCond, def.Directives)
			if !ok {
				continue
			}
			c.collect(objectType, def.SelectionSet, defCond, out, visited)
		}
	}
}

// extendCondition folds literal @skip/@include and appends variable ones to
// cond. It reports false when a literal excludes the node.
func extendCondition(cond condition, directives language.DirectiveList) (condition, bool) {
	out := cond
	for _, d := range []struct {
		name string
		skip bool
	}{{"skip", true}, {"include", false}} {
		dir := directives.ForName(d.name)
		if dir == nil {
			continue
		}
		arg := dir.Arguments.ForName("if")
		if arg == nil || arg.Value == nil {
			continue
		}
		if arg.Value.Kind == language.Variable {
			next := make(condition, len(out), len(out)+1)
			copy(next, out)
			out = append(next, variableCheck{Variable: arg.Value.Raw, Skip: d.skip})
			continue
		}
		b, ok := executor.ValueFromAST(arg.Value, nil).(bool)
		if !ok {
			continue
		}
		if b == d.skip {
			return nil, false
		}
	}
	return out, true
}

func nodesKey(fields []*language.Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%p", f)
	}
	return b.String()
}

func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// ------------------ Argument binding ------------------

type argumentBinder struct {
	schema  *schema.Schema
	field   *schema.Field
	entries []argumentEntry
}

// argumentEntry is one argument node. Constant arguments are coerced once;
// arguments referencing variables at any depth are coerced per execution.
type argumentEntry struct {
	name     string
	def      *schema.InputValue
	variable *language.Value
	value    any
	err      error
}

// argumentsFor returns the binder of node's arguments for field, building it
// on first use.
func (c *Context) argumentsFor(field *schema.Field, node *language.Field) *argumentBinder {
	key := argumentKey{field: field, node: node}
	if b, ok := c.arguments[key]; ok {
		return b
	}
	b := &argumentBinder{schema: c.Schema, field: field}
	for _, arg := range node.Arguments {
		def := field.Argument(arg.Name)
		if def == nil {
			continue
		}
		entry := argumentEntry{name: arg.Name, def: def}
		if executor.HasVariables(arg.Value) {
			entry.variable = arg.Value
		} else {
			entry.value, entry.err = executor.CoerceValue(c.Schema, executor.ValueFromAST(arg.Value, nil), def.Type)
		}
		b.entries = append(b.entries, entry)
	}
	c.arguments[key] = b
	return b
}

// bind produces the argument map for one resolver call, recording coercion
// failures at path the way the generic executor does.
func (b *argumentBinder) bind(ec *execContext, path executor.Path) map[string]any {
	args := make(map[string]any, len(b.field.Arguments))
	for _, e := range b.entries {
		value, err := e.value, e.err
		if e.variable != nil {
			if !executor.VariableProvided(e.variable, ec.variables) {
				continue
			}
			value, err = executor.CoerceValue(b.schema, executor.ValueFromAST(e.variable, ec.variables), e.def.Type)
		}
		if err != nil {
			ec.addError(executor.ArgumentCoercionMessage(e.name, err), path)
			continue
		}
		args[e.name] = value
	}
	for _, def := range b.field.Arguments {
		if _, ok := args[def.Name]; ok {
			continue
		}
		if def.DefaultValue != nil {
			args[def.Name] = def.DefaultValue
		} else if schema.IsNonNull(def.Type) {
			ec.addError(executor.MissingArgumentMessage(def.Name), path)
		}
	}
	return args
}
