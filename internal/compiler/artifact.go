package compiler

import (
	"context"
	"fmt"

	eventbus "github.com/hanpama/gqljit/internal/eventbus"
	events "github.com/hanpama/gqljit/internal/events"
	executor "github.com/hanpama/gqljit/internal/executor"
	language "github.com/hanpama/gqljit/internal/language"
	schema "github.com/hanpama/gqljit/internal/schema"
)

// Artifact is a compiled executor for one operation of one document. It is
// immutable and safe for concurrent use; every Execute call owns its own
// state.
type Artifact struct {
	schema    *schema.Schema
	query     string
	document  *language.QueryDocument
	operation *language.OperationDefinition
	source    string
	env       *Environment
	entry     getter
	rootValue any
}

// Load links unit's bindings into an environment and resolves the entry
// getter of the root selection set.
func Load(sch *schema.Schema, query string, doc *language.QueryDocument, operation *language.OperationDefinition, unit Unit) (*Artifact, error) {
	env, err := newEnvironment(unit.Bindings)
	if err != nil {
		return nil, fmt.Errorf("loading compiled unit: %w", err)
	}
	h, ok := env.Lookup(EntrySymbol)
	if !ok {
		return nil, fmt.Errorf("loading compiled unit: no %s binding", EntrySymbol)
	}
	entry, ok := env.Value(h).(getter)
	if !ok {
		return nil, fmt.Errorf("loading compiled unit: %s is %T, not a getter", EntrySymbol, env.Value(h))
	}
	return &Artifact{
		schema:    sch,
		query:     query,
		document:  doc,
		operation: operation,
		source:    unit.Text,
		env:       env,
		entry:     entry,
	}, nil
}

// Compile builds a context for doc, generates the operation and loads it.
// root is used by Execute calls that pass a nil root value.
func Compile(
	sch *schema.Schema,
	query string,
	doc *language.QueryDocument,
	operationName string,
	middleware []schema.Middleware,
	root any,
) (*Artifact, error) {
	c, err := NewContext(sch, doc, operationName, middleware, root)
	if err != nil {
		return nil, err
	}
	return CompileContext(c, query)
}

// CompileContext generates and loads the operation selected by c.
func CompileContext(c *Context, query string) (*Artifact, error) {
	unit, err := GenerateSource(c)
	if err != nil {
		return nil, err
	}
	a, err := Load(c.Schema, query, c.Document, c.Operation, unit)
	if err != nil {
		return nil, err
	}
	a.rootValue = c.RootValue
	return a, nil
}

// Execute runs the compiled operation. An operationName naming a different
// operation than the compiled one yields an error result.
func (a *Artifact) Execute(ctx context.Context, root any, variables map[string]any, operationName string) *executor.ExecutionResult {
	if operationName != "" && operationName != a.operation.Name {
		err := &UnknownOperationError{Name: operationName}
		return &executor.ExecutionResult{Errors: []executor.GraphQLError{{Message: err.Error()}}}
	}
	coerced, err := executor.CoerceVariableValues(a.schema, a.operation, variables)
	if err != nil {
		return &executor.ExecutionResult{Errors: []executor.GraphQLError{{Message: err.Error()}}}
	}
	if root == nil {
		root = a.rootValue
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ec := newExecContext(ctx, root, coerced)
	data := a.entry(ec, root, executor.Path{})
	if isNullish(data) {
		return &executor.ExecutionResult{Data: nil, Errors: ec.errors}
	}
	return &executor.ExecutionResult{Data: data, Errors: ec.errors}
}

// Params is the keyword form of Execute's arguments.
type Params struct {
	Root          any
	Context       context.Context
	Variables     map[string]any
	OperationName string

	// Deprecated: use Root.
	RootValue any
	// Deprecated: use Context.
	ContextValue context.Context
	// Deprecated: use Variables.
	VariableValues map[string]any
}

// Canonical moves deprecated aliases into their current fields and returns
// the alias names that were set. A current field wins over its alias.
func (p Params) Canonical() (Params, []string) {
	var used []string
	if p.RootValue != nil {
		used = append(used, "RootValue")
		if p.Root == nil {
			p.Root = p.RootValue
		}
		p.RootValue = nil
	}
	if p.ContextValue != nil {
		used = append(used, "ContextValue")
		if p.Context == nil {
			p.Context = p.ContextValue
		}
		p.ContextValue = nil
	}
	if p.VariableValues != nil {
		used = append(used, "VariableValues")
		if p.Variables == nil {
			p.Variables = p.VariableValues
		}
		p.VariableValues = nil
	}
	return p, used
}

var replacements = map[string]string{
	"RootValue":      "Root",
	"ContextValue":   "Context",
	"VariableValues": "Variables",
}

// ExecuteParams is Execute with keyword arguments. Deprecated aliases are
// accepted and reported as events.Deprecation.
func (a *Artifact) ExecuteParams(p Params) *executor.ExecutionResult {
	p, used := p.Canonical()
	ctx := p.Context
	if ctx == nil {
		ctx = context.Background()
	}
	for _, name := range used {
		eventbus.Publish(ctx, events.Deprecation{Name: name, Replacement: replacements[name]})
	}
	return a.Execute(ctx, p.Root, p.Variables, p.OperationName)
}

func (a *Artifact) Schema() *schema.Schema                   { return a.schema }
func (a *Artifact) Query() string                            { return a.query }
func (a *Artifact) Document() *language.QueryDocument        { return a.document }
func (a *Artifact) Operation() *language.OperationDefinition { return a.operation }
func (a *Artifact) Environment() *Environment                { return a.env }

// Source returns the listing of the compiled executor.
func (a *Artifact) Source() string { return a.source }
