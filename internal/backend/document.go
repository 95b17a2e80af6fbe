package backend

import (
	"context"

	compiler "github.com/hanpama/gqljit/internal/compiler"
	executor "github.com/hanpama/gqljit/internal/executor"
	language "github.com/hanpama/gqljit/internal/language"
)

// Document is a query prepared for repeated execution. Compiled documents
// run a specialized executor; the others run the generic executor.
type Document interface {
	Execute(ctx context.Context, root any, variables map[string]any, operationName string) *executor.ExecutionResult

	// Compiled reports whether Execute runs a compiled executor.
	Compiled() bool
	Query() string
	// OperationType is "query", "mutation" or "subscription", or empty
	// when the document failed validation without a selectable operation.
	OperationType() string
	// Source is the compiled listing, empty for generic documents.
	Source() string
}

type compiledDocument struct {
	*compiler.Artifact
}

func (compiledDocument) Compiled() bool { return true }

func (d compiledDocument) OperationType() string { return string(d.Operation().Operation) }

// genericDocument executes through the tree-walking executor. A document
// that failed validation keeps its errors and reports them on every call.
type genericDocument struct {
	query         string
	document      *language.QueryDocument
	operationName string
	exec          *executor.Executor
	root          any
	errors        []executor.GraphQLError
}

func (d *genericDocument) Execute(ctx context.Context, root any, variables map[string]any, operationName string) *executor.ExecutionResult {
	if len(d.errors) > 0 {
		return &executor.ExecutionResult{Errors: append([]executor.GraphQLError(nil), d.errors...)}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if root == nil {
		root = d.root
	}
	if operationName == "" {
		operationName = d.operationName
	}
	return d.exec.ExecuteRequest(ctx, d.document, operationName, variables, root)
}

func (d *genericDocument) Compiled() bool { return false }
func (d *genericDocument) Query() string  { return d.query }
func (d *genericDocument) Source() string { return "" }

func (d *genericDocument) OperationType() string {
	ops := d.document.Operations
	if op := ops.ForName(d.operationName); op != nil {
		return string(op.Operation)
	}
	if d.operationName == "" && len(ops) == 1 {
		return string(ops[0].Operation)
	}
	return ""
}
