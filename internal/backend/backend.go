package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"

	compiler "github.com/hanpama/gqljit/internal/compiler"
	eventbus "github.com/hanpama/gqljit/internal/eventbus"
	events "github.com/hanpama/gqljit/internal/events"
	executor "github.com/hanpama/gqljit/internal/executor"
	introspection "github.com/hanpama/gqljit/internal/introspection"
	language "github.com/hanpama/gqljit/internal/language"
	schema "github.com/hanpama/gqljit/internal/schema"
	schemart "github.com/hanpama/gqljit/internal/schemart"
)

// Fallback reasons carried by events.Fallback.
const (
	ReasonValidation  = "validation"
	ReasonOperation   = "operation"
	ReasonUnsupported = "unsupported"
)

// Backend turns query text into Documents for one schema. It is safe for
// concurrent use.
type Backend struct {
	schema    *schema.Schema
	validator *language.Schema
	exec      *executor.Executor
	cache     *lru.Cache
	opt       options
}

type cacheKey struct {
	hash uint64
}

type cacheEntry struct {
	query         string
	operationName string
	document      Document
}

// New prepares a backend for sch. Introspection is enabled unless turned
// off with WithIntrospection(false).
func New(sch *schema.Schema, opts ...Option) (*Backend, error) {
	opt := options{cacheSize: DefaultCacheSize, introspection: true}
	for _, f := range opts {
		f(&opt)
	}

	validator, err := schema.ToAST(sch)
	if err != nil {
		return nil, fmt.Errorf("preparing schema for validation: %w", err)
	}
	if opt.introspection {
		sch = introspection.Install(sch)
	}

	b := &Backend{
		schema:    sch,
		validator: validator,
		exec:      executor.NewExecutor(schemart.New(sch, opt.middleware...), sch),
		opt:       opt,
	}
	if opt.cacheSize > 0 {
		b.cache, err = lru.New(opt.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating document cache: %w", err)
		}
	}
	return b, nil
}

// Compile is New followed by DocumentFromString for the operation chosen
// with WithOperationName.
func Compile(sch *schema.Schema, query string, opts ...Option) (Document, error) {
	b, err := New(sch, append([]Option{WithCacheSize(0)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return b.DocumentFromString(context.Background(), query, b.opt.operationName)
}

// Schema returns the executable schema, including introspection fields
// when enabled.
func (b *Backend) Schema() *schema.Schema { return b.schema }

// DocumentFromString parses, validates and compiles query. Syntax errors,
// non-executable definitions and operation selection errors are returned.
// Invalid documents, non-query operations and selections the compiler does
// not specialize yield a generic Document.
func (b *Backend) DocumentFromString(ctx context.Context, query, operationName string) (Document, error) {
	key := cacheKey{hash: documentHash(query, operationName)}
	if b.cache != nil {
		cached, ok := b.cache.Get(key)
		if ok {
			entry := cached.(cacheEntry)
			if entry.query == query && entry.operationName == operationName {
				eventbus.Publish(ctx, events.DocumentCacheLookup{Hit: true})
				return entry.document, nil
			}
		}
		eventbus.Publish(ctx, events.DocumentCacheLookup{Hit: false})
	}

	start := time.Now()
	eventbus.Publish(ctx, events.CompileStart{Query: query, OperationName: operationName})
	doc, bindings, err := b.build(ctx, query, operationName)
	eventbus.Publish(ctx, events.CompileFinish{
		Query:         query,
		OperationName: operationName,
		Compiled:      doc != nil && doc.Compiled(),
		Bindings:      bindings,
		Err:           err,
		Duration:      time.Since(start),
	})
	if err != nil {
		return nil, err
	}
	if b.cache != nil {
		b.cache.Add(key, cacheEntry{query: query, operationName: operationName, document: doc})
	}
	return doc, nil
}

func (b *Backend) build(ctx context.Context, query, operationName string) (Document, int, error) {
	headers, err := language.ScanDefinitions(query)
	if err == nil {
		for _, h := range headers {
			if !h.IsExecutable() {
				return nil, 0, &compiler.UnsupportedDefinitionError{Definition: h}
			}
		}
	}

	doc, err := language.ParseQuery(query)
	if err != nil {
		return nil, 0, err
	}

	if errs := language.Validate(b.validator, doc); len(errs) > 0 {
		b.fallback(ctx, query, operationName, ReasonValidation)
		return b.generic(query, doc, operationName, GraphQLErrors(errs)), 0, nil
	}

	c, err := compiler.NewContext(b.schema, doc, operationName, b.opt.middleware, b.opt.root)
	if err != nil {
		return nil, 0, err
	}
	if c.Operation.Operation != language.Query {
		b.fallback(ctx, query, operationName, ReasonOperation)
		return b.generic(query, doc, c.Operation.Name, nil), 0, nil
	}

	artifact, err := compiler.CompileContext(c, query)
	if compiler.IsUnsupported(err) {
		b.fallback(ctx, query, operationName, ReasonUnsupported)
		return b.generic(query, doc, c.Operation.Name, nil), 0, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return compiledDocument{artifact}, artifact.Environment().Len(), nil
}

func (b *Backend) generic(query string, doc *language.QueryDocument, operationName string, errs []executor.GraphQLError) Document {
	return &genericDocument{
		query:         query,
		document:      doc,
		operationName: operationName,
		exec:          b.exec,
		root:          b.opt.root,
		errors:        errs,
	}
}

func (b *Backend) fallback(ctx context.Context, query, operationName, reason string) {
	eventbus.Publish(ctx, events.Fallback{Query: query, OperationName: operationName, Reason: reason})
}

// Execute prepares query and runs it once. Preparation errors are reported
// as result errors.
func (b *Backend) Execute(ctx context.Context, query, operationName string, variables map[string]any) *executor.ExecutionResult {
	doc, err := b.DocumentFromString(ctx, query, operationName)
	if err != nil {
		return &executor.ExecutionResult{Errors: GraphQLErrors(err)}
	}
	return doc.Execute(ctx, nil, variables, operationName)
}

func documentHash(query, operationName string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(operationName)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(query)
	return h.Sum64()
}
