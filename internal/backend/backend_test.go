package backend

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	compiler "github.com/hanpama/gqljit/internal/compiler"
	eventbus "github.com/hanpama/gqljit/internal/eventbus"
	events "github.com/hanpama/gqljit/internal/events"
	executor "github.com/hanpama/gqljit/internal/executor"
	language "github.com/hanpama/gqljit/internal/language"
	schema "github.com/hanpama/gqljit/internal/schema"
	schemart "github.com/hanpama/gqljit/internal/schemart"
)

const testSDL = `
type Query {
  hello(name: String = "world"): String
  count: Int!
  node: Node
}

interface Node {
  id: ID!
}

type Thing implements Node {
  id: ID!
}

type Mutation {
  bump: Int!
}
`

func newTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)

	var mu sync.Mutex
	counter := 0
	require.NoError(t, sch.SetFieldResolver("Query", "hello", func(_ context.Context, _ any, args map[string]any, _ *schema.ResolveInfo) (any, error) {
		return "hello " + args["name"].(string), nil
	}))
	require.NoError(t, sch.SetFieldResolver("Query", "count", func(context.Context, any, map[string]any, *schema.ResolveInfo) (any, error) {
		return 3, nil
	}))
	require.NoError(t, sch.SetFieldResolver("Query", "node", func(context.Context, any, map[string]any, *schema.ResolveInfo) (any, error) {
		return map[string]any{"__typename": "Thing", "id": "t1"}, nil
	}))
	require.NoError(t, sch.SetFieldResolver("Mutation", "bump", func(context.Context, any, map[string]any, *schema.ResolveInfo) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		counter++
		return counter, nil
	}))
	return sch
}

func newBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	b, err := New(newTestSchema(t), opts...)
	require.NoError(t, err)
	return b
}

// recordEvents installs a fresh global bus and collects events of type T.
func recordEvents[T any](t *testing.T) func() []T {
	t.Helper()
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var mu sync.Mutex
	var got []T
	eventbus.Subscribe(func(_ context.Context, e T) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})
	return func() []T {
		mu.Lock()
		defer mu.Unlock()
		return append([]T(nil), got...)
	}
}

// Pattern: Result comparison
func TestDocumentFromString_Compiled(t *testing.T) {
	b := newBackend(t)
	doc, err := b.DocumentFromString(context.Background(), `{ hello count }`, "")
	require.NoError(t, err)
	require.True(t, doc.Compiled())
	require.Contains(t, doc.Source(), "func get_root(ec, source, path) { // Query")

	got := doc.Execute(context.Background(), nil, nil, "")
	want := &executor.ExecutionResult{
		Data:   executor.ObjectOf("hello", "hello world", "count", 3),
		Errors: []executor.GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

// Pattern: Result comparison
func TestDocumentFromString_ValidationFallback(t *testing.T) {
	b := newBackend(t)
	fallbacks := recordEvents[events.Fallback](t)

	query := `{ nope hello(name: 1) }`
	doc, err := b.DocumentFromString(context.Background(), query, "")
	require.NoError(t, err)
	require.False(t, doc.Compiled())
	require.Empty(t, doc.Source())

	parsed, err := language.ParseQuery(query)
	require.NoError(t, err)
	want := GraphQLErrors(language.Validate(b.validator, parsed))
	require.NotEmpty(t, want)
	require.Equal(t, `Cannot query field "nope" on type "Query".`, want[0].Message)
	require.Equal(t, []executor.Location{{Line: 1, Column: 3}}, want[0].Locations)

	for i := 0; i < 2; i++ {
		got := doc.Execute(context.Background(), nil, nil, "")
		if diff := cmp.Diff(&executor.ExecutionResult{Errors: want}, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	}
	require.Equal(t, []events.Fallback{{Query: query, Reason: ReasonValidation}}, fallbacks())
}

func TestDocumentFromString_MutationFallback(t *testing.T) {
	b := newBackend(t)
	doc, err := b.DocumentFromString(context.Background(), `mutation Bump { bump }`, "")
	require.NoError(t, err)
	require.False(t, doc.Compiled())

	require.Equal(t, executor.ObjectOf("bump", 1), doc.Execute(context.Background(), nil, nil, "").Data)
	require.Equal(t, executor.ObjectOf("bump", 2), doc.Execute(context.Background(), nil, nil, "").Data)
}

// Pattern: Result comparison
func TestDocumentFromString_UnsupportedFallback(t *testing.T) {
	b := newBackend(t)
	query := `{ node { id ... on Thing { id } } count }`
	doc, err := b.DocumentFromString(context.Background(), query, "")
	require.NoError(t, err)
	require.False(t, doc.Compiled())

	parsed, err := language.ParseQuery(query)
	require.NoError(t, err)
	want := executor.NewExecutor(schemart.New(b.Schema()), b.Schema()).
		ExecuteRequest(context.Background(), parsed, "", nil, nil)
	got := doc.Execute(context.Background(), nil, nil, "")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, executor.ObjectOf("node", executor.ObjectOf("id", "t1"), "count", 3), got.Data)
}

func TestDocumentFromString_Errors(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	_, err := b.DocumentFromString(ctx, `{ hello `, "")
	require.Error(t, err)
	errs := GraphQLErrors(err)
	require.Len(t, errs, 1)
	require.NotEmpty(t, errs[0].Locations)

	_, err = b.DocumentFromString(ctx, "{ hello }\ntype Extra { a: Int }", "")
	var defErr *compiler.UnsupportedDefinitionError
	require.True(t, errors.As(err, &defErr))
	require.Equal(t, "type", defErr.Definition.Keyword)
	require.Equal(t, "Extra", defErr.Definition.Name)

	_, err = b.DocumentFromString(ctx, `query A { hello } query B { count }`, "")
	require.ErrorIs(t, err, compiler.ErrAmbiguousOperation)

	_, err = b.DocumentFromString(ctx, `query A { hello }`, "C")
	require.EqualError(t, err, `Unknown operation named "C".`)
}

func TestDocumentFromString_OperationSelection(t *testing.T) {
	b := newBackend(t)
	query := `query A { hello } query B { count }`

	a, err := b.DocumentFromString(context.Background(), query, "A")
	require.NoError(t, err)
	require.Equal(t, executor.ObjectOf("hello", "hello world"), a.Execute(context.Background(), nil, nil, "A").Data)

	bDoc, err := b.DocumentFromString(context.Background(), query, "B")
	require.NoError(t, err)
	require.Equal(t, executor.ObjectOf("count", 3), bDoc.Execute(context.Background(), nil, nil, "B").Data)
}

func TestDocumentCache(t *testing.T) {
	b := newBackend(t, WithCacheSize(2))
	lookups := recordEvents[events.DocumentCacheLookup](t)
	ctx := context.Background()

	first, err := b.DocumentFromString(ctx, `{ hello }`, "")
	require.NoError(t, err)
	again, err := b.DocumentFromString(ctx, `{ hello }`, "")
	require.NoError(t, err)
	require.Same(t, first.(compiledDocument).Artifact, again.(compiledDocument).Artifact)

	other, err := b.DocumentFromString(ctx, `{ count }`, "")
	require.NoError(t, err)
	require.NotSame(t, first.(compiledDocument).Artifact, other.(compiledDocument).Artifact)

	require.Equal(t, []events.DocumentCacheLookup{{Hit: false}, {Hit: true}, {Hit: false}}, lookups())
	require.NotEqual(t, documentHash("{ a }", ""), documentHash("{ a }", "A"))
}

func TestCompileFinishEvents(t *testing.T) {
	b := newBackend(t, WithCacheSize(0))
	finished := recordEvents[events.CompileFinish](t)

	_, err := b.DocumentFromString(context.Background(), `{ hello }`, "")
	require.NoError(t, err)
	_, err = b.DocumentFromString(context.Background(), `{ node { id } }`, "")
	require.NoError(t, err)

	got := finished()
	require.Len(t, got, 2)
	require.True(t, got[0].Compiled)
	require.Positive(t, got[0].Bindings)
	require.False(t, got[1].Compiled)
	require.NoError(t, got[1].Err)
}

func TestIntrospectionOption(t *testing.T) {
	query := `{ __type(name: "Thing") { name kind } }`

	on := newBackend(t)
	doc, err := on.DocumentFromString(context.Background(), query, "")
	require.NoError(t, err)
	require.True(t, doc.Compiled())
	require.Equal(t, executor.ObjectOf("__type", executor.ObjectOf("name", "Thing", "kind", "OBJECT")),
		doc.Execute(context.Background(), nil, nil, "").Data)

	off := newBackend(t, WithIntrospection(false))
	_, err = off.DocumentFromString(context.Background(), query, "")
	var fieldErr *compiler.FieldResolutionError
	require.True(t, errors.As(err, &fieldErr))
	require.Equal(t, "__type", fieldErr.FieldName)
}

func TestMiddlewareAndRootValue(t *testing.T) {
	var seen []string
	mw := func(next schema.FieldResolveFn) schema.FieldResolveFn {
		return func(ctx context.Context, source any, args map[string]any, info *schema.ResolveInfo) (any, error) {
			seen = append(seen, info.ParentType.Name+"."+info.FieldName)
			return next(ctx, source, args, info)
		}
	}
	b := newBackend(t, WithMiddleware(mw), WithRootValue("root"))

	res := b.Execute(context.Background(), `{ count }`, "", nil)
	require.Empty(t, res.Errors)
	res = b.Execute(context.Background(), `mutation { bump }`, "", nil)
	require.Empty(t, res.Errors)
	require.Equal(t, []string{"Query.count", "Mutation.bump"}, seen)

	res = b.Execute(context.Background(), `{ hello `, "", nil)
	require.Nil(t, res.Data)
	require.Len(t, res.Errors, 1)
}

func TestCompile(t *testing.T) {
	doc, err := Compile(newTestSchema(t), `query A { hello } query B { hello(name: "B") }`, WithOperationName("B"))
	require.NoError(t, err)
	require.True(t, doc.Compiled())
	require.Equal(t, executor.ObjectOf("hello", "hello B"), doc.Execute(context.Background(), nil, nil, "").Data)
}

func TestGraphQLErrors(t *testing.T) {
	require.Equal(t, []executor.GraphQLError{{Message: "plain"}}, GraphQLErrors(errors.New("plain")))
	require.Equal(t,
		[]executor.GraphQLError{{Message: `Unknown operation named "X".`}},
		GraphQLErrors(&compiler.UnknownOperationError{Name: "X"}))
}
