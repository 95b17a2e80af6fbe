package schemart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/gqljit/internal/executor"
	language "github.com/hanpama/gqljit/internal/language"
	schema "github.com/hanpama/gqljit/internal/schema"
)

const sdl = `
type Query {
  user(index: Int!): User
  search: [Result]
  slow: String
}

type User {
  id: Int!
  name: String
}

type Bot {
  model: String
}

union Result = User | Bot
`

func newTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	require.NoError(t, sch.SetFieldResolver("Query", "user", func(ctx context.Context, source any, args map[string]any, info *schema.ResolveInfo) (any, error) {
		if args["index"] == -1 {
			return nil, errors.New("no such user")
		}
		return map[string]any{"id": args["index"], "name": "Ashish"}, nil
	}))
	require.NoError(t, sch.SetFieldResolver("Query", "search", func(context.Context, any, map[string]any, *schema.ResolveInfo) (any, error) {
		return []any{
			map[string]any{"__typename": "User", "id": 1, "name": "a"},
			map[string]any{"__typename": "Bot", "model": "t1"},
		}, nil
	}))
	sch.Types["Query"].Field("slow").SetAsync(true).SetResolve(func(context.Context, any, map[string]any, *schema.ResolveInfo) (any, error) {
		return "later", nil
	})
	return sch
}

func execute(t *testing.T, sch *schema.Schema, rt executor.Runtime, query string) *executor.ExecutionResult {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return executor.NewExecutor(rt, sch).ExecuteRequest(context.Background(), doc, "", nil, nil)
}

// Pattern: Result comparison
func TestRuntime_Execute_Result(t *testing.T) {
	sch := newTestSchema(t)
	rt := New(sch)

	t.Run("Resolver and default resolver", func(t *testing.T) {
		got := execute(t, sch, rt, `{ user(index: 1) { id name } slow }`)
		want := &executor.ExecutionResult{
			Data:   executor.ObjectOf("user", executor.ObjectOf("id", 1, "name", "Ashish"), "slow", "later"),
			Errors: []executor.GraphQLError{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Resolver error", func(t *testing.T) {
		got := execute(t, sch, rt, `{ user(index: -1) { id } }`)
		want := &executor.ExecutionResult{
			Data:   executor.ObjectOf("user", nil),
			Errors: []executor.GraphQLError{{Message: "no such user", Path: executor.Path{"user"}}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Union", func(t *testing.T) {
		got := execute(t, sch, rt, `{ search { __typename ... on User { id } ... on Bot { model } } }`)
		want := &executor.ExecutionResult{
			Data: executor.ObjectOf("search", []any{
				executor.ObjectOf("__typename", "User", "id", 1),
				executor.ObjectOf("__typename", "Bot", "model", "t1"),
			}),
			Errors: []executor.GraphQLError{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestRuntime_Middleware(t *testing.T) {
	sch := newTestSchema(t)
	var seen []string
	mw := func(next schema.FieldResolveFn) schema.FieldResolveFn {
		return func(ctx context.Context, source any, args map[string]any, info *schema.ResolveInfo) (any, error) {
			seen = append(seen, info.ParentType.Name+"."+info.FieldName)
			return next(ctx, source, args, info)
		}
	}

	execute(t, sch, New(sch, mw), `{ user(index: 2) { name } }`)
	require.Equal(t, []string{"Query.user", "User.name"}, seen)
}

func TestRuntime_BatchResolveAsync_PreservesOrder(t *testing.T) {
	sch := newTestSchema(t)
	rt := New(sch)

	got := rt.BatchResolveAsync(context.Background(), []executor.AsyncResolveTask{
		{ObjectType: "Query", Field: "slow"},
		{ObjectType: "User", Field: "name", Source: map[string]any{"name": "b"}},
		{ObjectType: "Query", Field: "slow"},
		{ObjectType: "User", Field: "missing"},
	})
	require.Len(t, got, 4)
	require.Equal(t, "later", got[0].Value)
	require.Equal(t, "b", got[1].Value)
	require.Equal(t, "later", got[2].Value)
	require.EqualError(t, got[3].Error, `type "User" has no field "missing"`)
}

func TestRuntime_SerializeLeafValue(t *testing.T) {
	rt := New(newTestSchema(t))

	v, err := rt.SerializeLeafValue(context.Background(), "Int", int64(4))
	require.NoError(t, err)
	require.Equal(t, 4, v)

	_, err = rt.SerializeLeafValue(context.Background(), "Nope", 1)
	require.EqualError(t, err, `unknown type "Nope"`)
}
