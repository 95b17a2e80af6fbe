package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	executor "github.com/hanpama/gqljit/internal/executor"
	language "github.com/hanpama/gqljit/internal/language"
	schema "github.com/hanpama/gqljit/internal/schema"
	schemart "github.com/hanpama/gqljit/internal/schemart"
)

const testSDL = `
type Query {
  user(index: Int): User
  users(first: Int = 2): [User!]!
  names: [String]
  strict: User!
  broken: String!
  tags: [String!]
  echo(text: String!): String
  role: Role
  node: Node
  sum(xs: [Int]): Int
  find(where: UserFilter): User
}

input UserFilter {
  index: Int = 0
}

type User implements Node {
  id: Int!
  name: String
  friends: [User]
  best: User
  failing: String
  role: Role
}

interface Node {
  id: Int!
}

enum Role {
  ADMIN
  MEMBER
}
`

type user struct {
	ID      int `json:"id"`
	Name    string
	Friends []*user
	Best    *user
	Role    string
}

func testUsers() []*user {
	ada := &user{ID: 0, Name: "Ada", Role: "ADMIN"}
	bob := &user{ID: 1, Name: "Bob", Role: "MEMBER"}
	cy := &user{ID: 2, Name: "Cy", Role: "MEMBER"}
	ada.Friends = []*user{bob, cy}
	bob.Friends = []*user{ada}
	bob.Best = cy
	return []*user{ada, bob, cy}
}

func newTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(testSDL)
	require.NoError(t, err)
	users := testUsers()

	set := func(typeName, field string, fn schema.FieldResolveFn) {
		require.NoError(t, sch.SetFieldResolver(typeName, field, fn))
	}
	set("Query", "user", func(_ context.Context, _ any, args map[string]any, _ *schema.ResolveInfo) (any, error) {
		i, ok := args["index"].(int)
		if !ok || i < 0 || i >= len(users) {
			return nil, nil
		}
		return users[i], nil
	})
	set("Query", "users", func(_ context.Context, _ any, args map[string]any, _ *schema.ResolveInfo) (any, error) {
		n := args["first"].(int)
		if n > len(users) {
			n = len(users)
		}
		return users[:n], nil
	})
	set("Query", "names", func(context.Context, any, map[string]any, *schema.ResolveInfo) (any, error) {
		return []string{"x", "y", "z"}, nil
	})
	set("Query", "strict", func(context.Context, any, map[string]any, *schema.ResolveInfo) (any, error) {
		return nil, nil
	})
	set("Query", "broken", func(context.Context, any, map[string]any, *schema.ResolveInfo) (any, error) {
		return nil, errors.New("broken resolver")
	})
	set("Query", "tags", func(context.Context, any, map[string]any, *schema.ResolveInfo) (any, error) {
		return []any{"a", nil, "c"}, nil
	})
	set("Query", "echo", func(_ context.Context, _ any, args map[string]any, _ *schema.ResolveInfo) (any, error) {
		return args["text"], nil
	})
	set("Query", "role", func(context.Context, any, map[string]any, *schema.ResolveInfo) (any, error) {
		return "OWNER", nil
	})
	set("Query", "sum", func(_ context.Context, _ any, args map[string]any, _ *schema.ResolveInfo) (any, error) {
		total := 0
		for _, x := range args["xs"].([]any) {
			if x != nil {
				total += x.(int)
			}
		}
		return total, nil
	})
	set("Query", "find", func(_ context.Context, _ any, args map[string]any, _ *schema.ResolveInfo) (any, error) {
		where, _ := args["where"].(map[string]any)
		return users[where["index"].(int)], nil
	})
	set("User", "failing", func(_ context.Context, source any, _ map[string]any, _ *schema.ResolveInfo) (any, error) {
		return nil, errors.New("no access to " + source.(*user).Name)
	})
	return sch
}

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

func mustCompile(t *testing.T, sch *schema.Schema, query, operationName string, middleware ...schema.Middleware) *Artifact {
	t.Helper()
	a, err := Compile(sch, query, mustParseQuery(t, query), operationName, middleware, nil)
	require.NoError(t, err)
	return a
}

// executeGeneric runs query through the tree-walking executor.
func executeGeneric(t *testing.T, sch *schema.Schema, query, operationName string, variables map[string]any) *executor.ExecutionResult {
	t.Helper()
	exec := executor.NewExecutor(schemart.New(sch), sch)
	return exec.ExecuteRequest(context.Background(), mustParseQuery(t, query), operationName, variables, nil)
}
