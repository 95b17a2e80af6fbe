package introspection

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	compiler "github.com/hanpama/gqljit/internal/compiler"
	executor "github.com/hanpama/gqljit/internal/executor"
	language "github.com/hanpama/gqljit/internal/language"
	schema "github.com/hanpama/gqljit/internal/schema"
	schemart "github.com/hanpama/gqljit/internal/schemart"
)

const sdl = `
"""Example"""
type Query {
  hello: String
  user(id: ID!): User
}

type User {
  id: ID!
  tags(first: Int = 3): [String!]
  old: String @deprecated(reason: "gone")
}

enum Role {
  ADMIN
}
`

func buildSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	return sch
}

func TestInstall(t *testing.T) {
	sch := buildSchema(t)
	ext := Install(sch)

	require.False(t, Enabled(sch))
	require.True(t, Enabled(ext))
	require.Nil(t, sch.GetQueryType().Field("__schema"))
	require.NotSame(t, sch.GetQueryType(), ext.GetQueryType())
	require.Same(t, sch.Types["User"], ext.Types["User"])
	require.Contains(t, ext.Types, "__Type")
	require.NotContains(t, sch.Types, "__Type")
}

func execute(t *testing.T, sch *schema.Schema, query string) (compiled, generic *executor.ExecutionResult) {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)

	a, err := compiler.Compile(sch, query, doc, "", nil, nil)
	require.NoError(t, err)
	compiled = a.Execute(context.Background(), nil, nil, "")
	generic = executor.NewExecutor(schemart.New(sch), sch).ExecuteRequest(context.Background(), doc, "", nil, nil)
	return compiled, generic
}

// Pattern: Result comparison
func TestIntrospectionQuery(t *testing.T) {
	sch := Install(buildSchema(t))

	compiled, generic := execute(t, sch, `{
  __schema { description queryType { name } mutationType { name } }
  __type(name: "User") {
    kind
    name
    fields(includeDeprecated: true) {
      name
      isDeprecated
      deprecationReason
      args { name defaultValue type { name } }
      type { kind name ofType { kind name ofType { kind name } } }
    }
  }
}`)
	if diff := cmp.Diff(generic, compiled); diff != "" {
		t.Fatalf("compiled result mismatch (-generic +compiled):\n%s", diff)
	}

	require.Empty(t, compiled.Errors)
	want := map[string]any{
		"__schema": map[string]any{
			"description":  nil,
			"queryType":    map[string]any{"name": "Query"},
			"mutationType": nil,
		},
		"__type": map[string]any{
			"kind": "OBJECT",
			"name": "User",
			"fields": []any{
				map[string]any{
					"name": "id", "isDeprecated": false, "deprecationReason": nil,
					"args": []any{},
					"type": map[string]any{
						"kind": "NON_NULL", "name": nil,
						"ofType": map[string]any{"kind": "SCALAR", "name": "ID", "ofType": nil},
					},
				},
				map[string]any{
					"name": "old", "isDeprecated": true, "deprecationReason": "gone",
					"args": []any{},
					"type": map[string]any{"kind": "SCALAR", "name": "String", "ofType": nil},
				},
				map[string]any{
					"name": "tags", "isDeprecated": false, "deprecationReason": nil,
					"args": []any{
						map[string]any{"name": "first", "defaultValue": "3", "type": map[string]any{"name": "Int"}},
					},
					"type": map[string]any{
						"kind": "LIST", "name": nil,
						"ofType": map[string]any{
							"kind": "NON_NULL", "name": nil,
							"ofType": map[string]any{"kind": "SCALAR", "name": "String"},
						},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(want, executor.Plain(compiled.Data)); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestIntrospectionTypes(t *testing.T) {
	sch := Install(buildSchema(t))
	compiled, generic := execute(t, sch, `{ __schema { types { name kind } } missing: __type(name: "Nope") { name } }`)
	if diff := cmp.Diff(generic, compiled); diff != "" {
		t.Fatalf("compiled result mismatch (-generic +compiled):\n%s", diff)
	}
	require.Empty(t, compiled.Errors)

	data := executor.Plain(compiled.Data).(map[string]any)
	require.Nil(t, data["missing"])

	kinds := map[string]string{}
	for _, v := range data["__schema"].(map[string]any)["types"].([]any) {
		m := v.(map[string]any)
		kinds[m["name"].(string)] = m["kind"].(string)
	}
	require.Equal(t, "OBJECT", kinds["User"])
	require.Equal(t, "ENUM", kinds["Role"])
	require.Equal(t, "SCALAR", kinds["Boolean"])
	require.Equal(t, "OBJECT", kinds["__Type"])
	require.Equal(t, "ENUM", kinds["__TypeKind"])
}

func TestTypenameField(t *testing.T) {
	sch := buildSchema(t)
	compiled, generic := execute(t, sch, `{ __typename }`)
	if diff := cmp.Diff(generic, compiled); diff != "" {
		t.Fatalf("compiled result mismatch (-generic +compiled):\n%s", diff)
	}
	require.Equal(t, executor.ObjectOf("__typename", "Query"), compiled.Data)
}
