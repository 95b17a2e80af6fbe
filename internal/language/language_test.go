package language

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestScanDefinitions(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []DefinitionHeader
	}{
		{
			name:   "shorthand query",
			source: `{ user(index: 1) { id } }`,
			want:   []DefinitionHeader{{Keyword: "{"}},
		},
		{
			name: "operations and fragments",
			source: `query A($x: Int) @cached { a(x: $x) { ...F } }
			fragment F on User { id }
			mutation { b }`,
			want: []DefinitionHeader{
				{Keyword: "query", Name: "A"},
				{Keyword: "fragment", Name: "F"},
				{Keyword: "mutation"},
			},
		},
		{
			name: "type system definitions",
			source: `"""described"""
			type Query implements Node { a: String }
			scalar Date
			union U = A | B
			directive @tag on FIELD
			extend type Query { b: Int }
			{ a }`,
			want: []DefinitionHeader{
				{Keyword: "type", Name: "Query"},
				{Keyword: "scalar", Name: "Date"},
				{Keyword: "union", Name: "U"},
				{Keyword: "directive", Name: "tag"},
				{Keyword: "extend type", Name: "Query"},
				{Keyword: "{"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScanDefinitions(tt.source)
			require.NoError(t, err)
			for i := range got {
				got[i].Position = Position{}
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("definitions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDefinitionHeaderIsExecutable(t *testing.T) {
	require.True(t, DefinitionHeader{Keyword: "{"}.IsExecutable())
	require.True(t, DefinitionHeader{Keyword: "fragment"}.IsExecutable())
	require.False(t, DefinitionHeader{Keyword: "type"}.IsExecutable())
	require.False(t, DefinitionHeader{Keyword: "extend type"}.IsExecutable())
}

func TestValidate(t *testing.T) {
	s, err := LoadSchema("schema.graphql", `type Query { a: String }`)
	require.NoError(t, err)

	doc, err := ParseQuery(`{ a }`)
	require.NoError(t, err)
	require.Empty(t, Validate(s, doc))

	doc, err = ParseQuery(`{ nope }`)
	require.NoError(t, err)
	errs := Validate(s, doc)
	require.Len(t, errs, 1)
	require.Equal(t, `Cannot query field "nope" on type "Query".`, errs[0].Message)
}
