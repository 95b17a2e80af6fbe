package compiler

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNewContext_OperationSelection(t *testing.T) {
	sch := newTestSchema(t)
	doc := mustParseQuery(t, `
query A { names }
query B { tags }
`)

	tests := []struct {
		name          string
		operationName string
		want          string
		wantErr       string
	}{
		{name: "first", operationName: "A", want: "A"},
		{name: "second", operationName: "B", want: "B"},
		{name: "ambiguous", wantErr: "Must provide operation name if query contains multiple operations."},
		{name: "unknown", operationName: "C", wantErr: `Unknown operation named "C".`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewContext(sch, doc, tt.operationName, nil, nil)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, c.Operation.Name)
		})
	}
}

func TestNewContext_SingleOperation(t *testing.T) {
	sch := newTestSchema(t)

	c, err := NewContext(sch, mustParseQuery(t, `{ names }`), "", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "", c.Operation.Name)

	_, err = NewContext(sch, mustParseQuery(t, `fragment F on Query { names }`), "", nil, nil)
	require.ErrorIs(t, err, ErrMissingOperation)

	_, err = NewContext(sch, mustParseQuery(t, `query A { names }`), "B", nil, nil)
	var unknown *UnknownOperationError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "B", unknown.Name)
}

func TestNewContext_DuplicateFragment(t *testing.T) {
	sch := newTestSchema(t)
	doc := mustParseQuery(t, `
{ ...F }
fragment F on Query { names }
fragment F on Query { tags }
`)
	_, err := NewContext(sch, doc, "", nil, nil)
	require.EqualError(t, err, `There can be only one fragment named "F".`)
}

// collectedKeys flattens a collected selection into key -> guard listing.
func collectedKeys(fields []collectedField) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		out[f.ResponseKey] = describeGuard(f)
	}
	return out
}

// Pattern: Result comparison
func TestSubSelection_Directives(t *testing.T) {
	sch := newTestSchema(t)
	doc := mustParseQuery(t, `
query Q($show: Boolean!) {
  a: names @skip(if: true)
  b: names @include(if: true)
  c: names @include(if: $show)
  ... @skip(if: $show) { d: tags }
  ...F
  ...F @include(if: false)
}
fragment F on Query { e: role }
`)
	c, err := NewContext(sch, doc, "", nil, nil)
	require.NoError(t, err)

	fields := c.subSelection(sch.GetQueryType(), "op", c.Operation.SelectionSet)
	want := map[string]string{
		"b": "",
		"c": "$show",
		"d": "!$show",
		"e": "",
	}
	if diff := cmp.Diff(want, collectedKeys(fields)); diff != "" {
		t.Fatalf("collected fields mismatch (-want +got):\n%s", diff)
	}

	again := c.subSelection(sch.GetQueryType(), "op", nil)
	require.Equal(t, len(fields), len(again))
	require.Same(t, &fields[0], &again[0])
}

func TestSubSelection_ConditionalSpreadKeepsLaterSpread(t *testing.T) {
	sch := newTestSchema(t)
	doc := mustParseQuery(t, `
query Q($x: Boolean) {
  ...F @include(if: $x)
  ...F
}
fragment F on Query { names }
`)
	c, err := NewContext(sch, doc, "", nil, nil)
	require.NoError(t, err)

	fields := c.subSelection(sch.GetQueryType(), "op", c.Operation.SelectionSet)
	require.Len(t, fields, 1)
	require.Len(t, fields[0].Nodes, 1)
	require.True(t, fields[0].static())
	require.True(t, fields[0].included(map[string]any{"x": false}))
}

func TestVariableCheck(t *testing.T) {
	include := variableCheck{Variable: "x"}
	skip := variableCheck{Variable: "x", Skip: true}

	require.True(t, include.passes(map[string]any{"x": true}))
	require.False(t, include.passes(map[string]any{"x": false}))
	require.True(t, include.passes(map[string]any{}))
	require.True(t, include.passes(map[string]any{"x": "yes"}))
	require.False(t, skip.passes(map[string]any{"x": true}))
	require.True(t, skip.passes(map[string]any{"x": false}))

	both := condition{include, {Variable: "y", Skip: true}}
	require.True(t, both.holds(map[string]any{"x": true, "y": false}))
	require.False(t, both.holds(map[string]any{"x": true, "y": true}))
	require.True(t, condition(nil).holds(nil))
}

func TestArgumentsFor_CachedPerNode(t *testing.T) {
	sch := newTestSchema(t)
	doc := mustParseQuery(t, `query($i: Int) { a: user(index: 1) { id } b: user(index: $i) { id } }`)
	c, err := NewContext(sch, doc, "", nil, nil)
	require.NoError(t, err)

	def := sch.GetQueryType().Field("user")
	fields := c.subSelection(sch.GetQueryType(), "op", c.Operation.SelectionSet)
	a := c.argumentsFor(def, fields[0].Nodes[0].Field)
	b := c.argumentsFor(def, fields[1].Nodes[0].Field)
	require.Same(t, a, c.argumentsFor(def, fields[0].Nodes[0].Field))
	require.NotSame(t, a, b)

	ec := newExecContext(context.Background(), nil, map[string]any{"i": 2})
	require.Equal(t, map[string]any{"index": 1}, a.bind(ec, nil))
	require.Equal(t, map[string]any{"index": 2}, b.bind(ec, nil))
	require.Empty(t, ec.errors)
}

func TestArgumentsFor_VariablesAtDepth(t *testing.T) {
	sch := newTestSchema(t)
	doc := mustParseQuery(t, `query($n: Int, $a: Int, $i: Int) { users(first: $n) { id } sum(xs: [$a, 1]) find(where: {index: $i}) { id } }`)
	c, err := NewContext(sch, doc, "", nil, nil)
	require.NoError(t, err)

	query := sch.GetQueryType()
	fields := c.subSelection(query, "op", c.Operation.SelectionSet)
	users := c.argumentsFor(query.Field("users"), fields[0].Nodes[0].Field)
	sum := c.argumentsFor(query.Field("sum"), fields[1].Nodes[0].Field)
	find := c.argumentsFor(query.Field("find"), fields[2].Nodes[0].Field)

	ec := newExecContext(context.Background(), nil, map[string]any{"a": 41, "i": 2})
	require.Equal(t, map[string]any{"first": 2}, users.bind(ec, nil))
	require.Equal(t, map[string]any{"xs": []any{41, 1}}, sum.bind(ec, nil))
	require.Equal(t, map[string]any{"where": map[string]any{"index": 2}}, find.bind(ec, nil))

	ec = newExecContext(context.Background(), nil, map[string]any{"n": 1})
	require.Equal(t, map[string]any{"first": 1}, users.bind(ec, nil))
	require.Equal(t, map[string]any{"xs": []any{nil, 1}}, sum.bind(ec, nil))
	require.Equal(t, map[string]any{"where": map[string]any{"index": 0}}, find.bind(ec, nil))
	require.Empty(t, ec.errors)
}

func TestArgumentsFor_Errors(t *testing.T) {
	sch := newTestSchema(t)
	doc := mustParseQuery(t, `query($t: String) { a: echo b: echo(text: $t) c: user(index: "x") { id } }`)
	c, err := NewContext(sch, doc, "", nil, nil)
	require.NoError(t, err)

	query := sch.GetQueryType()
	fields := c.subSelection(query, "op", c.Operation.SelectionSet)
	ec := newExecContext(context.Background(), nil, map[string]any{})

	c.argumentsFor(query.Field("echo"), fields[0].Nodes[0].Field).bind(ec, []any{"a"})
	c.argumentsFor(query.Field("echo"), fields[1].Nodes[0].Field).bind(ec, []any{"b"})
	c.argumentsFor(query.Field("user"), fields[2].Nodes[0].Field).bind(ec, []any{"c"})

	got := make([]string, len(ec.errors))
	for i, e := range ec.errors {
		got[i] = e.Path.String() + ": " + e.Message
	}
	want := []string{
		"a: argument 'text' of required type was not provided",
		"b: argument 'text' of required type was not provided",
		"c: argument 'index' cannot be coerced: cannot coerce x (string) to int",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("argument errors mismatch (-want +got):\n%s", diff)
	}
}
