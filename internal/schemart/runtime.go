// Package schemart adapts a schema with attached resolvers to the generic
// executor's Runtime interface.
package schemart

import (
	"context"
	"fmt"
	"sync"

	"github.com/hanpama/gqljit/internal/executor"
	schema "github.com/hanpama/gqljit/internal/schema"
)

// Runtime resolves fields with the Resolve functions attached to the schema,
// falling back to schema.DefaultResolve. Middleware wraps every resolver call
// the same way compiled executors wrap theirs.
//
// The executor's Runtime contract carries no ResolveInfo, so resolvers called
// through Runtime see only FieldName, ParentType, ReturnType and Schema.
type Runtime struct {
	schema     *schema.Schema
	middleware []schema.Middleware
}

var _ executor.Runtime = (*Runtime)(nil)

func New(sch *schema.Schema, middleware ...schema.Middleware) *Runtime {
	return &Runtime{schema: sch, middleware: middleware}
}

func (r *Runtime) lookup(objectType, field string) (*schema.Type, *schema.Field, error) {
	t := r.schema.Types[objectType]
	if t == nil {
		return nil, nil, fmt.Errorf("unknown type %q", objectType)
	}
	f := t.Field(field)
	if f == nil {
		return nil, nil, fmt.Errorf("type %q has no field %q", objectType, field)
	}
	return t, f, nil
}

func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	t, f, err := r.lookup(objectType, field)
	if err != nil {
		return nil, err
	}
	info := &schema.ResolveInfo{
		FieldName:  field,
		ReturnType: f.Type,
		ParentType: t,
		Schema:     r.schema,
	}
	return f.Resolver(r.middleware...)(ctx, source, args, info)
}

// BatchResolveAsync groups tasks by (objectType, field) and runs groups in
// parallel. Results keep the order of tasks.
func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	type groupKey struct {
		objectType string
		field      string
	}
	var groups [][]int
	idxByKey := map[groupKey]int{}
	for i, t := range tasks {
		k := groupKey{objectType: t.ObjectType, field: t.Field}
		if gi, ok := idxByKey[k]; ok {
			groups[gi] = append(groups[gi], i)
		} else {
			idxByKey[k] = len(groups)
			groups = append(groups, []int{i})
		}
	}
	run := func(idxs []int) {
		for _, i := range idxs {
			v, err := r.ResolveSync(ctx, tasks[i].ObjectType, tasks[i].Field, tasks[i].Source, tasks[i].Args)
			results[i] = executor.AsyncResolveResult{Value: v, Error: err}
		}
	}
	if len(groups) == 1 {
		run(groups[0])
		return results
	}
	var wg sync.WaitGroup
	wg.Add(len(groups))
	for _, g := range groups {
		g := g
		go func() {
			defer wg.Done()
			run(g)
		}()
	}
	wg.Wait()
	return results
}

func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	t := r.schema.Types[abstractType]
	if t == nil {
		return "", fmt.Errorf("unknown type %q", abstractType)
	}
	return schema.ResolveAbstractType(ctx, t, value)
}

func (r *Runtime) ResolveUnionConcreteValue(ctx context.Context, unionTypeName string, value any) (any, error) {
	return value, nil
}

func (r *Runtime) ResolveInterfaceConcreteValue(ctx context.Context, interfaceTypeName string, value any) (any, error) {
	return value, nil
}

func (r *Runtime) SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error) {
	t := r.schema.Types[scalarOrEnumTypeName]
	if t == nil {
		return nil, fmt.Errorf("unknown type %q", scalarOrEnumTypeName)
	}
	return t.SerializeValue(value)
}
