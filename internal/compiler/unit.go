package compiler

import "fmt"

// Handle addresses a binding in an Environment. Handles are assigned by the
// compilation Context in generation order and are stable for the lifetime
// of the compiled artifact.
type Handle int

// Binding is a value captured during generation: a getter, a decorated
// resolver, a static ResolveInfo, a field definition or a leaf type.
type Binding struct {
	Handle Handle
	Symbol string
	Value  any
}

// Unit is the output of generating one node of the selection tree: a
// listing fragment, the bindings it captured, and the getter that completes
// values at that node.
type Unit struct {
	Text     string
	Bindings []Binding

	get getter
}

// Merge appends parent after child. Units generated for distinct paths never
// share symbols; a collision means the generator is broken and panics.
func Merge(child, parent Unit) Unit {
	seen := make(map[string]struct{}, len(child.Bindings))
	for _, b := range child.Bindings {
		seen[b.Symbol] = struct{}{}
	}
	for _, b := range parent.Bindings {
		if _, dup := seen[b.Symbol]; dup {
			panic(fmt.Sprintf("compiler: duplicate symbol %q", b.Symbol))
		}
	}
	bindings := make([]Binding, 0, len(child.Bindings)+len(parent.Bindings))
	bindings = append(bindings, child.Bindings...)
	bindings = append(bindings, parent.Bindings...)
	return Unit{
		Text:     child.Text + parent.Text,
		Bindings: bindings,
		get:      parent.get,
	}
}

// MergeAll folds units left to right. The getter of the last unit is kept.
func MergeAll(units ...Unit) Unit {
	var out Unit
	for i, u := range units {
		if i == 0 {
			out = u
			continue
		}
		out = Merge(out, u)
	}
	return out
}

// Symbols lists the unit's binding symbols in order.
func (u Unit) Symbols() []string {
	out := make([]string, len(u.Bindings))
	for i, b := range u.Bindings {
		out[i] = b.Symbol
	}
	return out
}

// Environment is the arena of a loaded unit's bindings.
type Environment struct {
	values  []any
	symbols map[string]Handle
	order   []string
}

func newEnvironment(bindings []Binding) (*Environment, error) {
	size := 0
	for _, b := range bindings {
		if b.Handle < 0 {
			return nil, fmt.Errorf("binding %q has invalid handle %d", b.Symbol, b.Handle)
		}
		if int(b.Handle) >= size {
			size = int(b.Handle) + 1
		}
	}
	env := &Environment{
		values:  make([]any, size),
		symbols: make(map[string]Handle, len(bindings)),
		order:   make([]string, 0, len(bindings)),
	}
	taken := make([]bool, size)
	for _, b := range bindings {
		if _, dup := env.symbols[b.Symbol]; dup {
			return nil, fmt.Errorf("duplicate symbol %q", b.Symbol)
		}
		if taken[b.Handle] {
			return nil, fmt.Errorf("handle %d bound twice (%q)", b.Handle, b.Symbol)
		}
		taken[b.Handle] = true
		env.values[b.Handle] = b.Value
		env.symbols[b.Symbol] = b.Handle
		env.order = append(env.order, b.Symbol)
	}
	return env, nil
}

// Value returns the binding at h, or nil when h is out of range.
func (e *Environment) Value(h Handle) any {
	if h < 0 || int(h) >= len(e.values) {
		return nil
	}
	return e.values[h]
}

// Lookup returns the handle bound to symbol.
func (e *Environment) Lookup(symbol string) (Handle, bool) {
	h, ok := e.symbols[symbol]
	return h, ok
}

// Symbols lists bound symbols in generation order.
func (e *Environment) Symbols() []string {
	return append([]string(nil), e.order...)
}

func (e *Environment) Len() int { return len(e.order) }
