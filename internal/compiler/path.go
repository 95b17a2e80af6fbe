package compiler

import "strings"

const (
	rootSegment    = "root"
	itemSegment    = "item"
	nonNullSegment = "non_null"
)

// Path names a position in the generated unit tree. Segments are response
// keys plus the synthetic "item" and "non_null" steps. Path values are never
// mutated; Append returns a copy.
type Path []string

func (p Path) Append(segment string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = segment
	return out
}

func (p Path) String() string { return strings.Join(p, ".") }

// Symbol derives the binding name for role at p. Response keys cannot
// contain ".", so distinct paths never share a symbol.
func (p Path) Symbol(role string) string { return role + "_" + p.String() }

// Binding roles.
const (
	RoleGet         = "get"
	RoleResolve     = "resolve"
	RoleResolveInfo = "resolve_info"
	RoleFieldDef    = "field_def"
	RoleLeafType    = "leaf_type"
)

// EntrySymbol is the getter of the operation's root selection set.
var EntrySymbol = Path{rootSegment}.Symbol(RoleGet)

// Trailer symbols bound once per document.
const (
	SchemaSymbol    = "schema"
	OperationSymbol = "operation"
)
