// Package compiler turns one operation of a validated query document into
// an executor specialized for that document.
//
// Generation walks the operation's selection tree and produces a Unit for
// every node: leaf, non-null and list wrappers, and object drivers. Each
// unit carries a readable listing of the code it stands for and the values
// it captured (resolvers, field definitions, resolve contexts, getters),
// bound under symbols derived from the node's response path:
//
//	get_root.user.id         getter completing user.id
//	resolve_root.user        decorated resolver of the user field
//	resolve_info_root.user   static resolve context of the user field
//
// Units are merged child first and loaded into an Environment, an arena of
// bindings addressed by Handle. The entry getter is get_root.
//
// Interface and union selections, and merged response keys whose nodes are
// conditionally included, are reported through IsUnsupported so callers can
// fall back to the generic executor. Compiled results are byte-for-byte what
// the generic executor produces for synchronous resolvers.
package compiler
