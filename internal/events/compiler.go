package events

import "time"

// CompileStart is emitted before a query document is compiled.
type CompileStart struct {
	Query         string
	OperationName string
}

// CompileFinish is emitted after compilation. Compiled is false when the
// document was routed to the generic executor.
type CompileFinish struct {
	Query         string
	OperationName string
	Compiled      bool
	Bindings      int
	Err           error
	Duration      time.Duration
}

// Fallback is emitted when a document is routed to the generic executor.
type Fallback struct {
	Query         string
	OperationName string
	Reason        string
}

// DocumentCacheLookup is emitted for every document cache lookup.
type DocumentCacheLookup struct {
	Hit bool
}

// Deprecation is emitted when a caller uses a deprecated parameter name.
type Deprecation struct {
	Name        string
	Replacement string
}
