// Command gqljit serves, compiles and runs GraphQL queries against an SDL
// schema.
//
// Usage:
//
//	gqljit [--config file] <command>
//
// Commands:
//   - serve: run the HTTP (and optionally gRPC) endpoint
//   - compile: print the compiled listing of a query
//   - exec: run one query against a JSON root value
//   - schema: print the normalized SDL
//   - config show: print the effective configuration
//   - version: print version information
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
