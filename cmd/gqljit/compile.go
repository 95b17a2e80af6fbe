package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	backend "github.com/hanpama/gqljit/internal/backend"
)

func newCompileCmd(a *app) *cobra.Command {
	var operation string
	cmd := &cobra.Command{
		Use:   "compile [file|-]",
		Short: "Print the compiled listing of a query",
		Long: `Compile a query against the schema and print the listing of its bindings.
Queries the compiler does not specialize are reported as generic.`,
		Example: `  # Compile a query file
  gqljit compile --schema schema.graphql query.graphql

  # Compile an inline query
  gqljit compile --query '{ users { name } }'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := queryArg(cmd, args)
			if err != nil {
				return err
			}
			b, err := a.newBackend(backend.WithCacheSize(0))
			if err != nil {
				return err
			}
			doc, err := b.DocumentFromString(context.Background(), query, operation)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !doc.Compiled() {
				fmt.Fprintf(out, "# %s operation runs on the generic executor\n", doc.OperationType())
				return nil
			}
			fmt.Fprint(out, doc.Source())
			return nil
		},
	}
	cmd.Flags().String("query", "", "query text")
	cmd.Flags().StringVar(&operation, "operation", "", "operation to compile")
	return cmd
}
