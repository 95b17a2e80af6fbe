package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	reqid "github.com/hanpama/gqljit/internal/reqid"
)

func newExecCmd(a *app) *cobra.Command {
	var (
		operation string
		variables string
		pretty    bool
	)
	cmd := &cobra.Command{
		Use:   "exec [file|-]",
		Short: "Run a query against the root value",
		Long: `Run one query and print the JSON result. Fields resolve from the JSON
document given by --data: map keys, struct fields and methods are read by
the default resolver.`,
		Example: `  gqljit exec --schema schema.graphql --data data.json --query '{ users { name } }'`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := queryArg(cmd, args)
			if err != nil {
				return err
			}
			vars := map[string]any{}
			if variables != "" {
				if err := json.Unmarshal([]byte(variables), &vars); err != nil {
					return fmt.Errorf("invalid --variables JSON: %w", err)
				}
			}
			b, err := a.newBackend()
			if err != nil {
				return err
			}
			ctx, _ := reqid.NewContext(context.Background())
			res := b.Execute(ctx, query, operation, vars)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if pretty {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}
	cmd.Flags().String("query", "", "query text")
	cmd.Flags().StringVar(&operation, "operation", "", "operation to run")
	cmd.Flags().StringVar(&variables, "variables", "", "variables as a JSON object")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON result")
	return cmd
}
