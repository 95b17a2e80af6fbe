package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	schema "github.com/hanpama/gqljit/internal/schema"
)

func newSchemaCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the normalized schema SDL",
		Long:  `Load and validate the configured schema, then print it in normalized SDL form.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sch, err := a.loadSchema()
			if err != nil {
				return err
			}
			sdl := schema.Render(sch)
			if out == "" {
				fmt.Fprint(cmd.OutOrStdout(), sdl)
				return nil
			}
			return os.WriteFile(out, []byte(sdl), 0o644)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the SDL to a file instead of stdout")
	return cmd
}
