package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

func newConfigCmd(a *app) *cobra.Command {
	var showSource bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long:  `Show the effective configuration after merging defaults, config file, environment variables and flags.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if showSource {
				if a.configPath != "" {
					fmt.Fprintf(out, "Config file: %s\n\n", a.configPath)
				} else {
					fmt.Fprintf(out, "Config file: (none, using defaults)\n\n")
				}
			}
			b, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			_, err = out.Write(b)
			return err
		},
	}
	show.Flags().BoolVar(&showSource, "source", false, "show config file source")

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(show)
	return cmd
}
