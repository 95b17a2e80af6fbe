package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	backend "github.com/hanpama/gqljit/internal/backend"
	config "github.com/hanpama/gqljit/internal/config"
	eventbus "github.com/hanpama/gqljit/internal/eventbus"
	logging "github.com/hanpama/gqljit/internal/logging"
	schema "github.com/hanpama/gqljit/internal/schema"
)

// app carries state shared by the subcommands of one invocation.
type app struct {
	cfgFile    string
	cfg        *config.Config
	configPath string
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "gqljit",
		Short: "GraphQL query compiler",
		Long: `gqljit - GraphQL query compiler

gqljit turns each GraphQL query into a specialized executor for the schema,
falling back to a generic executor for operations it does not specialize.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}
			return a.load(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./gqljit.yaml if present)")
	root.PersistentFlags().String("schema", "", "path of the SDL schema")
	root.PersistentFlags().String("data", "", "path of a JSON document used as the root value")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (console, json)")

	root.AddCommand(
		newServeCmd(a),
		newCompileCmd(a),
		newExecCmd(a),
		newSchemaCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, path, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	a.cfg, a.configPath = cfg, path

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.log = log
	eventbus.Use(eventbus.New())
	logging.Subscribe(log)
	return nil
}

func (a *app) loadSchema() (*schema.Schema, error) {
	sdl, err := os.ReadFile(a.cfg.Schema)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	sch, err := schema.BuildFromSDL(string(sdl))
	if err != nil {
		return nil, fmt.Errorf("build schema: %w", err)
	}
	return sch, nil
}

func (a *app) loadRoot() (any, error) {
	if a.cfg.Data == "" {
		return map[string]any{}, nil
	}
	b, err := os.ReadFile(a.cfg.Data)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	var root any
	if err := json.Unmarshal(b, &root); err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	return root, nil
}

// newBackend builds a backend over the configured schema and root value.
// Fields without resolvers read their value from the root document.
func (a *app) newBackend(opts ...backend.Option) (*backend.Backend, error) {
	sch, err := a.loadSchema()
	if err != nil {
		return nil, err
	}
	root, err := a.loadRoot()
	if err != nil {
		return nil, err
	}
	base := []backend.Option{
		backend.WithCacheSize(a.cfg.Compiler.CacheSize),
		backend.WithIntrospection(a.cfg.Compiler.Introspection),
		backend.WithRootValue(root),
	}
	return backend.New(sch, append(base, opts...)...)
}

// queryArg returns the query text from --query, or from the file named by
// the first argument, or from stdin when the argument is "-".
func queryArg(cmd *cobra.Command, args []string) (string, error) {
	if q, _ := cmd.Flags().GetString("query"); q != "" {
		return q, nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("a query is required: pass --query or a file")
	}
	if args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		return string(b), err
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read query: %w", err)
	}
	return string(b), nil
}
