// Package config loads gqljit settings from defaults, a config file,
// GQLJIT_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "GQLJIT"

// DefaultFiles are looked up in the working directory when no explicit
// config path is given.
var DefaultFiles = []string{"gqljit.yaml", "gqljit.yml"}

// Config is the effective configuration.
type Config struct {
	// Schema is the path of the SDL file served.
	Schema string `mapstructure:"schema" json:"schema"`
	// Data is the path of a JSON document used as the root value.
	Data string `mapstructure:"data" json:"data"`

	Server   ServerConfig   `mapstructure:"server" json:"server"`
	GRPC     GRPCConfig     `mapstructure:"grpc" json:"grpc"`
	Compiler CompilerConfig `mapstructure:"compiler" json:"compiler"`
	Log      LogConfig      `mapstructure:"log" json:"log"`
	OTel     OTelConfig     `mapstructure:"otel" json:"otel"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr" json:"addr"`
	Pretty       bool          `mapstructure:"pretty" json:"pretty"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" json:"max_body_bytes"`
	GraphiQL     bool          `mapstructure:"graphiql" json:"graphiql"`
}

// GRPCConfig configures the gRPC endpoint. An empty Addr disables it.
type GRPCConfig struct {
	Addr string `mapstructure:"addr" json:"addr"`
}

type CompilerConfig struct {
	// CacheSize bounds the document cache; 0 disables caching.
	CacheSize     int  `mapstructure:"cache_size" json:"cache_size"`
	Introspection bool `mapstructure:"introspection" json:"introspection"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// OTelConfig configures trace export. An empty Endpoint disables tracing.
type OTelConfig struct {
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	Service  string `mapstructure:"service" json:"service"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema", "schema.graphql")
	v.SetDefault("data", "")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.pretty", false)
	v.SetDefault("server.timeout", 10*time.Second)
	v.SetDefault("server.max_body_bytes", int64(1<<20))
	v.SetDefault("server.graphiql", true)

	v.SetDefault("grpc.addr", "")

	v.SetDefault("compiler.cache_size", 1024)
	v.SetDefault("compiler.introspection", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.service", "gqljit")
}

// Load builds the configuration. explicitPath must exist when set; otherwise
// DefaultFiles are tried in the working directory. Flags that were changed
// on the command line override every other source. A flag name maps to a key
// by turning its first dash into a dot and the rest into underscores, so
// --server-max-body-bytes sets server.max_body_bytes.
//
// It returns the config and the path of the file read, empty if none.
func Load(explicitPath string, flags *pflag.FlagSet) (*Config, string, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := findConfigFile(explicitPath)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, path, fmt.Errorf("reading config file: %w", err)
		}
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if bindErr != nil || f.Name == "config" {
				return
			}
			bindErr = v.BindPFlag(flagKey(f.Name), f)
		})
		if bindErr != nil {
			return nil, path, fmt.Errorf("binding flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, path, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, path, nil
}

func flagKey(name string) string {
	return strings.ReplaceAll(strings.Replace(name, "-", ".", 1), "-", "_")
}

func findConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}
