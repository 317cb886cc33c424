// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads process settings for the coresystem binary.
//
// Values are layered, later sources winning: built-in defaults, the YAML
// file named by --config, CORESYSTEM_* environment variables, then flags
// the user set explicitly.
package config

import (
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/coresystem/internal/access"
	"github.com/holomush/coresystem/internal/logging"
	"github.com/holomush/coresystem/internal/store"
)

// CodeInvalidConfig marks configuration that failed to load or validate.
const CodeInvalidConfig = "INVALID_CONFIG"

// Protection backends.
const (
	ProtectionCuboid    = "cuboid"
	ProtectionAuthority = "authority"
)

// Config is the full process configuration.
type Config struct {
	Log           LogConfig           `koanf:"log"`
	Store         StoreConfig         `koanf:"store"`
	Definitions   DefinitionsConfig   `koanf:"definitions"`
	GRPC          GRPCConfig          `koanf:"grpc"`
	Host          HostConfig          `koanf:"host"`
	Protection    ProtectionConfig    `koanf:"protection"`
	Observability ObservabilityConfig `koanf:"observability"`
	Control       ControlConfig       `koanf:"control"`
	Access        AccessConfig        `koanf:"access"`
	Commands      CommandsConfig      `koanf:"commands"`
}

// LogConfig selects log output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// StoreConfig selects the record persistence backend.
type StoreConfig struct {
	Backend     string `koanf:"backend"`
	Dir         string `koanf:"dir"`
	SQLitePath  string `koanf:"sqlite_path"`
	DatabaseURL string `koanf:"database_url"`
	Workers     int    `koanf:"workers"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// DefinitionsConfig points at definition documents and validator scripts.
// An empty Dir uses the built-in documents.
type DefinitionsConfig struct {
	Dir      string `koanf:"dir"`
	HooksDir string `koanf:"hooks_dir"`
}

// GRPCConfig configures the host control API listener.
type GRPCConfig struct {
	Address  string `koanf:"address"`
	TLS      bool   `koanf:"tls"`
	CertsDir string `koanf:"certs_dir"`
}

// HostConfig points at the game host's inventory/economy/world service.
// An empty Address uses an in-memory host.
type HostConfig struct {
	Address     string        `koanf:"address"`
	CallTimeout time.Duration `koanf:"call_timeout"`
}

// ProtectionConfig selects the protection backend.
type ProtectionConfig struct {
	Backend string `koanf:"backend"`
	Address string `koanf:"address"`
}

// ObservabilityConfig configures the metrics and health listener.
// An empty Address disables it.
type ObservabilityConfig struct {
	Address string `koanf:"address"`
}

// ControlConfig configures the operator socket. An empty Socket uses the
// runtime directory.
type ControlConfig struct {
	Socket string `koanf:"socket"`
}

// AccessConfig assigns roles. Roles maps a subject such as "actor:<ulid>"
// or "host:<name>" to a role name.
type AccessConfig struct {
	DefaultRole string            `koanf:"default_role"`
	Roles       map[string]string `koanf:"roles"`
}

// CommandsConfig tunes the per-actor command rate limit.
type CommandsConfig struct {
	Burst int     `koanf:"burst"`
	Rate  float64 `koanf:"rate"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"log.level":             "info",
		"log.format":            logging.FormatJSON,
		"store.backend":         store.BackendYAML,
		"store.dir":             "data/cores",
		"store.sqlite_path":     "data/cores.db",
		"store.database_url":    "",
		"store.workers":         store.DefaultWriterConfig().Workers,
		"store.auto_migrate":    false,
		"definitions.dir":       "",
		"definitions.hooks_dir": "",
		"grpc.address":          "127.0.0.1:7400",
		"grpc.tls":              false,
		"grpc.certs_dir":        "",
		"host.address":          "",
		"host.call_timeout":     "2s",
		"protection.backend":    ProtectionCuboid,
		"protection.address":    "",
		"observability.address": "127.0.0.1:9100",
		"control.socket":        "",
		"access.default_role":   access.RolePlayer,
		"commands.burst":        10,
		"commands.rate":         2.0,
	}
}

// Env holds the settings read from the environment. Unset variables leave
// the lower layers untouched.
type Env struct {
	LogLevel      string `env:"CORESYSTEM_LOG_LEVEL"`
	LogFormat     string `env:"CORESYSTEM_LOG_FORMAT"`
	StoreBackend  string `env:"CORESYSTEM_STORE_BACKEND"`
	DatabaseURL   string `env:"CORESYSTEM_DATABASE_URL"`
	GRPCAddress   string `env:"CORESYSTEM_GRPC_ADDRESS"`
	HostAddress   string `env:"CORESYSTEM_HOST_ADDRESS"`
	MetricsAddr   string `env:"CORESYSTEM_OBSERVABILITY_ADDRESS"`
	DefinitionDir string `env:"CORESYSTEM_DEFINITIONS_DIR"`
}

func (e Env) values() map[string]string {
	return map[string]string{
		"log.level":             e.LogLevel,
		"log.format":            e.LogFormat,
		"store.backend":         e.StoreBackend,
		"store.database_url":    e.DatabaseURL,
		"grpc.address":          e.GRPCAddress,
		"host.address":          e.HostAddress,
		"observability.address": e.MetricsAddr,
		"definitions.dir":       e.DefinitionDir,
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"log-level":          "log.level",
	"log-format":         "log.format",
	"store-backend":      "store.backend",
	"store-dir":          "store.dir",
	"sqlite-path":        "store.sqlite_path",
	"auto-migrate":       "store.auto_migrate",
	"definitions-dir":    "definitions.dir",
	"hooks-dir":          "definitions.hooks_dir",
	"grpc-addr":          "grpc.address",
	"tls":                "grpc.tls",
	"certs-dir":          "grpc.certs_dir",
	"host-addr":          "host.address",
	"protection-backend": "protection.backend",
	"protection-addr":    "protection.address",
	"metrics-addr":       "observability.address",
	"control-socket":     "control.socket",
}

// RegisterFlags adds the override flags to fs. Only flags the user sets
// take effect.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("log-format", "", "log format (json or text)")
	fs.String("store-backend", "", "record backend ("+strings.Join(store.Backends(), ", ")+")")
	fs.String("store-dir", "", "directory for the yaml backend")
	fs.String("sqlite-path", "", "database file for the sqlite backend")
	fs.Bool("auto-migrate", false, "apply pending migrations before serving (postgres)")
	fs.String("definitions-dir", "", "directory of definition documents (default: built-in)")
	fs.String("hooks-dir", "", "directory of Lua validator scripts")
	fs.String("grpc-addr", "", "host control API listen address")
	fs.Bool("tls", false, "require mutual TLS on the control API")
	fs.String("certs-dir", "", "certificate directory (default: XDG config dir)")
	fs.String("host-addr", "", "game host gRPC address (empty: in-memory host)")
	fs.String("protection-backend", "", "protection backend (cuboid or authority)")
	fs.String("protection-addr", "", "external region authority address")
	fs.String("metrics-addr", "", "metrics/health HTTP address (empty: disabled)")
	fs.String("control-socket", "", "operator socket path")
}

// Load layers defaults, the file at path (if any), the environment and the
// changed flags in fs (if any).
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	for key, v := range Defaults() {
		if err := k.Set(key, v); err != nil {
			return nil, oops.Code(CodeInvalidConfig).With("key", key).Wrap(err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code(CodeInvalidConfig).With("path", path).Wrapf(err, "read config file")
		}
	}

	var e Env
	if err := env.Parse(&e); err != nil {
		return nil, oops.Code(CodeInvalidConfig).Wrapf(err, "parse environment")
	}
	for key, v := range e.values() {
		if v == "" {
			continue
		}
		if err := k.Set(key, v); err != nil {
			return nil, oops.Code(CodeInvalidConfig).With("key", key).Wrap(err)
		}
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code(CodeInvalidConfig).Wrapf(err, "read flags")
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code(CodeInvalidConfig).Wrapf(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code(CodeInvalidConfig).With("key", "log.level").Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Log.Format != logging.FormatJSON && c.Log.Format != logging.FormatText {
		return oops.Code(CodeInvalidConfig).With("key", "log.format").
			Errorf("log format must be %q or %q, got %q", logging.FormatJSON, logging.FormatText, c.Log.Format)
	}
	backend := strings.ToLower(c.Store.Backend)
	if !slices.Contains(store.Backends(), backend) {
		return oops.Code(CodeInvalidConfig).With("key", "store.backend").
			Errorf("unknown store backend %q", c.Store.Backend)
	}
	if backend == store.BackendPostgres && c.Store.DatabaseURL == "" {
		return oops.Code(CodeInvalidConfig).With("key", "store.database_url").
			Errorf("postgres backend requires CORESYSTEM_DATABASE_URL")
	}
	if c.GRPC.Address == "" {
		return oops.Code(CodeInvalidConfig).With("key", "grpc.address").Errorf("grpc address is required")
	}
	switch c.Protection.Backend {
	case ProtectionCuboid:
	case ProtectionAuthority:
		if c.Protection.Address == "" {
			return oops.Code(CodeInvalidConfig).With("key", "protection.address").
				Errorf("authority protection requires an address")
		}
	default:
		return oops.Code(CodeInvalidConfig).With("key", "protection.backend").
			Errorf("unknown protection backend %q", c.Protection.Backend)
	}
	if c.Commands.Burst < 0 || c.Commands.Rate < 0 {
		return oops.Code(CodeInvalidConfig).With("key", "commands").Errorf("rate limit values must not be negative")
	}
	return nil
}

// StoreAdapter returns the adapter settings.
func (c *Config) StoreAdapter() store.AdapterConfig {
	return store.AdapterConfig{
		Backend:     c.Store.Backend,
		Dir:         c.Store.Dir,
		SQLitePath:  c.Store.SQLitePath,
		DatabaseURL: c.Store.DatabaseURL,
	}
}

// Logging returns the logger options for service.
func (c *Config) Logging(service, version string) logging.Options {
	return logging.Options{
		Service: service,
		Version: version,
		Format:  c.Log.Format,
		Level:   c.Log.Level,
	}
}
