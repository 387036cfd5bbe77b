package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// loggerKey is used to store the logger in a command context.
type loggerKey struct{}

// EnvPrefix is the prefix of configuration environment variables.
const EnvPrefix = "LEAPCONNECT_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

var configNames = []string{"leapconnect.yaml", "leapconnect.yml"}

var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
)

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
}

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range configNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigFile finds the config file to use.
// Priority: explicit path > search upward from the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// loadDotenv loads a .env file next to the config file (or in the working
// directory). Variables already set in the environment win.
func loadDotenv(configFile string) error {
	path := ".env"
	if configFile != "" {
		path = filepath.Join(filepath.Dir(configFile), ".env")
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"state_path":  DefaultStateFile,
		"journal":     true,
		"verbose":     false,
		"log_format":  DefaultLogFormat,
		"output":      DefaultOutput,
		"timeout":     DefaultTimeout.String(),
		"concurrency": DefaultConcurrency,
		"mock_addr":   DefaultMockAddr,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load .env, then environment variables (LEAPCONNECT_ prefix)
	// Transform: LEAPCONNECT_BASE_URL -> base_url
	if err := loadDotenv(configFileUsed); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "state" {
				return "state_path", posflag.FlagVal(flags, f)
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Resolve the connection profile
	resolved, err := cfg.resolve()
	if err != nil {
		return nil, err
	}
	cfg.Resolved = resolved

	if cfg.StatePath != "" && !filepath.IsAbs(cfg.StatePath) && configFileUsed != "" {
		cfg.StatePath = filepath.Join(filepath.Dir(configFileUsed), cfg.StatePath)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	return &cfg, nil
}

// resolve selects the connection profile and applies top-level overrides.
func (c *Config) resolve() (ConnectionProfile, error) {
	var base ConnectionProfile
	name := c.Connection
	if name == "" && len(c.Connections) == 1 {
		for only := range c.Connections {
			name = only
		}
	}
	if name != "" {
		p, ok := c.Connections[name]
		if !ok {
			return ConnectionProfile{}, fmt.Errorf("unknown connection %q (available: %s)", name, strings.Join(c.ConnectionNames(), ", "))
		}
		base = p
	}

	p := base.merge(c.ConnectionProfile)
	p.BaseURL = expandEnvVars(p.BaseURL)
	p.Username = expandEnvVars(p.Username)
	p.Password = expandEnvVars(p.Password)
	p.CustomerID = expandEnvVars(p.CustomerID)
	p.HMACKeyID = expandEnvVars(p.HMACKeyID)
	p.HMACSecret = expandEnvVars(p.HMACSecret)
	if p.HMACAlgo == "" {
		p.HMACAlgo = DefaultHMACAlgo
	}
	return p, nil
}

// ConnectionNames returns the configured profile names (sorted).
func (c *Config) ConnectionNames() []string {
	names := make([]string, 0, len(c.Connections))
	for name := range c.Connections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})
}

// configKey is used to store the loaded config in a command context.
type configKey struct{}

// ConfigKey returns the context key used for storing the loaded config.
func ConfigKey() interface{} {
	return configKey{}
}

// GetConfig retrieves the config from the command context.
// Without one, a config holding only the defaults is returned.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		StatePath:   DefaultStateFile,
		Journal:     true,
		LogFormat:   DefaultLogFormat,
		Output:      DefaultOutput,
		Timeout:     DefaultTimeout,
		Concurrency: DefaultConcurrency,
		MockAddr:    DefaultMockAddr,
		Resolved:    ConnectionProfile{HMACAlgo: DefaultHMACAlgo},
	}
}

// NewLogger builds the CLI logger: text or JSON to w, debug level when
// verbose, warnings otherwise.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
