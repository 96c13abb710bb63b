package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts the file lookups done while resolving config files.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // explicit config file path
	EnvFile    string // explicit .env path
	EnvPrefix  string // only variables with this prefix are bound; empty binds all
}

// LoaderOption is a functional option for LoadConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithEnvPrefix restricts environment overrides to variables named PREFIX_*.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvPrefix = strings.ToUpper(prefix) }
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles returns explicit paths when given, otherwise the first
// existing candidate under cmd/<service>, config/ or the working directory.
func ResolveFiles(fs FileSystem, serviceName string, lc LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	if resolved.ConfigFile == "" {
		resolved.ConfigFile = firstExisting(fs, []string{
			fmt.Sprintf("./cmd/%s/config.yml", serviceName),
			fmt.Sprintf("../cmd/%s/config.yml", serviceName),
			fmt.Sprintf("../../cmd/%s/config.yml", serviceName),
			"./config/config.yml",
			"./config.yml",
		})
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = firstExisting(fs, []string{
			fmt.Sprintf("./cmd/%s/.env", serviceName),
			fmt.Sprintf("./.env.%s", serviceName),
			"./.env",
			"../.env",
		})
	}
	return resolved
}

func firstExisting(fs FileSystem, paths []string) string {
	for _, p := range paths {
		if fs.Exists(p) {
			return p
		}
	}
	return ""
}

// LoadConfig loads configuration for a service into cfg.
// Precedence, lowest first: config.yml, .env file, process environment.
func LoadConfig(serviceName string, cfg any, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = osFileSystem{}
	}
	files := ResolveFiles(lc.FileSystem, serviceName, lc)

	v := viper.New()
	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", files.ConfigFile, err)
		}
	}

	// godotenv never overrides variables already set in the process.
	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			return fmt.Errorf("load env file %s: %w", files.EnvFile, err)
		}
	}
	bindEnv(v, lc.EnvPrefix, os.Environ())

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for service %s: %w", serviceName, err)
	}
	return nil
}

// bindEnv sets every nesting interpretation of each variable name, so
// ENGINE_SWEEP_INTERVAL reaches engine.sweep_interval as well as engine.sweep.interval.
func bindEnv(v *viper.Viper, prefix string, environ []string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if prefix != "" {
			rest, found := strings.CutPrefix(key, prefix+"_")
			if !found {
				continue
			}
			key = rest
		}
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
}

// envKeyVariants expands A_B_C into a_b_c, a.b.c, a.b_c and a_b.c.
func envKeyVariants(envKey string) []string {
	lower := strings.ToLower(envKey)
	parts := strings.Split(lower, "_")
	if len(parts) <= 1 {
		return []string{lower}
	}

	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	add(lower)
	add(strings.Join(parts, "."))
	for i := 1; i < len(parts); i++ {
		add(strings.Join(parts[:i], ".") + "." + strings.Join(parts[i:], "_"))
		add(strings.Join(parts[:i], "_") + "." + strings.Join(parts[i:], "."))
	}
	return out
}
