package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/hypermodel/logger"
)

// FileSystem interface for file operations (useful for testing).
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// Resolver handles finding config and env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolvedFiles contains the resolved config and env file paths.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// ResolveFiles finds config and env files for an application.
// Explicit paths win; otherwise the standard locations are searched.
func (cr *Resolver) ResolveFiles(appName string, opts LoaderConfig) ResolvedFiles {
	resolved := ResolvedFiles{
		ConfigFile: opts.ConfigFile,
		EnvFile:    opts.EnvFile,
	}

	if resolved.ConfigFile == "" {
		resolved.ConfigFile = cr.firstExisting([]string{
			fmt.Sprintf("./cmd/%s/config.yml", appName),
			fmt.Sprintf("./%s/config.yml", appName),
			"./config/config.yml",
			"./config.yml",
			"./hml.yml",
		})
	}
	if resolved.EnvFile == "" {
		resolved.EnvFile = cr.firstExisting([]string{
			fmt.Sprintf("./cmd/%s/.env", appName),
			fmt.Sprintf(".env.%s", appName),
			"./config/.env",
			".env",
		})
	}

	return resolved
}

func (cr *Resolver) firstExisting(paths []string) string {
	for _, path := range paths {
		if cr.FileSystem.Exists(path) {
			return path
		}
	}
	return ""
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct env file path (optional)
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

// LoadConfig loads configuration for an application into cfg.
// It reads config.yml, then the .env file, then the process environment,
// each layer overriding the previous one.
func LoadConfig(appName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	resolver := &Resolver{FileSystem: lc.FileSystem}
	files := resolver.ResolveFiles(appName, lc)

	v := newViper()

	if files.ConfigFile != "" && lc.FileSystem.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			logger.Warn("failed to load config file", logger.Fields("file", files.ConfigFile, "error", err.Error()))
		}
	}

	if files.EnvFile != "" && lc.FileSystem.Exists(files.EnvFile) {
		if err := lc.FileSystem.LoadEnv(files.EnvFile); err != nil {
			logger.Warn("failed to load .env file", logger.Fields("file", files.EnvFile, "error", err.Error()))
		}
	}
	autoBindEnvVars(v)

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config for %s: %w", appName, err)
	}
	return nil
}

// LoadMap loads configuration from an in-memory mapping with recognized keys,
// e.g. {"port": 8000, "container_url": "growingdata/demo"}.
// Nested keys may be given either as nested maps or in dotted form.
func LoadMap(values map[string]any, cfg interface{}) error {
	v := newViper()
	for key, value := range values {
		v.Set(key, value)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config map: %w", err)
	}
	return nil
}

// newViper returns a viper instance carrying the defaults that cannot be
// told apart from an explicit zero after unmarshalling.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("tracing.sample_rate", DefaultTracingSampleRate)
	return v
}

// autoBindEnvVars binds every environment variable to viper under the
// nested key variants it may stand for.
func autoBindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		for _, variant := range generateEnvKeyVariants(pair[0]) {
			v.Set(variant, pair[1])
		}
	}
}

// generateEnvKeyVariants creates the key variants an environment variable may bind to.
//
//	DEPLOY_CLIENT_ID -> [deploy_client_id, deploy.client.id, deploy.client_id, deploy_client.id]
func generateEnvKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}
	for i := 1; i < len(parts); i++ {
		prefix := strings.Join(parts[:i], "_")
		suffix := strings.Join(parts[i:], "_")
		variants = append(variants, prefix+"."+suffix)
	}

	return removeDuplicates(variants)
}

// removeDuplicates removes duplicate strings from a slice.
func removeDuplicates(items []string) []string {
	seen := make(map[string]bool, len(items))
	result := make([]string, 0, len(items))

	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			result = append(result, item)
		}
	}

	return result
}
