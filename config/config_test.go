package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.ServiceName != "svc" {
			t.Errorf("expected logging service name to follow name, got %q", cfg.Logging.ServiceName)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := Config{ServiceConfig: ServiceConfig{Name: "titanic"}}
	cfg.ApplyDefaults()

	if cfg.Port != DefaultPort {
		t.Errorf("expected port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.ScriptName != "titanic" {
		t.Errorf("expected script name to default to name, got %q", cfg.ScriptName)
	}
	if cfg.Deploy.Namespace != DefaultNamespace {
		t.Errorf("expected namespace %q, got %q", DefaultNamespace, cfg.Deploy.Namespace)
	}
	if cfg.Deploy.Timeout != DefaultDeployTimeout {
		t.Errorf("expected timeout %s, got %s", DefaultDeployTimeout, cfg.Deploy.Timeout)
	}
}

func TestTracingSampleRateDefault(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]any
		want   float64
	}{
		{"absent", map[string]any{"name": "titanic"}, DefaultTracingSampleRate},
		{"explicit zero", map[string]any{"name": "titanic", "tracing.sample_rate": 0}, 0},
		{"nested zero", map[string]any{"name": "titanic", "tracing": map[string]any{"enabled": true, "sample_rate": 0.0}}, 0},
		{"explicit value", map[string]any{"name": "titanic", "tracing.sample_rate": 0.25}, 0.25},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var cfg Config
			if err := LoadMap(tc.values, &cfg); err != nil {
				t.Fatalf("LoadMap failed: %v", err)
			}
			cfg.ApplyDefaults()
			if cfg.Tracing.SampleRate != tc.want {
				t.Errorf("expected sample rate %v, got %v", tc.want, cfg.Tracing.SampleRate)
			}
		})
	}
}

func TestLoadConfigKeepsZeroSampleRate(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("name: titanic\ntracing:\n  sample_rate: 0\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg Config
	if err := LoadConfig("titanic", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	cfg.ApplyDefaults()
	if cfg.Tracing.SampleRate != 0 {
		t.Errorf("expected explicit zero to survive, got %v", cfg.Tracing.SampleRate)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing name", func(c *Config) { c.Name = "" }, "config.name is required"},
		{"invalid environment", func(c *Config) { c.Environment = "qa" }, "config.environment must be one of"},
		{"port out of range", func(c *Config) { c.Port = 70000 }, "port"},
		{"bad deploy host", func(c *Config) { c.Deploy.Host = "not a url" }, "host"},
		{"sample rate above one", func(c *Config) { c.Tracing.SampleRate = 2 }, "sample_rate"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{ServiceConfig: ServiceConfig{Name: "svc"}}
			cfg.ApplyDefaults()
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: titanic
environment: staging
port: 9001
container_url: growingdata/demo-tragic_titanic
cron: "0 0 * * *"
experiment: demos
deploy:
  host: https://kfp.example.com
  namespace: ml
  timeout: 5s
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var cfg Config
	if err := LoadConfig("titanic", &cfg, WithConfigFile(configPath), WithFileSystem(&RealFileSystem{})); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Name != "titanic" {
		t.Errorf("expected name 'titanic', got %q", cfg.Name)
	}
	if cfg.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Port)
	}
	if cfg.Experiment != "demos" {
		t.Errorf("expected experiment 'demos', got %q", cfg.Experiment)
	}
	if cfg.Deploy.Namespace != "ml" {
		t.Errorf("expected namespace 'ml', got %q", cfg.Deploy.Namespace)
	}
	if cfg.Deploy.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.Deploy.Timeout)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(configPath, []byte("name: titanic\nexperiment: demos\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	t.Setenv("EXPERIMENT", "nightly")
	t.Setenv("DEPLOY_CLIENT_ID", "client-123")

	var cfg Config
	if err := LoadConfig("titanic", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Experiment != "nightly" {
		t.Errorf("expected env to override experiment, got %q", cfg.Experiment)
	}
	if cfg.Deploy.ClientID != "client-123" {
		t.Errorf("expected client id from env, got %q", cfg.Deploy.ClientID)
	}
}

func TestLoadConfigWithEnvFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	envPath := filepath.Join(dir, "titanic.env")
	if err := os.WriteFile(configPath, []byte("name: titanic\nexperiment: demos\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if err := os.WriteFile(envPath, []byte("EXPERIMENT=from-env-file\n"), 0644); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	// godotenv skips variables that are already set.
	t.Setenv("EXPERIMENT", "")
	os.Unsetenv("EXPERIMENT")

	var cfg Config
	if err := LoadConfig("titanic", &cfg, WithConfigFile(configPath), WithEnvFile(envPath)); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Experiment != "from-env-file" {
		t.Errorf("expected experiment from the env file, got %q", cfg.Experiment)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg Config
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadMap(t *testing.T) {
	values := map[string]any{
		"name":          "titanic",
		"package_name":  "titanic",
		"container_url": "growingdata/demo-tragic_titanic",
		"port":          8080,
		"deploy":        map[string]any{"namespace": "ml"},
	}

	var cfg Config
	if err := LoadMap(values, &cfg); err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}
	cfg.ApplyDefaults()

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.ContainerURL != "growingdata/demo-tragic_titanic" {
		t.Errorf("unexpected container url %q", cfg.ContainerURL)
	}
	if cfg.Deploy.Namespace != "ml" {
		t.Errorf("expected namespace 'ml', got %q", cfg.Deploy.Namespace)
	}
	if cfg.Deploy.Timeout != DefaultDeployTimeout {
		t.Errorf("absent key should fall back to default, got %s", cfg.Deploy.Timeout)
	}
}

func TestResolverWithMockFS(t *testing.T) {
	fs := &mockFS{files: map[string]bool{
		"./cmd/titanic/config.yml": true,
		".env":                     true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("titanic", LoaderConfig{})
	if files.ConfigFile != "./cmd/titanic/config.yml" {
		t.Errorf("expected config file at ./cmd/titanic/config.yml, got %q", files.ConfigFile)
	}
	if files.EnvFile != ".env" {
		t.Errorf("expected .env, got %q", files.EnvFile)
	}
}

func TestGenerateEnvKeyVariants(t *testing.T) {
	variants := generateEnvKeyVariants("DEPLOY_CLIENT_ID")
	want := map[string]bool{"deploy_client_id": true, "deploy.client_id": true}
	for _, v := range variants {
		delete(want, v)
	}
	if len(want) != 0 {
		t.Errorf("missing variants %v in %v", want, variants)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool   { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }
