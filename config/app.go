package config

import (
	"fmt"
	"time"

	"github.com/kbukum/hypermodel/validation"
)

// Defaults for keys absent from the configuration.
const (
	DefaultPort              = 8000
	DefaultNamespace         = "kubeflow"
	DefaultDeployTimeout     = 30 * time.Second
	DefaultTracingEndpoint   = "localhost:4318"
	DefaultTracingSampleRate = 1.0
)

// Config is the runtime configuration of a hypermodel application.
//
//	name: titanic
//	port: 8000
//	script_name: titanic
//	container_url: growingdata/demo-tragic_titanic
//	cron: "0 0 * * *"
//	experiment: demos
//	deploy:
//	  host: https://kfp.example.com
//	  namespace: kubeflow
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	// Port is the HTTP port of the inference host.
	Port int `yaml:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	// PackageName is the package that holds the application's ops.
	PackageName string `yaml:"package_name" mapstructure:"package_name"`
	// ScriptName is the executable invoked inside op containers.
	ScriptName string `yaml:"script_name" mapstructure:"script_name"`
	// ContainerURL is the image every op container runs.
	ContainerURL string `yaml:"container_url" mapstructure:"container_url"`
	// Cron is the default schedule for pipelines registered without one.
	Cron string `yaml:"cron" mapstructure:"cron"`
	// Experiment is the default grouping label for deployed pipelines.
	Experiment string `yaml:"experiment" mapstructure:"experiment"`

	Deploy  DeployConfig  `yaml:"deploy" mapstructure:"deploy"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
}

// DeployConfig holds the connection options handed to the deployment adapter.
type DeployConfig struct {
	Host      string        `yaml:"host" mapstructure:"host" validate:"omitempty,url"`
	ClientID  string        `yaml:"client_id" mapstructure:"client_id"`
	Namespace string        `yaml:"namespace" mapstructure:"namespace"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// TracingConfig toggles OpenTelemetry export.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure   bool    `yaml:"insecure" mapstructure:"insecure"`
	// SampleRate of 0 samples nothing.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// GetConfig returns c. When Config is embedded in an application's own config
// struct the method is promoted, so the embedding struct satisfies
// bootstrap.Config.
//
//	type TitanicConfig struct {
//	    config.Config `yaml:",inline" mapstructure:",squash"`
//	    Bucket        string `yaml:"bucket" mapstructure:"bucket"`
//	}
func (c *Config) GetConfig() *Config { return c }

// ApplyDefaults fills absent keys with their documented defaults.
// tracing.sample_rate is defaulted by the loaders instead, since zero is a
// meaningful rate.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ScriptName == "" {
		c.ScriptName = c.Name
	}
	if c.Deploy.Namespace == "" {
		c.Deploy.Namespace = DefaultNamespace
	}
	if c.Deploy.Timeout == 0 {
		c.Deploy.Timeout = DefaultDeployTimeout
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = DefaultTracingEndpoint
		c.Tracing.Insecure = true
	}
}

// Validate checks the base fields and the struct tags.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
