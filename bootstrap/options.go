package bootstrap

import (
	"io"
	"time"

	"github.com/kbukum/hypermodel/deploy"
	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/pipeline"
)

// Option configures the App during creation.
// Options are non-generic so they can be used with any config type.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	buildContext    *pipeline.BuildContext
	deployer        deploy.Deployer
	gracefulTimeout *time.Duration
	out             io.Writer
	errOut          io.Writer
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is initialized from the config's Logging field.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithBuildContext shares op configurators with another pipeline app.
func WithBuildContext(bc *pipeline.BuildContext) Option {
	return func(o *appOptions) {
		o.buildContext = bc
	}
}

// WithDeployer replaces the HTTP deployer built from the deploy config.
func WithDeployer(d deploy.Deployer) Option {
	return func(o *appOptions) {
		o.deployer = d
	}
}

// WithGracefulTimeout sets the maximum duration for graceful shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithOutput sets the writers for command output and the startup summary.
func WithOutput(out, errOut io.Writer) Option {
	return func(o *appOptions) {
		o.out = out
		o.errOut = errOut
	}
}
