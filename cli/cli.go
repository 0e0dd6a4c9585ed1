package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kbukum/hypermodel/config"
	"github.com/kbukum/hypermodel/deploy"
	"github.com/kbukum/hypermodel/inference"
	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/pipeline"
)

// ExitError is an error carrying a process exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Unwrap returns the error that caused the exit.
func (e *ExitError) Unwrap() error { return e.Err }

// Options wires the command tree to an application.
type Options struct {
	// Name is the root command name.
	Name string
	// Pipelines backs the pipelines command. Omitted when nil.
	Pipelines *pipeline.App
	// Inference backs the inference command. Omitted when nil.
	Inference *inference.App
	// Deployer submits compiled workflows. An HTTPDeployer is built from
	// Deploy when nil.
	Deployer deploy.Deployer
	// Deploy holds the deploy defaults the flags override.
	Deploy config.DeployConfig
	// Lifecycle wraps every command that does work, typically to start and
	// stop components around it. fn is called directly when nil.
	Lifecycle func(ctx context.Context, fn func(ctx context.Context) error) error
	// Serve runs the inference server until ctx is done. It is not wrapped
	// by Lifecycle. Defaults to Inference.Serve.
	Serve func(ctx context.Context, mode inference.Mode) error
	// Logger is used for command-level logging.
	Logger *logger.Logger

	Out io.Writer
	Err io.Writer
}

func (o *Options) applyDefaults() {
	if o.Name == "" {
		o.Name = "hml"
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	if o.Logger == nil {
		o.Logger = logger.Get("cli")
	}
	if o.Deployer == nil {
		o.Deployer = deploy.NewHTTPDeployer(deploy.WithTimeout(o.Deploy.Timeout))
	}
	if o.Serve == nil && o.Inference != nil {
		o.Serve = o.Inference.Serve
	}
}

func (o *Options) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if o.Lifecycle == nil {
		return fn(ctx)
	}
	return o.Lifecycle(ctx, fn)
}

// New builds the root command.
func New(opts Options) *cobra.Command {
	opts.applyDefaults()

	root := &cobra.Command{
		Use:           opts.Name,
		Short:         fmt.Sprintf("%s pipelines and inference", opts.Name),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(opts.Out)
	root.SetErr(opts.Err)

	if opts.Pipelines != nil {
		root.AddCommand(newPipelinesCommand(&opts))
	}
	if opts.Inference != nil {
		root.AddCommand(newInferenceCommand(&opts))
	}
	root.AddCommand(newVersionCommand(&opts))
	return root
}

// group makes cmd fail on an unknown subcommand instead of printing help.
func group(cmd *cobra.Command) *cobra.Command {
	cmd.Args = cobra.NoArgs
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}
	return cmd
}

// Execute runs the command tree with args. A failure is returned as an
// *ExitError with code 1.
func Execute(ctx context.Context, opts Options, args []string) error {
	root := New(opts)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		return &ExitError{Code: 1, Message: Message(err), Err: err}
	}
	return nil
}

// Message formats err for the terminal. An AppError already renders its code.
func Message(err error) string {
	return "Error: " + err.Error()
}
