package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/hypermodel/deploy"
	"github.com/kbukum/hypermodel/logger"
	"github.com/kbukum/hypermodel/pipeline"
	"github.com/kbukum/hypermodel/workflow"
)

// Subcommands every pipeline carries. An op sharing one of these names is
// not exposed as its own subcommand.
var reserved = map[string]bool{
	"run-all":     true,
	"deploy-dev":  true,
	"deploy-prod": true,
	"compile":     true,
	"help":        true,
}

func newPipelinesCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pipelines",
		Short: "Run, compile and deploy pipelines",
	}
	for _, p := range o.Pipelines.Pipelines() {
		cmd.AddCommand(newPipelineCommand(o, p))
	}
	return group(cmd)
}

func newPipelineCommand(o *Options, p *pipeline.Pipeline) *cobra.Command {
	cmd := &cobra.Command{
		Use:   p.Name(),
		Short: fmt.Sprintf("Pipeline %s", p.Name()),
	}
	for _, op := range p.Ops() {
		if reserved[op.Name()] {
			o.Logger.Warn("op not exposed as a subcommand", logger.Fields(
				logger.FieldPipeline, p.Name(), logger.FieldTask, op.Name(),
			))
			continue
		}
		cmd.AddCommand(newOpCommand(o, p, op))
	}
	cmd.AddCommand(
		newRunAllCommand(o, p),
		newDeployCommand(o, p, deploy.EnvDev),
		newDeployCommand(o, p, deploy.EnvProd),
		newCompileCommand(p),
	)
	return group(cmd)
}

// newOpCommand invokes a single op without its dependencies, the way a
// workflow step container does.
func newOpCommand(o *Options, p *pipeline.Pipeline, op *pipeline.Op) *cobra.Command {
	short := fmt.Sprintf("Run op %s", op.Name())
	if deps := op.Dependencies(); len(deps) > 0 {
		short += fmt.Sprintf(" (after %s)", strings.Join(deps, ", "))
	}
	return &cobra.Command{
		Use:   op.Name() + " [key=value...]",
		Short: short,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kwargs, err := pipeline.ParseArgs(args)
			if err != nil {
				return err
			}
			return o.run(cmd.Context(), func(ctx context.Context) error {
				log := o.Logger.WithContext(ctx).WithFields(logger.Fields(
					logger.FieldPipeline, p.Name(), logger.FieldTask, op.Name(),
				))
				log.Info("invoking op", logger.Fields("args", kwargs.Args()))
				out, err := op.Invoke(ctx, kwargs)
				if err != nil {
					log.Error("op failed", logger.ErrorFields("invoke", err))
					return err
				}
				if out != nil {
					fmt.Fprintln(cmd.OutOrStdout(), out)
				}
				return nil
			})
		},
	}
}

func newRunAllCommand(o *Options, p *pipeline.Pipeline) *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "run-all [key=value...]",
		Short: "Run every op in dependency order",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kwargs, err := pipeline.ParseArgs(args)
			if err != nil {
				return err
			}
			return o.run(cmd.Context(), func(ctx context.Context) error {
				var runLog *pipeline.RunLog
				if parallel > 1 {
					runLog, err = p.RunAllParallel(ctx, kwargs, parallel)
				} else {
					runLog, err = p.RunAll(ctx, kwargs)
				}
				if err != nil {
					if task, ok := runLog.Failed(); ok {
						fmt.Fprintf(cmd.ErrOrStderr(), "task %s failed after %d completed\n", task, len(runLog.Order()))
					}
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "run %s completed: %s\n", runLog.ID(), strings.Join(runLog.Order(), " -> "))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "run independent ops concurrently, at most this many at once")
	return cmd
}

func newDeployCommand(o *Options, p *pipeline.Pipeline, env deploy.Environment) *cobra.Command {
	var (
		host, clientID, namespace string
		cron, experiment          string
	)
	cmd := &cobra.Command{
		Use:   "deploy-" + string(env),
		Short: fmt.Sprintf("Deploy the compiled workflow to the %s environment", env),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target := deploy.TargetFromConfig(o.Deploy)
			if host != "" {
				target.Host = host
			}
			if clientID != "" {
				target.ClientID = clientID
			}
			if namespace != "" {
				target.Namespace = namespace
			}
			req := deploy.Request{
				Pipeline:    p.Name(),
				Workflow:    p.Workflow(),
				Environment: env,
				Target:      target,
				Cron:        cron,
				Experiment:  experiment,
			}
			return o.run(cmd.Context(), func(ctx context.Context) error {
				sub, err := o.Deployer.Deploy(ctx, req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deployed %s as %s (%s) to namespace %s\n", sub.Pipeline, sub.Name, sub.ID, sub.Namespace)
				if sub.Schedule != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "schedule: %s\n", sub.Schedule)
				}
				return nil
			})
		},
	}
	// -h is taken by --host.
	cmd.Flags().Bool("help", false, "help for "+cmd.Name())
	cmd.Flags().StringVarP(&host, "host", "h", "", "workflow engine host (default from deploy.host)")
	cmd.Flags().StringVarP(&clientID, "client-id", "c", "", "client identifier sent to the engine (default from deploy.client_id)")
	cmd.Flags().StringVarP(&namespace, "namespace", "n", "", "target namespace (default from deploy.namespace)")
	cmd.Flags().StringVar(&cron, "cron", "", "override the compiled cron schedule")
	cmd.Flags().StringVar(&experiment, "experiment", "", "override the compiled experiment")
	return cmd
}

func newCompileCommand(p *pipeline.Pipeline) *cobra.Command {
	var output, format string
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print or write the compiled workflow document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := p.Workflow()
			if output != "" {
				f := workflow.FormatFromPath(output)
				if cmd.Flags().Changed("format") {
					f = workflow.Format(format)
				}
				if err := workflow.WriteFileAs(output, w, f); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
				return nil
			}
			data, err := workflow.Marshal(w, workflow.Format(format))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file; the format follows the extension unless --format is given")
	cmd.Flags().StringVarP(&format, "format", "f", string(workflow.FormatYAML), "output format: yaml or json")
	return cmd
}
