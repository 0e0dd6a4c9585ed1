package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/hypermodel/inference"
)

func newInferenceCommand(o *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inference",
		Short: "Serve predictions over HTTP",
	}
	cmd.AddCommand(
		newStartCommand(o, inference.ModeDev, "Serve on 127.0.0.1 for local development"),
		newStartCommand(o, inference.ModeProd, "Serve on all interfaces"),
	)
	return group(cmd)
}

func newStartCommand(o *Options, mode inference.Mode, short string) *cobra.Command {
	return &cobra.Command{
		Use:   fmt.Sprintf("start-%s", mode),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return o.Serve(ctx, mode)
		},
	}
}
