package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/hypermodel/version"
)

func newVersionCommand(o *Options) *cobra.Command {
	var short, asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(version.Get())
			case short:
				fmt.Fprintln(out, version.Short())
			default:
				fmt.Fprintf(out, "%s %s\n", o.Name, version.Full())
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print version information as JSON")
	return cmd
}
