package main

import "github.com/spf13/cobra"

func newShutdownCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Ask the dem-server daemon to stop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().Shutdown(cmd.Context()); err != nil {
				return err
			}
			printSuccess("shutdown requested")
			return nil
		},
	}
}
