package main

import (
	"github.com/spf13/cobra"
)

func newRefreshCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <target>",
		Short: "Re-dispatch a target's full configuration now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().Refresh(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("target %s refreshed", args[0])
			return nil
		},
	}
}

// newReconfigureCmd is `refresh`'s synonym in spec.md §6's verb list; both
// hit the same POST /target/{a} {"op":"reset"} action.
func newReconfigureCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reconfigure <target>",
		Short: "Alias for refresh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().Refresh(cmd.Context(), args[0]); err != nil {
				return err
			}
			printSuccess("target %s reconfigured", args[0])
			return nil
		},
	}
}
