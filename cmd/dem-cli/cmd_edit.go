package main

import "github.com/spf13/cobra"

// newEditCmd is `set`'s synonym: spec.md §6 lists `edit` as a distinct verb,
// but both resolve to the same PUT/PATCH semantics against an existing
// object.
func newEditCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <object> <target> [args...] [key=value ...]",
		Short: "Alias for set",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, opts, args[0], args[1:])
		},
	}
	return cmd
}
