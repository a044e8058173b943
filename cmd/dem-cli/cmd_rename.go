package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRenameCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <object> <old> <new>",
		Short: "Rename a group, target, or host",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRename(cmd, opts, args[0], args[1], args[2])
		},
	}
}

func runRename(cmd *cobra.Command, opts *cliOptions, object, oldName, newName string) error {
	ctx := cmd.Context()
	cl := opts.client()

	switch object {
	case "target":
		t, err := cl.RenameTarget(ctx, oldName, newName)
		if err != nil {
			return err
		}
		printSuccess("target %s renamed to %s", oldName, t.Alias)
		return nil
	case "host":
		h, err := cl.RenameHost(ctx, oldName, newName)
		if err != nil {
			return err
		}
		printSuccess("host %s renamed to %s", oldName, h.Alias)
		return nil
	case "group":
		g, err := cl.RenameGroup(ctx, oldName, newName)
		if err != nil {
			return err
		}
		printSuccess("group %s renamed to %s", oldName, g.Name)
		return nil
	default:
		return fmt.Errorf("rename: unknown object %q (want target|host|group)", object)
	}
}
