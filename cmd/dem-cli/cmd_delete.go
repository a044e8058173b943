package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newDeleteCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <object> <target> [args...]",
		Short: "Delete a group, target, host, subsystem, portid, or namespace",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd, opts, args[0], args[1:])
		},
	}
}

func runDelete(cmd *cobra.Command, opts *cliOptions, object string, rest []string) error {
	ctx := cmd.Context()
	cl := opts.client()

	if !opts.force {
		fmt.Printf("delete %s %v requires --force to confirm\n", object, rest)
		return nil
	}

	switch object {
	case "target":
		if err := cl.DeleteTarget(ctx, rest[0]); err != nil {
			return err
		}
		printSuccess("target %s deleted", rest[0])
		return nil

	case "host":
		if err := cl.DeleteHost(ctx, rest[0]); err != nil {
			return err
		}
		printSuccess("host %s deleted", rest[0])
		return nil

	case "group":
		if err := cl.DeleteGroup(ctx, rest[0]); err != nil {
			return err
		}
		printSuccess("group %s deleted", rest[0])
		return nil

	case "subsystem":
		if len(rest) < 2 {
			return fmt.Errorf("delete subsystem: requires <target> <subnqn>")
		}
		if err := cl.DeleteSubsystem(ctx, rest[0], rest[1]); err != nil {
			return err
		}
		printSuccess("subsystem %s deleted from target %s", rest[1], rest[0])
		return nil

	case "portid":
		if len(rest) < 2 {
			return fmt.Errorf("delete portid: requires <target> <portid>")
		}
		portid, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("delete portid: invalid portid %q: %w", rest[1], err)
		}
		if err := cl.DeletePortid(ctx, rest[0], portid); err != nil {
			return err
		}
		printSuccess("portid %d deleted from target %s", portid, rest[0])
		return nil

	case "ns":
		if len(rest) < 3 {
			return fmt.Errorf("delete ns: requires <target> <subnqn> <nsid>")
		}
		nsid, err := strconv.Atoi(rest[2])
		if err != nil {
			return fmt.Errorf("delete ns: invalid nsid %q: %w", rest[2], err)
		}
		if err := cl.DeleteNamespace(ctx, rest[0], rest[1], nsid); err != nil {
			return err
		}
		printSuccess("ns %d deleted from %s/%s", nsid, rest[0], rest[1])
		return nil

	default:
		return fmt.Errorf("delete: unknown object %q", object)
	}
}
