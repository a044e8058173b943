package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLinkCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "link <object> <args...>",
		Short: "Link a host/target into a group, or a host into a subsystem ACL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd, opts, args[0], args[1:], true)
		},
	}
}

func newUnlinkCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <object> <args...>",
		Short: "Unlink a host/target from a group, or a host from a subsystem ACL",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd, opts, args[0], args[1:], false)
		},
	}
}

// runLink implements both `link` and `unlink`: object selects which kind of
// membership edge to edit. `acl` is spec.md §6's object name for a
// subsystem's host ACL.
func runLink(cmd *cobra.Command, opts *cliOptions, object string, rest []string, link bool) error {
	ctx := cmd.Context()
	cl := opts.client()

	switch object {
	case "group-target":
		if len(rest) < 2 {
			return fmt.Errorf("%s group-target: requires <group> <target>", verbName(link))
		}
		var err error
		if link {
			err = cl.LinkGroupTarget(ctx, rest[0], rest[1])
		} else {
			err = cl.UnlinkGroupTarget(ctx, rest[0], rest[1])
		}
		if err != nil {
			return err
		}
		printSuccess("%s %s target %s", rest[0], linkedWord(link), rest[1])
		return nil

	case "group-host":
		if len(rest) < 2 {
			return fmt.Errorf("%s group-host: requires <group> <host>", verbName(link))
		}
		var err error
		if link {
			err = cl.LinkGroupHost(ctx, rest[0], rest[1])
		} else {
			err = cl.UnlinkGroupHost(ctx, rest[0], rest[1])
		}
		if err != nil {
			return err
		}
		printSuccess("%s %s host %s", rest[0], linkedWord(link), rest[1])
		return nil

	case "acl":
		if len(rest) < 3 {
			return fmt.Errorf("%s acl: requires <target> <subnqn> <host>", verbName(link))
		}
		var err error
		if link {
			err = cl.LinkSubsysHost(ctx, rest[0], rest[1], rest[2])
		} else {
			err = cl.UnlinkSubsysHost(ctx, rest[0], rest[1], rest[2])
		}
		if err != nil {
			return err
		}
		printSuccess("host %s %s subsystem %s on target %s", rest[2], linkedWord(link), rest[1], rest[0])
		return nil

	default:
		return fmt.Errorf("%s: unknown object %q (want group-target|group-host|acl)", verbName(link), object)
	}
}

func verbName(link bool) string {
	if link {
		return "link"
	}
	return "unlink"
}

func linkedWord(link bool) string {
	if link {
		return "linked to"
	}
	return "unlinked from"
}
