package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvme-dem/nvme-dem/pkg/demclient"
)

func newAddCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <object> <name> [key=value ...]",
		Short: "Create a group, target, or host",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(cmd, opts, args[0], args[1], args[2:])
		},
	}
}

func runAdd(cmd *cobra.Command, opts *cliOptions, object, name string, rest []string) error {
	ctx := cmd.Context()
	cl := opts.client()
	fields, err := parseFields(rest)
	if err != nil {
		return err
	}

	switch object {
	case "target":
		refresh, err := fieldInt(fields, "refresh", 5)
		if err != nil {
			return err
		}
		t, err := cl.CreateTarget(ctx, demclient.Target{
			Alias:    name,
			MgmtMode: fields["mgmt_mode"],
			Refresh:  refresh,
			Interface: demclient.Interface{
				Type:    fields["type"],
				Family:  fields["family"],
				Address: fields["address"],
			},
		})
		if err != nil {
			return err
		}
		printSuccess("target %s created", t.Alias)
		return nil

	case "host":
		h, err := cl.CreateHost(ctx, demclient.Host{Alias: name, HostNQN: fields["hostnqn"]})
		if err != nil {
			return err
		}
		printSuccess("host %s created", h.Alias)
		return nil

	case "group":
		g, err := cl.CreateGroup(ctx, name)
		if err != nil {
			return err
		}
		printSuccess("group %s created", g.Name)
		return nil

	default:
		return fmt.Errorf("add: unknown object %q (want target|host|group)", object)
	}
}
