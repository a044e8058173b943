package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nvme-dem/nvme-dem/pkg/demclient"
)

func newSetCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <object> <target> [args...] [key=value ...]",
		Short: "Update a target, subsystem, portid, or namespace",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(cmd, opts, args[0], args[1:])
		},
	}
}

// mgmtModeAliases lets `set inband/outofband/local <target>` stand in for
// `set target <target> mgmt_mode=...`, matching the object shorthand
// spec.md §6 calls out (objects include inband|outofband|local).
var mgmtModeAliases = map[string]string{
	"inband":    "inband",
	"outofband": "outofband",
	"local":     "local",
}

func runSet(cmd *cobra.Command, opts *cliOptions, object string, rest []string) error {
	ctx := cmd.Context()
	cl := opts.client()

	if mode, ok := mgmtModeAliases[object]; ok {
		if len(rest) < 1 {
			return fmt.Errorf("set %s: requires a target alias", object)
		}
		t, err := cl.UpdateTarget(ctx, rest[0], demclient.Target{MgmtMode: mode})
		if err != nil {
			return err
		}
		printSuccess("target %s mgmt_mode set to %s", t.Alias, t.MgmtMode)
		return nil
	}

	switch object {
	case "target":
		if len(rest) < 1 {
			return fmt.Errorf("set target: requires an alias")
		}
		fields, err := parseFields(rest[1:])
		if err != nil {
			return err
		}
		refresh, err := fieldInt(fields, "refresh", 0)
		if err != nil {
			return err
		}
		t, err := cl.UpdateTarget(ctx, rest[0], demclient.Target{
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
		printSuccess("target %s updated", t.Alias)
		return nil

	case "subsystem":
		if len(rest) < 2 {
			return fmt.Errorf("set subsystem: requires <target> <subnqn>")
		}
		fields, err := parseFields(rest[2:])
		if err != nil {
			return err
		}
		s, err := cl.SetSubsystem(ctx, rest[0], demclient.Subsystem{
			SubNQN:       rest[1],
			AllowAnyHost: fieldBool(fields, "allow_any_host", false),
		})
		if err != nil {
			return err
		}
		printSuccess("subsystem %s set on target %s", s.SubNQN, rest[0])
		return nil

	case "portid":
		if len(rest) < 2 {
			return fmt.Errorf("set portid: requires <target> <portid>")
		}
		portid, err := strconv.Atoi(rest[1])
		if err != nil {
			return fmt.Errorf("set portid: invalid portid %q: %w", rest[1], err)
		}
		fields, err := parseFields(rest[2:])
		if err != nil {
			return err
		}
		trsvcid, err := fieldUint16(fields, "trsvcid", 0)
		if err != nil {
			return err
		}
		p, err := cl.SetPortid(ctx, rest[0], portid, demclient.Portid{
			Portid:  portid,
			Type:    fields["type"],
			Family:  fields["family"],
			Address: fields["address"],
			Trsvcid: trsvcid,
		})
		if err != nil {
			return err
		}
		printSuccess("portid %d set on target %s", p.Portid, rest[0])
		return nil

	case "ns":
		if len(rest) < 3 {
			return fmt.Errorf("set ns: requires <target> <subnqn> <nsid>")
		}
		nsid, err := strconv.Atoi(rest[2])
		if err != nil {
			return fmt.Errorf("set ns: invalid nsid %q: %w", rest[2], err)
		}
		fields, err := parseFields(rest[3:])
		if err != nil {
			return err
		}
		devID, err := fieldInt(fields, "devid", 0)
		if err != nil {
			return err
		}
		devNSID, err := fieldInt(fields, "devnsid", 0)
		if err != nil {
			return err
		}
		_, err = cl.SetNamespace(ctx, rest[0], rest[1], demclient.Namespace{NSID: nsid, DevID: devID, DevNSID: devNSID})
		if err != nil {
			return err
		}
		printSuccess("ns %d set on %s/%s", nsid, rest[0], rest[1])
		return nil

	default:
		return fmt.Errorf("set: unknown object %q (want target|subsystem|portid|ns|inband|outofband|local)", object)
	}
}
