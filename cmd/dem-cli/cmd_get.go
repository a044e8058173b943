package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newGetCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <object> <name>",
		Short: "Show a single group, target, or host",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd, opts, args[0], args[1])
		},
	}
}

func runGet(cmd *cobra.Command, opts *cliOptions, object, name string) error {
	ctx := cmd.Context()
	cl := opts.client()

	switch object {
	case "target":
		t, err := cl.GetTarget(ctx, name)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return printJSON(t)
		}
		fmt.Printf("Alias:     %s\n", t.Alias)
		fmt.Printf("MgmtMode:  %s\n", t.MgmtMode)
		fmt.Printf("Refresh:   %d min\n", t.Refresh)
		fmt.Printf("Connected: %s\n", boolBadge(t.Connected))
		return nil

	case "host":
		h, err := cl.GetHost(ctx, name)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return printJSON(h)
		}
		fmt.Printf("Alias:   %s\nHostNQN: %s\n", h.Alias, h.HostNQN)
		return nil

	case "group":
		g, err := cl.GetGroup(ctx, name)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return printJSON(g)
		}
		fmt.Printf("Name: %s\n", g.Name)
		fmt.Printf("Targets: %v\n", g.Targets)
		fmt.Printf("Hosts:   %v\n", g.Hosts)
		return nil

	case "usage":
		u, err := cl.TargetUsage(ctx, name)
		if err != nil {
			return err
		}
		return printJSON(u)

	case "logpage":
		pages, err := cl.TargetLogPage(ctx, name)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return printJSON(pages)
		}
		t := newStyledTable()
		t.AppendHeader(table.Row{"SubNQN", "TrType", "Traddr", "Trsvcid", "State"})
		for _, p := range pages {
			t.AppendRow(table.Row{p.SubNQN, p.TrType, p.Traddr, p.Trsvcid, p.State})
		}
		renderTable(t)
		return nil

	default:
		return fmt.Errorf("get: unknown object %q (want target|host|group|usage|logpage)", object)
	}
}
