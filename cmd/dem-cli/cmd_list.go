package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newListCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <object>",
		Short: "List groups, targets, or hosts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, opts, args[0])
		},
	}
	return cmd
}

func runList(cmd *cobra.Command, opts *cliOptions, object string) error {
	ctx := cmd.Context()
	cl := opts.client()

	switch object {
	case "target", "targets":
		targets, err := cl.ListTargets(ctx)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return printJSON(targets)
		}
		t := newStyledTable()
		t.AppendHeader(table.Row{"Alias", "MgmtMode", "Refresh", "Connected"})
		for _, tg := range targets {
			t.AppendRow(table.Row{tg.Alias, tg.MgmtMode, tg.Refresh, boolBadge(tg.Connected)})
		}
		renderTable(t)
		return nil

	case "host", "hosts":
		hosts, err := cl.ListHosts(ctx)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return printJSON(hosts)
		}
		t := newStyledTable()
		t.AppendHeader(table.Row{"Alias", "HostNQN"})
		for _, h := range hosts {
			t.AppendRow(table.Row{h.Alias, h.HostNQN})
		}
		renderTable(t)
		return nil

	case "group", "groups":
		groups, err := cl.ListGroups(ctx)
		if err != nil {
			return err
		}
		if opts.jsonOutput {
			return printJSON(groups)
		}
		t := newStyledTable()
		t.AppendHeader(table.Row{"Name", "Targets", "Hosts"})
		for _, g := range groups {
			t.AppendRow(table.Row{g.Name, len(g.Targets), len(g.Hosts)})
		}
		renderTable(t)
		return nil

	default:
		return fmt.Errorf("list: unknown object %q (want target|host|group)", object)
	}
}
