package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// newConfigCmd is the `config` object/verb in spec.md §6: with no arguments
// it lists the daemon's listening interfaces (GET /dem); with `signature
// <old> <new>` it rotates the auth signature.
func newConfigCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [signature <old> <new>]",
		Short: "Show listening interfaces, or rotate the auth signature",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cl := opts.client()

			if len(args) == 3 && args[0] == "signature" {
				if err := cl.UpdateSignature(ctx, args[1], args[2]); err != nil {
					return err
				}
				printSuccess("signature rotated")
				return nil
			}

			listeners, err := cl.ListDem(ctx)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return printJSON(listeners)
			}
			t := newStyledTable()
			t.AppendHeader(table.Row{"Type", "Family", "Address", "Trsvcid"})
			for _, l := range listeners {
				t.AppendRow(table.Row{l.Type, l.Family, l.Address, l.Trsvcid})
			}
			renderTable(t)
			return nil
		},
	}
	return cmd
}
