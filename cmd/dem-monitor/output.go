package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nvme-dem/nvme-dem/pkg/monitorclient"
)

var (
	changeColor = map[string]*color.Color{
		monitorclient.ChangeAdded:   color.New(color.FgGreen),
		monitorclient.ChangeValid:   color.New(color.Faint),
		monitorclient.ChangeRemoved: color.New(color.FgRed),
	}
	debugColor = color.New(color.FgCyan)
)

// tablePrinter renders each monitorclient.Run fetch as a table, one row
// per discovery log page entry, colored by its added/valid/removed state
// (spec §3/§8).
type tablePrinter struct {
	debug bool
}

func newTablePrinter(debug bool) *tablePrinter {
	return &tablePrinter{debug: debug}
}

func (p *tablePrinter) PrintRows(rows []monitorclient.Row) {
	if len(rows) == 0 {
		fmt.Printf("[%s] discovery log page unchanged\n", time.Now().Format(time.RFC3339))
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	style := table.StyleLight
	style.Options.SeparateRows = false
	style.Options.DrawBorder = false
	style.Format.Header = text.FormatUpper
	style.Format.HeaderAlign = text.AlignLeft
	t.SetStyle(style)

	t.AppendHeader(table.Row{"Change", "TrType", "AdrFam", "Portid", "SubNQN", "Traddr", "Trsvcid"})
	for _, r := range rows {
		c, ok := changeColor[r.Change]
		change := r.Change
		if ok {
			change = c.Sprint(r.Change)
		}
		t.AppendRow(table.Row{change, r.TrType, r.AdrFam, r.Portid, r.SubNQN, r.Traddr, r.Trsvcid})
	}
	fmt.Printf("[%s] discovery log page changed:\n", time.Now().Format(time.RFC3339))
	t.Render()
}

func (p *tablePrinter) Debugf(format string, args ...any) {
	if !p.debug {
		return
	}
	debugColor.Printf(format+"\n", args...)
}
