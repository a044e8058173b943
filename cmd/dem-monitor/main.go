// Command dem-monitor is the standalone discovery-client (C9, spec §4.9):
// it connects to one target's discovery controller, enables AEN, and
// prints discovery log page diffs as they arrive.
package main

import (
	goflag "flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/nvme-dem/nvme-dem/pkg/model"
	"github.com/nvme-dem/nvme-dem/pkg/monitorclient"
	"github.com/nvme-dem/nvme-dem/pkg/transport"
	"github.com/nvme-dem/nvme-dem/pkg/transport/rdma"
	"github.com/nvme-dem/nvme-dem/pkg/transport/tcp"
)

func main() {
	klog.InitFlags(goflag.CommandLine)
	if err := newMonitorCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dem-monitor:", err)
		os.Exit(1)
	}
}

// monitorFlags mirrors spec.md §6's monitor flag surface exactly: -d
// debug, -h hostnqn, -t trtype, -f adrfam, -a traddr, -s trsvcid.
type monitorFlags struct {
	debug   bool
	hostNQN string
	trType  string
	adrFam  string
	traddr  string
	trsvcid string
}

func newMonitorCmd() *cobra.Command {
	flags := &monitorFlags{}
	cmd := &cobra.Command{
		Use:          "dem-monitor",
		Short:        "Standalone NVMe-oF discovery-log monitor",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd, flags)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&flags.debug, "debug", "d", false, "print verbose diagnostics")
	f.StringVarP(&flags.hostNQN, "hostnqn", "h", "", "host NQN (default: derived from a random UUID)")
	f.StringVarP(&flags.trType, "trtype", "t", "tcp", "transport type (tcp|rdma)")
	f.StringVarP(&flags.adrFam, "adrfam", "f", "ipv4", "address family (ipv4|ipv6|fc)")
	f.StringVarP(&flags.traddr, "traddr", "a", "", "target address (required)")
	f.StringVarP(&flags.trsvcid, "trsvcid", "s", "8009", "target service id/port")
	cmd.MarkFlagRequired("traddr")
	return cmd
}

func runMonitor(cmd *cobra.Command, flags *monitorFlags) error {
	if flags.debug {
		if err := goflag.CommandLine.Set("v", "4"); err != nil {
			klog.Warningf("dem-monitor: enabling debug verbosity: %v", err)
		}
	}

	hostNQN := flags.hostNQN
	if hostNQN == "" {
		hostNQN = "nqn.2014-08.org.nvmexpress:uuid:" + uuid.NewString()
	}

	tr, err := transportFor(model.TrType(flags.trType))
	if err != nil {
		return err
	}

	target := monitorclient.Target{
		TrType:  model.TrType(flags.trType),
		AdrFam:  model.AdrFam(flags.adrFam),
		Traddr:  flags.traddr,
		Trsvcid: flags.trsvcid,
		HostNQN: hostNQN,
	}

	out := newTablePrinter(flags.debug)
	mon := monitorclient.New(target, tr, out)

	runCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := mon.Run(runCtx); err != nil && runCtx.Err() == nil {
		return err
	}
	return nil
}

// transportFor resolves spec.md §6's -t flag to a transport.Transport,
// mirroring cmd/dem-server's transports map (spec §4.1).
func transportFor(trType model.TrType) (transport.Transport, error) {
	switch trType {
	case model.TrTypeTCP:
		return tcp.New(), nil
	case model.TrTypeRDMA:
		return rdma.New(), nil
	default:
		return nil, fmt.Errorf("dem-monitor: unsupported transport type %q (want tcp|rdma)", trType)
	}
}
