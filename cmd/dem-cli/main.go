// Command dem-cli is the operator front-end for the discovery endpoint
// manager's REST surface (pkg/restapi), driven entirely through
// pkg/demclient. Verbs are cobra subcommands; the object they act on
// (group, target, subsystem, portid, ns, host, acl, inband, outofband,
// local, refresh) is their first positional argument, matching spec.md §6's
// `dem-cli <verb> <object> ...` shorthand.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvme-dem/nvme-dem/pkg/demclient"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// -ECONNREFUSED is the one error spec.md §6 calls out a friendly
		// message for; everything else prints as-is.
		if isConnRefused(err) {
			fmt.Fprintln(os.Stderr, "DEM is not running")
		} else {
			fmt.Fprintln(os.Stderr, "dem-cli: "+err.Error())
		}
		os.Exit(1)
	}
}

type cliOptions struct {
	server     string
	port       int
	signature  string
	jsonOutput bool
	rawOutput  bool
	force      bool
	curlDebug  bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "dem-cli",
		Short:         "Manage a distributed NVMe-oF discovery endpoint manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.server, "server", "s", "127.0.0.1", "dem-server host")
	rootCmd.PersistentFlags().IntVarP(&opts.port, "port", "p", 8080, "dem-server REST port")
	rootCmd.PersistentFlags().StringVar(&opts.signature, "signature", os.Getenv("DEM_SIGNATURE"), "auth signature")
	rootCmd.PersistentFlags().BoolVarP(&opts.jsonOutput, "json", "j", false, "print raw JSON output")
	rootCmd.PersistentFlags().BoolVarP(&opts.rawOutput, "raw", "r", false, "print raw response bodies")
	rootCmd.PersistentFlags().BoolVarP(&opts.force, "force", "f", false, "force destructive operations without confirmation")
	rootCmd.PersistentFlags().BoolVarP(&opts.curlDebug, "curl-debug", "c", false, "log every request as an equivalent curl command")

	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newGetCmd(opts))
	rootCmd.AddCommand(newAddCmd(opts))
	rootCmd.AddCommand(newSetCmd(opts))
	rootCmd.AddCommand(newEditCmd(opts))
	rootCmd.AddCommand(newRenameCmd(opts))
	rootCmd.AddCommand(newDeleteCmd(opts))
	rootCmd.AddCommand(newLinkCmd(opts))
	rootCmd.AddCommand(newUnlinkCmd(opts))
	rootCmd.AddCommand(newRefreshCmd(opts))
	rootCmd.AddCommand(newReconfigureCmd(opts))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newShutdownCmd(opts))

	return rootCmd
}

func (o *cliOptions) client() *demclient.Client {
	base := fmt.Sprintf("http://%s:%d", o.server, o.port)
	if o.curlDebug {
		fmt.Fprintf(os.Stderr, "# curl -u ':%s' %s\n", o.signature, base)
	}
	return demclient.New(base, o.signature)
}

func isConnRefused(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "ECONNREFUSED")
}
