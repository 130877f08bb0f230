package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/virtualsquare/iothconf-go/pkg/resolvconf"
)

var resolvconfOut string

var resolvconfCmd = &cobra.Command{
	Use:   "resolvconf <iface>",
	Short: "Render resolv.conf for an interface's currently active DNS records",
	Long: `Renders the search domain and nameserver lines accumulated for iface
from prior configure runs. If nothing has changed since the last
render, nothing is printed (or written, with --out) and the command
exits 0 — matching the original's "no update needed" sentinel.`,
	Args: cobra.ExactArgs(1),
	Run:  runResolvconf,
}

func init() {
	resolvconfCmd.Flags().StringVar(&resolvconfOut, "out", "", "write to this path instead of stdout")
	rootCmd.AddCommand(resolvconfCmd)
}

func runResolvconf(cmd *cobra.Command, args []string) {
	iface := args[0]
	ifindex := resolveInterface(iface)

	body, changed := resolvconf.Render(store, stackID, ifindex)
	if !changed {
		return
	}

	if resolvconfOut == "" {
		fmt.Print(body)
		return
	}
	if err := os.WriteFile(resolvconfOut, []byte(body), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", resolvconfOut, err)
		os.Exit(1)
	}
}
