package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/virtualsquare/iothconf-go/pkg/orchestrator"
)

var cleanIface string

var cleanCmd = &cobra.Command{
	Use:   "clean [sections]",
	Short: "Withdraw previously acquired sections from an interface",
	Long: `Shorthand for "configure" with every listed tag "-"-prefixed: clean
eth,dhcp4,dhcp6,rd,static withdraws everything iothconfd has acquired
for the interface. With no sections given, cleans all five.`,
	Example: `  iothconfd clean --iface eth0
  iothconfd clean dhcp4,dhcp6 --iface eth0`,
	Args: cobra.MaximumNArgs(1),
	Run:  runClean,
}

func init() {
	cleanCmd.Flags().StringVar(&cleanIface, "iface", "vde0", "interface to clean")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) {
	sections := "eth,dhcp4,dhcp6,rd,static"
	if len(args) == 1 && args[0] != "" {
		sections = args[0]
	}

	tags := strings.Split(sections, ",")
	for i, t := range tags {
		t = strings.TrimSpace(t)
		if !strings.HasPrefix(t, "-") {
			t = "-" + t
		}
		tags[i] = t
	}
	directive := strings.Join(tags, ",") + ",iface=" + cleanIface

	d, err := orchestrator.ParseDirective(directive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid clean sections: %v\n", err)
		os.Exit(1)
	}
	resolveInterface(d.Iface)

	audit := openAudit()
	defer audit.Close()

	started := time.Now()
	applied, err := orchestrator.Run(context.Background(), stack, store, stackID, d)
	audit.Record(d.Iface, directive, started, applied, err)

	if err != nil {
		fmt.Fprintf(os.Stderr, "clean failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("clean complete")
}
