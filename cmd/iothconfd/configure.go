package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/virtualsquare/iothconf-go/pkg/orchestrator"
)

var configureIface string

var configureCmd = &cobra.Command{
	Use:   "configure <directive>",
	Short: "Apply a configuration directive to an interface",
	Long: `Parses a comma-separated directive string and runs its clean/acquire
sections against the interface it names (or --iface), reconciling the
result into the stack collaborator.

Directive tags: eth, dhcp4, dhcp6, rd, slaac, auto, auto4, auto6 and
their "-"-prefixed clean counterparts; fqdn=, iface=, ifindex=, mac=,
ip=, gw=, dns=, domain= (and -ip=/-gw=/-dns=/-domain= for targeted
removal), debug.`,
	Example: `  # Bring up Ethernet and run full DHCPv4+DHCPv6+RD auto-configuration
  iothconfd configure auto,fqdn=host.example.org --iface eth0

  # Static address only
  iothconfd configure ip=192.0.2.10/24,gw=192.0.2.1,dns=8.8.8.8 --iface eth0

  # Tear down the Ethernet, DHCPv4, DHCPv6 and RD sections ("--" keeps
  # cobra from parsing "-auto" as flags)
  iothconfd configure --iface eth0 -- -auto`,
	Args: cobra.ExactArgs(1),
	Run:  runConfigure,
}

func init() {
	configureCmd.Flags().StringVar(&configureIface, "iface", "vde0", "interface to configure")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) {
	directive := args[0]
	d, err := orchestrator.ParseDirective(directive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid directive: %v\n", err)
		os.Exit(1)
	}
	if d.Iface == "" {
		d.Iface = configureIface
	}
	resolveInterface(d.Iface)

	audit := openAudit()
	defer audit.Close()

	started := time.Now()
	applied, err := orchestrator.Run(context.Background(), stack, store, stackID, d)
	audit.Record(d.Iface, directive, started, applied, err)

	if err != nil {
		fmt.Fprintf(os.Stderr, "configure failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("applied sections: %08b\n", uint8(applied))
}
