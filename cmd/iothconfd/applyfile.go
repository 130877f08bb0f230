package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/virtualsquare/iothconf-go/pkg/orchestrator"
)

// fileDirective is one entry of an apply-file YAML document: the same
// tags a comma-separated directive string carries, just split into a
// list for readability in a scripted multi-interface setup. It carries
// no new semantics over directive.go's grammar (§4.8 untouched) — tags
// are joined back into a comma string and handed to the same
// orchestrator.ParseDirective/Run path "configure" uses.
type fileDirective struct {
	Iface string   `yaml:"iface"`
	Tags  []string `yaml:"tags"`
}

var applyFileCmd = &cobra.Command{
	Use:   "apply-file <path.yaml>",
	Short: "Run a list of directives from a YAML file",
	Long: `Reads a YAML list of {iface, tags} entries and runs each one through the
same path as "configure", in file order. A convenience wrapper for
scripted multi-interface setups; each entry's tags are joined into an
ordinary comma-separated directive string before parsing.

Example file:

  - iface: eth0
    tags: [auto, "fqdn=host.example.org"]
  - iface: eth1
    tags: ["ip=192.0.2.10/24", "gw=192.0.2.1"]`,
	Args: cobra.ExactArgs(1),
	Run:  runApplyFile,
}

func init() {
	rootCmd.AddCommand(applyFileCmd)
}

func runApplyFile(cmd *cobra.Command, args []string) {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read %s: %v\n", args[0], err)
		os.Exit(1)
	}

	var entries []fileDirective
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		fmt.Fprintf(os.Stderr, "parse %s: %v\n", args[0], err)
		os.Exit(1)
	}

	audit := openAudit()
	defer audit.Close()

	exitCode := 0
	for _, e := range entries {
		directive := strings.Join(e.Tags, ",")
		if e.Iface != "" {
			directive += ",iface=" + e.Iface
		}

		d, err := orchestrator.ParseDirective(directive)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: invalid directive: %v\n", e.Iface, err)
			exitCode = 1
			continue
		}
		resolveInterface(d.Iface)

		started := time.Now()
		applied, err := orchestrator.Run(context.Background(), stack, store, stackID, d)
		audit.Record(d.Iface, directive, started, applied, err)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: run failed: %v\n", d.Iface, err)
			exitCode = 1
			continue
		}
		fmt.Printf("%s: applied sections: %08b\n", d.Iface, uint8(applied))
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
