package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/virtualsquare/iothconf-go/pkg/orchestrator"
	"github.com/virtualsquare/iothconf-go/pkg/tui"
)

var interactiveCmd = &cobra.Command{
	Use:   "interactive <iface>",
	Short: "Build and apply a directive from an interactive menu",
	Long: `Launches a terminal menu for toggling acquisition sources and filling
in static values, then runs the assembled directive the same way
"configure" would, recording it in the audit log.`,
	Args: cobra.ExactArgs(1),
	Run:  runInteractive,
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractive(cmd *cobra.Command, args []string) {
	iface := args[0]
	resolveInterface(iface)

	runner := func(d *orchestrator.Directive) (orchestrator.Flags, error) {
		audit := openAudit()
		defer audit.Close()

		started := time.Now()
		applied, err := orchestrator.Run(context.Background(), stack, store, stackID, d)
		audit.Record(d.Iface, fmt.Sprintf("%+v", d), started, applied, err)
		return applied, err
	}

	if err := tui.Run(iface, runner); err != nil {
		fmt.Fprintf(os.Stderr, "interactive session failed: %v\n", err)
		os.Exit(1)
	}
}
