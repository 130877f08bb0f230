package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/virtualsquare/iothconf-go/pkg/storage"
)

var (
	historyLimit int
	historyYAML  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the audit log of past configure/clean runs",
	Long: `Reads the BoltDB audit log named by --audit and prints recent runs,
most recent first. Requires --audit to have been set (on this or a
prior invocation that wrote to the same file); an empty/missing log
prints "no recorded runs".`,
	Run: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of records to show")
	historyCmd.Flags().BoolVar(&historyYAML, "yaml", false, "print records as a YAML list instead of a table")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) {
	audit := openAudit()
	defer audit.Close()

	records, err := audit.History(historyLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read history: %v\n", err)
		os.Exit(1)
	}

	if historyYAML {
		out, err := yaml.Marshal(records)
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal history: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(out))
		return
	}

	printHistoryTable(records)
}

func printHistoryTable(records []storage.RunRecord) {
	if len(records) == 0 {
		fmt.Println("no recorded runs")
		return
	}
	fmt.Printf("%-20s %-10s %-28s %-10s %s\n", "STARTED", "IFACE", "DIRECTIVE", "ACQUIRED", "ERROR")
	for _, r := range records {
		errStr := r.Error
		if errStr == "" {
			errStr = "-"
		}
		fmt.Printf("%-20s %-10s %-28s %-10s %s\n",
			r.StartedAt.Format("2006-01-02T15:04:05"), r.Interface, r.Directive, r.Acquired, errStr)
	}
}
