// Package main provides the iothconfd command-line interface, a
// cobra command tree with one subcommand per file.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/virtualsquare/iothconf-go/pkg/confdata"
	"github.com/virtualsquare/iothconf-go/pkg/ifstack/fake"
	"github.com/virtualsquare/iothconf-go/pkg/logging"
	"github.com/virtualsquare/iothconf-go/pkg/orchestrator"
)

var (
	version = "v0.1.0"
	commit  = "dev"
	date    = "unknown"
)

// store and stack are process-wide: every directive against a given
// interface shares the same record store and stack collaborator so
// that reconciliation sees prior rounds' records, matching the
// original's single-process daemon model. The fake in-memory stack is
// a stand-in for a real one; a production deployment links in its own
// ifstack.Stack (netlink, a userspace TCP/IP stack, ...) instead —
// the stack collaborator is polymorphic by design and out of scope
// for this module to implement concretely.
var (
	store     = confdata.New()
	stack     = fake.New()
	auditPath string
)

const stackID = confdata.Stack(0)

var rootCmd = &cobra.Command{
	Use:   "iothconfd",
	Short: "Pluggable network-stack auto-configuration engine",
	Long: `iothconfd configures a network interface from one or more sources —
static assignment, DHCPv4, DHCPv6, and IPv6 Router Discovery — and
reconciles the result against a pluggable network-stack collaborator.

It is driven by a single directive string per invocation (see
"iothconfd configure --help"), and exposes a resolv.conf emitter and
an audit log of past runs.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&auditPath, "audit", "", "path to the BoltDB audit log (disabled if empty)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("iothconfd %s (commit: %s, built: %s)\n", version, commit, date))
}

func openAudit() *orchestrator.Audit {
	return orchestrator.OpenAudit(auditPath)
}

// resolveInterface maps iface to an ifindex, registering it on the fake
// stack the first time it is seen (a real ifstack.Stack would already
// know its interfaces from the kernel).
func resolveInterface(iface string) uint32 {
	if idx, err := stack.InterfaceByName(iface); err == nil {
		return idx
	}
	idx := uint32(len(stack.Interfaces) + 1)
	stack.AddInterface(iface, idx)
	return idx
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}
