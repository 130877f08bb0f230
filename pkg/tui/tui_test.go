package tui

import (
	"strings"
	"testing"

	"github.com/virtualsquare/iothconf-go/pkg/orchestrator"
)

func TestBuildDirectiveIncludesToggledSourcesAndFields(t *testing.T) {
	m := initialModel("eth0", nil)
	m.toggled["eth"] = true
	m.toggled["dhcp4"] = true
	m.values["ip"] = "192.0.2.1/24"

	directive := m.buildDirective()
	for _, want := range []string{"eth", "dhcp4", "ip=192.0.2.1/24", "iface=eth0"} {
		if !strings.Contains(directive, want) {
			t.Errorf("directive %q missing %q", directive, want)
		}
	}
	if strings.Contains(directive, "dhcp6") {
		t.Errorf("directive %q should not include untoggled dhcp6", directive)
	}
}

func TestApplyDirectiveReportsParseError(t *testing.T) {
	m := initialModel("eth0", func(d *orchestrator.Directive) (orchestrator.Flags, error) {
		t.Fatal("runner should not be invoked for an empty directive")
		return 0, nil
	})
	m.iface = ""
	m.applyDirective()
	if !m.statusError {
		t.Error("expected a parse error status for an empty directive")
	}
}

func TestApplyDirectiveInvokesRunner(t *testing.T) {
	var gotIface string
	m := initialModel("eth0", func(d *orchestrator.Directive) (orchestrator.Flags, error) {
		gotIface = d.Iface
		return orchestrator.FlagEth, nil
	})
	m.toggled["eth"] = true
	m.applyDirective()

	if m.statusError {
		t.Errorf("unexpected error status: %s", m.status)
	}
	if gotIface != "eth0" {
		t.Errorf("runner saw iface %q, want eth0", gotIface)
	}
}
