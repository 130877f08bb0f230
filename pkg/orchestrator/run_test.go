package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/virtualsquare/iothconf-go/pkg/confdata"
	"github.com/virtualsquare/iothconf-go/pkg/ifstack/fake"
)

func TestRunAppliesEthAndStaticAndReconciles(t *testing.T) {
	s := fake.New()
	s.AddInterface("eth0", 1)

	store := confdata.New()
	d, err := ParseDirective("eth,iface=eth0,ip=192.0.2.1/24,gw=192.0.2.254,dns=8.8.8.8,domain=example.org")
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}

	applied, err := Run(context.Background(), s, store, confdata.Stack(0), d)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !applied.Has(FlagEth) || !applied.Has(FlagStatic) {
		t.Errorf("applied = %b, want eth+static", applied)
	}
	if !s.Up[1] {
		t.Error("expected interface up")
	}
	if len(s.AddrAddCalls) != 1 {
		t.Fatalf("AddrAddCalls = %v, want 1 call", s.AddrAddCalls)
	}
	if len(s.RouteAddCalls) != 1 {
		t.Fatalf("RouteAddCalls = %v, want 1 call", s.RouteAddCalls)
	}
}

func TestRunCleanEthBringsInterfaceDown(t *testing.T) {
	s := fake.New()
	s.AddInterface("eth0", 1)
	s.Up[1] = true

	store := confdata.New()
	d, err := ParseDirective("-eth,iface=eth0")
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}

	if _, err := Run(context.Background(), s, store, confdata.Stack(0), d); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Up[1] {
		t.Error("expected interface down after -eth clean")
	}
}

func TestRunRemovesStaticEntryByValue(t *testing.T) {
	s := fake.New()
	s.AddInterface("eth0", 1)
	store := confdata.New()

	add, err := ParseDirective("iface=eth0,ip=192.0.2.1/24,dns=8.8.8.8")
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	if _, err := Run(context.Background(), s, store, confdata.Stack(0), add); err != nil {
		t.Fatalf("Run(add): %v", err)
	}
	if len(s.AddrAddCalls) != 1 {
		t.Fatalf("AddrAddCalls = %v, want 1", s.AddrAddCalls)
	}

	remove, err := ParseDirective("iface=eth0,-ip=192.0.2.1/24,-dns=8.8.8.8")
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	if _, err := Run(context.Background(), s, store, confdata.Stack(0), remove); err != nil {
		t.Fatalf("Run(remove): %v", err)
	}
	if len(s.AddrDelCalls) != 1 {
		t.Errorf("AddrDelCalls = %v, want 1", s.AddrDelCalls)
	}
}

func TestRunRejectsUnknownInterface(t *testing.T) {
	s := fake.New()
	store := confdata.New()
	d, err := ParseDirective("eth,iface=nope")
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	if _, err := Run(context.Background(), s, store, confdata.Stack(0), d); err == nil {
		t.Fatal("expected error resolving unknown interface")
	}
}

func TestDisabledAuditRecordIsNoOp(t *testing.T) {
	a := OpenAudit("")
	defer a.Close()

	a.Record("eth0", "eth,ip=192.0.2.1/24", time.Now(), FlagEth|FlagStatic, nil)

	hist, err := a.History(10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if hist != nil {
		t.Errorf("expected nil history for a disabled (no-op) audit, got %v", hist)
	}
}
