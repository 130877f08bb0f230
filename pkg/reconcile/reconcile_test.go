package reconcile

import (
	"net"
	"testing"

	"github.com/virtualsquare/iothconf-go/pkg/confdata"
	"github.com/virtualsquare/iothconf-go/pkg/ifstack/fake"
)

func TestUpdateInstallsCurrentRoundAndWithdrawsStale(t *testing.T) {
	stack := fake.New()
	stack.AddInterface("eth0", 1)
	store := confdata.New()

	oldTS := store.NewTimestamp(1, 1, confdata.TimestampDHCP4)
	store.Add(1, 1, confdata.DHCP4Addr, oldTS, 0, confdata.AddrPayload{Addr: net.ParseIP("10.0.0.5"), PrefixLen: 24})
	store.WriteTimestamp(1, 1, confdata.TimestampDHCP4, oldTS)
	if err := Update(stack, store, 1, 1, confdata.TimestampDHCP4); err != nil {
		t.Fatalf("first Update: %v", err)
	}
	if len(stack.AddrAddCalls) != 1 {
		t.Fatalf("expected 1 AddrAdd call, got %d", len(stack.AddrAddCalls))
	}

	newTS := store.NewTimestamp(1, 1, confdata.TimestampDHCP4)
	store.Add(1, 1, confdata.DHCP4Addr, newTS, 0, confdata.AddrPayload{Addr: net.ParseIP("10.0.0.9"), PrefixLen: 24})
	store.WriteTimestamp(1, 1, confdata.TimestampDHCP4, newTS)
	if err := Update(stack, store, 1, 1, confdata.TimestampDHCP4); err != nil {
		t.Fatalf("second Update: %v", err)
	}

	if len(stack.AddrDelCalls) != 1 || stack.AddrDelCalls[0].Addr != "10.0.0.5" {
		t.Fatalf("expected withdrawal of the stale address, got %+v", stack.AddrDelCalls)
	}
	if len(stack.AddrAddCalls) != 2 || stack.AddrAddCalls[1].Addr != "10.0.0.9" {
		t.Fatalf("expected installation of the new address, got %+v", stack.AddrAddCalls)
	}

	var remaining int
	store.Forall(1, 1, confdata.DHCP4Addr, func(h confdata.Handle, c *confdata.Cursor) { remaining++ })
	if remaining != 1 {
		t.Fatalf("expected the stale record to be reaped, got %d remaining", remaining)
	}
}

func TestCleanWithdrawsEverythingAndDropsSectionTimestamp(t *testing.T) {
	stack := fake.New()
	stack.AddInterface("eth0", 1)
	store := confdata.New()

	ts := store.NewTimestamp(1, 1, confdata.TimestampStatic)
	store.Add(1, 1, confdata.StaticAddr4, ts, 0, confdata.AddrPayload{Addr: net.ParseIP("192.168.1.2"), PrefixLen: 24})
	store.Add(1, 1, confdata.StaticRouter4, ts, 0, confdata.RouterPayload{Addr: net.ParseIP("192.168.1.1")})
	store.WriteTimestamp(1, 1, confdata.TimestampStatic, ts)
	if err := Update(stack, store, 1, 1, confdata.TimestampStatic); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := Clean(stack, store, 1, 1, confdata.TimestampStatic); err != nil {
		t.Fatalf("Clean: %v", err)
	}

	if len(stack.AddrDelCalls) != 1 || len(stack.RouteDelCalls) != 1 {
		t.Fatalf("expected one address and one route withdrawn, got addr=%v route=%v", stack.AddrDelCalls, stack.RouteDelCalls)
	}
	if store.ReadTimestamp(1, 1, confdata.TimestampStatic) != 0 {
		t.Fatal("expected the section timestamp to be gone after Clean")
	}

	var remaining int
	store.Forall(confdata.AnyStack, 1, confdata.StaticAddr4, func(h confdata.Handle, c *confdata.Cursor) { remaining++ })
	store.Forall(confdata.AnyStack, 1, confdata.StaticRouter4, func(h confdata.Handle, c *confdata.Cursor) { remaining++ })
	if remaining != 0 {
		t.Fatalf("expected all static records gone, got %d remaining", remaining)
	}
}
