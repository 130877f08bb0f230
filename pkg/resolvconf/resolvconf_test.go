package resolvconf

import (
	"net"
	"strings"
	"testing"

	"github.com/virtualsquare/iothconf-go/pkg/confdata"
)

func TestRenderDedupsDomainsAcrossSourcesAndOrdersNameservers(t *testing.T) {
	store := confdata.New()
	store.Add(1, 1, confdata.DHCP4Domain, 100, 0, confdata.DomainPayload{Name: "example.org"})
	store.Add(1, 1, confdata.DHCP6Domain, 100, 0, confdata.DomainPayload{Name: "example.org"})
	store.Add(1, 1, confdata.StaticDomain, 100, 0, confdata.DomainPayload{Name: "lan.example.org"})
	store.Add(1, 1, confdata.StaticDNS4, 100, 0, confdata.DNSPayload{Addr: net.ParseIP("192.168.1.1")})
	store.Add(1, 1, confdata.DHCP4DNS, 100, 0, confdata.DNSPayload{Addr: net.ParseIP("10.0.0.1")})

	content, changed := Render(store, 1, 1)
	if !changed {
		t.Fatal("expected changed=true on first render")
	}
	if !strings.Contains(content, "search") {
		t.Fatalf("expected a search line, got %q", content)
	}
	if strings.Count(content, "example.org") != 2 {
		// "example.org" appears once (deduped) but also as a substring of
		// "lan.example.org", so the raw search line has it twice in text.
		t.Fatalf("expected example.org to appear exactly once as its own domain, content=%q", content)
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	var nameservers []string
	for _, l := range lines {
		if strings.HasPrefix(l, "nameserver") {
			nameservers = append(nameservers, l)
		}
	}
	if len(nameservers) != 2 {
		t.Fatalf("expected 2 nameserver lines, got %v", nameservers)
	}
	if !strings.Contains(nameservers[0], "192.168.1.1") {
		t.Errorf("expected static4 nameserver to render before dhcp4, got %v", nameservers)
	}
}

func TestRenderReturnsNoChangeOnSecondCallWithoutNewRecords(t *testing.T) {
	store := confdata.New()
	store.Add(1, 1, confdata.StaticDNS4, 100, 0, confdata.DNSPayload{Addr: net.ParseIP("10.0.0.1")})

	if _, changed := Render(store, 1, 1); !changed {
		t.Fatal("expected changed=true on first render")
	}
	if _, changed := Render(store, 1, 1); changed {
		t.Fatal("expected changed=false when nothing new was asserted")
	}

	store.Add(1, 1, confdata.StaticDNS6, 200, 0, confdata.DNSPayload{Addr: net.ParseIP("2001:db8::1")})
	if _, changed := Render(store, 1, 1); !changed {
		t.Fatal("expected changed=true after a new record was asserted")
	}
}
