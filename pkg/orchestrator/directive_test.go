package orchestrator

import "testing"

func TestParseDirectiveAutoExpandsToEthDhcpRd(t *testing.T) {
	d, err := ParseDirective("auto,fqdn=host.example.org")
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	want := FlagEth | FlagDHCP4 | FlagDHCP6 | FlagRD
	if d.Acquire != want {
		t.Errorf("Acquire = %b, want %b", d.Acquire, want)
	}
	if d.FQDN != "host.example.org" {
		t.Errorf("FQDN = %q", d.FQDN)
	}
}

func TestParseDirectiveStaticEntriesPreserveOrder(t *testing.T) {
	d, err := ParseDirective("ip=192.0.2.1/24,gw=192.0.2.254,dns=8.8.8.8,domain=example.org")
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	if !d.Acquire.Has(FlagStatic) {
		t.Error("expected FlagStatic set")
	}
	wantTags := []string{"ip", "gw", "dns", "domain"}
	if len(d.Static) != len(wantTags) {
		t.Fatalf("Static = %v, want %d entries", d.Static, len(wantTags))
	}
	for i, tag := range wantTags {
		if d.Static[i].Tag != tag {
			t.Errorf("Static[%d].Tag = %q, want %q", i, d.Static[i].Tag, tag)
		}
	}
}

func TestParseDirectiveCleanFlags(t *testing.T) {
	d, err := ParseDirective("-auto4,-dhcp6")
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	want := FlagEth | FlagDHCP4 | FlagDHCP6
	if d.Clean != want {
		t.Errorf("Clean = %b, want %b", d.Clean, want)
	}
}

func TestParseDirectiveStaticRemoval(t *testing.T) {
	d, err := ParseDirective("-ip=192.0.2.1/24,-dns=8.8.8.8")
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	if d.Clean.Has(FlagStatic) {
		t.Error("expected targeted removal to not trigger a whole-section clean")
	}
	if len(d.StaticRemove) != 2 {
		t.Fatalf("StaticRemove = %v, want 2 entries", d.StaticRemove)
	}
	if d.StaticRemove[0].Tag != "ip" || d.StaticRemove[1].Tag != "dns" {
		t.Errorf("StaticRemove tags = %v", d.StaticRemove)
	}
}

func TestParseDirectiveRejectsUnknownTag(t *testing.T) {
	if _, err := ParseDirective("bogus"); err == nil {
		t.Fatal("expected error for unknown tag")
	}
}

func TestParseDirectiveRejectsEmpty(t *testing.T) {
	if _, err := ParseDirective("   "); err == nil {
		t.Fatal("expected error for empty directive")
	}
}

func TestParseDirectiveIfindex(t *testing.T) {
	d, err := ParseDirective("ifindex=3,dhcp4")
	if err != nil {
		t.Fatalf("ParseDirective: %v", err)
	}
	if d.Ifindex != 3 {
		t.Errorf("Ifindex = %d, want 3", d.Ifindex)
	}
}
