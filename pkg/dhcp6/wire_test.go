package dhcp6

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/google/gopacket/layers"

	"github.com/virtualsquare/iothconf-go/pkg/dnsname"
)

func TestBuildAndParseAdvertiseRoundTrip(t *testing.T) {
	clientID := []byte{0, 1, 0, 1, 1, 2, 3, 4, 0, 1, 2, 3, 4, 5}
	xid := [3]byte{0x11, 0x22, 0x33}
	iaid := [4]byte{0, 1, 2, 3}

	solicitPkt := buildMessage(msgSolicit, xid, clientID, nil, iaid, nil, "host.example.org")
	if msgType(solicitPkt[0]) != msgSolicit {
		t.Fatalf("expected msgSolicit, got %d", solicitPkt[0])
	}

	// Build a fake ADVERTISE response carrying a server-id and an IA_NA
	// with one IAADDR, then make sure parseAdvertise recovers it.
	serverID := []byte{0, 2, 0, 1, 9, 9, 9, 9, 9, 9}
	iaAddr := make([]byte, 24)
	copy(iaAddr[0:16], net.ParseIP("2001:db8::2"))
	binary.BigEndian.PutUint32(iaAddr[16:20], 3600)
	binary.BigEndian.PutUint32(iaAddr[20:24], 7200)
	iaAddrOpt := encodeOption(layers.DHCPv6OptIAAddr, iaAddr)

	advBody := buildMessage(msgAdvertise, xid, clientID, serverID, iaid, iaAddrOpt, "")
	adv, ok := parseAdvertise(advBody[4:], clientID, iaid)
	if !ok {
		t.Fatal("parseAdvertise returned ok=false")
	}
	if string(adv.serverID) != string(serverID) {
		t.Errorf("serverID = % x, want % x", adv.serverID, serverID)
	}
	if adv.ia.iaid != iaid {
		t.Errorf("iaid = %v, want %v", adv.ia.iaid, iaid)
	}

	zeroed := zeroIAAddrLifetimes(adv.ia.options)
	var sawZero bool
	walkOptions(zeroed, func(code layers.DHCPv6Opt, payload []byte) bool {
		if code == layers.DHCPv6OptIAAddr {
			sawZero = binary.BigEndian.Uint32(payload[16:20]) == 0 && binary.BigEndian.Uint32(payload[20:24]) == 0
		}
		return true
	})
	if !sawZero {
		t.Error("expected IAADDR lifetimes zeroed for the REQUEST replay")
	}
}

func TestParseAdvertiseRejectsMismatchedIdentity(t *testing.T) {
	clientID := []byte{0, 1, 0, 1, 1, 2, 3, 4, 0, 1, 2, 3, 4, 5}
	otherClientID := []byte{0, 1, 0, 1, 1, 2, 3, 4, 0, 1, 2, 3, 4, 6}
	xid := [3]byte{0x11, 0x22, 0x33}
	iaid := [4]byte{0, 1, 2, 3}
	otherIAID := [4]byte{9, 9, 9, 9}
	serverID := []byte{0, 2, 0, 1, 9, 9, 9, 9, 9, 9}

	advBody := buildMessage(msgAdvertise, xid, clientID, serverID, iaid, nil, "")

	if _, ok := parseAdvertise(advBody[4:], otherClientID, iaid); ok {
		t.Error("expected rejection on Client-ID mismatch")
	}
	if _, ok := parseAdvertise(advBody[4:], clientID, otherIAID); ok {
		t.Error("expected rejection on IA_NA IAID mismatch")
	}
	if _, ok := parseAdvertise(advBody[4:], clientID, iaid); !ok {
		t.Error("expected acceptance when Client-ID and IAID both match")
	}
}

func TestParseReplyExtractsAddrsDNSAndDomains(t *testing.T) {
	clientID := []byte{0, 1, 0, 1, 1, 2, 3, 4, 0, 1, 2, 3, 4, 5}
	xid := [3]byte{1, 2, 3}
	iaid := [4]byte{0, 0, 0, 1}
	serverID := []byte{0, 2, 0, 1, 1, 1, 1, 1, 1, 1}

	iaAddr := make([]byte, 24)
	copy(iaAddr[0:16], net.ParseIP("2001:db8::10"))
	binary.BigEndian.PutUint32(iaAddr[16:20], 3600)
	binary.BigEndian.PutUint32(iaAddr[20:24], 7200)
	iaOpts := encodeOption(layers.DHCPv6OptIAAddr, iaAddr)

	dnsData := append([]byte{}, net.ParseIP("2001:db8::53")...)

	name, err := dnsname.EncodeRFC1035("example.org")
	if err != nil {
		t.Fatal(err)
	}

	replyBody := buildMessage(msgReply, xid, clientID, serverID, iaid, iaOpts, "")
	// buildMessage doesn't add DNS/domain options (those are server-side
	// answers), so append them by hand for this test.
	replyBody = append(replyBody, encodeOption(layers.DHCPv6OptDNSServers, dnsData)...)
	replyBody = append(replyBody, encodeOption(layers.DHCPv6OptDomainList, name)...)

	rep, ok := parseReply(replyBody[4:])
	if !ok {
		t.Fatal("parseReply returned ok=false")
	}
	if len(rep.addrs) != 1 || rep.addrs[0].PrefixLen != 128 {
		t.Fatalf("addrs = %+v", rep.addrs)
	}
	if len(rep.dns) != 1 || !rep.dns[0].Equal(net.ParseIP("2001:db8::53")) {
		t.Fatalf("dns = %+v", rep.dns)
	}
	if len(rep.domains) != 1 || rep.domains[0] != "example.org" {
		t.Fatalf("domains = %+v", rep.domains)
	}
}
