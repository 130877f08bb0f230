// Package dhcp6 implements a single-interface DHCPv6 client: SOLICIT,
// ADVERTISE, REQUEST, REPLY over UDP to the All-DHCP-Relay-Agents-and-
// Servers multicast group. Grounded on iothconf_dhcpv6.c. Option type
// codes are borrowed from gopacket/layers' DHCPv6Opt vocabulary; the
// option-list encoder is hand-rolled (wire.go), and since the message
// has no Ethernet/IP framing to build, it is assembled as a raw UDP
// payload rather than through gopacket.SerializeLayers.
package dhcp6

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/google/gopacket/layers"

	"github.com/virtualsquare/iothconf-go/pkg/confdata"
	"github.com/virtualsquare/iothconf-go/pkg/ifstack"
	"github.com/virtualsquare/iothconf-go/pkg/ioerrs"
	"github.com/virtualsquare/iothconf-go/pkg/logging"
)

const component = logging.ComponentDHCP6

// Message types (RFC 8415 §7.3); not present in gopacket/layers' DHCPv6
// option vocabulary, so defined locally.
type msgType uint8

const (
	msgSolicit   msgType = 1
	msgAdvertise msgType = 2
	msgRequest   msgType = 3
	msgReply     msgType = 7
)

const (
	clientPort = 546
	serverPort = 547
	timeout    = 2000 * time.Millisecond
	maxRetries = 3
)

// AllDHCPRelayAgentsAndServers is the RFC 8415 multicast destination.
var AllDHCPRelayAgentsAndServers = net.ParseIP("ff02::1:2")

var (
	duidOnce sync.Once
	duid     []byte
)

// time2000101 is the DUID-LLT epoch offset (2000-01-01 00:00:00 UTC).
const time2000101 = 946684800

// duidLLT returns the process-global DUID-LLT, computing and caching it
// on first use from mac and the current time.
func duidLLT(mac net.HardwareAddr) []byte {
	duidOnce.Do(func() {
		d := make([]byte, 8+len(mac))
		binary.BigEndian.PutUint16(d[0:2], 1) // DUID type 1: LLT
		binary.BigEndian.PutUint16(d[2:4], 1) // hardware type: Ethernet
		binary.BigEndian.PutUint32(d[4:8], uint32(time.Now().Unix()-time2000101))
		copy(d[8:], mac)
		duid = d
	})
	return duid
}

// Options configures a single acquisition.
type Options struct {
	FQDN string
}

type ianaCapture struct {
	iaid    [4]byte
	options []byte // inner options of the IA_NA, excluding IAID/T1/T2
}

type advertiseResult struct {
	serverID []byte
	ia       ianaCapture
}

type replyResult struct {
	serverID []byte
	addrs    []confdata.AddrPayload
	dns      []net.IP
	domains  []string
}

// Acquire runs the full SOLICIT/ADVERTISE/REQUEST/REPLY exchange on
// ifindex and writes the resulting records into store under a freshly
// minted DHCPv6 section timestamp.
func Acquire(ctx context.Context, stack ifstack.Stack, store *confdata.Store, stackID confdata.Stack, ifindex uint32, opts Options) error {
	mac, err := stack.InterfaceMAC(ifindex)
	if err != nil {
		return ioerrs.Wrap(component, ioerrs.KindIO, "read interface mac", err)
	}
	conn, err := stack.OpenUDP6Socket(ctx, ifindex, clientPort)
	if err != nil {
		return ioerrs.Wrap(component, ioerrs.KindIO, "open udp6 socket", err)
	}
	defer conn.Close()

	ts := store.NewTimestamp(stackID, ifindex, confdata.TimestampDHCP6)
	id := duidLLT(mac)

	var iaid [4]byte
	copy(iaid[:], mac[2:6])

	var xid [3]byte
	if _, err := rand.Read(xid[:]); err != nil {
		return ioerrs.Wrap(component, ioerrs.KindIO, "generate transaction id", err)
	}

	adv, err := solicit(conn, id, iaid, xid, opts.FQDN)
	if err != nil {
		return err
	}
	if adv == nil {
		return ioerrs.New(component, ioerrs.KindTimeout, "no ADVERTISE received")
	}

	rep, err := request(conn, id, iaid, xid, opts.FQDN, adv)
	if err != nil {
		return err
	}
	if rep == nil {
		return ioerrs.New(component, ioerrs.KindTimeout, "no REPLY received")
	}

	store.Add(stackID, ifindex, confdata.DHCP6ServerID, ts, 0, confdata.ServerIDPayload{Opaque: rep.serverID})
	for _, a := range rep.addrs {
		store.Add(stackID, ifindex, confdata.DHCP6Addr, ts, 0, a)
	}
	for _, d := range rep.dns {
		store.Add(stackID, ifindex, confdata.DHCP6DNS, ts, 0, confdata.DNSPayload{Addr: d})
	}
	for _, d := range rep.domains {
		store.Add(stackID, ifindex, confdata.DHCP6Domain, ts, 0, confdata.DomainPayload{Name: d})
	}
	store.WriteTimestamp(stackID, ifindex, confdata.TimestampDHCP6, ts)
	return nil
}

func solicit(conn ifstack.RawConn, id []byte, iaid [4]byte, xid [3]byte, fqdn string) (*advertiseResult, error) {
	pkt := buildMessage(msgSolicit, xid, id, nil, iaid, nil, fqdn)
	return sendAndAwaitAdvertise(conn, pkt, xid, id, iaid)
}

func request(conn ifstack.RawConn, id []byte, iaid [4]byte, xid [3]byte, fqdn string, adv *advertiseResult) (*replyResult, error) {
	// RFC 8415 §25: replay the IA_NA with any IAADDR lifetimes zeroed.
	iaOpts := zeroIAAddrLifetimes(adv.ia.options)
	pkt := buildMessage(msgRequest, xid, id, adv.serverID, iaid, iaOpts, fqdn)
	return sendAndAwaitReply(conn, pkt, xid)
}

func sendAndAwaitAdvertise(conn ifstack.RawConn, pkt []byte, xid [3]byte, clientID []byte, iaid [4]byte) (*advertiseResult, error) {
	parse := func(data []byte) (*advertiseResult, bool) { return parseAdvertise(data, clientID, iaid) }
	for attempt := 0; attempt < maxRetries; attempt++ {
		if _, err := conn.WriteTo(pkt, dhcpDest()); err != nil {
			return nil, ioerrs.Wrap(component, ioerrs.KindIO, "send solicit", err)
		}
		adv, ok, err := readOne(conn, xid, msgAdvertise, parse)
		if err != nil {
			return nil, err
		}
		if ok {
			return adv, nil
		}
	}
	return nil, nil
}

func sendAndAwaitReply(conn ifstack.RawConn, pkt []byte, xid [3]byte) (*replyResult, error) {
	for attempt := 0; attempt < maxRetries; attempt++ {
		if _, err := conn.WriteTo(pkt, dhcpDest()); err != nil {
			return nil, ioerrs.Wrap(component, ioerrs.KindIO, "send request", err)
		}
		rep, ok, err := readOne(conn, xid, msgReply, parseReply)
		if err != nil {
			return nil, err
		}
		if ok {
			return rep, nil
		}
	}
	return nil, nil
}

func dhcpDest() net.Addr {
	return &net.UDPAddr{IP: AllDHCPRelayAgentsAndServers, Port: serverPort}
}

func readOne[T any](conn ifstack.RawConn, xid [3]byte, want msgType, parse func([]byte) (*T, bool)) (*T, bool, error) {
	deadline := time.Now().Add(timeout)
	buf := make([]byte, 1500)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false, nil
		}
		if err := conn.SetReadDeadline(deadline); err != nil {
			return nil, false, ioerrs.Wrap(component, ioerrs.KindIO, "set read deadline", err)
		}
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if to, ok := err.(interface{ Timeout() bool }); ok && to.Timeout() {
				return nil, false, nil
			}
			return nil, false, ioerrs.Wrap(component, ioerrs.KindIO, "recv", err)
		}
		raw := buf[:n]
		if len(raw) < 4 || msgType(raw[0]) != want || [3]byte(raw[1:4]) != xid {
			continue
		}
		v, ok := parse(raw[4:])
		if !ok {
			continue
		}
		return v, true, nil
	}
}
