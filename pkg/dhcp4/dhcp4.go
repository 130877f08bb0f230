// Package dhcp4 implements a single-interface DHCPv4 client: DISCOVER,
// OFFER, REQUEST, ACK over a raw link-layer socket, since no IPv4 address
// exists on the interface until the exchange completes. Grounded on
// iothconf_dhcp.c's dhcp_send/dhcp_get pair, wire-encoded with
// gopacket/layers, building and parsing DHCP packets the same way a
// gopacket-based discovery tool would.
package dhcp4

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"math/bits"
	"net"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/virtualsquare/iothconf-go/pkg/confdata"
	"github.com/virtualsquare/iothconf-go/pkg/ifstack"
	"github.com/virtualsquare/iothconf-go/pkg/ioerrs"
	"github.com/virtualsquare/iothconf-go/pkg/logging"
)

const component = logging.ComponentDHCP4

const (
	timeout    = 2000 * time.Millisecond
	maxRetries = 3
	clientPort = 68
	serverPort = 67
)

// Options configures a single acquisition.
type Options struct {
	FQDN string
}

// Acquire runs the full DISCOVER/OFFER/REQUEST/ACK exchange on ifindex and
// writes the resulting records into store under a freshly minted DHCPv4
// section timestamp.
func Acquire(ctx context.Context, stack ifstack.Stack, store *confdata.Store, stackID confdata.Stack, ifindex uint32, opts Options) error {
	mac, err := stack.InterfaceMAC(ifindex)
	if err != nil {
		return ioerrs.Wrap(component, ioerrs.KindIO, "read interface mac", err)
	}

	conn, err := stack.OpenPacketSocket(ctx, ifindex)
	if err != nil {
		return ioerrs.Wrap(component, ioerrs.KindIO, "open packet socket", err)
	}
	defer conn.Close()

	ts := store.NewTimestamp(stackID, ifindex, confdata.TimestampDHCP4)

	var xid [4]byte
	if _, err := rand.Read(xid[:]); err != nil {
		return ioerrs.Wrap(component, ioerrs.KindIO, "generate xid", err)
	}

	offer, err := exchange(conn, mac, xid, opts.FQDN, layers.DHCPMsgTypeDiscover, nil, nil)
	if err != nil {
		return err
	}
	if offer == nil {
		return ioerrs.New(component, ioerrs.KindTimeout, "no DHCPOFFER received")
	}

	ack, err := exchange(conn, mac, xid, opts.FQDN, layers.DHCPMsgTypeRequest, offer.yourIP, offer.serverID)
	if err != nil {
		return err
	}
	if ack == nil {
		return ioerrs.New(component, ioerrs.KindTimeout, "no DHCPACK received")
	}

	store.Add(stackID, ifindex, confdata.DHCP4Server, ts, 0, confdata.ServerIDPayload{Opaque: ack.serverID})
	store.Add(stackID, ifindex, confdata.DHCP4Addr, ts, 0, confdata.AddrPayload{
		Addr: ack.yourIP, PrefixLen: ack.prefixLen, ValidLifetime: ack.leaseTime,
	})
	for _, gw := range ack.routers {
		store.Add(stackID, ifindex, confdata.DHCP4Router, ts, 0, confdata.RouterPayload{Addr: gw})
	}
	for _, dns := range ack.dns {
		store.Add(stackID, ifindex, confdata.DHCP4DNS, ts, 0, confdata.DNSPayload{Addr: dns})
	}
	if ack.domain != "" {
		store.Add(stackID, ifindex, confdata.DHCP4Domain, ts, 0, confdata.DomainPayload{Name: ack.domain})
	}

	store.WriteTimestamp(stackID, ifindex, confdata.TimestampDHCP4, ts)
	return nil
}

type reply struct {
	yourIP    net.IP
	serverID  []byte
	prefixLen int
	leaseTime uint32
	routers   []net.IP
	dns       []net.IP
	domain    string
}

// exchange sends one message of msgType and waits (with retransmission)
// for the matching reply type, returning nil, nil on a clean timeout with
// no answer (Acquire turns that into a KindTimeout error, so the
// orchestrator leaves this source's bit unset) and a *reply otherwise.
func exchange(conn ifstack.RawConn, mac net.HardwareAddr, xid [4]byte, fqdn string, msgType layers.DHCPMsgType, requestIP net.IP, serverID []byte) (*reply, error) {
	wantType := layers.DHCPMsgTypeOffer
	if msgType == layers.DHCPMsgTypeRequest {
		wantType = layers.DHCPMsgTypeAck
	}

	pkt, err := buildPacket(mac, xid, fqdn, msgType, requestIP, serverID)
	if err != nil {
		return nil, ioerrs.Wrap(component, ioerrs.KindProtocol, "build packet", err)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		if _, err := conn.WriteTo(pkt, ifstack.BroadcastLinkAddr); err != nil {
			return nil, ioerrs.Wrap(component, ioerrs.KindIO, "send", err)
		}

		r, nak, err := readReply(conn, xid, wantType, timeout)
		if err != nil {
			return nil, err
		}
		if nak {
			return nil, ioerrs.New(component, ioerrs.KindCancelled, "server sent DHCPNAK")
		}
		if r != nil {
			return r, nil
		}
		// timed out this attempt; retry
	}
	return nil, nil
}

func readReply(conn ifstack.RawConn, xid [4]byte, wantType layers.DHCPMsgType, budget time.Duration) (*reply, bool, error) {
	deadline := time.Now().Add(budget)
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
			if timedOut(err) {
				return nil, false, nil
			}
			return nil, false, ioerrs.Wrap(component, ioerrs.KindIO, "recv", err)
		}

		r, nak, ok := parsePacket(buf[:n], xid, wantType)
		if !ok {
			continue // spurious packet, keep waiting out the remaining budget
		}
		return r, nak, nil
	}
}

func timedOut(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

func buildPacket(mac net.HardwareAddr, xid [4]byte, fqdn string, msgType layers.DHCPMsgType, requestIP net.IP, serverID []byte) ([]byte, error) {
	opts := []layers.DHCPOption{
		layers.NewDHCPOption(layers.DHCPOptMessageType, []byte{byte(msgType)}),
		layers.NewDHCPOption(layers.DHCPOptClientID, append([]byte{0x01}, mac...)),
	}
	if msgType == layers.DHCPMsgTypeRequest {
		opts = append(opts,
			layers.NewDHCPOption(layers.DHCPOptRequestIP, requestIP.To4()),
			layers.NewDHCPOption(layers.DHCPOptServerID, serverID),
		)
	}
	opts = append(opts, layers.NewDHCPOption(layers.DHCPOptParamsRequest, []byte{
		byte(layers.DHCPOptSubnetMask), byte(layers.DHCPOptRouter),
		byte(layers.DHCPOptDNS), byte(layers.DHCPOptDomainName),
	}))
	if fqdn != "" {
		// RFC 4702: flags byte (0x01 = S bit, server performs the forward
		// A-record update), two zero RCODE bytes, then the raw FQDN text.
		fqdnOpt := append([]byte{0x01, 0x00, 0x00}, []byte(fqdn)...)
		opts = append(opts, layers.NewDHCPOption(81, fqdnOpt))
	}
	opts = append(opts, layers.NewDHCPOption(layers.DHCPOptEnd, nil))

	dhcp := &layers.DHCPv4{
		Operation:    layers.DHCPOpRequest,
		HardwareType: layers.LinkTypeEthernet,
		HardwareLen:  6,
		Xid:          binary.BigEndian.Uint32(xid[:]),
		ClientHWAddr: mac,
		Options:      opts,
	}

	udp := &layers.UDP{SrcPort: clientPort, DstPort: serverPort}
	ip := &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP,
		SrcIP: net.IPv4zero, DstIP: net.IPv4bcast,
	}
	eth := &layers.Ethernet{
		SrcMAC: mac, DstMAC: net.HardwareAddr(ifstack.BroadcastLinkAddr), EthernetType: layers.EthernetTypeIPv4,
	}
	udp.SetNetworkLayerForChecksum(ip)

	buf := gopacket.NewSerializeBuffer()
	sopts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	if err := gopacket.SerializeLayers(buf, sopts, eth, ip, udp, dhcp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func parsePacket(raw []byte, xid [4]byte, wantType layers.DHCPMsgType) (r *reply, nak bool, matched bool) {
	pkt := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	dl := pkt.Layer(layers.LayerTypeDHCPv4)
	if dl == nil {
		return nil, false, false
	}
	dhcp, ok := dl.(*layers.DHCPv4)
	if !ok || dhcp.Operation != layers.DHCPOpReply {
		return nil, false, false
	}
	if binary.BigEndian.Uint32(xid[:]) != dhcp.Xid {
		return nil, false, false
	}

	var msgType layers.DHCPMsgType
	var serverID []byte
	var prefixLen int
	var leaseTime uint32
	var routers, dns []net.IP
	var domain string

	for _, opt := range dhcp.Options {
		switch opt.Type {
		case layers.DHCPOptMessageType:
			if len(opt.Data) == 1 {
				msgType = layers.DHCPMsgType(opt.Data[0])
			}
		case layers.DHCPOptServerID:
			serverID = append([]byte(nil), opt.Data...)
		case layers.DHCPOptSubnetMask:
			if len(opt.Data) == 4 {
				prefixLen = mask2prefix(binary.BigEndian.Uint32(opt.Data))
			}
		case layers.DHCPOptLeaseTime:
			if len(opt.Data) == 4 {
				leaseTime = binary.BigEndian.Uint32(opt.Data)
			}
		case layers.DHCPOptRouter:
			routers = append(routers, decodeIPv4List(opt.Data)...)
		case layers.DHCPOptDNS:
			dns = append(dns, decodeIPv4List(opt.Data)...)
		case layers.DHCPOptDomainName:
			domain = string(opt.Data)
		}
	}

	if msgType == layers.DHCPMsgTypeNak {
		return nil, true, true
	}
	if msgType != wantType || serverID == nil {
		return nil, false, false
	}

	return &reply{
		yourIP: dhcp.YourClientIP, serverID: serverID, prefixLen: prefixLen,
		leaseTime: leaseTime, routers: routers, dns: dns, domain: domain,
	}, false, true
}

func decodeIPv4List(data []byte) []net.IP {
	var ips []net.IP
	for i := 0; i+4 <= len(data); i += 4 {
		ips = append(ips, net.IP(data[i:i+4]))
	}
	return ips
}

func mask2prefix(mask uint32) int {
	return bits.OnesCount32(mask)
}
