// Package rdisc implements IPv6 Router Discovery: a single Router
// Solicitation and the first matching Router Advertisement, per RFC 4861
// (partial, as the original). Grounded on iothconf_rd.c. The ICMPv6
// envelope is built and parsed with golang.org/x/net/icmp and the message
// type constants come from golang.org/x/net/ipv6, the same pairing
// Splat-NDPeekr's NDP listener uses; RA option parsing (prefix info, MTU)
// has no library support and is hand-rolled, as the original does.
package rdisc

import (
	"context"
	"encoding/binary"
	"net"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv6"

	"github.com/virtualsquare/iothconf-go/pkg/confdata"
	"github.com/virtualsquare/iothconf-go/pkg/ifhash"
	"github.com/virtualsquare/iothconf-go/pkg/ifstack"
	"github.com/virtualsquare/iothconf-go/pkg/ioerrs"
	"github.com/virtualsquare/iothconf-go/pkg/logging"
)

const component = logging.ComponentRD

const (
	timeout  = 1000 * time.Millisecond
	hopLimit = 255

	optSourceLinkLayerAddr = 1
	optPrefixInformation   = 3
	optMTU                 = 5

	flagAutonomous = 0x40
)

// AllRouters is the RFC 4861 all-routers multicast group.
var AllRouters = net.ParseIP("ff02::2")

// Options configures a single discovery cycle.
type Options struct {
	// FQDN, when set, derives SLAAC addresses with ifhash.Addr6 instead of
	// ifhash.EUI64, matching the DHCPv4/DHCPv6 clients' FQDN-first policy.
	FQDN string
	// SLAAC enables address autoconfiguration from autonomous prefixes
	// (IOTHCONF_RD_SLAAC in the original).
	SLAAC bool
}

// Acquire sends a Router Solicitation on ifindex and records the fields of
// the first Router Advertisement received, under a freshly minted RD
// section timestamp.
func Acquire(ctx context.Context, stack ifstack.Stack, store *confdata.Store, stackID confdata.Stack, ifindex uint32, opts Options) error {
	mac, err := stack.InterfaceMAC(ifindex)
	if err != nil {
		return ioerrs.Wrap(component, ioerrs.KindIO, "read interface mac", err)
	}
	conn, err := stack.OpenICMP6Socket(ctx, ifindex)
	if err != nil {
		return ioerrs.Wrap(component, ioerrs.KindIO, "open icmp6 socket", err)
	}
	defer conn.Close()

	ts := store.NewTimestamp(stackID, ifindex, confdata.TimestampRD)

	rs := buildSolicitation(mac)
	if _, err := conn.WriteTo(rs, &net.IPAddr{IP: AllRouters}); err != nil {
		return ioerrs.Wrap(component, ioerrs.KindIO, "send router solicitation", err)
	}

	router, ok, err := awaitAdvertisement(conn)
	if err != nil {
		return err
	}
	if !ok {
		return ioerrs.New(component, ioerrs.KindTimeout, "no router advertisement received")
	}

	store.Add(stackID, ifindex, confdata.RDRouter, ts, 0, confdata.RouterPayload{
		Addr: router.from, Flags: router.flags, Lifetime: router.lifetime,
	})
	for _, p := range router.prefixes {
		store.Add(stackID, ifindex, confdata.RDPrefix, ts, 0, p)
		if opts.SLAAC && p.PrefixLen == 64 && (p.Flags&flagAutonomous != 0 || opts.FQDN != "") {
			addr := append(net.IP(nil), p.Prefix...)
			if opts.FQDN != "" {
				addr = ifhash.Addr6(addr, opts.FQDN)
			} else {
				addr = ifhash.EUI64(addr, mac)
			}
			store.Add(stackID, ifindex, confdata.RDAddr, ts, 0, confdata.AddrPayload{
				Addr:              addr,
				PrefixLen:         p.PrefixLen,
				PreferredLifetime: p.Preferred,
				ValidLifetime:     p.Valid,
			})
		}
	}
	if router.mtu != 0 {
		store.Add(stackID, ifindex, confdata.RDMTU, ts, 0, confdata.MTUPayload{MTU: router.mtu})
	}

	store.WriteTimestamp(stackID, ifindex, confdata.TimestampRD, ts)
	return nil
}

func buildSolicitation(mac net.HardwareAddr) []byte {
	opt := make([]byte, 8)
	opt[0] = optSourceLinkLayerAddr
	opt[1] = 1 // length in 8-byte units
	copy(opt[2:8], mac)

	msg := icmp.Message{
		Type: ipv6.ICMPTypeRouterSolicitation,
		Code: 0,
		Body: &icmp.RawBody{Data: append([]byte{0, 0, 0, 0}, opt...)},
	}
	wire, _ := msg.Marshal(nil)
	return wire
}

type advertisement struct {
	from     net.IP
	flags    uint8
	lifetime uint16
	prefixes []confdata.PrefixPayload
	mtu      uint32
}

func awaitAdvertisement(conn ifstack.RawConn) (*advertisement, bool, error) {
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
		n, src, err := conn.ReadFrom(buf)
		if err != nil {
			if to, ok := err.(interface{ Timeout() bool }); ok && to.Timeout() {
				return nil, false, nil
			}
			return nil, false, ioerrs.Wrap(component, ioerrs.KindIO, "recv", err)
		}

		msg, err := icmp.ParseMessage(58, buf[:n])
		if err != nil || msg.Type != ipv6.ICMPTypeRouterAdvertisement {
			continue
		}
		body, ok := msg.Body.(*icmp.RawBody)
		if !ok || len(body.Data) < 12 {
			continue
		}

		var from net.IP
		switch a := src.(type) {
		case *net.IPAddr:
			from = a.IP
		default:
			from = nil
		}

		adv := parseRouterAdvertisement(body.Data, from)
		return adv, true, nil
	}
}

// parseRouterAdvertisement parses the fields and options of an RA body
// (the bytes following the 4-byte ICMPv6 header: cur-hop-limit(1),
// flags(1), router-lifetime(2), reachable-time(4), retrans-timer(4),
// then the TLV option chain — 12 bytes before the first option).
func parseRouterAdvertisement(data []byte, from net.IP) *advertisement {
	adv := &advertisement{from: from}
	if len(data) >= 4 {
		adv.flags = data[1]
		adv.lifetime = binary.BigEndian.Uint16(data[2:4])
	}

	offset := 12 // skip cur-hop-limit(1) + flags(1) + lifetime(2) + reachable(4) + retrans(4)
	for offset+2 <= len(data) {
		optType := data[offset]
		optLen := int(data[offset+1]) * 8
		if optLen == 0 || offset+optLen > len(data) {
			break
		}
		opt := data[offset : offset+optLen]

		switch optType {
		case optPrefixInformation:
			if len(opt) >= 32 {
				adv.prefixes = append(adv.prefixes, confdata.PrefixPayload{
					Prefix:    net.IP(append([]byte(nil), opt[16:32]...)),
					PrefixLen: int(opt[2]),
					Flags:     opt[3],
					Preferred: binary.BigEndian.Uint32(opt[8:12]),
					Valid:     binary.BigEndian.Uint32(opt[4:8]),
				})
			}
		case optMTU:
			if len(opt) >= 8 {
				adv.mtu = binary.BigEndian.Uint32(opt[4:8])
			}
		}
		offset += optLen
	}
	return adv
}
