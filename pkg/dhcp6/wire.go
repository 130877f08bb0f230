package dhcp6

import (
	"bytes"
	"encoding/binary"
	"net"

	"github.com/google/gopacket/layers"

	"github.com/virtualsquare/iothconf-go/pkg/confdata"
	"github.com/virtualsquare/iothconf-go/pkg/dnsname"
)

func encodeOption(code layers.DHCPv6Opt, data []byte) []byte {
	b := make([]byte, 4+len(data))
	binary.BigEndian.PutUint16(b[0:2], uint16(code))
	binary.BigEndian.PutUint16(b[2:4], uint16(len(data)))
	copy(b[4:], data)
	return b
}

// walkOptions invokes fn for every TLV option in data; fn returning false
// stops the walk early.
func walkOptions(data []byte, fn func(code layers.DHCPv6Opt, payload []byte) bool) {
	for len(data) >= 4 {
		code := layers.DHCPv6Opt(binary.BigEndian.Uint16(data[0:2]))
		length := int(binary.BigEndian.Uint16(data[2:4]))
		if 4+length > len(data) {
			return
		}
		payload := data[4 : 4+length]
		if !fn(code, payload) {
			return
		}
		data = data[4+length:]
	}
}

func buildMessage(mt msgType, xid [3]byte, clientID, serverID []byte, iaid [4]byte, iaInnerOptions []byte, fqdn string) []byte {
	buf := []byte{byte(mt), xid[0], xid[1], xid[2]}

	buf = append(buf, encodeOption(layers.DHCPv6OptClientID, clientID)...)
	if serverID != nil {
		buf = append(buf, encodeOption(layers.DHCPv6OptServerID, serverID)...)
	}
	buf = append(buf, encodeOption(layers.DHCPv6OptElapsedTime, []byte{0, 0})...)

	oro := make([]byte, 4)
	binary.BigEndian.PutUint16(oro[0:2], uint16(layers.DHCPv6OptDNSServers))
	binary.BigEndian.PutUint16(oro[2:4], uint16(layers.DHCPv6OptDomainList))
	buf = append(buf, encodeOption(layers.DHCPv6OptOro, oro)...)

	if fqdn != "" {
		name, err := dnsname.EncodeRFC1035(fqdn)
		if err == nil {
			fqdnData := append([]byte{0x00}, name...)
			buf = append(buf, encodeOption(layers.DHCPv6OptClientFQDN, fqdnData)...)
		}
	}

	ia := make([]byte, 12+len(iaInnerOptions))
	copy(ia[0:4], iaid[:])
	// T1/T2 left at zero: the server chooses renewal timing; this engine
	// never renews leases on a timer.
	copy(ia[12:], iaInnerOptions)
	buf = append(buf, encodeOption(layers.DHCPv6OptIANA, ia)...)

	return buf
}

// parseAdvertise accepts an ADVERTISE only when its echoed Client-ID
// matches clientID verbatim (DUID type, hardware type, time, and link
// address all round-tripped unchanged) and its IA_NA's IAID matches
// iaid, mirroring check_clientid/check_iana: a server that echoes back
// a different identity or a stale/foreign IAID is treated the same as
// a spurious packet and discarded.
func parseAdvertise(data []byte, clientID []byte, iaid [4]byte) (*advertiseResult, bool) {
	var serverID []byte
	var ia ianaCapture
	var gotIA, gotClientID, clientIDOK, iaidOK bool

	walkOptions(data, func(code layers.DHCPv6Opt, payload []byte) bool {
		switch code {
		case layers.DHCPv6OptClientID:
			gotClientID = true
			clientIDOK = bytes.Equal(payload, clientID)
		case layers.DHCPv6OptServerID:
			serverID = append([]byte(nil), payload...)
		case layers.DHCPv6OptIANA:
			if len(payload) >= 12 {
				copy(ia.iaid[:], payload[0:4])
				ia.options = append([]byte(nil), payload[12:]...)
				gotIA = true
				iaidOK = ia.iaid == iaid
			}
		}
		return true
	})

	if serverID == nil || !gotIA || !gotClientID || !clientIDOK || !iaidOK {
		return nil, false
	}
	return &advertiseResult{serverID: serverID, ia: ia}, true
}

func parseReply(data []byte) (*replyResult, bool) {
	var rep replyResult

	walkOptions(data, func(code layers.DHCPv6Opt, payload []byte) bool {
		switch code {
		case layers.DHCPv6OptServerID:
			rep.serverID = append([]byte(nil), payload...)
		case layers.DHCPv6OptIANA:
			if len(payload) >= 12 {
				parseIAAddrs(payload[12:], &rep.addrs)
			}
		case layers.DHCPv6OptDNSServers:
			for i := 0; i+16 <= len(payload); i += 16 {
				rep.dns = append(rep.dns, net.IP(append([]byte(nil), payload[i:i+16]...)))
			}
		case layers.DHCPv6OptDomainList:
			if names, err := dnsname.DecodeRFC1035List(payload); err == nil {
				rep.domains = append(rep.domains, names...)
			}
		}
		return true
	})

	if rep.serverID == nil {
		return nil, false
	}
	return &rep, true
}

func parseIAAddrs(data []byte, out *[]confdata.AddrPayload) {
	walkOptions(data, func(code layers.DHCPv6Opt, payload []byte) bool {
		if code == layers.DHCPv6OptIAAddr && len(payload) >= 24 {
			*out = append(*out, confdata.AddrPayload{
				Addr:              net.IP(append([]byte(nil), payload[0:16]...)),
				PrefixLen:         128,
				PreferredLifetime: binary.BigEndian.Uint32(payload[16:20]),
				ValidLifetime:     binary.BigEndian.Uint32(payload[20:24]),
			})
		}
		return true
	})
}

// zeroIAAddrLifetimes returns a copy of an IA_NA's inner options with every
// IAADDR sub-option's preferred/valid lifetime fields zeroed, per RFC 8415
// §25 (a REQUEST must not assert the lifetimes the server offered).
func zeroIAAddrLifetimes(iaInnerOptions []byte) []byte {
	out := append([]byte(nil), iaInnerOptions...)
	offset := 0
	for offset+4 <= len(out) {
		code := layers.DHCPv6Opt(binary.BigEndian.Uint16(out[offset : offset+2]))
		length := int(binary.BigEndian.Uint16(out[offset+2 : offset+4]))
		if offset+4+length > len(out) {
			break
		}
		if code == layers.DHCPv6OptIAAddr && length >= 24 {
			payloadStart := offset + 4
			for i := 16; i < 24; i++ {
				out[payloadStart+i] = 0
			}
		}
		offset += 4 + length
	}
	return out
}
