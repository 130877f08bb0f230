// Package ifhash derives deterministic link-layer and IPv6 host
// identifiers from a fully qualified domain name, grounded on
// iothconf_hash.c. MD5 is used directly from the standard library: it is
// a core cryptographic primitive, not a pluggable domain concern, so no
// third-party hashing library is warranted here.
package ifhash

import (
	"crypto/md5"
	"net"
	"strings"
)

func trimTrailingDot(name string) string {
	return strings.TrimSuffix(name, ".")
}

// MAC derives a 6-byte, locally-administered, unicast MAC address from
// name: MD5(name) bytes 0..2 form the OUI, bytes 5..7 form the NIC part.
func MAC(name string) net.HardwareAddr {
	sum := md5.Sum([]byte(trimTrailingDot(name)))
	mac := make(net.HardwareAddr, 6)
	copy(mac[0:3], sum[0:3])
	copy(mac[3:6], sum[5:8])
	mac[0] |= 0x02
	mac[0] &^= 0x01
	return mac
}

// Addr6 derives a SLAAC host identifier for addr from name: bytes 8..15
// of addr are XORed with MD5(name)[0..7], then the low two bits of byte 8
// are cleared (locally administered, unicast).
func Addr6(addr net.IP, name string) net.IP {
	out := append(net.IP(nil), addr.To16()...)
	sum := md5.Sum([]byte(trimTrailingDot(name)))
	for i := 8; i < 16; i++ {
		out[i] ^= sum[i-8]
	}
	out[8] &^= 0x03
	return out
}

// EUI64 derives a modified EUI-64 IPv6 host identifier for addr from mac.
func EUI64(addr net.IP, mac net.HardwareAddr) net.IP {
	out := append(net.IP(nil), addr.To16()...)
	out[8] = mac[0]
	out[9] = mac[1]
	out[10] = mac[2]
	out[11] = 0xff
	out[12] = 0xfe
	out[13] = mac[3]
	out[14] = mac[4]
	out[15] = mac[5]
	out[8] ^= 0x02
	return out
}
