// Package confdata implements the timestamp-indexed configuration record
// store shared by every acquisition source (static, DHCPv4, DHCPv6, Router
// Discovery) and by the IP reconciler and resolv.conf emitter that consume
// it.
//
// The store is grounded on the original iothconf_data.c linear-scan/mutex
// design, re-architected per the design notes: callers never see a raw
// payload pointer, only a Handle, and iteration is an explicit Cursor
// instead of a callback returning a delete/break bitmask.
package confdata

import "net"

// Stack is an opaque identifier for a network stack instance. AnyStack
// matches every stack in queries.
type Stack uint64

// AnyStack matches records regardless of which stack created them.
const AnyStack Stack = 0

// Type encodes both the acquisition source (high nibble) and the record
// kind (low nibble), mirroring the original C type byte.
type Type uint8

// Source nibbles.
const (
	SourceDHCP4  Type = 0x40
	SourceRD     Type = 0x50
	SourceDHCP6  Type = 0x60
	SourceStatic Type = 0x70
)

// SectionMask isolates the high (source) nibble of a Type.
const SectionMask Type = 0xF0

// KindMask isolates the low nibble of a Type.
const KindMask Type = 0x0F

// Synthetic "section timestamp" types, one per source: payload-less
// records whose Timestamp is the latest acquisition time for that source.
const (
	TimestampDHCP4  = SourceDHCP4 | 0x00
	TimestampRD     = SourceRD | 0x00
	TimestampDHCP6  = SourceDHCP6 | 0x00
	TimestampStatic = SourceStatic | 0x00
)

// Record kinds, namespaced by source.
const (
	// DHCPv4
	DHCP4Server Type = SourceDHCP4 | 0x01
	DHCP4Addr   Type = SourceDHCP4 | 0x02
	DHCP4Router Type = SourceDHCP4 | 0x03
	DHCP4DNS    Type = SourceDHCP4 | 0x08
	DHCP4Domain Type = SourceDHCP4 | 0x0a

	// Router Discovery
	RDPrefix Type = SourceRD | 0x01
	RDAddr   Type = SourceRD | 0x02
	RDRouter Type = SourceRD | 0x03
	RDMTU    Type = SourceRD | 0x0f

	// DHCPv6
	DHCP6ServerID Type = SourceDHCP6 | 0x01
	DHCP6Addr     Type = SourceDHCP6 | 0x02
	DHCP6DNS      Type = SourceDHCP6 | 0x08
	DHCP6Domain   Type = SourceDHCP6 | 0x0a

	// Static
	StaticAddr4   Type = SourceStatic | 0x02
	StaticRouter4 Type = SourceStatic | 0x03
	StaticAddr6   Type = SourceStatic | 0x04
	StaticRouter6 Type = SourceStatic | 0x05
	StaticDNS4    Type = SourceStatic | 0x08
	StaticDNS6    Type = SourceStatic | 0x09
	StaticDomain  Type = SourceStatic | 0x0a
)

// Masks for cross-source iteration (see spec §4.1). Matching is
// (typeOfRecord & mask) == (base & mask).
const (
	// DNSAnySourceMask selects every DNS record of any source.
	DNSAnySourceMask = 0xCE
	// DomainAnySourceMask selects every search-domain record of any source.
	DomainAnySourceMask = 0xCE
	// DNSOrDomainAnySourceMask selects DNS and domain records together.
	DNSOrDomainAnySourceMask = 0xCC
)

// Flag bits.
type Flags uint8

// ActiveFlag marks a record as currently installed into the stack.
const ActiveFlag Flags = 0x01

// Is reports whether f has every bit of other set.
func (f Flags) Is(other Flags) bool { return f&other == other }

// AddrPayload is the payload for an IPv4 or IPv6 address record (static
// addresses, DHCP4Addr, DHCP6Addr, RDAddr).
type AddrPayload struct {
	Addr              net.IP
	PrefixLen         int
	PreferredLifetime uint32 // seconds; 0xFFFFFFFF = infinite
	ValidLifetime     uint32 // seconds; 0xFFFFFFFF = infinite
}

// RouterPayload is the payload for a default-gateway record. Flags and
// Lifetime are only meaningful for an RDRouter record (the RA flags
// byte and router lifetime); static and DHCP-derived routers leave
// them zero.
type RouterPayload struct {
	Addr     net.IP
	Flags    uint8
	Lifetime uint16 // seconds, RD only
}

// PrefixPayload is the payload for an RD-advertised prefix.
type PrefixPayload struct {
	Prefix    net.IP
	PrefixLen int
	Flags     uint8
	Preferred uint32
	Valid     uint32
}

// DNSPayload is the payload for a single nameserver record.
type DNSPayload struct {
	Addr net.IP
}

// DomainPayload is the payload for a single search-domain record.
type DomainPayload struct {
	Name string
}

// MTUPayload is the payload for an RD MTU option record.
type MTUPayload struct {
	MTU uint32
}

// ServerIDPayload is the payload for a DHCP server/server-id record.
type ServerIDPayload struct {
	Opaque []byte
}

// InfiniteLifetime is the wire sentinel for "no expiry".
const InfiniteLifetime uint32 = 0xFFFFFFFF
