// Package ifstack declares the pluggable network-stack capability set the
// rest of this engine is polymorphic over. A real implementation wires
// these methods to an actual stack (packet sockets, netlink, a userspace
// TCP/IP stack); this package only fixes the contract, shaped around a
// link/address/route aggregate plus a name-to-index lookup.
package ifstack

import (
	"context"
	"net"
	"time"
)

// Family distinguishes IPv4 from IPv6 operations.
type Family int

const (
	IPv4 Family = 4
	IPv6 Family = 6
)

// LinkAddr is a net.Addr wrapping a link-layer (Ethernet) destination,
// used with RawConn.WriteTo/ReadFrom on packet sockets opened via
// OpenPacketSocket.
type LinkAddr net.HardwareAddr

func (a LinkAddr) Network() string { return "link" }
func (a LinkAddr) String() string  { return net.HardwareAddr(a).String() }

// BroadcastLinkAddr is the Ethernet broadcast destination.
var BroadcastLinkAddr = LinkAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// RawConn is a minimal raw-socket abstraction: enough to send and receive
// link-layer or network-layer frames with an optional deadline, without
// committing to AF_PACKET, AF_INET6 raw sockets, or any specific OS API.
type RawConn interface {
	SetReadDeadline(t time.Time) error
	ReadFrom(buf []byte) (n int, src net.Addr, err error)
	WriteTo(buf []byte, dst net.Addr) (n int, err error)
	Close() error
}

// Stack is the full collaborator surface. Every protocol client and the
// reconciler in this module depends only on this interface, never on a
// concrete transport, so they can be exercised against a fake in tests.
type Stack interface {
	// InterfaceByName resolves a name to an ifindex; returns an error
	// satisfying errors.Is(err, ioerrs.KindNoDevice) equivalent semantics
	// when the interface does not exist.
	InterfaceByName(name string) (ifindex uint32, err error)
	// InterfaceMAC returns the current link MAC.
	InterfaceMAC(ifindex uint32) (net.HardwareAddr, error)
	// SetInterfaceMAC assigns a new link MAC.
	SetInterfaceMAC(ifindex uint32, mac net.HardwareAddr) error
	// SetInterfaceUp brings the link administratively up.
	SetInterfaceUp(ifindex uint32) error
	// SetInterfaceDown brings the link administratively down, used when a
	// directive cleans the Ethernet stage.
	SetInterfaceDown(ifindex uint32) error

	// OpenPacketSocket opens a link-layer raw socket bound to ifindex,
	// used by the DHCPv4 client (needs Ethernet framing before any
	// address is configured).
	OpenPacketSocket(ctx context.Context, ifindex uint32) (RawConn, error)
	// OpenUDP6Socket opens a UDP/IPv6 socket bound to ifindex and
	// localPort, used by the DHCPv6 client.
	OpenUDP6Socket(ctx context.Context, ifindex uint32, localPort int) (RawConn, error)
	// OpenICMP6Socket opens a raw ICMPv6 socket bound to ifindex, used by
	// the Router Discovery client.
	OpenICMP6Socket(ctx context.Context, ifindex uint32) (RawConn, error)

	// AddrAdd installs an address with the given prefix length on ifindex.
	AddrAdd(ifindex uint32, family Family, addr net.IP, prefixLen int) error
	// AddrDel removes an address previously installed by AddrAdd.
	AddrDel(ifindex uint32, family Family, addr net.IP, prefixLen int) error
	// RouteAddDefault installs a default route via gw on ifindex.
	RouteAddDefault(ifindex uint32, family Family, gw net.IP) error
	// RouteDelDefault removes a default route previously installed by
	// RouteAddDefault.
	RouteDelDefault(ifindex uint32, family Family, gw net.IP) error
}
