// Package fake provides an in-memory ifstack.Stack for use in tests of
// every package that depends on the stack collaborator (the reconciler,
// the protocol clients, the orchestrator), recording every call it
// receives the same way a protocol client's own statistics counters do.
package fake

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/virtualsquare/iothconf-go/pkg/ifstack"
)

// AddrKey identifies an installed address in the fake's bookkeeping.
type AddrKey struct {
	Ifindex   uint32
	Family    ifstack.Family
	Addr      string
	PrefixLen int
}

// RouteKey identifies an installed default route.
type RouteKey struct {
	Ifindex uint32
	Family  ifstack.Family
	GW      string
}

// Stack is a fully in-memory ifstack.Stack. It never opens real sockets;
// OpenPacketSocket/OpenUDP6Socket/OpenICMP6Socket return an error unless a
// caller has pre-registered an endpoint with SetTransport, which lets
// protocol-client tests supply canned request/response exchanges.
type Stack struct {
	mu sync.Mutex

	Interfaces map[string]uint32
	MACs       map[uint32]net.HardwareAddr
	Up         map[uint32]bool

	Addrs  map[AddrKey]bool
	Routes map[RouteKey]bool

	// AddrAddCalls/AddrDelCalls/RouteAddCalls/RouteDelCalls record every
	// call in order, for assertions on exact add/del sequencing.
	AddrAddCalls  []AddrKey
	AddrDelCalls  []AddrKey
	RouteAddCalls []RouteKey
	RouteDelCalls []RouteKey

	transports map[uint32]ifstack.RawConn
}

// New creates an empty fake stack.
func New() *Stack {
	return &Stack{
		Interfaces: make(map[string]uint32),
		MACs:       make(map[uint32]net.HardwareAddr),
		Up:         make(map[uint32]bool),
		Addrs:      make(map[AddrKey]bool),
		Routes:     make(map[RouteKey]bool),
		transports: make(map[uint32]ifstack.RawConn),
	}
}

// AddInterface registers a name/ifindex pair.
func (s *Stack) AddInterface(name string, ifindex uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Interfaces[name] = ifindex
}

// SetTransport registers the RawConn returned by every Open* call for
// ifindex, so protocol-client tests can drive canned exchanges.
func (s *Stack) SetTransport(ifindex uint32, conn ifstack.RawConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transports[ifindex] = conn
}

func (s *Stack) InterfaceByName(name string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.Interfaces[name]
	if !ok {
		return 0, fmt.Errorf("interface %q not found", name)
	}
	return idx, nil
}

func (s *Stack) InterfaceMAC(ifindex uint32) (net.HardwareAddr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.MACs[ifindex], nil
}

func (s *Stack) SetInterfaceMAC(ifindex uint32, mac net.HardwareAddr) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.MACs[ifindex] = mac
	return nil
}

func (s *Stack) SetInterfaceUp(ifindex uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Up[ifindex] = true
	return nil
}

func (s *Stack) SetInterfaceDown(ifindex uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Up[ifindex] = false
	return nil
}

func (s *Stack) OpenPacketSocket(_ context.Context, ifindex uint32) (ifstack.RawConn, error) {
	return s.transportFor(ifindex)
}

func (s *Stack) OpenUDP6Socket(_ context.Context, ifindex uint32, _ int) (ifstack.RawConn, error) {
	return s.transportFor(ifindex)
}

func (s *Stack) OpenICMP6Socket(_ context.Context, ifindex uint32) (ifstack.RawConn, error) {
	return s.transportFor(ifindex)
}

func (s *Stack) transportFor(ifindex uint32) (ifstack.RawConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn, ok := s.transports[ifindex]
	if !ok {
		return nil, fmt.Errorf("no fake transport registered for ifindex %d", ifindex)
	}
	return conn, nil
}

func (s *Stack) AddrAdd(ifindex uint32, family ifstack.Family, addr net.IP, prefixLen int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := AddrKey{ifindex, family, addr.String(), prefixLen}
	s.Addrs[k] = true
	s.AddrAddCalls = append(s.AddrAddCalls, k)
	return nil
}

func (s *Stack) AddrDel(ifindex uint32, family ifstack.Family, addr net.IP, prefixLen int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := AddrKey{ifindex, family, addr.String(), prefixLen}
	delete(s.Addrs, k)
	s.AddrDelCalls = append(s.AddrDelCalls, k)
	return nil
}

func (s *Stack) RouteAddDefault(ifindex uint32, family ifstack.Family, gw net.IP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := RouteKey{ifindex, family, gw.String()}
	s.Routes[k] = true
	s.RouteAddCalls = append(s.RouteAddCalls, k)
	return nil
}

func (s *Stack) RouteDelDefault(ifindex uint32, family ifstack.Family, gw net.IP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := RouteKey{ifindex, family, gw.String()}
	delete(s.Routes, k)
	s.RouteDelCalls = append(s.RouteDelCalls, k)
	return nil
}

var _ ifstack.Stack = (*Stack)(nil)
