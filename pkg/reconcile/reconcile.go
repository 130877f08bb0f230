// Package reconcile installs and removes addresses/routes from an
// ifstack.Stack to match a confdata.Store's current records, and reaps
// stale records left behind by an earlier acquisition round. Grounded on
// iothconf_ip.c's ioth_ip_update/ioth_ip_clean.
package reconcile

import (
	"net"

	"github.com/virtualsquare/iothconf-go/pkg/confdata"
	"github.com/virtualsquare/iothconf-go/pkg/ifstack"
	"github.com/virtualsquare/iothconf-go/pkg/ioerrs"
	"github.com/virtualsquare/iothconf-go/pkg/logging"
)

const component = logging.ComponentReconcile

// kindsBySection lists, for each acquisition section, the address/route
// record kinds that must be pushed into (or withdrawn from) the stack.
// Non-goal: DNS, domain, server-id, prefix and MTU records are never
// installed directly — they are read by the resolv.conf emitter and the
// reconciler only reaps them once stale (the Forall-mask pass below).
var kindsBySection = map[confdata.Type][]sectionKind{
	confdata.TimestampStatic: {
		{confdata.StaticAddr6, ifstack.IPv6, kindAddr},
		{confdata.StaticRouter6, ifstack.IPv6, kindRoute},
		{confdata.StaticAddr4, ifstack.IPv4, kindAddr},
		{confdata.StaticRouter4, ifstack.IPv4, kindRoute},
	},
	confdata.TimestampDHCP4: {
		{confdata.DHCP4Addr, ifstack.IPv4, kindAddr},
		{confdata.DHCP4Router, ifstack.IPv4, kindRoute},
	},
	confdata.TimestampDHCP6: {
		{confdata.DHCP6Addr, ifstack.IPv6, kindAddr},
	},
	confdata.TimestampRD: {
		{confdata.RDAddr, ifstack.IPv6, kindAddr},
		{confdata.RDRouter, ifstack.IPv6, kindRoute},
	},
}

type recordKind int

const (
	kindAddr recordKind = iota
	kindRoute
)

type sectionKind struct {
	typ    confdata.Type
	family ifstack.Family
	kind   recordKind
}

// Update pushes every current-round address/route record of section into
// the stack, withdraws every record that predates the section's latest
// timestamp, and reaps the rest of the section's stale, non-installed
// records (DNS, domain, server-id, prefix, MTU). section must be one of
// the confdata.TimestampXxx section types.
func Update(stack ifstack.Stack, store *confdata.Store, stackID confdata.Stack, ifindex uint32, section confdata.Type) error {
	latest := store.ReadTimestamp(stackID, ifindex, section)

	var firstErr error
	for _, sk := range kindsBySection[section] {
		store.ForallMask(stackID, ifindex, sk.typ, 0xFF, func(h confdata.Handle, c *confdata.Cursor) {
			if firstErr != nil {
				return
			}
			if err := reconcileOne(stack, store, h, c, sk, latest); err != nil {
				firstErr = err
			}
		})
		if firstErr != nil {
			return firstErr
		}
	}

	store.ForallMask(stackID, ifindex, section, confdata.SectionMask, func(h confdata.Handle, c *confdata.Cursor) {
		if h.Timestamp() < latest {
			c.Remove()
		}
	})
	return firstErr
}

func reconcileOne(stack ifstack.Stack, store *confdata.Store, h confdata.Handle, c *confdata.Cursor, sk sectionKind, latest int64) error {
	if h.Timestamp() < latest {
		if store.ClearFlags(h, confdata.ActiveFlag).Is(confdata.ActiveFlag) {
			if err := withdraw(stack, h, sk); err != nil {
				return err
			}
		}
		c.Remove()
		return nil
	}
	if !store.SetFlags(h, confdata.ActiveFlag).Is(confdata.ActiveFlag) {
		return install(stack, h, sk)
	}
	return nil
}

func install(stack ifstack.Stack, h confdata.Handle, sk sectionKind) error {
	switch sk.kind {
	case kindAddr:
		p := h.Payload().(confdata.AddrPayload)
		if err := stack.AddrAdd(h.Ifindex(), sk.family, p.Addr, p.PrefixLen); err != nil {
			return ioerrs.Wrap(component, ioerrs.KindIO, "add address", err)
		}
	case kindRoute:
		gw := routerAddr(h)
		if err := stack.RouteAddDefault(h.Ifindex(), sk.family, gw); err != nil {
			return ioerrs.Wrap(component, ioerrs.KindIO, "add default route", err)
		}
	}
	return nil
}

func withdraw(stack ifstack.Stack, h confdata.Handle, sk sectionKind) error {
	switch sk.kind {
	case kindAddr:
		p := h.Payload().(confdata.AddrPayload)
		if err := stack.AddrDel(h.Ifindex(), sk.family, p.Addr, p.PrefixLen); err != nil {
			return ioerrs.Wrap(component, ioerrs.KindIO, "delete address", err)
		}
	case kindRoute:
		gw := routerAddr(h)
		if err := stack.RouteDelDefault(h.Ifindex(), sk.family, gw); err != nil {
			return ioerrs.Wrap(component, ioerrs.KindIO, "delete default route", err)
		}
	}
	return nil
}

func routerAddr(h confdata.Handle) net.IP {
	return h.Payload().(confdata.RouterPayload).Addr
}

// Clean mints a fresh section timestamp without asserting any new
// records, which makes every existing record in the section stale, then
// runs Update (withdrawing/reaping all of it), then deletes the section
// timestamp record itself so a later ReadTimestamp for this section
// again reports zero.
func Clean(stack ifstack.Stack, store *confdata.Store, stackID confdata.Stack, ifindex uint32, section confdata.Type) error {
	ts := store.NewTimestamp(stackID, ifindex, section)
	store.WriteTimestamp(stackID, ifindex, section, ts)
	err := Update(stack, store, stackID, ifindex, section)
	store.DelTimestamp(stackID, ifindex, section)
	return err
}
