package orchestrator

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/virtualsquare/iothconf-go/pkg/confdata"
	"github.com/virtualsquare/iothconf-go/pkg/dhcp4"
	"github.com/virtualsquare/iothconf-go/pkg/dhcp6"
	"github.com/virtualsquare/iothconf-go/pkg/ethstage"
	"github.com/virtualsquare/iothconf-go/pkg/ifstack"
	"github.com/virtualsquare/iothconf-go/pkg/ioerrs"
	"github.com/virtualsquare/iothconf-go/pkg/logging"
	"github.com/virtualsquare/iothconf-go/pkg/rdisc"
	"github.com/virtualsquare/iothconf-go/pkg/reconcile"
)

// defaultInterface is used when a directive names neither iface= nor
// ifindex=, matching the original's DEFAULT_INTERFACE ("vde0").
const defaultInterface = "vde0"

// Run resolves d's interface, executes its Clean sections, then its
// Acquire sections, in the same order ioth_config does (static, RD,
// DHCPv6, DHCPv4 cleaned; Ethernet, RD, DHCPv6, DHCPv4, static
// acquired), and returns the bitmask of sections that completed
// successfully. Unlike the original, each successful acquisition
// reconciles its own section immediately rather than relying on a
// per-protocol wrapper to do it.
//
// Pre-flight failures (an unresolvable interface, a malformed MAC) and
// failures of the clean phase (reconcile.Clean, ethstage.Down) are fatal
// and returned as an error. A protocol source that fails
// during acquisition — timeout, NAK, unexpected wire content — simply
// omits its bit from the returned mask; the remaining sources still
// run, matching the propagation policy that distinguishes pre-flight
// INVALID_INPUT/NODEV failures from per-source acquisition failures.
func Run(ctx context.Context, stack ifstack.Stack, store *confdata.Store, stackID confdata.Stack, d *Directive) (Flags, error) {
	ifindex := d.Ifindex
	if ifindex == 0 {
		iface := d.Iface
		if iface == "" {
			iface = defaultInterface
		}
		idx, err := stack.InterfaceByName(iface)
		if err != nil {
			return 0, ioerrs.Wrap(component, ioerrs.KindNoDevice, "resolve interface", err)
		}
		ifindex = idx
	}

	if d.Clean.Has(FlagStatic) {
		if err := reconcile.Clean(stack, store, stackID, ifindex, confdata.TimestampStatic); err != nil {
			return 0, err
		}
	}
	if d.Clean.Has(FlagRD) {
		if err := reconcile.Clean(stack, store, stackID, ifindex, confdata.TimestampRD); err != nil {
			return 0, err
		}
	}
	if d.Clean.Has(FlagDHCP6) {
		if err := reconcile.Clean(stack, store, stackID, ifindex, confdata.TimestampDHCP6); err != nil {
			return 0, err
		}
	}
	if d.Clean.Has(FlagDHCP4) {
		if err := reconcile.Clean(stack, store, stackID, ifindex, confdata.TimestampDHCP4); err != nil {
			return 0, err
		}
	}
	if len(d.StaticRemove) > 0 {
		removeStaticEntries(stack, store, stackID, ifindex, d.StaticRemove)
	}
	if d.Clean.Has(FlagEth) {
		if err := ethstage.Down(stack, ifindex); err != nil {
			return 0, err
		}
	}

	var applied Flags

	if d.Acquire.Has(FlagEth) {
		var mac net.HardwareAddr
		if d.MAC != "" {
			m, err := net.ParseMAC(d.MAC)
			if err != nil {
				return applied, ioerrs.Wrap(component, ioerrs.KindInvalidInput, "parse mac", err)
			}
			mac = m
		}
		if err := ethstage.Up(stack, ifindex, ethstage.Options{MAC: mac, FQDN: d.FQDN}); err != nil {
			logging.Warning("%s: ethernet bring-up failed: %v", component, err)
		} else {
			applied |= FlagEth
		}
	}

	if d.Acquire.Has(FlagRD) {
		err := rdisc.Acquire(ctx, stack, store, stackID, ifindex, rdisc.Options{FQDN: d.FQDN, SLAAC: d.Acquire.Has(FlagRDSLAAC)})
		if err != nil {
			logging.Warning("%s: router discovery failed: %v", component, err)
		} else if err := reconcile.Update(stack, store, stackID, ifindex, confdata.TimestampRD); err != nil {
			logging.Warning("%s: router discovery reconcile failed: %v", component, err)
		} else {
			applied |= FlagRD
		}
	}

	if d.Acquire.Has(FlagDHCP6) {
		err := dhcp6.Acquire(ctx, stack, store, stackID, ifindex, dhcp6.Options{FQDN: d.FQDN})
		if err != nil {
			logging.Warning("%s: dhcp6 acquire failed: %v", component, err)
		} else if err := reconcile.Update(stack, store, stackID, ifindex, confdata.TimestampDHCP6); err != nil {
			logging.Warning("%s: dhcp6 reconcile failed: %v", component, err)
		} else {
			applied |= FlagDHCP6
		}
	}

	if d.Acquire.Has(FlagDHCP4) {
		err := dhcp4.Acquire(ctx, stack, store, stackID, ifindex, dhcp4.Options{FQDN: d.FQDN})
		if err != nil {
			logging.Warning("%s: dhcp4 acquire failed: %v", component, err)
		} else if err := reconcile.Update(stack, store, stackID, ifindex, confdata.TimestampDHCP4); err != nil {
			logging.Warning("%s: dhcp4 reconcile failed: %v", component, err)
		} else {
			applied |= FlagDHCP4
		}
	}

	if d.Acquire.Has(FlagStatic) {
		if err := applyStatic(store, stackID, ifindex, d.Static); err != nil {
			logging.Warning("%s: static apply failed: %v", component, err)
		} else if err := reconcile.Update(stack, store, stackID, ifindex, confdata.TimestampStatic); err != nil {
			logging.Warning("%s: static reconcile failed: %v", component, err)
		} else {
			applied |= FlagStatic
		}
	}

	logging.Protocol(component, "directive applied: acquired=%s", flagsString(applied))
	return applied, nil
}

// applyStatic writes the ip=/gw=/dns=/domain= entries of a directive into
// the store under a freshly minted static section timestamp, grounded on
// iothconf_static's tag-by-tag scan.
func applyStatic(store *confdata.Store, stackID confdata.Stack, ifindex uint32, entries []StaticEntry) error {
	ts := store.NewTimestamp(stackID, ifindex, confdata.TimestampStatic)

	for _, e := range entries {
		switch e.Tag {
		case "ip":
			addr, prefix, ok := parseAddrPrefix(e.Value)
			if !ok {
				continue
			}
			if v4 := addr.To4(); v4 != nil {
				if prefix == 0 {
					prefix = 24
				}
				store.Add(stackID, ifindex, confdata.StaticAddr4, ts, 0, confdata.AddrPayload{
					Addr: v4, PrefixLen: prefix, PreferredLifetime: confdata.InfiniteLifetime, ValidLifetime: confdata.InfiniteLifetime,
				})
			} else {
				if prefix == 0 {
					prefix = 64
				}
				store.Add(stackID, ifindex, confdata.StaticAddr6, ts, 0, confdata.AddrPayload{
					Addr: addr, PrefixLen: prefix, PreferredLifetime: confdata.InfiniteLifetime, ValidLifetime: confdata.InfiniteLifetime,
				})
			}
		case "gw":
			addr := net.ParseIP(e.Value)
			if addr == nil {
				continue
			}
			if v4 := addr.To4(); v4 != nil {
				store.Add(stackID, ifindex, confdata.StaticRouter4, ts, 0, confdata.RouterPayload{Addr: v4})
			} else {
				store.Add(stackID, ifindex, confdata.StaticRouter6, ts, 0, confdata.RouterPayload{Addr: addr})
			}
		case "dns":
			addr := net.ParseIP(e.Value)
			if addr == nil {
				continue
			}
			if v4 := addr.To4(); v4 != nil {
				store.Add(stackID, ifindex, confdata.StaticDNS4, ts, 0, confdata.DNSPayload{Addr: v4})
			} else {
				store.Add(stackID, ifindex, confdata.StaticDNS6, ts, 0, confdata.DNSPayload{Addr: addr})
			}
		case "domain":
			if e.Value == "" {
				continue
			}
			store.Add(stackID, ifindex, confdata.StaticDomain, ts, 0, confdata.DomainPayload{Name: e.Value})
		}
	}

	store.WriteTimestamp(stackID, ifindex, confdata.TimestampStatic, ts)
	return nil
}

// removeStaticEntries deletes the static records matching entries by
// value, withdrawing any that were already installed in the stack. This
// has no analogue in iothconf_static, which only ever adds; the
// directive grammar's -ip=/-gw=/-dns=/-domain= tags require a targeted
// removal rather than the whole-section reconcile.Clean path.
func removeStaticEntries(stack ifstack.Stack, store *confdata.Store, stackID confdata.Stack, ifindex uint32, entries []StaticEntry) {
	for _, e := range entries {
		switch e.Tag {
		case "ip":
			addrStr, _, _ := strings.Cut(e.Value, "/")
			addr := net.ParseIP(addrStr)
			if addr == nil {
				continue
			}
			typ, family := confdata.StaticAddr6, ifstack.IPv6
			if addr.To4() != nil {
				typ, family = confdata.StaticAddr4, ifstack.IPv4
			}
			store.Forall(stackID, ifindex, typ, func(h confdata.Handle, c *confdata.Cursor) {
				p := h.Payload().(confdata.AddrPayload)
				if !p.Addr.Equal(addr) {
					return
				}
				if h.Flags()&confdata.ActiveFlag != 0 {
					_ = stack.AddrDel(ifindex, family, p.Addr, p.PrefixLen)
				}
				c.Remove()
			})
		case "gw":
			addr := net.ParseIP(e.Value)
			if addr == nil {
				continue
			}
			typ, family := confdata.StaticRouter6, ifstack.IPv6
			if addr.To4() != nil {
				typ, family = confdata.StaticRouter4, ifstack.IPv4
			}
			store.Forall(stackID, ifindex, typ, func(h confdata.Handle, c *confdata.Cursor) {
				p := h.Payload().(confdata.RouterPayload)
				if !p.Addr.Equal(addr) {
					return
				}
				if h.Flags()&confdata.ActiveFlag != 0 {
					_ = stack.RouteDelDefault(ifindex, family, p.Addr)
				}
				c.Remove()
			})
		case "dns":
			addr := net.ParseIP(e.Value)
			if addr == nil {
				continue
			}
			typ := confdata.StaticDNS6
			if addr.To4() != nil {
				typ = confdata.StaticDNS4
			}
			store.Forall(stackID, ifindex, typ, func(h confdata.Handle, c *confdata.Cursor) {
				p := h.Payload().(confdata.DNSPayload)
				if p.Addr.Equal(addr) {
					c.Remove()
				}
			})
		case "domain":
			store.Forall(stackID, ifindex, confdata.StaticDomain, func(h confdata.Handle, c *confdata.Cursor) {
				if h.Payload().(confdata.DomainPayload).Name == e.Value {
					c.Remove()
				}
			})
		}
	}
}

// parseAddrPrefix splits "addr" or "addr/prefix" the way the original's
// inet_pton-plus-strchr('/') scan does.
func parseAddrPrefix(s string) (net.IP, int, bool) {
	addrStr, prefixStr, hasPrefix := strings.Cut(s, "/")
	addr := net.ParseIP(addrStr)
	if addr == nil {
		return nil, 0, false
	}
	if !hasPrefix {
		return addr, 0, true
	}
	prefix, err := strconv.Atoi(prefixStr)
	if err != nil {
		return addr, 0, true
	}
	return addr, prefix, true
}

func flagsString(f Flags) string {
	var parts []string
	if f.Has(FlagEth) {
		parts = append(parts, "eth")
	}
	if f.Has(FlagRD) {
		parts = append(parts, "rd")
	}
	if f.Has(FlagDHCP6) {
		parts = append(parts, "dhcp6")
	}
	if f.Has(FlagDHCP4) {
		parts = append(parts, "dhcp4")
	}
	if f.Has(FlagStatic) {
		parts = append(parts, "static")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}
