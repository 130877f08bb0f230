// Package resolvconf renders a resolv.conf file body from the search
// domains and nameservers currently held in a confdata.Store. Grounded on
// iothconf_dns.c's iothconf_resolvconf: a first pass marks every
// domain/DNS record active and counts how many were newly seen since the
// last render, then — only if that count is nonzero — a second pass
// renders the "search" line (deduplicated across sources) followed by
// "nameserver" lines in static6/static4/dhcp6/dhcp4 order.
package resolvconf

import (
	"strings"

	"github.com/virtualsquare/iothconf-go/pkg/confdata"
)

// dnsOrder is the fixed source precedence the original renders
// "nameserver" lines in.
var dnsOrder = []confdata.Type{
	confdata.StaticDNS6,
	confdata.StaticDNS4,
	confdata.DHCP6DNS,
	confdata.DHCP4DNS,
}

// Render returns the resolv.conf file body for ifindex and reports
// whether anything changed since the last call. When nothing changed
// (no domain or nameserver record was newly asserted since it was last
// marked active), Render returns ("", false): callers should leave the
// file on disk untouched, matching the original's NULL-return sentinel.
func Render(store *confdata.Store, stackID confdata.Stack, ifindex uint32) (string, bool) {
	var updated, domains int

	store.ForallMask(stackID, ifindex, confdata.StaticDomain, confdata.DomainAnySourceMask, func(h confdata.Handle, c *confdata.Cursor) {
		domains++
		if !store.SetFlags(h, confdata.ActiveFlag).Is(confdata.ActiveFlag) {
			updated++
		}
	})
	store.ForallMask(stackID, ifindex, confdata.StaticDNS4, confdata.DNSAnySourceMask, func(h confdata.Handle, c *confdata.Cursor) {
		if !store.SetFlags(h, confdata.ActiveFlag).Is(confdata.ActiveFlag) {
			updated++
		}
	})

	if updated == 0 {
		return "", false
	}

	var b strings.Builder

	if domains > 0 {
		b.WriteString("search")
		seen := make(map[string]bool)
		store.ForallMask(stackID, ifindex, confdata.StaticDomain, confdata.DomainAnySourceMask, func(h confdata.Handle, c *confdata.Cursor) {
			name := h.Payload().(confdata.DomainPayload).Name
			if !seen[name] {
				seen[name] = true
				b.WriteByte(' ')
				b.WriteString(name)
			}
		})
		b.WriteByte('\n')
	}

	for _, typ := range dnsOrder {
		store.Forall(stackID, ifindex, typ, func(h confdata.Handle, c *confdata.Cursor) {
			b.WriteString("nameserver ")
			b.WriteString(h.Payload().(confdata.DNSPayload).Addr.String())
			b.WriteByte('\n')
		})
	}

	return b.String(), true
}
