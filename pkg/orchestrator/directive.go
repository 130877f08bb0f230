// Package orchestrator parses a single configuration directive string and
// drives the acquisition/cleaning/reconciliation sequence it describes.
// Grounded on iothconf.c's ioth_config: directive parsing mirrors its
// stropt tag[=value] tokenizing and STRCASE keyword switch; Run mirrors
// its clean-then-acquire ordering (static, RD, DHCPv6, DHCPv4 cleaned in
// that order; Ethernet, RD, DHCPv6, DHCPv4, static acquired in that
// order), generalized so each successful acquisition immediately
// reconciles its own section instead of the original's per-protocol
// wrapper doing it. The -ip=/-gw=/-dns=/-domain= removal tags have no
// counterpart in the original (iothconf_static only ever adds); Run
// applies them as targeted value-match deletions instead of a
// whole-section clean.
package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/virtualsquare/iothconf-go/pkg/ioerrs"
)

const component = "orchestrator"

// Flags is a bitmask of the acquisition/clean sections a directive names.
type Flags uint8

const (
	FlagStatic  Flags = 1 << 0
	FlagEth     Flags = 1 << 1
	FlagDHCP4   Flags = 1 << 2
	FlagDHCP6   Flags = 1 << 3
	FlagRD      Flags = 1 << 4
	FlagRDSLAAC Flags = 1 << 5
)

// Has reports whether f has every bit of other set.
func (f Flags) Has(other Flags) bool { return f&other == other }

// StaticEntry is one ip=/gw=/dns=/domain= assignment from a directive,
// preserved in the order it appeared (the original re-scans the same
// tag/arg list a second time inside iothconf_static, in order).
type StaticEntry struct {
	Tag   string // "ip", "gw", "dns", or "domain"
	Value string
}

// Directive is a fully parsed configuration request.
type Directive struct {
	Acquire Flags
	Clean   Flags

	FQDN    string
	Iface   string
	Ifindex uint32
	MAC     string
	Debug   bool

	Static       []StaticEntry
	StaticRemove []StaticEntry
}

// ParseDirective tokenizes a comma-separated "tag" or "tag=value" list
// into a Directive. Unknown tags are rejected, matching the original's
// strict EINVAL-on-default behavior.
func ParseDirective(s string) (*Directive, error) {
	d := &Directive{}
	if strings.TrimSpace(s) == "" {
		return nil, ioerrs.New(component, ioerrs.KindInvalidInput, "empty directive")
	}

	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		tag, value, _ := strings.Cut(field, "=")
		tag = strings.ToLower(strings.TrimSpace(tag))
		value = strings.TrimSpace(value)

		switch tag {
		case "eth":
			d.Acquire |= FlagEth
		case "dhcp", "dhcp4", "dhcpv4":
			d.Acquire |= FlagDHCP4
		case "dhcp6", "dhcpv6":
			d.Acquire |= FlagDHCP6
		case "rd", "rd6":
			d.Acquire |= FlagRD
		case "slaac":
			d.Acquire |= FlagRDSLAAC
		case "auto":
			d.Acquire |= FlagEth | FlagDHCP4 | FlagDHCP6 | FlagRD
		case "auto4", "autov4":
			d.Acquire |= FlagEth | FlagDHCP4
		case "auto6", "autov6":
			d.Acquire |= FlagEth | FlagDHCP6 | FlagRD

		case "-static":
			d.Clean |= FlagStatic
		case "-eth":
			d.Clean |= FlagEth
		case "-dhcp", "-dhcp4", "-dhcpv4":
			d.Clean |= FlagDHCP4
		case "-dhcp6", "-dhcpv6":
			d.Clean |= FlagDHCP6
		case "-rd", "-rd6":
			d.Clean |= FlagRD
		case "-auto", "-all":
			d.Clean |= FlagEth | FlagDHCP4 | FlagDHCP6 | FlagRD
		case "-auto4", "-autov4":
			d.Clean |= FlagEth | FlagDHCP4
		case "-auto6", "-autov6":
			d.Clean |= FlagEth | FlagDHCP6 | FlagRD

		case "fqdn":
			d.FQDN = value
		case "iface":
			d.Iface = value
		case "ifindex":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return nil, ioerrs.Wrap(component, ioerrs.KindInvalidInput, "parse ifindex", err)
			}
			d.Ifindex = uint32(n)
		case "mac", "macaddr":
			d.MAC = value
		case "ip", "gw", "dns", "domain":
			d.Acquire |= FlagStatic
			d.Static = append(d.Static, StaticEntry{Tag: tag, Value: value})
		case "-ip", "-gw", "-dns", "-domain":
			d.StaticRemove = append(d.StaticRemove, StaticEntry{Tag: strings.TrimPrefix(tag, "-"), Value: value})
		case "debug":
			d.Debug = true

		default:
			return nil, ioerrs.New(component, ioerrs.KindInvalidInput, fmt.Sprintf("unknown directive tag %q", tag))
		}
	}
	return d, nil
}
