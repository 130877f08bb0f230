// Package ethstage implements the Ethernet bring-up step: optionally
// setting the link MAC, bringing the link up, and letting it settle.
// Grounded on iothconf.c's iothconf_eth/iothconf_cleaneth.
package ethstage

import (
	"net"
	"time"

	"github.com/virtualsquare/iothconf-go/pkg/ifhash"
	"github.com/virtualsquare/iothconf-go/pkg/ifstack"
	"github.com/virtualsquare/iothconf-go/pkg/ioerrs"
	"github.com/virtualsquare/iothconf-go/pkg/logging"
)

const component = logging.ComponentEthstage

// settleDelay is how long the link is given to settle after being
// brought up, matching the original's one-second sleep.
var settleDelay = time.Second

// Options configures a single Ethernet bring-up.
type Options struct {
	// MAC, if non-nil, is set on the interface verbatim.
	MAC net.HardwareAddr
	// FQDN, used only when MAC is nil, derives a deterministic MAC via
	// ifhash.MAC.
	FQDN string
}

// Up brings ifindex's link up, first setting its MAC if requested. No
// confdata records are written by this stage.
func Up(stack ifstack.Stack, ifindex uint32, opts Options) error {
	mac := opts.MAC
	if mac == nil && opts.FQDN != "" {
		mac = ifhash.MAC(opts.FQDN)
	}
	if mac != nil {
		if err := stack.SetInterfaceMAC(ifindex, mac); err != nil {
			return ioerrs.Wrap(component, ioerrs.KindIO, "set interface mac", err)
		}
	}
	if err := stack.SetInterfaceUp(ifindex); err != nil {
		return ioerrs.Wrap(component, ioerrs.KindIO, "set interface up", err)
	}
	time.Sleep(settleDelay)
	return nil
}

// Down brings ifindex's link administratively down, matching
// iothconf_cleaneth.
func Down(stack ifstack.Stack, ifindex uint32) error {
	if err := stack.SetInterfaceDown(ifindex); err != nil {
		return ioerrs.Wrap(component, ioerrs.KindIO, "set interface down", err)
	}
	return nil
}
