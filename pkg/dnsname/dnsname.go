// Package dnsname implements the RFC 1035 domain-name wire encoding used
// by the DHCPv6 FQDN and Domain-List options. Grounded on iothconf_dns.c's
// iothconf_domain2mstr.
package dnsname

import (
	"fmt"
	"strings"
)

// EncodeRFC1035 encodes a single dot-separated name as a sequence of
// length-prefixed labels terminated by a zero-length label.
func EncodeRFC1035(name string) ([]byte, error) {
	name = strings.TrimSuffix(name, ".")
	var out []byte
	if name != "" {
		for _, label := range strings.Split(name, ".") {
			if len(label) == 0 || len(label) > 63 {
				return nil, fmt.Errorf("dnsname: invalid label %q in %q", label, name)
			}
			out = append(out, byte(len(label)))
			out = append(out, label...)
		}
	}
	out = append(out, 0)
	return out, nil
}

// isCompressionPointer reports whether a length byte is actually the
// first byte of an RFC 1035 compression pointer (top two bits set). The
// original C client has no message to point into and simply treats any
// such byte as a zero-length (name-terminating) label; this keeps the
// same behavior rather than resolving the pointer.
func isCompressionPointer(length byte) bool { return length&0xc0 == 0xc0 }

// DecodeRFC1035List decodes a concatenated sequence of RFC 1035-encoded
// domain names (as sent in the DHCPv6 Domain-List option, or the DHCPv4
// DOMAIN option split on its own terminator) into a slice of dotted
// names. Compression pointers are treated as a name terminator, matching
// the original decoder's simplification.
func DecodeRFC1035List(data []byte) ([]string, error) {
	var names []string
	var cur strings.Builder

	i := 0
	for i < len(data) {
		length := data[i]
		i++

		if isCompressionPointer(length) {
			if cur.Len() > 0 {
				names = append(names, cur.String())
				cur.Reset()
			}
			continue
		}
		if length == 0 {
			if cur.Len() > 0 {
				names = append(names, cur.String())
				cur.Reset()
			}
			continue
		}
		if i+int(length) > len(data) {
			return nil, fmt.Errorf("dnsname: truncated label at offset %d", i-1)
		}
		if cur.Len() > 0 {
			cur.WriteByte('.')
		}
		cur.WriteString(string(data[i : i+int(length)]))
		i += int(length)
	}
	if cur.Len() > 0 {
		names = append(names, cur.String())
	}
	return names, nil
}
