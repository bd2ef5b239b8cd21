package convert

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// expandCIDR rewrites a CIDR range as wildcard patterns for dialects without
// a native CIDR operation. IPv4 prefixes expand to the next octet boundary;
// IPv6 prefixes must sit on a 16-bit group boundary.
func expandCIDR(cidr string) ([]string, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil {
		return nil, err
	}
	if prefix.Addr().Is4() {
		return expandCIDR4(prefix), nil
	}
	return expandCIDR6(prefix)
}

func expandCIDR4(prefix netip.Prefix) []string {
	bits := prefix.Bits()
	if bits >= 32 {
		return []string{prefix.Addr().String()}
	}
	addr := prefix.Masked().Addr().As4()

	fullOctets := bits / 8
	rem := bits % 8
	if rem == 0 {
		return []string{octets(addr[:fullOctets]) + ".*"}
	}

	// A prefix cutting through an octet becomes one pattern per value the
	// partial octet can take.
	count := 1 << (8 - rem)
	base := int(addr[fullOctets])
	patterns := make([]string, 0, count)
	for i := 0; i < count; i++ {
		head := addr
		head[fullOctets] = byte(base + i)
		pattern := octets(head[:fullOctets+1])
		if fullOctets < 3 {
			pattern += ".*"
		}
		patterns = append(patterns, pattern)
	}
	return patterns
}

func expandCIDR6(prefix netip.Prefix) ([]string, error) {
	bits := prefix.Bits()
	if bits >= 128 {
		return []string{prefix.Addr().String()}, nil
	}
	if bits%16 != 0 {
		return nil, fmt.Errorf("IPv6 prefix length %d is not on a 16-bit boundary", bits)
	}
	addr := prefix.Masked().Addr().As16()

	groups := bits / 16
	parts := make([]string, 0, groups+1)
	for g := 0; g < groups; g++ {
		v := uint64(addr[2*g])<<8 | uint64(addr[2*g+1])
		parts = append(parts, strconv.FormatUint(v, 16))
	}
	parts = append(parts, "*")
	return []string{strings.Join(parts, ":")}, nil
}

func octets(bs []byte) string {
	parts := make([]string, len(bs))
	for i, b := range bs {
		parts[i] = strconv.Itoa(int(b))
	}
	return strings.Join(parts, ".")
}
