package edge

import (
	"net/netip"
	"strings"
)

// NormalizeIP accepts a bare IP or an address with a port ("192.0.2.4:1234",
// "[2001:db8::1]:443") and returns the canonical IP without zone.
func NormalizeIP(raw string) (netip.Addr, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return netip.Addr{}, false
	}
	if addrPort, err := netip.ParseAddrPort(raw); err == nil {
		addr := addrPort.Addr().WithZone("").Unmap()
		return addr, addr.IsValid()
	}
	if addr, err := netip.ParseAddr(raw); err == nil {
		addr = addr.WithZone("").Unmap()
		return addr, addr.IsValid()
	}
	if strings.HasPrefix(raw, "[") && strings.Contains(raw, "]") {
		host := raw[1:strings.LastIndex(raw, "]")]
		if addr, err := netip.ParseAddr(host); err == nil {
			addr = addr.WithZone("").Unmap()
			return addr, addr.IsValid()
		}
	}
	return netip.Addr{}, false
}
