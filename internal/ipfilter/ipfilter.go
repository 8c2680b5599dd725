// Package ipfilter implements the per-domain client address allow-list.
package ipfilter

import (
	"net/netip"
	"strings"
)

// Allowed reports whether clientIP may pass the allow-list. An empty list
// admits every address. A client address that does not parse is denied.
// Entries are literal addresses or CIDR blocks; matching short-circuits on
// the first hit. Invalid entries never match (the registry rejects them at
// load time).
func Allowed(allowed []string, clientIP string) bool {
	if len(allowed) == 0 {
		return true
	}

	client, err := netip.ParseAddr(strings.TrimSpace(clientIP))
	if err != nil {
		return false
	}
	client = client.Unmap()

	for _, entry := range allowed {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				continue
			}
			if prefix.Contains(client) {
				return true
			}
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			continue
		}
		if addr.Unmap() == client {
			return true
		}
	}
	return false
}
