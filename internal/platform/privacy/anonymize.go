// Package privacy truncates personally identifying values before they reach
// logs or the audit trail.
package privacy

import (
	"fmt"
	"net"
)

// AnonymizeIP masks the host portion of an address: IPv4 keeps the /24
// network (last octet zeroed), IPv6 keeps the /48 prefix. Returns "invalid"
// for unparseable input and "unknown" for empty input.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" {
		return "unknown"
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}

	if v4 := parsed.To4(); v4 != nil {
		return fmt.Sprintf("%d.%d.%d.0", v4[0], v4[1], v4[2])
	}

	return fmt.Sprintf("%02x%02x:%02x%02x:%02x%02x::",
		parsed[0], parsed[1],
		parsed[2], parsed[3],
		parsed[4], parsed[5])
}
