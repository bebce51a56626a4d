/**
 * Public-IP Predicate.
 *
 * Reports whether an address is globally routable, for gating GeoIP lookups
 * and the "unexpected public IP on OT" anomaly. Built on net.IP's own
 * classification methods where they cover the required ranges; the two
 * ranges net.IP doesn't carry a method for (IPv4 CGN 100.64/10 and the
 * 0.0.0.0/8 "this network" block) are checked directly.
 */

package enricher

import "net"

var cgnBlock = mustParseCIDR("100.64.0.0/10")
var thisNetworkBlock = mustParseCIDR("0.0.0.0/8")

func mustParseCIDR(s string) *net.IPNet {
	_, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	return n
}

// IsPublicIP reports whether ipStr is globally routable. Unparseable input
// returns false.
func IsPublicIP(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}

	if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() || ip.IsMulticast() || ip.IsUnspecified() {
		return false
	}

	if v4 := ip.To4(); v4 != nil {
		if cgnBlock.Contains(v4) || thisNetworkBlock.Contains(v4) {
			return false
		}
		if v4.Equal(net.IPv4bcast) {
			return false
		}
	}

	return true
}
