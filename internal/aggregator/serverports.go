/**
 * Known OT Server Ports.
 *
 * The port set used to populate the per-IP "server" fact (§4.7) and to
 * recognize L1 server-port behavior in Purdue assignment (§4.10).
 */

package aggregator

var knownServerPorts = map[uint16]struct{}{
	102:   {},
	502:   {},
	2222:  {},
	2404:  {},
	20000: {},
	34962: {}, 34963: {}, 34964: {},
	44818: {},
}

// isKnownServerPort reports whether port is in the OT server-port set.
func isKnownServerPort(port uint16) bool {
	_, ok := knownServerPorts[port]
	return ok
}
