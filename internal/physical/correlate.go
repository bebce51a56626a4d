/**
 * Physical Topology Correlation.
 *
 * Holds the switch/port/VLAN/CDP/ARP/MAC-table model imported from
 * already-parsed vendor CLI output (the Cisco/Juniper/Aruba text parsers
 * themselves are out of scope, §1) and derives the (IP, MAC) -> (switch,
 * port) mapping the aggregator's passive observations need to place a
 * device on the wire (§2.14, §4.14).
 */

package physical

import "github.com/kusanaginokajiki/gridmonitor/internal/models"

// ImportSwitch adds or replaces a switch's port/VLAN inventory.
func ImportSwitch(topo *models.PhysicalTopology, sw models.Switch) {
	topo.Switches[sw.Hostname] = &sw
}

// ImportMacTable appends MAC-table entries learned from one switch's
// "show mac address-table" (or equivalent) output.
func ImportMacTable(topo *models.PhysicalTopology, entries []models.MacTableEntry) {
	topo.MacTable = append(topo.MacTable, entries...)
}

// ImportCdpNeighbors appends CDP/LLDP neighbor relationships.
func ImportCdpNeighbors(topo *models.PhysicalTopology, neighbors []models.CdpNeighbor) {
	topo.Neighbors = append(topo.Neighbors, neighbors...)
}

// ImportArpTable appends ARP entries (IP -> MAC) learned from a switch or
// router.
func ImportArpTable(topo *models.PhysicalTopology, entries []models.ArpEntry) {
	topo.Arp = append(topo.Arp, entries...)
}

// ImportVlanMemberships appends VLAN membership records.
func ImportVlanMemberships(topo *models.PhysicalTopology, memberships []models.VlanMembership) {
	topo.Vlans = append(topo.Vlans, memberships...)
}

// Correlate rebuilds topo.Links by joining the imported ARP table (IP -> MAC)
// against the imported MAC table (MAC -> switch, port): for every ARP entry
// whose MAC appears in exactly the switch the ARP entry names (when given)
// or in any known switch otherwise, a PhysicalLink is emitted. Ambiguous
// MACs (present on more than one switch/port pair) are skipped rather than
// guessed at, since a passive observer cannot disambiguate a MAC move
// in-flight.
func Correlate(topo *models.PhysicalTopology) {
	macLocations := make(map[string][]models.MacTableEntry)
	for _, entry := range topo.MacTable {
		macLocations[normalizeMAC(entry.MAC)] = append(macLocations[normalizeMAC(entry.MAC)], entry)
	}

	var links []models.PhysicalLink
	for _, arp := range topo.Arp {
		mac := normalizeMAC(arp.MAC)
		candidates := macLocations[mac]
		if len(candidates) == 0 {
			continue
		}

		var chosen *models.MacTableEntry
		if arp.Switch != "" {
			for i := range candidates {
				if candidates[i].Switch == arp.Switch {
					chosen = &candidates[i]
					break
				}
			}
		} else if len(candidates) == 1 {
			chosen = &candidates[0]
		}
		if chosen == nil {
			continue
		}

		links = append(links, models.PhysicalLink{
			IPAddress: arp.IPAddress,
			MAC:       arp.MAC,
			Switch:    chosen.Switch,
			Port:      chosen.Port,
			VlanID:    chosen.VlanID,
		})
	}

	topo.Links = links
}

// CorrelateObservation maps one passively-observed (IP, MAC) pair onto a
// (switch, port) using the already-built MAC table, without requiring an
// ARP entry. Used when the aggregator has seen traffic from an IP/MAC pair
// that the imported ARP table never recorded.
func CorrelateObservation(topo *models.PhysicalTopology, ip, mac string) (models.PhysicalLink, bool) {
	normalized := normalizeMAC(mac)
	var match *models.MacTableEntry
	count := 0
	for i := range topo.MacTable {
		if normalizeMAC(topo.MacTable[i].MAC) == normalized {
			match = &topo.MacTable[i]
			count++
		}
	}
	if count != 1 {
		return models.PhysicalLink{}, false
	}
	return models.PhysicalLink{
		IPAddress: ip, MAC: mac, Switch: match.Switch, Port: match.Port, VlanID: match.VlanID,
	}, true
}

func normalizeMAC(mac string) string {
	out := make([]byte, 0, len(mac))
	for i := 0; i < len(mac); i++ {
		c := mac[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out = append(out, c)
	}
	return string(out)
}
