/**
 * Physical Topology Operations.
 *
 * import_cisco_config, import_mac_table, import_cdp_neighbors,
 * import_arp_table, get_physical_topology, clear_physical_topology. The
 * vendor-CLI text parsers are out of scope (§1); these methods accept
 * already-parsed structured records, mirroring the ingest boundary.
 */

package command

import (
	"github.com/kusanaginokajiki/gridmonitor/internal/models"
	"github.com/kusanaginokajiki/gridmonitor/internal/physical"
)

// ImportCiscoConfig answers import_cisco_config: registers one switch's
// parsed inventory (hostname, model, ports/VLANs).
func (s *Surface) ImportCiscoConfig(sw models.Switch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	physical.ImportSwitch(s.physical, sw)
	return nil
}

// ImportMacTable answers import_mac_table(hostname): entries is the
// already-parsed "show mac address-table" output for hostname.
func (s *Surface) ImportMacTable(hostname string, entries []models.MacTableEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range entries {
		entries[i].Switch = hostname
	}
	physical.ImportMacTable(s.physical, entries)
	physical.Correlate(s.physical)
	return nil
}

// ImportCdpNeighbors answers import_cdp_neighbors(hostname).
func (s *Surface) ImportCdpNeighbors(hostname string, neighbors []models.CdpNeighbor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range neighbors {
		neighbors[i].LocalSwitch = hostname
	}
	physical.ImportCdpNeighbors(s.physical, neighbors)
	return nil
}

// ImportArpTable answers import_arp_table.
func (s *Surface) ImportArpTable(entries []models.ArpEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	physical.ImportArpTable(s.physical, entries)
	physical.Correlate(s.physical)
	return nil
}

// GetPhysicalTopology answers get_physical_topology.
func (s *Surface) GetPhysicalTopology() (models.PhysicalTopology, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.physical, nil
}

// ClearPhysicalTopology answers clear_physical_topology.
func (s *Surface) ClearPhysicalTopology() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.physical = models.NewPhysicalTopology()
	return nil
}
