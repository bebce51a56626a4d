/**
 * MAC Address Vendor Lookup.
 *
 * Resolves MAC address OUI prefixes to manufacturer names to identify
 * the hardware vendor of network devices.
 */

package enricher

import (
	"bufio"
	"os"
	"strings"
	"sync"
)

// VendorLookup handles MAC address to Vendor resolution.
type VendorLookup struct {
	ouiMap map[string]string
	mu     sync.RWMutex
}

// NewVendorLookup initializes the lookup service with a common list of vendors.
func NewVendorLookup() *VendorLookup {
	vl := &VendorLookup{
		ouiMap: make(map[string]string),
	}
	vl.loadDefaults()
	return vl
}

// Lookup resolves the vendor name for a given MAC address.
func (vl *VendorLookup) Lookup(mac string) string {
	// Normalize MAC: remove colons/dashes, uppercase
	cleanMac := strings.ReplaceAll(strings.ReplaceAll(strings.ToUpper(mac), ":", ""), "-", "")

	if len(cleanMac) < 6 {
		return ""
	}

	prefix := cleanMac[:6]

	vl.mu.RLock()
	defer vl.mu.RUnlock()

	if vendor, ok := vl.ouiMap[prefix]; ok {
		return vendor
	}
	return ""
}

// loadDefaults populates the map with a fallback OUI table centered on
// ICS/SCADA field-device and control-system manufacturers — the vendor
// identifications an assessment actually cares about — plus a small set of
// general-purpose IT/virtualization prefixes so engineering workstations and
// servers on the same network still resolve to something. A real OUI
// database loaded via LoadFile takes precedence over every entry here.
func (vl *VendorLookup) loadDefaults() {
	defaults := map[string]string{
		// Siemens (SIMATIC S7 PLCs, HMIs)
		"000E8C": "Siemens", "001B1B": "Siemens", "080006": "Siemens", "28637D": "Siemens",

		// Rockwell Automation / Allen-Bradley (ControlLogix, PLC-5)
		"00001D": "Allen-Bradley/Rockwell", "001D9C": "Allen-Bradley/Rockwell", "1C9D3A": "Allen-Bradley/Rockwell",

		// Schneider Electric / Modicon (Modbus PLCs, PME)
		"0080F4": "Schneider Electric", "00800F": "Schneider Electric", "00A010": "Schneider Electric",

		// Mitsubishi Electric (MELSEC PLCs)
		"001CA8": "Mitsubishi Electric",

		// Omron (SYSMAC PLCs)
		"00000A": "Omron",

		// GE Intelligent Platforms / GE Fanuc (RTUs, historian servers)
		"000B46": "GE Intelligent Platforms", "DC996D": "GE Intelligent Platforms",

		// Honeywell (DCS controllers, field instruments)
		"0004A3": "Honeywell", "0080C2": "Honeywell",

		// ABB (RTUs, protection relays)
		"0090FB": "ABB",

		// Moxa (serial-to-Ethernet gateways, common on OT networks)
		"0090E8": "Moxa",

		// Phoenix Contact (remote I/O, PLCs)
		"00A045": "Phoenix Contact",

		// WAGO (remote I/O controllers)
		"0030DE": "WAGO",

		// Beckhoff Automation (EtherCAT controllers)
		"000105": "Beckhoff",

		// Hirschmann (industrial Ethernet switches)
		"008063": "Hirschmann",

		// National Instruments (data acquisition, test controllers)
		"00802F": "National Instruments",

		// Advantech (industrial computers, gateways)
		"00D0C9": "Advantech",

		// Yokogawa Electric (DCS, flow/process instruments)
		"000064": "Yokogawa",

		// General IT/virtualization — non-OT hosts sharing the network.
		"00000C": "Cisco", "005056": "VMware", "000C29": "VMware", "B827EB": "Raspberry Pi",
	}

	for k, v := range defaults {
		vl.ouiMap[k] = v
	}
}

// LoadFile merges an OUI database in the TSV form "PREFIX\tVENDOR" (prefix
// as "AA:BB:CC" in either case) into the lookup, per §6. Blank lines and
// lines starting with '#' are skipped. Entries loaded this way take
// precedence over the built-in defaults.
func (vl *VendorLookup) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	vl.mu.Lock()
	defer vl.mu.Unlock()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		prefix := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(fields[0])), ":", "")
		vendor := strings.TrimSpace(fields[1])
		if len(prefix) != 6 || vendor == "" {
			continue
		}
		vl.ouiMap[prefix] = vendor
	}
	return scanner.Err()
}
