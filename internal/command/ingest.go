/**
 * Ingest Operations.
 *
 * import_zeek_logs, import_suricata_eve, import_nmap_xml,
 * import_masscan_json: read the named file(s), parse them with
 * internal/ingest's readers, and fold the result into the aggregator's
 * current view via the merge step. The merged snapshot is re-seeded back
 * into the aggregator the same way load_session restores one, since
 * ingest-derived facts don't come from live packet inference and must
 * survive further capture the same way a manual edit does.
 */

package command

import (
	"os"

	"github.com/kusanaginokajiki/gridmonitor/internal/apperr"
	"github.com/kusanaginokajiki/gridmonitor/internal/ingest"
)

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidFormat, "failed to read "+path, err)
	}
	return data, nil
}

// ImportZeekLogs answers import_zeek_logs(paths[]).
func (s *Surface) ImportZeekLogs(paths []string) (ingest.Result, error) {
	var total ingest.Result
	for _, path := range paths {
		raw, err := readFile(path)
		if err != nil {
			return total, err
		}
		records, err := ingest.ParseZeekConnLog(raw)
		if err != nil {
			return total, err
		}

		s.mu.Lock()
		snapshot := s.agg.Snapshot()
		merged, result := ingest.MergeZeek(snapshot, records)
		s.agg = s.agg.ReplacedWith(merged)
		s.mu.Unlock()

		total.NewAssets += result.NewAssets
		total.NewConnections += result.NewConnections
		total.FilledFields += result.FilledFields
	}
	return total, nil
}

// ImportSuricataEve answers import_suricata_eve(path).
func (s *Surface) ImportSuricataEve(path string) (ingest.Result, error) {
	raw, err := readFile(path)
	if err != nil {
		return ingest.Result{}, err
	}
	events, err := ingest.ParseSuricataEve(raw)
	if err != nil {
		return ingest.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.agg.Snapshot()
	merged, result := ingest.MergeSuricata(snapshot, events)
	s.agg = s.agg.ReplacedWith(merged)
	return result, nil
}

// ImportNmapXML answers import_nmap_xml(path).
func (s *Surface) ImportNmapXML(path string) (ingest.Result, error) {
	raw, err := readFile(path)
	if err != nil {
		return ingest.Result{}, err
	}
	hosts, err := ingest.ParseNmapXML(raw)
	if err != nil {
		return ingest.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.agg.Snapshot()
	merged, result := ingest.MergeNmap(snapshot, hosts)
	s.agg = s.agg.ReplacedWith(merged)
	return result, nil
}

// ImportMasscanJSON answers import_masscan_json(path).
func (s *Surface) ImportMasscanJSON(path string) (ingest.Result, error) {
	raw, err := readFile(path)
	if err != nil {
		return ingest.Result{}, err
	}
	results, err := ingest.ParseMasscanJSON(raw)
	if err != nil {
		return ingest.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.agg.Snapshot()
	merged, result := ingest.MergeMasscan(snapshot, results)
	s.agg = s.agg.ReplacedWith(merged)
	return result, nil
}
