/**
 * Polling-Interval Computation.
 *
 * Derived on demand from raw Modbus polling timestamps, never stored
 * incrementally (§4.7). A series needs at least 3 raw timestamps and at
 * least 2 surviving intervals after dropping session-boundary gaps.
 */

package aggregator

import (
	"math"
	"sort"
	"time"

	"github.com/kusanaginokajiki/gridmonitor/internal/models"
)

const sessionBoundary = 60 * time.Second

// computePollingStats derives (avg, min, max, sample_count) for one
// timestamp series, or ok=false if fewer than 2 intervals survive.
func computePollingStats(timestamps []time.Time) (models.PollingStats, bool) {
	if len(timestamps) < 3 {
		return models.PollingStats{}, false
	}

	sorted := append([]time.Time(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var intervals []float64
	for i := 1; i < len(sorted); i++ {
		d := sorted[i].Sub(sorted[i-1])
		if d <= 0 || d >= sessionBoundary {
			continue
		}
		intervals = append(intervals, float64(d.Microseconds())/1000.0)
	}

	if len(intervals) < 2 {
		return models.PollingStats{}, false
	}

	min, max, sum := intervals[0], intervals[0], 0.0
	for _, v := range intervals {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	avg := sum / float64(len(intervals))

	return models.PollingStats{
		AvgMS:       roundTenth(avg),
		MinMS:       roundTenth(min),
		MaxMS:       roundTenth(max),
		SampleCount: len(intervals),
	}, true
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// PollingSeries computes the derived polling-interval summary for every
// (remote, function code, unit) series in a Modbus accumulator with enough
// data, for the anomaly scorer and get_deep_parse_info.
func PollingSeries(info *models.ModbusInfo) map[models.PollingKey]models.PollingStats {
	out := make(map[models.PollingKey]models.PollingStats)
	if info == nil {
		return out
	}
	for key, timestamps := range info.PollingTimestamps {
		if stats, ok := computePollingStats(timestamps); ok {
			out[key] = stats
		}
	}
	return out
}
