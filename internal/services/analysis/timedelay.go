package analysis

import (
	"sort"
	"strings"

	"github.com/ternarybob/tento/internal/models"
)

// delayFunctions are the database sleep primitives whose presence in a
// payload places the result in the delay partition.
var delayFunctions = []string{
	"SLEEP",
	"WAITFOR",
	"BENCHMARK",
	"pg_sleep",
	"dbms_pipe.receive_message",
}

const (
	partitionDefault = "default"
	partitionDelay   = "sql_delay"
)

// partitionOf assigns a result to the delay partition when any of its
// payload values contains a known sleep primitive.
func partitionOf(result *models.JobResult) string {
	for _, payload := range result.Provenance.Values() {
		lower := strings.ToLower(payload)
		for _, fn := range delayFunctions {
			if strings.Contains(lower, strings.ToLower(fn)) {
				return partitionDelay
			}
		}
	}
	return partitionDefault
}

// baselineOf reduces a partition's elapsed times to a single baseline.
// The slice must be non-empty and is sorted in place for the median.
func baselineOf(elapsed []float64, method string) float64 {
	switch method {
	case models.BaselineFirstRequest:
		return elapsed[0]
	case models.BaselineMean:
		sum := 0.0
		for _, v := range elapsed {
			sum += v
		}
		return sum / float64(len(elapsed))
	default: // median
		sorted := make([]float64, len(elapsed))
		copy(sorted, elapsed)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2
		}
		return sorted[mid]
	}
}

// timeDelayPass walks the collected results, computes per-partition
// baselines over successful exchanges, and flags everything that
// exceeds baseline plus threshold.
func timeDelayPass(results []*models.JobResult, cfg models.TimeDelayConfig) *models.TimeDelayReport {
	report := &models.TimeDelayReport{
		Config:    cfg,
		Baselines: map[string]float64{},
		Findings:  []models.TimeDelayFinding{},
	}

	// Elapsed times in ordinal order, partitioned. first_request means
	// the first successful result of each partition.
	partitions := map[string][]float64{}
	for _, result := range results {
		if !result.Success || result.Response == nil {
			continue
		}
		key := partitionDefault
		if cfg.PartitionByPayload {
			key = partitionOf(result)
		}
		partitions[key] = append(partitions[key], result.Response.ElapsedTime)
	}
	for key, elapsed := range partitions {
		report.Baselines[key] = baselineOf(elapsed, cfg.BaselineMethod)
	}

	var flagged []models.TimeDelayFinding
	for _, result := range results {
		if !result.Success || result.Response == nil {
			continue
		}
		key := partitionDefault
		if cfg.PartitionByPayload {
			key = partitionOf(result)
		}
		baseline := report.Baselines[key]
		elapsed := result.Response.ElapsedTime
		if elapsed < baseline+cfg.TimeThreshold {
			continue
		}
		finding := models.TimeDelayFinding{
			Ordinal:  result.Ordinal,
			Payload:  payloadOf(result),
			Elapsed:  elapsed,
			Baseline: baseline,
			Delta:    elapsed - baseline,
		}
		if cfg.PartitionByPayload {
			finding.Partition = key
		}
		flagged = append(flagged, finding)
	}

	report.TotalResults = len(results)
	report.FlaggedCount = len(flagged)

	sort.SliceStable(flagged, func(i, j int) bool {
		return flagged[i].Elapsed > flagged[j].Elapsed
	})
	top := cfg.TopSlowest
	if top <= 0 {
		top = 10
	}
	if len(flagged) > top {
		flagged = flagged[:top]
	}
	report.Findings = flagged
	return report
}
