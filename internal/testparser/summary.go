package testparser

import (
	"encoding/json"
	"time"
)

// BuildSummary appends one failing result per unhandled error to the
// flattened results and computes counts and duration.
//
// Duration is the sum of per-result durations when positive, else the
// module-level durations when positive, else the wall-clock elapsed time.
func BuildSummary(flat Flattened, unhandled []json.RawMessage, requested []string, elapsed time.Duration) RunnerSummary {
	results := make([]TestRunResult, 0, len(flat.Results)+len(unhandled))
	results = append(results, flat.Results...)

	file := UnknownFile
	if len(requested) > 0 {
		file = requested[0]
	}
	for _, raw := range unhandled {
		results = append(results, TestRunResult{
			Name:    UnhandledName,
			File:    file,
			Passed:  false,
			Message: Msg(FormatUnhandled(raw)),
		})
	}

	summary := RunnerSummary{Results: results}
	summary.recount()
	summary.DurationMs = rollupDuration(results, flat.ModuleDurationMs, elapsed)
	return summary
}

func rollupDuration(results []TestRunResult, moduleMs float64, elapsed time.Duration) float64 {
	var sum float64
	for _, r := range results {
		if r.DurationMs > 0 {
			sum += r.DurationMs
		}
	}
	if sum > 0 {
		return sum
	}
	if moduleMs > 0 {
		return moduleMs
	}
	if elapsed > 0 {
		return float64(elapsed) / float64(time.Millisecond)
	}
	return 0
}
