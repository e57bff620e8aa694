// Package testparser normalizes the engine's task tree into the host's test summary.
package testparser

// Placeholders used when the engine leaves a field empty.
const (
	UnnamedTest     = "<unnamed test>"
	UnknownFile     = "<unknown file>"
	UnhandledName   = "[unhandled]"
	NoDetailsReason = "Test reported a failure without additional details."
	UnknownError    = "Unknown error"
)

// TestRunResult is the outcome of a single test case, or of one unhandled error.
type TestRunResult struct {
	Name       string  `json:"name"`
	File       string  `json:"file"`
	Passed     bool    `json:"passed"`
	Message    *string `json:"message"` // nil when passed
	DurationMs float64 `json:"durationMs"`
}

// RunnerSummary is the normalized result of one invocation.
type RunnerSummary struct {
	Passed     int             `json:"passed"`
	Failed     int             `json:"failed"`
	Total      int             `json:"total"`
	DurationMs float64         `json:"durationMs"`
	Results    []TestRunResult `json:"results"`
}

// EmptySummary returns the summary for a run with no files.
func EmptySummary() RunnerSummary {
	return RunnerSummary{Results: []TestRunResult{}}
}

// FailedResults returns the failing results in order.
func (s *RunnerSummary) FailedResults() []TestRunResult {
	var failed []TestRunResult
	for _, r := range s.Results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// recount recomputes the counts from Results.
func (s *RunnerSummary) recount() {
	s.Passed, s.Failed = 0, 0
	for _, r := range s.Results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	s.Total = len(s.Results)
}

// Msg returns a pointer to message, for building failing results.
func Msg(message string) *string {
	return &message
}
