package lang

import "github.com/dshills/guide/internal/spec"

// reportLine is the subset of a pytest-reportlog record we consume.
type reportLine struct {
	ReportType string   `json:"$report_type"`
	NodeID     string   `json:"nodeid"`
	When       string   `json:"when"`
	Outcome    string   `json:"outcome"`
	Duration   *float64 `json:"duration"`
}

// loadReportLog reads a pytest-reportlog file. Only call-phase TestReport
// records become results; setup, teardown and collection records are
// ignored.
func loadReportLog(path string) ([]spec.TestResult, error) {
	var results []spec.TestResult
	err := decodeLines(path, func(r reportLine) {
		if r.ReportType != "TestReport" || r.When != "call" || r.NodeID == "" {
			return
		}
		res := spec.TestResult{
			Ref:     r.NodeID,
			Status:  spec.StatusOf(r.Outcome),
			Outcome: r.Outcome,
		}
		if r.Duration != nil {
			res.Details = map[string]float64{"duration": *r.Duration}
		}
		results = append(results, res)
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
