package analysis

// Result is the structured narrative analysis produced once per
// (file, template type, language) triple. Immutable after creation.
type Result struct {
	ExecutiveSummary    string   `json:"executive_summary"`
	KeyFindings         []string `json:"key_findings"`
	StatisticalAnalysis string   `json:"statistical_analysis"`
	Recommendations     []string `json:"recommendations"`
	Conclusion          string   `json:"conclusion"`
}

// Complete reports whether all five fields are populated. Renderers must
// refuse incomplete results before writing any output.
func (r *Result) Complete() bool {
	if r == nil {
		return false
	}
	return r.ExecutiveSummary != "" &&
		len(r.KeyFindings) > 0 &&
		r.StatisticalAnalysis != "" &&
		len(r.Recommendations) > 0 &&
		r.Conclusion != ""
}
