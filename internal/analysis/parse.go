package analysis

import (
	"strings"

	apperrors "reportai/internal/errors"
)

// Section markers of the extraction grammar. The provider boundary is treated
// as untrusted input: responses are validated against this fixed set, not
// matched best-effort.
const (
	markerExecutiveSummary    = "EXECUTIVE SUMMARY"
	markerKeyFindings         = "KEY FINDINGS"
	markerStatisticalAnalysis = "STATISTICAL ANALYSIS"
	markerRecommendations     = "RECOMMENDATIONS"
	markerConclusion          = "CONCLUSION"
)

var requiredMarkers = []string{
	markerExecutiveSummary,
	markerKeyFindings,
	markerStatisticalAnalysis,
	markerRecommendations,
	markerConclusion,
}

// ParseResponse decomposes raw provider text into the five-field result
// schema. Missing markers or empty sections fail with a malformed-response
// error.
func ParseResponse(raw string) (*Result, error) {
	sections := splitSections(raw)

	for _, marker := range requiredMarkers {
		if _, ok := sections[marker]; !ok {
			return nil, apperrors.NewMalformedAIResponseError("response is missing section marker '## "+marker+"'", nil)
		}
	}

	result := &Result{
		ExecutiveSummary:    strings.TrimSpace(sections[markerExecutiveSummary]),
		KeyFindings:         parseBullets(sections[markerKeyFindings]),
		StatisticalAnalysis: strings.TrimSpace(sections[markerStatisticalAnalysis]),
		Recommendations:     parseBullets(sections[markerRecommendations]),
		Conclusion:          strings.TrimSpace(sections[markerConclusion]),
	}

	if !result.Complete() {
		return nil, apperrors.NewMalformedAIResponseError("response contains an empty section", nil)
	}

	return result, nil
}

// splitSections walks the response line by line, collecting body text under
// the most recent '## ' marker. Unknown markers start a section that is simply
// never read back.
func splitSections(raw string) map[string]string {
	sections := make(map[string]string)

	var current string
	var body strings.Builder

	flush := func() {
		if current != "" {
			sections[current] = body.String()
		}
		body.Reset()
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if marker, ok := matchMarker(trimmed); ok {
			flush()
			current = marker
			continue
		}
		if current != "" {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()

	return sections
}

// matchMarker recognizes a '## NAME' heading line, tolerating case and
// surrounding whitespace but nothing else.
func matchMarker(line string) (string, bool) {
	if !strings.HasPrefix(line, "##") {
		return "", false
	}
	name := strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(line, "##")))
	for _, marker := range requiredMarkers {
		if name == marker {
			return marker, true
		}
	}
	return "", false
}

// parseBullets extracts list items from a section body. Accepts '-', '*' and
// 'N.' prefixes; a body with no bullet prefixes at all is treated as one item
// per non-empty line.
func parseBullets(body string) []string {
	var items []string
	for _, line := range strings.Split(body, "\n") {
		item := strings.TrimSpace(line)
		if item == "" {
			continue
		}
		item = strings.TrimSpace(trimBulletPrefix(item))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func trimBulletPrefix(line string) string {
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return line[2:]
	}
	// numbered list: "1. item"
	for i, r := range line {
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '.' && i > 0 && i+1 < len(line) && line[i+1] == ' ' {
			return line[i+2:]
		}
		break
	}
	return line
}
