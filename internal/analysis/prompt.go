package analysis

import (
	"fmt"
	"strings"

	"reportai/internal/templates"
)

// framings holds the fixed analytical instruction per template type.
var framings = map[templates.TemplateType]string{
	templates.TypeTesting: "You are a test engineer reviewing measurement data. " +
		"Focus on defects, failed checks, out-of-tolerance measurements and test coverage.",
	templates.TypeQuality: "You are a quality control analyst. " +
		"Focus on quality metrics, control limits, deviation rates and compliance with specifications.",
	templates.TypeField: "You are a reliability engineer reviewing field data. " +
		"Focus on in-service performance, degradation trends and environmental effects.",
	templates.TypeProcess: "You are a process engineer. " +
		"Focus on process efficiency, throughput, bottlenecks and variation between process steps.",
}

var languageNames = map[templates.Language]string{
	templates.LangEnglish: "English",
	templates.LangFinnish: "Finnish",
}

// sectionGrammar is the versioned extraction grammar the response must follow.
// The parser rejects responses that deviate from it.
const sectionGrammar = `Respond using EXACTLY this structure, keeping the markers verbatim:

## EXECUTIVE SUMMARY
<one paragraph>

## KEY FINDINGS
- <finding>
- <finding>

## STATISTICAL ANALYSIS
<one paragraph interpreting the statistics>

## RECOMMENDATIONS
- <recommendation>
- <recommendation>

## CONCLUSION
<one paragraph>`

// systemPrompt builds the fixed per-template system instruction.
func systemPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(framings[req.TemplateType])
	fmt.Fprintf(&b, " Write all narrative text in %s.\n\n", languageNames[req.Language])
	b.WriteString(sectionGrammar)
	return b.String()
}

// userPrompt builds the per-call message carrying the digest. The reformat
// variant is used for the single retry after a malformed response.
func userPrompt(req Request) string {
	var b strings.Builder
	if req.Reformat {
		b.WriteString("Your previous answer did not follow the required structure. ")
		b.WriteString("Reply again and use every '## ' marker exactly as specified, with no text outside the five sections.\n\n")
	}
	b.WriteString("Analyze the following dataset summary:\n\n")
	b.WriteString(req.Digest)
	return b.String()
}
