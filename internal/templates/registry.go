// Package templates maps (template type, language) pairs to report layouts.
// The registry is static lookup data: no mutable state, safe for concurrent
// use without synchronization.
package templates

import (
	apperrors "reportai/internal/errors"
)

// TemplateType selects the analytical framing of a report.
type TemplateType string

const (
	TypeTesting TemplateType = "testing"
	TypeQuality TemplateType = "quality"
	TypeField   TemplateType = "field"
	TypeProcess TemplateType = "process"
)

// Language selects the report language.
type Language string

const (
	LangEnglish Language = "en"
	LangFinnish Language = "fi"
)

// Section identifiers, in registry order.
const (
	SectionExecutiveSummary    = "executive_summary"
	SectionKeyFindings         = "key_findings"
	SectionStatisticalAnalysis = "statistical_analysis"
	SectionDataSummary         = "data_summary"
	SectionRecommendations     = "recommendations"
	SectionConclusion          = "conclusion"
)

// Section is one ordered report block with its localized title.
type Section struct {
	ID    string
	Title string
}

// Labels holds the localized fixed strings rendered outside sections.
type Labels struct {
	Date         string
	Company      string
	Author       string
	Generated    string
	NotAvailable string
	Footer       string
	SummarySheet string
	DataSheet    string
}

// Layout is the full rendering plan for one (template type, language) pair.
type Layout struct {
	TemplateType TemplateType
	Language     Language
	Title        string // localized template display name
	Sections     []Section
	Labels       Labels
}

var sectionTitles = map[Language]map[string]string{
	LangEnglish: {
		SectionExecutiveSummary:    "Executive Summary",
		SectionKeyFindings:         "Key Findings",
		SectionStatisticalAnalysis: "Statistical Analysis",
		SectionDataSummary:         "Data Summary",
		SectionRecommendations:     "Recommendations",
		SectionConclusion:          "Conclusion",
	},
	LangFinnish: {
		SectionExecutiveSummary:    "Tiivistelmä",
		SectionKeyFindings:         "Keskeiset havainnot",
		SectionStatisticalAnalysis: "Tilastollinen analyysi",
		SectionDataSummary:         "Datan yhteenveto",
		SectionRecommendations:     "Suositukset",
		SectionConclusion:          "Johtopäätökset",
	},
}

var templateNames = map[Language]map[TemplateType]string{
	LangEnglish: {
		TypeTesting: "Testing Report",
		TypeQuality: "Quality Control Report",
		TypeField:   "Field Performance Report",
		TypeProcess: "Process Efficiency Report",
	},
	LangFinnish: {
		TypeTesting: "Testausraportti",
		TypeQuality: "Laadunvalvontaraportti",
		TypeField:   "Kenttäsuorituskykyraportti",
		TypeProcess: "Prosessitehokkuusraportti",
	},
}

var labels = map[Language]Labels{
	LangEnglish: {
		Date:         "Date:",
		Company:      "Company:",
		Author:       "Author:",
		Generated:    "Generated:",
		NotAvailable: "N/A",
		Footer:       "Generated by ReportAI - Automated Quality Reports",
		SummarySheet: "Summary",
		DataSheet:    "Data",
	},
	LangFinnish: {
		Date:         "Päivämäärä:",
		Company:      "Yritys:",
		Author:       "Laatija:",
		Generated:    "Luotu:",
		NotAvailable: "Ei saatavilla",
		Footer:       "ReportAI - Automaattiset laaturaportit",
		SummarySheet: "Yhteenveto",
		DataSheet:    "Data",
	},
}

// sectionOrder is shared by all four template types; the framing difference
// lives in the analysis prompts, not the layout.
var sectionOrder = []string{
	SectionExecutiveSummary,
	SectionKeyFindings,
	SectionStatisticalAnalysis,
	SectionDataSummary,
	SectionRecommendations,
	SectionConclusion,
}

// ParseTemplateType validates a raw template type value.
func ParseTemplateType(raw string) (TemplateType, bool) {
	switch TemplateType(raw) {
	case TypeTesting, TypeQuality, TypeField, TypeProcess:
		return TemplateType(raw), true
	default:
		return "", false
	}
}

// ParseLanguage validates a raw language value.
func ParseLanguage(raw string) (Language, bool) {
	switch Language(raw) {
	case LangEnglish, LangFinnish:
		return Language(raw), true
	default:
		return "", false
	}
}

// Lookup resolves the layout for a (template type, language) pair. Unknown
// pairs fail with an UnknownTemplate error.
func Lookup(templateType, language string) (*Layout, error) {
	tt, ok := ParseTemplateType(templateType)
	if !ok {
		return nil, apperrors.NewUnknownTemplateError(templateType, language)
	}
	lang, ok := ParseLanguage(language)
	if !ok {
		return nil, apperrors.NewUnknownTemplateError(templateType, language)
	}

	titles := sectionTitles[lang]
	sections := make([]Section, len(sectionOrder))
	for i, id := range sectionOrder {
		sections[i] = Section{ID: id, Title: titles[id]}
	}

	return &Layout{
		TemplateType: tt,
		Language:     lang,
		Title:        templateNames[lang][tt],
		Sections:     sections,
		Labels:       labels[lang],
	}, nil
}
