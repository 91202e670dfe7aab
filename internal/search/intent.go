package search

import (
	"regexp"
	"strings"
)

// Intent is the detected shape of a query. Intents steer boosting and
// answer synthesis; they never filter candidates out.
type Intent string

const (
	IntentGeneral        Intent = "general"
	IntentSectionLookup  Intent = "section_lookup"
	IntentTableLookup    Intent = "table_lookup"
	IntentEquationLookup Intent = "equation_lookup"
)

var (
	// A bare section id like "103.04" or "501.03.02".
	sectionIDPattern = regexp.MustCompile(`^\d{3}\.\d{2}(?:\.\d{2})?$`)

	tableCuePattern   = regexp.MustCompile(`(?i)\b(table|tbl|tab\.)`)
	tableLabelPattern = regexp.MustCompile(`(?i)\btable\s+(\d{3}\.\d{2}(?:\.\d{2})?-\d+)\b`)

	equationCuePattern = regexp.MustCompile(`(?i)\b(equation|equations|formula|formulas|calculate|calculated|calculation|compute|computed|pay adjustment|ppa|pd|ql|iri)\b`)
)

// Classification carries the detected intent plus any identifier pulled
// out of the query text.
type Classification struct {
	Intent Intent
	// SectionID is set for section_lookup: the exact id the query is.
	SectionID string
	// TableLabel is set when the query names a table explicitly, e.g.
	// "Table 901.03-1".
	TableLabel string
}

// Classify detects the query intent. Section lookup wins when the whole
// trimmed query is a section id; an explicit table label or table cue
// word makes it a table lookup; calculation vocabulary makes it an
// equation lookup; everything else is general.
func Classify(query string) Classification {
	trimmed := strings.TrimSpace(query)

	if sectionIDPattern.MatchString(trimmed) {
		return Classification{Intent: IntentSectionLookup, SectionID: trimmed}
	}

	if m := tableLabelPattern.FindStringSubmatch(trimmed); m != nil {
		return Classification{Intent: IntentTableLookup, TableLabel: "Table " + m[1]}
	}
	if tableCuePattern.MatchString(trimmed) {
		return Classification{Intent: IntentTableLookup}
	}

	if equationCuePattern.MatchString(trimmed) {
		return Classification{Intent: IntentEquationLookup}
	}

	return Classification{Intent: IntentGeneral}
}
