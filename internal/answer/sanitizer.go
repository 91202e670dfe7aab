package answer

import (
	"regexp"
	"strings"
)

// The sanitizer enforces the answer contract: no bracketed citation
// markers, no self-referential meta phrases, no trailing dangling
// fragments. Sanitize is idempotent; running it on its own output
// changes nothing.

var (
	bracketMarkerPattern = regexp.MustCompile(`\s*\[\d+(?:\s*,\s*\d+)*\]`)

	metaPhrasePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:according to|based on|as stated in|as shown in|as described in|per)\s+(?:the\s+)?(?:provided\s+)?(?:sources?|context|excerpts?|documents?)\b[,:]?\s*`),
		regexp.MustCompile(`(?i)\(?\bsee\s+(?:the\s+)?sources?(?:\s+\d+)?\b\)?[.,]?\s*`),
		regexp.MustCompile(`(?i)\(?\bSOURCE\s+\d+\b\)?[.,:]?\s*`),
		regexp.MustCompile(`(?i)\bthe\s+sources?\s+(?:state|states|indicate|indicates|mention|mentions|say|says)\s+(?:that\s+)?`),
	}

	// A sentence tail that stops mid-thought: a bare preposition,
	// article, conjunction, or a reference verb with no object.
	danglingTailPattern = regexp.MustCompile(`(?i)(?:\b(?:in|of|to|for|with|at|by|from|as|on|per|the|a|an|and|or|but|is|are|was|were|be|this|that|which)|,|;|:)$|(?i)\b(?:specified|described|found|located|listed|shown|given|defined|stated|provided|outlined|detailed)$`)

	whitespacePattern   = regexp.MustCompile(`[ \t]+`)
	spaceBeforePunct    = regexp.MustCompile(`\s+([.,;:!?])`)
	repeatedPeriod      = regexp.MustCompile(`\.{2,}`)
	blankLinesPattern   = regexp.MustCompile(`\n{3,}`)
)

// Sanitize cleans a generated answer for display. It strips citation
// markers and meta phrases, trims a dangling trailing fragment back to
// the last complete sentence, normalizes whitespace, and ensures the
// text ends with terminal punctuation.
func Sanitize(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}

	s = bracketMarkerPattern.ReplaceAllString(s, "")
	for _, p := range metaPhrasePatterns {
		s = p.ReplaceAllString(s, "")
	}

	s = whitespacePattern.ReplaceAllString(s, " ")
	s = spaceBeforePunct.ReplaceAllString(s, "$1")
	s = repeatedPeriod.ReplaceAllString(s, ".")
	s = blankLinesPattern.ReplaceAllString(s, "\n\n")
	s = strings.TrimSpace(s)

	s = trimDanglingTail(s)
	s = strings.TrimRight(s, ",;: ")
	s = capitalizeFirst(s)
	s = ensureTerminal(s)
	return s
}

// trimDanglingTail removes an incomplete final fragment. The text after
// the last sentence boundary is dropped only when it reads as cut off;
// a complete unpunctuated sentence is kept and punctuated instead.
func trimDanglingTail(s string) string {
	if s == "" || strings.ContainsRune(".!?", rune(s[len(s)-1])) {
		return s
	}

	boundary := lastSentenceBoundary(s)
	if boundary < 0 {
		return s
	}

	tail := strings.TrimSpace(s[boundary+1:])
	if tail == "" {
		return strings.TrimSpace(s[:boundary+1])
	}
	if danglingTailPattern.MatchString(tail) {
		return strings.TrimSpace(s[:boundary+1])
	}
	return s
}

func lastSentenceBoundary(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' || s[i] == '!' || s[i] == '?' {
			return i
		}
	}
	return -1
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return strings.ToUpper(s[:1]) + s[1:]
	}
	return s
}

func ensureTerminal(s string) string {
	if s == "" {
		return s
	}
	last := s[len(s)-1]
	if (last >= 'a' && last <= 'z') || (last >= 'A' && last <= 'Z') || (last >= '0' && last <= '9') || last == '%' || last == ')' || last == '"' {
		if last == ')' || last == '"' {
			// Keep closing punctuation outside the period check simple:
			// only append when the character before it lacks a period.
			if len(s) >= 2 && s[len(s)-2] == '.' {
				return s
			}
		}
		return s + "."
	}
	return s
}
