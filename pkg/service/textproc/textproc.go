// Package textproc normalizes and enriches transcript text before embedding.
// Normalization is idempotent: applying it to already normalized text returns
// the same string, which keeps cache keys stable.
package textproc

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	punctSpaceRe  = regexp.MustCompile(`\s+([.,;:!?])`)
	quoteReplacer = strings.NewReplacer(
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
)

// Normalize canonicalizes whitespace, curly quotes, and spacing before
// punctuation.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.TrimSpace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = punctSpaceRe.ReplaceAllString(text, "$1")
	text = quoteReplacer.Replace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

var (
	medicationRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)prescribing\s+(\w+)\s+(\d+mg?)`),
		regexp.MustCompile(`(?i)(\w+)\s+(\d+mg?)\s+(once|twice|daily)`),
		regexp.MustCompile(`(?i)(\w+)\s+(\d+mg?)\s+(every\s+\d+\s+hours?)`),
	}
	conditionRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)patient\s+(?:has|with)\s+(\w+(?:\s+\w+)*)`),
		regexp.MustCompile(`(?i)diagnosed\s+with\s+(\w+(?:\s+\w+)*)`),
		regexp.MustCompile(`(?i)symptoms\s+of\s+(\w+(?:\s+\w+)*)`),
	}
	actionRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)schedule\s+(\w+(?:\s+\w+)*)`),
		regexp.MustCompile(`(?i)refer\s+(?:to|for)\s+(\w+(?:\s+\w+)*)`),
		regexp.MustCompile(`(?i)order\s+(\w+(?:\s+\w+)*)`),
	}
)

// Enrich normalizes the text and appends a "Medical Context" block listing
// medications, conditions, and clinical actions recognized in the text. The
// block sharpens embedding quality for short clinical notes.
func Enrich(text string) string {
	text = Normalize(text)

	var terms []string
	collect := func(res []*regexp.Regexp, label string) {
		for _, re := range res {
			for _, m := range re.FindAllStringSubmatch(text, -1) {
				terms = append(terms, label+": "+strings.Join(m[1:], " "))
			}
		}
	}

	collect(medicationRes, "medication")
	collect(conditionRes, "condition")
	collect(actionRes, "action")

	if len(terms) == 0 {
		return text
	}
	return text + "\n\nMedical Context:\n" + strings.Join(terms, "\n")
}
