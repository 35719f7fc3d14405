package diagnose

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Type2Phrase marks the remote system explicitly refusing to issue a number.
const Type2Phrase = "we are unable to provide you with an ein"

var (
	referenceRe      = regexp.MustCompile(`(?is)reference\s+(?:number|no\.?|#)(?:\s+is)?\s*[:#]?\s*(\d{2,})`)
	referenceLabelRe = regexp.MustCompile(`(?i)reference\s+(?:number|no\.?|#)`)
	digitsRe         = regexp.MustCompile(`\d{2,}`)
	einRe            = regexp.MustCompile(`\b(\d{2}-\d{7})\b`)
)

// DetectType2 reports whether the page text carries the refusal phrase.
func DetectType2(pageText string) bool {
	return strings.Contains(strings.ToLower(spaceRe.ReplaceAllString(pageText, " ")), Type2Phrase)
}

// ReferenceNumber extracts the reference code from page text, falling back to a
// walk over the page markup when the label and number are split across elements.
func ReferenceNumber(pageText, markup string) string {
	if m := referenceRe.FindStringSubmatch(pageText); m != nil {
		return m[1]
	}
	return referenceFromMarkup(markup)
}

func referenceFromMarkup(markup string) string {
	if markup == "" {
		return ""
	}

	z := html.NewTokenizer(strings.NewReader(markup))
	labelSeen := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return ""
		case html.TextToken:
			text := string(z.Text())
			if m := referenceRe.FindStringSubmatch(text); m != nil {
				return m[1]
			}
			if labelSeen {
				if d := digitsRe.FindString(text); d != "" {
					return d
				}
				if strings.TrimSpace(text) != "" && !strings.ContainsAny(text, ":#") {
					labelSeen = false
				}
			}
			if referenceLabelRe.MatchString(text) {
				labelSeen = true
			}
		}
	}
}

// EIN extracts an employer identification number (NN-NNNNNNN) from text.
func EIN(text string) string {
	if m := einRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}
