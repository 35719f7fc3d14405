package form

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Characters the form rejects in names.
var nameRejectRe = regexp.MustCompile(`[^A-Za-z0-9&\- ]+`)

var sortedSuffixes = lo.MapValues(suffixes, func(list []string, _ string) []string {
	out := append([]string(nil), list...)
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
})

// NormalizeName strips the category's legal suffixes and rejected characters,
// repeating until nothing changes. The result is a fixed point:
// NormalizeName(NormalizeName(x)) == NormalizeName(x).
func NormalizeName(name, category string) string {
	s := collapse(name)
	for {
		next := sanitizeName(stripSuffix(s, sortedSuffixes[category]))
		if next == s {
			return s
		}
		s = next
	}
}

func stripSuffix(s string, list []string) string {
	lower := strings.ToLower(s)
	for _, suf := range list {
		ls := strings.ToLower(suf)
		if len(lower) <= len(ls) || !strings.HasSuffix(lower, ls) {
			continue
		}
		if c := lower[len(lower)-len(ls)-1]; c != ' ' && c != ',' {
			continue
		}
		return strings.TrimRight(s[:len(s)-len(ls)], " ,")
	}
	return s
}

func sanitizeName(s string) string {
	return collapse(nameRejectRe.ReplaceAllString(s, ""))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// TradeNameFor returns the normalized trade name, or "" when it adds nothing
// over the normalized legal name.
func TradeNameFor(legal, trade, category string) string {
	t := NormalizeName(trade, category)
	if t == "" || strings.EqualFold(t, NormalizeName(legal, category)) {
		return ""
	}
	return t
}

var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"2006/01/02",
	"January 2, 2006",
}

// ParseFormationDate accepts the supported layouts. Anything else yields (0, 0).
func ParseFormationDate(s string) (time.Month, int) {
	s = collapse(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Month(), t.Year()
		}
	}
	return 0, 0
}

// MonthName returns the month's name as offered by the form, or "" for 0.
func MonthName(m time.Month) string {
	if m < 1 || m > 12 {
		return ""
	}
	return monthNames[m]
}

// NormalizeMonth accepts a month word, number or abbreviation.
func NormalizeMonth(s string) (time.Month, bool) {
	m, ok := months[lookupKey(s)]
	return time.Month(m), ok
}

// NormalizeJurisdiction returns a two-letter code for a state name or code.
func NormalizeJurisdiction(s string) (string, bool) {
	key := lookupKey(s)
	if code, ok := stateCodes[key]; ok {
		return code, true
	}
	if code := strings.ToUpper(key); validStateCodes[code] {
		return code, true
	}
	return "", false
}

// IsRestrictedJurisdiction reports whether code requires ownership confirmation.
func IsRestrictedJurisdiction(code string) bool {
	return restrictedJurisdictions[code]
}

// SameAddress compares two concatenated addresses ignoring case and spacing.
func SameAddress(a, b string) bool {
	return strings.EqualFold(collapse(a), collapse(b))
}

// MemberCount coerces any JSON scalar to a count of at least 1. ok is false when
// the default was used.
func MemberCount(raw json.RawMessage) (n int, ok bool) {
	if len(raw) == 0 {
		return 1, false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 1, false
	}

	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 1, false
		}
		f = parsed
	default:
		return 1, false
	}

	if math.IsNaN(f) || f < 1 || f > math.MaxInt32 {
		return 1, false
	}
	return int(f), true
}

// ActivityRadio maps a primary activity to its radio id. Unknown activities are "other".
func ActivityRadio(activity string) (string, bool) {
	id, ok := activityRadios[lookupKey(activity)]
	if !ok {
		return ActivityOther, false
	}
	return id, true
}

// SplitTaxID splits a nine digit id into its 3-2-4 groups.
func SplitTaxID(id string) ([3]string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, id)
	if len(digits) != 9 {
		return [3]string{}, false
	}
	return [3]string{digits[:3], digits[3:5], digits[5:]}, true
}

// SplitPhone splits a ten digit US number into area code, exchange and line.
func SplitPhone(phone string) ([3]string, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return [3]string{}, false
	}
	return [3]string{digits[:3], digits[3:6], digits[6:]}, true
}

var contactSuffixes = map[string]string{
	"jr": "Jr.", "jr.": "Jr.", "sr": "Sr.", "sr.": "Sr.",
	"i": "I", "ii": "II", "iii": "III", "iv": "IV", "v": "V",
	"md": "MD", "m.d.": "MD", "phd": "PhD", "ph.d.": "PhD", "esq": "Esq.", "esq.": "Esq.",
}

// NormalizeContactSuffix maps a personal suffix to the form's option, or "".
func NormalizeContactSuffix(s string) string {
	return contactSuffixes[lookupKey(s)]
}
