// Package names implements the name normalization shared by the labeler and
// the analysis join.
//
// Policy: the exact join key is case-folded and whitespace-normalized but
// keeps punctuation, so "O'Brien" becomes "o'brien" and "obrien" stays
// "obrien". The loose key additionally strips diacritics and every rune that
// is not a letter or digit, so all three spellings share the loose key
// "obrien". Joins use the exact key first and fall back to the loose key only
// when it identifies a single label.
package names

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/David-Botos/qguide-analysis/pkg/model"
)

var apostrophes = strings.NewReplacer("’", "'", "‘", "'", "ʼ", "'", "`", "'")

// honorifics never count as a first name.
var honorifics = map[string]bool{
	"professor":  true,
	"prof":       true,
	"doctor":     true,
	"dr":         true,
	"mr":         true,
	"mrs":        true,
	"ms":         true,
	"mx":         true,
	"coach":      true,
	"dean":       true,
	"chair":      true,
	"director":   true,
	"instructor": true,
}

// Normalize returns the exact join key for a name.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = apostrophes.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return cases.Fold().String(s)
}

// LooseKey returns the punctuation- and accent-insensitive key.
func LooseKey(s string) string {
	folded := Normalize(s)
	stripped, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		folded,
	)
	if err != nil {
		stripped = folded
	}

	var b strings.Builder
	for _, r := range stripped {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FirstName extracts the normalized first name from a full lecturer name.
// It understands "First Last", "Last, First", leading honorifics, initials
// with periods and a trailing parenthetical such as "Smith (Lecturer)".
func FirstName(fullName string) string {
	s := stripParenthetical(fullName)
	if i := strings.Index(s, ","); i >= 0 {
		s = s[i+1:]
	}

	for _, token := range strings.Fields(s) {
		token = strings.Trim(token, ".")
		if token == "" {
			continue
		}
		key := Normalize(token)
		if honorifics[key] {
			continue
		}
		if !hasLetter(key) {
			continue
		}
		return key
	}
	return ""
}

// Distinct normalizes, deduplicates and sorts names, dropping empties.
func Distinct(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, name := range in {
		key := Normalize(name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

func stripParenthetical(s string) string {
	s = strings.TrimSpace(s)
	for strings.HasSuffix(s, ")") {
		open := strings.LastIndex(s, "(")
		if open < 0 {
			break
		}
		s = strings.TrimSpace(s[:open])
	}
	return s
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Key returns the join key for a lecturer: the explicit first-name column
// when it yields a name, otherwise the first name parsed from the full name.
func Key(firstName, fullName string) string {
	if key := FirstName(firstName); key != "" {
		return key
	}
	return FirstName(fullName)
}

// RecordKey returns the join key of a raw record. Tables with a first-name
// column only use that column; their full-name column may hold a surname.
func RecordKey(rec model.RawEvaluationRecord) string {
	if rec.FirstNameColumn {
		return FirstName(rec.LecturerFirstName)
	}
	return Key(rec.LecturerFirstName, rec.LecturerName)
}
