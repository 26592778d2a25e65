package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// SanitizeLabel turns an identity label into a safe filename stem
// (e.g., "Jiří Novák" -> "Jiri_Novak", "../etc/passwd" -> "etc_passwd").
// Only ASCII letters, digits, dot, dash and underscore survive; whitespace and
// path separators become underscores. The result may be empty.
func SanitizeLabel(label string) string {
	label = RemoveDiacritics(label)
	label = strings.NewReplacer("/", " ", `\`, " ").Replace(label)
	label = strings.Join(strings.Fields(label), "_")

	var b strings.Builder
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}
