package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var sampleAliases = map[string]string{
	"kari":         "Daun Kari",
	"daun kari":    "Daun Kari",
	"kemangi":      "Daun Kemangi",
	"daun kemangi": "Daun Kemangi",
	"jeruk":        "Daun Jeruk",
	"daun jeruk":   "Daun Jeruk",
	"serai":        "Daun Serai",
	"daun serai":   "Daun Serai",
}

// CanonicalSample maps a raw sample label to its display name. Known short
// forms match case-insensitively; anything else has the first letter of each
// word upper-cased and its whitespace collapsed. The result is a fixed point.
func CanonicalSample(label string) string {
	words := strings.Fields(label)
	if canonical, ok := sampleAliases[strings.ToLower(strings.Join(words, " "))]; ok {
		return canonical
	}

	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
