package form

import (
	"strings"
	"unicode"
)

// Humanize turns a camelCase/snake_case/dotted field name into a
// human-readable label: split camelCase, replace `_`/`.` with spaces,
// title-case each word.
func Humanize(name string) string {
	spaced := splitCamelCase(name)
	spaced = strings.ReplaceAll(spaced, "_", " ")
	spaced = strings.ReplaceAll(spaced, ".", " ")
	words := strings.Fields(spaced)
	for i, w := range words {
		words[i] = titleCase(w)
	}
	return strings.Join(words, " ")
}

func splitCamelCase(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

func titleCase(w string) string {
	if w == "" {
		return w
	}
	r := []rune(strings.ToLower(w))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
