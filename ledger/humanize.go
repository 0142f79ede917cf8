package ledger

import (
	"strings"
	"unicode"
)

// Humanize converts a PascalCase event name into a display label by
// inserting a space before each internal capital letter:
// "DocumentHashGenerated" → "Document Hash Generated". The result is
// trimmed. Total and pure.
func Humanize(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && !unicode.IsSpace(runes[i-1]) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}
