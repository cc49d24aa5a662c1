package content

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var combiningMarks = runes.In(unicode.Mn)

// Slugify turns arbitrary text into a URL-safe slug: diacritics are
// stripped via NFD decomposition, letters are lowercased, and runs of
// anything else collapse into single hyphens. "Déjà Vu!" becomes
// "deja-vu".
func Slugify(s string) string {
	// Transformer chains carry internal buffers, so build one per call.
	fold := transform.Chain(norm.NFD, runes.Remove(combiningMarks), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
