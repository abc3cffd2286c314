package utils

import (
	"strings"

	"github.com/gosimple/slug"
)

// MakeSlug turns a display name into a URL slug.
func MakeSlug(name string) string {
	return slug.Make(name)
}

// NormalizeSlug lower-cases and trims a slug received in a URL path.
func NormalizeSlug(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), "/"))
}

// joiningWords stay lower-case between other words.
var joiningWords = map[string]bool{"and": true, "of": true, "in": true, "the": true, "on": true}

var acronyms = map[string]string{"uk": "UK", "nhs": "NHS"}

// TitleFromSlug builds a display name from a slug: hyphens become spaces,
// words are capitalised, and joining words stay lower-case.
func TitleFromSlug(s string) string {
	words := strings.FieldsFunc(NormalizeSlug(s), func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	})
	for i, w := range words {
		switch {
		case acronyms[w] != "":
			words[i] = acronyms[w]
		case joiningWords[w] && i > 0 && i < len(words)-1:
		default:
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
