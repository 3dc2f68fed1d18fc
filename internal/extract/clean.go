package extract

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// reFenceOpen matches a leading fence opener, untagged or tagged markdown/md.
	reFenceOpen = regexp.MustCompile("^`{3,}(?:markdown|md)?[ \t]*(?:\r?\n|$)")
	// reFenceClose matches a trailing fence closer.
	reFenceClose = regexp.MustCompile("(?:\r?\n)?`{3,}[ \t]*$")
)

// Clean strips a leading fence opener and a trailing fence closer, then trims
// whitespace. Applied to every candidate before it leaves the parser.
func Clean(content string) string {
	content = strings.TrimSpace(content)
	content = reFenceOpen.ReplaceAllString(content, "")
	content = reFenceClose.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

var accentFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'ä': 'a', 'â': 'a',
	'é': 'e', 'è': 'e', 'ë': 'e', 'ê': 'e',
	'í': 'i', 'ì': 'i', 'ï': 'i', 'î': 'i',
	'ó': 'o', 'ò': 'o', 'ö': 'o', 'ô': 'o',
	'ú': 'u', 'ù': 'u', 'ü': 'u', 'û': 'u',
	'ñ': 'n', 'ç': 'c',
}

const maxSlugLen = 64

// slugify lower-cases s and joins ASCII letter/digit runs with '_'.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	var b strings.Builder
	lastSep := false
	for _, r := range s {
		if folded, ok := accentFold[r]; ok {
			r = folded
		}
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastSep = false
		default:
			if !lastSep {
				b.WriteByte('_')
				lastSep = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > maxSlugLen {
		out = strings.TrimRight(out[:maxSlugLen], "_")
	}
	return out
}
