package search

import "strings"

// foldTable maps Latin-extended letters to ASCII approximations so that
// queries typed without diacritics still match stored names. Folding is
// applied after lower-casing, so only lower-case runes appear here.
var foldTable = map[rune]string{
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'ä': "a", 'å': "a", 'ā': "a", 'ă': "a", 'ą': "a",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e", 'ē': "e", 'ė': "e", 'ę': "e", 'ě': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i", 'ī': "i", 'į': "i", 'ı': "i",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ö': "o", 'ø': "o", 'ō': "o", 'ő': "o",
	'ù': "u", 'ú': "u", 'û': "u", 'ü': "u", 'ū': "u", 'ů': "u", 'ű': "u",
	'ý': "y", 'ÿ': "y",
	'ç': "c", 'ć': "c", 'ĉ': "c", 'č': "c",
	'ď': "d", 'đ': "dj",
	'ĝ': "g", 'ğ': "g", 'ģ': "g",
	'ĺ': "l", 'ļ': "l", 'ľ': "l", 'ł': "l",
	'ñ': "n", 'ń': "n", 'ņ': "n", 'ň': "n",
	'ŕ': "r", 'ř': "r",
	'ś': "s", 'ş': "s", 'š': "s", 'ș': "s",
	'ţ': "t", 'ť': "t", 'ț': "t",
	'ź': "z", 'ż': "z", 'ž': "z",
	'ß': "ss",
}

// Fold lower-cases s and substitutes diacritic letters with their ASCII
// approximations. Both queries and candidate fields go through Fold before
// any comparison.
func Fold(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if sub, ok := foldTable[r]; ok {
			b.WriteString(sub)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
