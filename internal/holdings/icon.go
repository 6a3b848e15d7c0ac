package holdings

import (
	"strings"
	"unicode/utf8"
)

// Icon picks the glyph shown for an asset: its emoji when set, otherwise the
// first two characters of the symbol in upper case.
func Icon(emoji *string, symbol string) string {
	if emoji != nil {
		if e := strings.TrimSpace(*emoji); e != "" {
			return e
		}
	}

	s := strings.ToUpper(strings.TrimSpace(symbol))
	if utf8.RuneCountInString(s) <= 2 {
		return s
	}
	runes := []rune(s)
	return string(runes[:2])
}
