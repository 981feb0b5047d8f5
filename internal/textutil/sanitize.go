package textutil

import (
	"strings"
	"unicode"
)

// FileToken reduces value to a lowercase ASCII token for use inside file
// names. Each run of other characters collapses into one underscore and the
// token never starts or ends with a separator. Fallback is returned when
// nothing usable remains.
func FileToken(value, fallback string) string {
	var b strings.Builder
	gap := false
	for _, r := range strings.TrimSpace(value) {
		r = unicode.ToLower(r)
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
			gap = true
			continue
		}
		if gap && b.Len() > 0 {
			b.WriteByte('_')
		}
		gap = false
		b.WriteRune(r)
	}
	if out := strings.Trim(b.String(), "_-"); out != "" {
		return out
	}
	return fallback
}
