package domain

import "strings"

// FallbackLabel is used when a display name has no usable characters.
const FallbackLabel = "user"

// NormalizeLabel lowercases raw and keeps only ASCII letters and digits.
func NormalizeLabel(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return FallbackLabel
	}
	return b.String()
}
