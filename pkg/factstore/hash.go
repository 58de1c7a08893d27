package factstore

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// Normalize canonicalizes fact text for duplicate detection: lower-case,
// punctuation stripped, whitespace collapsed, trimmed.
//
// "I love spicy food" and "i LOVE spicy food!" normalize to the same value.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
		// Punctuation and symbols are dropped.
	}

	return strings.TrimRight(b.String(), " ")
}

// ContentHash returns the stable hash of the normalized text, used for
// exact-duplicate detection. Unique per user among non-deleted facts.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}
