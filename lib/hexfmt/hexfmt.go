// Package hexfmt canonicalizes hex digests and decodes the permissive hex
// syntax allowed in vector files and on the command line.
//
// Three producers emit hex for the same digest: the device, the vector
// corpus, and the reference oracle. They disagree on case and whitespace,
// so every comparison goes through Normalize first.
package hexfmt

import (
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/samber/oops"
)

// Normalize maps a hex string to its canonical form: uppercase with all
// whitespace removed. Idempotent and total; it does not validate that the
// remaining characters are hex digits.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// DecodeString decodes permissive hex input into bytes. It accepts an
// optional 0x/0X prefix, embedded whitespace, and odd-length strings
// (treated as having an implied leading zero). An empty string decodes to
// an empty slice.
func DecodeString(s string) ([]byte, error) {
	h := strings.TrimSpace(s)
	if strings.HasPrefix(h, "0x") || strings.HasPrefix(h, "0X") {
		h = h[2:]
	}
	h = Normalize(h)
	if h == "" {
		return []byte{}, nil
	}
	if len(h)%2 == 1 {
		h = "0" + h
	}
	out, err := hex.DecodeString(h)
	if err != nil {
		return nil, oops.Errorf("invalid hex input %q: %w", s, err)
	}
	return out, nil
}

// EncodeToString renders bytes as canonical (uppercase) hex.
func EncodeToString(b []byte) string {
	return strings.ToUpper(hex.EncodeToString(b))
}
