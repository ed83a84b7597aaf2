package codi

import (
	"strings"
	"unicode"
)

// the network reserves the pipe as its field separator
const forbiddenCharacter = "|"

// Sanitize prepares an outbound payment request for signing. Any string value containing a pipe
// is rejected with a FORBIDDEN_CHARACTER error; every other string value is cleaned by
// CleanString. Object keys, numbers and booleans are copied unchanged. The result is compact
// JSON text in the original key order.
func Sanitize(data []byte) ([]byte, error) {
	out, err := rewrite(data, func(s string) (string, error) {
		if strings.Contains(s, forbiddenCharacter) {
			return "", NewForbiddenCharacterError("value contains the reserved character '|'")
		}
		return CleanString(s), nil
	})
	if err != nil {
		if IsCode(err, ErrCodeForbiddenCharacter) {
			return nil, err
		}
		return nil, WrapInvalidEnvelopeError(err, "payment request is not valid JSON")
	}
	return out, nil
}

// SanitizeDatosMC returns a copy of the payload with Sanitize applied.
func SanitizeDatosMC(p DatosMC) (DatosMC, error) {
	raw, err := Sanitize(p.Raw)
	if err != nil {
		return DatosMC{}, err
	}
	return DatosMC{Raw: raw}, nil
}

// CleanString strips C0 and C1 control characters (U+0000-U+001F, U+007F-U+009F), which
// include line breaks and tabs, then trims surrounding white space.
func CleanString(s string) string {
	s = strings.Map(func(r rune) rune {
		if r <= 0x1f || (r >= 0x7f && r <= 0x9f) {
			return -1
		}
		return r
	}, s)
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}
