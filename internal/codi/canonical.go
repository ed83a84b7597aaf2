package codi

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var integralMonto = regexp.MustCompile(`"monto":(\d+)([,}])`)

// NormalizeMonto rewrites every integral "monto" value in compact JSON text to carry a ".0"
// suffix. Values that already have a fraction or exponent are left untouched, as is everything else.
func NormalizeMonto(text []byte) []byte {
	return integralMonto.ReplaceAll(text, []byte(`"monto":${1}.0${2}`))
}

// Canonicalize returns the canonical string of the envelope, the exact bytes that are signed and verified.
func Canonicalize(env *Envelope) ([]byte, error) {
	if env == nil || env.Payload == nil {
		return nil, NewInvalidEnvelopeError("envelope has no known payload key")
	}
	return env.Payload.canonical(env.Epoch)
}

// epochSuffixed is the canonical form of every variant except cadenaInformacion.
func epochSuffixed(key string, raw json.RawMessage, epoch *int64) ([]byte, error) {
	if epoch == nil {
		return nil, NewInvalidEnvelopeError(key + " envelope has no epoch")
	}
	text, err := payloadText(key, raw)
	if err != nil {
		return nil, err
	}
	return strconv.AppendInt(text, *epoch, 10), nil
}

// payloadText is the payload's JSON text, or the string itself when the payload is a JSON string.
func payloadText(key string, raw json.RawMessage) ([]byte, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, NewInvalidEnvelopeError(key + " is empty")
	}

	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil {
			return nil, WrapInvalidEnvelopeError(err, key+" is not a valid JSON string")
		}
		return []byte(s), nil
	}

	text, err := Stringify([]byte(trimmed))
	if err != nil {
		return nil, WrapInvalidEnvelopeError(err, key+" is not valid JSON")
	}
	return text, nil
}
