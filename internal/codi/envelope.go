package codi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Payload keys, in dispatch precedence order.
const (
	KeyDatosMC           = "datosMC"
	KeyCadenaMC          = "cadenaMC"
	KeyFolioCodi         = "folioCodi"
	KeyPeticionConsulta  = "peticionConsulta"
	KeyResultado         = "resultado"
	KeyCadenaInformacion = "cadenaInformacion"

	KeySelloDigital = "selloDigital"
	KeyEpoch        = "epoch"
)

var payloadKeys = []string{
	KeyDatosMC,
	KeyCadenaMC,
	KeyFolioCodi,
	KeyPeticionConsulta,
	KeyResultado,
	KeyCadenaInformacion,
}

// Payload is one of the mutually exclusive message payloads. The set of implementations is closed:
// DatosMC, CadenaMC, FolioCodi, PeticionConsulta, Resultado and CadenaInformacion.
type Payload interface {
	// Key is the envelope key the payload travels under.
	Key() string
	// JSON is the payload as JSON text.
	JSON() json.RawMessage

	canonical(epoch *int64) ([]byte, error)
}

// DatosMC is the payment request of QR and push operations.
type DatosMC struct{ Raw json.RawMessage }

// CadenaMC is the network's QR operation string.
type CadenaMC struct{ Raw json.RawMessage }

// FolioCodi is the folio the network assigns to a push operation.
type FolioCodi struct{ Raw json.RawMessage }

// PeticionConsulta is an operation status query.
type PeticionConsulta struct{ Raw json.RawMessage }

// Resultado is the paginated answer to a status query.
type Resultado struct{ Raw json.RawMessage }

// CadenaInformacion is the asynchronous result notification delivered to the webhook.
type CadenaInformacion struct{ Raw json.RawMessage }

func (DatosMC) Key() string           { return KeyDatosMC }
func (CadenaMC) Key() string          { return KeyCadenaMC }
func (FolioCodi) Key() string         { return KeyFolioCodi }
func (PeticionConsulta) Key() string  { return KeyPeticionConsulta }
func (Resultado) Key() string         { return KeyResultado }
func (CadenaInformacion) Key() string { return KeyCadenaInformacion }

func (p DatosMC) JSON() json.RawMessage           { return p.Raw }
func (p CadenaMC) JSON() json.RawMessage          { return p.Raw }
func (p FolioCodi) JSON() json.RawMessage         { return p.Raw }
func (p PeticionConsulta) JSON() json.RawMessage  { return p.Raw }
func (p Resultado) JSON() json.RawMessage         { return p.Raw }
func (p CadenaInformacion) JSON() json.RawMessage { return p.Raw }

func (p DatosMC) canonical(epoch *int64) ([]byte, error) {
	return epochSuffixed(KeyDatosMC, p.Raw, epoch)
}

func (p CadenaMC) canonical(epoch *int64) ([]byte, error) {
	return epochSuffixed(KeyCadenaMC, p.Raw, epoch)
}

func (p FolioCodi) canonical(epoch *int64) ([]byte, error) {
	return epochSuffixed(KeyFolioCodi, p.Raw, epoch)
}

func (p PeticionConsulta) canonical(epoch *int64) ([]byte, error) {
	return epochSuffixed(KeyPeticionConsulta, p.Raw, epoch)
}

func (p Resultado) canonical(epoch *int64) ([]byte, error) {
	return epochSuffixed(KeyResultado, p.Raw, epoch)
}

// the webhook result never takes an epoch suffix, even when the envelope carries one
func (p CadenaInformacion) canonical(_ *int64) ([]byte, error) {
	text, err := payloadText(KeyCadenaInformacion, p.Raw)
	if err != nil {
		return nil, err
	}
	return NormalizeMonto(text), nil
}

// NewPayload marshals v as the payload for key. The JSON text keeps the field order of v.
func NewPayload(key string, v any) (Payload, error) {
	raw, err := marshalText(v)
	if err != nil {
		return nil, WrapInvalidEnvelopeError(err, "failed to marshal "+key)
	}
	return payloadFor(key, raw)
}

func payloadFor(key string, raw json.RawMessage) (Payload, error) {
	switch key {
	case KeyDatosMC:
		return DatosMC{Raw: raw}, nil
	case KeyCadenaMC:
		return CadenaMC{Raw: raw}, nil
	case KeyFolioCodi:
		return FolioCodi{Raw: raw}, nil
	case KeyPeticionConsulta:
		return PeticionConsulta{Raw: raw}, nil
	case KeyResultado:
		return Resultado{Raw: raw}, nil
	case KeyCadenaInformacion:
		return CadenaInformacion{Raw: raw}, nil
	default:
		return nil, NewInvalidEnvelopeError("unknown payload key " + key)
	}
}

// Envelope is a signed message exchanged with the network.
type Envelope struct {
	Payload Payload

	// Signature is the base64 selloDigital value.
	Signature string

	// Epoch is the message time in milliseconds. The webhook result carries none.
	Epoch *int64

	// Shadowed lists payload keys that were present but lost to a key of higher precedence.
	Shadowed []string

	present map[string]bool
}

// NewEnvelope returns an unsigned envelope for p.
func NewEnvelope(p Payload, epoch int64) *Envelope {
	return &Envelope{
		Payload: p,
		Epoch:   &epoch,
		present: map[string]bool{p.Key(): true, KeyEpoch: true},
	}
}

// Has reports whether the top-level key was present in the parsed message.
func (e *Envelope) Has(key string) bool {
	return e.present[key]
}

// SetSignature stores the base64 signature.
func (e *Envelope) SetSignature(signature string) {
	e.Signature = signature
	if e.present == nil {
		e.present = map[string]bool{}
	}
	e.present[KeySelloDigital] = true
}

// ParseEnvelope decodes a message and selects its payload by key precedence:
// datosMC, cadenaMC, folioCodi, peticionConsulta, resultado, cadenaInformacion.
//
// A payload key whose value is null counts as absent. A message with no payload key parses
// successfully with a nil Payload; Canonicalize rejects it. Unknown top-level keys (edoPet,
// for example) are ignored.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var fields map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, WrapInvalidEnvelopeError(err, "message is not a JSON object")
	}
	if fields == nil {
		return nil, NewInvalidEnvelopeError("message is not a JSON object")
	}

	env := &Envelope{present: make(map[string]bool, len(fields))}
	for k, v := range fields {
		if isNull(v) {
			continue
		}
		env.present[k] = true
	}

	for _, key := range payloadKeys {
		if !env.present[key] {
			continue
		}
		if env.Payload != nil {
			env.Shadowed = append(env.Shadowed, key)
			continue
		}
		p, err := payloadFor(key, fields[key])
		if err != nil {
			return nil, err
		}
		env.Payload = p
	}

	if env.present[KeySelloDigital] {
		if err := json.Unmarshal(fields[KeySelloDigital], &env.Signature); err != nil {
			return nil, WrapInvalidEnvelopeError(err, "selloDigital is not a string")
		}
	}

	if env.present[KeyEpoch] {
		epoch, err := parseEpoch(fields[KeyEpoch])
		if err != nil {
			return nil, err
		}
		env.Epoch = &epoch
	}

	return env, nil
}

// MarshalJSON writes the payload key, selloDigital and epoch. The payload text keeps its key order.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, NewInvalidEnvelopeError("envelope has no payload")
	}

	payload, err := Stringify(e.Payload.JSON())
	if err != nil {
		return nil, WrapInvalidEnvelopeError(err, "failed to encode "+e.Payload.Key())
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	writeString(&buf, e.Payload.Key())
	buf.WriteByte(':')
	buf.Write(payload)
	if e.Has(KeySelloDigital) {
		buf.WriteByte(',')
		writeString(&buf, KeySelloDigital)
		buf.WriteByte(':')
		writeString(&buf, e.Signature)
	}
	if e.Epoch != nil {
		buf.WriteByte(',')
		writeString(&buf, KeyEpoch)
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatInt(*e.Epoch, 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// parseEpoch accepts an integral JSON number, or a string of digits.
func parseEpoch(raw json.RawMessage) (int64, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if epoch, err := strconv.ParseInt(text, 10, 64); err == nil {
		return epoch, nil
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, NewInvalidEnvelopeError("epoch is not an integer: " + string(raw))
	}
	return int64(f), nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
