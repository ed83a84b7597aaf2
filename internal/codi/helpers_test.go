package codi

import (
	"bytes"
	"encoding/json"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
)

const (
	testPassphrase     = "test-passphrase"
	testOperatorSerial = "30001000000500003416"
	testNetworkSerial  = "30001000000500003282"
)

// party is a key pair with its encrypted key and certificate PEM
type party struct {
	keyPEM  []byte
	certPEM []byte
}

var (
	partiesOnce sync.Once
	operator    party
	network     party
	partiesErr  error
)

// testParties generates the operator and network key pairs once per test binary.
func testParties(t *testing.T) (party, party) {
	t.Helper()
	partiesOnce.Do(func() {
		operator, partiesErr = newParty(testOperatorSerial)
		if partiesErr != nil {
			return
		}
		network, partiesErr = newParty(testNetworkSerial)
	})
	if partiesErr != nil {
		t.Fatalf("failed to create test keys: %v", partiesErr)
	}
	return operator, network
}

func newParty(serial string) (party, error) {
	key, err := crypto.GenerateRSAKeyPair(2048)
	if err != nil {
		return party{}, err
	}
	keyPEM, err := crypto.EncryptPrivateKeyToPEM(key, testPassphrase)
	if err != nil {
		return party{}, err
	}
	n, _ := new(big.Int).SetString(serial, 10)
	der, err := crypto.CreateSelfSignedCertificate(key, "test "+serial, n, time.Hour)
	if err != nil {
		return party{}, err
	}
	return party{keyPEM: keyPEM, certPEM: crypto.EncodeCertificatePEM(der)}, nil
}

func (p party) signer() *Signer {
	return NewSigner(p.keyPEM, testPassphrase, nil)
}

func (p party) verifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(p.certPEM)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}
	return v
}

// field is an ordered notification field
type field struct {
	key   string
	value any
}

// validFields is a notification that passes every check
func validFields() []field {
	return []field{
		{FieldCelularCliente, "5512345678"},
		{FieldDigitoVerificadorCliente, json.Number("123456789")},
		{FieldNombreCliente, "Juan Perez"},
		{FieldInstitucionCliente, "40012"},
		{FieldTipoCuentaCliente, json.Number("40")},
		{FieldCuentaCliente, "012180015000000001"},
		{FieldIDMensajeCobro, "ABCDE12345"},
		{FieldConcepto, "Pago de prueba"},
		{FieldMonto, json.Number("150")},
		{FieldClaveRastreo, "CODI1234567890"},
		{FieldResultadoMensajeCobro, json.Number("0")},
		{FieldHoraSolicitudMensajeCobro, json.Number("1700000000000")},
		{FieldHoraProcesamientoMensajeCobro, json.Number("1700000001000")},
		{FieldHoraEnvioMensaje, json.Number("1700000002000")},
		{FieldCertComercioEnvio, testOperatorSerial},
		{FieldCertBdeMSello, testNetworkSerial},
	}
}

// with replaces the value of key, or appends it
func with(fields []field, key string, value any) []field {
	out := append([]field(nil), fields...)
	for i := range out {
		if out[i].key == key {
			out[i].value = value
			return out
		}
	}
	return append(out, field{key, value})
}

func without(fields []field, key string) []field {
	var out []field
	for _, f := range fields {
		if f.key != key {
			out = append(out, f)
		}
	}
	return out
}

func objectJSON(t *testing.T, fields []field) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(f.key)
		v, err := json.Marshal(f.value)
		if err != nil {
			t.Fatalf("failed to marshal %s: %v", f.key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// signedNotification returns a webhook message with cadenaInformacion signed by signer
func signedNotification(t *testing.T, signer *Signer, fields []field) []byte {
	t.Helper()
	payload := CadenaInformacion{Raw: objectJSON(t, fields)}
	canonical, err := Canonicalize(&Envelope{Payload: payload})
	if err != nil {
		t.Fatalf("failed to canonicalize: %v", err)
	}
	signature, err := signer.Sign(canonical)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	msg, err := json.Marshal(map[string]any{
		KeyCadenaInformacion: json.RawMessage(payload.Raw),
		KeySelloDigital:      signature,
	})
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}
	return msg
}

func parse(t *testing.T, msg []byte) *Envelope {
	t.Helper()
	env, err := ParseEnvelope(msg)
	if err != nil {
		t.Fatalf("failed to parse envelope: %v", err)
	}
	return env
}
