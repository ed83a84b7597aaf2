// Package testutil provides key material and environments for tests that exercise the
// gateway end to end: an operator and a network party with self-signed certificates.
package testutil

import (
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
	"github.com/information-sharing-networks/codi-gateway/internal/environment"
)

const (
	Passphrase     = "test-passphrase"
	OperatorSerial = "30001000000500003416"
	NetworkSerial  = "30001000000500003282"
	APIKey         = "test-api-key"
)

// Party is a key pair with its encrypted private key and certificate PEM.
type Party struct {
	Key     *rsa.PrivateKey
	KeyPEM  []byte
	CertPEM []byte
	Serial  string
}

// Signer returns a codi signer for the party's encrypted key.
func (p Party) Signer() *codi.Signer {
	return codi.NewSigner(p.KeyPEM, Passphrase, nil)
}

var (
	partiesOnce sync.Once
	operator    Party
	network     Party
	partiesErr  error
)

// Parties returns the operator and network parties. Keys are generated once per test binary.
func Parties(t testing.TB) (Party, Party) {
	t.Helper()
	partiesOnce.Do(func() {
		operator, partiesErr = NewParty(OperatorSerial)
		if partiesErr != nil {
			return
		}
		network, partiesErr = NewParty(NetworkSerial)
	})
	if partiesErr != nil {
		t.Fatalf("failed to create test parties: %v", partiesErr)
	}
	return operator, network
}

// NewParty generates a 2048 bit key and a self-signed certificate with the given decimal serial.
func NewParty(serial string) (Party, error) {
	key, err := crypto.GenerateRSAKeyPair(2048)
	if err != nil {
		return Party{}, err
	}
	keyPEM, err := crypto.EncryptPrivateKeyToPEM(key, Passphrase)
	if err != nil {
		return Party{}, err
	}
	n, ok := new(big.Int).SetString(serial, 10)
	if !ok {
		return Party{}, fmt.Errorf("invalid serial %q", serial)
	}
	der, err := crypto.CreateSelfSignedCertificate(key, "test "+serial, n, time.Hour)
	if err != nil {
		return Party{}, err
	}
	return Party{Key: key, KeyPEM: keyPEM, CertPEM: crypto.EncodeCertificatePEM(der), Serial: serial}, nil
}

// NewEnvironment builds an environment for the operator and network parties that delivers to
// primaryURL and secondaryURL.
func NewEnvironment(t testing.TB, name environment.Name, primaryURL, secondaryURL string) *environment.Environment {
	t.Helper()
	op, nw := Parties(t)

	env, err := environment.New(environment.Options{
		Name: name,
		Credentials: environment.Credentials{
			PrivateKeyPEM:         op.KeyPEM,
			Passphrase:            Passphrase,
			CertificatePEM:        op.CertPEM,
			NetworkCertificatePEM: nw.CertPEM,
			APIKey:                APIKey,
		},
		Endpoints:       environment.Endpoints{Primary: primaryURL, Secondary: secondaryURL},
		DeliveryTimeout: time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("failed to create environment: %v", err)
	}
	return env
}

// SignedResponse returns a network response: edoPet, the payload under key, its signature and epoch.
func SignedResponse(t testing.TB, signer *codi.Signer, edoPet int, key string, payload any, epoch int64) []byte {
	t.Helper()
	p, err := codi.NewPayload(key, payload)
	if err != nil {
		t.Fatalf("failed to create payload: %v", err)
	}
	env := codi.NewEnvelope(p, epoch)
	if err := signer.SignEnvelope(env); err != nil {
		t.Fatalf("failed to sign response: %v", err)
	}

	body, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("failed to marshal response: %v", err)
	}
	// edoPet is added in front of the envelope keys
	return append([]byte(fmt.Sprintf(`{"edoPet":%d,`, edoPet)), body[1:]...)
}

// NotificationFields returns the fields of a notification that passes every check, in wire order.
func NotificationFields() []Field {
	return []Field{
		{codi.FieldCelularCliente, "5512345678"},
		{codi.FieldDigitoVerificadorCliente, json.Number("123456789")},
		{codi.FieldNombreCliente, "Juan Perez"},
		{codi.FieldInstitucionCliente, "40012"},
		{codi.FieldTipoCuentaCliente, json.Number("40")},
		{codi.FieldCuentaCliente, "012180015000000001"},
		{codi.FieldIDMensajeCobro, "ABCDE12345"},
		{codi.FieldConcepto, "Pago de prueba"},
		{codi.FieldMonto, json.Number("150")},
		{codi.FieldClaveRastreo, "CODI1234567890"},
		{codi.FieldResultadoMensajeCobro, json.Number("0")},
		{codi.FieldHoraSolicitudMensajeCobro, json.Number("1700000000000")},
		{codi.FieldHoraProcesamientoMensajeCobro, json.Number("1700000001000")},
		{codi.FieldHoraEnvioMensaje, json.Number("1700000002000")},
		{codi.FieldCertComercioEnvio, OperatorSerial},
		{codi.FieldCertBdeMSello, NetworkSerial},
	}
}

// Field is an ordered JSON object member.
type Field struct {
	Key   string
	Value any
}

// With replaces the value of key, or appends it.
func With(fields []Field, key string, value any) []Field {
	out := append([]Field(nil), fields...)
	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}
	return append(out, Field{key, value})
}

// ObjectJSON encodes fields as a JSON object in the given order.
func ObjectJSON(t testing.TB, fields []Field) []byte {
	t.Helper()
	buf := []byte{'{'}
	for i, f := range fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, _ := json.Marshal(f.Key)
		v, err := json.Marshal(f.Value)
		if err != nil {
			t.Fatalf("failed to marshal %s: %v", f.Key, err)
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	return append(buf, '}')
}

// SignedNotification returns a webhook message with cadenaInformacion signed by signer.
func SignedNotification(t testing.TB, signer *codi.Signer, fields []Field) []byte {
	t.Helper()
	payload := codi.CadenaInformacion{Raw: ObjectJSON(t, fields)}
	canonical, err := codi.Canonicalize(&codi.Envelope{Payload: payload})
	if err != nil {
		t.Fatalf("failed to canonicalize: %v", err)
	}
	signature, err := signer.Sign(canonical)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	msg, err := json.Marshal(map[string]any{
		codi.KeyCadenaInformacion: json.RawMessage(payload.Raw),
		codi.KeySelloDigital:      signature,
	})
	if err != nil {
		t.Fatalf("failed to marshal message: %v", err)
	}
	return msg
}
