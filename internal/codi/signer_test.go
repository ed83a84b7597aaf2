package codi

import (
	"encoding/base64"
	"testing"
)

// verify(canonicalize(P), sign(canonicalize(P)), certificate) is true for every variant
func TestSignAndVerify_RoundTrip(t *testing.T) {
	op, _ := testParties(t)
	signer := op.signer()

	messages := []string{
		`{"datosMC":{"monto":150,"referenciaNumerica":"1234567","concepto":"cafe","vigencia":0,"apiKey":"k"},"epoch":1700000000000}`,
		`{"cadenaMC":"{\"TYP\":20}","epoch":1700000000000}`,
		`{"folioCodi":"abc123","epoch":1700000000000}`,
		`{"peticionConsulta":{"folioCodi":"abc123","tamanoPagina":10,"numeroPagina":1,"fechaInicio":"","fechaFin":""},"epoch":1}`,
		`{"resultado":{"total":1,"detalle":[{"monto":5}]},"epoch":1700000000000}`,
		`{"cadenaInformacion":{"monto":5,"concepto":"x"}}`,
	}

	for _, msg := range messages {
		env := parse(t, []byte(msg))
		t.Run(env.Payload.Key(), func(t *testing.T) {
			if err := signer.SignEnvelope(env); err != nil {
				t.Fatalf("failed to sign: %v", err)
			}

			canonical, err := Canonicalize(env)
			if err != nil {
				t.Fatalf("failed to canonicalize: %v", err)
			}
			ok, err := Verify(canonical, env.Signature, op.certPEM)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !ok {
				t.Error("signature did not verify")
			}
		})
	}
}

// flipping a byte of the signed canonical string gives false, not an error
func TestVerify_TamperSensitivity(t *testing.T) {
	op, _ := testParties(t)
	canonical := []byte(`{"monto":150.0,"concepto":"cafe"}`)

	signature, err := op.signer().Sign(canonical)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}
	verifier := op.verifier(t)

	for i := range canonical {
		tampered := append([]byte(nil), canonical...)
		tampered[i]++

		ok, err := verifier.Verify(tampered, signature)
		if err != nil {
			t.Fatalf("byte %d: unexpected error %v", i, err)
		}
		if ok {
			t.Fatalf("byte %d: tampered string verified", i)
		}
	}
}

func TestVerify_WrongCertificate(t *testing.T) {
	op, net := testParties(t)
	canonical := []byte("payload")

	signature, err := op.signer().Sign(canonical)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	ok, err := Verify(canonical, signature, net.certPEM)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("signature verified against the wrong certificate")
	}
}

func TestVerify_MalformedInput(t *testing.T) {
	op, _ := testParties(t)

	tests := []struct {
		name      string
		signature string
		certPEM   []byte
	}{
		{"malformed certificate", base64.StdEncoding.EncodeToString([]byte("sig")), []byte("not a certificate")},
		{"malformed base64", "***", op.certPEM},
		{"empty signature", "", op.certPEM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Verify([]byte("payload"), tt.signature, tt.certPEM)
			if !IsCode(err, ErrCodeVerificationFailed) {
				t.Fatalf("expected VERIFICATION_FAILED, got ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestSigner_Errors(t *testing.T) {
	op, _ := testParties(t)

	t.Run("wrong passphrase", func(t *testing.T) {
		signer := NewSigner(op.keyPEM, "wrong", nil)
		if _, err := signer.Sign([]byte("x")); !IsCode(err, ErrCodeKeyDecryptionFailed) {
			t.Errorf("expected KEY_DECRYPTION_FAILED, got %v", err)
		}
	})

	t.Run("not a key", func(t *testing.T) {
		signer := NewSigner([]byte("garbage"), testPassphrase, nil)
		if _, err := signer.Sign([]byte("x")); !IsCode(err, ErrCodeKeyDecryptionFailed) {
			t.Errorf("expected KEY_DECRYPTION_FAILED, got %v", err)
		}
	})

	t.Run("envelope without epoch", func(t *testing.T) {
		env := &Envelope{Payload: DatosMC{Raw: []byte(`{"monto":1}`)}}
		if err := op.signer().SignEnvelope(env); !IsCode(err, ErrCodeInvalidEnvelope) {
			t.Errorf("expected INVALID_ENVELOPE, got %v", err)
		}
	})
}

func TestSigner_PublicKey(t *testing.T) {
	op, _ := testParties(t)

	publicKey, err := op.signer().PublicKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !publicKey.Equal(op.verifier(t).publicKey) {
		t.Error("signer public key does not match certificate")
	}
}
