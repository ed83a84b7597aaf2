package codi

import (
	"encoding/json"
	"strings"
	"testing"
)

type institutions map[string]bool

func (i institutions) Contains(code string) bool { return i[code] }

func newTestPipeline(t *testing.T, checks []NamedCheck) *Pipeline {
	t.Helper()
	_, net := testParties(t)
	if checks == nil {
		checks = DefaultChecks(Trust{
			OperatorCertificateSerial: testOperatorSerial,
			NetworkCertificateSerial:  testNetworkSerial,
		})
	}
	return NewPipeline(net.verifier(t), checks, nil)
}

// a fully valid, correctly signed notification is accepted
func TestPipeline_EndToEnd(t *testing.T) {
	_, net := testParties(t)
	p := newTestPipeline(t, nil)

	msg := signedNotification(t, net.signer(), validFields())

	got, err := p.Evaluate(parse(t, msg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Code != ResultAccepted {
		t.Fatalf("expected 0, got %d (%s, check %q)", got.Code, got.Code, got.Check)
	}
	if got.Notification == nil {
		t.Fatal("expected notification on success")
	}

	summary := got.Notification.Summary()
	if summary.IDMensajeCobro != "ABCDE12345" || summary.Monto != 150 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestPipeline_ResultCodes(t *testing.T) {
	_, net := testParties(t)
	p := newTestPipeline(t, nil)

	tests := []struct {
		name   string
		fields []field
		want   ResultCode
	}{
		{"digit too large", with(validFields(), FieldDigitoVerificadorCliente, json.Number("1000000000")), ResultInvalidVerificationDigit},
		{"digit negative", with(validFields(), FieldDigitoVerificadorCliente, json.Number("-1")), ResultInvalidVerificationDigit},
		{"digit fraction", with(validFields(), FieldDigitoVerificadorCliente, json.Number("1.5")), ResultInvalidVerificationDigit},
		{"digit as string", with(validFields(), FieldDigitoVerificadorCliente, "123"), ResultInvalidVerificationDigit},
		{"digit zero", with(validFields(), FieldDigitoVerificadorCliente, json.Number("0")), ResultAccepted},
		{"phone too short", with(validFields(), FieldCelularCliente, "551234567"), ResultInvalidPhone},
		{"phone with letters", with(validFields(), FieldCelularCliente, "55123456ab"), ResultInvalidPhone},
		{"phone as number", with(validFields(), FieldCelularCliente, json.Number("5512345678")), ResultAccepted},
		{"phone with non-ascii digits", with(validFields(), FieldCelularCliente, "٥٥١٢٣٤٥٦٧٨"), ResultInvalidPhone},
		{"network certificate mismatch", with(validFields(), FieldCertBdeMSello, "999"), ResultInvalidNetworkCertificate},
		{"result code not whitelisted", with(validFields(), FieldResultadoMensajeCobro, json.Number("5")), ResultInvalidResultCode},
		{"result code 63", with(validFields(), FieldResultadoMensajeCobro, json.Number("63")), ResultAccepted},
		{"message id length 20", with(validFields(), FieldIDMensajeCobro, "ABCDE12345ABCDE12345"), ResultAccepted},
		{"message id length 11", with(validFields(), FieldIDMensajeCobro, "ABCDE123456"), ResultInvalidMessageID},
		{"message id not a string", with(validFields(), FieldIDMensajeCobro, json.Number("1234567890")), ResultInvalidMessageID},
		{"empty concept", with(validFields(), FieldConcepto, ""), ResultEmptyConcept},
		{"processing before request", with(validFields(), FieldHoraProcesamientoMensajeCobro, json.Number("1699999999999")), ResultInvalidTimestamps},
		{"equal timestamps", with(validFields(), FieldHoraEnvioMensaje, json.Number("1700000001000")), ResultInvalidTimestamps},
		{"timestamp not a number", with(validFields(), FieldHoraEnvioMensaje, "tomorrow"), ResultInvalidTimestamps},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := signedNotification(t, net.signer(), tt.fields)

			got, err := p.Evaluate(parse(t, msg))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Code != tt.want {
				t.Errorf("code = %d (%s), want %d (%s)", got.Code, got.Code, tt.want, tt.want)
			}
		})
	}
}

// a payload failing both the phone and timestamp checks gets the earlier code
func TestPipeline_FirstFailureWins(t *testing.T) {
	_, net := testParties(t)
	p := newTestPipeline(t, nil)

	fields := with(validFields(), FieldCelularCliente, "123")
	fields = with(fields, FieldHoraEnvioMensaje, json.Number("1"))

	got, err := p.Evaluate(parse(t, signedNotification(t, net.signer(), fields)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Code != ResultInvalidPhone {
		t.Errorf("expected -3, got %d", got.Code)
	}
	if got.Check != "phone number" {
		t.Errorf("expected failing check %q, got %q", "phone number", got.Check)
	}
}

// an invalid network certificate never reaches the result code check
func TestPipeline_ShortCircuit(t *testing.T) {
	_, net := testParties(t)

	checks := DefaultChecks(Trust{
		OperatorCertificateSerial: testOperatorSerial,
		NetworkCertificateSerial:  testNetworkSerial,
	})

	calls := 0
	resultCheck := checks[4]
	if resultCheck.Name != "result code" {
		t.Fatalf("check 5 is %q, expected the result code check", resultCheck.Name)
	}
	checks[4].Check = func(n *Notification) (ResultCode, error) {
		calls++
		return resultCheck.Check(n)
	}

	p := newTestPipeline(t, checks)

	bad := with(validFields(), FieldCertBdeMSello, "000")
	got, err := p.Evaluate(parse(t, signedNotification(t, net.signer(), bad)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Code != ResultInvalidNetworkCertificate {
		t.Errorf("expected -5, got %d", got.Code)
	}
	if calls != 0 {
		t.Errorf("result code check invoked %d times after a failing check", calls)
	}

	// and is invoked once for a good notification
	if _, err := p.Evaluate(parse(t, signedNotification(t, net.signer(), validFields()))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("result code check invoked %d times, want 1", calls)
	}
}

func TestPipeline_Signature(t *testing.T) {
	op, net := testParties(t)
	p := newTestPipeline(t, nil)

	t.Run("signed by the wrong key", func(t *testing.T) {
		msg := signedNotification(t, op.signer(), validFields())
		got, err := p.Evaluate(parse(t, msg))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Code != ResultInvalidSignature {
			t.Errorf("expected -8, got %d", got.Code)
		}
	})

	t.Run("malformed signature", func(t *testing.T) {
		msg := []byte(`{"cadenaInformacion":{"monto":1},"selloDigital":"###"}`)
		got, err := p.Evaluate(parse(t, msg))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Code != ResultInvalidSignature {
			t.Errorf("expected -8, got %d", got.Code)
		}
	})

	// the signature is checked before the sub-fields and before every business check
	t.Run("takes precedence over field checks", func(t *testing.T) {
		fields := without(with(validFields(), FieldCelularCliente, "1"), FieldConcepto)
		msg := signedNotification(t, op.signer(), fields)
		got, err := p.Evaluate(parse(t, msg))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Code != ResultInvalidSignature {
			t.Errorf("expected -8, got %d", got.Code)
		}
	})

	t.Run("integral monto is signed as a decimal", func(t *testing.T) {
		fields := with(validFields(), FieldMonto, json.Number("150"))
		msg := signedNotification(t, net.signer(), fields)

		env := parse(t, msg)
		canonical, _ := Canonicalize(env)
		if want := `"monto":150.0`; !strings.Contains(string(canonical), want) {
			t.Errorf("canonical string %s does not contain %s", canonical, want)
		}
		got, err := p.Evaluate(env)
		if err != nil || got.Code != ResultAccepted {
			t.Errorf("expected 0, got %d err=%v", got.Code, err)
		}
	})
}

func TestPipeline_StructuralFailures(t *testing.T) {
	_, net := testParties(t)
	p := newTestPipeline(t, nil)

	t.Run("missing selloDigital", func(t *testing.T) {
		_, err := p.Evaluate(parse(t, []byte(`{"cadenaInformacion":{"monto":1}}`)))
		if !IsCode(err, ErrCodeMissingField) {
			t.Errorf("expected MISSING_FIELD, got %v", err)
		}
	})

	t.Run("missing cadenaInformacion", func(t *testing.T) {
		_, err := p.Evaluate(parse(t, []byte(`{"selloDigital":"abc"}`)))
		if !IsCode(err, ErrCodeMissingField) {
			t.Errorf("expected MISSING_FIELD, got %v", err)
		}
	})

	t.Run("missing sub-field", func(t *testing.T) {
		msg := signedNotification(t, net.signer(), without(validFields(), FieldClaveRastreo))
		_, err := p.Evaluate(parse(t, msg))
		if !IsCode(err, ErrCodeMissingField) {
			t.Errorf("expected MISSING_FIELD, got %v", err)
		}
	})

	t.Run("null sub-field counts as missing", func(t *testing.T) {
		msg := signedNotification(t, net.signer(), with(validFields(), FieldNombreCliente, nil))
		_, err := p.Evaluate(parse(t, msg))
		if !IsCode(err, ErrCodeMissingField) {
			t.Errorf("expected MISSING_FIELD, got %v", err)
		}
	})

	t.Run("operator certificate mismatch", func(t *testing.T) {
		msg := signedNotification(t, net.signer(), with(validFields(), FieldCertComercioEnvio, "123"))
		_, err := p.Evaluate(parse(t, msg))
		if !IsCode(err, ErrCodeCertificateMismatch) {
			t.Errorf("expected CERTIFICATE_MISMATCH, got %v", err)
		}
	})

	t.Run("another payload has precedence", func(t *testing.T) {
		_, err := p.Evaluate(parse(t, []byte(`{"datosMC":{},"cadenaInformacion":{},"selloDigital":"x"}`)))
		if !IsCode(err, ErrCodeInvalidEnvelope) {
			t.Errorf("expected INVALID_ENVELOPE, got %v", err)
		}
	})
}

func TestPipeline_InstitutionChecks(t *testing.T) {
	_, net := testParties(t)

	checks := append(DefaultChecks(Trust{
		OperatorCertificateSerial: testOperatorSerial,
		NetworkCertificateSerial:  testNetworkSerial,
	}), InstitutionChecks(institutions{"40012": true, "40002": true})...)
	p := newTestPipeline(t, checks)

	tests := []struct {
		name   string
		fields []field
		want   ResultCode
	}{
		{"known institution", validFields(), ResultAccepted},
		{"institution as number", with(validFields(), FieldInstitucionCliente, json.Number("40002")), ResultAccepted},
		{"unknown institution", with(validFields(), FieldInstitucionCliente, "99999"), ResultUnknownInstitution},
		{"debit card account", with(validFields(), FieldTipoCuentaCliente, json.Number("3")), ResultAccepted},
		{"phone account", with(validFields(), FieldTipoCuentaCliente, json.Number("10")), ResultAccepted},
		{"invalid account type", with(validFields(), FieldTipoCuentaCliente, json.Number("7")), ResultInvalidAccountType},
		{"institution checked after timestamps", with(with(validFields(), FieldInstitucionCliente, "1"), FieldHoraEnvioMensaje, json.Number("0")), ResultInvalidTimestamps},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Evaluate(parse(t, signedNotification(t, net.signer(), tt.fields)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Code != tt.want {
				t.Errorf("code = %d, want %d", got.Code, tt.want)
			}
		})
	}
}

// institution and account type checks are not part of the default pipeline
func TestPipeline_InstitutionChecksOffByDefault(t *testing.T) {
	_, net := testParties(t)
	p := newTestPipeline(t, nil)

	fields := with(with(validFields(), FieldInstitucionCliente, "99999"), FieldTipoCuentaCliente, json.Number("7"))
	got, err := p.Evaluate(parse(t, signedNotification(t, net.signer(), fields)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Code != ResultAccepted {
		t.Errorf("expected 0, got %d", got.Code)
	}
}

func TestResultCode_String(t *testing.T) {
	if ResultInvalidPhone.String() != "invalid phone number" {
		t.Errorf("unexpected name %q", ResultInvalidPhone.String())
	}
	if ResultCode(-1).String() != "result -1" {
		t.Errorf("unexpected name %q", ResultCode(-1).String())
	}
	if !ResultAccepted.Accepted() || ResultInvalidSignature.Accepted() {
		t.Error("Accepted() is wrong")
	}
}
