package codi

import (
	"bytes"
	"testing"
)

func TestNormalizeMonto(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"integer followed by brace", `{"monto":5}`, `{"monto":5.0}`},
		{"decimal unchanged", `{"monto":5.5}`, `{"monto":5.5}`},
		{"integer followed by comma", `{"monto":150,"concepto":"x"}`, `{"monto":150.0,"concepto":"x"}`},
		{"siblings untouched", `{"a":1,"monto":20,"b":3}`, `{"a":1,"monto":20.0,"b":3}`},
		{"other numeric fields untouched", `{"montoTotal":5,"cantidad":7}`, `{"montoTotal":5,"cantidad":7}`},
		{"string monto untouched", `{"monto":"5"}`, `{"monto":"5"}`},
		{"exponent untouched", `{"monto":1e+21}`, `{"monto":1e+21}`},
		{"nested monto rewritten", `{"detalle":{"monto":7}}`, `{"detalle":{"monto":7.0}}`},
		{"every occurrence", `[{"monto":1},{"monto":2}]`, `[{"monto":1.0},{"monto":2.0}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeMonto([]byte(tt.input))
			if string(got) != tt.want {
				t.Errorf("NormalizeMonto(%s) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalize(t *testing.T) {
	epoch := int64(1700000000000)

	tests := []struct {
		name    string
		env     *Envelope
		want    string
		wantErr ErrorCode
	}{
		{
			name: "datosMC object with epoch",
			env:  &Envelope{Payload: DatosMC{Raw: []byte(`{"monto": 150, "concepto": "cafe"}`)}, Epoch: &epoch},
			want: `{"monto":150,"concepto":"cafe"}1700000000000`,
		},
		{
			name: "cadenaMC string used verbatim",
			env:  &Envelope{Payload: CadenaMC{Raw: []byte(`"{\"TYP\":20,\"v\":{\"DEV\":\"x\"}}"`)}, Epoch: &epoch},
			want: `{"TYP":20,"v":{"DEV":"x"}}1700000000000`,
		},
		{
			name: "folioCodi string",
			env:  &Envelope{Payload: FolioCodi{Raw: []byte(`"b3a5c1d2e4"`)}, Epoch: &epoch},
			want: `b3a5c1d2e41700000000000`,
		},
		{
			name: "peticionConsulta",
			env:  &Envelope{Payload: PeticionConsulta{Raw: []byte(`{"folioCodi":"f","tamanoPagina":10}`)}, Epoch: &epoch},
			want: `{"folioCodi":"f","tamanoPagina":10}1700000000000`,
		},
		{
			name: "resultado monto is not normalized",
			env:  &Envelope{Payload: Resultado{Raw: []byte(`{"monto":5}`)}, Epoch: &epoch},
			want: `{"monto":5}1700000000000`,
		},
		{
			name: "cadenaInformacion normalized without epoch",
			env:  &Envelope{Payload: CadenaInformacion{Raw: []byte(`{"monto":5,"concepto":"x"}`)}},
			want: `{"monto":5.0,"concepto":"x"}`,
		},
		{
			name: "cadenaInformacion ignores an epoch",
			env:  &Envelope{Payload: CadenaInformacion{Raw: []byte(`{"monto":5}`)}, Epoch: &epoch},
			want: `{"monto":5.0}`,
		},
		{
			name:    "missing epoch",
			env:     &Envelope{Payload: DatosMC{Raw: []byte(`{"monto":5}`)}},
			wantErr: ErrCodeInvalidEnvelope,
		},
		{
			name:    "no payload",
			env:     &Envelope{Epoch: &epoch},
			wantErr: ErrCodeInvalidEnvelope,
		},
		{
			name:    "invalid payload json",
			env:     &Envelope{Payload: DatosMC{Raw: []byte(`{"monto":`)}, Epoch: &epoch},
			wantErr: ErrCodeInvalidEnvelope,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.env)
			if tt.wantErr != "" {
				if !IsCode(err, tt.wantErr) {
					t.Fatalf("expected %s error, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Canonicalize() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCanonicalize_Deterministic(t *testing.T) {
	msg := []byte(`{"datosMC":{"monto":10.5,"referenciaNumerica":"0000001","concepto":"té","vigencia":0,"apiKey":"k"},"epoch":1700000000000,"selloDigital":"x"}`)

	first, err := Canonicalize(parse(t, msg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Canonicalize(parse(t, msg))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("canonical strings differ:\n%s\n%s", first, second)
	}
}

func TestCanonicalize_NilEnvelope(t *testing.T) {
	if _, err := Canonicalize(nil); !IsCode(err, ErrCodeInvalidEnvelope) {
		t.Errorf("expected INVALID_ENVELOPE, got %v", err)
	}
}
