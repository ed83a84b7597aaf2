package codi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Notification fields (cadenaInformacion).
const (
	FieldCelularCliente                = "celularCliente"
	FieldDigitoVerificadorCliente      = "digitoVerificadorCliente"
	FieldNombreCliente                 = "nombreCliente"
	FieldInstitucionCliente            = "institucionCliente"
	FieldTipoCuentaCliente             = "tipoCuentaCliente"
	FieldCuentaCliente                 = "cuentaCliente"
	FieldIDMensajeCobro                = "idMensajeCobro"
	FieldConcepto                      = "concepto"
	FieldMonto                         = "monto"
	FieldClaveRastreo                  = "claveRastreo"
	FieldResultadoMensajeCobro         = "resultadoMensajeCobro"
	FieldHoraSolicitudMensajeCobro     = "horaSolicitudMensajeCobro"
	FieldHoraProcesamientoMensajeCobro = "horaProcesamientoMensajeCobro"
	FieldHoraEnvioMensaje              = "horaEnvioMensaje"
	FieldCertComercioEnvio             = "certComercioEnvio"
	FieldCertBdeMSello                 = "certBdeMSello"
)

// RequiredFields are the notification fields that must be present before any check runs.
var RequiredFields = []string{
	FieldCelularCliente,
	FieldDigitoVerificadorCliente,
	FieldNombreCliente,
	FieldInstitucionCliente,
	FieldTipoCuentaCliente,
	FieldCuentaCliente,
	FieldIDMensajeCobro,
	FieldConcepto,
	FieldMonto,
	FieldClaveRastreo,
	FieldResultadoMensajeCobro,
	FieldHoraSolicitudMensajeCobro,
	FieldHoraProcesamientoMensajeCobro,
	FieldHoraEnvioMensaje,
	FieldCertComercioEnvio,
	FieldCertBdeMSello,
}

// Notification is a decoded cadenaInformacion payload. Values keep their JSON types
// (string, json.Number, bool, nil, map, slice) so that checks can apply their own coercion rules.
type Notification struct {
	raw    json.RawMessage
	values map[string]any
}

// ParseNotification decodes a cadenaInformacion payload. The payload may be a JSON object or a
// JSON string containing one.
func ParseNotification(p CadenaInformacion) (*Notification, error) {
	raw := bytes.TrimSpace(p.Raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, WrapInvalidEnvelopeError(err, "cadenaInformacion is not a valid JSON string")
		}
		raw = []byte(s)
	}

	var values map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil || values == nil {
		return nil, NewInvalidEnvelopeError("cadenaInformacion is not a JSON object")
	}

	return &Notification{raw: raw, values: values}, nil
}

// Missing returns the required fields that are absent, in RequiredFields order.
func (n *Notification) Missing() []string {
	var missing []string
	for _, f := range RequiredFields {
		if !n.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Has reports whether field is present. A null value counts as absent.
func (n *Notification) Has(field string) bool {
	v, ok := n.values[field]
	return ok && v != nil
}

// Value returns the decoded value of field.
func (n *Notification) Value(field string) (any, bool) {
	v, ok := n.values[field]
	return v, ok && v != nil
}

// String returns a scalar field as a string. Numbers keep their JSON text and booleans
// become "true"/"false". Objects and arrays are not scalars.
func (n *Notification) String(field string) (string, bool) {
	switch v := n.values[field].(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// Int returns a field holding an integral JSON number, or a string of one, as an int64.
func (n *Notification) Int(field string) (int64, bool) {
	var text string
	switch v := n.values[field].(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return 0, false
	}

	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// Float returns a numeric field, or a string holding a number, as a float64.
func (n *Notification) Float(field string) (float64, bool) {
	var text string
	switch v := n.values[field].(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// JSON returns the payload text as received.
func (n *Notification) JSON() json.RawMessage {
	return n.raw
}

// Summary holds the fields recorded in the audit log and published with accepted results.
type Summary struct {
	IDMensajeCobro        string  `json:"idMensajeCobro"`
	ClaveRastreo          string  `json:"claveRastreo"`
	Monto                 float64 `json:"monto"`
	Concepto              string  `json:"concepto"`
	ResultadoMensajeCobro int64   `json:"resultadoMensajeCobro"`
	InstitucionCliente    string  `json:"institucionCliente"`
	HoraEnvioMensaje      int64   `json:"horaEnvioMensaje"`
}

// Summary extracts the identifying fields of the notification. Unparseable fields are left zero.
func (n *Notification) Summary() Summary {
	var s Summary
	s.IDMensajeCobro, _ = n.String(FieldIDMensajeCobro)
	s.ClaveRastreo, _ = n.String(FieldClaveRastreo)
	s.Monto, _ = n.Float(FieldMonto)
	s.Concepto, _ = n.String(FieldConcepto)
	s.ResultadoMensajeCobro, _ = n.Int(FieldResultadoMensajeCobro)
	s.InstitucionCliente, _ = n.String(FieldInstitucionCliente)
	s.HoraEnvioMensaje, _ = n.Int(FieldHoraEnvioMensaje)
	return s
}
