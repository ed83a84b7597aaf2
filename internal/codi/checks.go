package codi

import (
	"encoding/json"
	"unicode/utf8"
)

// Check is one step of the validation pipeline. A non-zero code rejects the notification;
// a non-nil error is a precondition failure that aborts the pipeline without a code.
type Check func(*Notification) (ResultCode, error)

// NamedCheck pairs a check with the name used in logs.
type NamedCheck struct {
	Name  string
	Check Check
}

// Trust holds the certificate serials the notification must reference.
type Trust struct {
	// OperatorCertificateSerial is the serial of our own certificate (certComercioEnvio).
	OperatorCertificateSerial string
	// NetworkCertificateSerial is the serial of the network's signing certificate (certBdeMSello).
	NetworkCertificateSerial string
}

// InstitutionRegistry reports whether an institution code is known.
type InstitutionRegistry interface {
	Contains(code string) bool
}

const maxVerificationDigit = 999999999

var validResultCodes = map[int64]bool{
	0: true, 1: true, 2: true, 3: true, 4: true, 6: true,
	21: true, 22: true, 23: true, 24: true,
	31: true, 32: true, 33: true, 34: true,
	61: true, 62: true, 63: true,
}

var validAccountTypes = map[int64]bool{
	40: true, // CLABE
	3:  true, // debit card
	10: true, // mobile phone
}

// DefaultChecks returns the ordered business checks.
func DefaultChecks(trust Trust) []NamedCheck {
	return []NamedCheck{
		{"verification digit", CheckVerificationDigit},
		{"phone number", CheckPhone},
		{"operator certificate", CheckOperatorCertificate(trust.OperatorCertificateSerial)},
		{"network certificate", CheckNetworkCertificate(trust.NetworkCertificateSerial)},
		{"result code", CheckResultCode},
		{"message id", CheckMessageID},
		{"concept", CheckConcept},
		{"timestamps", CheckTimestamps},
	}
}

// InstitutionChecks returns the optional institution and account type checks,
// appended after the default checks when enabled.
func InstitutionChecks(registry InstitutionRegistry) []NamedCheck {
	return []NamedCheck{
		{"institution", CheckInstitution(registry)},
		{"account type", CheckAccountType},
	}
}

// CheckVerificationDigit requires an integral JSON number in [0, 999999999].
func CheckVerificationDigit(n *Notification) (ResultCode, error) {
	v, _ := n.Value(FieldDigitoVerificadorCliente)
	if _, ok := v.(json.Number); !ok {
		return ResultInvalidVerificationDigit, nil
	}
	digit, ok := n.Int(FieldDigitoVerificadorCliente)
	if !ok || digit < 0 || digit > maxVerificationDigit {
		return ResultInvalidVerificationDigit, nil
	}
	return ResultAccepted, nil
}

// CheckPhone requires exactly ten ASCII digits. Numbers are checked by their JSON text.
func CheckPhone(n *Notification) (ResultCode, error) {
	phone, ok := n.String(FieldCelularCliente)
	if !ok || len(phone) != 10 {
		return ResultInvalidPhone, nil
	}
	for i := 0; i < len(phone); i++ {
		if phone[i] < '0' || phone[i] > '9' {
			return ResultInvalidPhone, nil
		}
	}
	return ResultAccepted, nil
}

// CheckOperatorCertificate fails the pipeline with a CERTIFICATE_MISMATCH error when the
// notification was not addressed to our certificate.
func CheckOperatorCertificate(serial string) Check {
	return func(n *Notification) (ResultCode, error) {
		got, _ := n.String(FieldCertComercioEnvio)
		if got != serial {
			return ResultAccepted, NewCertificateMismatchError("certComercioEnvio " + got + " does not match the operator certificate")
		}
		return ResultAccepted, nil
	}
}

// CheckNetworkCertificate requires certBdeMSello to match the trusted network certificate.
func CheckNetworkCertificate(serial string) Check {
	return func(n *Notification) (ResultCode, error) {
		got, ok := n.String(FieldCertBdeMSello)
		if !ok || got != serial {
			return ResultInvalidNetworkCertificate, nil
		}
		return ResultAccepted, nil
	}
}

// CheckResultCode requires resultadoMensajeCobro to be a known network result.
func CheckResultCode(n *Notification) (ResultCode, error) {
	code, ok := n.Int(FieldResultadoMensajeCobro)
	if !ok || !validResultCodes[code] {
		return ResultInvalidResultCode, nil
	}
	return ResultAccepted, nil
}

// CheckMessageID requires idMensajeCobro to be a string of 10 or 20 characters.
func CheckMessageID(n *Notification) (ResultCode, error) {
	v, _ := n.Value(FieldIDMensajeCobro)
	id, ok := v.(string)
	if !ok {
		return ResultInvalidMessageID, nil
	}
	if l := utf8.RuneCountInString(id); l != 10 && l != 20 {
		return ResultInvalidMessageID, nil
	}
	return ResultAccepted, nil
}

// CheckConcept requires a non-empty concepto string.
func CheckConcept(n *Notification) (ResultCode, error) {
	v, _ := n.Value(FieldConcepto)
	if concept, ok := v.(string); !ok || concept == "" {
		return ResultEmptyConcept, nil
	}
	return ResultAccepted, nil
}

// CheckTimestamps requires request time < processing time < send time.
func CheckTimestamps(n *Notification) (ResultCode, error) {
	requested, ok1 := n.Float(FieldHoraSolicitudMensajeCobro)
	processed, ok2 := n.Float(FieldHoraProcesamientoMensajeCobro)
	sent, ok3 := n.Float(FieldHoraEnvioMensaje)
	if !ok1 || !ok2 || !ok3 {
		return ResultInvalidTimestamps, nil
	}
	if !(requested < processed && processed < sent) {
		return ResultInvalidTimestamps, nil
	}
	return ResultAccepted, nil
}

// CheckInstitution requires institucionCliente to be in the registry.
func CheckInstitution(registry InstitutionRegistry) Check {
	return func(n *Notification) (ResultCode, error) {
		code, ok := n.String(FieldInstitucionCliente)
		if !ok || registry == nil || !registry.Contains(code) {
			return ResultUnknownInstitution, nil
		}
		return ResultAccepted, nil
	}
}

// CheckAccountType requires tipoCuentaCliente to be 40, 3 or 10.
func CheckAccountType(n *Notification) (ResultCode, error) {
	accountType, ok := n.Int(FieldTipoCuentaCliente)
	if !ok || !validAccountTypes[accountType] {
		return ResultInvalidAccountType, nil
	}
	return ResultAccepted, nil
}
