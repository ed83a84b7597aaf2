package codi

// PaymentRequest is the datosMC payload of QR and push requests.
// Field order is the serialization order and is part of the signed text.
type PaymentRequest struct {
	Monto              float64 `json:"monto"`
	ReferenciaNumerica string  `json:"referenciaNumerica"`
	Concepto           string  `json:"concepto"`
	// Vigencia is the expiry of the collection message in epoch milliseconds, 0 for none.
	Vigencia int64 `json:"vigencia"`
	// CelularCliente is only sent with push requests.
	CelularCliente string `json:"celularCliente,omitempty"`
	APIKey         string `json:"apiKey"`
}

// ConsultaRequest is the peticionConsulta payload.
type ConsultaRequest struct {
	FolioCodi    string `json:"folioCodi"`
	TamanoPagina int    `json:"tamanoPagina"`
	NumeroPagina int    `json:"numeroPagina"`
	FechaInicio  string `json:"fechaInicio"`
	FechaFin     string `json:"fechaFin"`
}

// NewDatosMC marshals and sanitizes a payment request.
func NewDatosMC(req PaymentRequest) (DatosMC, error) {
	p, err := NewPayload(KeyDatosMC, req)
	if err != nil {
		return DatosMC{}, err
	}
	return SanitizeDatosMC(p.(DatosMC))
}

// NewPeticionConsulta marshals a status query.
func NewPeticionConsulta(req ConsultaRequest) (PeticionConsulta, error) {
	p, err := NewPayload(KeyPeticionConsulta, req)
	if err != nil {
		return PeticionConsulta{}, err
	}
	return p.(PeticionConsulta), nil
}
