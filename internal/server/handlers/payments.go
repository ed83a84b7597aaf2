package handlers

// payments.go implements the routes merchants call to request payments:
// POST /v1/qr, POST /v1/push and POST /v1/consulta.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/information-sharing-networks/codi-gateway/internal/api"
	"github.com/information-sharing-networks/codi-gateway/internal/audit"
	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/information-sharing-networks/codi-gateway/internal/environment"
	"github.com/information-sharing-networks/codi-gateway/internal/logger"
	"github.com/information-sharing-networks/codi-gateway/internal/network"
)

// QRRequest is the body of POST /v1/qr
type QRRequest struct {
	Monto              float64 `json:"monto"`
	ReferenciaNumerica string  `json:"referenciaNumerica"`
	Concepto           string  `json:"concepto"`
	// Vigencia is the expiry in milliseconds, 0 for none
	Vigencia int64 `json:"vigencia"`
}

// PushRequest is the body of POST /v1/push
type PushRequest struct {
	QRRequest
	CelularCliente string `json:"celularCliente"`
}

// QRResponse carries the collection message to render as a QR code.
type QRResponse struct {
	CadenaMC string `json:"cadenaMC"`
	Endpoint string `json:"endpoint"`
}

// PushResponse carries the network's reference for the collection message.
type PushResponse struct {
	FolioCodi string `json:"folioCodi"`
	Endpoint  string `json:"endpoint"`
}

// ConsultaResponse carries the network's answer to a status query.
type ConsultaResponse struct {
	Resultado json.RawMessage `json:"resultado"`
	Endpoint  string          `json:"endpoint"`
}

// PaymentsHandler sends payment requests to the network.
type PaymentsHandler struct {
	registry *environment.Registry
	client   *network.Client
	audit    audit.Store
}

// NewPaymentsHandler creates a new handler for the payment routes
func NewPaymentsHandler(registry *environment.Registry, client *network.Client, auditStore audit.Store) *PaymentsHandler {
	return &PaymentsHandler{
		registry: registry,
		client:   client,
		audit:    auditStore,
	}
}

// HandleQR requests a collection message to be shown as a QR code.
// The environment is selected with ?environment=production, any other value selects non-production.
func (h *PaymentsHandler) HandleQR(w http.ResponseWriter, r *http.Request) {
	var req QRRequest
	body, env, ok := h.decode(w, r, &req)
	if !ok {
		return
	}

	resp, err := h.client.GenerateQR(r.Context(), env, network.QRRequest{
		Monto:              req.Monto,
		ReferenciaNumerica: req.ReferenciaNumerica,
		Concepto:           req.Concepto,
		Vigencia:           req.Vigencia,
	})
	h.record(r.Context(), env, codi.KeyDatosMC, body, resp, err)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, QRResponse{CadenaMC: resp.Text(), Endpoint: resp.Endpoint})
}

// HandlePush sends a collection message to the customer's phone.
func (h *PaymentsHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	var req PushRequest
	body, env, ok := h.decode(w, r, &req)
	if !ok {
		return
	}

	resp, err := h.client.SendPush(r.Context(), env, network.PushRequest{
		QRRequest: network.QRRequest{
			Monto:              req.Monto,
			ReferenciaNumerica: req.ReferenciaNumerica,
			Concepto:           req.Concepto,
			Vigencia:           req.Vigencia,
		},
		CelularCliente: req.CelularCliente,
	})
	h.record(r.Context(), env, codi.KeyDatosMC, body, resp, err)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, PushResponse{FolioCodi: resp.Text(), Endpoint: resp.Endpoint})
}

// HandleConsulta queries the status of collection messages.
func (h *PaymentsHandler) HandleConsulta(w http.ResponseWriter, r *http.Request) {
	var req codi.ConsultaRequest
	body, env, ok := h.decode(w, r, &req)
	if !ok {
		return
	}

	resp, err := h.client.Consulta(r.Context(), env, req)
	h.record(r.Context(), env, codi.KeyPeticionConsulta, body, resp, err)
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}

	api.RespondWithJSONPayload(w, http.StatusOK, ConsultaResponse{
		Resultado: resp.Envelope.Payload.JSON(),
		Endpoint:  resp.Endpoint,
	})
}

// decode reads the request body into v and resolves the environment.
// It writes the error response and returns false when either fails.
func (h *PaymentsHandler) decode(w http.ResponseWriter, r *http.Request, v any) ([]byte, *environment.Environment, bool) {
	env, err := h.registry.Resolve(r.URL.Query().Get("environment"))
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return nil, nil, false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			api.RespondWithErrorResponse(w, r, api.NewRequestTooLargeError("request body too large"))
			return nil, nil, false
		}
		api.RespondWithErrorResponse(w, r, api.WrapMalformedRequestError(err, "failed to read request body"))
		return nil, nil, false
	}
	defer r.Body.Close()

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		api.RespondWithErrorResponse(w, r, api.WrapMalformedRequestError(err, "failed to decode request JSON"))
		return nil, nil, false
	}
	return body, env, true
}

// record audits an outbound request. A delivered request is recorded as the signed envelope,
// a failed one as the body received from the caller.
func (h *PaymentsHandler) record(ctx context.Context, env *environment.Environment, payloadKey string, body []byte, resp *network.Response, cause error) {
	if h.audit == nil {
		return
	}
	entry := audit.Entry{
		Direction:   audit.Outbound,
		Environment: string(env.Name),
		PayloadKey:  payloadKey,
		Payload:     body,
		Outcome:     audit.OutcomeAccepted,
	}

	if cause != nil {
		entry.Outcome = audit.OutcomeError
		entry.Error = cause.Error()
		var protocolErr *network.ProtocolError
		if errors.As(cause, &protocolErr) {
			code := int(protocolErr.EdoPet)
			entry.Outcome = audit.OutcomeRejected
			entry.ResultCode = &code
		}
	} else {
		signed, err := json.Marshal(resp.Request)
		if err == nil {
			entry.Payload = signed
		}
		entry.Endpoint = resp.Endpoint
		code := int(resp.EdoPet)
		entry.ResultCode = &code
	}

	if _, err := h.audit.Record(ctx, entry); err != nil {
		logger.ContextRequestLogger(ctx).Error("failed to record request",
			slog.String("error", err.Error()),
		)
	}
}
