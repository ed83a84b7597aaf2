package handlers

// webhook.go implements POST /v1/webhook/{environment}, the endpoint the network calls with
// the result of a collection message.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/information-sharing-networks/codi-gateway/internal/api"
	"github.com/information-sharing-networks/codi-gateway/internal/audit"
	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/information-sharing-networks/codi-gateway/internal/environment"
	"github.com/information-sharing-networks/codi-gateway/internal/events"
	"github.com/information-sharing-networks/codi-gateway/internal/logger"
)

// WebhookResponse is returned to the network for every notification that reached a result code.
type WebhookResponse struct {
	Resultado codi.ResultCode `json:"resultado"`
}

// WebhookHandler handles result notifications sent by the network.
type WebhookHandler struct {
	registry  *environment.Registry
	audit     audit.Store
	publisher events.Publisher
}

// NewWebhookHandler creates a new handler for result notifications
func NewWebhookHandler(registry *environment.Registry, auditStore audit.Store, publisher events.Publisher) *WebhookHandler {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &WebhookHandler{
		registry:  registry,
		audit:     auditStore,
		publisher: publisher,
	}
}

// HandleWebhook validates a notification with the environment's pipeline.
//
// Business rejections are answered with 200 and the negative result code. Structural failures
// (a missing field, an unreadable envelope, a certificate mismatch) are answered with a 500
// error response so that the network redelivers the notification.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	env, err := h.registry.Resolve(chi.URLParam(r, "environment"))
	if err != nil {
		api.RespondWithErrorResponse(w, r, err)
		return
	}
	reqLogger := logger.ContextRequestLogger(ctx).With(slog.String("environment", string(env.Name)))

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			api.RespondWithErrorResponse(w, r, api.NewRequestTooLargeError("request body too large"))
			return
		}
		api.RespondWithErrorResponse(w, r, api.WrapMalformedRequestError(err, "failed to read request body"))
		return
	}
	defer r.Body.Close()

	entry := audit.Entry{
		Direction:   audit.Inbound,
		Environment: string(env.Name),
		PayloadKey:  codi.KeyCadenaInformacion,
		Payload:     body,
	}

	envelope, err := codi.ParseEnvelope(body)
	if err != nil {
		h.record(r, entry, audit.OutcomeError, nil, err)
		api.RespondWithErrorResponse(w, r, api.WrapPreconditionError(err, "notification could not be parsed"))
		return
	}
	if len(envelope.Shadowed) > 0 {
		reqLogger.Warn("notification carries more than one payload key",
			slog.String("payload_key", envelope.Payload.Key()),
			slog.Any("ignored", envelope.Shadowed),
		)
	}
	if envelope.Payload != nil {
		entry.PayloadKey = envelope.Payload.Key()
	}

	evaluation, err := env.Pipeline.Evaluate(envelope)
	if err != nil {
		h.record(r, entry, audit.OutcomeError, nil, err)
		api.RespondWithErrorResponse(w, r, api.WrapPreconditionError(err, "notification failed a precondition"))
		return
	}

	var summary codi.Summary
	if evaluation.Notification != nil {
		summary = evaluation.Notification.Summary()
		entry.IDMensajeCobro = summary.IDMensajeCobro
		entry.ClaveRastreo = summary.ClaveRastreo
	}

	outcome := audit.OutcomeAccepted
	if !evaluation.Code.Accepted() {
		outcome = audit.OutcomeRejected
		reqLogger.Info("notification rejected",
			slog.Int("resultado", int(evaluation.Code)),
			slog.String("check", evaluation.Check),
			slog.String("id_mensaje_cobro", summary.IDMensajeCobro),
		)
	}
	code := int(evaluation.Code)
	record := h.record(r, entry, outcome, &code, nil)

	if evaluation.Code.Accepted() {
		event := events.NewAcceptedResult(string(env.Name), record, summary)
		if err := h.publisher.Publish(ctx, event); err != nil {
			// the notification has been accepted, the network must not resend it
			reqLogger.Error("failed to publish accepted result",
				slog.String("event_id", event.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	logger.ContextWithLogAttrs(ctx,
		slog.Int("resultado", code),
		slog.String("id_mensaje_cobro", summary.IDMensajeCobro),
	)
	api.RespondWithJSONPayload(w, http.StatusOK, WebhookResponse{Resultado: evaluation.Code})
}

// record writes the audit entry and returns its id. Only JSON bodies are recorded.
// Audit failures are logged and do not change the answer given to the network.
func (h *WebhookHandler) record(r *http.Request, entry audit.Entry, outcome string, code *int, cause error) string {
	if h.audit == nil || !json.Valid(entry.Payload) {
		return ""
	}
	entry.Outcome = outcome
	entry.ResultCode = code
	if cause != nil {
		entry.Error = cause.Error()
	}

	record, err := h.audit.Record(r.Context(), entry)
	if err != nil {
		logger.ContextRequestLogger(r.Context()).Error("failed to record notification",
			slog.String("error", err.Error()),
		)
		return ""
	}
	return record.ID.String()
}
