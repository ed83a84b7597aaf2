// Package network is the client for the payment network's collection-message API.
//
// Every operation follows the same round trip: build the payload, sanitize it (payment
// requests only), canonicalize and sign it with the operator key, deliver it with fallback,
// check the numeric edoPet status and verify the network's signature on the reply.
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/information-sharing-networks/codi-gateway/internal/codi"
	"github.com/information-sharing-networks/codi-gateway/internal/delivery"
	"github.com/information-sharing-networks/codi-gateway/internal/environment"
	"github.com/information-sharing-networks/codi-gateway/internal/logger"
)

// Operation paths, relative to the environment's endpoint base URLs.
const (
	PathQR       = "/codi/qr"
	PathPush     = "/codi/push"
	PathConsulta = "/codi/consulta"
)

// EdoPetAccepted is the protocol-level success status.
const EdoPetAccepted = 0

// ErrInvalidResponseSignature is returned when the network's reply does not verify
// against the network certificate.
var ErrInvalidResponseSignature = errors.New("network response signature is not valid")

// ProtocolError is returned when the network answers with a non-zero edoPet.
// These are transport/protocol failures, not business outcomes.
type ProtocolError struct {
	EdoPet int64
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("network rejected the request: edoPet %d", e.EdoPet)
}

// ResponseError is returned when a reply can not be interpreted.
type ResponseError struct {
	message string
	wrapped error
}

func (e *ResponseError) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("invalid network response: %s: %v", e.message, e.wrapped)
	}
	return "invalid network response: " + e.message
}

func (e *ResponseError) Unwrap() error { return e.wrapped }

// Response is a verified network reply.
type Response struct {
	// Endpoint is the endpoint that answered (primary or secondary).
	Endpoint string
	EdoPet   int64
	Envelope *codi.Envelope
	// Request is the signed envelope that was delivered.
	Request *codi.Envelope
}

// Text returns a string payload (cadenaMC, folioCodi), or the payload JSON text otherwise.
func (r *Response) Text() string {
	raw := r.Envelope.Payload.JSON()
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// Deliverer posts a payload with fallback. delivery.Client implements it.
type Deliverer interface {
	Deliver(ctx context.Context, primaryURL, secondaryURL string, payload []byte, timeout time.Duration) (*delivery.Response, error)
}

// Client sends signed requests to the network.
type Client struct {
	deliverer Deliverer
	now       func() time.Time
}

// NewClient returns a Client that delivers with d.
func NewClient(d Deliverer) *Client {
	return &Client{deliverer: d, now: time.Now}
}

// QRRequest asks the network for a collection message rendered as a QR code.
type QRRequest struct {
	Monto              float64
	ReferenciaNumerica string
	Concepto           string
	Vigencia           int64
}

// PushRequest sends a collection message directly to the customer's phone.
type PushRequest struct {
	QRRequest
	CelularCliente string
}

// GenerateQR requests a collection message and returns the network's cadenaMC.
func (c *Client) GenerateQR(ctx context.Context, env *environment.Environment, req QRRequest) (*Response, error) {
	datos, err := codi.NewDatosMC(codi.PaymentRequest{
		Monto:              req.Monto,
		ReferenciaNumerica: req.ReferenciaNumerica,
		Concepto:           req.Concepto,
		Vigencia:           req.Vigencia,
		APIKey:             env.APIKey,
	})
	if err != nil {
		return nil, err
	}
	return c.send(ctx, env, PathQR, datos, codi.KeyCadenaMC)
}

// SendPush sends a collection message to celularCliente and returns the network's folioCodi.
func (c *Client) SendPush(ctx context.Context, env *environment.Environment, req PushRequest) (*Response, error) {
	if req.CelularCliente == "" {
		return nil, codi.NewMissingFieldError(codi.FieldCelularCliente)
	}
	datos, err := codi.NewDatosMC(codi.PaymentRequest{
		Monto:              req.Monto,
		ReferenciaNumerica: req.ReferenciaNumerica,
		Concepto:           req.Concepto,
		Vigencia:           req.Vigencia,
		CelularCliente:     req.CelularCliente,
		APIKey:             env.APIKey,
	})
	if err != nil {
		return nil, err
	}
	return c.send(ctx, env, PathPush, datos, codi.KeyFolioCodi)
}

// Consulta queries the status of collection messages and returns the network's resultado.
func (c *Client) Consulta(ctx context.Context, env *environment.Environment, req codi.ConsultaRequest) (*Response, error) {
	peticion, err := codi.NewPeticionConsulta(req)
	if err != nil {
		return nil, err
	}
	return c.send(ctx, env, PathConsulta, peticion, codi.KeyResultado)
}

func (c *Client) send(ctx context.Context, env *environment.Environment, path string, payload codi.Payload, responseKey string) (*Response, error) {
	reqLogger := logger.ContextRequestLogger(ctx).With(
		slog.String("environment", string(env.Name)),
		slog.String("operation", payload.Key()),
	)

	request := codi.NewEnvelope(payload, c.now().UnixMilli())
	if err := env.Signer.SignEnvelope(request); err != nil {
		return nil, err
	}
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	primaryURL, err := url.JoinPath(env.Endpoints.Primary, path)
	if err != nil {
		return nil, fmt.Errorf("invalid primary endpoint: %w", err)
	}
	secondaryURL, err := url.JoinPath(env.Endpoints.Secondary, path)
	if err != nil {
		return nil, fmt.Errorf("invalid secondary endpoint: %w", err)
	}

	delivered, err := c.deliverer.Deliver(ctx, primaryURL, secondaryURL, body, env.DeliveryTimeout)
	if err != nil {
		return nil, err
	}

	resp, err := c.parseResponse(env, delivered.Body, responseKey)
	if err != nil {
		reqLogger.Warn("network response rejected",
			slog.String("endpoint", delivered.Endpoint),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	resp.Endpoint = delivered.Endpoint
	resp.Request = request

	reqLogger.Info("network request accepted", slog.String("endpoint", delivered.Endpoint))
	return resp, nil
}

// parseResponse checks edoPet and verifies the signed payload of a reply.
func (c *Client) parseResponse(env *environment.Environment, body []byte, responseKey string) (*Response, error) {
	var status struct {
		EdoPet *json.Number `json:"edoPet"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&status); err != nil {
		return nil, &ResponseError{message: "body is not a JSON object", wrapped: err}
	}
	if status.EdoPet == nil {
		return nil, &ResponseError{message: "edoPet is missing"}
	}
	edoPet, err := status.EdoPet.Int64()
	if err != nil {
		return nil, &ResponseError{message: "edoPet is not an integer", wrapped: err}
	}
	if edoPet != EdoPetAccepted {
		return nil, &ProtocolError{EdoPet: edoPet}
	}

	envelope, err := codi.ParseEnvelope(body)
	if err != nil {
		return nil, &ResponseError{message: "body is not an envelope", wrapped: err}
	}
	if envelope.Payload == nil || envelope.Payload.Key() != responseKey {
		return nil, &ResponseError{message: "expected a " + responseKey + " payload"}
	}
	if !envelope.Has(codi.KeySelloDigital) {
		return nil, &ResponseError{message: "reply is not signed", wrapped: codi.NewMissingFieldError(codi.KeySelloDigital)}
	}

	ok, err := env.NetworkVerifier.VerifyEnvelope(envelope)
	if err != nil {
		return nil, &ResponseError{message: "signature could not be verified", wrapped: err}
	}
	if !ok {
		return nil, ErrInvalidResponseSignature
	}

	return &Response{EdoPet: edoPet, Envelope: envelope}, nil
}
