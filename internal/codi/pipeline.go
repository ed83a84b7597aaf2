package codi

import (
	"log/slog"
)

// Pipeline validates result notifications delivered to the webhook.
type Pipeline struct {
	verifier *Verifier
	checks   []NamedCheck
	logger   *slog.Logger
}

// NewPipeline returns a pipeline that verifies signatures with verifier (the network certificate)
// and then runs checks in order.
func NewPipeline(verifier *Verifier, checks []NamedCheck, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		verifier: verifier,
		checks:   checks,
		logger:   logger,
	}
}

// Evaluation is the outcome of a pipeline run that reached a result code.
type Evaluation struct {
	Code ResultCode
	// Check names the failing check, empty when the notification was accepted.
	Check string
	// Notification is nil when the signature check failed.
	Notification *Notification
}

// Evaluate runs the pipeline. Business rejections are returned as an Evaluation with a negative
// code and a nil error. Structural failures (MISSING_FIELD, INVALID_ENVELOPE, CERTIFICATE_MISMATCH)
// are returned as errors.
func (p *Pipeline) Evaluate(env *Envelope) (Evaluation, error) {
	var missing []string
	if env == nil || !env.Has(KeyCadenaInformacion) {
		missing = append(missing, KeyCadenaInformacion)
	}
	if env == nil || !env.Has(KeySelloDigital) {
		missing = append(missing, KeySelloDigital)
	}
	if len(missing) > 0 {
		return Evaluation{}, NewMissingFieldError(missing...)
	}

	payload, ok := env.Payload.(CadenaInformacion)
	if !ok {
		// another payload key has precedence over cadenaInformacion
		return Evaluation{}, NewInvalidEnvelopeError("notification carries a " + env.Payload.Key() + " payload")
	}

	canonical, err := Canonicalize(env)
	if err != nil {
		return Evaluation{}, err
	}

	valid, err := p.verifier.Verify(canonical, env.Signature)
	if err != nil {
		p.logger.Warn("notification signature could not be verified", slog.String("error", err.Error()))
	}
	if err != nil || !valid {
		return Evaluation{Code: ResultInvalidSignature, Check: "signature"}, nil
	}

	notification, err := ParseNotification(payload)
	if err != nil {
		return Evaluation{}, err
	}
	if missing := notification.Missing(); len(missing) > 0 {
		return Evaluation{}, NewMissingFieldError(missing...)
	}

	for _, c := range p.checks {
		code, err := c.Check(notification)
		if err != nil {
			return Evaluation{}, err
		}
		if code != ResultAccepted {
			return Evaluation{Code: code, Check: c.Name, Notification: notification}, nil
		}
	}

	return Evaluation{Code: ResultAccepted, Notification: notification}, nil
}
