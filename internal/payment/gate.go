package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/x402-media-gateway/internal/metrics"
)

// Facilitator verifies and settles payments.
type Facilitator interface {
	Verify(ctx context.Context, payload json.RawMessage, req Requirement) (*VerifyResponse, error)
	Settle(ctx context.Context, payload json.RawMessage, req Requirement) (*SettleResponse, error)
}

// Token is the asset prices are charged in.
type Token struct {
	Address  string
	Symbol   string
	Name     string
	Version  string
	Decimals int
}

// Offer is what a single request is asked to pay for.
type Offer struct {
	Resource    string
	Description string
	Amount      string // minor units
}

// Gate runs the x402 flow for one request at a time; it keeps no state
// between requests.
type Gate struct {
	Facilitator Facilitator
	Network     string
	PayTo       string
	Signer      string
	Token       Token
	Logger      zerolog.Logger
}

// Requirement builds the payment requirement for an offer.
func (g *Gate) Requirement(o Offer) Requirement {
	return Requirement{
		Scheme:            SchemePermit,
		Network:           g.Network,
		MaxAmountRequired: o.Amount,
		Resource:          o.Resource,
		Description:       o.Description,
		MimeType:          mimeApplicationJSON,
		PayTo:             g.PayTo,
		MaxTimeoutSeconds: MaxTimeoutSeconds,
		Asset:             g.Token.Address,
		Extra: &Extra{
			Token:             g.Token.Symbol,
			Address:           g.Token.Address,
			Decimals:          g.Token.Decimals,
			Name:              g.Token.Name,
			Version:           g.Token.Version,
			FacilitatorSigner: g.Signer,
			MinimumAmount:     true,
		},
	}
}

// Challenge is the 402 body for an offer.
func (g *Gate) Challenge(o Offer) RequiredResponse {
	return RequiredResponse{
		X402Version: X402Version,
		Accepts:     []Requirement{g.Requirement(o)},
	}
}

// Process takes the raw X-PAYMENT header value and returns a receipt once
// the payment is verified and settled. Every other outcome is a
// *Rejection: a 402 challenge when header is empty, 400 for an undecodable
// header, 402 for an invalid or unsettled payment, and 502 when the
// facilitator cannot be reached.
func (g *Gate) Process(ctx context.Context, header string, o Offer) (*Receipt, error) {
	ctx, span := otel.Tracer("payment/Gate").Start(ctx, "Process",
		trace.WithAttributes(attribute.String("x402.resource", o.Resource)))
	defer span.End()

	rec, err := g.process(ctx, strings.TrimSpace(header), o)

	outcome := metrics.OutcomeSettled
	var rej *Rejection
	if errors.As(err, &rej) {
		outcome = rej.Outcome
		span.SetAttributes(attribute.Int("http.status_code", rej.Status))
		if rej.Status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, rej.Message)
		}
	}
	span.SetAttributes(attribute.String("x402.outcome", outcome))
	metrics.PaymentOutcomes.WithLabelValues(o.Resource, outcome).Inc()
	return rec, err
}

func (g *Gate) process(ctx context.Context, header string, o Offer) (*Receipt, error) {
	log := g.Logger.With().Str("resource", o.Resource).Logger()

	if header == "" {
		ch := g.Challenge(o)
		return nil, &Rejection{
			Status:    http.StatusPaymentRequired,
			Outcome:   metrics.OutcomeChallenged,
			Message:   "Payment required",
			Challenge: &ch,
		}
	}

	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, g.reject(log, http.StatusBadRequest, metrics.OutcomeMalformed, fmt.Sprintf("Invalid payment encoding: %v", err), err)
	}
	var payload json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, g.reject(log, http.StatusBadRequest, metrics.OutcomeMalformed, fmt.Sprintf("Invalid payment JSON: %v", err), err)
	}

	req := g.Requirement(o)

	verified, err := g.Facilitator.Verify(ctx, payload, req)
	if err != nil {
		return nil, g.upstream(log, err)
	}
	if !verified.IsValid {
		return nil, g.refuse(log, o, metrics.OutcomeInvalid, "Payment invalid: "+deref(verified.InvalidReason))
	}

	settled, err := g.Facilitator.Settle(ctx, payload, req)
	if err != nil {
		return nil, g.upstream(log, err)
	}
	if !settled.Success {
		return nil, g.refuse(log, o, metrics.OutcomeSettleFailed, "Settlement failed: "+deref(settled.ErrorReason))
	}

	payer := deref(settled.Payer)
	if payer == "" {
		payer = deref(verified.Payer)
	}
	network := settled.Network
	if network == "" {
		network = g.Network
	}
	rec := &Receipt{
		Transaction: deref(settled.Transaction),
		Payer:       payer,
		Network:     network,
		Settlement:  *settled,
	}
	log.Info().Str("tx", rec.Transaction).Str("payer", rec.Payer).Msg("payment settled")
	return rec, nil
}

func (g *Gate) reject(log zerolog.Logger, status int, outcome, msg string, cause error) error {
	log.Warn().Int("status", status).Str("outcome", outcome).Msg(msg)
	return &Rejection{Status: status, Outcome: outcome, Message: msg, Err: cause}
}

// refuse is a 402 for a payment the facilitator turned down. The body is a
// fresh challenge whose error carries the reason, so the client can retry.
func (g *Gate) refuse(log zerolog.Logger, o Offer, outcome, reason string) error {
	log.Warn().Str("outcome", outcome).Msg(reason)
	ch := g.Challenge(o)
	ch.Error = &reason
	return &Rejection{
		Status:    http.StatusPaymentRequired,
		Outcome:   outcome,
		Message:   reason,
		Challenge: &ch,
	}
}

func (g *Gate) upstream(log zerolog.Logger, err error) error {
	log.Error().Err(err).Msg("facilitator call failed")
	return &Rejection{
		Status:  http.StatusBadGateway,
		Outcome: metrics.OutcomeUpstreamError,
		Message: err.Error(),
		Err:     err,
	}
}
