// Package payment implements the x402 (v1) payment gate: it builds payment
// requirements for a priced resource, answers unpaid requests with a 402
// challenge, and verifies then settles an X-PAYMENT header through a
// facilitator service.
package payment

import (
	"encoding/base64"
	"encoding/json"
)

// Protocol constants.
const (
	X402Version = 1

	HeaderPayment         = "X-PAYMENT"
	HeaderPaymentResponse = "X-PAYMENT-RESPONSE"

	SchemePermit      = "permit"
	MaxTimeoutSeconds = 300
)

// Requirement describes one acceptable way to pay for a resource.
type Requirement struct {
	Scheme            string `json:"scheme"`
	Network           string `json:"network"`
	MaxAmountRequired string `json:"maxAmountRequired"`
	Resource          string `json:"resource"`
	Description       string `json:"description"`
	MimeType          string `json:"mimeType"`
	PayTo             string `json:"payTo"`
	MaxTimeoutSeconds int    `json:"maxTimeoutSeconds"`
	Asset             string `json:"asset"`
	Extra             *Extra `json:"extra,omitempty"`
}

// Extra carries the token metadata a permit-signing client needs.
type Extra struct {
	Token             string `json:"token"`
	Address           string `json:"address"`
	Decimals          int    `json:"decimals"`
	Name              string `json:"name"`
	Version           string `json:"version"`
	FacilitatorSigner string `json:"facilitatorSigner"`
	MinimumAmount     bool   `json:"minimum_amount"`
}

// RequiredResponse is the body of a 402 challenge.
type RequiredResponse struct {
	X402Version int           `json:"x402Version"`
	Accepts     []Requirement `json:"accepts"`
	Error       *string       `json:"error"`
}

type facilitatorRequest struct {
	X402Version         int             `json:"x402Version"`
	PaymentPayload      json.RawMessage `json:"paymentPayload"`
	PaymentRequirements Requirement     `json:"paymentRequirements"`
}

// VerifyResponse is the facilitator's /verify answer.
type VerifyResponse struct {
	IsValid       bool    `json:"isValid"`
	InvalidReason *string `json:"invalidReason,omitempty"`
	Payer         *string `json:"payer,omitempty"`
}

// SettleResponse is the facilitator's /settle answer.
type SettleResponse struct {
	Success     bool    `json:"success"`
	Network     string  `json:"network"`
	Transaction *string `json:"transaction,omitempty"`
	ErrorReason *string `json:"errorReason,omitempty"`
	Payer       *string `json:"payer,omitempty"`
}

// Receipt is a settled payment.
type Receipt struct {
	Transaction string
	Payer       string
	Network     string
	Settlement  SettleResponse
}

// EncodeHeader renders the settlement as the base64 JSON value of the
// X-PAYMENT-RESPONSE header.
func (r *Receipt) EncodeHeader() (string, error) {
	b, err := json.Marshal(r.Settlement)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
