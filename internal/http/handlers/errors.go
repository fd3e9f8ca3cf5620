// Package handlers defines the HTTP-layer error codes returned in the
// ErrorResponse envelope. Clients branch on Code; Message is for humans.
//
// Example:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "invalid_payment",
//	  "message": "Invalid payment encoding: illegal base64 data at input byte 0"
//	}
//
// Every 402 is the exception: its body is the x402 challenge itself, with
// error set to the facilitator's reason when a payment was refused.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Payment:
	ErrCodeInvalidPayment = "invalid_payment" // undecodable X-PAYMENT (400)
	ErrCodeUpstream       = "bad_gateway"     // facilitator unreachable or non-2xx (502)

	// Pipeline:
	ErrCodeGenerationFailed = "generation_failed"
)
