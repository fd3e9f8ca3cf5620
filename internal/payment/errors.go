package payment

import (
	"fmt"
	"net/http"
)

// Rejection is a payment gate outcome that ends the request. Status is the
// HTTP status to answer with; Challenge is set for every 402 and is the body
// to send.
type Rejection struct {
	Status    int
	Outcome   string
	Message   string
	Challenge *RequiredResponse
	Err       error
}

func (r *Rejection) Error() string { return r.Message }

func (r *Rejection) Unwrap() error { return r.Err }

// UpstreamError is a failed facilitator call: no response, a non-2xx
// status, or an undecodable body.
type UpstreamError struct {
	Call   string // verify|settle
	Status int
	Body   string
	Err    error
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("facilitator %s error: %d %s - %s", e.Call, e.Status, http.StatusText(e.Status), e.Body)
	}
	return fmt.Sprintf("failed to contact facilitator for %s: %v", e.Call, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
