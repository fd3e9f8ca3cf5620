package provider

import (
	"errors"
	"fmt"
)

// ProviderError is a failed call to the generation provider: a transport
// error, a non-2xx status, an undecodable body, or a response missing the
// configured result URL.
type ProviderError struct {
	Model  string
	Status int    // 0 when no response was received
	Body   string // response body, when there was one
	Err    error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("provider %s: status %d: %s", e.Model, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("provider %s: status %d", e.Model, e.Status)
	default:
		return fmt.Sprintf("provider %s: %v", e.Model, e.Err)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ErrDownloadTooLarge is wrapped by a *DownloadError when the result exceeds
// the client's size cap.
var ErrDownloadTooLarge = errors.New("download exceeds size limit")

// DownloadError is a failed fetch of the provider's result URL.
type DownloadError struct {
	URL    string
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }
