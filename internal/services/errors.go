// Package services implements the gateway's generation pipeline and the
// background cleanup of expired artifacts. Handlers translate the errors
// returned here into HTTP status codes; the pipeline's failure types live
// with the collaborator that raises them (provider, transcode, storage).
package services

import "errors"

var (
	// ErrEmptyPrompt is returned when neither the request nor the route
	// definition supplies a prompt.
	ErrEmptyPrompt = errors.New("prompt is empty")

	// ErrPromptTooLong is returned when the effective prompt exceeds
	// GenerationService.MaxPromptRunes.
	ErrPromptTooLong = errors.New("prompt too long")
)
