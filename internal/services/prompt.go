package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/x402-media-gateway/internal/routes"
)

// EffectivePrompt returns the caller's prompt, or the route's default when
// the caller sent nothing but whitespace. A non-empty raw prompt is
// returned as sent.
func EffectivePrompt(raw string, def routes.Definition) string {
	if strings.TrimSpace(raw) == "" {
		return def.DefaultPrompt
	}
	return raw
}

// PromptHash is the content hash artifacts are deduplicated by: hex SHA-256
// of the trimmed, lower-cased prompt.
func PromptHash(prompt string) string {
	// Casers keep state and are not safe for concurrent use.
	norm := cases.Lower(language.Und).String(strings.TrimSpace(prompt))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}
