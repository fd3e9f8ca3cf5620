// Package middleware contains the Gin middleware shared by the gateway's
// HTTP layer.
//
// This file implements RedactingLogger, the access logger. It never logs
// bodies, masks credential headers (including the x402 payment headers,
// which carry signed payment authorizations), and scrubs e-mail addresses
// and wallet addresses from query strings and header values. Prompts arrive
// in the query string, so query values are also length-capped.
//
// Usage:
//
//	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
//	    MaskHeaders: []string{"X-API-Key"},
//	}))
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// maxQueryLogLength caps the bytes of the scrubbed query string that are logged.
const maxQueryLogLength = 1024

// RedactOptions configures RedactingLogger. MaskHeaders lists extra header
// names (case-insensitive) whose values are replaced with "[REDACTED]".
type RedactOptions struct {
	MaskHeaders []string
}

var (
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// 20-byte account addresses and 32-byte hashes, 0x-prefixed.
	hexAddrRE = regexp.MustCompile(`(?i)\b0x([0-9a-f]{4})[0-9a-f]{32,56}([0-9a-f]{4})\b`)
)

// redact scrubs e-mail addresses and shortens hex addresses to their first
// and last four digits.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return hexAddrRE.ReplaceAllString(s, "0x${1}…${2}")
}

// RedactingLogger logs one structured line per request, at info for 2xx/3xx,
// warn for 4xx and error for 5xx. Before handing over to the next handler
// it attaches a request-scoped logger carrying the request ID, method and
// route; handlers read it with LoggerFrom and services with log.Ctx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization":      {},
		"cookie":             {},
		"set-cookie":         {},
		"x-payment":          {},
		"x-payment-response": {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		_, paid := c.Request.Header["X-Payment"]

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(strings.Join(vv, ", "))
		}

		l := log.With().
			Str("request_id", RequestIDFrom(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		attachLogger(c, l)

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}

		ev.
			Str("query", truncate(redact(c.Request.URL.RawQuery), maxQueryLogLength)).
			Str("remote_ip", c.ClientIP()).
			Bool("paid", paid).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
