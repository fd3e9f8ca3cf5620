// Paid generation handler.
//
// One gin.HandlerFunc is built per configured route; the route table, not
// code, decides which paths exist. For each request the handler:
//   - resolves the quality tier (default tier when omitted)
//   - checks the prompt before any money moves
//   - runs the x402 payment gate (challenge, verify, settle)
//   - runs the generation pipeline and returns the artifact URL
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/x402-media-gateway/internal/http/middleware"
	"github.com/tbourn/x402-media-gateway/internal/payment"
	"github.com/tbourn/x402-media-gateway/internal/repo"
	"github.com/tbourn/x402-media-gateway/internal/routes"
	"github.com/tbourn/x402-media-gateway/internal/services"
)

//
// Service contracts
//

// Registry resolves route and quality to a definition.
type Registry interface {
	Resolve(route, quality string) (routes.Definition, error)
	Routes() []string
	Qualities(route string) []routes.Definition
}

// PaymentGate runs the x402 flow for one request.
type PaymentGate interface {
	// Process returns a receipt once the payment settled, or a
	// *payment.Rejection describing the response to send.
	Process(ctx context.Context, header string, o payment.Offer) (*payment.Receipt, error)
}

// Generator produces or reuses the artifact for a definition.
type Generator interface {
	Generate(ctx context.Context, def routes.Definition, rawPrompt string, pay services.PaymentInfo) (*services.ArtifactResult, error)
}

// StatsSource reports active artifacts per resource path.
type StatsSource interface {
	MediaStats(ctx context.Context) ([]repo.RouteStats, error)
}

//
// Handler wiring
//

// ServiceInfo is the static part of the GET / response.
type ServiceInfo struct {
	Name    string
	Version string
	Network string
	Token   payment.Token

	// MaxPromptRunes caps the effective prompt before payment is taken
	// (0 disables the check).
	MaxPromptRunes int
}

// Handlers groups the gateway's endpoints.
type Handlers struct {
	registry Registry
	gate     PaymentGate
	gen      Generator
	stats    StatsSource
	info     ServiceInfo
}

// New constructs Handlers. stats may be nil, in which case GET / omits
// artifact statistics.
func New(reg Registry, gate PaymentGate, gen Generator, stats StatsSource, info ServiceInfo) *Handlers {
	return &Handlers{registry: reg, gate: gate, gen: gen, stats: stats, info: info}
}

//
// DTOs
//

// GenerateResponse is returned for a paid request. Fields are the same for
// every route.
type GenerateResponse struct {
	URL     string `json:"url" example:"https://cdn.example.com/fox/5c1f...e9.png"`
	Prompt  string `json:"prompt" example:"a red fox"`
	Cached  bool   `json:"cached" example:"false"`
	Type    string `json:"type" example:"image"`
	Quality string `json:"quality" example:"low"`
}

//
// Handlers
//

// Generate godoc
// @ID          generate
// @Summary     Generate media (x402 paid)
// @Description Paid generation endpoint; one is mounted per configured route (e.g. /fox, /gif).
// @Description Without an X-PAYMENT header the response is a 402 x402 challenge listing the single
// @Description accepted payment requirement. With a valid payment the gateway verifies and settles it,
// @Description then returns the cached or newly generated artifact. The settlement is echoed in the
// @Description base64 JSON X-PAYMENT-RESPONSE header.
// @Tags        Generate
// @Produce     json
//
// @Param       route      path    string  true   "Configured route, without the leading slash"  example(fox)
// @Param       prompt     query   string  false  "Prompt; the route's default prompt is used when empty"  example(a red fox)
// @Param       quality    query   string  false  "Quality tier; the route's default tier when omitted"  example(low)
// @Param       X-PAYMENT  header  string  false  "Base64 JSON x402 payment payload"
//
// @Success     200  {object}  handlers.GenerateResponse  "Artifact"
// @Header      200  {string}  X-PAYMENT-RESPONSE         "Base64 JSON settlement"
// @Failure     400  {object}  handlers.ErrorResponse     "Invalid quality, prompt or payment encoding"
// @Failure     402  {object}  payment.RequiredResponse   "Payment required, invalid or not settled"
// @Failure     500  {object}  handlers.ErrorResponse     "Generation failed"
// @Failure     502  {object}  handlers.ErrorResponse     "Facilitator unavailable"
// @Router      /{route} [get]
func (h *Handlers) Generate(route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		def, err := h.registry.Resolve(route, c.Query("quality"))
		if err != nil {
			var qe *routes.QualityError
			if errors.As(err, &qe) {
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, qe.Error())
				return
			}
			fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
			return
		}

		rawPrompt := c.Query("prompt")
		prompt := services.EffectivePrompt(rawPrompt, def)
		if prompt == "" {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt required")
			return
		}
		if max := h.info.MaxPromptRunes; max > 0 && utf8.RuneCountInString(prompt) > max {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("prompt too long: max %d runes", max))
			return
		}

		middleware.NoStore(c)

		receipt, err := h.gate.Process(ctx, c.GetHeader(payment.HeaderPayment), payment.Offer{
			Resource:    def.ResourcePath(),
			Description: def.Description,
			Amount:      def.Amount(),
		})
		if err != nil {
			writeRejection(c, err)
			return
		}

		// Settled: the pipeline outlives a client that hangs up.
		res, err := h.gen.Generate(context.WithoutCancel(ctx), def, rawPrompt, services.PaymentInfo{
			Payer:       receipt.Payer,
			Transaction: receipt.Transaction,
		})
		if err != nil {
			switch {
			case errors.Is(err, services.ErrEmptyPrompt):
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt required")
			case errors.Is(err, services.ErrPromptTooLong):
				fail(c, http.StatusBadRequest, ErrCodeBadRequest, "prompt too long")
			default:
				middleware.LoggerFrom(c).Error().Err(err).
					Str("tx", receipt.Transaction).
					Msg("generation failed after settlement")
				fail(c, http.StatusInternalServerError, ErrCodeGenerationFailed, err.Error())
			}
			return
		}

		if hdr, err := receipt.EncodeHeader(); err == nil {
			c.Header(payment.HeaderPaymentResponse, hdr)
		}
		ok(c, http.StatusOK, GenerateResponse{
			URL:     res.URL,
			Prompt:  res.Prompt,
			Cached:  res.Cached,
			Type:    res.MediaType,
			Quality: res.Quality,
		})
	}
}

// writeRejection answers a failed payment gate. 402 outcomes are written as
// the bare x402 body (error is null for a plain challenge and carries the
// reason otherwise); every other rejection uses the error envelope.
func writeRejection(c *gin.Context, err error) {
	var rej *payment.Rejection
	if !errors.As(err, &rej) {
		fail(c, http.StatusBadGateway, ErrCodeUpstream, err.Error())
		return
	}
	if rej.Challenge != nil {
		c.AbortWithStatusJSON(http.StatusPaymentRequired, rej.Challenge)
		return
	}
	switch rej.Status {
	case http.StatusBadRequest:
		fail(c, rej.Status, ErrCodeInvalidPayment, rej.Message)
	default:
		fail(c, rej.Status, ErrCodeUpstream, rej.Message)
	}
}
