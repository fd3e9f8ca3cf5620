// Package httpapi wires the HTTP transport (Gin) to the gateway's services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// rate limiting, compression, CORS, and security headers.
//
// Paid routes are not hard-coded: one GET handler is mounted per route in
// the route table. The gateway's own paths (/, /health, /metrics,
// /swagger) are reserved and rejected by the route table loader.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/x402-media-gateway/internal/config"
	"github.com/tbourn/x402-media-gateway/internal/domain"
	"github.com/tbourn/x402-media-gateway/internal/http/handlers"
	"github.com/tbourn/x402-media-gateway/internal/http/middleware"
	"github.com/tbourn/x402-media-gateway/internal/payment"
	"github.com/tbourn/x402-media-gateway/internal/repo"
	"github.com/tbourn/x402-media-gateway/internal/routes"
	"github.com/tbourn/x402-media-gateway/internal/services"
)

// maxPromptRunes bounds the prompt accepted on paid routes.
const maxPromptRunes = 4000

// MediaRepoShim adapts the repository free functions to the
// services.MediaRepo interface used by the generation pipeline and the
// cleanup worker.
type MediaRepoShim struct{}

// FindActiveMedia proxies repo.FindActiveMedia.
func (MediaRepoShim) FindActiveMedia(ctx context.Context, db *gorm.DB, endpointPath, promptHash string, now time.Time) (*domain.GeneratedMedia, error) {
	return repo.FindActiveMedia(ctx, db, endpointPath, promptHash, now)
}

// InsertMedia proxies repo.InsertMedia.
func (MediaRepoShim) InsertMedia(ctx context.Context, db *gorm.DB, m *domain.GeneratedMedia) (string, error) {
	return repo.InsertMedia(ctx, db, m)
}

// FindExpiredMedia proxies repo.FindExpiredMedia.
func (MediaRepoShim) FindExpiredMedia(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.GeneratedMedia, error) {
	return repo.FindExpiredMedia(ctx, db, now)
}

// DeleteMedia proxies repo.DeleteMedia.
func (MediaRepoShim) DeleteMedia(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteMedia(ctx, db, id)
}

// statsShim binds repo.MediaStats to a database and the wall clock.
type statsShim struct {
	db *gorm.DB
}

func (s statsShim) MediaStats(ctx context.Context) ([]repo.RouteStats, error) {
	return repo.MediaStats(ctx, s.db, time.Now())
}

// Deps are the collaborators RegisterRoutes builds the handlers from.
type Deps struct {
	DB       *gorm.DB
	Registry *routes.Registry
	Gate     handlers.PaymentGate

	Provider   services.Provider
	Transcoder services.Transcoder
	Store      services.ObjectStore

	// Version is reported by GET /.
	Version string
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: observability (tracing, metrics), rate limiting, compression,
// CORS and security headers, health and metrics endpoints, the info
// endpoint, and one paid endpoint per configured route.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with payment header masking
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per IP; /health and /metrics exempt)
//  8. Gzip
//  9. CORS and Security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Every route is a GET; anything with a body is capped at 64 KiB
	r.Use(limitBody(64 << 10))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP(), "/health", "/metrics")
	r.Use(rl.Handler())

	// 8) Compress JSON bodies; artifacts themselves are served from the bucket
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 9) CORS posture (safe defaults: allow all if none configured)
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", payment.HeaderPayment},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", payment.HeaderPaymentResponse},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		corsCfg.AllowAllOrigins = true
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/clients
	gen := &services.GenerationService{
		DB:             d.DB,
		Repo:           MediaRepoShim{},
		Provider:       d.Provider,
		Transcoder:     d.Transcoder,
		Store:          d.Store,
		TTL:            cfg.Pipeline.ArtifactTTL,
		MaxPromptRunes: maxPromptRunes,
	}
	h := handlers.New(d.Registry, d.Gate, gen, statsShim{db: d.DB}, handlers.ServiceInfo{
		Name:    cfg.OTEL.ServiceName,
		Version: d.Version,
		Network: cfg.Payment.Network,
		Token: payment.Token{
			Address:  cfg.Payment.TokenAddress,
			Symbol:   cfg.Payment.TokenSymbol,
			Name:     cfg.Payment.TokenName,
			Version:  cfg.Payment.TokenVersion,
			Decimals: cfg.Payment.TokenDecimals,
		},
		MaxPromptRunes: maxPromptRunes,
	})

	r.GET("/", h.Info)
	for _, route := range d.Registry.Routes() {
		r.GET(route, h.Generate(route))
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
