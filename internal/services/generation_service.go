// Package services – GenerationService
//
// GenerationService runs the paid generation pipeline for one request:
// cache lookup, provider call, download, optional transcode, object upload,
// and the artifact record write. Steps run strictly in that order; a failure
// at any step before the upload leaves nothing behind, and a failed upload
// stops the pipeline before any record is written.
//
// Identical concurrent requests are not serialized. Both may miss the cache
// and both generate; the newest record wins subsequent lookups.
package services

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/x402-media-gateway/internal/domain"
	"github.com/tbourn/x402-media-gateway/internal/metrics"
	"github.com/tbourn/x402-media-gateway/internal/provider"
	"github.com/tbourn/x402-media-gateway/internal/repo"
	"github.com/tbourn/x402-media-gateway/internal/routes"
	"github.com/tbourn/x402-media-gateway/internal/storage"
	"github.com/tbourn/x402-media-gateway/internal/transcode"
)

// Failure stage label values for metrics.GenerationFailures.
const (
	StageProvider  = "provider"
	StageDownload  = "download"
	StageTranscode = "transcode"
	StageStore     = "store"
)

// MediaRepo is the artifact table contract used by the pipeline and the
// cleanup worker.
type MediaRepo interface {
	// FindActiveMedia returns the newest unexpired record for the pair, or
	// repo.ErrNotFound.
	FindActiveMedia(ctx context.Context, db *gorm.DB, endpointPath, promptHash string, now time.Time) (*domain.GeneratedMedia, error)

	// InsertMedia stores a new record and returns its ID.
	InsertMedia(ctx context.Context, db *gorm.DB, m *domain.GeneratedMedia) (string, error)

	// FindExpiredMedia lists records with expires_at <= now.
	FindExpiredMedia(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.GeneratedMedia, error)

	// DeleteMedia removes a record; a missing record is not an error.
	DeleteMedia(ctx context.Context, db *gorm.DB, id string) error
}

// Provider is the generation backend.
type Provider interface {
	Generate(ctx context.Context, model string, body map[string]any) (any, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

// Transcoder converts downloaded provider output.
type Transcoder interface {
	Transcode(ctx context.Context, job transcode.Job) ([]byte, error)
}

// ObjectStore is the public bucket artifacts are served from.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// PaymentInfo is the settlement data copied onto a new artifact record.
// Both fields are optional.
type PaymentInfo struct {
	Payer       string
	Transaction string
}

// ArtifactResult is what a paid request returns.
type ArtifactResult struct {
	URL       string
	Prompt    string
	Cached    bool
	MediaType string
	Quality   string
}

// GenerationService produces artifacts for route definitions, reusing a
// stored artifact whenever the same prompt was generated for the same
// resource path and has not expired.
type GenerationService struct {
	// DB is the GORM handle for the artifact table.
	DB *gorm.DB
	// Repo is the artifact table repository.
	Repo MediaRepo

	Provider   Provider
	Transcoder Transcoder
	Store      ObjectStore

	// TTL is how long a new artifact stays cacheable.
	TTL time.Duration
	// MaxPromptRunes caps the effective prompt (0 disables the check).
	MaxPromptRunes int

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (s *GenerationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Generate returns the artifact for def and rawPrompt, generating and
// storing it on a cache miss. Payment must already be settled; pay is only
// recorded.
func (s *GenerationService) Generate(ctx context.Context, def routes.Definition, rawPrompt string, pay PaymentInfo) (*ArtifactResult, error) {
	prompt := EffectivePrompt(rawPrompt, def)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(prompt) > s.MaxPromptRunes {
		return nil, ErrPromptTooLong
	}
	hash := PromptHash(prompt)
	resource := def.ResourcePath()

	tr := otel.Tracer("services/GenerationService")
	ctx, span := tr.Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("route", def.Route),
		attribute.String("quality", def.Quality),
		attribute.String("model", def.Model),
		attribute.String("prompt_hash", hash),
	))
	defer span.End()

	lg := log.Ctx(ctx).With().
		Str("route", def.Route).
		Str("quality", def.Quality).
		Str("prompt_hash", hash).
		Logger()

	// 1) Cache
	if rec := s.lookup(ctx, &lg, resource, hash); rec != nil {
		metrics.CacheLookups.WithLabelValues(def.Route, metrics.CacheHit).Inc()
		span.SetAttributes(attribute.Bool("cached", true))
		lg.Info().Str("url", rec.S3URL).Msg("artifact cache hit")
		return &ArtifactResult{
			URL:       rec.S3URL,
			Prompt:    prompt,
			Cached:    true,
			MediaType: def.MediaType,
			Quality:   def.Quality,
		}, nil
	}
	metrics.CacheLookups.WithLabelValues(def.Route, metrics.CacheMiss).Inc()
	span.SetAttributes(attribute.Bool("cached", false))

	start := time.Now()
	data, err := s.produce(ctx, def, prompt, hash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	// 2) Upload
	key := storage.ObjectKey(resource, hash, def.OutputExtension)
	if err := s.upload(ctx, key, data, def.OutputExtension); err != nil {
		metrics.GenerationFailures.WithLabelValues(def.Route, StageStore).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	url := s.Store.PublicURL(key)
	metrics.GenerationDuration.WithLabelValues(def.Route).Observe(time.Since(start).Seconds())

	// 3) Record (best effort: the object is already servable)
	now := s.now()
	rec := &domain.GeneratedMedia{
		EndpointPath:  resource,
		Prompt:        prompt,
		PromptHash:    hash,
		S3Key:         key,
		S3URL:         url,
		MediaType:     def.MediaType,
		FileSizeBytes: int64(len(data)),
		PayerAddress:  optional(pay.Payer),
		PaymentTx:     optional(pay.Transaction),
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.TTL),
	}
	if _, err := s.Repo.InsertMedia(ctx, s.DB, rec); err != nil {
		lg.Error().Err(err).Str("key", key).Msg("artifact stored but record insert failed")
	}

	lg.Info().
		Str("key", key).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Dur("elapsed", time.Since(start)).
		Msg("artifact generated")

	return &ArtifactResult{
		URL:       url,
		Prompt:    prompt,
		Cached:    false,
		MediaType: def.MediaType,
		Quality:   def.Quality,
	}, nil
}

// lookup returns the cached record or nil. Lookup errors are logged and
// treated as a miss.
func (s *GenerationService) lookup(ctx context.Context, lg *zerolog.Logger, resource, hash string) *domain.GeneratedMedia {
	ctx, span := otel.Tracer("services/GenerationService").Start(ctx, "CacheLookup")
	defer span.End()

	rec, err := s.Repo.FindActiveMedia(ctx, s.DB, resource, hash, s.now())
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			span.RecordError(err)
			lg.Warn().Err(err).Msg("artifact cache lookup failed; generating")
		}
		return nil
	}
	return rec
}

// produce runs the provider, download and transcode steps and returns the
// bytes to store.
func (s *GenerationService) produce(ctx context.Context, def routes.Definition, prompt, hash string) ([]byte, error) {
	tr := otel.Tracer("services/GenerationService")

	pctx, span := tr.Start(ctx, "Provider", trace.WithAttributes(attribute.String("model", def.Model)))
	tree, err := s.Provider.Generate(pctx, def.Model, provider.RequestBody(def.RequestParams, prompt))
	if err == nil {
		var u string
		u, err = provider.ResultURL(def.Model, tree, def.ResponseURLPath)
		if err == nil {
			span.End()
			return s.fetch(ctx, def, u, hash)
		}
	}
	span.RecordError(err)
	span.End()
	metrics.GenerationFailures.WithLabelValues(def.Route, StageProvider).Inc()
	return nil, err
}

func (s *GenerationService) fetch(ctx context.Context, def routes.Definition, url, hash string) ([]byte, error) {
	tr := otel.Tracer("services/GenerationService")

	dctx, span := tr.Start(ctx, "Download")
	data, err := s.Provider.Download(dctx, url)
	if err != nil {
		span.RecordError(err)
		span.End()
		metrics.GenerationFailures.WithLabelValues(def.Route, StageDownload).Inc()
		return nil, err
	}
	span.SetAttributes(attribute.Int("bytes", len(data)))
	span.End()

	if !def.Transcodes() {
		return data, nil
	}

	tctx, span := tr.Start(ctx, "Transcode")
	defer span.End()
	out, err := s.Transcoder.Transcode(tctx, transcode.Job{
		Name:      hash,
		InputExt:  def.PostProcess.InputExtension,
		OutputExt: def.OutputExtension,
		Args:      def.PostProcess.Args,
		Input:     data,
	})
	if err != nil {
		span.RecordError(err)
		metrics.GenerationFailures.WithLabelValues(def.Route, StageTranscode).Inc()
		return nil, err
	}
	return out, nil
}

func (s *GenerationService) upload(ctx context.Context, key string, data []byte, ext string) error {
	ctx, span := otel.Tracer("services/GenerationService").Start(ctx, "Upload", trace.WithAttributes(
		attribute.String("key", key),
	))
	defer span.End()
	return s.Store.Put(ctx, key, data, storage.ContentTypeForExtension(ext))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
