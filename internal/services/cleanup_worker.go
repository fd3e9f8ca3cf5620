package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/x402-media-gateway/internal/metrics"
)

// SweepReport summarizes one cleanup pass.
type SweepReport struct {
	Expired int // records found expired
	Deleted int // object and record both removed
	Failed  int // records left in place for the next pass
}

// CleanupWorker removes expired artifacts: the stored object first, then
// the record. A record whose object could not be deleted is kept so the
// next pass retries it.
type CleanupWorker struct {
	DB    *gorm.DB
	Repo  MediaRepo
	Store ObjectStore

	// Interval between passes; zero means one hour.
	Interval time.Duration
	Logger   zerolog.Logger

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Run sweeps once immediately and then every Interval until ctx is done.
// Cancellation is only observed between passes.
func (w *CleanupWorker) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	w.Logger.Info().Dur("interval", interval).Msg("cleanup worker started")

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		w.logReport(w.Sweep(ctx))
		select {
		case <-ctx.Done():
			w.Logger.Info().Msg("cleanup worker stopped")
			return
		case <-t.C:
		}
	}
}

// Sweep runs one cleanup pass. A pass that has started runs to completion
// even if ctx is canceled.
func (w *CleanupWorker) Sweep(ctx context.Context) SweepReport {
	ctx = context.WithoutCancel(ctx)
	ctx, span := otel.Tracer("services/CleanupWorker").Start(ctx, "Sweep")
	defer span.End()

	var rep SweepReport
	now := time.Now().UTC()
	if w.Now != nil {
		now = w.Now().UTC()
	}

	expired, err := w.Repo.FindExpiredMedia(ctx, w.DB, now)
	if err != nil {
		span.RecordError(err)
		w.Logger.Error().Err(err).Msg("cleanup: list expired artifacts")
		return rep
	}
	rep.Expired = len(expired)

	for _, m := range expired {
		if err := w.Store.Delete(ctx, m.S3Key); err != nil {
			rep.Failed++
			metrics.CleanupRecords.WithLabelValues(metrics.CleanupObjectFailed).Inc()
			w.Logger.Error().Err(err).Str("id", m.ID).Str("key", m.S3Key).Msg("cleanup: delete object")
			continue
		}
		if err := w.Repo.DeleteMedia(ctx, w.DB, m.ID); err != nil {
			rep.Failed++
			metrics.CleanupRecords.WithLabelValues(metrics.CleanupRecordFailed).Inc()
			w.Logger.Error().Err(err).Str("id", m.ID).Msg("cleanup: delete record")
			continue
		}
		rep.Deleted++
		metrics.CleanupRecords.WithLabelValues(metrics.CleanupDeleted).Inc()
		w.Logger.Debug().Str("id", m.ID).Str("key", m.S3Key).Msg("cleanup: artifact removed")
	}

	span.SetAttributes(
		attribute.Int("expired", rep.Expired),
		attribute.Int("deleted", rep.Deleted),
		attribute.Int("failed", rep.Failed),
	)
	return rep
}

func (w *CleanupWorker) logReport(rep SweepReport) {
	if rep.Expired == 0 {
		w.Logger.Debug().Msg("cleanup: nothing expired")
		return
	}
	w.Logger.Info().
		Int("expired", rep.Expired).
		Int("deleted", rep.Deleted).
		Int("failed", rep.Failed).
		Msg("cleanup pass finished")
}
