// Package repo implements the data persistence layer for generated media.
// This file holds the thin repository functions over the generated_media
// table used by the generation pipeline and the cleanup worker.
//
// All functions are context-aware and accept a *gorm.DB handle. "Now" is
// passed in by the caller so expiry comparisons do not depend on the
// database clock.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/x402-media-gateway/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound.
var ErrNotFound = gorm.ErrRecordNotFound

const mediaTable = "generated_media"

// FindActiveMedia returns the most recent artifact stored for
// (endpointPath, promptHash) that has not expired at now, or ErrNotFound.
func FindActiveMedia(ctx context.Context, db *gorm.DB, endpointPath, promptHash string, now time.Time) (*domain.GeneratedMedia, error) {
	var m domain.GeneratedMedia
	err := db.WithContext(ctx).
		Where("endpoint_path = ? AND prompt_hash = ? AND expires_at > ?", endpointPath, promptHash, now.UTC()).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// InsertMedia persists a new artifact row and returns its ID. A missing ID
// is generated and a zero CreatedAt is set to now (UTC). Failures are
// wrapped in *domain.StorageError.
func InsertMedia(ctx context.Context, db *gorm.DB, m *domain.GeneratedMedia) (string, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return "", &domain.StorageError{Op: "insert", Target: mediaTable, Err: err}
	}
	return m.ID, nil
}

// FindExpiredMedia lists every artifact whose ExpiresAt is at or before now,
// oldest first.
func FindExpiredMedia(ctx context.Context, db *gorm.DB, now time.Time) ([]domain.GeneratedMedia, error) {
	var out []domain.GeneratedMedia
	err := db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Order("expires_at ASC").
		Find(&out).Error
	return out, err
}

// DeleteMedia removes the row with the given ID. Deleting a missing row is
// not an error.
func DeleteMedia(ctx context.Context, db *gorm.DB, id string) error {
	err := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.GeneratedMedia{}).Error
	if err != nil {
		return &domain.StorageError{Op: "delete", Target: mediaTable, Err: err}
	}
	return nil
}
