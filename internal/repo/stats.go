package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/x402-media-gateway/internal/domain"
)

// RouteStats aggregates the servable artifacts of one endpoint path.
type RouteStats struct {
	EndpointPath string `json:"endpoint_path"`
	Count        int64  `json:"count"`
	Bytes        int64  `json:"bytes"`
}

// MediaStats returns, per endpoint path, how many artifacts are servable at
// now and their total size. Paths with no live artifacts are omitted.
func MediaStats(ctx context.Context, db *gorm.DB, now time.Time) ([]RouteStats, error) {
	var rows []RouteStats
	err := db.WithContext(ctx).
		Model(&domain.GeneratedMedia{}).
		Select("endpoint_path, COUNT(*) AS count, COALESCE(SUM(file_size_bytes), 0) AS bytes").
		Where("expires_at > ?", now.UTC()).
		Group("endpoint_path").
		Order("endpoint_path").
		Scan(&rows).Error
	return rows, err
}
