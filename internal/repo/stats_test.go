package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/x402-media-gateway/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func seedMedia(t *testing.T, db *gorm.DB, m domain.GeneratedMedia) {
	t.Helper()
	if m.S3Key == "" {
		m.S3Key = strings.TrimPrefix(m.EndpointPath, "/") + "/" + m.PromptHash + ".png"
	}
	if m.S3URL == "" {
		m.S3URL = "https://cdn.example.com/" + m.S3Key
	}
	if m.MediaType == "" {
		m.MediaType = "image"
	}
	if _, err := InsertMedia(context.Background(), db, &m); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestMediaStats_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	if _, err := MediaStats(context.Background(), db, time.Now()); err == nil {
		t.Fatalf("expected error due to missing table")
	}
}

func TestMediaStats_GroupsLiveArtifacts(t *testing.T) {
	db := newTestDB(t, &domain.GeneratedMedia{})
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	seedMedia(t, db, domain.GeneratedMedia{EndpointPath: "/fox", PromptHash: "a", FileSizeBytes: 100, ExpiresAt: now.Add(time.Hour)})
	seedMedia(t, db, domain.GeneratedMedia{EndpointPath: "/fox", PromptHash: "b", FileSizeBytes: 50, ExpiresAt: now.Add(time.Hour)})
	seedMedia(t, db, domain.GeneratedMedia{EndpointPath: "/gif", PromptHash: "c", FileSizeBytes: 7, ExpiresAt: now.Add(time.Minute)})
	// expired rows are not counted
	seedMedia(t, db, domain.GeneratedMedia{EndpointPath: "/gif", PromptHash: "d", FileSizeBytes: 999, ExpiresAt: now.Add(-time.Minute)})

	rows, err := MediaStats(context.Background(), db, now)
	if err != nil {
		t.Fatalf("MediaStats: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 groups, got %+v", rows)
	}
	if rows[0].EndpointPath != "/fox" || rows[0].Count != 2 || rows[0].Bytes != 150 {
		t.Fatalf("fox stats unexpected: %+v", rows[0])
	}
	if rows[1].EndpointPath != "/gif" || rows[1].Count != 1 || rows[1].Bytes != 7 {
		t.Fatalf("gif stats unexpected: %+v", rows[1])
	}
}
