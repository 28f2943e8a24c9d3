package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
)

// GormFileSyncRepository persists per-file delta-sync state
type GormFileSyncRepository struct {
	db *gorm.DB
}

// NewGormFileSyncRepository creates a new GORM file-sync repository
func NewGormFileSyncRepository(db *gorm.DB) *GormFileSyncRepository {
	return &GormFileSyncRepository{db: db}
}

// LoadAll reads every tracking row into a map keyed by file path
func (r *GormFileSyncRepository) LoadAll(ctx context.Context) (map[string]*ingestion.FileSyncRecord, error) {
	var models []FtpFileSyncModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load file sync state: %w", err)
	}
	out := make(map[string]*ingestion.FileSyncRecord, len(models))
	for i := range models {
		m := models[i]
		out[m.FilePath] = &ingestion.FileSyncRecord{
			FilePath:      m.FilePath,
			FileSize:      m.FileSize,
			FtpModifiedAt: m.FtpModifiedAt,
			ContentHash:   m.ContentHash,
			LastSyncedAt:  m.LastSyncedAt,
			SyncStatus:    ingestion.SyncStatus(m.SyncStatus),
			LastError:     m.LastError,
		}
	}
	return out, nil
}

// Record upserts one tracking row keyed by file path
func (r *GormFileSyncRepository) Record(ctx context.Context, rec *ingestion.FileSyncRecord) error {
	model := FtpFileSyncModel{
		FilePath:      rec.FilePath,
		FileSize:      rec.FileSize,
		FtpModifiedAt: rec.FtpModifiedAt,
		ContentHash:   rec.ContentHash,
		LastSyncedAt:  rec.LastSyncedAt,
		SyncStatus:    string(rec.SyncStatus),
		LastError:     rec.LastError,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "file_path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"file_size", "ftp_modified_at", "content_hash",
			"last_synced_at", "sync_status", "last_error",
		}),
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to record file sync state: %w", err)
	}
	return nil
}
