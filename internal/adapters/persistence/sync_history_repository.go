package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
)

// GormSyncHistoryRepository persists sync run history
type GormSyncHistoryRepository struct {
	db *gorm.DB
}

// NewGormSyncHistoryRepository creates a new GORM sync-history repository
func NewGormSyncHistoryRepository(db *gorm.DB) *GormSyncHistoryRepository {
	return &GormSyncHistoryRepository{db: db}
}

// Create allocates a new running history row and returns its ID
func (r *GormSyncHistoryRepository) Create(ctx context.Context, startedAt time.Time, options ingestion.SyncOptions) (string, error) {
	optsJSON, err := json.Marshal(options)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sync options: %w", err)
	}
	model := SyncHistoryModel{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
		Status:    string(ingestion.RunStatusRunning),
		Options:   string(optsJSON),
		Metrics:   "{}",
		Errors:    "[]",
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", fmt.Errorf("failed to create sync history: %w", err)
	}
	return model.ID, nil
}

// UpdateProgress persists a mid-run metrics snapshot
func (r *GormSyncHistoryRepository) UpdateProgress(ctx context.Context, id string, metrics ingestion.ImportMetrics) error {
	return r.write(ctx, id, map[string]interface{}{}, metrics)
}

// Finalize stamps completion and the final status
func (r *GormSyncHistoryRepository) Finalize(ctx context.Context, id string, status ingestion.RunStatus, completedAt time.Time, metrics ingestion.ImportMetrics) error {
	return r.write(ctx, id, map[string]interface{}{
		"status":       string(status),
		"completed_at": completedAt,
	}, metrics)
}

func (r *GormSyncHistoryRepository) write(ctx context.Context, id string, updates map[string]interface{}, metrics ingestion.ImportMetrics) error {
	errList := metrics.Errors
	if len(errList) > ingestion.MaxTrackedErrors {
		errList = errList[len(errList)-ingestion.MaxTrackedErrors:]
	}
	metricsJSON, err := json.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}
	errorsJSON, err := json.Marshal(errList)
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}
	updates["metrics"] = string(metricsJSON)
	updates["errors"] = string(errorsJSON)
	updates["error_count"] = metrics.FilesFailed
	if err := r.db.WithContext(ctx).Model(&SyncHistoryModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update sync history: %w", err)
	}
	return nil
}

// List returns recent runs, newest first. limit is clamped to 100.
func (r *GormSyncHistoryRepository) List(ctx context.Context, limit int) ([]ingestion.SyncHistoryRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	var models []SyncHistoryModel
	if err := r.db.WithContext(ctx).Order("started_at desc").Limit(limit).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync history: %w", err)
	}
	out := make([]ingestion.SyncHistoryRecord, 0, len(models))
	for i := range models {
		out = append(out, toHistoryRecord(&models[i]))
	}
	return out, nil
}

// Get returns one run by ID, nil when not found
func (r *GormSyncHistoryRepository) Get(ctx context.Context, id string) (*ingestion.SyncHistoryRecord, error) {
	var model SyncHistoryModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync history: %w", err)
	}
	rec := toHistoryRecord(&model)
	return &rec, nil
}

func toHistoryRecord(m *SyncHistoryModel) ingestion.SyncHistoryRecord {
	rec := ingestion.SyncHistoryRecord{
		ID:          m.ID,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
		Status:      ingestion.RunStatus(m.Status),
		ErrorCount:  m.ErrorCount,
	}
	_ = json.Unmarshal([]byte(m.Options), &rec.Options)
	if m.Metrics != "" && m.Metrics != "{}" {
		var metrics ingestion.ImportMetrics
		if json.Unmarshal([]byte(m.Metrics), &metrics) == nil {
			rec.Metrics = &metrics
		}
	}
	_ = json.Unmarshal([]byte(m.Errors), &rec.Errors)
	return rec
}
