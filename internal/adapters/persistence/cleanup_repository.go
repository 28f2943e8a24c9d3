package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
)

// GormSailingCleanupRepository removes sailings whose end date has
// passed, together with their children. The cutoff compares end_date,
// not sail_date, so voyages still underway are kept.
type GormSailingCleanupRepository struct {
	db *gorm.DB
}

// NewGormSailingCleanupRepository creates a new cleanup repository
func NewGormSailingCleanupRepository(db *gorm.DB) *GormSailingCleanupRepository {
	return &GormSailingCleanupRepository{db: db}
}

func (r *GormSailingCleanupRepository) pastSailingIDs(ctx context.Context, cutoff time.Time) ([]string, []string, error) {
	var rows []SailingModel
	err := r.db.WithContext(ctx).
		Select("id", "provider_identifier").
		Where("end_date < ?", cutoff).
		Find(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find past sailings: %w", err)
	}
	ids := make([]string, 0, len(rows))
	providerIDs := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
		providerIDs = append(providerIDs, row.ProviderIdentifier)
	}
	return ids, providerIDs, nil
}

// Preview reports what Run would delete, without deleting
func (r *GormSailingCleanupRepository) Preview(ctx context.Context, cutoff time.Time) (common.CleanupPreview, error) {
	preview := common.CleanupPreview{CutoffDate: cutoff.Format("2006-01-02")}

	ids, providerIDs, err := r.pastSailingIDs(ctx, cutoff)
	if err != nil {
		return preview, err
	}
	preview.Counts.Sailings = int64(len(ids))
	if len(ids) == 0 {
		return preview, nil
	}

	db := r.db.WithContext(ctx)
	if err := db.Model(&SailingRegionModel{}).Where("sailing_id IN ?", ids).Count(&preview.Counts.Regions).Error; err != nil {
		return preview, fmt.Errorf("failed to count sailing regions: %w", err)
	}
	if err := db.Model(&SailingStopModel{}).Where("sailing_id IN ?", ids).Count(&preview.Counts.Stops).Error; err != nil {
		return preview, fmt.Errorf("failed to count sailing stops: %w", err)
	}
	if err := db.Model(&SailingCabinPriceModel{}).Where("sailing_id IN ?", ids).Count(&preview.Counts.CabinPrices).Error; err != nil {
		return preview, fmt.Errorf("failed to count cabin prices: %w", err)
	}
	if err := db.Model(&SyncRawModel{}).Where("provider_sailing_id IN ?", providerIDs).Count(&preview.Counts.RawPayloads).Error; err != nil {
		return preview, fmt.Errorf("failed to count raw payloads: %w", err)
	}

	var oldest SailingModel
	if err := db.Where("end_date < ?", cutoff).Order("end_date asc").First(&oldest).Error; err == nil {
		preview.OldestEndDate = &oldest.EndDate
	}
	return preview, nil
}

// Run deletes past sailings and their children inside one transaction,
// children first: regions, stops, prices, raw payloads, then sailings.
func (r *GormSailingCleanupRepository) Run(ctx context.Context, cutoff time.Time) (common.CleanupResult, error) {
	start := time.Now()
	result := common.CleanupResult{CutoffDate: cutoff.Format("2006-01-02")}

	ids, providerIDs, err := r.pastSailingIDs(ctx, cutoff)
	if err != nil {
		return result, err
	}
	if len(ids) == 0 {
		result.DurationMs = time.Since(start).Milliseconds()
		return result, nil
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("sailing_id IN ?", ids).Delete(&SailingRegionModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete sailing regions: %w", res.Error)
		}
		result.Counts.Regions = res.RowsAffected

		res = tx.Where("sailing_id IN ?", ids).Delete(&SailingStopModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete sailing stops: %w", res.Error)
		}
		result.Counts.Stops = res.RowsAffected

		res = tx.Where("sailing_id IN ?", ids).Delete(&SailingCabinPriceModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete cabin prices: %w", res.Error)
		}
		result.Counts.CabinPrices = res.RowsAffected

		res = tx.Where("sailing_id IN ?", ids).Delete(&AlternateSailingModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete alternate sailings: %w", res.Error)
		}

		res = tx.Where("provider_sailing_id IN ?", providerIDs).Delete(&SyncRawModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete raw payloads: %w", res.Error)
		}
		result.Counts.RawPayloads = res.RowsAffected

		res = tx.Where("id IN ?", ids).Delete(&SailingModel{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete sailings: %w", res.Error)
		}
		result.Counts.Sailings = res.RowsAffected
		return nil
	})
	if err != nil {
		return result, err
	}
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}
