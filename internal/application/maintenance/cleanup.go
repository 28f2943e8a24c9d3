package maintenance

import (
	"context"
	"time"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

// CleanupService deletes sailings whose end date passed more than the
// configured buffer ago. Comparing end dates keeps voyages still
// underway in the catalog.
type CleanupService struct {
	repo       common.SailingCleanupRepository
	clock      shared.Clock
	daysBuffer int
}

// NewCleanupService creates the past-sailing cleanup service
func NewCleanupService(repo common.SailingCleanupRepository, clock shared.Clock, daysBuffer int) *CleanupService {
	if daysBuffer < 0 {
		daysBuffer = 0
	}
	return &CleanupService{repo: repo, clock: clock, daysBuffer: daysBuffer}
}

// cutoff is midnight UTC today minus the buffer. A nil override uses
// the configured buffer.
func (s *CleanupService) cutoff(override *int) time.Time {
	buffer := s.daysBuffer
	if override != nil && *override >= 0 {
		buffer = *override
	}
	now := s.clock.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -buffer)
}

// Preview reports what Run would delete, without deleting
func (s *CleanupService) Preview(ctx context.Context, daysBuffer *int) (common.CleanupPreview, error) {
	return s.repo.Preview(ctx, s.cutoff(daysBuffer))
}

// Run deletes past sailings and their children
func (s *CleanupService) Run(ctx context.Context, daysBuffer *int) (common.CleanupResult, error) {
	result, err := s.repo.Run(ctx, s.cutoff(daysBuffer))
	if err != nil {
		return result, err
	}
	common.LoggerFromContext(ctx).Log("info", "past sailing cleanup finished", map[string]interface{}{
		"cutoffDate": result.CutoffDate,
		"sailings":   result.Counts.Sailings,
		"stops":      result.Counts.Stops,
		"durationMs": result.DurationMs,
	})
	return result, nil
}
