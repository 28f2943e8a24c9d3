package maintenance

import (
	"context"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

// PurgeService removes raw vendor payloads whose retention TTL elapsed
type PurgeService struct {
	repo  common.RawPayloadRepository
	clock shared.Clock
}

// NewPurgeService creates the raw-payload purge service
func NewPurgeService(repo common.RawPayloadRepository, clock shared.Clock) *PurgeService {
	return &PurgeService{repo: repo, clock: clock}
}

// PurgeExpired deletes all expired payloads and reports what was removed
func (s *PurgeService) PurgeExpired(ctx context.Context) (common.PurgeResult, error) {
	result, err := s.repo.PurgeExpired(ctx, s.clock.Now())
	if err != nil {
		return result, err
	}
	common.LoggerFromContext(ctx).Log("info", "raw payload purge finished", map[string]interface{}{
		"purged":       result.PurgedCount,
		"maxSizeBytes": result.MaxSizeBytes,
		"durationMs":   result.DurationMs,
	})
	return result, nil
}

// StorageStats reports the current shape of the raw payload store
func (s *PurgeService) StorageStats(ctx context.Context) (common.StorageStats, error) {
	return s.repo.Stats(ctx, s.clock.Now())
}
