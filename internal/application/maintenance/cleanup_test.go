package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

type recordingCleanupRepo struct {
	cutoff time.Time
}

func (r *recordingCleanupRepo) Preview(ctx context.Context, cutoff time.Time) (common.CleanupPreview, error) {
	r.cutoff = cutoff
	return common.CleanupPreview{CutoffDate: cutoff.Format("2006-01-02")}, nil
}

func (r *recordingCleanupRepo) Run(ctx context.Context, cutoff time.Time) (common.CleanupResult, error) {
	r.cutoff = cutoff
	return common.CleanupResult{CutoffDate: cutoff.Format("2006-01-02")}, nil
}

func TestCleanupCutoffAppliesBuffer(t *testing.T) {
	repo := &recordingCleanupRepo{}
	clock := shared.NewMockClock(time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC))
	service := NewCleanupService(repo, clock, 3)

	_, err := service.Preview(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC), repo.cutoff)
}

func TestCleanupBufferOverridePerCall(t *testing.T) {
	repo := &recordingCleanupRepo{}
	clock := shared.NewMockClock(time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC))
	service := NewCleanupService(repo, clock, 3)

	override := 10
	_, err := service.Preview(context.Background(), &override)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), repo.cutoff)
}

func TestCleanupCutoffZeroBufferIsMidnightToday(t *testing.T) {
	repo := &recordingCleanupRepo{}
	clock := shared.NewMockClock(time.Date(2026, 3, 15, 23, 59, 0, 0, time.UTC))
	service := NewCleanupService(repo, clock, 0)

	_, err := service.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), repo.cutoff)
}

func TestCleanupNegativeBufferClamped(t *testing.T) {
	repo := &recordingCleanupRepo{}
	clock := shared.NewMockClock(time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC))
	service := NewCleanupService(repo, clock, -5)

	_, err := service.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), repo.cutoff)
}
