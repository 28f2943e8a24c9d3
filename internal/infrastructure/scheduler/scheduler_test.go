package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/infrastructure/config"
)

func TestNewRegistersConfiguredJobs(t *testing.T) {
	cfg := &config.SchedulerConfig{
		Timezone:  "America/Toronto",
		SyncCron:  "0 2 * * *",
		PurgeCron: "30 3 * * *",
	}
	s, err := New(cfg, Jobs{}, common.LoggerFromContext(context.Background()))
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 2)
}

func TestNewSkipsJobsWithoutExpression(t *testing.T) {
	cfg := &config.SchedulerConfig{Timezone: "UTC"}
	s, err := New(cfg, Jobs{}, common.LoggerFromContext(context.Background()))
	require.NoError(t, err)
	assert.Empty(t, s.cron.Entries())
}

func TestNewRejectsUnknownTimezone(t *testing.T) {
	cfg := &config.SchedulerConfig{Timezone: "Mars/Olympus"}
	_, err := New(cfg, Jobs{}, common.LoggerFromContext(context.Background()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scheduler timezone")
}

func TestNewRejectsMalformedCronExpression(t *testing.T) {
	cfg := &config.SchedulerConfig{
		Timezone:    "UTC",
		CleanupCron: "every day at noon",
	}
	_, err := New(cfg, Jobs{}, common.LoggerFromContext(context.Background()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cleanup job")
}
