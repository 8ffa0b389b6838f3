package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/shared"
)

func TestGormSettingsRepository_RoundTrip(t *testing.T) {
	repo := NewGormSettingsRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.Get(ctx, channel.SettingSyncWatermark)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	mark := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339)
	require.NoError(t, repo.Save(ctx, channel.SettingSyncWatermark, mark))

	got, err := repo.Get(ctx, channel.SettingSyncWatermark)
	require.NoError(t, err)
	assert.Equal(t, mark, got)

	// Save replaces in place
	require.NoError(t, repo.Save(ctx, channel.SettingSyncWatermark, "2026-09-02T00:00:00Z"))
	got, err = repo.Get(ctx, channel.SettingSyncWatermark)
	require.NoError(t, err)
	assert.Equal(t, "2026-09-02T00:00:00Z", got)
}

func TestGormSyncLogRepository_LatestAndList(t *testing.T) {
	repo := NewGormSyncLogRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.Latest(ctx)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	for i := 0; i < 3; i++ {
		log := channel.NewSyncLog(
			time.Date(2026, 9, 1, i, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 1, i+1, 0, 0, 0, time.UTC),
			channel.SyncStatusOK,
		)
		log.CreatedAt = time.Date(2026, 9, 1, i+1, 0, 0, 0, time.UTC)
		log.Fetched = i
		require.NoError(t, repo.Save(ctx, log))
	}

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Fetched)

	logs, err := repo.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, 2, logs[0].Fetched)
	assert.Equal(t, 1, logs[1].Fetched)
}
