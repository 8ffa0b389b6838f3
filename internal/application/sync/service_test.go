package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/order"
	"github.com/resell/backoffice/internal/infrastructure/config"
	"github.com/resell/backoffice/internal/infrastructure/event"
)

// fakePlatform scripts FetchOrders responses page by page. A nil entry in
// pages makes that page fail with a transient error.
type fakePlatform struct {
	pages    []*channel.FetchPage
	requests []*channel.FetchRequest
	uploads  []string
	failUp   map[string]bool
	onFetch  func(req *channel.FetchRequest)
}

func (f *fakePlatform) FetchOrders(_ context.Context, req *channel.FetchRequest) (*channel.FetchPage, error) {
	f.requests = append(f.requests, req)
	if f.onFetch != nil {
		f.onFetch(req)
	}
	idx := req.Page - 1
	if idx >= len(f.pages) {
		return &channel.FetchPage{}, nil
	}
	if f.pages[idx] == nil {
		return nil, channel.ErrTransientFetch
	}
	return f.pages[idx], nil
}

func (f *fakePlatform) UploadTracking(_ context.Context, externalOrderID string, _ channel.Code, _, _ string) error {
	if f.failUp[externalOrderID] {
		return channel.ErrTrackingUpload
	}
	f.uploads = append(f.uploads, externalOrderID)
	return nil
}

var _ channel.OrderPlatform = (*fakePlatform)(nil)

func newTestService(t *testing.T, repos *testRepos, platform channel.OrderPlatform, now time.Time) *Service {
	t.Helper()
	logger := zap.NewNop()
	svc := NewService(
		config.PlatformConfig{PageSize: 50, MaxPages: 10},
		config.SyncConfig{OverlapMargin: 5 * time.Minute, InitialLookback: 24 * time.Hour},
		platform,
		repos.orders,
		NewMatcher(repos.products, repos.orders, logger),
		repos.syncLogs,
		repos.settings,
		event.NewInMemoryEventBus(logger),
		logger,
	)
	svc.now = func() time.Time { return now }
	return svc
}

func orderAt(externalID string, orderedAt time.Time) channel.ChannelOrder {
	co := channelOrder(externalID, channel.CodeGmarket, line("GM-100", "L-1"))
	co.OrderedAt = orderedAt
	return *co
}

func TestService_Run_OKAdvancesWatermarkToWindowEnd(t *testing.T) {
	repos := newTestRepos(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	seedProduct(t, repos, "커피머신", channel.GroupESM, "GM-100", "L-1")

	platform := &fakePlatform{pages: []*channel.FetchPage{
		{Orders: []channel.ChannelOrder{
			orderAt("ORD-1", now.Add(-2*time.Hour)),
			orderAt("ORD-2", now.Add(-time.Hour)),
		}},
	}}

	svc := newTestService(t, repos, platform, now)
	log, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, channel.SyncStatusOK, log.Status)
	assert.Equal(t, 2, log.Fetched)
	assert.Equal(t, 2, log.NewlyPersisted)
	assert.Equal(t, 2, log.Matched)
	assert.Equal(t, 0, log.Unmatched)

	mark, err := repos.settings.Get(context.Background(), channel.SettingSyncWatermark)
	require.NoError(t, err)
	assert.Equal(t, now.Format(time.RFC3339), mark)

	// The audit record was persisted too
	latest, err := repos.syncLogs.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, channel.SyncStatusOK, latest.Status)
}

func TestService_Run_FirstRunUsesInitialLookback(t *testing.T) {
	repos := newTestRepos(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	platform := &fakePlatform{pages: []*channel.FetchPage{{}}}

	svc := newTestService(t, repos, platform, now)
	log, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, now.Add(-24*time.Hour), log.WindowStart)
	assert.Equal(t, now, log.WindowEnd)
}

func TestService_Run_WindowOverlapsStoredWatermark(t *testing.T) {
	repos := newTestRepos(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	mark := time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC)
	require.NoError(t, repos.settings.Save(context.Background(), channel.SettingSyncWatermark, mark.Format(time.RFC3339)))

	platform := &fakePlatform{pages: []*channel.FetchPage{{}}}
	svc := newTestService(t, repos, platform, now)

	log, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, mark.Add(-5*time.Minute), log.WindowStart)
}

func TestService_Run_PageFailureIsPartial(t *testing.T) {
	repos := newTestRepos(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	mark := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repos.settings.Save(context.Background(), channel.SettingSyncWatermark, mark.Format(time.RFC3339)))

	newest := now.Add(-30 * time.Minute)
	platform := &fakePlatform{pages: []*channel.FetchPage{
		{
			Orders: []channel.ChannelOrder{
				orderAt("ORD-1", now.Add(-90*time.Minute)),
				orderAt("ORD-2", newest),
			},
			HasMore: true,
		},
		nil, // page 2 fails
	}}

	svc := newTestService(t, repos, platform, now)
	log, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, channel.ErrTransientFetch)

	assert.Equal(t, channel.SyncStatusPartial, log.Status)
	assert.Equal(t, 2, log.NewlyPersisted)
	assert.NotEmpty(t, log.Error)

	// Watermark lands on the newest persisted order so the remainder is
	// re-fetched next cycle
	stored, err := repos.settings.Get(context.Background(), channel.SettingSyncWatermark)
	require.NoError(t, err)
	assert.Equal(t, newest.Format(time.RFC3339), stored)
}

func TestService_Run_TotalFailureHoldsWatermark(t *testing.T) {
	repos := newTestRepos(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	mark := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repos.settings.Save(context.Background(), channel.SettingSyncWatermark, mark.Format(time.RFC3339)))

	platform := &fakePlatform{pages: []*channel.FetchPage{nil}}
	svc := newTestService(t, repos, platform, now)

	log, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, channel.SyncStatusFailed, log.Status)
	assert.Equal(t, 0, log.Fetched)

	stored, err := repos.settings.Get(context.Background(), channel.SettingSyncWatermark)
	require.NoError(t, err)
	assert.Equal(t, mark.Format(time.RFC3339), stored, "failed run leaves the watermark untouched")
}

func TestService_Run_OverlappingRerunInsertsNothing(t *testing.T) {
	repos := newTestRepos(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	platform := &fakePlatform{pages: []*channel.FetchPage{
		{Orders: []channel.ChannelOrder{orderAt("ORD-1", now.Add(-time.Hour))}},
	}}
	svc := newTestService(t, repos, platform, now)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.NewlyPersisted)

	// The overlap margin re-fetches the same order next cycle
	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, second.Fetched)
	assert.Equal(t, 0, second.NewlyPersisted)

	stored, err := repos.orders.FindByExternalID(context.Background(), "ORD-1")
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 1)
}

func TestService_Run_BadOrderDemotesRunToPartial(t *testing.T) {
	repos := newTestRepos(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	bad := orderAt("", now.Add(-2*time.Hour)) // missing external ID fails validation
	goodAt := now.Add(-time.Hour)
	platform := &fakePlatform{pages: []*channel.FetchPage{
		{Orders: []channel.ChannelOrder{bad, orderAt("ORD-2", goodAt)}},
	}}

	svc := newTestService(t, repos, platform, now)
	log, err := svc.Run(context.Background())
	require.NoError(t, err)

	// The good order landed, but the run must not finish OK: an OK
	// watermark advance to the window end would skip the bad order forever
	assert.Equal(t, channel.SyncStatusPartial, log.Status)
	assert.Equal(t, 2, log.Fetched)
	assert.Equal(t, 1, log.NewlyPersisted)
	assert.Contains(t, log.Error, "1 orders failed")

	_, err = repos.orders.FindByExternalID(context.Background(), "ORD-2")
	assert.NoError(t, err)

	// Watermark stops at the newest persisted order, not the window end
	stored, err := repos.settings.Get(context.Background(), channel.SettingSyncWatermark)
	require.NoError(t, err)
	assert.Equal(t, goodAt.Format(time.RFC3339), stored)
}

func TestService_Run_CancelledRunStillRecordsPartial(t *testing.T) {
	repos := newTestRepos(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	newest := now.Add(-30 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The run's context dies while page 2 is being served
	platform := &fakePlatform{
		pages: []*channel.FetchPage{
			{
				Orders: []channel.ChannelOrder{
					orderAt("ORD-1", now.Add(-90*time.Minute)),
					orderAt("ORD-2", newest),
				},
				HasMore: true,
			},
			nil,
		},
		onFetch: func(req *channel.FetchRequest) {
			if req.Page == 2 {
				cancel()
			}
		},
	}

	svc := newTestService(t, repos, platform, now)
	log, err := svc.Run(ctx)
	require.Error(t, err)
	assert.Equal(t, channel.SyncStatusPartial, log.Status)

	// The audit record and watermark land despite the dead context
	latest, err := repos.syncLogs.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, channel.SyncStatusPartial, latest.Status)
	assert.Equal(t, 2, latest.NewlyPersisted)

	stored, err := repos.settings.Get(context.Background(), channel.SettingSyncWatermark)
	require.NoError(t, err)
	assert.Equal(t, newest.Format(time.RFC3339), stored)
}

func TestService_Run_FollowsPagination(t *testing.T) {
	repos := newTestRepos(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	platform := &fakePlatform{pages: []*channel.FetchPage{
		{Orders: []channel.ChannelOrder{orderAt("ORD-1", now.Add(-time.Hour))}, HasMore: true},
		{Orders: []channel.ChannelOrder{orderAt("ORD-2", now.Add(-time.Hour))}},
	}}

	svc := newTestService(t, repos, platform, now)
	log, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, log.Fetched)
	require.Len(t, platform.requests, 2)
	assert.Equal(t, 1, platform.requests[0].Page)
	assert.Equal(t, 2, platform.requests[1].Page)
}

func TestTrackingService_Run(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	logger := zap.NewNop()

	fulfill := func(externalID string) {
		o := seedOrder(t, repos, channelOrder(externalID, channel.CodeGmarket, line("GM-100", "L-1")))
		require.NoError(t, o.MarkFulfilled("CJ대한통운", "123456789"))
		require.NoError(t, repos.orders.UpdateStatus(ctx, o))
	}
	fulfill("ORD-OK")
	fulfill("ORD-FAIL")

	platform := &fakePlatform{failUp: map[string]bool{"ORD-FAIL": true}}
	svc := NewTrackingService(platform, repos.orders, event.NewInMemoryEventBus(logger), logger)

	stats, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Uploaded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, []string{"ORD-OK"}, platform.uploads)

	tracked, err := repos.orders.FindByExternalID(ctx, "ORD-OK")
	require.NoError(t, err)
	assert.Equal(t, order.StatusTracked, tracked.Status)

	// The failed one stays FULFILLED and is retried next cycle
	failed, err := repos.orders.FindByExternalID(ctx, "ORD-FAIL")
	require.NoError(t, err)
	assert.Equal(t, order.StatusFulfilled, failed.Status)

	remaining, err := repos.orders.FindFulfilledUntracked(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "ORD-FAIL", remaining[0].ExternalOrderID)
}
