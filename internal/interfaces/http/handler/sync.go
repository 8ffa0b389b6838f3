package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/resell/backoffice/internal/domain/channel"
	"github.com/resell/backoffice/internal/domain/shared"
	"github.com/resell/backoffice/internal/infrastructure/scheduler"
)

// SyncHandler exposes the sync cycle over HTTP
type SyncHandler struct {
	BaseHandler
	cycle    *scheduler.Cycle
	syncLogs channel.SyncLogRepository
	settings channel.SettingsRepository
}

// NewSyncHandler creates a SyncHandler
func NewSyncHandler(cycle *scheduler.Cycle, syncLogs channel.SyncLogRepository, settings channel.SettingsRepository) *SyncHandler {
	return &SyncHandler{
		cycle:    cycle,
		syncLogs: syncLogs,
		settings: settings,
	}
}

// Trigger starts a sync run immediately
// POST /api/v1/sync/trigger
func (h *SyncHandler) Trigger(c *gin.Context) {
	if err := h.cycle.TriggerNow(); err != nil {
		if errors.Is(err, scheduler.ErrAlreadyRunning) {
			h.Conflict(c, "A sync run is already in progress")
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, gin.H{"triggered": true})
}

// syncStatusResponse is the body of the status endpoint
type syncStatusResponse struct {
	Running   bool             `json:"running"`
	Watermark string           `json:"watermark,omitempty"`
	LastRun   *syncLogResponse `json:"last_run,omitempty"`
}

// syncLogResponse serializes one sync run record
type syncLogResponse struct {
	ID             string `json:"id"`
	WindowStart    string `json:"window_start"`
	WindowEnd      string `json:"window_end"`
	Fetched        int    `json:"fetched"`
	NewlyPersisted int    `json:"newly_persisted"`
	Matched        int    `json:"matched"`
	Unmatched      int    `json:"unmatched"`
	DurationMs     int64  `json:"duration_ms"`
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func toSyncLogResponse(log *channel.SyncLog) *syncLogResponse {
	return &syncLogResponse{
		ID:             log.ID.String(),
		WindowStart:    log.WindowStart.Format(time.RFC3339),
		WindowEnd:      log.WindowEnd.Format(time.RFC3339),
		Fetched:        log.Fetched,
		NewlyPersisted: log.NewlyPersisted,
		Matched:        log.Matched,
		Unmatched:      log.Unmatched,
		DurationMs:     log.Duration.Milliseconds(),
		Status:         log.Status.String(),
		Error:          log.Error,
		CreatedAt:      log.CreatedAt.Format(time.RFC3339),
	}
}

// Status reports whether a run is in flight, the current watermark and the
// latest run record
// GET /api/v1/sync/status
func (h *SyncHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	resp := syncStatusResponse{Running: h.cycle.InFlight()}

	if watermark, err := h.settings.Get(ctx, channel.SettingSyncWatermark); err == nil {
		resp.Watermark = watermark
	}

	latest, err := h.syncLogs.Latest(ctx)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		h.HandleError(c, err)
		return
	}
	if latest != nil {
		resp.LastRun = toSyncLogResponse(latest)
	}

	h.Success(c, resp)
}

// Logs lists recent sync run records, newest first
// GET /api/v1/sync/logs?limit=20
func (h *SyncHandler) Logs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	logs, err := h.syncLogs.List(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	out := make([]*syncLogResponse, 0, len(logs))
	for i := range logs {
		out = append(out, toSyncLogResponse(&logs[i]))
	}
	h.Success(c, out)
}

// updateConfigRequest is the body of the config endpoint
type updateConfigRequest struct {
	Enabled  *bool  `json:"enabled"`
	Interval string `json:"interval"`
}

// UpdateConfig updates the sync toggle and cadence in the settings store
// PUT /api/v1/sync/config
func (h *SyncHandler) UpdateConfig(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request body")
		return
	}

	ctx := c.Request.Context()
	if req.Enabled != nil {
		if err := h.settings.Save(ctx, channel.SettingSyncEnabled, strconv.FormatBool(*req.Enabled)); err != nil {
			h.HandleError(c, err)
			return
		}
	}
	if req.Interval != "" {
		interval, err := time.ParseDuration(req.Interval)
		if err != nil || interval < time.Minute {
			h.BadRequest(c, "Interval must be a duration of at least 1m")
			return
		}
		if err := h.settings.Save(ctx, channel.SettingSyncInterval, interval.String()); err != nil {
			h.HandleError(c, err)
			return
		}
	}

	h.Success(c, gin.H{"updated": true})
}
