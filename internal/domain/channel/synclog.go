package channel

import (
	"context"
	"time"

	"github.com/resell/backoffice/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// SyncLog
// ---------------------------------------------------------------------------

// SyncStatus is the terminal status of a sync run
type SyncStatus string

const (
	// SyncStatusOK indicates every page of the window was processed
	SyncStatusOK SyncStatus = "OK"
	// SyncStatusPartial indicates some pages succeeded before a later page failed
	SyncStatusPartial SyncStatus = "PARTIAL"
	// SyncStatusFailed indicates the run produced no usable progress
	SyncStatusFailed SyncStatus = "FAILED"
)

// IsValid returns true if the status is a known sync status
func (s SyncStatus) IsValid() bool {
	switch s {
	case SyncStatusOK, SyncStatusPartial, SyncStatusFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the sync status
func (s SyncStatus) String() string {
	return string(s)
}

// SyncLog is the append-only audit record of one scheduler run. Created once
// per run and never mutated after the run completes.
type SyncLog struct {
	shared.BaseEntity
	// WindowStart is the inclusive start of the fetched window
	WindowStart time.Time
	// WindowEnd is the inclusive end of the fetched window
	WindowEnd time.Time
	// Fetched is the number of orders returned by the platform
	Fetched int
	// NewlyPersisted is the number of orders inserted for the first time
	NewlyPersisted int
	// Matched is the number of lines resolved to a catalog product this run
	Matched int
	// Unmatched is the number of lines persisted without a catalog reference
	Unmatched int
	// Duration is how long the run took
	Duration time.Duration
	// Status is the terminal run status
	Status SyncStatus
	// Error holds the failure detail for PARTIAL and FAILED runs
	Error string
}

// TableName returns the database table name for SyncLog
func (SyncLog) TableName() string {
	return "sync_logs"
}

// NewSyncLog creates the audit record for a completed run
func NewSyncLog(windowStart, windowEnd time.Time, status SyncStatus) *SyncLog {
	return &SyncLog{
		BaseEntity:  shared.NewBaseEntity(),
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Status:      status,
	}
}

// SyncLogRepository persists sync run audit records
type SyncLogRepository interface {
	// Save appends a completed run record
	Save(ctx context.Context, log *SyncLog) error

	// Latest returns the most recent run record, or shared.ErrNotFound
	Latest(ctx context.Context) (*SyncLog, error)

	// List returns the most recent run records, newest first
	List(ctx context.Context, limit int) ([]SyncLog, error)
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// Well-known setting keys
const (
	// SettingSyncEnabled gates whether the sync scheduler runs ("true"/"false")
	SettingSyncEnabled = "sync.enabled"
	// SettingSyncInterval is the sync cadence as a Go duration string
	SettingSyncInterval = "sync.interval"
	// SettingSyncWatermark is the RFC3339 end of the last successful window
	SettingSyncWatermark = "sync.watermark"
	// SettingTrackingEnabled gates the tracking-upload cycle
	SettingTrackingEnabled = "tracking.enabled"
	// SettingTrackingInterval is the tracking-upload cadence
	SettingTrackingInterval = "tracking.interval"
	// SettingPlatformAPIKey is the order-management platform credential
	SettingPlatformAPIKey = "platform.api_key"
	// SettingPlatformAPISecret is the order-management platform secret
	SettingPlatformAPISecret = "platform.api_secret"
)

// SettingsRepository is the key-value credential and toggle store
type SettingsRepository interface {
	// Get returns the value for a key, or shared.ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Save creates or replaces the value for a key
	Save(ctx context.Context, key, value string) error
}
