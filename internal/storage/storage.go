// Package storage persists offer snapshots and operational state for the
// extraction service. The comparison application keeps its own canonical
// store; this layer only backs warm restarts, the read API and the worker.
package storage

import (
	"context"
	"time"
)

// Storage abstracts persistence for portal metadata, offer snapshots and
// worker bookkeeping.
type Storage interface {
	// Portal metadata
	ListPortals(ctx context.Context) ([]Portal, error)
	GetPortal(ctx context.Context, code string) (*Portal, error)
	UpsertPortal(ctx context.Context, p Portal) error

	// Offer snapshots (latest normalized payload per distributor)
	GetOfferSnapshot(ctx context.Context, distributor string) (*OfferSnapshot, error)
	SaveOfferSnapshot(ctx context.Context, snap OfferSnapshot) error

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error

	// Email alert configuration
	GetEmailConfig(ctx context.Context) (*EmailConfig, error)
	SaveEmailConfig(ctx context.Context, cfg EmailConfig) error

	// Worker bookkeeping
	UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error
	AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error)
	ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}
