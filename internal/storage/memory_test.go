package storage

import (
	"context"
	"testing"
	"time"
)

func TestMemoryPortals(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryWithPortals([]Portal{
		{Code: "ide", Name: "i-DE"},
		{Code: "ufd", Name: "UFD"},
	})

	list, err := m.ListPortals(ctx)
	if err != nil {
		t.Fatalf("ListPortals: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d portals, want 2", len(list))
	}

	p, err := m.GetPortal(ctx, "ide")
	if err != nil || p == nil || p.Name != "i-DE" {
		t.Fatalf("GetPortal(ide) = %+v, %v", p, err)
	}
	if p, _ := m.GetPortal(ctx, "ghost"); p != nil {
		t.Errorf("GetPortal(ghost) = %+v, want nil", p)
	}

	if err := m.UpsertPortal(ctx, Portal{Code: "ide", Name: "renamed"}); err != nil {
		t.Fatalf("UpsertPortal: %v", err)
	}
	p, _ = m.GetPortal(ctx, "ide")
	if p.Name != "renamed" {
		t.Errorf("upsert did not overwrite: %+v", p)
	}
}

func TestMemoryOfferSnapshots(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if snap, _ := m.GetOfferSnapshot(ctx, "ide"); snap != nil {
		t.Fatalf("expected nil snapshot on empty store, got %+v", snap)
	}

	fetched := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if err := m.SaveOfferSnapshot(ctx, OfferSnapshot{
		Distributor: "ide",
		Payload:     []byte(`[{"offer_name":"Plan"}]`),
		FetchedAt:   fetched,
	}); err != nil {
		t.Fatalf("SaveOfferSnapshot: %v", err)
	}

	snap, err := m.GetOfferSnapshot(ctx, "ide")
	if err != nil || snap == nil {
		t.Fatalf("GetOfferSnapshot: %+v, %v", snap, err)
	}
	if !snap.FetchedAt.Equal(fetched) || len(snap.Payload) == 0 {
		t.Errorf("snapshot = %+v", snap)
	}

	// Latest write wins.
	_ = m.SaveOfferSnapshot(ctx, OfferSnapshot{Distributor: "ide", Payload: []byte(`[]`)})
	snap, _ = m.GetOfferSnapshot(ctx, "ide")
	if string(snap.Payload) != "[]" {
		t.Errorf("expected latest payload, got %s", snap.Payload)
	}
	if snap.FetchedAt.IsZero() {
		t.Error("zero FetchedAt should default to now")
	}
}

func TestMemorySettings(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if v, _ := m.GetSetting(ctx, "refresh_interval_seconds"); v != "" {
		t.Errorf("unset setting = %q, want empty", v)
	}
	if err := m.SetSetting(ctx, "refresh_interval_seconds", "3600"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if v, _ := m.GetSetting(ctx, "refresh_interval_seconds"); v != "3600" {
		t.Errorf("setting = %q, want 3600", v)
	}
}

func TestMemoryScheduledJob(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	started := time.Now()
	if err := m.UpdateScheduledJob(ctx, "refresh_offers", started, 1500*time.Millisecond, false, "all distributors failed"); err != nil {
		t.Fatalf("UpdateScheduledJob: %v", err)
	}

	m.mu.RLock()
	job := m.jobs["refresh_offers"]
	m.mu.RUnlock()
	if job.LastDurationMs != 1500 || job.LastSuccess != 0 || job.LastError == "" {
		t.Errorf("job = %+v", job)
	}
}

func TestMemoryEmailConfig(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if cfg, _ := m.GetEmailConfig(ctx); cfg != nil {
		t.Fatalf("expected nil config on empty store, got %+v", cfg)
	}
	if err := m.SaveEmailConfig(ctx, EmailConfig{ID: "1", Provider: "smtp", Recipient: "ops@example.com", Enabled: true}); err != nil {
		t.Fatalf("SaveEmailConfig: %v", err)
	}
	cfg, err := m.GetEmailConfig(ctx)
	if err != nil || cfg == nil || cfg.Recipient != "ops@example.com" {
		t.Fatalf("GetEmailConfig = %+v, %v", cfg, err)
	}
}

func TestMemoryAdvisoryLock(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ok, err := m.AcquireAdvisoryLock(ctx, 7321)
	if err != nil || !ok {
		t.Fatalf("AcquireAdvisoryLock = %v, %v", ok, err)
	}
	if ok, err = m.AcquireAdvisoryLock(ctx, 7321); err != nil || ok {
		t.Fatalf("second acquire while held = %v, %v, want false", ok, err)
	}
	ok, err = m.ReleaseAdvisoryLock(ctx, 7321)
	if err != nil || !ok {
		t.Fatalf("ReleaseAdvisoryLock = %v, %v", ok, err)
	}
	if ok, err = m.ReleaseAdvisoryLock(ctx, 7321); err != nil || ok {
		t.Fatalf("release without holding = %v, %v, want false", ok, err)
	}
	if ok, err = m.AcquireAdvisoryLock(ctx, 7321); err != nil || !ok {
		t.Fatalf("re-acquire after release = %v, %v, want true", ok, err)
	}
}
