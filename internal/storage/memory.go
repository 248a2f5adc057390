package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage is an in-memory Storage implementation, useful for tests
// and single-process deployments without a database.
type MemoryStorage struct {
	mu          sync.RWMutex
	portals     map[string]Portal
	snaps       map[string]OfferSnapshot
	settings    map[string]string
	jobs        map[string]ScheduledJob
	emailConfig *EmailConfig
	locks       map[int64]bool
}

// NewMemory returns an empty MemoryStorage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{
		portals:  make(map[string]Portal),
		snaps:    make(map[string]OfferSnapshot),
		settings: make(map[string]string),
		jobs:     make(map[string]ScheduledJob),
		locks:    make(map[int64]bool),
	}
}

// NewMemoryWithPortals returns a MemoryStorage preloaded with the given
// portal list. Conversion from registry metadata is done by callers to
// keep this package free of registry imports.
func NewMemoryWithPortals(list []Portal) *MemoryStorage {
	m := NewMemory()
	for _, p := range list {
		m.portals[p.Code] = p
	}
	return m
}

func (m *MemoryStorage) Close() error { return nil }

func (m *MemoryStorage) Ping(ctx context.Context) error { return nil }

func (m *MemoryStorage) ListPortals(ctx context.Context) ([]Portal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Portal, 0, len(m.portals))
	for _, p := range m.portals {
		out = append(out, p)
	}
	return out, nil
}

func (m *MemoryStorage) GetPortal(ctx context.Context, code string) (*Portal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.portals[code]
	if !ok {
		return nil, nil
	}
	cp := p
	return &cp, nil
}

func (m *MemoryStorage) UpsertPortal(ctx context.Context, p Portal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.portals[p.Code] = p
	return nil
}

func (m *MemoryStorage) GetOfferSnapshot(ctx context.Context, distributor string) (*OfferSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snaps[distributor]
	if !ok {
		return nil, nil
	}
	cp := s
	return &cp, nil
}

func (m *MemoryStorage) SaveOfferSnapshot(ctx context.Context, snap OfferSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	m.snaps[snap.Distributor] = snap
	return nil
}

func (m *MemoryStorage) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings[key], nil
}

func (m *MemoryStorage) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

func (m *MemoryStorage) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.emailConfig == nil {
		return nil, nil
	}
	cfg := *m.emailConfig
	return &cfg, nil
}

func (m *MemoryStorage) SaveEmailConfig(ctx context.Context, cfg EmailConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailConfig = &cfg
	return nil
}

func (m *MemoryStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := 0
	if success {
		status = 1
	}
	m.jobs[name] = ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    status,
		LastError:      errMsg,
	}
	return nil
}

// Process-local advisory locks. Acquire fails while the key is held and
// Release reports whether anything was actually released, mirroring the
// pg_try_advisory_lock/pg_advisory_unlock contract.
func (m *MemoryStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] {
		return false, nil
	}
	m.locks[key] = true
	return true, nil
}

func (m *MemoryStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locks[key] {
		return false, nil
	}
	delete(m.locks, key)
	return true, nil
}
