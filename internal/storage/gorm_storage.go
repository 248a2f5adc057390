package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// GormStorage backs Storage with sqlite or postgres through GORM.
type GormStorage struct {
	db *gorm.DB

	// Postgres advisory locks are session-scoped; each held lock pins the
	// pool connection it was acquired on until released there.
	lockMu    sync.Mutex
	lockConns map[int64]*sql.Conn
}

func NewGormStorage(driver, dsn string) (*GormStorage, error) {
	var gormDialector gorm.Dialector
	if driver == "postgres" || driver == "postgrespool" {
		gormDialector = postgres.Open(dsn)
	} else if driver == "sqlite" {
		gormDialector = sqlite.Open(dsn)
	} else {
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := gorm.Open(gormDialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	return &GormStorage{
		db:        db,
		lockConns: make(map[int64]*sql.Conn),
	}, nil
}

func (s *GormStorage) Migrate(ctx context.Context) error {
	return s.db.AutoMigrate(
		&Portal{},
		&OfferSnapshot{},
		&Setting{},
		&ScheduledJob{},
		&EmailConfig{},
	)
}

// Portals

func (s *GormStorage) ListPortals(ctx context.Context) ([]Portal, error) {
	var portals []Portal
	result := s.db.WithContext(ctx).Find(&portals)
	return portals, result.Error
}

func (s *GormStorage) GetPortal(ctx context.Context, code string) (*Portal, error) {
	var p Portal
	result := s.db.WithContext(ctx).First(&p, "code = ?", code)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &p, nil
}

func (s *GormStorage) UpsertPortal(ctx context.Context, p Portal) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		UpdateAll: true,
	}).Create(&p).Error
}

// Offer snapshots

func (s *GormStorage) GetOfferSnapshot(ctx context.Context, distributor string) (*OfferSnapshot, error) {
	var snap OfferSnapshot
	result := s.db.WithContext(ctx).Order("fetched_at desc").First(&snap, "distributor = ?", distributor)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &snap, nil
}

func (s *GormStorage) SaveOfferSnapshot(ctx context.Context, snap OfferSnapshot) error {
	return s.db.WithContext(ctx).Create(&snap).Error
}

// Settings

func (s *GormStorage) GetSetting(ctx context.Context, key string) (string, error) {
	var setting Setting
	result := s.db.WithContext(ctx).First(&setting, "key = ?", key)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return setting.Value, nil
}

func (s *GormStorage) SetSetting(ctx context.Context, key, value string) error {
	setting := Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&setting).Error
}

// Email config

func (s *GormStorage) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	var cfg EmailConfig
	result := s.db.WithContext(ctx).First(&cfg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &cfg, nil
}

func (s *GormStorage) SaveEmailConfig(ctx context.Context, cfg EmailConfig) error {
	if cfg.ID == "" {
		cfg.ID = "default"
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&cfg).Error
}

// Worker bookkeeping

func (s *GormStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	status := 0
	if success {
		status = 1
	}
	job := ScheduledJob{
		Name:           name,
		LastRunAt:      started,
		LastDurationMs: dur.Milliseconds(),
		LastSuccess:    status,
		LastError:      errMsg,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&job).Error
}

func (s *GormStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	if s.db.Dialector.Name() != "postgres" {
		// SQLite has no advisory locks; single-instance deployments always win.
		return true, nil
	}

	s.lockMu.Lock()
	_, held := s.lockConns[key]
	s.lockMu.Unlock()
	if held {
		return false, nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return false, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		conn.Close()
		return false, err
	}
	if !ok {
		conn.Close()
		return false, nil
	}

	s.lockMu.Lock()
	s.lockConns[key] = conn
	s.lockMu.Unlock()
	return true, nil
}

func (s *GormStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	if s.db.Dialector.Name() != "postgres" {
		return true, nil
	}

	s.lockMu.Lock()
	conn, held := s.lockConns[key]
	delete(s.lockConns, key)
	s.lockMu.Unlock()
	if !held {
		return false, nil
	}
	defer conn.Close()

	var ok bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Close & Ping

func (s *GormStorage) Close() error {
	s.lockMu.Lock()
	for key, conn := range s.lockConns {
		conn.Close()
		delete(s.lockConns, key)
	}
	s.lockMu.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStorage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
