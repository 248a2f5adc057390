package storage

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPoolStorage is a pgxpool-backed Storage for worker deployments
// that rely on session-scoped advisory locks.
type PostgresPoolStorage struct {
	pool *pgxpool.Pool

	// Advisory locks are session-scoped, so each held lock pins the pool
	// connection it was acquired on until it is released on that same
	// connection.
	mu        sync.Mutex
	lockConns map[int64]*pgxpool.Conn
}

func OpenPostgresPool(ctx context.Context, dsn string) (*PostgresPoolStorage, error) {
	if dsn == "" {
		dsn = "postgres://localhost:5432/portalex?sslmode=disable"
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return &PostgresPoolStorage{
		pool:      pool,
		lockConns: make(map[int64]*pgxpool.Conn),
	}, nil
}

func (s *PostgresPoolStorage) Close() error {
	// pool.Close blocks until every connection is returned, so any conn
	// still pinned by an unreleased lock must go back first.
	s.mu.Lock()
	for key, conn := range s.lockConns {
		conn.Release()
		delete(s.lockConns, key)
	}
	s.mu.Unlock()

	s.pool.Close()
	return nil
}

func (s *PostgresPoolStorage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresPoolStorage) ListPortals(ctx context.Context) ([]Portal, error) {
	rows, err := s.pool.Query(ctx, `SELECT code, name, url, description FROM portals`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Portal
	for rows.Next() {
		var p Portal
		if err := rows.Scan(&p.Code, &p.Name, &p.URL, &p.Description); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresPoolStorage) GetPortal(ctx context.Context, code string) (*Portal, error) {
	row := s.pool.QueryRow(ctx, `SELECT code, name, url, description FROM portals WHERE code=$1`, code)
	var p Portal
	if err := row.Scan(&p.Code, &p.Name, &p.URL, &p.Description); err != nil {
		return nil, nil
	}
	return &p, nil
}

func (s *PostgresPoolStorage) UpsertPortal(ctx context.Context, p Portal) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO portals (code, name, url, description)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (code) DO UPDATE SET
            name=EXCLUDED.name,
            url=EXCLUDED.url,
            description=EXCLUDED.description
    `, p.Code, p.Name, p.URL, p.Description)
	return err
}

func (s *PostgresPoolStorage) GetOfferSnapshot(ctx context.Context, distributor string) (*OfferSnapshot, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT payload, fetched_at
        FROM offer_snapshots
        WHERE distributor=$1
        ORDER BY id DESC
        LIMIT 1
    `, distributor)

	var payload []byte
	var fetched time.Time
	if err := row.Scan(&payload, &fetched); err != nil {
		return nil, nil
	}

	return &OfferSnapshot{
		Distributor: distributor,
		Payload:     payload,
		FetchedAt:   fetched,
	}, nil
}

func (s *PostgresPoolStorage) SaveOfferSnapshot(ctx context.Context, snap OfferSnapshot) error {
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO offer_snapshots (distributor, payload, fetched_at)
        VALUES ($1,$2,$3)
    `, snap.Distributor, snap.Payload, snap.FetchedAt)
	return err
}

func (s *PostgresPoolStorage) GetSetting(ctx context.Context, key string) (string, error) {
	row := s.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key=$1`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		return "", nil
	}
	return value, nil
}

func (s *PostgresPoolStorage) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO settings (key, value, updated_at)
        VALUES ($1,$2,now())
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=now()
    `, key, value)
	return err
}

func (s *PostgresPoolStorage) GetEmailConfig(ctx context.Context) (*EmailConfig, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT id, provider, host, port, username, password, from_address,
               from_name, api_key, recipient, enabled
        FROM email_configs LIMIT 1
    `)
	var cfg EmailConfig
	if err := row.Scan(&cfg.ID, &cfg.Provider, &cfg.Host, &cfg.Port, &cfg.Username,
		&cfg.Password, &cfg.FromAddress, &cfg.FromName, &cfg.APIKey,
		&cfg.Recipient, &cfg.Enabled); err != nil {
		return nil, nil
	}
	return &cfg, nil
}

func (s *PostgresPoolStorage) SaveEmailConfig(ctx context.Context, cfg EmailConfig) error {
	if cfg.ID == "" {
		cfg.ID = "default"
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO email_configs (id, provider, host, port, username, password,
            from_address, from_name, api_key, recipient, enabled, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
        ON CONFLICT (id) DO UPDATE SET
            provider=EXCLUDED.provider, host=EXCLUDED.host, port=EXCLUDED.port,
            username=EXCLUDED.username, password=EXCLUDED.password,
            from_address=EXCLUDED.from_address, from_name=EXCLUDED.from_name,
            api_key=EXCLUDED.api_key, recipient=EXCLUDED.recipient,
            enabled=EXCLUDED.enabled, updated_at=now()
    `, cfg.ID, cfg.Provider, cfg.Host, cfg.Port, cfg.Username, cfg.Password,
		cfg.FromAddress, cfg.FromName, cfg.APIKey, cfg.Recipient, cfg.Enabled)
	return err
}

func (s *PostgresPoolStorage) UpdateScheduledJob(ctx context.Context, name string, started time.Time, dur time.Duration, success bool, errMsg string) error {
	status := 0
	if success {
		status = 1
	}
	_, err := s.pool.Exec(ctx, `
        INSERT INTO scheduled_jobs (name, last_run_at, last_duration_ms, last_success, last_error)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (name) DO UPDATE SET
            last_run_at=EXCLUDED.last_run_at,
            last_duration_ms=EXCLUDED.last_duration_ms,
            last_success=EXCLUDED.last_success,
            last_error=EXCLUDED.last_error
    `, name, started, dur.Milliseconds(), status, errMsg)
	return err
}

func (s *PostgresPoolStorage) AcquireAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	s.mu.Lock()
	_, held := s.lockConns[key]
	s.mu.Unlock()
	if held {
		return false, nil
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		conn.Release()
		return false, err
	}
	if !ok {
		conn.Release()
		return false, nil
	}

	s.mu.Lock()
	s.lockConns[key] = conn
	s.mu.Unlock()
	return true, nil
}

func (s *PostgresPoolStorage) ReleaseAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	s.mu.Lock()
	conn, held := s.lockConns[key]
	delete(s.lockConns, key)
	s.mu.Unlock()
	if !held {
		return false, nil
	}
	defer conn.Release()

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_advisory_unlock($1)`, key).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
