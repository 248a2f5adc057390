// Package cron runs the periodic refresh worker. It re-extracts every
// registered distributor on a configurable interval, guarded by an advisory
// lock so a multi-instance deployment runs each refresh exactly once.
package cron

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/enerluz/portalex/internal/alerting"
	"github.com/enerluz/portalex/internal/config"
	"github.com/enerluz/portalex/internal/extract"
	"github.com/enerluz/portalex/internal/metrics"
	"github.com/enerluz/portalex/internal/notification"
	"github.com/enerluz/portalex/internal/storage"
	"github.com/enerluz/portalex/internal/tariff"
	"github.com/enerluz/portalex/pkg/portals"
)

const (
	jobName         = "refresh_offers"
	intervalSetting = "refresh_interval_seconds"
	lockKey         = int64(7321)
)

// Run starts the refresh worker and blocks until ctx is cancelled. The
// refresh interval comes from configuration, overridable at runtime through
// the refresh_interval_seconds setting; the value is either integer seconds
// or a standard cron expression.
func Run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	log := logger.With().Str("component", "cron").Logger()

	st, err := storage.Open(ctx, storage.Config{
		Driver:  cfg.StorageDriver,
		DSN:     cfg.StorageDSN,
		Portals: catalog(),
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.Close()

	alerter := alerting.New(alerting.ConfigFromEnv(), log)
	notifier := notification.NewService(st)

	svc := extract.NewWithStorage(log, extract.Options{
		PerJobTimeout:  cfg.PerJobTimeout,
		RunTimeout:     cfg.RunTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
		// The worker always wants fresh data; the cache only serves the API.
		CacheTTL: 0,
		Alerter:  alerter,
	}, st)

	setting := cfg.CronSpec
	if setting == "" {
		setting = strconv.Itoa(int(cfg.RefreshInterval / time.Second))
	}
	if val, err := st.GetSetting(ctx, intervalSetting); err == nil && val != "" {
		setting = val
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	nextRun := time.Now()

	log.Info().Str("setting", setting).Str("driver", cfg.StorageDriver).Msg("refresh worker starting")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if val, err := st.GetSetting(ctx, intervalSetting); err == nil && val != "" && val != setting {
				log.Info().Str("old", setting).Str("new", val).Msg("refresh interval updated")
				setting = val
				nextRun = nextRunTime(setting, time.Now())
			}

			if time.Now().Before(nextRun) {
				continue
			}

			started := time.Now()

			locked, err := st.AcquireAdvisoryLock(ctx, lockKey)
			if err != nil {
				log.Warn().Err(err).Msg("acquire advisory lock failed")
				metrics.UpdateJobMetrics(jobName, started, err)
				nextRun = nextRunTime(setting, time.Now())
				continue
			}
			if !locked {
				log.Debug().Msg("advisory lock held by another worker, skipping run")
				nextRun = nextRunTime(setting, time.Now())
				continue
			}

			var run *tariff.Run
			func() {
				defer func() {
					released, err := st.ReleaseAdvisoryLock(ctx, lockKey)
					if err != nil {
						log.Warn().Err(err).Msg("release advisory lock failed")
					} else if !released {
						log.Warn().Msg("advisory lock not held by this session, nothing released")
					}
				}()
				run = svc.ExtractMany(ctx, portals.Codes(), portals.Query{})
			}()

			var runErr error
			if run.Status == tariff.RunAllFailed {
				runErr = fmt.Errorf("all %d distributors failed", len(run.Requested))
			}
			metrics.UpdateJobMetrics(jobName, started, runErr)

			dur := time.Since(started)
			errMsg := ""
			if runErr != nil {
				errMsg = runErr.Error()
			}
			if err := st.UpdateScheduledJob(ctx, jobName, started, dur, runErr == nil, errMsg); err != nil {
				log.Warn().Err(err).Msg("update scheduled job failed")
			}

			if run.Status != tariff.RunAllSucceeded {
				alert := alerting.RunAlertFrom(run)
				if err := alerter.SendRunAlert(ctx, alert); err != nil {
					log.Warn().Err(err).Msg("run alert failed")
				}
				if err := notifier.NotifyRunFailures(ctx, alert); err != nil {
					log.Warn().Err(err).Msg("failure email not sent")
				}
			}

			log.Info().
				Str("job", jobName).
				Str("status", string(run.Status)).
				Dur("duration", dur).
				Msg("refresh run completed")

			nextRun = nextRunTime(setting, time.Now())
		}
	}
}

// nextRunTime interprets the interval setting as integer seconds or a
// standard cron expression, falling back to five minutes.
func nextRunTime(setting string, from time.Time) time.Time {
	if v, err := strconv.Atoi(setting); err == nil && v > 0 {
		return from.Add(time.Duration(v) * time.Second)
	}
	if sched, err := cron.ParseStandard(setting); err == nil {
		return sched.Next(from)
	}
	return from.Add(5 * time.Minute)
}

// catalog converts the registered portal infos into storage rows so fresh
// backends start with the distributor catalog populated.
func catalog() []storage.Portal {
	var out []storage.Portal
	for _, info := range portals.Infos() {
		out = append(out, storage.Portal{
			Code:        info.Code,
			Name:        info.Name,
			URL:         info.URL,
			Description: info.Description,
		})
	}
	return out
}
