// Package extract orchestrates concurrent extraction runs across the
// registered distributor portals: fan-out, per-job time budgets, bounded
// retries and aggregation into a single run keyed by distributor code.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/enerluz/portalex/internal/cache"
	"github.com/enerluz/portalex/internal/metrics"
	"github.com/enerluz/portalex/internal/normalize"
	"github.com/enerluz/portalex/internal/storage"
	"github.com/enerluz/portalex/internal/tariff"
	"github.com/enerluz/portalex/pkg/portals"
)

// Resolver maps a distributor code to its adapter. The default resolver is
// the process-wide portal registry.
type Resolver func(code string) (portals.Portal, bool)

// Alerter receives structural failures that need operator attention.
type Alerter interface {
	StructuralFailure(ctx context.Context, code string, reason portals.FailureReason, message string)
}

// Options controls timeout, retry and cache behavior for extraction runs.
type Options struct {
	// PerJobTimeout bounds a single extraction attempt against one portal.
	PerJobTimeout time.Duration
	// RunTimeout bounds the whole run; jobs still pending when it elapses
	// are cancelled and recorded as timeouts.
	RunTimeout time.Duration
	// MaxRetries bounds retries of rate-limited/unreachable failures.
	// Zero disables retries; there is no implied default.
	MaxRetries uint64
	// RetryBaseDelay seeds the exponential backoff between retries.
	RetryBaseDelay time.Duration
	// CacheTTL controls the result cache; zero disables it.
	CacheTTL time.Duration

	// Resolver overrides adapter resolution; nil means the registry.
	Resolver Resolver
	// Alerter, when set, is notified of structural failures.
	Alerter Alerter
}

func (o Options) withDefaults() Options {
	if o.PerJobTimeout <= 0 {
		o.PerJobTimeout = 20 * time.Second
	}
	if o.RunTimeout <= 0 {
		o.RunTimeout = 60 * time.Second
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 500 * time.Millisecond
	}
	if o.Resolver == nil {
		o.Resolver = portals.Get
	}
	return o
}

// Service runs extractions. It owns each run's lifecycle; adapters never
// outlive their job and the registry is shared read-only.
type Service struct {
	opts   Options
	cache  *cache.Cache
	store  storage.Storage // may be nil
	logger zerolog.Logger
}

// New returns a Service without persistent snapshots.
func New(logger zerolog.Logger, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		opts:   opts,
		cache:  cache.New(opts.CacheTTL),
		logger: logger.With().Str("component", "extract").Logger(),
	}
}

// NewWithStorage returns a Service that writes each successful extraction
// back to the given storage backend, best-effort.
func NewWithStorage(logger zerolog.Logger, opts Options, st storage.Storage) *Service {
	s := New(logger, opts)
	s.store = st
	return s
}

// Cache exposes the result cache, e.g. for invalidation by the refresh
// endpoint.
func (s *Service) Cache() *cache.Cache { return s.cache }

// ExtractMany fans out one concurrent job per resolvable code and collects
// the outcomes into a fresh run. Every requested code gets exactly one
// result, including unknown and timed-out codes; one portal's failure never
// affects another's job.
func (s *Service) ExtractMany(ctx context.Context, codes []string, q portals.Query) *tariff.Run {
	run := &tariff.Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Requested: dedupe(codes),
		Results:   make(map[string]tariff.Result),
	}

	type job struct {
		code   string
		portal portals.Portal
	}
	var jobs []job
	for _, code := range run.Requested {
		p, ok := s.opts.Resolver(code)
		if !ok {
			run.Results[code] = failureResult(code, portals.FailureUnknownDistributor, "no adapter registered", 0)
			continue
		}
		if res, hit := s.cache.Get(code); hit {
			res.FromCache = true
			run.Results[code] = res
			metrics.CacheHitsTotal.WithLabelValues(code).Inc()
			continue
		}
		jobs = append(jobs, job{code: code, portal: p})
	}

	if len(jobs) > 0 {
		runCtx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()

		// Buffered so stragglers cancelled at the deadline can still
		// finish their send and exit.
		results := make(chan tariff.Result, len(jobs))
		for _, j := range jobs {
			go func(j job) {
				results <- s.runJob(runCtx, j.portal, q)
			}(j)
		}

		done := 0
	collect:
		for done < len(jobs) {
			select {
			case res := <-results:
				run.Results[res.DistributorCode] = res
				done++
			case <-runCtx.Done():
				// Drain jobs that finished right at the deadline.
				for {
					select {
					case res := <-results:
						run.Results[res.DistributorCode] = res
						done++
					default:
						break collect
					}
				}
			}
		}
		for _, j := range jobs {
			if _, ok := run.Results[j.code]; !ok {
				run.Results[j.code] = failureResult(j.code, portals.FailureTimeout, "run timeout elapsed", 0)
			}
		}
	}

	run.CompletedAt = time.Now().UTC()
	run.Status = run.ComputeStatus()

	s.logger.Info().
		Str("run_id", run.ID).
		Str("status", string(run.Status)).
		Int("requested", len(run.Requested)).
		Dur("duration", run.CompletedAt.Sub(run.StartedAt)).
		Msg("extraction run completed")

	return run
}

// runJob executes one distributor's extraction with bounded retries. Only
// rate-limited and unreachable failures are retried; authentication and
// shape failures surface immediately for operator attention.
func (s *Service) runJob(ctx context.Context, p portals.Portal, q portals.Query) tariff.Result {
	code := p.Key()
	started := time.Now()
	attempts := 0
	var offers []tariff.Offer

	backoff := retry.WithMaxRetries(s.opts.MaxRetries, retry.NewExponential(s.opts.RetryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.PerJobTimeout)
		defer cancel()

		raw, err := p.Extract(attemptCtx, q)
		if err != nil {
			if portals.Retryable(portals.ReasonOf(err)) {
				return retry.RetryableError(err)
			}
			return err
		}

		normalized, err := normalize.Offers(code, raw)
		if err != nil {
			return err
		}
		offers = normalized
		return nil
	})

	if err != nil {
		reason := portals.ReasonOf(err)
		metrics.RecordJob(code, started, string(reason), 0)
		s.logger.Warn().
			Err(err).
			Str("distributor", code).
			Str("reason", string(reason)).
			Int("attempts", attempts).
			Msg("extraction failed")

		if s.opts.Alerter != nil &&
			(reason == portals.FailureAuthentication || reason == portals.FailureBadShape) {
			s.opts.Alerter.StructuralFailure(ctx, code, reason, err.Error())
		}

		res := failureResult(code, reason, err.Error(), attempts)
		var pe *portals.Error
		if errors.As(err, &pe) {
			res.Failure.Field = pe.Field
		}
		return res
	}

	metrics.RecordJob(code, started, "", len(offers))
	s.logger.Info().
		Str("distributor", code).
		Int("offers", len(offers)).
		Int("attempts", attempts).
		Dur("duration", time.Since(started)).
		Msg("extraction succeeded")

	res := tariff.Result{DistributorCode: code, Offers: offers, Attempts: attempts}
	s.cache.Put(code, res)
	s.saveSnapshot(code, offers)
	return res
}

// saveSnapshot writes the normalized offers back to storage, best-effort.
// It uses its own deadline so a run hitting its timeout does not lose the
// write.
func (s *Service) saveSnapshot(code string, offers []tariff.Offer) {
	if s.store == nil || len(offers) == 0 {
		return
	}
	payload, err := json.Marshal(offers)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.SaveOfferSnapshot(ctx, storage.OfferSnapshot{
		Distributor: code,
		Payload:     payload,
		FetchedAt:   offers[0].SourceTimestamp,
	}); err != nil {
		s.logger.Warn().Err(err).Str("distributor", code).Msg("snapshot write failed")
	}
}

func failureResult(code string, reason portals.FailureReason, msg string, attempts int) tariff.Result {
	return tariff.Result{
		DistributorCode: code,
		Failure:         &tariff.Failure{Reason: reason, Message: msg},
		Attempts:        attempts,
	}
}

func dedupe(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
