// Package scheduler runs the periodic jobs: the upcoming meal promotion sweep
// and the daily pending meal request digest.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bitelog/bitelog-api/internal/cache"
	"github.com/bitelog/bitelog-api/internal/config"
	prommetrics "github.com/bitelog/bitelog-api/internal/metrics"
	"github.com/bitelog/bitelog-api/internal/models"
	"github.com/bitelog/bitelog-api/pkg/logger"
)

// Job names used for locks and metrics.
const (
	JobPromotionSweep = "promotion_sweep"
	JobRequestDigest  = "request_digest"
)

// minDigestAge keeps requests filed in the last few hours out of the digest.
const minDigestAge = 4 * time.Hour

// Sweeper publishes upcoming meals that reached the like threshold.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// PendingLister lists meal requests still waiting to be served.
type PendingLister interface {
	Pending(ctx context.Context) ([]models.MealRequest, error)
}

// DigestSender delivers the pending request digest.
type DigestSender interface {
	SendPendingRequestDigest(ctx context.Context, requests []models.MealRequest, now time.Time) error
}

// Service handles background job scheduling.
type Service struct {
	config  *config.SchedulerConfig
	sweeper Sweeper
	pending PendingLister
	digest  DigestSender
	locks   cache.Cache
	log     *logger.Logger
	cron    *cron.Cron
	now     func() time.Time
}

// NewService creates a new scheduler service. digest may be nil, which
// disables the request digest job.
func NewService(
	cfg *config.SchedulerConfig,
	sweeper Sweeper,
	pending PendingLister,
	digest DigestSender,
	locks cache.Cache,
	log *logger.Logger,
) *Service {
	return &Service{
		config:  cfg,
		sweeper: sweeper,
		pending: pending,
		digest:  digest,
		locks:   locks,
		log:     log,
		now:     time.Now,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := s.config.GetLocation()
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	if s.config.PromotionSweep != "" {
		_, err = s.cron.AddFunc(s.config.PromotionSweep, func() {
			s.runPromotionSweep(context.Background())
		})
		if err != nil {
			return fmt.Errorf("failed to register promotion sweep job: %w", err)
		}
		s.log.Info().Str("schedule", s.config.PromotionSweep).Msg("Promotion sweep job registered")
	}

	if s.digest != nil {
		digestExpr, err := s.buildCronExpression()
		if err != nil {
			return fmt.Errorf("failed to build cron expression: %w", err)
		}
		_, err = s.cron.AddFunc(digestExpr, func() {
			s.runRequestDigest(context.Background())
		})
		if err != nil {
			return fmt.Errorf("failed to register request digest job: %w", err)
		}
		s.log.Info().Str("schedule", digestExpr).Msg("Request digest job registered")
	}

	s.cron.Start()

	nextRun := ""
	if entries := s.cron.Entries(); len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}
	s.log.Info().
		Str("timezone", s.config.Timezone).
		Int("jobs", len(s.cron.Entries())).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression turns the daily "HH:MM" digest time into a cron expression.
func (s *Service) buildCronExpression() (string, error) {
	parts := strings.Split(s.config.RequestDigest, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", s.config.RequestDigest)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	// Format: "minute hour day month weekday"
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// acquire takes the job's lock so only one instance runs it per tick.
func (s *Service) acquire(ctx context.Context, job string, ttl time.Duration) bool {
	if s.locks == nil {
		return true
	}
	ok, err := s.locks.SetNX(ctx, "scheduler:lock:"+job, s.now().UTC().Format(time.RFC3339), ttl)
	if err != nil {
		// Run anyway; promotion and the digest tolerate a duplicate run.
		s.log.Warn().Err(err).Str("job", job).Msg("Failed to acquire scheduler lock")
		return true
	}
	if !ok {
		s.log.Debug().Str("job", job).Msg("Job already running elsewhere, skipping")
	}
	return ok
}

// runPromotionSweep publishes upcoming meals already at the like threshold.
func (s *Service) runPromotionSweep(ctx context.Context) {
	if !s.acquire(ctx, JobPromotionSweep, time.Minute) {
		prommetrics.RecordSchedulerJobRun(JobPromotionSweep, "skipped")
		return
	}

	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration(JobPromotionSweep, time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun(JobPromotionSweep)
	}()

	published, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.log.Error().Err(err).Int("published", published).Msg("Promotion sweep failed")
		prommetrics.RecordSchedulerJobRun(JobPromotionSweep, "error")
		return
	}

	prommetrics.RecordSchedulerJobRun(JobPromotionSweep, "success")
	if published > 0 {
		s.log.Info().Int("published", published).Dur("duration", time.Since(start)).Msg("Promotion sweep published meals")
	}
}

// runRequestDigest sends the daily list of pending meal requests.
func (s *Service) runRequestDigest(ctx context.Context) {
	if !s.acquire(ctx, JobRequestDigest, time.Hour) {
		prommetrics.RecordSchedulerJobRun(JobRequestDigest, "skipped")
		return
	}

	start := time.Now()
	defer func() {
		prommetrics.ObserveSchedulerJobDuration(JobRequestDigest, time.Since(start).Seconds())
		prommetrics.SetSchedulerLastRun(JobRequestDigest)
	}()

	s.log.Info().Msg("Running request digest job")

	queryStart := time.Now()
	requests, err := s.pending.Pending(ctx)
	queryDuration := time.Since(queryStart)
	if err != nil {
		s.log.Error().Err(err).Dur("query_duration", queryDuration).Msg("Failed to list pending meal requests")
		prommetrics.RecordSchedulerJobRun(JobRequestDigest, "error")
		prommetrics.RecordSchedulerNotificationFailed("query_error")
		return
	}

	now := s.now()
	filtered := filterRecentRequests(requests, minDigestAge, now)
	prommetrics.SetSchedulerPendingRequests(len(requests))

	s.log.Info().
		Int("total", len(requests)).
		Int("filtered", len(filtered)).
		Dur("query_duration", queryDuration).
		Msg("Found pending meal requests")

	if len(filtered) == 0 {
		prommetrics.RecordSchedulerJobRun(JobRequestDigest, "success")
		return
	}

	sendStart := time.Now()
	if err := s.digest.SendPendingRequestDigest(ctx, filtered, now); err != nil {
		s.log.Error().Err(err).Dur("send_duration", time.Since(sendStart)).Msg("Failed to send request digest")
		prommetrics.RecordSchedulerJobRun(JobRequestDigest, "error")
		prommetrics.RecordSchedulerNotificationFailed("mattermost_error")
		return
	}

	prommetrics.RecordSchedulerJobRun(JobRequestDigest, "success")
	s.log.Info().
		Int("request_count", len(filtered)).
		Dur("total_duration", time.Since(start)).
		Msg("Successfully sent request digest")
}
